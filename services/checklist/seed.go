package checklist

import (
	"context"
	"fmt"

	"checkround/pkg/store"
)

type seedMachine struct {
	name, barcode, location string
	items                   []string
}

var demoMachines = []seedMachine{
	{
		name: "CNC Machine 01", barcode: "CNC001", location: "Workshop A",
		items: []string{"Check Oil Level", "Check Belt Condition", "Check Temperature"},
	},
	{
		name: "Lathe Machine 02", barcode: "LAT002", location: "Workshop B",
		items: []string{"Check Chuck Condition", "Check Coolant Level"},
	},
	{
		name: "Milling Machine 03", barcode: "MIL003", location: "Workshop A",
		items: []string{"Check Spindle Alignment"},
	},
}

// SeedIfEmpty writes the demo machines and their checklist items when no machine exists yet.
func (r *Repository) SeedIfEmpty(ctx context.Context) (seeded bool, err error) {
	ctx, end := r.track(ctx, "seed_if_empty")
	defer func() { end(err) }()

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := store.Read[Machine](ctx, r.store, MachinesContainer)
	if err != nil {
		return false, fmt.Errorf("read machines: %w", err)
	}
	if len(existing) > 0 {
		return false, nil
	}

	now := r.now()
	machines := make([]Machine, 0, len(demoMachines))
	var items []ChecklistItem
	for i, dm := range demoMachines {
		m := Machine{ID: i + 1, Name: dm.name, Barcode: dm.barcode, Location: dm.location, CreatedAt: &now}
		machines = append(machines, m)
		for j, prompt := range dm.items {
			items = append(items, ChecklistItem{
				ID:        len(items) + 1,
				MachineID: m.ID,
				Prompt:    prompt,
				Ordinal:   j + 1,
				CreatedAt: &now,
			})
		}
	}

	// items first: a failure here leaves the store still reading as unseeded
	if err := store.Write(ctx, r.store, ItemsContainer, items); err != nil {
		return false, fmt.Errorf("seed checklist items: %w", err)
	}
	if err := store.Write(ctx, r.store, MachinesContainer, machines); err != nil {
		return false, fmt.Errorf("seed machines: %w", err)
	}

	r.logger.Info().Int("machines", len(machines)).Int("items", len(items)).Msg("seeded demo data")
	return true, nil
}
