package checklist

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"checkround/pkg/store"
)

// ListMachines returns every machine in storage order.
func (r *Repository) ListMachines(ctx context.Context) (machines []Machine, err error) {
	ctx, end := r.track(ctx, "list_machines")
	defer func() { end(err) }()

	machines, err = store.Read[Machine](ctx, r.store, MachinesContainer)
	if err != nil {
		return nil, fmt.Errorf("read machines: %w", err)
	}
	return machines, nil
}

func (r *Repository) GetMachine(ctx context.Context, id int) (m Machine, found bool, err error) {
	ctx, end := r.track(ctx, "get_machine", attribute.Int("machine.id", id))
	defer func() { end(err) }()

	machines, err := store.Read[Machine](ctx, r.store, MachinesContainer)
	if err != nil {
		return Machine{}, false, fmt.Errorf("read machines: %w", err)
	}
	m, found = findMachine(machines, id)
	return m, found, nil
}

// FindMachineByBarcode returns the first machine whose barcode equals code exactly.
func (r *Repository) FindMachineByBarcode(ctx context.Context, code string) (m Machine, found bool, err error) {
	ctx, end := r.track(ctx, "find_machine_by_barcode")
	defer func() { end(err) }()

	machines, err := store.Read[Machine](ctx, r.store, MachinesContainer)
	if err != nil {
		return Machine{}, false, fmt.Errorf("read machines: %w", err)
	}
	for _, candidate := range machines {
		if candidate.Barcode == code {
			return candidate, true, nil
		}
	}
	return Machine{}, false, nil
}

// AddMachine registers a machine under a barcode no other machine uses.
func (r *Repository) AddMachine(ctx context.Context, in NewMachine) (m Machine, err error) {
	ctx, end := r.track(ctx, "add_machine")
	defer func() { end(err) }()

	in.Name = strings.TrimSpace(in.Name)
	in.Barcode = strings.TrimSpace(in.Barcode)
	if in.Name == "" || in.Barcode == "" {
		return Machine{}, fmt.Errorf("%w: machine name and barcode are required", ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	machines, err := store.Read[Machine](ctx, r.store, MachinesContainer)
	if err != nil {
		return Machine{}, fmt.Errorf("read machines: %w", err)
	}
	for _, existing := range machines {
		if existing.Barcode == in.Barcode {
			return Machine{}, fmt.Errorf("%w: %s", ErrDuplicateBarcode, in.Barcode)
		}
	}

	now := r.now()
	m = Machine{
		ID:        nextID(machines, machineID),
		Name:      in.Name,
		Barcode:   in.Barcode,
		Location:  strings.TrimSpace(in.Location),
		CreatedAt: &now,
	}
	if err := store.Write(ctx, r.store, MachinesContainer, append(machines, m)); err != nil {
		return Machine{}, fmt.Errorf("write machines: %w", err)
	}
	return m, nil
}

func findMachine(machines []Machine, id int) (Machine, bool) {
	for _, m := range machines {
		if m.ID == id {
			return m, true
		}
	}
	return Machine{}, false
}
