package checklist

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"checkround/pkg/store"
)

// ListChecklistItems returns the items of one machine ordered by ordinal.
// Items sharing an ordinal keep their storage order.
func (r *Repository) ListChecklistItems(ctx context.Context, machineID int) (items []ChecklistItem, err error) {
	ctx, end := r.track(ctx, "list_checklist_items", attribute.Int("machine.id", machineID))
	defer func() { end(err) }()

	all, err := store.Read[ChecklistItem](ctx, r.store, ItemsContainer)
	if err != nil {
		return nil, fmt.Errorf("read checklist items: %w", err)
	}
	return itemsForMachine(all, machineID), nil
}

// AddChecklistItem appends a question to an existing machine's checklist.
func (r *Repository) AddChecklistItem(ctx context.Context, in NewItem) (item ChecklistItem, err error) {
	ctx, end := r.track(ctx, "add_checklist_item", attribute.Int("machine.id", in.MachineID))
	defer func() { end(err) }()

	in.Prompt = strings.TrimSpace(in.Prompt)
	if in.Prompt == "" {
		return ChecklistItem{}, fmt.Errorf("%w: item prompt is required", ErrInvalidInput)
	}
	if in.Ordinal < 0 {
		return ChecklistItem{}, fmt.Errorf("%w: ordinal must not be negative", ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	machines, err := store.Read[Machine](ctx, r.store, MachinesContainer)
	if err != nil {
		return ChecklistItem{}, fmt.Errorf("read machines: %w", err)
	}
	if _, ok := findMachine(machines, in.MachineID); !ok {
		return ChecklistItem{}, fmt.Errorf("%w: id %d", ErrMachineNotFound, in.MachineID)
	}

	all, err := store.Read[ChecklistItem](ctx, r.store, ItemsContainer)
	if err != nil {
		return ChecklistItem{}, fmt.Errorf("read checklist items: %w", err)
	}

	ordinal := in.Ordinal
	if ordinal == 0 {
		for _, existing := range all {
			if existing.MachineID == in.MachineID && existing.Ordinal > ordinal {
				ordinal = existing.Ordinal
			}
		}
		ordinal++
	}

	now := r.now()
	item = ChecklistItem{
		ID:        nextID(all, itemID),
		MachineID: in.MachineID,
		Prompt:    in.Prompt,
		Ordinal:   ordinal,
		CreatedAt: &now,
	}
	if err := store.Write(ctx, r.store, ItemsContainer, append(all, item)); err != nil {
		return ChecklistItem{}, fmt.Errorf("write checklist items: %w", err)
	}
	return item, nil
}

func itemsForMachine(all []ChecklistItem, machineID int) []ChecklistItem {
	items := []ChecklistItem{}
	for _, item := range all {
		if item.MachineID == machineID {
			items = append(items, item)
		}
	}
	slices.SortStableFunc(items, func(a, b ChecklistItem) int {
		return cmp.Compare(a.Ordinal, b.Ordinal)
	})
	return items
}
