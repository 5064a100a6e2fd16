package checklist

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"checkround/pkg/store"
)

// ListChecklistDetails returns the answers recorded for one report in id order.
func (r *Repository) ListChecklistDetails(ctx context.Context, reportID int) (details []ChecklistDetail, err error) {
	ctx, end := r.track(ctx, "list_checklist_details", attribute.Int("report.id", reportID))
	defer func() { end(err) }()

	all, err := store.Read[ChecklistDetail](ctx, r.store, DetailsContainer)
	if err != nil {
		return nil, fmt.Errorf("read checklist details: %w", err)
	}

	details = []ChecklistDetail{}
	for _, d := range all {
		if d.ReportID == reportID {
			details = append(details, d)
		}
	}
	// ids only ever grow, so storage order is id order
	return details, nil
}

// SaveChecklistDetails appends details in the given order under strictly
// increasing ids continuing from the container's current maximum, with a
// single write. It returns the assigned ids.
func (r *Repository) SaveChecklistDetails(ctx context.Context, in []NewDetail) (ids []int, err error) {
	ctx, end := r.track(ctx, "save_checklist_details", attribute.Int("details.count", len(in)))
	defer func() { end(err) }()

	if len(in) == 0 {
		return []int{}, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.saveDetailsLocked(ctx, in)
}

func (r *Repository) saveDetailsLocked(ctx context.Context, in []NewDetail) ([]int, error) {
	for i, d := range in {
		if !d.Status.Valid() {
			return nil, fmt.Errorf("%w: detail %d status %q", ErrInvalidStatus, i, d.Status)
		}
	}
	if r.strict {
		if err := r.checkDetailReferences(ctx, in); err != nil {
			return nil, err
		}
	}

	existing, err := store.Read[ChecklistDetail](ctx, r.store, DetailsContainer)
	if err != nil {
		return nil, fmt.Errorf("read checklist details: %w", err)
	}

	next := nextID(existing, detailID)
	ids := make([]int, 0, len(in))
	for _, d := range in {
		existing = append(existing, ChecklistDetail{
			ID:       next,
			ReportID: d.ReportID,
			ItemID:   d.ItemID,
			Status:   d.Status,
			Note:     d.Note,
			PhotoURL: d.PhotoURL,
		})
		ids = append(ids, next)
		next++
	}

	if err := store.Write(ctx, r.store, DetailsContainer, existing); err != nil {
		return nil, fmt.Errorf("write checklist details: %w", err)
	}
	return ids, nil
}

func (r *Repository) checkDetailReferences(ctx context.Context, in []NewDetail) error {
	reports, err := store.Read[ChecklistReport](ctx, r.store, ReportsContainer)
	if err != nil {
		return fmt.Errorf("read reports: %w", err)
	}
	items, err := store.Read[ChecklistItem](ctx, r.store, ItemsContainer)
	if err != nil {
		return fmt.Errorf("read checklist items: %w", err)
	}

	knownReports := make(map[int]struct{}, len(reports))
	for _, rep := range reports {
		knownReports[rep.ID] = struct{}{}
	}
	knownItems := make(map[int]struct{}, len(items))
	for _, item := range items {
		knownItems[item.ID] = struct{}{}
	}

	for _, d := range in {
		if _, ok := knownReports[d.ReportID]; !ok {
			return fmt.Errorf("%w: id %d", ErrUnknownReport, d.ReportID)
		}
		if _, ok := knownItems[d.ItemID]; !ok {
			return fmt.Errorf("%w: id %d", ErrUnknownItem, d.ItemID)
		}
	}
	return nil
}
