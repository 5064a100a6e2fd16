package checklist

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"checkround/pkg/store"
)

// SubmitChecklist records a completed inspection of one machine. Every
// item of the machine needs an OK or Not OK answer. The report and its
// details are written separately; a failure between the two leaves a
// report without details.
func (r *Repository) SubmitChecklist(ctx context.Context, sub Submission) (res SubmitResult, err error) {
	ctx, end := r.track(ctx, "submit_checklist",
		attribute.Int("machine.id", sub.MachineID),
		attribute.Int("operator.id", sub.OperatorID),
	)
	defer func() { end(err) }()

	r.mu.Lock()
	defer r.mu.Unlock()

	machines, err := store.Read[Machine](ctx, r.store, MachinesContainer)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("read machines: %w", err)
	}
	if _, ok := findMachine(machines, sub.MachineID); !ok {
		return SubmitResult{}, fmt.Errorf("%w: id %d", ErrMachineNotFound, sub.MachineID)
	}

	all, err := store.Read[ChecklistItem](ctx, r.store, ItemsContainer)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("read checklist items: %w", err)
	}
	items := itemsForMachine(all, sub.MachineID)

	own := make(map[int]struct{}, len(items))
	for _, item := range items {
		own[item.ID] = struct{}{}
	}
	answers := make(map[int]Response, len(sub.Responses))
	for _, resp := range sub.Responses {
		if _, ok := own[resp.ItemID]; !ok {
			return SubmitResult{}, fmt.Errorf("%w: item %d does not belong to machine %d", ErrUnknownItem, resp.ItemID, sub.MachineID)
		}
		if !resp.Status.Valid() {
			return SubmitResult{}, fmt.Errorf("%w: item %d status %q", ErrInvalidStatus, resp.ItemID, resp.Status)
		}
		answers[resp.ItemID] = resp
	}

	remaining := 0
	for _, item := range items {
		if resp, ok := answers[item.ID]; !ok || resp.Status == StatusNotApplicable {
			remaining++
		}
	}
	if remaining > 0 {
		return SubmitResult{}, &IncompleteError{Remaining: remaining}
	}

	newID, err := r.createReportLocked(ctx, NewReport{
		MachineID:   sub.MachineID,
		OperatorID:  sub.OperatorID,
		InspectedAt: r.now(),
		Status:      ReportCompleted,
	})
	if err != nil {
		return SubmitResult{}, err
	}

	details := make([]NewDetail, 0, len(items))
	for _, item := range items {
		resp := answers[item.ID]
		details = append(details, NewDetail{
			ReportID: newID,
			ItemID:   item.ID,
			Status:   resp.Status,
			Note:     resp.Note,
			PhotoURL: resp.PhotoURL,
		})
	}

	ids := []int{}
	if len(details) > 0 {
		ids, err = r.saveDetailsLocked(ctx, details)
		if err != nil {
			return SubmitResult{ReportID: newID}, fmt.Errorf("report %d saved without details: %w", newID, err)
		}
	}
	return SubmitResult{ReportID: newID, DetailIDs: ids}, nil
}
