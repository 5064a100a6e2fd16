package checklist

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"checkround/pkg/store"
)

// ListReports returns the reports matching filter in storage order.
func (r *Repository) ListReports(ctx context.Context, filter ReportFilter) (reports []ChecklistReport, err error) {
	ctx, end := r.track(ctx, "list_reports", attribute.Int("operator.id", filter.OperatorID))
	defer func() { end(err) }()

	all, err := store.Read[ChecklistReport](ctx, r.store, ReportsContainer)
	if err != nil {
		return nil, fmt.Errorf("read reports: %w", err)
	}
	if filter.OperatorID == 0 {
		return all, nil
	}

	reports = []ChecklistReport{}
	for _, report := range all {
		if report.OperatorID == filter.OperatorID {
			reports = append(reports, report)
		}
	}
	return reports, nil
}

func (r *Repository) GetReport(ctx context.Context, id int) (report ChecklistReport, found bool, err error) {
	ctx, end := r.track(ctx, "get_report", attribute.Int("report.id", id))
	defer func() { end(err) }()

	all, err := store.Read[ChecklistReport](ctx, r.store, ReportsContainer)
	if err != nil {
		return ChecklistReport{}, false, fmt.Errorf("read reports: %w", err)
	}
	for _, candidate := range all {
		if candidate.ID == id {
			return candidate, true, nil
		}
	}
	return ChecklistReport{}, false, nil
}

// CreateReport appends a report under the next free id and returns that id.
// A zero InspectedAt is stamped with the current time and an empty status means completed.
func (r *Repository) CreateReport(ctx context.Context, in NewReport) (id int, err error) {
	ctx, end := r.track(ctx, "create_report", attribute.Int("machine.id", in.MachineID))
	defer func() { end(err) }()

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.createReportLocked(ctx, in)
}

func (r *Repository) createReportLocked(ctx context.Context, in NewReport) (int, error) {
	if in.Status == "" {
		in.Status = ReportCompleted
	}
	if !in.Status.Valid() {
		return 0, fmt.Errorf("%w: report status %q", ErrInvalidStatus, in.Status)
	}
	if in.InspectedAt.IsZero() {
		in.InspectedAt = r.now()
	}

	if r.strict {
		machines, err := store.Read[Machine](ctx, r.store, MachinesContainer)
		if err != nil {
			return 0, fmt.Errorf("read machines: %w", err)
		}
		if _, ok := findMachine(machines, in.MachineID); !ok {
			return 0, fmt.Errorf("%w: id %d", ErrMachineNotFound, in.MachineID)
		}
	}

	reports, err := store.Read[ChecklistReport](ctx, r.store, ReportsContainer)
	if err != nil {
		return 0, fmt.Errorf("read reports: %w", err)
	}

	report := ChecklistReport{
		ID:          nextID(reports, reportID),
		MachineID:   in.MachineID,
		OperatorID:  in.OperatorID,
		InspectedAt: in.InspectedAt,
		Status:      in.Status,
	}
	if err := store.Write(ctx, r.store, ReportsContainer, append(reports, report)); err != nil {
		return 0, fmt.Errorf("write reports: %w", err)
	}

	r.logger.Info().
		Int("report_id", report.ID).
		Int("machine_id", report.MachineID).
		Int("operator_id", report.OperatorID).
		Msg("report created")
	return report.ID, nil
}
