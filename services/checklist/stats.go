package checklist

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"checkround/pkg/store"
)

const (
	dayLayout    = "2006-01-02"
	topIssuesMax = 5
	unknownName  = "Unknown"
)

// ComputeDashboardStats aggregates every report, detail and machine in one pass each.
func (r *Repository) ComputeDashboardStats(ctx context.Context) (stats DashboardStats, err error) {
	ctx, end := r.track(ctx, "compute_dashboard_stats")
	defer func() { end(err) }()

	reports, err := store.Read[ChecklistReport](ctx, r.store, ReportsContainer)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("read reports: %w", err)
	}
	details, err := store.Read[ChecklistDetail](ctx, r.store, DetailsContainer)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("read checklist details: %w", err)
	}
	machines, err := store.Read[Machine](ctx, r.store, MachinesContainer)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("read machines: %w", err)
	}

	today := r.now().In(r.loc).Format(dayLayout)
	operators := make(map[int]struct{})
	machineOfReport := make(map[int]int, len(reports))

	stats.TotalReports = len(reports)
	for _, rep := range reports {
		if rep.InspectedAt.In(r.loc).Format(dayLayout) == today {
			stats.ReportsToday++
		}
		operators[rep.OperatorID] = struct{}{}
		if _, seen := machineOfReport[rep.ID]; !seen {
			machineOfReport[rep.ID] = rep.MachineID
		}
	}
	stats.ActiveOperators = len(operators)

	issuesByMachine := make(map[int]int)
	for _, d := range details {
		if d.Status != StatusNotOK {
			continue
		}
		stats.NotOKItems++
		// details of a missing report are counted above but attributed to no machine
		if mid, ok := machineOfReport[d.ReportID]; ok {
			issuesByMachine[mid]++
		}
	}

	stats.TopIssues = topIssues(issuesByMachine, machines)
	return stats, nil
}

func topIssues(issuesByMachine map[int]int, machines []Machine) []MachineIssues {
	names := make(map[int]string, len(machines))
	for i := len(machines) - 1; i >= 0; i-- {
		// first machine wins on duplicate ids
		names[machines[i].ID] = machines[i].Name
	}

	issues := make([]MachineIssues, 0, len(issuesByMachine))
	for mid, count := range issuesByMachine {
		name, ok := names[mid]
		if !ok {
			name = unknownName
		}
		issues = append(issues, MachineIssues{Machine: name, Issues: count})
	}
	slices.SortFunc(issues, func(a, b MachineIssues) int {
		if c := cmp.Compare(b.Issues, a.Issues); c != 0 {
			return c
		}
		return cmp.Compare(a.Machine, b.Machine)
	})
	if len(issues) > topIssuesMax {
		issues = issues[:topIssuesMax]
	}
	return issues
}
