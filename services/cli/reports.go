package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"checkround/services/auth"
	"checkround/services/checklist"
)

type reportRow struct {
	Report   checklist.ChecklistReport
	Machine  string
	Operator string
}

type reportLine struct {
	Prompt string
	Detail checklist.ChecklistDetail
}

type reportView struct {
	reportRow
	Lines []reportLine
}

func newReportsCommand(rt *runtime) *cobra.Command {
	return group("reports", "Inspection reports",
		newReportsListCommand(rt),
		newReportsShowCommand(rt),
		newReportsSubmitCommand(rt),
	)
}

func newReportsListCommand(rt *runtime) *cobra.Command {
	var operatorID int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reports; operators see their own",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			session, err := rt.session(ctx)
			if err != nil {
				return err
			}

			filter := checklist.ReportFilter{OperatorID: operatorID}
			if session.Role != auth.RoleSupervisor {
				if operatorID != 0 && operatorID != session.UserID {
					return fmt.Errorf("%w: operators only see their own reports", auth.ErrForbidden)
				}
				filter.OperatorID = session.UserID
			}

			reports, err := rt.app.Repo.ListReports(ctx, filter)
			if err != nil {
				return err
			}
			sortNewestFirst(reports)
			rows, err := rt.reportRows(ctx, reports)
			if err != nil {
				return err
			}
			return rt.app.Render.Render(cmd.OutOrStdout(), "reports", rows)
		},
	}

	cmd.Flags().IntVar(&operatorID, "operator", 0, "Only reports of this operator id (supervisors)")
	return cmd
}

func newReportsShowCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show <report-id>",
		Short: "Show a report with its answers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			session, err := rt.session(ctx)
			if err != nil {
				return err
			}
			id, err := parseID(args[0], "report")
			if err != nil {
				return err
			}

			report, found, err := rt.app.Repo.GetReport(ctx, id)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("%w: id %d", checklist.ErrUnknownReport, id)
			}
			if session.Role != auth.RoleSupervisor && report.OperatorID != session.UserID {
				return fmt.Errorf("%w: report %d belongs to another operator", auth.ErrForbidden, id)
			}

			rows, err := rt.reportRows(ctx, []checklist.ChecklistReport{report})
			if err != nil {
				return err
			}
			details, err := rt.app.Repo.ListChecklistDetails(ctx, id)
			if err != nil {
				return err
			}
			items, err := rt.app.Repo.ListChecklistItems(ctx, report.MachineID)
			if err != nil {
				return err
			}
			prompts := make(map[int]string, len(items))
			for _, item := range items {
				prompts[item.ID] = item.Prompt
			}

			view := reportView{reportRow: rows[0]}
			for _, d := range details {
				prompt, ok := prompts[d.ItemID]
				if !ok {
					prompt = fmt.Sprintf("item %d", d.ItemID)
				}
				view.Lines = append(view.Lines, reportLine{Prompt: prompt, Detail: d})
			}
			return rt.app.Render.Render(cmd.OutOrStdout(), "report", view)
		},
	}
}

func newReportsSubmitCommand(rt *runtime) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "submit <barcode>",
		Short: "Submit a completed checklist for a scanned machine",
		Long: "Submit a completed checklist. The responses file is YAML or JSON:\n\n" +
			"  - item: 1\n    status: OK\n  - item: 2\n    status: Not OK\n    note: belt frayed\n    photo: file:///photos/belt.jpg\n",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			session, err := rt.session(ctx)
			if err != nil {
				return err
			}
			responses, err := readResponses(file)
			if err != nil {
				return err
			}

			machine, found, err := rt.app.Repo.FindMachineByBarcode(ctx, args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("no machine with barcode %q", args[0])
			}

			res, err := rt.app.Repo.SubmitChecklist(ctx, checklist.Submission{
				MachineID:  machine.ID,
				OperatorID: session.UserID,
				Responses:  responses,
			})
			var incomplete *checklist.IncompleteError
			if errors.As(err, &incomplete) {
				return fmt.Errorf("checklist for %s is incomplete: %d item(s) need OK or Not OK", machine.Name, incomplete.Remaining)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "submitted report %d for %s (%d answers)\n", res.ReportID, machine.Name, len(res.DetailIDs))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Responses file (YAML or JSON)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// sortNewestFirst orders reports by inspection time, latest first.
func sortNewestFirst(reports []checklist.ChecklistReport) {
	slices.SortStableFunc(reports, func(a, b checklist.ChecklistReport) int {
		return b.InspectedAt.Compare(a.InspectedAt)
	})
}

func readResponses(path string) ([]checklist.Response, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read responses: %w", err)
	}
	var responses []checklist.Response
	if err := yaml.Unmarshal(data, &responses); err != nil {
		return nil, fmt.Errorf("parse responses %s: %w", path, err)
	}
	return responses, nil
}

// reportRows resolves machine and operator names for display.
func (rt *runtime) reportRows(ctx context.Context, reports []checklist.ChecklistReport) ([]reportRow, error) {
	machines, err := rt.app.Repo.ListMachines(ctx)
	if err != nil {
		return nil, err
	}
	users, err := rt.app.Auth.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	machineNames := make(map[int]string, len(machines))
	for _, m := range machines {
		machineNames[m.ID] = m.Name
	}
	userNames := make(map[int]string, len(users))
	for _, u := range users {
		userNames[u.ID] = u.FullName
	}

	rows := make([]reportRow, 0, len(reports))
	for _, r := range reports {
		row := reportRow{Report: r, Machine: machineNames[r.MachineID], Operator: userNames[r.OperatorID]}
		if row.Machine == "" {
			row.Machine = fmt.Sprintf("machine %d", r.MachineID)
		}
		if row.Operator == "" {
			row.Operator = fmt.Sprintf("user %d", r.OperatorID)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

type statsView struct {
	checklist.DashboardStats
	Supervisor bool
}

func newStatsCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Inspection dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			session, err := rt.session(ctx)
			if err != nil {
				return err
			}
			stats, err := rt.app.Repo.ComputeDashboardStats(ctx)
			if err != nil {
				return err
			}
			view := statsView{DashboardStats: stats, Supervisor: session.Role == auth.RoleSupervisor}
			return rt.app.Render.Render(cmd.OutOrStdout(), "stats", view)
		},
	}
}
