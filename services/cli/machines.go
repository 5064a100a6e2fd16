package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"checkround/services/auth"
	"checkround/services/checklist"
)

type itemsView struct {
	Machine checklist.Machine
	Items   []checklist.ChecklistItem
}

func newMachinesCommand(rt *runtime) *cobra.Command {
	return group("machines", "Machines subject to inspection",
		newMachinesListCommand(rt),
		newMachinesFindCommand(rt),
		newMachinesAddCommand(rt),
	)
}

func newMachinesListCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List machines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			if _, err := rt.session(ctx); err != nil {
				return err
			}
			machines, err := rt.app.Repo.ListMachines(ctx)
			if err != nil {
				return err
			}
			return rt.app.Render.Render(cmd.OutOrStdout(), "machines", machines)
		},
	}
}

func newMachinesFindCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "find <barcode>",
		Short: "Look up a scanned barcode and show the machine's checklist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			if _, err := rt.session(ctx); err != nil {
				return err
			}
			machine, found, err := rt.app.Repo.FindMachineByBarcode(ctx, args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("no machine with barcode %q", args[0])
			}
			items, err := rt.app.Repo.ListChecklistItems(ctx, machine.ID)
			if err != nil {
				return err
			}
			return rt.app.Render.Render(cmd.OutOrStdout(), "items", itemsView{Machine: machine, Items: items})
		},
	}
}

func newMachinesAddCommand(rt *runtime) *cobra.Command {
	var in checklist.NewMachine

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			if _, err := rt.session(ctx, auth.RoleSupervisor); err != nil {
				return err
			}
			machine, err := rt.app.Repo.AddMachine(ctx, in)
			if err != nil {
				return err
			}
			return rt.app.Render.Render(cmd.OutOrStdout(), "machines", []checklist.Machine{machine})
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&in.Barcode, "barcode", "", "Barcode printed on the machine")
	cmd.Flags().StringVar(&in.Location, "location", "", "Location label")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("barcode")
	return cmd
}

func newItemsCommand(rt *runtime) *cobra.Command {
	list := &cobra.Command{
		Use:   "list <machine-id>",
		Short: "Show a machine's checklist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			if _, err := rt.session(ctx); err != nil {
				return err
			}
			machineID, err := parseID(args[0], "machine")
			if err != nil {
				return err
			}
			machine, found, err := rt.app.Repo.GetMachine(ctx, machineID)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("%w: id %d", checklist.ErrMachineNotFound, machineID)
			}
			items, err := rt.app.Repo.ListChecklistItems(ctx, machineID)
			if err != nil {
				return err
			}
			return rt.app.Render.Render(cmd.OutOrStdout(), "items", itemsView{Machine: machine, Items: items})
		},
	}

	var in checklist.NewItem
	add := &cobra.Command{
		Use:   "add <machine-id>",
		Short: "Append a question to a machine's checklist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			if _, err := rt.session(ctx, auth.RoleSupervisor); err != nil {
				return err
			}
			machineID, err := parseID(args[0], "machine")
			if err != nil {
				return err
			}
			in.MachineID = machineID
			item, err := rt.app.Repo.AddChecklistItem(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added item %d at position %d\n", item.ID, item.Ordinal)
			return nil
		},
	}
	add.Flags().StringVar(&in.Prompt, "prompt", "", "What the operator checks")
	add.Flags().IntVar(&in.Ordinal, "ordinal", 0, "Position in the checklist (default: last)")
	_ = add.MarkFlagRequired("prompt")

	return group("items", "Checklist items", list, add)
}
