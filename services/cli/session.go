package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"checkround/services/auth"
)

func newSeedCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the demo machines, checklist items and users into an empty store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			out := cmd.OutOrStdout()

			machines, err := rt.app.Repo.SeedIfEmpty(ctx)
			if err != nil {
				return err
			}
			users, err := rt.app.Auth.SeedIfEmpty(ctx)
			if err != nil {
				return err
			}

			if machines {
				fmt.Fprintln(out, "seeded demo machines and checklist items")
			}
			if users {
				fmt.Fprintln(out, "seeded demo users")
			}
			if !machines && !users {
				fmt.Fprintln(out, "store already seeded")
			}
			return nil
		},
	}
}

func newLoginCommand(rt *runtime) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Sign in on this device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			if password == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}

			session, err := rt.app.Auth.Login(ctx, args[0], password)
			if err != nil {
				return err
			}
			return rt.app.Render.Render(cmd.OutOrStdout(), "session", session)
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "Password (read from stdin when omitted)")
	return cmd
}

func newLogoutCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out of this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.app.Auth.Logout(commandContext(cmd)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func newWhoamiCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := rt.session(commandContext(cmd))
			if err != nil {
				return err
			}
			return rt.app.Render.Render(cmd.OutOrStdout(), "session", session)
		},
	}
}

func newUsersCommand(rt *runtime) *cobra.Command {
	list := &cobra.Command{
		Use:   "list",
		Short: "List user accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			if _, err := rt.session(ctx, auth.RoleSupervisor); err != nil {
				return err
			}
			users, err := rt.app.Auth.ListUsers(ctx)
			if err != nil {
				return err
			}
			return rt.app.Render.Render(cmd.OutOrStdout(), "users", users)
		},
	}
	return group("users", "User accounts", list)
}
