package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"checkround/services/auth"
	"checkround/services/cli/internal/config"
)

// skipApp marks commands that run without opening the store.
const skipApp = "checkround/skip-app"

type runtime struct {
	overrides config.Overrides
	logOut    io.Writer
	app       *App
}

// Run executes the command tree with args, writing command output to
// stdout and logs to logOut. The store is closed before Run returns.
func Run(ctx context.Context, args []string, stdout, logOut io.Writer) error {
	cmd, rt := newRootCommand(logOut)
	cmd.SetArgs(args)
	if stdout != nil {
		cmd.SetOut(stdout)
	}
	err := cmd.ExecuteContext(ctx)
	if cerr := rt.close(ctx); err == nil {
		err = cerr
	}
	return err
}

func newRootCommand(logOut io.Writer) (*cobra.Command, *runtime) {
	if logOut == nil {
		logOut = os.Stderr
	}
	rt := &runtime{logOut: logOut}

	cmd := &cobra.Command{
		Use:           "checkround",
		Short:         "Machine inspection checklists on a local store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipApp] != "" {
				return nil
			}
			ctx := commandContext(cmd)
			cfg, err := config.Load(ctx, rt.overrides)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			rt.app, err = Open(ctx, cfg, rt.logOut)
			return err
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&rt.overrides.Backend, "backend", "", "Storage backend: badger or sqlite (env CHECKROUND_BACKEND)")
	flags.StringVar(&rt.overrides.DataDir, "data-dir", "", "Directory holding the local store (env CHECKROUND_DATA_DIR)")
	flags.StringVar(&rt.overrides.LogLevel, "log-level", "", "Log level (env CHECKROUND_LOG_LEVEL)")

	cmd.AddCommand(
		newSeedCommand(rt),
		newLoginCommand(rt),
		newLogoutCommand(rt),
		newWhoamiCommand(rt),
		newMachinesCommand(rt),
		newItemsCommand(rt),
		newReportsCommand(rt),
		newStatsCommand(rt),
		newUsersCommand(rt),
		newSnapshotCommand(rt),
	)
	return cmd, rt
}

func (rt *runtime) close(ctx context.Context) error {
	if rt.app == nil {
		return nil
	}
	err := rt.app.Close(ctx)
	rt.app = nil
	return err
}

// session returns the signed-in user, enforcing roles when given.
func (rt *runtime) session(ctx context.Context, roles ...auth.Role) (auth.Session, error) {
	s, err := rt.app.Auth.RequireSession(ctx)
	if err != nil {
		return auth.Session{}, err
	}
	if len(roles) > 0 {
		if err := auth.RequireRole(s, roles...); err != nil {
			return auth.Session{}, err
		}
	}
	return s, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func parseID(raw, what string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, raw)
	}
	return id, nil
}

func group(use, short string, children ...*cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:         use,
		Short:       short,
		Annotations: map[string]string{skipApp: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(children...)
	return cmd
}
