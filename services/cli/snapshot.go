package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"checkround/services/auth"
	"checkround/services/snapshot"
)

func newSnapshotCommand(rt *runtime) *cobra.Command {
	return group("snapshot", "Move the local store between devices as a signed archive",
		newSnapshotExportCommand(rt),
		newSnapshotImportCommand(rt),
		newSnapshotVerifyCommand(rt),
		newSnapshotKeygenCommand(),
	)
}

func (rt *runtime) signer() (*snapshot.Signer, error) {
	return snapshot.NewSigner(snapshot.Keys{
		SecretKey: rt.app.Config.AgeSecretKey,
		PublicKey: rt.app.Config.AgePublicKey,
	})
}

func newSnapshotExportCommand(rt *runtime) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every container except the session to a signed tar.zst",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			if _, err := rt.session(ctx, auth.RoleSupervisor); err != nil {
				return err
			}
			signer, err := rt.signer()
			if err != nil {
				return err
			}
			_, err = snapshot.Export(ctx, snapshot.ExportConfig{
				Backend: rt.app.Backend,
				Output:  output,
				Signer:  signer,
				Exclude: []string{string(auth.SessionContainer)},
				Stdout:  cmd.OutOrStdout(),
			})
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "checkround-snapshot.tar.zst", "Archive to write")
	return cmd
}

func newSnapshotImportCommand(rt *runtime) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the local store with a verified snapshot, keeping the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			signer, err := rt.signer()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			_, err = snapshot.Import(ctx, snapshot.ImportConfig{
				Backend:    rt.app.Backend,
				BundlePath: file,
				Signer:     signer,
				Keep:       []string{string(auth.SessionContainer)},
				Stdout:     cmd.OutOrStdout(),
			})
			if err != nil {
				return err
			}
			dropped, err := rt.app.Auth.DropStaleSession(ctx)
			if err != nil {
				return err
			}
			if dropped {
				fmt.Fprintln(cmd.OutOrStdout(), "signed out: the current user is not in the snapshot")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Archive to restore")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newSnapshotVerifyCommand(rt *runtime) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a snapshot's signature and list its containers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			signer, err := rt.signer()
			if err != nil {
				return err
			}
			manifest, err := snapshot.Inspect(commandContext(cmd), file, signer)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "snapshot signed at %s by %s\n", manifest.CreatedAt.Format("2006-01-02 15:04:05 MST"), manifest.SigningPublicKey)
			for _, c := range manifest.Containers {
				fmt.Fprintf(out, "  %s\t%d bytes\n", c.Key, c.Size)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Archive to check")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newSnapshotKeygenCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "keygen",
		Short:       "Print a new signing key pair as environment assignments",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipApp: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := snapshot.GenerateKeys()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "AGE_SECRET_KEY=%s\nAGE_PUBLIC_KEY=%s\n", keys.SecretKey, keys.PublicKey)
			return nil
		},
	}
}
