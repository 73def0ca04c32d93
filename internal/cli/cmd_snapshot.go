package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arcade-catalog/internal/worker"
)

// newSnapshotCmd creates the snapshot command
func newSnapshotCmd(opts *options) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Write one rotated backup snapshot",
		Long: `Write backup-<stamp>.json into the snapshot directory and prune it to the
newest snapshot.keep files, exactly as the server's snapshot worker does.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			snapCfg := s.cfg.Snapshot
			if dir != "" {
				snapCfg.Dir = dir
			}
			if err := os.MkdirAll(snapCfg.Dir, 0o755); err != nil {
				return fmt.Errorf("create snapshot dir: %w", err)
			}

			path, err := worker.NewSnapshotWorker(s.service, &snapCfg, s.logger).RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "override snapshot.dir")
	return cmd
}
