package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arcade-catalog/internal/domain"
	"github.com/arcade-catalog/internal/filestore"
	"github.com/arcade-catalog/internal/service"
)

// newExportCmd creates the export command
func newExportCmd(opts *options) *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a backup of every game",
		Long: `Write a backup document ({"games": [...]}) of the whole catalog.

Without --output the backup is printed to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			backup, err := s.service.ExportBackup(cmd.Context())
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}

			if outputFile != "" {
				if err := filestore.WriteJSON(outputFile, backup); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d games to %s\n", len(backup.Games), outputFile)
				return nil
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(backup)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file")
	return cmd
}

// newRestoreCmd creates the restore command
func newRestoreCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup.json>",
		Short: "Upsert every game in a backup",
		Long: `Upsert every game in a backup file into the catalog.

The file may be a bare array of games or {"games": [...]}. Entries without
an id and title are skipped; missing slugs are derived from titles.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			games, err := readBackupFile(args[0])
			if err != nil {
				return err
			}

			s, err := opts.open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := s.service.RestoreBackup(cmd.Context(), games)
			if err != nil {
				return fmt.Errorf("restore: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d games\n", n)
			return nil
		},
	}
}

// newWipeCmd creates the wipe command
func newWipeCmd(opts *options) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Delete every game",
		Long: `Delete every game in the catalog. Genre mappings, settings and slug
redirects are left untouched. Requires --yes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete every game without --yes")
			}

			s, err := opts.open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := s.service.DeleteAllGames(cmd.Context())
			if err != nil {
				return fmt.Errorf("wipe: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d games\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}

// readBackupFile parses a backup document from disk
func readBackupFile(path string) ([]domain.Game, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	games, err := service.ParseBackup(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return games, nil
}
