package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// newRedirectsCmd creates the redirects command group
func newRedirectsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "redirects",
		Short: "Inspect and maintain historical slug redirects",
	}

	cmd.AddCommand(newRedirectsListCmd(opts))
	cmd.AddCommand(newRedirectsDeleteCmd(opts))
	cmd.AddCommand(newRedirectsBackfillCmd(opts))
	return cmd
}

func newRedirectsListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every redirect with its target's current slug",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			items, err := s.service.ListRedirects(cmd.Context())
			if err != nil {
				return fmt.Errorf("list redirects: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "OLD SLUG\tGAME\tCURRENT SLUG\tTITLE")
			for _, r := range items {
				current, title := "-", "(missing)"
				if r.CurrentSlug != nil {
					current = *r.CurrentSlug
				}
				if r.Title != nil {
					title = *r.Title
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.OldSlug, r.GameID, current, title)
			}
			return w.Flush()
		},
	}
}

func newRedirectsDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <old-slug>",
		Short: "Delete one redirect",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.service.DeleteRedirect(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("delete redirect %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted redirect %s\n", args[0])
			return nil
		},
	}
}

func newRedirectsBackfillCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "backfill <old-backup.json>",
		Short: "Create redirects for slugs that changed since an older backup",
		Args:  cobra.ExactArgs(1),
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

			result, err := s.service.BackfillRedirects(cmd.Context(), games)
			if err != nil {
				return fmt.Errorf("backfill: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %d redirects\n", result.Created)
			return nil
		},
	}
}
