package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"reelay/internal/history"
	"reelay/internal/services/cloudinary"
)

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	var days int
	var destroyRemote bool
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete posted records older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := ctx.recordStore()
			if err != nil {
				return err
			}

			retention := days
			if retention <= 0 {
				retention = cfg.Scheduling.CleanupRetentionDays
			}
			cutoff := time.Now().AddDate(0, 0, -retention)

			var destroyer *cloudinary.Client
			if destroyRemote {
				destroyer, err = cloudinary.New(cfg)
				if err != nil {
					return err
				}
			}

			entries, _, err := store.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			removed := 0
			for _, entry := range entries {
				if !entry.Record.Posted {
					continue
				}
				postedAt, err := time.Parse(time.RFC3339, entry.Record.PostedAt)
				if err != nil || !postedAt.Before(cutoff) {
					continue
				}
				if dryRun {
					fmt.Fprintf(out, "Would remove %s (posted %s)\n", entry.Path, entry.Record.PostedAt)
					continue
				}
				if destroyer != nil {
					if publicID, ok := cloudinary.PublicIDFromURL(entry.Record.VideoURL); ok {
						if err := destroyer.Destroy(cmd.Context(), publicID); err != nil {
							fmt.Fprintf(cmd.ErrOrStderr(), "destroy %s: %v\n", publicID, err)
							continue
						}
					}
				}
				if err := store.Remove(cmd.Context(), entry.Path); err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %s\n", entry.Path)
				removed++
			}

			if !dryRun {
				hist, err := history.Open(cfg)
				if err != nil {
					return err
				}
				defer hist.Close()
				purged, err := hist.PurgeOlderThan(cmd.Context(), cutoff)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %d record(s), purged %d history row(s)\n", removed, purged)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Retention in days for posted records (default from config)")
	cmd.Flags().BoolVar(&destroyRemote, "destroy-remote", false, "Also delete the Cloudinary asset")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be removed without deleting")
	return cmd
}
