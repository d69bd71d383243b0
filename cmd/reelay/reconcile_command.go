package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelay/internal/history"
	"reelay/internal/logging"
	"reelay/internal/notifications"
	"reelay/internal/reconciler"
	"reelay/internal/runlock"
	"reelay/internal/services/instagram"
)

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	var recordPath string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Publish every due reel (the cron entry point)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := ctx.recordStore()
			if err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}

			lock := runlock.New(cfg.LockPath())
			if err := lock.TryLock(); err != nil {
				return err
			}
			defer lock.Unlock()

			client, err := instagram.New(cfg)
			if err != nil {
				return err
			}

			hist, err := history.Open(cfg)
			if err != nil {
				return err
			}
			defer hist.Close()

			rec, err := reconciler.New(store, client, hist, notifications.NewService(cfg),
				reconciler.WithLogger(logger))
			if err != nil {
				return err
			}

			if recordPath != "" {
				if err := rec.RunOne(cmd.Context(), recordPath); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Published %s\n", recordPath)
				return nil
			}

			summary, err := rec.Run(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Posted %d, failed %d, already posted %d, future %d, invalid %d\n",
				summary.Posted, summary.Failed, summary.Skipped, summary.Future, summary.Invalid)
			if summary.Failed > 0 {
				return fmt.Errorf("%d record(s) failed to publish", summary.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&recordPath, "record", "", "Publish a single record file regardless of schedule")
	return cmd
}
