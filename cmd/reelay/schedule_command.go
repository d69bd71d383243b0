package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"reelay/internal/schedule"
)

func newScheduleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Show the next post time and a matching cron line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := ctx.recordStore()
			if err != nil {
				return err
			}

			entries, _, err := store.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			next, ok := schedule.NextPostTime(entries, time.Now(), store.Location())
			if !ok {
				fmt.Fprintln(out, "No pending posts")
				return nil
			}

			fmt.Fprintf(out, "Next post scheduled for %s\n", next.In(store.Location()).Format(time.RFC1123))
			fmt.Fprintf(out, "Suggested cron (UTC): %s\n", schedule.CronExpression(next))
			return nil
		},
	}
}
