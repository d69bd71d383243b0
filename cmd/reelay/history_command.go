package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"reelay/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var recordPath string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent publish attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := history.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			var attempts []history.Attempt
			if recordPath != "" {
				attempts, err = store.AttemptsForRecord(cmd.Context(), recordPath)
			} else {
				attempts, err = store.RecentAttempts(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(attempts) == 0 {
				fmt.Fprintln(out, "No publish attempts recorded")
				return nil
			}

			rows := make([][]string, 0, len(attempts))
			for _, attempt := range attempts {
				outcome := "ok"
				if !attempt.Succeeded() {
					outcome = attempt.ErrKind
					if outcome == "" {
						outcome = "error"
					}
				}
				rows = append(rows, []string{
					attempt.StartedAt.Local().Format(time.DateTime),
					filepath.Base(attempt.RecordPath),
					attempt.Phase,
					outcome,
					attempt.MediaID,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Started", "Record", "Phase", "Outcome", "Media ID"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of attempts to show")
	cmd.Flags().StringVar(&recordPath, "record", "", "Show attempts for a single record file")
	return cmd
}
