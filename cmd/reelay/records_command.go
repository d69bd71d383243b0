package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

func newRecordsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "records",
		Short: "List scheduled reels and their state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := ctx.recordStore()
			if err != nil {
				return err
			}

			entries, problems, err := store.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 && len(problems) == 0 {
				fmt.Fprintln(out, "No records found")
				return nil
			}

			now := time.Now()
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				scheduled := entry.Record.ScheduledTime
				if ts, err := entry.Record.ScheduledAt(store.Location()); err == nil {
					scheduled = ts.In(store.Location()).Format("2006-01-02 15:04 MST")
				}
				rows = append(rows, []string{
					filepath.Base(entry.Path),
					scheduled,
					string(entry.Record.State(now, store.Location())),
					yesNo(entry.Record.Posted),
					entry.Record.PostedAt,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Record", "Scheduled", "State", "Posted", "Posted At"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))

			for _, problem := range problems {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %v\n", problem.Path, problem.Err)
			}
			if len(problems) > 0 {
				return fmt.Errorf("%d record file(s) could not be read", len(problems))
			}
			return nil
		},
	}
}
