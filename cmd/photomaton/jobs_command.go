package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List transform jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			jobs, err := client.Jobs(cmd.Context())
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs tracked.")
				return nil
			}

			rows := make([][]string, 0, len(jobs))
			for _, j := range jobs {
				detail := j.Error
				if detail == "" {
					detail = j.TransformedPath
				}
				elapsed := "-"
				if j.ElapsedMS > 0 {
					elapsed = fmt.Sprintf("%d ms", j.ElapsedMS)
				}
				rows = append(rows, []string{
					shortID(j.ID),
					shortID(j.PhotoID),
					orDash(j.Preset),
					statusLabel(j.Status),
					elapsed,
					orDash(detail),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Job", "Photo", "Preset", "Status", "Elapsed", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}
