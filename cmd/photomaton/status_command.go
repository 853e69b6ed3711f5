package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			running := "stopped"
			if status.Running {
				running = fmt.Sprintf("running (pid %d)", status.PID)
			}
			fmt.Fprintf(out, "Daemon:    %s\n", running)
			fmt.Fprintf(out, "Provider:  %s (available: %s)\n",
				orDash(status.CurrentProvider), orDash(strings.Join(status.Providers, ", ")))
			fmt.Fprintf(out, "Queue:     %d waiting\n", status.QueueDepth)
			fmt.Fprintf(out, "Database:  %s\n", status.DatabasePath)
			fmt.Fprintf(out, "Storage:   %d photos, %d files, %s used",
				status.Storage.Photos, status.Storage.Files, humanBytes(status.Storage.Bytes))
			if status.Storage.FreeBytes > 0 {
				fmt.Fprintf(out, ", %s free", humanBytes(int64(status.Storage.FreeBytes)))
			}
			fmt.Fprintln(out)
			if status.Storage.TrashEntries > 0 {
				fmt.Fprintf(out, "Trash:     %d entries\n", status.Storage.TrashEntries)
			}

			if len(status.PhotoCounts) > 0 {
				statuses := make([]string, 0, len(status.PhotoCounts))
				for st := range status.PhotoCounts {
					statuses = append(statuses, st)
				}
				sort.Strings(statuses)
				parts := make([]string, 0, len(statuses))
				for _, st := range statuses {
					parts = append(parts, fmt.Sprintf("%s %d", st, status.PhotoCounts[st]))
				}
				fmt.Fprintf(out, "Photos:    %s\n", strings.Join(parts, ", "))
			}
			return nil
		},
	}
}
