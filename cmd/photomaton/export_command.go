package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"photomaton/internal/api"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var owner, preset, from, to, output string
	var originals, estimateOnly bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export styled photos as a ZIP archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			query := api.ExportQuery{
				Owner:            owner,
				Preset:           preset,
				From:             from,
				To:               to,
				IncludeOriginals: originals,
			}

			estimate, err := client.ExportEstimate(cmd.Context(), query)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Export covers %d photos (%s)\n",
				estimate.Count, humanBytes(estimate.TotalBytes))
			if estimateOnly {
				return nil
			}

			target := output
			if target == "" {
				target = fmt.Sprintf("photomaton-export-%s.zip", time.Now().UTC().Format("20060102-150405"))
			}
			f, err := os.Create(target)
			if err != nil {
				return fmt.Errorf("create archive file: %w", err)
			}
			defer f.Close()

			written, err := client.Export(cmd.Context(), query, f)
			if err != nil {
				os.Remove(target)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s)\n", target, humanBytes(written))
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Filter by owner")
	cmd.Flags().StringVar(&preset, "preset", "", "Filter by preset")
	cmd.Flags().StringVar(&from, "from", "", "Only photos created at or after this RFC3339 time")
	cmd.Flags().StringVar(&to, "to", "", "Only photos created before this RFC3339 time")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Archive file path")
	cmd.Flags().BoolVar(&originals, "originals", false, "Include unstyled originals")
	cmd.Flags().BoolVar(&estimateOnly, "estimate", false, "Only show the estimate")
	return cmd
}
