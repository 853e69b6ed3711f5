package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

func newPresetsCommand(ctx *commandContext) *cobra.Command {
	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "Manage styling presets",
	}
	presetsCmd.AddCommand(newPresetsListCommand(ctx))
	presetsCmd.AddCommand(newPresetsImportCommand(ctx))
	return presetsCmd
}

func newPresetsListCommand(ctx *commandContext) *cobra.Command {
	var enabledOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			presets, err := client.Presets(cmd.Context(), enabledOnly)
			if err != nil {
				return err
			}
			if len(presets) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No presets configured.")
				return nil
			}

			rows := make([][]string, 0, len(presets))
			for _, p := range presets {
				enabled := "no"
				if p.Enabled {
					enabled = "yes"
				}
				rows = append(rows, []string{
					p.PresetID,
					p.Name,
					enabled,
					strconv.Itoa(p.OrderIndex),
					orDash(p.Description),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Name", "Enabled", "Order", "Description"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&enabledOnly, "enabled", false, "Only show enabled presets")
	return cmd
}

func newPresetsImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <export.json>",
		Short: "Import presets from an export document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open preset export: %w", err)
			}
			defer f.Close()

			summary, err := client.ImportPresets(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported presets: %d inserted, %d updated\n",
				summary.Inserted, summary.Updated)
			return nil
		},
	}
}
