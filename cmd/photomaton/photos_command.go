package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"photomaton/internal/api"
)

func newPhotosCommand(ctx *commandContext) *cobra.Command {
	photosCmd := &cobra.Command{
		Use:   "photos",
		Short: "Manage booth photos",
	}
	photosCmd.AddCommand(newPhotosListCommand(ctx))
	photosCmd.AddCommand(newPhotosUploadCommand(ctx))
	photosCmd.AddCommand(newPhotosDeleteCommand(ctx))
	return photosCmd
}

func newPhotosListCommand(ctx *commandContext) *cobra.Command {
	var owner, preset, status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List photos",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			photos, err := client.ListPhotos(cmd.Context(), api.PhotoQuery{
				Owner:  owner,
				Preset: preset,
				Status: status,
			})
			if err != nil {
				return err
			}
			if len(photos) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No photos found.")
				return nil
			}

			rows := make([][]string, 0, len(photos))
			for _, p := range photos {
				rows = append(rows, []string{
					shortID(p.ID),
					p.OwnerID,
					orDash(p.Preset),
					statusLabel(p.Status),
					orDash(p.Provider),
					humanBytes(p.SizeBytes),
					p.CreatedAt,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Owner", "Preset", "Status", "Provider", "Size", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Filter by owner")
	cmd.Flags().StringVar(&preset, "preset", "", "Filter by preset")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending, processing, completed, failed)")
	return cmd
}

func newPhotosUploadCommand(ctx *commandContext) *cobra.Command {
	var owner, preset string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			p, err := client.UploadPhoto(cmd.Context(), args[0], owner, preset)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s (%dx%d %s, %s)\n",
				p.ID, p.Width, p.Height, p.Format, humanBytes(p.SizeBytes))
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owner of the photo (required)")
	cmd.Flags().StringVar(&preset, "preset", "", "Styling preset to record on the photo")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newPhotosDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <photo-id>",
		Short: "Delete a photo and its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.DeletePhoto(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}
