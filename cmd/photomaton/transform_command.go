package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"photomaton/internal/api"
)

func newTransformCommand(ctx *commandContext) *cobra.Command {
	var preset, provider string
	var wait bool

	cmd := &cobra.Command{
		Use:   "transform <photo-id>",
		Short: "Request a styling transform for a photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			result, err := client.Transform(cmd.Context(), args[0], api.TransformRequest{
				Preset:   preset,
				Provider: provider,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if result.AlreadyCompleted {
				fmt.Fprintf(out, "Photo already styled: %s\n", result.TransformedPath)
				return nil
			}
			fmt.Fprintf(out, "Queued job %s\n", result.JobID)
			if !wait {
				return nil
			}

			for {
				select {
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				case <-time.After(250 * time.Millisecond):
				}
				job, err := client.Job(cmd.Context(), result.JobID)
				if err != nil {
					return err
				}
				switch job.Status {
				case "completed":
					fmt.Fprintf(out, "Completed in %d ms: %s\n", job.ElapsedMS, job.TransformedPath)
					return nil
				case "failed":
					return fmt.Errorf("transform failed: %s", job.Error)
				}
			}
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "", "Override the photo's preset")
	cmd.Flags().StringVar(&provider, "provider", "", "Use a specific provider")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the job to finish")
	return cmd
}
