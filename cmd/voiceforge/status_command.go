package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the state of a background job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if watch {
				return watchJob(cmd, client, args[0])
			}

			status, err := client.jobStatus(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:       %s\n", status.ID)
			fmt.Fprintf(out, "kind:     %s\n", status.Kind)
			fmt.Fprintf(out, "status:   %s\n", status.Status)
			fmt.Fprintf(out, "progress: %.2f%%\n", status.Progress)
			if status.Message != "" {
				fmt.Fprintf(out, "message:  %s\n", status.Message)
			}
			if status.Error != "" {
				fmt.Fprintf(out, "error:    %s\n", status.Error)
			}
			if status.DurationSeconds > 0 {
				fmt.Fprintf(out, "duration: %.2fs\n", status.DurationSeconds)
			}
			if status.TranscriptID != "" {
				fmt.Fprintf(out, "transcript: %s\n", status.TranscriptID)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Poll the job until it finishes")
	return cmd
}
