package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var rolesPath string
	var watch bool

	cmd := &cobra.Command{
		Use:   "generate <file.srt>",
		Short: "Submit a subtitle file for multi-voice audio generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if rolesPath == "" {
				return errors.New("--roles is required")
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}

			var accepted struct {
				JobID string `json:"job_id"`
			}
			if err := client.upload("/api/generate", args[0], "config", rolesPath, &accepted); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "job %s queued\n", accepted.JobID)

			if !watch {
				return nil
			}
			return watchJob(cmd, client, accepted.JobID)
		},
	}

	cmd.Flags().StringVar(&rolesPath, "roles", "", "Path to the role configuration JSON")
	cmd.Flags().BoolVar(&watch, "watch", false, "Poll the job until it finishes")
	return cmd
}

func watchJob(cmd *cobra.Command, client *apiClient, jobID string) error {
	final, err := client.waitForJob(jobID, time.Second, func(status jobStatus) {
		fmt.Fprintf(cmd.OutOrStdout(), "%-10s %6.2f%%  %s\n", status.Status, status.Progress, status.Message)
	})
	if err != nil {
		return err
	}
	if final.Status == "failed" {
		return fmt.Errorf("job %s failed: %s", jobID, final.Error)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "completed: %.2fs of audio, download with 'voiceforge fetch %s'\n",
		final.DurationSeconds, jobID)
	return nil
}
