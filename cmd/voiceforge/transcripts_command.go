package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newTranscriptsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcripts",
		Short: "Inspect stored transcripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newTranscriptsListCommand(ctx))
	cmd.AddCommand(newTranscriptsShowCommand(ctx))
	cmd.AddCommand(newTranscriptsDownloadCommand(ctx))
	cmd.AddCommand(newTranscriptsGenerateCommand(ctx))
	return cmd
}

func newTranscriptsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored transcripts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var listed struct {
				Transcripts []transcriptMetadata `json:"transcripts"`
			}
			if err := client.getJSON("/api/transcripts", &listed); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(listed.Transcripts) == 0 {
				fmt.Fprintln(out, "no transcripts")
				return nil
			}
			fmt.Fprintln(out, renderTranscriptTable(listed.Transcripts))
			return nil
		},
	}
}

func newTranscriptsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <transcript-id>",
		Short: "Show transcript metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var meta transcriptMetadata
			if err := client.getJSON("/api/transcripts/"+args[0], &meta); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:       %s\n", meta.ID)
			if meta.OriginalFilename != "" {
				fmt.Fprintf(out, "source:   %s\n", meta.OriginalFilename)
			}
			fmt.Fprintf(out, "segments: %d\n", meta.SegmentCount)
			fmt.Fprintf(out, "speakers: %s\n", strings.Join(meta.Speakers, ", "))
			fmt.Fprintf(out, "duration: %.2fs\n", meta.DurationSeconds)
			fmt.Fprintf(out, "created:  %s\n", meta.CreatedAt)
			return nil
		},
	}
}

func newTranscriptsDownloadCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "download <transcript-id>",
		Short: "Download a transcript as an SRT file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if outputPath == "" {
				outputPath = args[0] + ".srt"
			}
			if err := client.download("/api/transcripts/"+args[0]+"/download", outputPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", outputPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default <transcript-id>.srt)")
	return cmd
}

func newTranscriptsGenerateCommand(ctx *commandContext) *cobra.Command {
	var rolesPath string
	var watch bool

	cmd := &cobra.Command{
		Use:   "generate <transcript-id>",
		Short: "Re-synthesize a stored transcript as a new generation job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if rolesPath == "" {
				return errors.New("--roles is required")
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			rolesJSON, err := os.ReadFile(rolesPath)
			if err != nil {
				return fmt.Errorf("read %s: %w", rolesPath, err)
			}

			var accepted struct {
				JobID string `json:"job_id"`
			}
			if err := client.postJSON("/api/transcripts/"+args[0]+"/generate", rolesJSON, &accepted); err != nil {
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
