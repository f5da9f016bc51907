package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var providerPath string
	var showSRT bool

	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe an audio file into a speaker-tagged SRT transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			var result transcribeResult
			if err := client.upload("/api/transcribe", args[0], "provider", providerPath, &result); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "transcript %s: %d segments, %.2fs\n",
				result.TranscriptID, result.Metadata.SegmentCount, result.Metadata.DurationSeconds)
			if showSRT {
				fmt.Fprintln(out, result.SRT)
			} else {
				fmt.Fprintf(out, "download with 'voiceforge transcripts download %s'\n", result.TranscriptID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&providerPath, "provider", "", "Path to recognition provider JSON (omit for the offline mock)")
	cmd.Flags().BoolVar(&showSRT, "print", false, "Print the SRT text to stdout")
	return cmd
}
