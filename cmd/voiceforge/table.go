package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// renderTranscriptTable lays out the transcripts listing. The numeric columns
// are right-aligned; id and speakers read left to right.
func renderTranscriptTable(items []transcriptMetadata) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Transcript", "Segments", "Duration", "Speakers"})
	for _, meta := range items {
		tw.AppendRow(table.Row{
			meta.ID,
			meta.SegmentCount,
			fmt.Sprintf("%.2fs", meta.DurationSeconds),
			strings.Join(meta.Speakers, ", "),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
