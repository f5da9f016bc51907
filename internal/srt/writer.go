package srt

import (
	"strconv"
	"strings"
)

// Compose renders segments as SRT text, embedding emotion/tone/gender hints in
// the speaker prefix so the parser recovers them on re-parse.
func Compose(segments []Segment) string {
	var b strings.Builder
	for i, seg := range segments {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString("\n")
		b.WriteString(formatTimestamp(seg.Start))
		b.WriteString(" --> ")
		b.WriteString(formatTimestamp(seg.End))
		b.WriteString("\n")
		b.WriteString(speakerPrefix(seg))
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(seg.Text))
		b.WriteString("\n")
	}
	return b.String()
}

func speakerPrefix(seg Segment) string {
	speaker := strings.TrimSpace(seg.Speaker)
	if speaker == "" {
		speaker = DefaultSpeaker
	}
	parts := []string{speaker}
	if seg.Emotion != "" {
		parts = append(parts, "emotion="+seg.Emotion)
	}
	if seg.Tone != "" {
		parts = append(parts, "tone="+seg.Tone)
	}
	if seg.Gender != "" {
		parts = append(parts, "gender="+seg.Gender)
	}
	return strings.Join(parts, "|")
}
