package srt

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	timestampLine = regexp.MustCompile(
		`^(\d{2}:\d{2}:\d{2}[,.]\d{3})\s+-->\s+(\d{2}:\d{2}:\d{2}[,.]\d{3})`)
	blockSeparator = regexp.MustCompile(`\n\s*\n`)
)

// Parse extracts dialogue segments from raw SRT content in source order.
//
// Blocks are separated by blank lines. A block needs an index line, a
// timestamp line, and at least one text line; anything structurally malformed
// is skipped without failing the parse. An empty result is not an error here:
// callers decide whether zero segments is acceptable.
func Parse(content string) []Segment {
	var segments []Segment

	blocks := splitBlocks(content)
	for _, block := range blocks {
		lines := nonEmptyLines(block)
		if len(lines) < 2 {
			continue
		}
		if _, err := strconv.Atoi(strings.TrimSpace(lines[0])); err != nil {
			continue
		}
		match := timestampLine.FindStringSubmatch(lines[1])
		if match == nil {
			continue
		}
		start, err := parseTimestamp(match[1])
		if err != nil {
			continue
		}
		end, err := parseTimestamp(match[2])
		if err != nil {
			continue
		}
		textLines := lines[2:]
		if len(textLines) == 0 {
			continue
		}

		seg := Segment{Speaker: DefaultSpeaker, Start: start, End: end}
		speaker, remainder, meta, ok := splitSpeaker(textLines[0])
		if ok {
			seg.Speaker = speaker
			seg.Emotion = meta.emotion
			seg.Tone = meta.tone
			seg.Gender = meta.gender
			textLines[0] = remainder
		}
		seg.Text = strings.TrimSpace(strings.Join(textLines, " "))
		if seg.Text == "" {
			continue
		}
		segments = append(segments, seg)
	}
	return segments
}

type speakerMeta struct {
	emotion string
	tone    string
	gender  string
}

// splitSpeaker extracts the speaker prefix from the first text line. The
// pre-colon token may carry pipe-separated key=value hints after the name.
// No colon, an empty name, or an empty remainder leaves the cue to Narrator.
func splitSpeaker(line string) (speaker, remainder string, meta speakerMeta, ok bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", speakerMeta{}, false
	}
	token := strings.TrimSpace(line[:idx])
	remainder = strings.TrimSpace(line[idx+1:])
	if token == "" || remainder == "" {
		return "", "", speakerMeta{}, false
	}

	parts := strings.Split(token, "|")
	name := strings.TrimSpace(parts[0])
	if name == "" {
		return "", "", speakerMeta{}, false
	}
	for _, part := range parts[1:] {
		key, value, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "emotion":
			meta.emotion = value
		case "tone":
			meta.tone = value
		case "gender":
			meta.gender = value
		}
	}
	return name, remainder, meta, true
}

func splitBlocks(content string) []string {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	return blockSeparator.Split(strings.TrimSpace(normalized), -1)
}

func nonEmptyLines(block string) []string {
	var lines []string
	for _, line := range strings.Split(block, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}
