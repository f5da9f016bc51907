package srt

import "time"

// DefaultSpeaker is assigned to cues that carry no speaker prefix.
const DefaultSpeaker = "Narrator"

// Segment is one timed line of dialogue extracted from a subtitle cue.
// Emotion, Tone, and Gender are synthesis hints and may be empty.
type Segment struct {
	Speaker string
	Text    string
	Start   time.Duration
	End     time.Duration
	Emotion string
	Tone    string
	Gender  string
}

// Window returns the duration of the cue's subtitle window.
func (s Segment) Window() time.Duration {
	if s.End <= s.Start {
		return 0
	}
	return s.End - s.Start
}
