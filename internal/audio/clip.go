package audio

import (
	"math"
	"time"
)

// Clip is a mono PCM buffer with 16-bit sample values.
type Clip struct {
	Samples    []int
	SampleRate int
}

const (
	sampleMax = 32767
	sampleMin = -32768
)

// Duration returns the clip length.
func (c *Clip) Duration() time.Duration {
	if c == nil || c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(c.Samples)) / float64(c.SampleRate) * float64(time.Second))
}

// Silence allocates a zeroed clip of the requested length.
func Silence(d time.Duration, sampleRate int) *Clip {
	n := int(math.Round(d.Seconds() * float64(sampleRate)))
	if n < 0 {
		n = 0
	}
	return &Clip{Samples: make([]int, n), SampleRate: sampleRate}
}

// Tone synthesizes a sine wave at the given frequency.
func Tone(freq float64, d time.Duration, sampleRate int) *Clip {
	clip := Silence(d, sampleRate)
	step := 2 * math.Pi * freq / float64(sampleRate)
	for i := range clip.Samples {
		clip.Samples[i] = int(math.Round(math.Sin(step*float64(i)) * 0.6 * sampleMax))
	}
	return clip
}

// Gain applies a decibel gain in place.
func (c *Clip) Gain(db float64) {
	factor := math.Pow(10, db/20)
	for i, s := range c.Samples {
		c.Samples[i] = clampSample(int(math.Round(float64(s) * factor)))
	}
}

// FadeIn ramps the first d of the clip linearly from silence.
func (c *Clip) FadeIn(d time.Duration) {
	n := c.sampleCount(d)
	for i := 0; i < n && i < len(c.Samples); i++ {
		c.Samples[i] = c.Samples[i] * i / n
	}
}

// FadeOut ramps the final d of the clip linearly to silence.
func (c *Clip) FadeOut(d time.Duration) {
	n := c.sampleCount(d)
	total := len(c.Samples)
	for i := 0; i < n && i < total; i++ {
		idx := total - 1 - i
		c.Samples[idx] = c.Samples[idx] * i / n
	}
}

// Overlay mixes other into c starting at the given offset, extending c when
// the overlaid clip runs past its end. Mixing is additive with clipping
// protection, so overlapping material stays audible.
func (c *Clip) Overlay(other *Clip, offset time.Duration) {
	if other == nil || len(other.Samples) == 0 {
		return
	}
	src := other
	if other.SampleRate != c.SampleRate {
		src = other.Resample(c.SampleRate)
	}
	start := c.sampleCount(offset)
	if need := start + len(src.Samples); need > len(c.Samples) {
		grown := make([]int, need)
		copy(grown, c.Samples)
		c.Samples = grown
	}
	for i, s := range src.Samples {
		c.Samples[start+i] = clampSample(c.Samples[start+i] + s)
	}
}

// Resample converts the clip to a new rate using linear interpolation. The
// receiver is returned unchanged when the rate already matches.
func (c *Clip) Resample(rate int) *Clip {
	if rate <= 0 || rate == c.SampleRate || len(c.Samples) == 0 {
		return c
	}
	ratio := float64(c.SampleRate) / float64(rate)
	n := int(float64(len(c.Samples)) / ratio)
	out := &Clip{Samples: make([]int, n), SampleRate: rate}
	for i := range out.Samples {
		pos := float64(i) * ratio
		left := int(pos)
		if left >= len(c.Samples)-1 {
			out.Samples[i] = c.Samples[len(c.Samples)-1]
			continue
		}
		frac := pos - float64(left)
		out.Samples[i] = int(float64(c.Samples[left])*(1-frac) + float64(c.Samples[left+1])*frac)
	}
	return out
}

func (c *Clip) sampleCount(d time.Duration) int {
	n := int(math.Round(d.Seconds() * float64(c.SampleRate)))
	if n < 0 {
		return 0
	}
	return n
}

func clampSample(v int) int {
	if v > sampleMax {
		return sampleMax
	}
	if v < sampleMin {
		return sampleMin
	}
	return v
}
