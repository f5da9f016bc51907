package audio

import (
	"math"
	"testing"
	"time"
)

func TestSilenceDuration(t *testing.T) {
	clip := Silence(2*time.Second, 44100)
	if len(clip.Samples) != 88200 {
		t.Fatalf("sample count = %d, want 88200", len(clip.Samples))
	}
	if d := clip.Duration(); math.Abs(d.Seconds()-2) > 0.001 {
		t.Errorf("duration = %v, want 2s", d)
	}
	for i, s := range clip.Samples {
		if s != 0 {
			t.Fatalf("sample %d = %d, want silence", i, s)
		}
	}
}

func TestToneIsDeterministicAndBounded(t *testing.T) {
	a := Tone(440, 200*time.Millisecond, 44100)
	b := Tone(440, 200*time.Millisecond, 44100)
	if len(a.Samples) != len(b.Samples) {
		t.Fatalf("lengths differ: %d vs %d", len(a.Samples), len(b.Samples))
	}
	peak := 0
	for i := range a.Samples {
		if a.Samples[i] != b.Samples[i] {
			t.Fatalf("sample %d differs", i)
		}
		if abs := a.Samples[i]; abs < 0 {
			if -abs > peak {
				peak = -abs
			}
		} else if abs > peak {
			peak = abs
		}
	}
	if peak == 0 || peak > sampleMax {
		t.Errorf("peak = %d, want audible and within 16-bit range", peak)
	}
}

func TestOverlayExtendsBuffer(t *testing.T) {
	base := Silence(time.Second, 8000)
	clip := Tone(440, time.Second, 8000)
	base.Overlay(clip, 500*time.Millisecond)
	if d := base.Duration(); d < 1400*time.Millisecond {
		t.Fatalf("duration = %v, want >= 1.5s after overrun", d)
	}
}

func TestOverlayMixesAdditively(t *testing.T) {
	base := &Clip{Samples: []int{100, 100, 100, 100}, SampleRate: 4}
	over := &Clip{Samples: []int{25, 25}, SampleRate: 4}
	base.Overlay(over, time.Second/4)
	want := []int{100, 125, 125, 100}
	for i := range want {
		if base.Samples[i] != want[i] {
			t.Fatalf("samples = %v, want %v", base.Samples, want)
		}
	}
}

func TestOverlayClampsToSampleRange(t *testing.T) {
	base := &Clip{Samples: []int{sampleMax - 10}, SampleRate: 1}
	over := &Clip{Samples: []int{1000}, SampleRate: 1}
	base.Overlay(over, 0)
	if base.Samples[0] != sampleMax {
		t.Fatalf("sample = %d, want clamped to %d", base.Samples[0], sampleMax)
	}
}

func TestResample(t *testing.T) {
	clip := Tone(440, time.Second, 44100)
	down := clip.Resample(22050)
	if down.SampleRate != 22050 {
		t.Fatalf("rate = %d", down.SampleRate)
	}
	if math.Abs(down.Duration().Seconds()-1) > 0.01 {
		t.Errorf("resampled duration = %v, want ~1s", down.Duration())
	}
}

func TestFadesReachSilenceAtEdges(t *testing.T) {
	clip := Tone(440, 500*time.Millisecond, 44100)
	clip.FadeIn(40 * time.Millisecond)
	clip.FadeOut(80 * time.Millisecond)
	if clip.Samples[0] != 0 {
		t.Errorf("first sample = %d, want 0 after fade in", clip.Samples[0])
	}
	if last := clip.Samples[len(clip.Samples)-1]; last != 0 {
		t.Errorf("last sample = %d, want 0 after fade out", last)
	}
}
