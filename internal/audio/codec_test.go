package audio

import (
	"errors"
	"math"
	"testing"
	"time"

	"voiceforge/internal/services"
)

func TestEncodeDecodeWAVRoundTrip(t *testing.T) {
	original := Tone(440, 300*time.Millisecond, 22050)
	encoded, err := EncodeWAV(original)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	if !IsWAV(encoded) {
		t.Fatal("encoded payload should carry a RIFF/WAVE header")
	}

	decoded, err := Decode(encoded, FormatWAV)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.SampleRate != 22050 {
		t.Errorf("sample rate = %d, want 22050", decoded.SampleRate)
	}
	if len(decoded.Samples) != len(original.Samples) {
		t.Fatalf("sample count = %d, want %d", len(decoded.Samples), len(original.Samples))
	}
	for i := range original.Samples {
		if decoded.Samples[i] != original.Samples[i] {
			t.Fatalf("sample %d = %d, want %d", i, decoded.Samples[i], original.Samples[i])
		}
	}
}

func TestDecodeEmptyPayload(t *testing.T) {
	_, err := Decode(nil, FormatMP3)
	if !errors.Is(err, services.ErrComposition) {
		t.Fatalf("expected composition error, got %v", err)
	}
}

func TestDetectFormatSniffsRIFF(t *testing.T) {
	wavBytes, err := EncodeWAV(Tone(220, 50*time.Millisecond, 8000))
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	// Declared mp3, but the header says wav: the sniff wins.
	if got := DetectFormat(wavBytes, FormatMP3); got != FormatWAV {
		t.Errorf("DetectFormat = %q, want wav", got)
	}
	if got := DetectFormat([]byte{0xFF, 0xFB, 0x90, 0x00}, ""); got != FormatMP3 {
		t.Errorf("DetectFormat = %q, want mp3 for unlabeled frames", got)
	}
	if got := DetectFormat(nil, "audio/wav"); got != FormatWAV {
		t.Errorf("DetectFormat = %q, want wav for declared content type", got)
	}
}

func TestNormalizeFormat(t *testing.T) {
	tests := map[string]string{
		"WAV":        FormatWAV,
		"audio/wav":  FormatWAV,
		"audio/mpeg": FormatMP3,
		" mp3 ":      FormatMP3,
		"":           "",
	}
	for in, want := range tests {
		if got := NormalizeFormat(in); got != want {
			t.Errorf("NormalizeFormat(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDownmixAverage(t *testing.T) {
	clip := downmix([]int{100, 200, 300, 500}, 2, 8000)
	if len(clip.Samples) != 2 {
		t.Fatalf("frames = %d, want 2", len(clip.Samples))
	}
	if clip.Samples[0] != 150 || clip.Samples[1] != 400 {
		t.Errorf("samples = %v, want [150 400]", clip.Samples)
	}
}

func TestDurationMath(t *testing.T) {
	clip := &Clip{Samples: make([]int, 44100), SampleRate: 44100}
	if d := clip.Duration(); math.Abs(d.Seconds()-1) > 0.0001 {
		t.Errorf("duration = %v, want 1s", d)
	}
}
