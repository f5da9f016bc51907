package ffmpeg

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTranscodeFileArgs(t *testing.T) {
	tr := NewTranscoder("")
	var gotName string
	var gotArgs []string
	tr.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		gotName = name
		gotArgs = args
		return nil
	})

	if err := tr.TranscodeFile(context.Background(), "in.wav", "out.mp3"); err != nil {
		t.Fatalf("TranscodeFile: %v", err)
	}
	if gotName != DefaultBinary {
		t.Errorf("binary = %q, want %q", gotName, DefaultBinary)
	}
	joined := strings.Join(gotArgs, " ")
	for _, want := range []string{"-i in.wav", "libmp3lame", "out.mp3"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %q missing %q", joined, want)
		}
	}
}

func TestTranscodeBytesWritesTempInput(t *testing.T) {
	tr := NewTranscoder("ffmpeg-custom")
	tr.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		if name != "ffmpeg-custom" {
			t.Errorf("binary = %q", name)
		}
		// Simulate ffmpeg by copying input to output.
		in, err := os.ReadFile(findArg(args, "-i"))
		if err != nil {
			return err
		}
		return os.WriteFile(args[len(args)-1], in, 0o644)
	})

	out, err := tr.TranscodeBytes(context.Background(), []byte("RIFFxxxxWAVEdata"))
	if err != nil {
		t.Fatalf("TranscodeBytes: %v", err)
	}
	if string(out) != "RIFFxxxxWAVEdata" {
		t.Errorf("output = %q", out)
	}
}

func TestAvailableWithRunner(t *testing.T) {
	tr := NewTranscoder(filepath.Join(t.TempDir(), "definitely-missing"))
	if tr.Available() {
		t.Error("missing binary should not be available")
	}
	tr.WithCommandRunner(func(context.Context, string, ...string) error { return nil })
	if !tr.Available() {
		t.Error("runner-backed transcoder should report available")
	}
}

func findArg(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}
