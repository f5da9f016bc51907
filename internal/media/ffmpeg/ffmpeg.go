// Package ffmpeg wraps mp3 transcoding via the ffmpeg binary. The mixer and
// provider clients work in wav internally; this is the one step that needs an
// external tool, and every caller is expected to tolerate its absence by
// falling back to wav output.
package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultBinary is resolved from PATH when no override is configured.
const DefaultBinary = "ffmpeg"

// CommandRunner abstracts command execution for tests.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Transcoder converts wav payloads to mp3 with ffmpeg.
type Transcoder struct {
	binary string
	runner CommandRunner
}

// NewTranscoder builds a transcoder using the provided binary name or path.
// An empty binary selects DefaultBinary.
func NewTranscoder(binary string) *Transcoder {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultBinary
	}
	return &Transcoder{binary: binary}
}

// WithCommandRunner sets a custom command runner (for testing).
func (t *Transcoder) WithCommandRunner(runner CommandRunner) {
	t.runner = runner
}

// Available reports whether the configured binary can be resolved.
func (t *Transcoder) Available() bool {
	if t == nil {
		return false
	}
	if t.runner != nil {
		return true
	}
	_, err := exec.LookPath(t.binary)
	return err == nil
}

// TranscodeFile converts src into an mp3 at dest.
func (t *Transcoder) TranscodeFile(ctx context.Context, src, dest string) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", src,
		"-c:a", "libmp3lame",
		"-q:a", "2",
		dest,
	}
	return t.run(ctx, args...)
}

// TranscodeBytes converts an in-memory wav payload to mp3 via temp files.
func (t *Transcoder) TranscodeBytes(ctx context.Context, wavData []byte) ([]byte, error) {
	dir, err := os.MkdirTemp("", "voiceforge-transcode-")
	if err != nil {
		return nil, fmt.Errorf("transcode temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "clip.wav")
	dest := filepath.Join(dir, "clip.mp3")
	if err := os.WriteFile(src, wavData, 0o644); err != nil {
		return nil, fmt.Errorf("write transcode input: %w", err)
	}
	if err := t.TranscodeFile(ctx, src, dest); err != nil {
		return nil, err
	}
	out, err := os.ReadFile(dest)
	if err != nil {
		return nil, fmt.Errorf("read transcode output: %w", err)
	}
	return out, nil
}

func (t *Transcoder) run(ctx context.Context, args ...string) error {
	if t.runner != nil {
		return t.runner(ctx, t.binary, args...)
	}
	cmd := exec.CommandContext(ctx, t.binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg transcode: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
