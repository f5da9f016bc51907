package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// SampleSRT is a small two-speaker subtitle fixture with overlapping timing,
// shared by pipeline and API tests.
const SampleSRT = `1
00:00:00,000 --> 00:00:02,000
Alice|emotion=happy: Hello Bob, how are you today?

2
00:00:01,500 --> 00:00:04,500
Bob|tone=serious: I am doing well, thanks for asking.
`

// SampleRolesJSON maps the SampleSRT speakers onto mock voices.
const SampleRolesJSON = `{
  "roles": {
    "Alice": {"voice_id": "voice-alice", "audio_format": "wav", "gender": "female"},
    "Bob": {"voice_id": "voice-bob", "audio_format": "wav", "gender": "male"}
  }
}`
