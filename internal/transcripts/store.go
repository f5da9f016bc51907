// Package transcripts is a file-backed store for recognized transcripts: the
// SRT text plus a metadata sidecar per transcript id.
package transcripts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"voiceforge/internal/services"
	"voiceforge/internal/srt"
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Metadata summarizes one stored transcript.
type Metadata struct {
	ID               string    `json:"id"`
	OriginalFilename string    `json:"original_filename,omitempty"`
	SegmentCount     int       `json:"segment_count"`
	Speakers         []string  `json:"speakers"`
	Emotions         []string  `json:"emotions,omitempty"`
	Tones            []string  `json:"tones,omitempty"`
	DurationSeconds  float64   `json:"duration_seconds"`
	CreatedAt        time.Time `json:"created_at"`
}

// Store persists transcripts under a single directory, one .srt and one .json
// per id.
type Store struct {
	dir string
}

// NewStore opens (creating if needed) a transcript store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("transcripts: directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("transcripts: create directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the SRT text and a metadata sidecar for id. The id doubles as a
// filename, so it is restricted to a safe character set and confined to the
// store directory.
func (s *Store) Save(id, originalFilename, srtText string, segments []srt.Segment) (Metadata, error) {
	srtPath, err := s.transcriptPath(id, ".srt")
	if err != nil {
		return Metadata{}, err
	}
	metaPath, err := s.transcriptPath(id, ".json")
	if err != nil {
		return Metadata{}, err
	}

	meta := buildMetadata(id, originalFilename, segments)
	encoded, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return Metadata{}, fmt.Errorf("transcripts: encode metadata: %w", err)
	}
	if err := os.WriteFile(srtPath, []byte(srtText), 0o644); err != nil {
		return Metadata{}, fmt.Errorf("transcripts: write srt: %w", err)
	}
	if err := os.WriteFile(metaPath, encoded, 0o644); err != nil {
		return Metadata{}, fmt.Errorf("transcripts: write metadata: %w", err)
	}
	return meta, nil
}

// LoadSRT returns the stored SRT text for id.
func (s *Store) LoadSRT(id string) (string, error) {
	path, err := s.transcriptPath(id, ".srt")
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", services.Wrap(services.ErrNotFound, "transcripts", "load",
				fmt.Sprintf("transcript %q not found", id), nil)
		}
		return "", fmt.Errorf("transcripts: read srt: %w", err)
	}
	return string(data), nil
}

// LoadMetadata returns the stored metadata for id.
func (s *Store) LoadMetadata(id string) (Metadata, error) {
	path, err := s.transcriptPath(id, ".json")
	if err != nil {
		return Metadata{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Metadata{}, services.Wrap(services.ErrNotFound, "transcripts", "load",
				fmt.Sprintf("transcript %q not found", id), nil)
		}
		return Metadata{}, fmt.Errorf("transcripts: read metadata: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metadata{}, fmt.Errorf("transcripts: decode metadata: %w", err)
	}
	return meta, nil
}

// List returns metadata for every stored transcript, newest first.
func (s *Store) List() ([]Metadata, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("transcripts: read directory: %w", err)
	}
	var metas []Metadata
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		meta, err := s.LoadMetadata(id)
		if err != nil {
			continue
		}
		metas = append(metas, meta)
	}
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].CreatedAt.After(metas[j].CreatedAt)
	})
	return metas, nil
}

func (s *Store) transcriptPath(id, ext string) (string, error) {
	if !idPattern.MatchString(id) {
		return "", services.Wrap(services.ErrValidation, "transcripts", "resolve path",
			fmt.Sprintf("invalid transcript id %q", id), nil)
	}
	path := filepath.Join(s.dir, id+ext)
	if filepath.Dir(path) != filepath.Clean(s.dir) {
		return "", services.Wrap(services.ErrValidation, "transcripts", "resolve path",
			fmt.Sprintf("transcript id %q escapes the store directory", id), nil)
	}
	return path, nil
}

func buildMetadata(id, originalFilename string, segments []srt.Segment) Metadata {
	meta := Metadata{
		ID:               id,
		OriginalFilename: originalFilename,
		SegmentCount:     len(segments),
		CreatedAt:        time.Now().UTC(),
	}
	speakers := map[string]struct{}{}
	emotions := map[string]struct{}{}
	tones := map[string]struct{}{}
	for _, seg := range segments {
		if seg.Speaker != "" {
			speakers[seg.Speaker] = struct{}{}
		}
		if seg.Emotion != "" {
			emotions[seg.Emotion] = struct{}{}
		}
		if seg.Tone != "" {
			tones[seg.Tone] = struct{}{}
		}
		if end := seg.End.Seconds(); end > meta.DurationSeconds {
			meta.DurationSeconds = end
		}
	}
	meta.Speakers = sortedKeys(speakers)
	meta.Emotions = sortedKeys(emotions)
	meta.Tones = sortedKeys(tones)
	return meta
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
