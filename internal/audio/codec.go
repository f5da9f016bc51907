package audio

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"

	"voiceforge/internal/services"
)

// Supported container formats.
const (
	FormatWAV = "wav"
	FormatMP3 = "mp3"
)

// DetectFormat decides which decoder to use for a payload. A RIFF header
// always wins, then a wav declaration; everything else is treated as mp3,
// which also covers providers that mislabel their content type.
func DetectFormat(data []byte, declared string) string {
	if IsWAV(data) {
		return FormatWAV
	}
	if NormalizeFormat(declared) == FormatWAV {
		return FormatWAV
	}
	return FormatMP3
}

// NormalizeFormat canonicalizes format and content-type spellings.
func NormalizeFormat(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	switch {
	case format == FormatWAV, strings.Contains(format, "wav"):
		return FormatWAV
	case format == FormatMP3, strings.Contains(format, "mpeg"), strings.Contains(format, "mp3"):
		return FormatMP3
	default:
		return format
	}
}

// IsWAV sniffs for a RIFF/WAVE container header.
func IsWAV(data []byte) bool {
	return len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE"))
}

// Decode converts an encoded payload into a mono PCM clip.
func Decode(data []byte, format string) (*Clip, error) {
	if len(data) == 0 {
		return nil, services.Wrap(services.ErrComposition, "audio", "decode", "empty audio payload", nil)
	}
	switch DetectFormat(data, format) {
	case FormatWAV:
		return decodeWAV(data)
	default:
		return decodeMP3(data)
	}
}

func decodeWAV(data []byte) (*Clip, error) {
	decoder := wav.NewDecoder(bytes.NewReader(data))
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, services.Wrap(services.ErrComposition, "audio", "decode wav", "", err)
	}
	if buf == nil || buf.Format == nil || buf.Format.SampleRate <= 0 {
		return nil, services.Wrap(services.ErrComposition, "audio", "decode wav", "missing format header", nil)
	}
	return downmix(buf.Data, buf.Format.NumChannels, buf.Format.SampleRate), nil
}

func decodeMP3(data []byte) (*Clip, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, services.Wrap(services.ErrComposition, "audio", "decode mp3", "", err)
	}
	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return nil, services.Wrap(services.ErrComposition, "audio", "decode mp3", "read stream", err)
	}
	// go-mp3 always emits 16-bit little-endian stereo frames.
	samples := make([]int, 0, len(pcm)/4)
	for i := 0; i+3 < len(pcm); i += 4 {
		left := int(int16(uint16(pcm[i]) | uint16(pcm[i+1])<<8))
		right := int(int16(uint16(pcm[i+2]) | uint16(pcm[i+3])<<8))
		samples = append(samples, (left+right)/2)
	}
	return &Clip{Samples: samples, SampleRate: decoder.SampleRate()}, nil
}

func downmix(data []int, channels, sampleRate int) *Clip {
	if channels <= 1 {
		out := make([]int, len(data))
		copy(out, data)
		return &Clip{Samples: out, SampleRate: sampleRate}
	}
	frames := len(data) / channels
	samples := make([]int, frames)
	for i := 0; i < frames; i++ {
		sum := 0
		for ch := 0; ch < channels; ch++ {
			sum += data[i*channels+ch]
		}
		samples[i] = sum / channels
	}
	return &Clip{Samples: samples, SampleRate: sampleRate}
}

// EncodeWAV renders the clip as a 16-bit mono WAV file.
func EncodeWAV(clip *Clip) ([]byte, error) {
	if clip == nil || clip.SampleRate <= 0 {
		return nil, fmt.Errorf("encode wav: empty clip")
	}
	var buf writeSeekBuffer
	encoder := wav.NewEncoder(&buf, clip.SampleRate, 16, 1, 1)
	intBuf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: clip.SampleRate},
		Data:           clip.Samples,
		SourceBitDepth: 16,
	}
	if err := encoder.Write(intBuf); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("finalize wav: %w", err)
	}
	return buf.Bytes(), nil
}

// writeSeekBuffer adapts an in-memory byte slice to io.WriteSeeker so the wav
// encoder can back-patch chunk sizes without touching disk.
type writeSeekBuffer struct {
	data []byte
	pos  int
}

func (b *writeSeekBuffer) Write(p []byte) (int, error) {
	if need := b.pos + len(p); need > len(b.data) {
		grown := make([]byte, need)
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[b.pos:], p)
	b.pos += len(p)
	return len(p), nil
}

func (b *writeSeekBuffer) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = int64(b.pos) + offset
	case io.SeekEnd:
		next = int64(len(b.data)) + offset
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	if next < 0 {
		return 0, fmt.Errorf("seek: negative position")
	}
	b.pos = int(next)
	return next, nil
}

func (b *writeSeekBuffer) Bytes() []byte {
	return b.data
}
