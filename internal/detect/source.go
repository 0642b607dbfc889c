package detect

import (
	"fmt"
	"time"

	"github.com/clearpath-voice/dropgate/pkg/audio"
)

// SourceError marks a stream whose audio could not be read or decoded. It is
// fatal for that stream only; no decision is possible.
type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("detect: source %q: %v", e.Path, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// ChunkSource turns a decoded mono signal into a lazy, finite, non-restartable
// sequence of fixed-duration chunks with monotonic zero-based timestamps. The
// last chunk is zero-padded to full length when the signal runs out mid-chunk.
type ChunkSource struct {
	samples    []float64
	sampleRate int
	chunkSize  int
	chunkDur   time.Duration
	pos        int
	index      int
}

// NewChunkSource builds a source over already-decoded mono samples.
func NewChunkSource(samples []float64, sampleRate int, chunkDuration time.Duration) *ChunkSource {
	chunkSize := int(float64(sampleRate) * chunkDuration.Seconds())
	return &ChunkSource{
		samples:    samples,
		sampleRate: sampleRate,
		chunkSize:  chunkSize,
		chunkDur:   chunkDuration,
	}
}

// OpenWAV decodes the WAV file at path (downmixed to mono, resampled to
// sampleRate, peak-normalised) and returns a chunk source over it. Decode
// failures are reported as a [SourceError].
func OpenWAV(path string, sampleRate int, chunkDuration time.Duration) (*ChunkSource, error) {
	samples, err := audio.LoadWAV(path, sampleRate)
	if err != nil {
		return nil, &SourceError{Path: path, Err: err}
	}
	return NewChunkSource(samples, sampleRate, chunkDuration), nil
}

// Next returns the next chunk in the stream. ok is false once the signal is
// exhausted; the sequence cannot be restarted.
func (s *ChunkSource) Next() (chunk audio.Chunk, ok bool) {
	if s.pos >= len(s.samples) {
		return audio.Chunk{}, false
	}

	end := s.pos + s.chunkSize
	var samples []float64
	if end <= len(s.samples) {
		samples = s.samples[s.pos:end]
	} else {
		samples = make([]float64, s.chunkSize)
		copy(samples, s.samples[s.pos:])
	}

	chunk = audio.Chunk{
		Samples:    samples,
		SampleRate: s.sampleRate,
		Timestamp:  time.Duration(s.index) * s.chunkDur,
	}
	s.pos = end
	s.index++
	return chunk, true
}

// ChunkDuration returns the duration of each produced chunk.
func (s *ChunkSource) ChunkDuration() time.Duration { return s.chunkDur }

// TotalDuration returns the duration of the underlying signal.
func (s *ChunkSource) TotalDuration() time.Duration {
	return time.Duration(float64(len(s.samples)) / float64(s.sampleRate) * float64(time.Second))
}
