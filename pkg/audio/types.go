package audio

import "time"

// Chunk is a fixed-duration window of mono audio flowing through the
// detection pipeline. Samples are normalised float amplitudes in [-1, 1].
// A Chunk is immutable once produced; detectors must not modify Samples.
type Chunk struct {
	// Samples holds exactly chunk-duration × SampleRate samples. The final
	// chunk of a stream is zero-padded to this length.
	Samples []float64

	// SampleRate in Hz (e.g., 16000 for telephony-grade speech).
	SampleRate int

	// Timestamp is the chunk's start offset relative to stream start.
	// Timestamps begin at zero and increase monotonically.
	Timestamp time.Duration
}

// Duration returns the nominal duration covered by the chunk's samples.
func (c Chunk) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(c.Samples)) / float64(c.SampleRate) * float64(time.Second))
}

// Format describes the sample rate and channel count of an audio signal.
type Format struct {
	SampleRate int
	Channels   int
}
