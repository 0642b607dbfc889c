// Package vad defines the Classifier interface for voice-activity-detection
// backends.
//
// A Classifier wraps a frame-level speech detector (e.g., a Silero VAD model
// served out of process, or a WebRTC VAD binding) and scores individual audio
// chunks with a speech probability. Classification is synchronous by design:
// the detection pipeline calls it once per 20 ms chunk and cannot tolerate a
// blocking stage.
//
// The classifier is an optional collaborator. When none is configured, or when
// a configured one fails at startup, the pipeline degrades to an energy-based
// gate; a Classifier implementation must never be load-bearing for stream
// processing.
//
// Implementations must be safe for concurrent use: independent streams may be
// classified from separate goroutines.
package vad

// Classifier scores mono audio chunks with a speech probability.
type Classifier interface {
	// SpeechProbability returns the probability in [0.0, 1.0] that the given
	// chunk of normalised mono samples contains speech. It must not block;
	// transient failures should be returned as errors so the caller can apply
	// its conservative default (treat the chunk as speech).
	SpeechProbability(samples []float64, sampleRate int) (float64, error)
}
