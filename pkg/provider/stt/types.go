package stt

import "time"

// Word holds word-level timing detail for a transcript, when the backend
// provides it.
type Word struct {
	// Word is the recognised word.
	Word string

	// Start is the word's onset relative to stream start.
	Start time.Duration

	// End is the word's offset relative to stream start.
	End time.Duration

	// Confidence is the backend's recognition confidence in [0.0, 1.0].
	Confidence float64
}

// Transcript is the accumulated recognition result for a stream.
type Transcript struct {
	// Text is the full committed transcript so far.
	Text string

	// Words carries word-level timing. Empty when the backend does not
	// report word detail.
	Words []Word
}
