// Package stt defines the Transcriber interface for speech-to-text backends.
//
// A Transcriber wraps a transcription service (e.g., Deepgram's live WebSocket
// API or a local whisper-server) behind a per-stream session. A Session
// accepts raw PCM audio and accumulates the authoritative transcript so far;
// the detection pipeline polls the accumulated text on its evaluation cadence
// rather than consuming a channel, because a greeting transcript is only ever
// read as a whole.
//
// Transcription is an optional collaborator: when no Transcriber is configured
// or a session cannot be opened, the pipeline runs on an empty transcript and
// decides from signal processing alone.
//
// Implementations must be safe for concurrent use. A single Session may be fed
// from one goroutine while another reads Transcript.
package stt

import "context"

// StreamConfig describes the audio format for a new transcription session.
type StreamConfig struct {
	// SampleRate is the audio sample rate in Hz (typically 16000).
	SampleRate int

	// Channels is the number of audio channels. 1 = mono.
	Channels int

	// Language is the BCP-47 language tag for recognition (e.g., "en-US").
	// An empty string lets the provider auto-detect, if supported.
	Language string
}

// Session is an open transcription session for a single audio stream.
//
// Callers must call Close when the session is no longer needed; failing to do
// so may leak goroutines and network connections inside the implementation.
type Session interface {
	// SendAudio delivers 16-bit signed little-endian PCM audio for
	// transcription. The audio must match the StreamConfig the session was
	// opened with. Calling SendAudio after Close returns an error.
	SendAudio(pcm []byte) error

	// Transcript returns the text committed by the backend so far, with
	// word-level timing where the backend provides it. The result grows
	// monotonically; earlier text is never retracted.
	Transcript() Transcript

	// Close flushes pending audio, terminates the session, and releases all
	// associated resources. Calling Close more than once is safe.
	Close() error
}

// Transcriber is the abstraction over any speech-to-text backend.
//
// Implementations must be safe for concurrent use; multiple sessions may be
// open simultaneously (one per audio file being processed).
type Transcriber interface {
	// StartSession opens a transcription session for one audio stream. The
	// returned Session is ready to accept audio immediately. Returns an error
	// if the backend is unreachable, authentication fails, or ctx is already
	// cancelled.
	StartSession(ctx context.Context, cfg StreamConfig) (Session, error)
}
