// Package mock provides test doubles for the stt package interfaces.
//
// Use Transcriber to verify session configuration and to inject a scripted
// Session. Use Session to feed transcript text to the pipeline and inspect
// the audio that was submitted.
package mock

import (
	"context"
	"sync"

	"github.com/clearpath-voice/dropgate/pkg/provider/stt"
)

// StartSessionCall records a single invocation of Transcriber.StartSession.
type StartSessionCall struct {
	// Cfg is the StreamConfig passed to StartSession.
	Cfg stt.StreamConfig
}

// Transcriber is a mock implementation of stt.Transcriber.
type Transcriber struct {
	mu sync.Mutex

	// Session is returned by StartSession. If nil, a new default Session is
	// returned.
	Session stt.Session

	// StartSessionErr, if non-nil, is returned as the error from StartSession.
	StartSessionErr error

	// StartSessionCalls records every call in order.
	StartSessionCalls []StartSessionCall
}

// StartSession records the call and returns Session, StartSessionErr.
func (t *Transcriber) StartSession(_ context.Context, cfg stt.StreamConfig) (stt.Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.StartSessionCalls = append(t.StartSessionCalls, StartSessionCall{Cfg: cfg})
	if t.StartSessionErr != nil {
		return nil, t.StartSessionErr
	}
	if t.Session != nil {
		return t.Session, nil
	}
	return &Session{}, nil
}

// Ensure Transcriber implements stt.Transcriber at compile time.
var _ stt.Transcriber = (*Transcriber)(nil)

// Session is a mock implementation of stt.Session.
type Session struct {
	mu sync.Mutex

	// Text is returned by Transcript. Tests may update it between evaluation
	// ticks via SetText.
	Text string

	// Words is returned by Transcript alongside Text.
	Words []stt.Word

	// SendAudioErr, if non-nil, is returned by every SendAudio call.
	SendAudioErr error

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// --- Call records ---

	// SendAudioCalls counts SendAudio invocations.
	SendAudioCalls int

	// BytesSent is the total size of audio submitted.
	BytesSent int

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

// SendAudio records the call and returns SendAudioErr.
func (s *Session) SendAudio(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SendAudioCalls++
	s.BytesSent += len(pcm)
	return s.SendAudioErr
}

// Transcript returns the configured Text and Words.
func (s *Session) Transcript() stt.Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()
	return stt.Transcript{Text: s.Text, Words: s.Words}
}

// SetText replaces the transcript text returned by Transcript. Thread-safe.
func (s *Session) SetText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Text = text
}

// Close records the call and returns CloseErr.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCallCount++
	return s.CloseErr
}

// Ensure Session implements stt.Session at compile time.
var _ stt.Session = (*Session)(nil)
