package whisper

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/clearpath-voice/dropgate/pkg/provider/stt"
)

// pcmChunk builds a 20 ms mono 16 kHz PCM chunk with every sample set to value.
func pcmChunk(value int16) []byte {
	const samples = 320
	chunk := make([]byte, samples*2)
	for i := range samples {
		binary.LittleEndian.PutUint16(chunk[i*2:i*2+2], uint16(value))
	}
	return chunk
}

// newTestServer returns a whisper-server stub that answers every inference
// with the given text and counts requests.
func newTestServer(t *testing.T, text string, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inference" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file field: %v", err)
		}
		calls.Add(1)
		json.NewEncoder(w).Encode(map[string]string{"text": text})
	}))
}

func TestNew_EmptyURL(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty server URL")
	}
}

func TestSession_FlushOnSilence(t *testing.T) {
	var calls atomic.Int64
	srv := newTestServer(t, "leave a message after the tone", &calls)
	defer srv.Close()

	tr, err := New(srv.URL, WithSilenceThresholdMs(40))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sess, err := tr.StartSession(context.Background(), defaultConfig())
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	defer sess.Close()

	// Speech, then enough silence to cross the 40 ms threshold.
	for range 5 {
		mustSend(t, sess.SendAudio, pcmChunk(8000))
	}
	for range 4 {
		mustSend(t, sess.SendAudio, pcmChunk(0))
	}

	waitFor(t, func() bool { return calls.Load() == 1 })
	waitFor(t, func() bool {
		return sess.Transcript().Text == "leave a message after the tone"
	})
}

func TestSession_CloseFlushesPendingSpeech(t *testing.T) {
	var calls atomic.Int64
	srv := newTestServer(t, "hello", &calls)
	defer srv.Close()

	tr, _ := New(srv.URL)
	sess, err := tr.StartSession(context.Background(), defaultConfig())
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	mustSend(t, sess.SendAudio, pcmChunk(8000))
	// Give the process loop a moment to drain the queue before closing.
	time.Sleep(50 * time.Millisecond)
	if err := sess.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("inference calls = %d, want 1 (close flush)", got)
	}
	if got := sess.Transcript().Text; got != "hello" {
		t.Errorf("transcript = %q, want %q", got, "hello")
	}
}

func TestSession_LeadingSilenceDiscarded(t *testing.T) {
	var calls atomic.Int64
	srv := newTestServer(t, "ignored", &calls)
	defer srv.Close()

	tr, _ := New(srv.URL, WithSilenceThresholdMs(40))
	sess, err := tr.StartSession(context.Background(), defaultConfig())
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	for range 10 {
		mustSend(t, sess.SendAudio, pcmChunk(0))
	}
	sess.Close()

	if got := calls.Load(); got != 0 {
		t.Errorf("inference calls = %d, want 0 (silence-only stream)", got)
	}
}

func TestSession_SendAudioAfterClose(t *testing.T) {
	srv := newTestServer(t, "", new(atomic.Int64))
	defer srv.Close()

	tr, _ := New(srv.URL)
	sess, err := tr.StartSession(context.Background(), defaultConfig())
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	sess.Close()

	if err := sess.SendAudio(pcmChunk(0)); err == nil {
		t.Fatal("expected error sending after Close")
	}
}

func TestSession_InferenceErrorLeavesTranscriptEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr, _ := New(srv.URL)
	sess, err := tr.StartSession(context.Background(), defaultConfig())
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	mustSend(t, sess.SendAudio, pcmChunk(8000))
	time.Sleep(50 * time.Millisecond)
	sess.Close()

	if got := sess.Transcript().Text; got != "" {
		t.Errorf("transcript = %q, want empty on backend failure", got)
	}
}

func defaultConfig() stt.StreamConfig {
	return stt.StreamConfig{SampleRate: 16000, Channels: 1, Language: "en"}
}

func mustSend(t *testing.T, send func([]byte) error, chunk []byte) {
	t.Helper()
	if err := send(chunk); err != nil {
		t.Fatalf("SendAudio: %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}
