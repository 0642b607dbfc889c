package silero

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/coder/websocket"
)

// newTestServer returns a serving-endpoint stub that answers every frame with
// the given probability and records the sample_rate query parameter.
func newTestServer(t *testing.T, probability float64, sampleRate *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sampleRate != nil {
			*sampleRate = r.URL.Query().Get("sample_rate")
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		for {
			typ, msg, err := conn.Read(r.Context())
			if err != nil {
				return
			}
			if typ != websocket.MessageBinary || len(msg) == 0 {
				t.Errorf("unexpected frame: type=%v len=%d", typ, len(msg))
			}
			out, _ := json.Marshal(map[string]float64{"probability": probability})
			if err := conn.Write(r.Context(), websocket.MessageText, out); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestNew_EmptyURL(t *testing.T) {
	if _, err := New(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty server URL")
	}
}

func TestSpeechProbability(t *testing.T) {
	var gotRate string
	srv := newTestServer(t, 0.93, &gotRate)
	defer srv.Close()

	c, err := New(context.Background(), wsURL(srv))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if gotRate != "16000" {
		t.Errorf("sample_rate query = %q, want 16000", gotRate)
	}

	p, err := c.SpeechProbability(make([]float64, 320), 16000)
	if err != nil {
		t.Fatalf("SpeechProbability: %v", err)
	}
	if p != 0.93 {
		t.Errorf("probability = %v, want 0.93", p)
	}

	// Round trips are stateless; a second frame works the same way.
	if _, err := c.SpeechProbability(make([]float64, 320), 16000); err != nil {
		t.Errorf("second call: %v", err)
	}
}

func TestSpeechProbability_SampleRateMismatch(t *testing.T) {
	srv := newTestServer(t, 0.5, nil)
	defer srv.Close()

	c, err := New(context.Background(), wsURL(srv))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if _, err := c.SpeechProbability(make([]float64, 160), 8000); err == nil {
		t.Error("expected error for mismatched sample rate")
	}
}

func TestSpeechProbability_AfterClose(t *testing.T) {
	srv := newTestServer(t, 0.5, nil)
	defer srv.Close()

	c, err := New(context.Background(), wsURL(srv))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := c.SpeechProbability(make([]float64, 320), 16000); err == nil {
		t.Error("expected error after Close")
	}
}

func TestSpeechProbability_OutOfRange(t *testing.T) {
	srv := newTestServer(t, 1.5, nil)
	defer srv.Close()

	c, err := New(context.Background(), wsURL(srv))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if _, err := c.SpeechProbability(make([]float64, 320), 16000); err == nil {
		t.Error("expected error for out-of-range probability")
	}
}
