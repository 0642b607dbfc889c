// Package silero provides a vad.Classifier backed by a Silero VAD model
// served over a WebSocket endpoint. Each request is one binary frame of
// 16-bit signed little-endian PCM; the server answers with a JSON object
// carrying the speech probability for that frame.
//
// The connection is opened once at construction, so a missing or unreachable
// server fails fast and lets the pipeline degrade to its energy gate.
package silero

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/clearpath-voice/dropgate/pkg/audio"
	"github.com/clearpath-voice/dropgate/pkg/provider/vad"
)

const (
	defaultSampleRate = 16000
	defaultTimeout    = 250 * time.Millisecond
)

// Option is a functional option for configuring the Classifier.
type Option func(*Classifier)

// WithSampleRate sets the sample rate the serving endpoint is opened with.
// Default: 16000.
func WithSampleRate(rate int) Option {
	return func(c *Classifier) {
		c.sampleRate = rate
	}
}

// WithTimeout bounds a single classification round trip. Default: 250ms.
func WithTimeout(d time.Duration) Option {
	return func(c *Classifier) {
		c.timeout = d
	}
}

// response is the JSON structure the serving endpoint answers with.
type response struct {
	Probability float64 `json:"probability"`
}

// Classifier implements vad.Classifier against a Silero VAD serving endpoint.
type Classifier struct {
	sampleRate int
	timeout    time.Duration

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// Compile-time interface assertion.
var _ vad.Classifier = (*Classifier)(nil)

// New dials the serving endpoint at serverURL (ws:// or wss://) and returns a
// ready classifier. serverURL must be non-empty.
func New(ctx context.Context, serverURL string, opts ...Option) (*Classifier, error) {
	if serverURL == "" {
		return nil, errors.New("silero: server URL must not be empty")
	}
	c := &Classifier{
		sampleRate: defaultSampleRate,
		timeout:    defaultTimeout,
	}
	for _, o := range opts {
		o(c)
	}

	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("silero: parse URL: %w", err)
	}
	q := u.Query()
	q.Set("sample_rate", strconv.Itoa(c.sampleRate))
	u.RawQuery = q.Encode()

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("silero: dial: %w", err)
	}
	c.conn = conn
	return c, nil
}

// SpeechProbability sends one chunk to the model and returns its speech
// probability. Calls are serialised; the serving protocol is strict
// request/response.
func (c *Classifier) SpeechProbability(samples []float64, sampleRate int) (float64, error) {
	if sampleRate != c.sampleRate {
		return 0, fmt.Errorf("silero: sample rate %d does not match session rate %d", sampleRate, c.sampleRate)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, errors.New("silero: classifier is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := c.conn.Write(ctx, websocket.MessageBinary, audio.Float64ToPCM(samples)); err != nil {
		return 0, fmt.Errorf("silero: write frame: %w", err)
	}
	_, msg, err := c.conn.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("silero: read response: %w", err)
	}

	var resp response
	if err := json.Unmarshal(msg, &resp); err != nil {
		return 0, fmt.Errorf("silero: decode response: %w", err)
	}
	if resp.Probability < 0 || resp.Probability > 1 {
		return 0, fmt.Errorf("silero: probability %v out of range", resp.Probability)
	}
	return resp.Probability, nil
}

// Close terminates the connection. Calling Close more than once is safe.
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close(websocket.StatusNormalClosure, "classifier closed")
}
