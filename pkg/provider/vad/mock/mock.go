// Package mock provides test doubles for the vad package interfaces.
//
// Use Classifier to inject fixed speech probabilities and inspect the chunks
// that were submitted for classification.
package mock

import (
	"sync"

	"github.com/clearpath-voice/dropgate/pkg/provider/vad"
)

// ClassifyCall records a single invocation of Classifier.SpeechProbability.
type ClassifyCall struct {
	// Samples is a copy of the chunk passed in.
	Samples []float64

	// SampleRate is the rate passed in.
	SampleRate int
}

// Classifier is a mock implementation of vad.Classifier.
type Classifier struct {
	mu sync.Mutex

	// Probability is returned by every SpeechProbability call.
	Probability float64

	// Probabilities, when non-empty, is consumed one value per call before
	// falling back to Probability. Useful for scripting a speech/silence
	// sequence.
	Probabilities []float64

	// Err, if non-nil, is returned by every SpeechProbability call.
	Err error

	// Calls records every call in order.
	Calls []ClassifyCall
}

// SpeechProbability records the call and returns the next scripted
// probability (or the fixed Probability) and Err.
func (c *Classifier) SpeechProbability(samples []float64, sampleRate int) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]float64, len(samples))
	copy(cp, samples)
	c.Calls = append(c.Calls, ClassifyCall{Samples: cp, SampleRate: sampleRate})

	p := c.Probability
	if len(c.Probabilities) > 0 {
		p = c.Probabilities[0]
		c.Probabilities = c.Probabilities[1:]
	}
	return p, c.Err
}

// ResetCalls clears all recorded call history. Thread-safe.
func (c *Classifier) ResetCalls() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = nil
}

// Ensure Classifier implements vad.Classifier at compile time.
var _ vad.Classifier = (*Classifier)(nil)
