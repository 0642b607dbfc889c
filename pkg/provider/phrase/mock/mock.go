// Package mock provides a test double for the phrase.Analyzer interface.
//
// Use Analyzer to script verdicts per call and inspect the transcripts that
// were submitted for analysis.
package mock

import (
	"context"
	"sync"

	"github.com/clearpath-voice/dropgate/pkg/provider/phrase"
)

// AnalyzeCall records a single invocation of Analyzer.AnalyzeTranscript.
type AnalyzeCall struct {
	// Transcript is the text passed in.
	Transcript string
}

// Analyzer is a mock implementation of phrase.Analyzer.
type Analyzer struct {
	mu sync.Mutex

	// Verdict is returned by every AnalyzeTranscript call.
	Verdict phrase.Verdict

	// Err, if non-nil, is returned by every AnalyzeTranscript call.
	Err error

	// Calls records every call in order.
	Calls []AnalyzeCall
}

// AnalyzeTranscript records the call and returns Verdict, Err.
func (a *Analyzer) AnalyzeTranscript(_ context.Context, transcript string) (phrase.Verdict, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Calls = append(a.Calls, AnalyzeCall{Transcript: transcript})
	return a.Verdict, a.Err
}

// CallCount returns the number of recorded calls. Thread-safe.
func (a *Analyzer) CallCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.Calls)
}

// SetVerdict replaces the scripted verdict. Thread-safe.
func (a *Analyzer) SetVerdict(v phrase.Verdict) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Verdict = v
}

// Ensure Analyzer implements phrase.Analyzer at compile time.
var _ phrase.Analyzer = (*Analyzer)(nil)
