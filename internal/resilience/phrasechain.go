package resilience

import (
	"context"
	"errors"
	"log/slog"

	"github.com/clearpath-voice/dropgate/pkg/provider/phrase"
)

// PhraseChain implements [phrase.Analyzer] by calling an unreliable primary
// analyzer (typically LLM-backed) through a circuit breaker and falling back
// to a deterministic analyzer when the primary fails, times out, or the
// breaker is open.
//
// The fallback is expected never to fail; with a keyword analyzer as the
// fallback, AnalyzeTranscript never returns an error.
type PhraseChain struct {
	primary  phrase.Analyzer
	fallback phrase.Analyzer
	breaker  *CircuitBreaker
}

// Compile-time interface assertion.
var _ phrase.Analyzer = (*PhraseChain)(nil)

// NewPhraseChain creates a [PhraseChain]. primary may be nil, in which case
// every call goes straight to fallback; fallback must be non-nil.
func NewPhraseChain(primary, fallback phrase.Analyzer, cfg CircuitBreakerConfig) *PhraseChain {
	if cfg.Name == "" {
		cfg.Name = "phrase"
	}
	return &PhraseChain{
		primary:  primary,
		fallback: fallback,
		breaker:  NewCircuitBreaker(cfg),
	}
}

// AnalyzeTranscript tries the primary analyzer behind the breaker, then the
// fallback.
func (c *PhraseChain) AnalyzeTranscript(ctx context.Context, transcript string) (phrase.Verdict, error) {
	if c.primary != nil {
		var verdict phrase.Verdict
		err := c.breaker.Execute(func() error {
			var innerErr error
			verdict, innerErr = c.primary.AnalyzeTranscript(ctx, transcript)
			return innerErr
		})
		if err == nil {
			return verdict, nil
		}
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping primary phrase analyzer (circuit open)")
		} else {
			slog.Warn("primary phrase analyzer failed, using fallback", "error", err)
		}
	}
	return c.fallback.AnalyzeTranscript(ctx, transcript)
}

// BreakerState exposes the primary's breaker state for health reporting.
func (c *PhraseChain) BreakerState() State {
	return c.breaker.State()
}
