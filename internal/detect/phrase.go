package detect

import (
	"context"
	"log/slog"

	"github.com/clearpath-voice/dropgate/pkg/provider/phrase"
)

// phraseIntervalSec is how often, in stream seconds, the transcript is
// submitted for phrase analysis. The external capability is rate limited, so
// the analyzer fires at most once per qualifying integer second.
const phraseIntervalSec = 2

// PhraseAnalyzer owns the accumulated transcript window and schedules the
// semantic end-of-greeting analysis on a fixed cadence. Between analyses the
// most recent verdict stays in effect.
//
// State is per stream; construct a fresh analyzer for every file.
type PhraseAnalyzer struct {
	analyzer phrase.Analyzer

	transcript string
	lastSecond int
	verdict    phrase.Verdict
	log        *slog.Logger
}

// NewPhraseAnalyzer builds an analyzer for one stream. analyzer must not be
// nil; wire the keyword fallback when no external capability is configured.
func NewPhraseAnalyzer(analyzer phrase.Analyzer, log *slog.Logger) *PhraseAnalyzer {
	if log == nil {
		log = slog.Default()
	}
	return &PhraseAnalyzer{
		analyzer:   analyzer,
		lastSecond: -1,
		log:        log,
	}
}

// SetTranscript replaces the transcript window with the latest accumulated
// transcription text.
func (p *PhraseAnalyzer) SetTranscript(text string) {
	p.transcript = text
}

// Transcript returns the current transcript window.
func (p *PhraseAnalyzer) Transcript() string { return p.transcript }

// Evaluate returns the phrase verdict in effect at the given stream time,
// invoking the analysis capability only when the cadence fires; analyzed
// reports whether it did. An empty transcript yields a zero verdict without
// invoking the capability. Analysis errors are conservative: they leave a
// zero verdict for this cadence tick.
func (p *PhraseAnalyzer) Evaluate(ctx context.Context, timestamp float64) (verdict phrase.Verdict, analyzed bool) {
	sec := int(timestamp)
	if sec <= 0 || sec%phraseIntervalSec != 0 || sec == p.lastSecond {
		return p.verdict, false
	}
	p.lastSecond = sec

	if p.transcript == "" {
		p.verdict = phrase.Verdict{}
		return p.verdict, false
	}

	v, err := p.analyzer.AnalyzeTranscript(ctx, p.transcript)
	if err != nil {
		p.log.Warn("phrase analysis failed", "timestamp", round2(timestamp), "error", err)
		p.verdict = phrase.Verdict{}
		return p.verdict, true
	}
	p.verdict = v.Normalized()
	if p.verdict.IsGreetingEnd {
		p.log.Info("end-of-greeting phrases detected",
			"timestamp", round2(timestamp),
			"phrases", p.verdict.EndPhrases,
			"confidence", round2(p.verdict.Confidence),
		)
	}
	return p.verdict, true
}
