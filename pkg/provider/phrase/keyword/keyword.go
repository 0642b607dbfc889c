// Package keyword provides a deterministic phrase.Analyzer that matches a
// fixed list of end-of-greeting cues by substring. It is the always-available
// fallback behind the LLM-backed analyzer and never returns an error.
package keyword

import (
	"context"
	"strings"

	"github.com/clearpath-voice/dropgate/pkg/provider/phrase"
)

// matchConfidence is the confidence reported when at least one cue phrase is
// present. Substring matching is precise but cannot weigh context, so the
// value stays below a lone-signal decision threshold.
const matchConfidence = 0.7

// DefaultPhrases is the cue-phrase vocabulary of North American voicemail
// greetings, matched case-insensitively.
var DefaultPhrases = []string{
	"after the beep",
	"after the tone",
	"at the tone",
	"leave a message",
	"leave your message",
	"leave message",
	"we'll get back",
	"we will get back",
	"return your call",
}

// beepWords are the tokens that mark a greeting as beep-terminated.
var beepWords = []string{"beep", "tone"}

// Analyzer is a deterministic keyword-matching phrase.Analyzer.
type Analyzer struct {
	phrases []string
}

// Compile-time interface assertion.
var _ phrase.Analyzer = (*Analyzer)(nil)

// New creates an Analyzer over DefaultPhrases.
func New() *Analyzer {
	return NewWithPhrases(DefaultPhrases)
}

// NewWithPhrases creates an Analyzer over a custom cue-phrase list. Phrases
// are matched lower-cased.
func NewWithPhrases(phrases []string) *Analyzer {
	lowered := make([]string, len(phrases))
	for i, p := range phrases {
		lowered[i] = strings.ToLower(p)
	}
	return &Analyzer{phrases: lowered}
}

// AnalyzeTranscript matches the cue phrases against the lower-cased
// transcript. The returned error is always nil.
func (a *Analyzer) AnalyzeTranscript(_ context.Context, transcript string) (phrase.Verdict, error) {
	lower := strings.ToLower(transcript)

	var detected []string
	for _, p := range a.phrases {
		if strings.Contains(lower, p) {
			detected = append(detected, p)
		}
	}

	beepExpected := false
	for _, w := range beepWords {
		if strings.Contains(lower, w) {
			beepExpected = true
			break
		}
	}

	v := phrase.Verdict{
		IsGreetingEnd: len(detected) > 0,
		EndPhrases:    detected,
		BeepExpected:  beepExpected,
	}
	if v.IsGreetingEnd {
		v.Confidence = matchConfidence
	}
	return v.Normalized(), nil
}
