// Package phrase defines the Analyzer interface for text-understanding
// backends that judge whether a voicemail greeting transcript is ending.
//
// An Analyzer inspects the transcript accumulated so far and returns a
// structured Verdict. The remote implementations (LLM-backed) must be treated
// as unreliable — they can time out, return malformed output, or be absent
// entirely — so callers always keep the deterministic keyword analyzer as a
// fallback path.
//
// Implementations must be safe for concurrent use.
package phrase

import "context"

// Verdict is an Analyzer's structured judgement of a greeting transcript.
// Fields are validated at the capability boundary so downstream fusion logic
// never inspects ad hoc optional values.
type Verdict struct {
	// IsGreetingEnd reports whether the transcript contains cues that the
	// greeting is ending ("leave a message", "after the beep", ...).
	IsGreetingEnd bool

	// EndPhrases lists the cue phrases that were detected, in transcript
	// order, lower-cased.
	EndPhrases []string

	// BeepExpected reports whether the greeting announces a beep or tone,
	// meaning the pipeline should keep listening for one.
	BeepExpected bool

	// Confidence is the analyzer's confidence in IsGreetingEnd, in [0.0, 1.0].
	Confidence float64
}

// Normalized returns a copy of the verdict with Confidence clamped to
// [0.0, 1.0] and EndPhrases never nil when IsGreetingEnd is set.
func (v Verdict) Normalized() Verdict {
	if v.Confidence < 0 {
		v.Confidence = 0
	}
	if v.Confidence > 1 {
		v.Confidence = 1
	}
	if v.IsGreetingEnd && v.EndPhrases == nil {
		v.EndPhrases = []string{}
	}
	return v
}

// Analyzer judges greeting transcripts.
type Analyzer interface {
	// AnalyzeTranscript returns a Verdict for the transcript accumulated so
	// far. Implementations backed by a remote capability should honour ctx
	// cancellation and return an error on timeout or malformed output; the
	// caller falls back to deterministic keyword matching.
	AnalyzeTranscript(ctx context.Context, transcript string) (Verdict, error)
}
