package detect

import (
	"log/slog"

	"github.com/clearpath-voice/dropgate/pkg/provider/phrase"
)

// Fusion weights for the three confidence sources. Fixed; they sum to 1.
const (
	beepWeight    = 0.4
	phraseWeight  = 0.3
	silenceWeight = 0.3
)

// SafetyRules are the compliance bounds the fusion step enforces on every
// decision, all in seconds.
type SafetyRules struct {
	MinBufferBeep     float64
	MinBufferSilence  float64
	MinGreetingLength float64
	MaxGreetingLength float64
}

// Signals is the controller's current-state snapshot handed to the fusion
// step. Beep and silence fields are sticky: once a detector has fired for the
// stream they stay set, carrying the highest confidence seen.
type Signals struct {
	// Timestamp is the current stream time in seconds.
	Timestamp float64

	BeepDetected   bool
	BeepConfidence float64
	// LastBeepTime is the timestamp of the most recent confirmed beep.
	// Meaningful only when HasBeepTime is true.
	LastBeepTime float64
	HasBeepTime  bool

	Phrase phrase.Verdict

	SilenceDetected   bool
	SilenceConfidence float64
}

// FusionEngine combines detector confidences and reasons into one bounded
// decision. It is a pure function of the signal snapshot plus its fixed
// configuration; it holds no per-stream state.
type FusionEngine struct {
	confidenceThreshold float64
	rules               SafetyRules
	log                 *slog.Logger
}

// NewFusionEngine builds a fusion engine shared across evaluations of one or
// more streams.
func NewFusionEngine(confidenceThreshold float64, rules SafetyRules, log *slog.Logger) *FusionEngine {
	if log == nil {
		log = slog.Default()
	}
	return &FusionEngine{
		confidenceThreshold: confidenceThreshold,
		rules:               rules,
		log:                 log,
	}
}

// Confidence returns the weighted total confidence for the given per-signal
// confidences.
func (e *FusionEngine) Confidence(beep, phraseConf, silence float64) float64 {
	return beepWeight*beep + phraseWeight*phraseConf + silenceWeight*silence
}

// Decide evaluates the signal snapshot and returns a decision when the fused
// confidence clears the threshold AND a signal fixed a candidate drop time.
//
// Reason priority is strict: beep, then phrase, then silence. A beep proposes
// last-beep-time plus the beep buffer; silence proposes now plus the silence
// buffer. A phrase verdict contributes confidence and appears in the methods,
// but never proposes a time by itself — it must co-occur with a beep or
// silence signal to yield a decision.
func (e *FusionEngine) Decide(s Signals) (DetectionResult, bool) {
	phraseConf := s.Phrase.Confidence
	total := e.Confidence(s.BeepConfidence, phraseConf, s.SilenceConfidence)

	var (
		methods  []Method
		reason   Reason
		dropTime float64
		hasTime  bool
	)

	if s.BeepDetected && s.HasBeepTime {
		methods = append(methods, MethodBeep)
		reason = ReasonBeepDetected
		dropTime = s.LastBeepTime + e.rules.MinBufferBeep
		hasTime = true
	}

	if s.Phrase.IsGreetingEnd {
		methods = append(methods, MethodPhrase)
		if reason == "" {
			reason = ReasonPhraseDetected
		}
	}

	if s.SilenceDetected {
		methods = append(methods, MethodSilence)
		if reason == "" {
			reason = ReasonSilenceDetected
			dropTime = s.Timestamp + e.rules.MinBufferSilence
			hasTime = true
		}
	}

	if total < e.confidenceThreshold || !hasTime {
		return DetectionResult{}, false
	}

	if dropTime < e.rules.MinGreetingLength {
		e.log.Warn("drop time before minimum greeting length, adjusting",
			"drop_time", round2(dropTime),
			"min_greeting_length", e.rules.MinGreetingLength,
		)
		dropTime = e.rules.MinGreetingLength
	}
	if dropTime > e.rules.MaxGreetingLength {
		dropTime = e.rules.MaxGreetingLength
		reason = ReasonTimeout
	}

	compliance := ComplianceRisky
	if dropTime >= e.rules.MinGreetingLength {
		compliance = ComplianceSafe
	}

	return DetectionResult{
		DropTimestamp:    round2(dropTime),
		Reason:           reason,
		Confidence:       round2(total),
		MethodsUsed:      methods,
		ComplianceStatus: compliance,
		Details: map[string]any{
			"beep_confidence":    round2(s.BeepConfidence),
			"phrase_confidence":  round2(phraseConf),
			"silence_confidence": round2(s.SilenceConfidence),
			"phrases_detected":   s.Phrase.EndPhrases,
		},
	}, true
}
