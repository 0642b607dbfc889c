// Package detect implements the streaming multi-signal decision engine that
// finds the moment a voicemail greeting ends. Per-chunk detectors (tone,
// silence, voice activity) and a slower phrase analysis feed a
// confidence-weighted fusion step; a controller drives the loop and always
// terminates with a bounded [DetectionResult].
package detect

import "math"

// SignalKind identifies which detector produced a [DetectionSignal].
type SignalKind string

const (
	SignalBeep    SignalKind = "beep"
	SignalSilence SignalKind = "silence"
	SignalPhrase  SignalKind = "phrase"
)

// Reason explains what terminated a stream.
type Reason string

const (
	ReasonBeepDetected    Reason = "beep_detected"
	ReasonPhraseDetected  Reason = "phrase_detected"
	ReasonSilenceDetected Reason = "silence_detected"
	ReasonTimeout         Reason = "timeout"
	ReasonEndOfFile       Reason = "end_of_file"
)

// Method names a detection method that contributed to a decision.
type Method string

const (
	MethodBeep    Method = "beep"
	MethodPhrase  Method = "phrase"
	MethodSilence Method = "silence"
	MethodTimeout Method = "timeout"
)

// ComplianceStatus reports whether a drop time respects the minimum greeting
// length rule.
type ComplianceStatus string

const (
	ComplianceSafe  ComplianceStatus = "safe"
	ComplianceRisky ComplianceStatus = "risky"
)

// DetectionSignal is one detector's verdict for one evaluation. Timestamps
// are stream-relative seconds.
type DetectionSignal struct {
	Kind       SignalKind
	Active     bool
	Confidence float64
	Timestamp  float64
}

// DetectionResult is the terminal artifact of one processed stream.
type DetectionResult struct {
	// DropTimestamp is the stream-relative time in seconds at which the
	// compliance message may start, rounded to two decimals and bounded by
	// the configured greeting length limits.
	DropTimestamp float64 `json:"drop_timestamp"`

	Reason     Reason  `json:"reason"`
	Confidence float64 `json:"confidence"`

	// MethodsUsed lists every method that contributed, in priority order.
	// Never empty.
	MethodsUsed []Method `json:"method_used"`

	ComplianceStatus ComplianceStatus `json:"compliance_status"`

	// Details carries per-signal confidences and detected phrases for audit.
	Details map[string]any `json:"details,omitempty"`
}

// round2 rounds to two decimal places, the precision of reported timestamps
// and confidences.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// clamp01 bounds v to [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
