package detect

import (
	"log/slog"

	"github.com/clearpath-voice/dropgate/pkg/audio"
	"github.com/clearpath-voice/dropgate/pkg/provider/vad"
)

// VoiceActivityGate answers "is this chunk speech" per chunk. With a
// [vad.Classifier] it compares the model's speech probability against the
// configured threshold; without one (or after the classifier fails its
// startup probe) it falls back to RMS energy against the silence threshold.
//
// The gate never fails the pipeline: a classifier error on a chunk is treated
// as speech, which is the conservative choice because it prevents wrongly
// extending a silence run.
type VoiceActivityGate struct {
	classifier vad.Classifier
	threshold  float64
	silenceDB  float64
	degraded   bool
	log        *slog.Logger
}

// NewVoiceActivityGate builds a gate. classifier may be nil, selecting the
// energy fallback outright. A non-nil classifier is probed with a silent
// chunk; if the probe errors the gate degrades to the energy fallback
// permanently and records the degradation.
func NewVoiceActivityGate(classifier vad.Classifier, vadThreshold, silenceThresholdDB float64, sampleRate int, log *slog.Logger) *VoiceActivityGate {
	if log == nil {
		log = slog.Default()
	}
	g := &VoiceActivityGate{
		classifier: classifier,
		threshold:  vadThreshold,
		silenceDB:  silenceThresholdDB,
		log:        log,
	}
	if classifier != nil {
		probe := make([]float64, sampleRate/50)
		if _, err := classifier.SpeechProbability(probe, sampleRate); err != nil {
			log.Warn("VAD classifier unavailable, degrading to energy-based speech detection", "error", err)
			g.classifier = nil
			g.degraded = true
		}
	}
	return g
}

// IsSpeech reports whether the chunk contains speech.
func (g *VoiceActivityGate) IsSpeech(chunk audio.Chunk) bool {
	if g.classifier == nil {
		return audio.RMSdB(chunk.Samples) > g.silenceDB
	}

	prob, err := g.classifier.SpeechProbability(chunk.Samples, chunk.SampleRate)
	if err != nil {
		// Transient error: assume speech rather than extending silence.
		g.log.Warn("VAD classification error, assuming speech", "error", err)
		return true
	}
	return prob > g.threshold
}

// Degraded reports whether a configured classifier failed its startup probe
// and the gate is running on the energy fallback.
func (g *VoiceActivityGate) Degraded() bool { return g.degraded }
