package detect

import (
	"log/slog"

	"github.com/clearpath-voice/dropgate/pkg/audio"
)

// SilenceTracker measures how long the stream has been silent after speech.
// A chunk counts as silent only when its RMS level is below the threshold AND
// the voice activity gate says not-speech; energy alone is not sufficient
// because a model-based gate may detect low-energy speech.
//
// A stream that is silent from t=0 never triggers: silence only means "end of
// greeting" once speech has been heard at least once.
//
// State is per stream; construct a fresh tracker for every file.
type SilenceTracker struct {
	thresholdDB       float64
	durationThreshold float64

	silenceStart    float64
	inSilence       bool
	lastSpeechTime  float64
	announcedActive bool
	log             *slog.Logger
}

// NewSilenceTracker builds a tracker for one stream. durationThreshold is in
// seconds.
func NewSilenceTracker(thresholdDB, durationThreshold float64, log *slog.Logger) *SilenceTracker {
	if log == nil {
		log = slog.Default()
	}
	return &SilenceTracker{
		thresholdDB:       thresholdDB,
		durationThreshold: durationThreshold,
		log:               log,
	}
}

// Analyze inspects one chunk. isSpeech is the voice activity gate's verdict
// for the same chunk.
func (t *SilenceTracker) Analyze(chunk audio.Chunk, timestamp float64, isSpeech bool) DetectionSignal {
	sig := DetectionSignal{Kind: SignalSilence, Timestamp: timestamp}

	rmsDB := audio.RMSdB(chunk.Samples)
	silent := rmsDB < t.thresholdDB && !isSpeech

	if !silent {
		if isSpeech {
			t.lastSpeechTime = timestamp
		}
		t.inSilence = false
		return sig
	}

	if !t.inSilence {
		t.silenceStart = timestamp
		t.inSilence = true
	}

	silenceDuration := timestamp - t.silenceStart
	if silenceDuration < t.durationThreshold || t.lastSpeechTime <= 0 {
		return sig
	}

	sig.Active = true
	sig.Confidence = clamp01(silenceDuration / (t.durationThreshold * 2))
	if !t.announcedActive {
		t.log.Info("silence threshold met",
			"timestamp", round2(timestamp),
			"silence_duration", round2(silenceDuration),
		)
		t.announcedActive = true
	}
	return sig
}
