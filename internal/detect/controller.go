package detect

import (
	"context"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/clearpath-voice/dropgate/internal/config"
	"github.com/clearpath-voice/dropgate/internal/observe"
	"github.com/clearpath-voice/dropgate/internal/transcript"
	"github.com/clearpath-voice/dropgate/pkg/audio"
	"github.com/clearpath-voice/dropgate/pkg/provider/phrase"
	"github.com/clearpath-voice/dropgate/pkg/provider/phrase/keyword"
	"github.com/clearpath-voice/dropgate/pkg/provider/stt"
	"github.com/clearpath-voice/dropgate/pkg/provider/vad"
)

// ControllerOption configures a [DecisionController].
type ControllerOption func(*DecisionController)

// WithVADClassifier attaches a model-based voice activity classifier. Without
// one the gate runs on the energy fallback.
func WithVADClassifier(c vad.Classifier) ControllerOption {
	return func(dc *DecisionController) { dc.classifier = c }
}

// WithPhraseAnalyzer replaces the default keyword-matching phrase analyzer.
func WithPhraseAnalyzer(a phrase.Analyzer) ControllerOption {
	return func(dc *DecisionController) { dc.phraseBackend = a }
}

// WithTranscription attaches a live transcription session. Audio chunks are
// forwarded to it and the accumulated transcript feeds phrase analysis.
// Without one the transcript stays empty and phrase analysis is inert.
func WithTranscription(s stt.Session) ControllerOption {
	return func(dc *DecisionController) { dc.session = s }
}

// WithTranscriptCorrector normalises transcription output against the phrase
// vocabulary before phrase analysis.
func WithTranscriptCorrector(c *transcript.Corrector) ControllerOption {
	return func(dc *DecisionController) { dc.corrector = c }
}

// WithMetrics attaches metric instruments. Without it nothing is recorded.
func WithMetrics(m *observe.Metrics) ControllerOption {
	return func(dc *DecisionController) { dc.metrics = m }
}

// WithLogger sets the controller's logger. Default: [slog.Default].
func WithLogger(l *slog.Logger) ControllerOption {
	return func(dc *DecisionController) { dc.log = l }
}

// DecisionController drives one stream's chunk loop: it runs the cheap
// detectors on every chunk, schedules the fusion evaluation every half second
// of stream time and phrase analysis on its slower cadence, and terminates
// with exactly one [DetectionResult]. Capability failures degrade; only an
// unreadable source is an error.
//
// A controller processes a single stream. Detector state is created in
// [NewDecisionController] and never shared, so independent streams may run
// concurrently with one controller each.
type DecisionController struct {
	det    config.DetectionConfig
	rules  SafetyRules
	gate   *VoiceActivityGate
	tones  *ToneDetector
	quiet  *SilenceTracker
	speech *PhraseAnalyzer
	fusion *FusionEngine

	classifier    vad.Classifier
	phraseBackend phrase.Analyzer
	session       stt.Session
	corrector     *transcript.Corrector
	metrics       *observe.Metrics
	log           *slog.Logger
}

// NewDecisionController builds the pipeline for one stream from the given
// configuration.
func NewDecisionController(cfg *config.Config, opts ...ControllerOption) *DecisionController {
	dc := &DecisionController{
		det: cfg.Detection,
		rules: SafetyRules{
			MinBufferBeep:     cfg.Safety.MinBufferBeep.Seconds(),
			MinBufferSilence:  cfg.Safety.MinBufferSilence.Seconds(),
			MinGreetingLength: cfg.Safety.MinGreetingLength.Seconds(),
			MaxGreetingLength: cfg.Safety.MaxGreetingLength.Seconds(),
		},
		log: slog.Default(),
	}
	for _, o := range opts {
		o(dc)
	}
	if dc.phraseBackend == nil {
		dc.phraseBackend = keyword.New()
	}

	det := cfg.Detection
	chunkDur := float64(det.ChunkDurationMs) / 1000

	dc.gate = NewVoiceActivityGate(dc.classifier, det.VADThreshold, det.SilenceThresholdDB, det.SampleRate, dc.log)
	dc.tones = NewToneDetector(ToneConfig{
		FreqMinHz:         det.BeepFreqMinHz,
		FreqMaxHz:         det.BeepFreqMaxHz,
		EnergyThresholdDB: det.BeepEnergyThresholdDB,
		MinDurationSec:    det.BeepMinDuration.Seconds(),
		ChunkDurationSec:  chunkDur,
	}, dc.log)
	dc.quiet = NewSilenceTracker(det.SilenceThresholdDB, det.SilenceDuration.Seconds(), dc.log)
	dc.speech = NewPhraseAnalyzer(dc.phraseBackend, dc.log)
	dc.fusion = NewFusionEngine(det.ConfidenceThreshold, dc.rules, dc.log)
	return dc
}

// Run consumes the chunk source to a terminal decision. It always returns a
// result unless the context is cancelled; capability failures inside the loop
// degrade rather than error.
func (dc *DecisionController) Run(ctx context.Context, src *ChunkSource) (DetectionResult, error) {
	start := time.Now()
	if dc.metrics != nil && dc.metrics.ActiveStreams != nil {
		dc.metrics.ActiveStreams.Add(ctx, 1)
		defer dc.metrics.ActiveStreams.Add(ctx, -1)
	}

	chunkDur := src.ChunkDuration().Seconds()
	timestamp := 0.0

	var (
		beepDetected, silenceDetected bool
		beepConf, silenceConf         float64
		verdict                       phrase.Verdict
	)

	for {
		if err := ctx.Err(); err != nil {
			return DetectionResult{}, err
		}
		chunk, ok := src.Next()
		if !ok {
			break
		}
		dc.countChunk(ctx)

		isSpeech := observeDetector(ctx, dc.metrics, "vad", func() bool {
			return dc.gate.IsSpeech(chunk)
		})

		beepSig := observeDetector(ctx, dc.metrics, "beep", func() DetectionSignal {
			return dc.tones.Analyze(chunk, timestamp)
		})
		if beepSig.Active {
			beepDetected = true
			beepConf = math.Max(beepConf, beepSig.Confidence)
		}

		silSig := observeDetector(ctx, dc.metrics, "silence", func() DetectionSignal {
			return dc.quiet.Analyze(chunk, timestamp, isSpeech)
		})
		if silSig.Active {
			silenceDetected = true
			silenceConf = math.Max(silenceConf, silSig.Confidence)
		}

		dc.forwardAudio(ctx, chunk)

		timestamp += chunkDur

		// Fusion evaluation every half second of stream time.
		if int(timestamp*2) != int((timestamp-chunkDur)*2) {
			dc.refreshTranscript()

			var analyzed bool
			verdict, analyzed = dc.speech.Evaluate(ctx, timestamp)
			if analyzed && dc.metrics != nil && dc.metrics.PhraseCalls != nil {
				dc.metrics.PhraseCalls.Add(ctx, 1)
			}

			lastBeep, hasBeep := dc.tones.LastBeep()
			result, decided := dc.fusion.Decide(Signals{
				Timestamp:         timestamp,
				BeepDetected:      beepDetected,
				BeepConfidence:    beepConf,
				LastBeepTime:      lastBeep,
				HasBeepTime:       hasBeep,
				Phrase:            verdict,
				SilenceDetected:   silenceDetected,
				SilenceConfidence: silenceConf,
			})
			if decided {
				dc.finish(ctx, result, start)
				return result, nil
			}
		}

		// Hard upper bound, independent of detector state.
		if timestamp > dc.rules.MaxGreetingLength {
			dc.log.Warn("maximum greeting length reached", "timestamp", round2(timestamp))
			result := DetectionResult{
				DropTimestamp:    dc.rules.MaxGreetingLength,
				Reason:           ReasonTimeout,
				Confidence:       0.5,
				MethodsUsed:      []Method{MethodTimeout},
				ComplianceStatus: ComplianceSafe,
				Details:          map[string]any{"timeout": true},
			}
			dc.finish(ctx, result, start)
			return result, nil
		}
	}

	// End of stream with no decision: fall back to the best signal seen.
	final := timestamp
	var methods []Method
	switch {
	case beepDetected:
		if lastBeep, ok := dc.tones.LastBeep(); ok {
			final = lastBeep + dc.rules.MinBufferBeep
		}
		methods = []Method{MethodBeep}
	case silenceDetected:
		methods = []Method{MethodSilence}
	default:
		methods = []Method{MethodTimeout}
	}

	result := DetectionResult{
		DropTimestamp:    round2(math.Max(final, dc.rules.MinGreetingLength)),
		Reason:           ReasonEndOfFile,
		Confidence:       round2(math.Max(beepConf, silenceConf)),
		MethodsUsed:      methods,
		ComplianceStatus: ComplianceSafe,
		Details:          map[string]any{},
	}
	dc.finish(ctx, result, start)
	return result, nil
}

// forwardAudio sends the chunk to the transcription session. A send failure
// drops the session for the rest of the stream; transcription is optional.
func (dc *DecisionController) forwardAudio(ctx context.Context, chunk audio.Chunk) {
	if dc.session == nil {
		return
	}
	if err := dc.session.SendAudio(audio.Float64ToPCM(chunk.Samples)); err != nil {
		dc.log.Warn("transcription send failed, continuing without transcription", "error", err)
		if dc.metrics != nil {
			dc.metrics.RecordCapabilityError(ctx, "stt")
		}
		dc.session = nil
	}
}

// refreshTranscript pulls the accumulated transcript from the session and
// hands it (corrected, when a corrector is attached) to the phrase analyzer.
func (dc *DecisionController) refreshTranscript() {
	if dc.session == nil {
		return
	}
	text := dc.session.Transcript().Text
	if dc.corrector != nil {
		corrected, fixes := dc.corrector.Correct(text)
		if len(fixes) > 0 {
			dc.log.Debug("transcript corrected", "corrections", len(fixes))
		}
		text = corrected
	}
	dc.speech.SetTranscript(text)
}

func (dc *DecisionController) finish(ctx context.Context, result DetectionResult, start time.Time) {
	dc.log.Info("decision",
		"drop_timestamp", result.DropTimestamp,
		"reason", result.Reason,
		"confidence", result.Confidence,
		"methods", result.MethodsUsed,
		"compliance", result.ComplianceStatus,
	)
	if dc.metrics == nil {
		return
	}
	dc.metrics.RecordDecision(ctx, string(result.Reason))
	if dc.metrics.StreamDuration != nil {
		dc.metrics.StreamDuration.Record(ctx, time.Since(start).Seconds())
	}
}

func (dc *DecisionController) countChunk(ctx context.Context) {
	if dc.metrics != nil && dc.metrics.ChunksProcessed != nil {
		dc.metrics.ChunksProcessed.Add(ctx, 1)
	}
}

// observeDetector times one detector invocation when metrics are attached.
func observeDetector[T any](ctx context.Context, m *observe.Metrics, name string, fn func() T) T {
	if m == nil || m.DetectorDuration == nil {
		return fn()
	}
	start := time.Now()
	out := fn()
	m.DetectorDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("detector", name)))
	return out
}
