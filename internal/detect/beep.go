package detect

import (
	"log/slog"

	"github.com/clearpath-voice/dropgate/pkg/audio"
)

// ToneDetector finds a sustained near-pure tone in a configured frequency
// band — the answering-machine beep. Each chunk's spectrum is scanned for a
// peak above the energy threshold; qualifying chunks extend a run buffer, a
// single non-qualifying chunk clears it. The beep is confirmed only once the
// run covers the minimum duration, which rejects single-chunk spectral spikes
// from noise or fricatives.
//
// State is per stream; construct a fresh detector for every file.
type ToneDetector struct {
	freqMin     float64
	freqMax     float64
	thresholdDB float64
	minChunks   int

	run   []float64
	beeps []float64
	log   *slog.Logger
}

// ToneConfig holds the tone detector thresholds, all in the units the
// detector consumes directly.
type ToneConfig struct {
	FreqMinHz         float64
	FreqMaxHz         float64
	EnergyThresholdDB float64
	MinDurationSec    float64
	ChunkDurationSec  float64
}

// NewToneDetector builds a detector for one stream.
func NewToneDetector(cfg ToneConfig, log *slog.Logger) *ToneDetector {
	if log == nil {
		log = slog.Default()
	}
	minChunks := int(cfg.MinDurationSec / cfg.ChunkDurationSec)
	if minChunks < 1 {
		minChunks = 1
	}
	return &ToneDetector{
		freqMin:     cfg.FreqMinHz,
		freqMax:     cfg.FreqMaxHz,
		thresholdDB: cfg.EnergyThresholdDB,
		minChunks:   minChunks,
		log:         log,
	}
}

// Analyze inspects one chunk and returns the beep signal for it. Active is
// true only on chunks where the sustained-run condition is met.
func (d *ToneDetector) Analyze(chunk audio.Chunk, timestamp float64) DetectionSignal {
	sig := DetectionSignal{Kind: SignalBeep, Timestamp: timestamp}

	spec := audio.ComputeSpectrum(chunk.Samples, chunk.SampleRate)
	peak, ok := spec.PeakInBand(d.freqMin, d.freqMax)
	if !ok {
		return sig
	}

	if peak <= d.thresholdDB {
		// No partial credit: one non-qualifying chunk resets the run.
		d.run = d.run[:0]
		return sig
	}

	d.run = append(d.run, timestamp)
	if len(d.run) < d.minChunks {
		return sig
	}

	sig.Active = true
	sig.Confidence = clamp01((peak - d.thresholdDB) / 20)
	d.beeps = append(d.beeps, timestamp)
	d.log.Info("beep detected",
		"timestamp", round2(timestamp),
		"energy_db", round2(peak),
		"confidence", round2(sig.Confidence),
	)
	return sig
}

// LastBeep returns the timestamp of the most recently confirmed beep.
func (d *ToneDetector) LastBeep() (timestamp float64, ok bool) {
	if len(d.beeps) == 0 {
		return 0, false
	}
	return d.beeps[len(d.beeps)-1], true
}
