package detect_test

import (
	"errors"
	"math"
	"testing"

	"github.com/clearpath-voice/dropgate/internal/detect"
	"github.com/clearpath-voice/dropgate/pkg/audio"
	vadmock "github.com/clearpath-voice/dropgate/pkg/provider/vad/mock"
)

// sineSamples returns n samples of a sine at freq Hz with the given amplitude.
func sineSamples(freq, amp float64, n, rate int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return out
}

func chunkOf(samples []float64) audio.Chunk {
	return audio.Chunk{Samples: samples, SampleRate: 16000}
}

func TestGate_EnergyFallback(t *testing.T) {
	t.Parallel()
	g := detect.NewVoiceActivityGate(nil, 0.5, -40, 16000, nil)

	if g.IsSpeech(chunkOf(make([]float64, 320))) {
		t.Error("digital silence should not be speech")
	}
	// 500 Hz at amplitude 0.05: RMS about -29 dBFS, above the -40 floor.
	if !g.IsSpeech(chunkOf(sineSamples(500, 0.05, 320, 16000))) {
		t.Error("audible tone should be speech under the energy fallback")
	}
	if g.Degraded() {
		t.Error("energy-only gate is not a degradation")
	}
}

func TestGate_ClassifierThreshold(t *testing.T) {
	t.Parallel()
	m := &vadmock.Classifier{Probability: 0.7}
	g := detect.NewVoiceActivityGate(m, 0.5, -40, 16000, nil)

	if !g.IsSpeech(chunkOf(make([]float64, 320))) {
		t.Error("probability 0.7 > threshold 0.5 should be speech, regardless of energy")
	}

	m.Probability = 0.3
	if g.IsSpeech(chunkOf(sineSamples(500, 0.5, 320, 16000))) {
		t.Error("probability 0.3 < threshold should not be speech, regardless of energy")
	}
}

func TestGate_StartupProbeFailureDegrades(t *testing.T) {
	t.Parallel()
	m := &vadmock.Classifier{Err: errors.New("model not loaded")}
	g := detect.NewVoiceActivityGate(m, 0.5, -40, 16000, nil)

	if !g.Degraded() {
		t.Fatal("failed probe should degrade the gate")
	}
	// Degraded gate runs on energy; the failing classifier is not consulted.
	calls := len(m.Calls)
	if g.IsSpeech(chunkOf(make([]float64, 320))) {
		t.Error("silent chunk should not be speech after degradation")
	}
	if len(m.Calls) != calls {
		t.Error("degraded gate must not call the classifier")
	}
}

func TestGate_TransientErrorAssumesSpeech(t *testing.T) {
	t.Parallel()
	// Probe succeeds, then the classifier starts failing.
	m := &vadmock.Classifier{Probabilities: []float64{0.0}}
	g := detect.NewVoiceActivityGate(m, 0.5, -40, 16000, nil)
	if g.Degraded() {
		t.Fatal("successful probe should not degrade")
	}

	m.Err = errors.New("inference failed")
	if !g.IsSpeech(chunkOf(make([]float64, 320))) {
		t.Error("transient classifier error must be treated as speech")
	}
}
