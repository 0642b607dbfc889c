package detect_test

import (
	"testing"

	"github.com/clearpath-voice/dropgate/internal/detect"
)

func testToneConfig() detect.ToneConfig {
	return detect.ToneConfig{
		FreqMinHz:         1000,
		FreqMaxHz:         2000,
		EnergyThresholdDB: -20,
		MinDurationSec:    0.2,
		ChunkDurationSec:  0.02,
	}
}

func TestTone_ConfirmsAfterSustainedRun(t *testing.T) {
	t.Parallel()
	d := detect.NewToneDetector(testToneConfig(), nil)
	beep := sineSamples(1500, 0.5, 320, 16000)

	ts := 0.0
	for i := 0; i < 9; i++ {
		sig := d.Analyze(chunkOf(beep), ts)
		if sig.Active {
			t.Fatalf("chunk %d: beep confirmed before the minimum run of 10", i)
		}
		ts += 0.02
	}

	sig := d.Analyze(chunkOf(beep), ts)
	if !sig.Active {
		t.Fatal("10th consecutive qualifying chunk should confirm the beep")
	}
	if sig.Confidence <= 0 || sig.Confidence > 1 {
		t.Errorf("confidence = %v, want in (0, 1]", sig.Confidence)
	}
	if last, ok := d.LastBeep(); !ok || last != ts {
		t.Errorf("LastBeep = %v, %v; want %v, true", last, ok, ts)
	}
}

func TestTone_GapResetsRun(t *testing.T) {
	t.Parallel()
	d := detect.NewToneDetector(testToneConfig(), nil)
	beep := sineSamples(1500, 0.5, 320, 16000)
	quiet := make([]float64, 320)

	ts := 0.0
	for i := 0; i < 9; i++ {
		d.Analyze(chunkOf(beep), ts)
		ts += 0.02
	}
	// One non-qualifying chunk: no partial credit.
	d.Analyze(chunkOf(quiet), ts)
	ts += 0.02

	for i := 0; i < 9; i++ {
		sig := d.Analyze(chunkOf(beep), ts)
		if sig.Active {
			t.Fatalf("post-gap chunk %d: run must restart from zero", i)
		}
		ts += 0.02
	}
	if _, ok := d.LastBeep(); ok {
		t.Error("no beep should have been confirmed")
	}
}

func TestTone_OutOfBandToneIgnored(t *testing.T) {
	t.Parallel()
	d := detect.NewToneDetector(testToneConfig(), nil)
	// 500 Hz sits below the band; a strong tone there must not qualify.
	low := sineSamples(500, 0.9, 320, 16000)

	ts := 0.0
	for i := 0; i < 20; i++ {
		if sig := d.Analyze(chunkOf(low), ts); sig.Active {
			t.Fatal("out-of-band tone must not confirm a beep")
		}
		ts += 0.02
	}
}

func TestTone_ConfidenceScalesWithEnergy(t *testing.T) {
	t.Parallel()
	confirm := func(amp float64) float64 {
		d := detect.NewToneDetector(testToneConfig(), nil)
		beep := sineSamples(1500, amp, 320, 16000)
		ts := 0.0
		var conf float64
		for i := 0; i < 10; i++ {
			sig := d.Analyze(chunkOf(beep), ts)
			if sig.Active {
				conf = sig.Confidence
			}
			ts += 0.02
		}
		return conf
	}

	loud := confirm(0.9)
	if loud != 1.0 {
		// A full-scale tone is far above threshold + 20 dB.
		t.Errorf("loud beep confidence = %v, want clamped to 1.0", loud)
	}
	if quiet := confirm(0.002); quiet >= loud && quiet != 0 {
		t.Errorf("quieter beep should not out-score a loud one: quiet=%v loud=%v", quiet, loud)
	}
}
