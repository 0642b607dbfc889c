package audio

import (
	"math"
	"testing"
)

// sine generates n samples of a pure tone at freq Hz.
func sine(freq float64, amplitude float64, n, sampleRate int) []float64 {
	samples := make([]float64, n)
	for i := range n {
		samples[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return samples
}

func TestRMS(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Errorf("RMS(nil) = %v, want 0", got)
	}
	// A constant signal of 0.5 has RMS 0.5.
	samples := []float64{0.5, 0.5, 0.5, 0.5}
	if got := RMS(samples); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("RMS = %v, want 0.5", got)
	}
	// A full-scale sine has RMS 1/√2.
	s := sine(1000, 1.0, 16000, 16000)
	if got := RMS(s); math.Abs(got-1/math.Sqrt2) > 1e-3 {
		t.Errorf("sine RMS = %v, want %v", got, 1/math.Sqrt2)
	}
}

func TestRMSdB_Silence(t *testing.T) {
	silence := make([]float64, 320)
	got := RMSdB(silence)
	if got > -199 || got < -201 {
		t.Errorf("RMSdB(silence) = %v, want ≈-200 (epsilon floor)", got)
	}
}

func TestComputeSpectrum_PureTone(t *testing.T) {
	const sampleRate = 16000
	samples := sine(1500, 0.8, 320, sampleRate)
	spec := ComputeSpectrum(samples, sampleRate)

	inBand, ok := spec.PeakInBand(1000, 2000)
	if !ok {
		t.Fatal("no bins in 1000–2000 Hz band")
	}
	outBand, ok := spec.PeakInBand(4000, 6000)
	if !ok {
		t.Fatal("no bins in 4000–6000 Hz band")
	}
	if inBand-outBand < 20 {
		t.Errorf("in-band peak %v dB not dominant over out-of-band %v dB", inBand, outBand)
	}
}

func TestComputeSpectrum_BinWidth(t *testing.T) {
	// 320 samples at 16 kHz: 160 positive bins, 50 Hz apart.
	spec := ComputeSpectrum(make([]float64, 320), 16000)
	if len(spec.MagnitudesDB) != 160 {
		t.Errorf("positive bins = %d, want 160", len(spec.MagnitudesDB))
	}
	want := 16000.0 / 320.0
	if math.Abs(spec.BinWidth-want) > 1e-9 {
		t.Errorf("BinWidth = %v, want %v", spec.BinWidth, want)
	}
}

func TestComputeSpectrum_NoLeakageForBinAlignedTone(t *testing.T) {
	// 500 Hz is exactly bin 10 of a 320-point transform at 16 kHz; a strong
	// tone there must leave the 1000–2000 Hz band at the noise floor.
	samples := sine(500, 0.9, 320, 16000)
	spec := ComputeSpectrum(samples, 16000)
	peak, ok := spec.PeakInBand(1000, 2000)
	if !ok {
		t.Fatal("no bins in band")
	}
	if peak > -60 {
		t.Errorf("in-band leakage = %v dB, want below -60", peak)
	}
}

func TestComputeSpectrum_Empty(t *testing.T) {
	spec := ComputeSpectrum(nil, 16000)
	if len(spec.MagnitudesDB) != 0 {
		t.Errorf("expected empty spectrum, got %d bins", len(spec.MagnitudesDB))
	}
	if _, ok := spec.PeakInBand(0, 8000); ok {
		t.Error("PeakInBand on empty spectrum should report ok=false")
	}
}

func TestPeakInBand_EmptyRange(t *testing.T) {
	spec := ComputeSpectrum(make([]float64, 320), 16000)
	if _, ok := spec.PeakInBand(100, 99); ok {
		t.Error("inverted band should report ok=false")
	}
}

func TestFFT_MatchesDFTDefinition(t *testing.T) {
	// Spot-check the transform against a direct DFT on a small input.
	samples := []float64{1, 0.5, -0.25, 0.75}
	buf := make([]complex128, 4)
	for i, s := range samples {
		buf[i] = complex(s, 0)
	}
	fft(buf)

	for k := range 4 {
		var want complex128
		for n, s := range samples {
			angle := -2 * math.Pi * float64(k) * float64(n) / 4
			want += complex(s*math.Cos(angle), s*math.Sin(angle))
		}
		if math.Abs(real(buf[k])-real(want)) > 1e-9 || math.Abs(imag(buf[k])-imag(want)) > 1e-9 {
			t.Errorf("bin %d = %v, want %v", k, buf[k], want)
		}
	}
}
