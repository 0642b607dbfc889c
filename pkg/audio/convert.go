package audio

import (
	"encoding/binary"
	"math"
)

// PCMToFloat64 converts 16-bit signed little-endian PCM audio to float64
// samples normalised to the range [-1.0, 1.0]. The input length must be
// even (two bytes per sample); any trailing odd byte is silently ignored.
func PCMToFloat64(pcm []byte) []float64 {
	n := len(pcm) / 2
	samples := make([]float64, n)
	for i := range n {
		sample := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		samples[i] = float64(sample) / 32768.0
	}
	return samples
}

// Float64ToPCM converts normalised float64 samples to 16-bit signed
// little-endian PCM, clipping values outside [-1.0, 1.0].
func Float64ToPCM(samples []float64) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		s = min(max(s, -1.0), 1.0)
		binary.LittleEndian.PutUint16(pcm[i*2:i*2+2], uint16(int16(s*32767)))
	}
	return pcm
}

// DownmixMono averages interleaved multi-channel samples into a single mono
// channel. If channels is 1 the input is returned unchanged. Trailing samples
// that do not form a complete frame are dropped.
func DownmixMono(samples []float64, channels int) []float64 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	mono := make([]float64, frames)
	for i := range frames {
		var sum float64
		for ch := range channels {
			sum += samples[i*channels+ch]
		}
		mono[i] = sum / float64(channels)
	}
	return mono
}

// Resample converts mono samples from srcRate to dstRate using linear
// interpolation. Linear interpolation is adequate for detection purposes;
// the pipeline thresholds are coarse relative to interpolation error.
func Resample(samples []float64, srcRate, dstRate int) []float64 {
	if srcRate == dstRate || len(samples) == 0 {
		return samples
	}
	ratio := float64(srcRate) / float64(dstRate)
	outLen := int(float64(len(samples)) / ratio)
	if outLen == 0 {
		outLen = 1
	}
	out := make([]float64, outLen)
	for i := range outLen {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := pos - float64(idx)
		out[i] = samples[idx]*(1-frac) + samples[idx+1]*frac
	}
	return out
}

// Normalize scales samples in place so the peak absolute amplitude is 1.0.
// An all-zero signal is returned unchanged.
func Normalize(samples []float64) {
	var peak float64
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return
	}
	for i := range samples {
		samples[i] /= peak
	}
}
