package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// pcmFormatTag is the WAVE format code for uncompressed integer PCM.
const pcmFormatTag = 1

// ErrNotWAV is returned when the input does not carry a RIFF/WAVE header.
var ErrNotWAV = errors.New("audio: not a RIFF/WAVE file")

// DecodeWAV reads an uncompressed PCM WAV stream and returns its samples
// down-mixed to mono as normalised float64 amplitudes, along with the native
// sample rate. 8-bit unsigned and 16-bit signed PCM are supported; other
// encodings return an error.
func DecodeWAV(r io.Reader) ([]float64, int, error) {
	var riff struct {
		ChunkID   [4]byte
		ChunkSize uint32
		Format    [4]byte
	}
	if err := binary.Read(r, binary.LittleEndian, &riff); err != nil {
		return nil, 0, fmt.Errorf("audio: read RIFF header: %w", err)
	}
	if string(riff.ChunkID[:]) != "RIFF" || string(riff.Format[:]) != "WAVE" {
		return nil, 0, ErrNotWAV
	}

	var (
		channels      int
		sampleRate    int
		bitsPerSample int
		haveFmt       bool
	)

	// Walk sub-chunks until the data chunk. LIST/fact/cue chunks written by
	// common encoders are skipped.
	for {
		var hdr struct {
			ID   [4]byte
			Size uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, 0, fmt.Errorf("audio: missing data chunk: %w", err)
			}
			return nil, 0, fmt.Errorf("audio: read chunk header: %w", err)
		}

		switch string(hdr.ID[:]) {
		case "fmt ":
			body := make([]byte, hdr.Size)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, 0, fmt.Errorf("audio: read fmt chunk: %w", err)
			}
			if len(body) < 16 {
				return nil, 0, fmt.Errorf("audio: fmt chunk too short (%d bytes)", len(body))
			}
			format := binary.LittleEndian.Uint16(body[0:2])
			if format != pcmFormatTag {
				return nil, 0, fmt.Errorf("audio: unsupported WAV format tag %d (want PCM)", format)
			}
			channels = int(binary.LittleEndian.Uint16(body[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(body[14:16]))
			if channels < 1 || sampleRate < 1 {
				return nil, 0, fmt.Errorf("audio: invalid WAV format: %d channels, %d Hz", channels, sampleRate)
			}
			haveFmt = true

		case "data":
			if !haveFmt {
				return nil, 0, errors.New("audio: data chunk precedes fmt chunk")
			}
			body := make([]byte, hdr.Size)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, 0, fmt.Errorf("audio: read data chunk: %w", err)
			}
			samples, err := decodePCM(body, bitsPerSample)
			if err != nil {
				return nil, 0, err
			}
			return DownmixMono(samples, channels), sampleRate, nil

		default:
			// Chunk bodies are word-aligned; a padding byte follows odd sizes.
			skip := int64(hdr.Size)
			if hdr.Size%2 == 1 {
				skip++
			}
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				return nil, 0, fmt.Errorf("audio: skip %q chunk: %w", hdr.ID[:], err)
			}
		}
	}
}

// LoadWAV decodes the WAV file at path, down-mixes to mono, resamples to
// targetRate, and peak-normalises the result.
func LoadWAV(path string, targetRate int) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: open %q: %w", path, err)
	}
	defer f.Close()

	samples, rate, err := DecodeWAV(f)
	if err != nil {
		return nil, fmt.Errorf("audio: decode %q: %w", path, err)
	}
	samples = Resample(samples, rate, targetRate)
	Normalize(samples)
	return samples, nil
}

func decodePCM(data []byte, bitsPerSample int) ([]float64, error) {
	switch bitsPerSample {
	case 16:
		return PCMToFloat64(data), nil
	case 8:
		// 8-bit WAV PCM is unsigned with a 128 midpoint.
		samples := make([]float64, len(data))
		for i, b := range data {
			samples[i] = (float64(b) - 128) / 128.0
		}
		return samples, nil
	default:
		return nil, fmt.Errorf("audio: unsupported bit depth %d (want 8 or 16)", bitsPerSample)
	}
}
