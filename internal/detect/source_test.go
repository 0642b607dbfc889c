package detect_test

import (
	"errors"
	"testing"
	"time"

	"github.com/clearpath-voice/dropgate/internal/detect"
)

func TestChunkSource_FixedSizeAndTimestamps(t *testing.T) {
	t.Parallel()
	samples := make([]float64, 800) // 2.5 chunks at 320 samples
	src := detect.NewChunkSource(samples, 16000, 20*time.Millisecond)

	var chunks int
	var lastTS time.Duration
	for {
		chunk, ok := src.Next()
		if !ok {
			break
		}
		if len(chunk.Samples) != 320 {
			t.Fatalf("chunk %d has %d samples, want 320", chunks, len(chunk.Samples))
		}
		if want := time.Duration(chunks) * 20 * time.Millisecond; chunk.Timestamp != want {
			t.Errorf("chunk %d timestamp = %s, want %s", chunks, chunk.Timestamp, want)
		}
		lastTS = chunk.Timestamp
		chunks++
	}
	if chunks != 3 {
		t.Errorf("got %d chunks, want 3 (last one padded)", chunks)
	}
	if lastTS != 40*time.Millisecond {
		t.Errorf("last timestamp = %s, want 40ms", lastTS)
	}
}

func TestChunkSource_LastChunkZeroPadded(t *testing.T) {
	t.Parallel()
	samples := make([]float64, 500)
	for i := range samples {
		samples[i] = 0.5
	}
	src := detect.NewChunkSource(samples, 16000, 20*time.Millisecond)

	src.Next() // full chunk
	chunk, ok := src.Next()
	if !ok {
		t.Fatal("expected a second chunk")
	}
	if chunk.Samples[179] != 0.5 {
		t.Error("real samples should precede the padding")
	}
	for i := 180; i < 320; i++ {
		if chunk.Samples[i] != 0 {
			t.Fatalf("sample %d = %v, want zero padding", i, chunk.Samples[i])
		}
	}
}

func TestChunkSource_NonRestartable(t *testing.T) {
	t.Parallel()
	src := detect.NewChunkSource(make([]float64, 320), 16000, 20*time.Millisecond)

	if _, ok := src.Next(); !ok {
		t.Fatal("expected one chunk")
	}
	if _, ok := src.Next(); ok {
		t.Fatal("exhausted source must stay exhausted")
	}
	if _, ok := src.Next(); ok {
		t.Fatal("exhausted source must stay exhausted on repeat calls")
	}
}

func TestChunkSource_TotalDuration(t *testing.T) {
	t.Parallel()
	src := detect.NewChunkSource(make([]float64, 16000), 16000, 20*time.Millisecond)
	if got := src.TotalDuration(); got != time.Second {
		t.Errorf("TotalDuration = %s, want 1s", got)
	}
}

func TestOpenWAV_UnreadableFileIsSourceError(t *testing.T) {
	t.Parallel()
	_, err := detect.OpenWAV("testdata/does-not-exist.wav", 16000, 20*time.Millisecond)
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
	var srcErr *detect.SourceError
	if !errors.As(err, &srcErr) {
		t.Fatalf("error should be a SourceError, got %T: %v", err, err)
	}
	if srcErr.Path != "testdata/does-not-exist.wav" {
		t.Errorf("SourceError path = %q", srcErr.Path)
	}
}
