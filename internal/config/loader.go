package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per capability kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"vad":    {"silero"},
	"stt":    {"deepgram", "whisper"},
	"phrase": {"gemini", "openai", "ollama", "keyword"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over the defaults and validates
// the result. Keys absent from the YAML keep their [Default] values.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	d := cfg.Detection
	if d.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("detection.sample_rate %d must be positive", d.SampleRate))
	}
	if d.ChunkDurationMs <= 0 {
		errs = append(errs, fmt.Errorf("detection.chunk_duration_ms %d must be positive", d.ChunkDurationMs))
	}
	if d.VADThreshold < 0 || d.VADThreshold > 1 {
		errs = append(errs, fmt.Errorf("detection.vad_threshold %.2f is out of range [0, 1]", d.VADThreshold))
	}
	if d.ConfidenceThreshold < 0 || d.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("detection.confidence_threshold %.2f is out of range [0, 1]", d.ConfidenceThreshold))
	}
	if d.SilenceThresholdDB >= 0 {
		errs = append(errs, fmt.Errorf("detection.silence_threshold_db %.1f must be negative (dBFS)", d.SilenceThresholdDB))
	}
	if d.SilenceDuration <= 0 {
		errs = append(errs, fmt.Errorf("detection.silence_duration %s must be positive", d.SilenceDuration.Std()))
	}
	if d.BeepFreqMinHz <= 0 || d.BeepFreqMaxHz <= d.BeepFreqMinHz {
		errs = append(errs, fmt.Errorf("detection beep band [%.0f, %.0f] Hz is invalid; min must be positive and below max", d.BeepFreqMinHz, d.BeepFreqMaxHz))
	}
	if nyquist := float64(d.SampleRate) / 2; d.SampleRate > 0 && d.BeepFreqMaxHz > nyquist {
		errs = append(errs, fmt.Errorf("detection.beep_freq_max_hz %.0f exceeds the Nyquist frequency %.0f for sample rate %d", d.BeepFreqMaxHz, nyquist, d.SampleRate))
	}
	if d.BeepMinDuration <= 0 {
		errs = append(errs, fmt.Errorf("detection.beep_min_duration %s must be positive", d.BeepMinDuration.Std()))
	}

	s := cfg.Safety
	if s.MinGreetingLength < 0 {
		errs = append(errs, fmt.Errorf("safety.min_greeting_length %s must not be negative", s.MinGreetingLength.Std()))
	}
	if s.MaxGreetingLength <= s.MinGreetingLength {
		errs = append(errs, fmt.Errorf("safety.max_greeting_length %s must exceed min_greeting_length %s", s.MaxGreetingLength.Std(), s.MinGreetingLength.Std()))
	}
	if s.MinBufferBeep < 0 {
		errs = append(errs, fmt.Errorf("safety.min_buffer_beep %s must not be negative", s.MinBufferBeep.Std()))
	}
	if s.MinBufferSilence < 0 {
		errs = append(errs, fmt.Errorf("safety.min_buffer_silence %s must not be negative", s.MinBufferSilence.Std()))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("vad", cfg.Providers.VAD.Name)
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("phrase", cfg.Providers.Phrase.Name)

	// Capability availability warnings. Absence degrades rather than fails.
	if cfg.Providers.STT.Name == "" {
		slog.Info("no STT provider configured; phrase analysis will be inactive")
	} else if cfg.Providers.Phrase.Name == "" {
		slog.Info("no phrase provider configured; falling back to keyword matching on transcripts")
	}
	if cfg.Providers.VAD.Name == "" {
		slog.Info("no VAD provider configured; using energy-based speech detection")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
