// Package llm provides a phrase.Analyzer backed by a large language model via
// github.com/mozilla-ai/any-llm-go, so the backing model (Gemini, OpenAI,
// Ollama, ...) is selectable by name at construction time.
//
// The analyzer prompts the model for a strict-JSON verdict and validates the
// response at the boundary; anything malformed is returned as an error so the
// caller can fall back to deterministic keyword matching.
//
// Usage:
//
//	a, err := llm.New("gemini", "gemini-2.0-flash", anyllmlib.WithAPIKey(key))
//	verdict, err := a.AnalyzeTranscript(ctx, transcript)
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/clearpath-voice/dropgate/pkg/provider/phrase"
)

const promptTemplate = `Analyze this voicemail greeting transcript:
%q

JSON output:
{
  "is_greeting_end": true/false,
  "end_phrases_detected": ["after the beep", "leave message"],
  "beep_expected": true/false,
  "confidence": 0.95
}

Look for phrases indicating the greeting is ending such as:
- "after the beep"
- "leave a message"
- "at the tone"
- "after the tone"
- "leave your message"
- "we'll get back to you"

Return ONLY valid JSON.`

// Analyzer implements phrase.Analyzer on top of an any-llm-go backend.
type Analyzer struct {
	backend anyllmlib.Provider
	model   string
}

// Compile-time interface assertion.
var _ phrase.Analyzer = (*Analyzer)(nil)

// New creates an Analyzer backed by the named LLM provider.
//
// providerName is one of "gemini", "openai", or "ollama". model is the
// specific model to use (e.g., "gemini-2.0-flash", "gpt-4o-mini").
// opts are any-llm-go options (e.g., anyllmlib.WithAPIKey); without an API key
// option the backend falls back to its usual environment variable.
func New(providerName, model string, opts ...anyllmlib.Option) (*Analyzer, error) {
	if providerName == "" {
		return nil, fmt.Errorf("llm: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("llm: model must not be empty")
	}

	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("llm: create %q backend: %w", providerName, err)
	}
	return &Analyzer{backend: backend, model: model}, nil
}

// createBackend creates the underlying any-llm-go provider for the given name.
func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "gemini":
		return gemini.New(opts...)
	case "openai":
		return anyllmoai.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: gemini, openai, ollama", providerName)
	}
}

// AnalyzeTranscript prompts the model and parses its JSON verdict.
func (a *Analyzer) AnalyzeTranscript(ctx context.Context, transcript string) (phrase.Verdict, error) {
	params := anyllmlib.CompletionParams{
		Model: a.model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleUser, Content: fmt.Sprintf(promptTemplate, transcript)},
		},
	}

	resp, err := a.backend.Completion(ctx, params)
	if err != nil {
		return phrase.Verdict{}, fmt.Errorf("llm: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return phrase.Verdict{}, fmt.Errorf("llm: empty choices in response")
	}

	return ParseVerdict(resp.Choices[0].Message.ContentString())
}

// verdictWire is the JSON schema the model is asked to emit.
type verdictWire struct {
	IsGreetingEnd      bool     `json:"is_greeting_end"`
	EndPhrasesDetected []string `json:"end_phrases_detected"`
	BeepExpected       bool     `json:"beep_expected"`
	Confidence         float64  `json:"confidence"`
}

// ParseVerdict decodes a model response into a validated Verdict. Markdown
// code fences around the JSON body are tolerated since many models add them
// despite instructions.
func ParseVerdict(text string) (phrase.Verdict, error) {
	body := stripCodeFence(strings.TrimSpace(text))

	var wire verdictWire
	if err := json.Unmarshal([]byte(body), &wire); err != nil {
		return phrase.Verdict{}, fmt.Errorf("llm: parse verdict JSON: %w", err)
	}

	v := phrase.Verdict{
		IsGreetingEnd: wire.IsGreetingEnd,
		EndPhrases:    wire.EndPhrasesDetected,
		BeepExpected:  wire.BeepExpected,
		Confidence:    wire.Confidence,
	}
	return v.Normalized(), nil
}

// stripCodeFence removes a surrounding ``` or ```json fence, if present.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
