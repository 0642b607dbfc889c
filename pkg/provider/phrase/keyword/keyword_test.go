package keyword

import (
	"context"
	"slices"
	"testing"
)

func TestAnalyzeTranscript_Matches(t *testing.T) {
	a := New()
	v, err := a.AnalyzeTranscript(context.Background(), "Please leave a message after the tone.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.IsGreetingEnd {
		t.Error("IsGreetingEnd = false, want true")
	}
	want := []string{"after the tone", "leave a message"}
	for _, p := range want {
		if !slices.Contains(v.EndPhrases, p) {
			t.Errorf("EndPhrases %v missing %q", v.EndPhrases, p)
		}
	}
	if len(v.EndPhrases) != 2 {
		t.Errorf("EndPhrases = %v, want exactly %v", v.EndPhrases, want)
	}
	if !v.BeepExpected {
		t.Error("BeepExpected = false, want true (mentions tone)")
	}
	if v.Confidence != 0.7 {
		t.Errorf("Confidence = %v, want 0.7", v.Confidence)
	}
}

func TestAnalyzeTranscript_NoMatch(t *testing.T) {
	a := New()
	v, err := a.AnalyzeTranscript(context.Background(), "Hi, you've reached the sales department.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.IsGreetingEnd {
		t.Error("IsGreetingEnd = true, want false")
	}
	if v.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0", v.Confidence)
	}
	if v.BeepExpected {
		t.Error("BeepExpected = true, want false")
	}
}

func TestAnalyzeTranscript_CaseInsensitive(t *testing.T) {
	a := New()
	v, _ := a.AnalyzeTranscript(context.Background(), "LEAVE YOUR MESSAGE AFTER THE BEEP")
	if !v.IsGreetingEnd {
		t.Error("uppercase transcript should still match")
	}
}

func TestAnalyzeTranscript_BeepWordWithoutCuePhrase(t *testing.T) {
	a := New()
	v, _ := a.AnalyzeTranscript(context.Background(), "you will hear a beep shortly")
	if v.IsGreetingEnd {
		t.Error("IsGreetingEnd = true, want false (no cue phrase)")
	}
	if !v.BeepExpected {
		t.Error("BeepExpected = false, want true")
	}
	if v.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0 without a cue phrase", v.Confidence)
	}
}

func TestAnalyzeTranscript_Empty(t *testing.T) {
	a := New()
	v, _ := a.AnalyzeTranscript(context.Background(), "")
	if v.IsGreetingEnd || v.BeepExpected || v.Confidence != 0 {
		t.Errorf("empty transcript verdict = %+v, want zero verdict", v)
	}
}

func TestNewWithPhrases(t *testing.T) {
	a := NewWithPhrases([]string{"Nachricht hinterlassen"})
	v, _ := a.AnalyzeTranscript(context.Background(), "bitte eine nachricht hinterlassen")
	if !v.IsGreetingEnd {
		t.Error("custom phrase list should match case-insensitively")
	}
}
