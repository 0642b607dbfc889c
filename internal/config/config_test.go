package config

import (
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDuration_UnmarshalYAML(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: `"1.5s"`, want: 1500 * time.Millisecond},
		{in: `"200ms"`, want: 200 * time.Millisecond},
		{in: `"30s"`, want: 30 * time.Second},
		{in: `"abc"`, wantErr: true},
		{in: `"1.5"`, wantErr: true},
		{in: `[1, 2]`, wantErr: true},
	}
	for _, tc := range tests {
		var d Duration
		err := yaml.Unmarshal([]byte(tc.in), &d)
		if tc.wantErr {
			if err == nil {
				t.Errorf("Unmarshal(%s): expected error, got nil", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("Unmarshal(%s): %v", tc.in, err)
			continue
		}
		if d.Std() != tc.want {
			t.Errorf("Unmarshal(%s) = %s, want %s", tc.in, d.Std(), tc.want)
		}
	}
}

func TestDuration_MarshalRoundTrip(t *testing.T) {
	t.Parallel()
	orig := Duration(1500 * time.Millisecond)
	out, err := yaml.Marshal(orig)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back Duration
	if err := yaml.Unmarshal(out, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back != orig {
		t.Errorf("round trip = %s, want %s", back.Std(), orig.Std())
	}
}

func TestLogLevel_IsValid(t *testing.T) {
	t.Parallel()
	for _, l := range []LogLevel{LogDebug, LogInfo, LogWarn, LogError} {
		if !l.IsValid() {
			t.Errorf("%q should be valid", l)
		}
	}
	if LogLevel("trace").IsValid() {
		t.Error("\"trace\" should not be valid")
	}
}

func TestDefault_PassesValidation(t *testing.T) {
	t.Parallel()
	if err := Validate(Default()); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}
