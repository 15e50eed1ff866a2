package audio

import (
	"bytes"
	"reflect"
	"testing"
)

const envelopeDoc = `{
	"steps": [
		{"x": 0, "y": 0, "ramper": {"type": "instant"}},
		{"x": 0.1, "y": 1, "ramper": {"type": "exponential", "exponent": 0.5}},
		{"x": 0.4, "y": 0.6, "ramper": {"type": "linear"}},
		{"x": 1, "y": 0, "ramper": {"type": "exponential", "exponent": 2}}
	],
	"lenSamples": 44100,
	"loopPoint": 0.2,
	"releasePoint": 0.8,
	"audioThreadData": {"id": 7, "ui": {"zoom": 1.5}}
}`

func TestParseEnvelope(t *testing.T) {
	cfg, err := ParseEnvelope([]byte(envelopeDoc))
	if err != nil {
		t.Fatal(err)
	}
	if want, got := 44100, cfg.LenSamples; want != got {
		t.Errorf("lenSamples: want %v, got %v", want, got)
	}
	if want, got := 0.8, cfg.ReleasePoint; want != got {
		t.Errorf("releasePoint: want %v, got %v", want, got)
	}
	if !cfg.HasLoop || cfg.LoopPoint != 0.2 {
		t.Errorf("loop not decoded: %+v", cfg)
	}
	wantSteps := []Step{
		{Phase: 0, Value: 0, Ramp: RampInstant},
		{Phase: 0.1, Value: 1, Ramp: RampExponential, Exponent: 0.5},
		{Phase: 0.4, Value: 0.6, Ramp: RampLinear},
		{Phase: 1, Value: 0, Ramp: RampExponential, Exponent: 2},
	}
	if !reflect.DeepEqual(wantSteps, cfg.Steps) {
		t.Errorf("steps: want %v, got %v", wantSteps, cfg.Steps)
	}
}

func TestParseEnvelopeNoLoop(t *testing.T) {
	doc := `{
		"steps": [
			{"x": 0, "y": 0, "ramper": {"type": "instant"}},
			{"x": 1, "y": 1, "ramper": {"type": "linear"}}
		],
		"lenSamples": 1000,
		"loopPoint": null,
		"releasePoint": 1
	}`
	cfg, err := ParseEnvelope([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HasLoop {
		t.Error("null loopPoint should not enable looping")
	}
}

func TestParseEnvelopeLegacy(t *testing.T) {
	// The pre-breakpoint shape. Its three point pairs can't be migrated
	// into a step list, so the parser substitutes the default envelope.
	doc := `{
		"attack": {"pos": 0.1, "magnitude": 1},
		"decay": {"pos": 0.3, "magnitude": 0.7},
		"release": {"pos": 0.8, "magnitude": 0}
	}`
	cfg, err := ParseEnvelope([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if want := DefaultEnvelope(); !reflect.DeepEqual(want, cfg) {
		t.Errorf("want default envelope, got %+v", cfg)
	}
}

func TestParseEnvelopeErrors(t *testing.T) {
	docs := map[string]string{
		"not json":       `{"steps": [`,
		"empty doc":      `{}`,
		"no steps":       `{"lenSamples": 100, "releasePoint": 1}`,
		"unknown ramper": `{"steps": [{"x": 0, "y": 0, "ramper": {"type": "wobbly"}}], "lenSamples": 100, "releasePoint": 1}`,
		"bad phases":     `{"steps": [{"x": 0.5, "y": 0, "ramper": {"type": "instant"}}], "lenSamples": 100, "releasePoint": 1}`,
		"zero length":    `{"steps": [{"x": 0, "y": 0, "ramper": {"type": "instant"}}], "lenSamples": 0, "releasePoint": 1}`,
	}
	for name, doc := range docs {
		if _, err := ParseEnvelope([]byte(doc)); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

// A config that survives a marshal/parse cycle must evaluate identically
// across the whole phase range.
func TestEnvelopeRoundTrip(t *testing.T) {
	cfg, err := ParseEnvelope([]byte(envelopeDoc))
	if err != nil {
		t.Fatal(err)
	}
	data, err := MarshalEnvelope(cfg)
	if err != nil {
		t.Fatal(err)
	}
	back, err := ParseEnvelope(data)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i <= 100; i++ {
		phase := float64(i) / 100
		a := evaluate(cfg.Steps, phase)
		b := evaluate(back.Steps, phase)
		if a != b {
			t.Fatalf("phase %v: %v != %v", phase, a, b)
		}
	}
	if !bytes.Contains(data, []byte(`"zoom":1.5`)) {
		t.Errorf("audioThreadData not carried through: %s", data)
	}
	again, err := MarshalEnvelope(back)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, again) {
		t.Errorf("marshal not stable:\n%s\n%s", data, again)
	}
}

func TestMarshalEnvelopeRejectsInvalid(t *testing.T) {
	cfg := DefaultEnvelope()
	cfg.Steps = nil
	if _, err := MarshalEnvelope(cfg); err == nil {
		t.Error("expected an error")
	}
}
