package audio

import (
	"encoding/json"
	"fmt"
)

// The wire format for envelopes, shared with the UI layer and presets on
// disk. Phases are normalized to [0, 1].
//
//	{
//	  "steps": [{"x": 0, "y": 0, "ramper": {"type": "instant"}}, ...],
//	  "lenSamples": 44100,
//	  "loopPoint": null,
//	  "releasePoint": 0.8,
//	  "audioThreadData": {...}
//	}
type envelopeJSON struct {
	Steps           []stepJSON      `json:"steps"`
	LenSamples      float64         `json:"lenSamples"`
	LoopPoint       *float64        `json:"loopPoint"`
	ReleasePoint    float64         `json:"releasePoint"`
	AudioThreadData json.RawMessage `json:"audioThreadData,omitempty"`
}

type stepJSON struct {
	X      float64    `json:"x"`
	Y      float64    `json:"y"`
	Ramper ramperJSON `json:"ramper"`
}

type ramperJSON struct {
	Type     string  `json:"type"`
	Exponent float64 `json:"exponent,omitempty"`
}

// envelopeProbe decides the decode path: current documents have a steps
// array, legacy ones describe the envelope as attack/decay/release point
// pairs. Anything else is malformed.
type envelopeProbe struct {
	Steps   json.RawMessage `json:"steps"`
	Attack  json.RawMessage `json:"attack"`
	Decay   json.RawMessage `json:"decay"`
	Release json.RawMessage `json:"release"`
}

// ParseEnvelope decodes a serialized envelope into a validated Config.
// Legacy documents are replaced wholesale with the default envelope: the
// old shape cannot express breakpoints, so substituting a known-good
// default loses nothing that could be migrated faithfully.
func ParseEnvelope(data []byte) (Config, error) {
	var probe envelopeProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return Config{}, fmt.Errorf("parse envelope: %w", err)
	}
	if probe.Steps == nil {
		if probe.Attack != nil || probe.Decay != nil || probe.Release != nil {
			return DefaultEnvelope(), nil
		}
		return Config{}, fmt.Errorf("parse envelope: no steps")
	}

	var doc envelopeJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return Config{}, fmt.Errorf("parse envelope: %w", err)
	}

	cfg := Config{
		LenSamples:      int(doc.LenSamples),
		ReleasePoint:    doc.ReleasePoint,
		MinOutput:       0,
		MaxOutput:       1,
		AudioThreadData: doc.AudioThreadData,
	}
	if doc.LoopPoint != nil {
		cfg.HasLoop = true
		cfg.LoopPoint = *doc.LoopPoint
	}
	for i, s := range doc.Steps {
		step := Step{Phase: s.X, Value: s.Y}
		switch s.Ramper.Type {
		case "instant":
			step.Ramp = RampInstant
		case "linear":
			step.Ramp = RampLinear
		case "exponential":
			step.Ramp = RampExponential
			step.Exponent = s.Ramper.Exponent
		default:
			return Config{}, fmt.Errorf("parse envelope: step %d has unknown ramper %q", i, s.Ramper.Type)
		}
		cfg.Steps = append(cfg.Steps, step)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("parse envelope: %w", err)
	}
	return cfg, nil
}

// MarshalEnvelope re-emits the wire shape for a Config, including the
// opaque audioThreadData it was parsed with.
func MarshalEnvelope(cfg Config) ([]byte, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	doc := envelopeJSON{
		LenSamples:      float64(cfg.LenSamples),
		ReleasePoint:    cfg.ReleasePoint,
		AudioThreadData: cfg.AudioThreadData,
	}
	if cfg.HasLoop {
		lp := cfg.LoopPoint
		doc.LoopPoint = &lp
	}
	for _, step := range cfg.Steps {
		s := stepJSON{X: step.Phase, Y: step.Value}
		switch step.Ramp {
		case RampInstant:
			s.Ramper.Type = "instant"
		case RampLinear:
			s.Ramper.Type = "linear"
		case RampExponential:
			s.Ramper.Type = "exponential"
			s.Ramper.Exponent = step.Exponent
		}
		doc.Steps = append(doc.Steps, s)
	}
	return json.Marshal(doc)
}
