package audio

import "fmt"

type Device interface {
	Set(key string, val interface{}) error
	Get(key string) (interface{}, error)
}

// DefaultEnvelope is a classic ADSR shape expressed as breakpoints: fast
// convex attack, linear decay into a sustain plateau, exponential release.
// It is also what legacy serialized envelopes are replaced with.
func DefaultEnvelope() Config {
	return Config{
		Steps: []Step{
			{Phase: 0, Value: 0, Ramp: RampInstant},
			{Phase: 0.05, Value: 1, Ramp: RampExponential, Exponent: 0.5},
			{Phase: 0.3, Value: 0.8, Ramp: RampLinear},
			{Phase: 1, Value: 0, Ramp: RampExponential, Exponent: 2},
		},
		LenSamples:   sampleRate, // one second end to end
		ReleasePoint: 0.8,
		MinOutput:    0,
		MaxOutput:    1,
	}
}

// DefaultCutoffEnvelope sweeps a filter between 100Hz and 12kHz. The log
// scale keeps the sweep perceptually even across the range.
func DefaultCutoffEnvelope() Config {
	return Config{
		Steps: []Step{
			{Phase: 0, Value: 1, Ramp: RampInstant},
			{Phase: 0.4, Value: 0.5, Ramp: RampExponential, Exponent: 2},
			{Phase: 1, Value: 0, Ramp: RampLinear},
		},
		LenSamples:   sampleRate / 2,
		ReleasePoint: 0.7,
		MinOutput:    100,
		MaxOutput:    12000,
		LogScale:     true,
	}
}

// WobbleEnvelope loops between two plateaus while gated, for tremolo-style
// modulation.
func WobbleEnvelope() Config {
	return Config{
		Steps: []Step{
			{Phase: 0, Value: 0, Ramp: RampInstant},
			{Phase: 0.2, Value: 1, Ramp: RampLinear},
			{Phase: 0.5, Value: 0.3, Ramp: RampLinear},
			{Phase: 0.8, Value: 1, Ramp: RampLinear},
			{Phase: 1, Value: 0, Ramp: RampExponential, Exponent: 2},
		},
		LenSamples:   sampleRate / 4,
		ReleasePoint: 0.8,
		LoopPoint:    0.2,
		HasLoop:      true,
		MinOutput:    0,
		MaxOutput:    1,
	}
}

type preset map[string]interface{}

var presets = map[string]preset{
	"lame-bass": {
		"level":     3.,
		"osc1.wave": "saw",
		"osc2.wave": "saw",
	},
	"wobble": {
		"level":   0.,
		"env.amp": WobbleEnvelope(),
	},
}

func LoadPreset(name string, d Device) error {
	p, ok := presets[name]
	if !ok {
		return fmt.Errorf("unknown preset: %v", name)
	}
	for k, v := range p {
		if err := d.Set(k, v); err != nil {
			return err
		}
	}
	return nil
}

func PresetNames() []string {
	var names []string
	for name := range presets {
		names = append(names, name)
	}
	return names
}
