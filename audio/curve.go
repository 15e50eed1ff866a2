package audio

import (
	"math"
	"sort"
)

// RampKind selects how the envelope approaches a step from the previous one.
type RampKind int

const (
	RampInstant RampKind = iota
	RampLinear
	RampExponential
)

// Step is a single envelope breakpoint. The ramp describes the segment
// ending at this step, i.e. how the value travels from the previous step.
type Step struct {
	Phase    float64 // position in [0, 1]
	Value    float64 // normalized output in [0, 1]
	Ramp     RampKind
	Exponent float64 // only used by RampExponential, must be > 0
}

// evaluate returns the envelope value at phase for an ordered list of steps.
// The exponential ramp applies t^exponent directly to the segment fraction,
// so a segment from 0 to 1 with exponent 2 yields 0.25 at its midpoint.
func evaluate(steps []Step, phase float64) float64 {
	if phase <= steps[0].Phase {
		return steps[0].Value
	}
	last := len(steps) - 1
	if phase >= steps[last].Phase {
		return steps[last].Value
	}
	// First step at or past phase. Ties resolve to the earlier segment.
	i := sort.Search(len(steps), func(n int) bool {
		return steps[n].Phase >= phase
	})
	a, b := steps[i-1], steps[i]

	switch b.Ramp {
	case RampInstant:
		if phase > a.Phase {
			return b.Value
		}
		return a.Value
	case RampLinear:
		t := (phase - a.Phase) / (b.Phase - a.Phase)
		return a.Value + t*(b.Value-a.Value)
	case RampExponential:
		t := (phase - a.Phase) / (b.Phase - a.Phase)
		return a.Value + math.Pow(t, b.Exponent)*(b.Value-a.Value)
	default:
		panic("unhandled ramp kind")
	}
}

// scale maps a normalized envelope value into the configured output range.
// When LogScale is set the value is treated as an exponent of a
// log-frequency mapping, which keeps sweeps perceptually even for
// parameters like filter cutoff.
func (c *Config) scale(v float64) float64 {
	if c.LogScale {
		return c.MinOutput * math.Pow(c.MaxOutput/c.MinOutput, v)
	}
	return c.MinOutput + v*(c.MaxOutput-c.MinOutput)
}
