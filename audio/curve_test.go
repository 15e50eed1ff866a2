package audio

import (
	"math"
	"testing"
)

func TestEvaluateBoundaries(t *testing.T) {
	steps := []Step{
		{Phase: 0, Value: 0.2, Ramp: RampInstant},
		{Phase: 0.5, Value: 1, Ramp: RampLinear},
		{Phase: 1, Value: 0.7, Ramp: RampLinear},
	}
	if want, got := 0.2, evaluate(steps, 0); want != got {
		t.Errorf("evaluate at 0: want %v, got %v", want, got)
	}
	if want, got := 0.2, evaluate(steps, -1); want != got {
		t.Errorf("evaluate below 0: want %v, got %v", want, got)
	}
	if want, got := 0.7, evaluate(steps, 1); want != got {
		t.Errorf("evaluate at 1: want %v, got %v", want, got)
	}
	if want, got := 0.7, evaluate(steps, 2); want != got {
		t.Errorf("evaluate above 1: want %v, got %v", want, got)
	}
}

// Locks in the ramp convention: the exponential applies t^exponent to the
// segment fraction directly, so exponent 2 at the midpoint of a 0..1
// segment yields 0.25.
func TestEvaluateExponential(t *testing.T) {
	steps := []Step{
		{Phase: 0, Value: 0, Ramp: RampInstant},
		{Phase: 1, Value: 1, Ramp: RampExponential, Exponent: 2},
	}
	if want, got := 0.25, evaluate(steps, 0.5); want != got {
		t.Errorf("want %v, got %v", want, got)
	}
	// exponent 1 degenerates to linear
	steps[1].Exponent = 1
	if want, got := 0.5, evaluate(steps, 0.5); want != got {
		t.Errorf("want %v, got %v", want, got)
	}
}

func TestEvaluateInstant(t *testing.T) {
	steps := []Step{
		{Phase: 0, Value: 0.1, Ramp: RampInstant},
		{Phase: 0.5, Value: 0.9, Ramp: RampInstant},
		{Phase: 1, Value: 0.3, Ramp: RampLinear},
	}
	// anywhere inside the segment the destination value has already landed
	if want, got := 0.9, evaluate(steps, 0.25); want != got {
		t.Errorf("mid segment: want %v, got %v", want, got)
	}
	if want, got := 0.9, evaluate(steps, 0.5); want != got {
		t.Errorf("at step: want %v, got %v", want, got)
	}
	if want, got := 0.1, evaluate(steps, 0); want != got {
		t.Errorf("at segment start: want %v, got %v", want, got)
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	steps := DefaultEnvelope().Steps
	for i := 0; i <= 100; i++ {
		phase := float64(i) / 100
		a := evaluate(steps, phase)
		b := evaluate(steps, phase)
		if a != b {
			t.Fatalf("evaluate not pure at phase %v: %v != %v", phase, a, b)
		}
	}
}

func TestScale(t *testing.T) {
	cfg := Config{MinOutput: 100, MaxOutput: 10_000}
	if want, got := 100.0, cfg.scale(0); want != got {
		t.Errorf("linear min: want %v, got %v", want, got)
	}
	if want, got := 10_000.0, cfg.scale(1); want != got {
		t.Errorf("linear max: want %v, got %v", want, got)
	}
	if want, got := 5050.0, cfg.scale(0.5); want != got {
		t.Errorf("linear mid: want %v, got %v", want, got)
	}

	cfg.LogScale = true
	if want, got := 100.0, cfg.scale(0); math.Abs(want-got) > 1e-9 {
		t.Errorf("log min: want %v, got %v", want, got)
	}
	if want, got := 10_000.0, cfg.scale(1); math.Abs(want-got) > 1e-9 {
		t.Errorf("log max: want %v, got %v", want, got)
	}
	// halfway in log space is the geometric mean
	if want, got := 1000.0, cfg.scale(0.5); math.Abs(want-got) > 1e-9 {
		t.Errorf("log mid: want %v, got %v", want, got)
	}
}
