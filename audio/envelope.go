package audio

import (
	"encoding/json"
	"fmt"
)

// Config describes a breakpoint envelope. Configs are immutable once handed
// to a Generator; changes are made by swapping in a new validated Config.
type Config struct {
	Steps        []Step
	LenSamples   int
	ReleasePoint float64 // phase at which the release segment begins
	LoopPoint    float64
	HasLoop      bool
	MinOutput    float64
	MaxOutput    float64
	LogScale     bool

	// Opaque host data carried through serialization untouched.
	AudioThreadData json.RawMessage
}

func (c *Config) validate() error {
	if len(c.Steps) == 0 {
		return fmt.Errorf("envelope has no steps")
	}
	if c.Steps[0].Phase != 0 {
		return fmt.Errorf("first step must be at phase 0, got %v", c.Steps[0].Phase)
	}
	for i, s := range c.Steps {
		if s.Phase < 0 || s.Phase > 1 {
			return fmt.Errorf("step %d phase out of range: %v", i, s.Phase)
		}
		if i > 0 && s.Phase <= c.Steps[i-1].Phase {
			return fmt.Errorf("step phases must be strictly increasing: step %d at %v after %v",
				i, s.Phase, c.Steps[i-1].Phase)
		}
		if s.Ramp == RampExponential && s.Exponent <= 0 {
			return fmt.Errorf("step %d has invalid exponent: %v", i, s.Exponent)
		}
	}
	if c.LenSamples <= 0 {
		return fmt.Errorf("envelope length must be positive, got %v samples", c.LenSamples)
	}
	if c.ReleasePoint <= 0 || c.ReleasePoint > 1 {
		return fmt.Errorf("release point out of range: %v", c.ReleasePoint)
	}
	if c.HasLoop {
		if c.LoopPoint < 0 || c.LoopPoint >= c.ReleasePoint {
			return fmt.Errorf("loop point %v must be in [0, %v)", c.LoopPoint, c.ReleasePoint)
		}
		// An open-ended step list is only valid for one-shot envelopes.
		if c.Steps[len(c.Steps)-1].Phase != 1 {
			return fmt.Errorf("looping envelope must end with a step at phase 1")
		}
	}
	return nil
}

type gateState int

const (
	gateIdle gateState = iota
	gateHeld
	gateFrozen // held past the release point with no loop; output is locked
	gateReleasing
)

// GateState is the externally visible generator state.
type GateState int

const (
	Idle GateState = iota
	Gated
	Releasing
)

// Generator produces the control signal for one voice. All methods must be
// called from the render thread.
type Generator struct {
	cfg       Config
	phase     float64
	perSample float64 // phase advance per sample, 1 / LenSamples
	state     gateState
	out       float64 // last normalized output
	gateToken uint64  // bumped on every gate, see GateToken
}

func NewGenerator(cfg Config) (*Generator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Generator{
		cfg:       cfg,
		perSample: 1 / float64(cfg.LenSamples),
		out:       evaluate(cfg.Steps, 0),
	}, nil
}

// SetConfig swaps the active config. The in-flight phase is preserved so
// parameter changes during a held note don't click. An invalid config is
// rejected and the previous one stays active.
func (g *Generator) SetConfig(cfg Config) error {
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("envelope config rejected: %w", err)
	}
	g.cfg = cfg
	g.perSample = 1 / float64(cfg.LenSamples)
	return nil
}

func (g *Generator) Config() Config { return g.cfg }

// Gate starts the envelope from phase 0. now is the caller's sample clock;
// it only needs to be distinct between successive gates of the same voice.
func (g *Generator) Gate(now uint64) {
	g.phase = 0
	g.state = gateHeld
	g.gateToken = now
	g.out = evaluate(g.cfg.Steps, 0)
}

// Ungate enters the release segment. A looping envelope re-enters it at the
// release point; a one-shot envelope continues from wherever it is.
func (g *Generator) Ungate() {
	switch g.state {
	case gateHeld, gateFrozen:
		if g.cfg.HasLoop {
			g.phase = g.cfg.ReleasePoint
		}
		g.state = gateReleasing
	}
}

// GateToken returns the timestamp recorded by the most recent Gate. A
// deferred cleanup scheduled at ungate time should capture this value and
// compare it when it fires: a mismatch means the voice was re-gated in the
// meantime and the cleanup must not run.
func (g *Generator) GateToken() uint64 { return g.gateToken }

func (g *Generator) Phase() float64 { return g.phase }

func (g *Generator) State() GateState {
	switch g.state {
	case gateHeld, gateFrozen:
		return Gated
	case gateReleasing:
		return Releasing
	default:
		return Idle
	}
}

// Done reports whether the envelope is idle, i.e. released and run out.
func (g *Generator) Done() bool { return g.state == gateIdle }

// advance moves the phase by one sample and applies loop or freeze
// behavior at the release point.
func (g *Generator) advance() {
	g.phase += g.perSample
	if g.phase > 1 {
		g.phase = 1
	}
	switch g.state {
	case gateHeld:
		if g.phase >= g.cfg.ReleasePoint {
			if g.cfg.HasLoop {
				over := g.phase - g.cfg.ReleasePoint
				size := g.cfg.ReleasePoint - g.cfg.LoopPoint
				for over >= size {
					over -= size
				}
				g.phase = g.cfg.LoopPoint + over
			} else {
				g.phase = g.cfg.ReleasePoint
				g.state = gateFrozen
			}
		}
	case gateReleasing:
		if g.phase >= 1 {
			g.state = gateIdle
		}
	}
}

// Process fills buf with the scaled control signal, advancing one phase
// step per sample. Idle and frozen states hold their value without
// re-evaluating the curve.
func (g *Generator) Process(buf []float32) {
	switch g.state {
	case gateIdle, gateFrozen:
		v := float32(g.cfg.scale(g.out))
		for n := range buf {
			buf[n] = v
		}
		return
	}
	for n := range buf {
		g.advance()
		g.out = evaluate(g.cfg.Steps, g.phase)
		buf[n] = float32(g.cfg.scale(g.out))
		if g.state == gateIdle || g.state == gateFrozen {
			hold := buf[n]
			for m := n + 1; m < len(buf); m++ {
				buf[m] = hold
			}
			return
		}
	}
}

// Value returns the current scaled output without advancing.
func (g *Generator) Value() float64 { return g.cfg.scale(g.out) }
