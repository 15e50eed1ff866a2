package audio

import (
	"fmt"
	"math"
	"sync/atomic"
)

const (
	propCutoffEnv = "env.cutoff"
	propAmpEnv    = "env.amp"
	propOsc1Wave  = "osc1.wave"
	propOsc2Wave  = "osc2.wave"
)

func Synth(props *Props) *Instrument {
	var (
		ampEnv    = props.MustRegister(propAmpEnv, setEnvelope, DefaultEnvelope())
		cutoffEnv = props.MustRegister(propCutoffEnv, setEnvelope, DefaultCutoffEnvelope())
		osc1Wave  = props.MustRegister(propOsc1Wave, setWaveform, "saw")
		osc2Wave  = props.MustRegister(propOsc2Wave, setWaveform, "square")
	)
	voices := make([]Voice, numVoices)
	for n := range voices {
		amp, err := NewGenerator(DefaultEnvelope())
		if err != nil {
			panic(err)
		}
		cutoff, err := NewGenerator(DefaultCutoffEnvelope())
		if err != nil {
			panic(err)
		}
		voices[n] = &synthVoice{
			ampCfg:    ampEnv,
			cutoffCfg: cutoffEnv,
			osc1Wave:  osc1Wave,
			osc2Wave:  osc2Wave,
			state:     stateFree,
			osc1:      &osc{},
			osc2:      &osc{},
			filter:    &filter{coefficients: make([]float64, numCoefficients)},
			ampEnv:    amp,
			cutoffEnv: cutoff,
			buf:       make([]float64, bufferSize),
			amp:       make([]float32, bufferSize),
			cutoff:    make([]float32, bufferSize),
		}
	}
	return NewInstrument(props, voices)
}

// synthVoice is two oscillators into a lowpass filter. The amplitude and
// filter cutoff are both driven by breakpoint envelope generators; cutoff
// uses the log-scaled output branch so sweeps cover the frequency range
// evenly.
type synthVoice struct {
	buf       []float64
	amp       []float32 // amplitude control buffer, written by ampEnv
	cutoff    []float32 // cutoff control buffer in Hz, written by cutoffEnv
	ampCfg    *atomic.Value
	cutoffCfg *atomic.Value
	osc1Wave  *atomic.Value
	osc2Wave  *atomic.Value
	osc1      *osc
	osc2      *osc
	filter    *filter
	ampEnv    *Generator
	cutoffEnv *Generator
	state     voiceState
	pitch     int

	curAmp, curCutoff *Config // change detection against the props values
}

func (v *synthVoice) Gate(pitch, velocity int, now uint64) {
	v.refreshConfigs()
	freq := midiToFreq(pitch)
	v.pitch = pitch
	v.ampEnv.Gate(now)
	v.cutoffEnv.Gate(now)
	v.state = stateActive

	phaseDelta := freq * twoPi / sampleRate
	v.osc1.setWaveform(v.osc1Wave.Load().(string))
	v.osc1.freq = freq
	v.osc1.phaseDelta = phaseDelta
	v.osc2.setWaveform(v.osc2Wave.Load().(string))
	v.osc2.freq = freq
	v.osc2.phaseDelta = phaseDelta
}

func (v *synthVoice) Ungate() {
	if v.state != stateActive {
		return
	}
	v.ampEnv.Ungate()
	v.cutoffEnv.Ungate()
	v.state = stateReleased
}

// refreshConfigs picks up envelope edits from the control thread. The
// generators keep their in-flight phase across the swap, so edits during a
// held note don't click.
func (v *synthVoice) refreshConfigs() {
	if cfg := v.ampCfg.Load().(*Config); cfg != v.curAmp {
		if err := v.ampEnv.SetConfig(*cfg); err == nil {
			v.curAmp = cfg
		}
	}
	if cfg := v.cutoffCfg.Load().(*Config); cfg != v.curCutoff {
		if err := v.cutoffEnv.SetConfig(*cfg); err == nil {
			v.curCutoff = cfg
		}
	}
}

func (v *synthVoice) reset() {
	v.pitch = 0
	v.filter.y1 = 0.
	v.filter.y2 = 0.
	v.osc1.freq = 0
	v.osc1.phaseDelta = 0
	v.osc2.freq = 0
	v.osc2.phaseDelta = 0
	v.state = stateFree
}

func (v *synthVoice) Process(buf []float64) {
	v.refreshConfigs()

	amp := v.amp[:len(buf)]
	cutoff := v.cutoff[:len(buf)]
	v.ampEnv.Process(amp)
	v.cutoffEnv.Process(cutoff)

	// One coefficient set per block is plenty at blockSize granularity.
	v.filter.calculateCoefficients(float64(cutoff[0]))

	tmp := v.buf[0:len(buf)]
	v.osc1.process(tmp)
	v.osc2.process(tmp)
	v.filter.process(tmp)
	for n := range tmp {
		buf[n] += 0.1 * tmp[n] * float64(amp[n])
		tmp[n] = 0
	}
	if v.state == stateReleased && v.ampEnv.Done() {
		v.reset()
	}
}

func (v *synthVoice) Pitch() int { return v.pitch }

func (v *synthVoice) State() voiceState { return v.state }

const (
	twoPi           = 2 * math.Pi
	numCoefficients = 5
)

type osc struct {
	wave       string
	phase      float64
	phaseDelta float64
	freq       float64
	fn         func(float64) float64
}

func (o *osc) process(buf []float64) {
	for n := range buf {
		buf[n] += o.fn(o.phase)
		o.phase += o.phaseDelta
		if o.phase >= twoPi {
			o.phase -= twoPi
		}
	}
}

func (o *osc) setWaveform(s string) {
	switch s {
	case "sine":
		o.fn = math.Sin
	case "saw":
		o.fn = func(phase float64) float64 {
			return (2.0 * o.phase / twoPi) - 1.
		}
	case "square":
		o.fn = func(phase float64) float64 {
			if phase <= math.Pi {
				return 1.0
			} else {
				return -1.0
			}
		}
	case "off":
		o.fn = func(_ float64) float64 { return 0 }
	}
}

func setWaveform(v interface{}, dest *atomic.Value) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("value is not a string: %v", v)
	}
	switch s {
	case "sine", "saw", "square", "off":
		dest.Store(s)
		return nil
	default:
		return fmt.Errorf("not a valid waveform type: %v", s)
	}
}

type filter struct {
	coefficients []float64

	// state
	y1, y2 float64 // y[n-1] y[n-2]
}

// Lowpass filter based on https://www.w3.org/2011/audio/audio-eq-cookbook.html
func (f *filter) process(buf []float64) {
	c0 := f.coefficients[0]
	c1 := f.coefficients[1]
	c2 := f.coefficients[2]
	c3 := f.coefficients[3]
	c4 := f.coefficients[4]

	for n := range buf {
		in := buf[n]
		out := c0*in + f.y1
		buf[n] = out
		f.y1 = c1*in - c3*out + f.y2
		f.y2 = c2*in - c4*out
	}
}

func (f *filter) calculateCoefficients(freq float64) {
	omega := 2 * math.Pi * freq / sampleRate
	cos := math.Cos(omega)
	sin := math.Sin(omega)

	const q = 1
	alpha := sin / (2. * q)

	var b0, b1, b2, a0, a1, a2 float64

	b0 = (1 - cos) / 2
	b1 = 1 - cos
	b2 = b0
	a0 = 1 + alpha
	a1 = -2 * cos
	a2 = 1 - alpha

	f.coefficients[0] = b0 / a0
	f.coefficients[1] = b1 / a0
	f.coefficients[2] = b2 / a0
	f.coefficients[3] = a1 / a0
	f.coefficients[4] = a2 / a0
}

func midiToFreq(note int) float64 {
	return math.Pow(2, float64(note-69)/12.0) * 440
}
