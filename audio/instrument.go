package audio

import (
	"log"
	"math"
	"sync/atomic"
)

const (
	blockSize  = 16 // this gives about 0.35ms accuracy for scheduled events
	sampleRate = 44100
	bufferSize = 512
)

const numVoices = 12

type voiceState int

const (
	stateFree voiceState = iota
	stateActive
	stateReleased
)

// Voice is one independent sounding instance of an engine. All methods run
// on the render thread.
type Voice interface {
	Gate(pitch, velocity int, now uint64)
	Ungate()
	Process(buf []float64)
	State() voiceState
	Pitch() int
}

// Instrument owns a fixed pool of voices and mixes them into the output.
// Gate events reach it two ways: the timeline pushes sample-offset-tagged
// events on the render thread, and the control thread pushes intents
// through a separate spsc buffer so the two producers never share a queue.
type Instrument struct {
	*Props
	voices     []Voice
	events     *commandBuffer // producer: render thread (timeline callbacks)
	control    *commandBuffer // producer: control thread
	buf        []float64
	level      *atomic.Value
	clock      uint64 // samples processed since startup, used as gate timestamps
	warnedInit bool
}

const propLevel = "level"

func NewInstrument(props *Props, voices []Voice) *Instrument {
	instrument := &Instrument{
		events:  newCommandBuffer(64),
		control: newCommandBuffer(64),
		buf:     make([]float64, bufferSize),
		Props:   props,
		level:   props.MustRegister(propLevel, setLevel, 0.1),
	}
	instrument.voices = append(instrument.voices, voices...)
	return instrument
}

// PlayNote gates a voice offset samples into the current render buffer.
// Render thread only; the timeline's attack callback lands here.
func (i *Instrument) PlayNote(offset, pitch, velocity int) {
	i.events.push(command{kind: cmdGate, offset: offset, pitch: pitch, velocity: velocity})
}

// StopNote releases all voices holding pitch, offset samples into the
// current render buffer. Render thread only.
func (i *Instrument) StopNote(offset, pitch int) {
	i.events.push(command{kind: cmdUngate, offset: offset, pitch: pitch})
}

// Attack and Release are the control-thread entry points for live gating.

func (i *Instrument) Attack(pitch, velocity int) {
	i.control.push(command{kind: cmdGate, pitch: pitch, velocity: velocity})
}

func (i *Instrument) Release(pitch int) {
	i.control.push(command{kind: cmdUngate, pitch: pitch})
}

func (i *Instrument) apply(cmd command, blockStart int) {
	if len(i.voices) == 0 {
		// Engine not fully constructed yet. Warn once and drop; the
		// operation is never retried.
		if !i.warnedInit {
			i.warnedInit = true
			log.Printf("instrument: dropping event, no voices configured yet")
		}
		return
	}
	switch cmd.kind {
	case cmdGate:
		voice := i.findFreeVoice()
		if voice == nil {
			// TODO: implement some kind of voice stealing mechanism
			log.Printf("instrument: no free voice available")
			return
		}
		voice.Gate(cmd.pitch, cmd.velocity, i.clock+uint64(blockStart))
	case cmdUngate:
		for _, voice := range i.voices {
			if voice.State() == stateActive && voice.Pitch() == cmd.pitch {
				voice.Ungate()
			}
		}
	}
}

func (i *Instrument) Process(samples [][]float32) {
	i.control.drain(-1, func(cmd command) { i.apply(cmd, 0) })

	for n := 0; n < len(samples[0]); n += blockSize {
		i.events.drain(n+blockSize, func(cmd command) { i.apply(cmd, n) })
		for _, voice := range i.voices {
			if voice.State() == stateFree {
				continue
			}
			voice.Process(i.buf[n : n+blockSize])
		}
	}
	db := i.level.Load().(float64)
	gain := math.Pow(10, db/20.0)
	for n := range i.buf[:len(samples[0])] {
		sample := float32(gain * i.buf[n])
		samples[0][n] += sample
		samples[1][n] += sample
		i.buf[n] = 0
	}
	i.clock += uint64(len(samples[0]))
}

func (i *Instrument) findFreeVoice() Voice {
	for _, voice := range i.voices {
		if voice.State() == stateFree {
			return voice
		}
	}
	return nil
}

// Voice returns the voice at index n. An out-of-range index is a caller
// bug, not a runtime condition, and panics.
func (i *Instrument) Voice(n int) Voice {
	if n < 0 || n >= len(i.voices) {
		panic("voice index out of range")
	}
	return i.voices[n]
}

func (i *Instrument) NumVoices() int { return len(i.voices) }
