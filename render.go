package main

import (
	"fmt"
	"os"

	wav "github.com/youpy/go-wav"

	"github.com/mrdg/patch/audio"
)

const (
	sampleRate = 44100
	bufferSize = 512
	nChannels  = 2
)

type fixedTempo float64

func (t fixedTempo) BPM() float64 { return float64(t) }

// renderToFile renders beats worth of the given content offline into a
// 16-bit stereo WAV file. It builds a parallel synth seeded with the live
// device's current property values, so the result matches what the
// realtime patch would play.
func renderToFile(path string, live *audio.Props, bpm float64, notes []audio.Note, loop, beats float64) error {
	props := audio.NewProps()
	synth := audio.Synth(props)
	for _, key := range live.Keys() {
		v, err := live.Get(key)
		if err != nil {
			return err
		}
		if err := props.Set(key, v); err != nil {
			return fmt.Errorf("copy property %s: %w", key, err)
		}
	}

	sched := audio.NewScheduler()
	timeline := audio.NewTimeline(sched, fixedTempo(bpm),
		func(pitch, velocity, offset int) { synth.PlayNote(offset, pitch, velocity) },
		func(pitch, velocity, offset int) { synth.StopNote(offset, pitch) },
	)
	timeline.SetContent(notes, loop)
	timeline.Start(audio.StartParams{Mode: audio.GlobalBeat, StartBeat: 0})

	totalSamples := int(beats * (60 / bpm) * sampleRate)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := wav.NewWriter(f, uint32(totalSamples), nChannels, sampleRate, 16)
	bufs := [][]float32{
		make([]float32, bufferSize),
		make([]float32, bufferSize),
	}
	frames := make([]wav.Sample, bufferSize)

	for rendered := 0; rendered < totalSamples; rendered += bufferSize {
		for i := range bufs {
			for j := range bufs[i] {
				bufs[i][j] = 0
			}
		}
		timeline.Tick(bufferSize)
		synth.Process(bufs)

		n := bufferSize
		if remaining := totalSamples - rendered; remaining < n {
			n = remaining
		}
		for j := 0; j < n; j++ {
			frames[j].Values[0] = clip16(bufs[0][j])
			frames[j].Values[1] = clip16(bufs[1][j])
		}
		if err := w.WriteSamples(frames[:n]); err != nil {
			return err
		}
	}
	timeline.Stop()
	return nil
}

func clip16(v float32) int {
	if v > 1 {
		v = 1
	}
	if v < -1 {
		v = -1
	}
	return int(v * 32767)
}
