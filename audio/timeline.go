package audio

import (
	"sync/atomic"
)

// TempoProvider reports the transport tempo. Consulted every time beats
// are converted to seconds, so tempo changes take effect on the next
// conversion rather than requiring a restart.
type TempoProvider interface {
	BPM() float64
}

// PropsTempo is a TempoProvider backed by a lock-free props value, so the
// control thread can change the tempo while the render thread converts.
type PropsTempo struct {
	bpm *atomic.Value
}

func NewPropsTempo(props *Props, initial float64) *PropsTempo {
	return &PropsTempo{bpm: props.MustRegister("bpm", setFloat64(1, 500), initial)}
}

func (t *PropsTempo) BPM() float64 { return t.bpm.Load().(float64) }

// Note is one event in the timeline's content, positioned relative to the
// start of the content.
type Note struct {
	Beat     float64 // onset in beats
	Pitch    int
	Velocity int
	Duration float64 // length in beats
}

type PlaybackMode int

const (
	// GlobalBeat follows the shared transport beat counter, which only
	// advances while playback is running.
	GlobalBeat PlaybackMode = iota
	// LocalTempo schedules against the free-running seconds clock,
	// converting beats using the current tempo.
	LocalTempo
)

type StartParams struct {
	Mode      PlaybackMode
	StartBeat float64 // cursor position to start from; negative keeps the current cursor
}

// Timeline resolves musical content into scheduled attack/release
// callbacks and owns the playback cursor. Tick and the Start/Stop/
// SetContent methods run on the render thread; the Enqueue variants are
// the control-thread entry points.
type Timeline struct {
	sched   *Scheduler
	tempo   TempoProvider
	control *commandBuffer

	// Called at scheduled times with the sample offset into the current
	// render quantum.
	onAttack  func(pitch, velocity, offset int)
	onRelease func(pitch, velocity, offset int)

	notes     []Note
	loopBeats float64 // 0 means one-shot playback

	playing    bool
	mode       PlaybackMode
	cursor     float64 // beats into the content; frozen while stopped
	playStart  float64 // basis clock value when playback started
	startBeats float64 // cursor value when playback started
	generation uint64  // bumped on every stop, invalidates loop continuations
	held       map[int]int
	handles    []Handle
	quantum    int // samples in the render quantum being ticked

	pos atomic.Value // float64 cursor snapshot for control-thread reads
}

func NewTimeline(sched *Scheduler, tempo TempoProvider, onAttack, onRelease func(pitch, velocity, offset int)) *Timeline {
	t := &Timeline{
		sched:     sched,
		tempo:     tempo,
		control:   newCommandBuffer(64),
		onAttack:  onAttack,
		onRelease: onRelease,
		held:      make(map[int]int),
	}
	t.pos.Store(0.0)
	return t
}

// SetContent replaces the timeline's notes. loopBeats > 0 makes playback
// loop with that period; 0 plays the content once.
func (t *Timeline) SetContent(notes []Note, loopBeats float64) {
	t.notes = notes
	t.loopBeats = loopBeats
}

// beatLen returns the length of one beat in the active basis's units.
func (t *Timeline) beatLen() float64 {
	if t.mode == LocalTempo {
		return 60 / t.tempo.BPM()
	}
	return 1
}

func (t *Timeline) basisNow() float64 {
	if t.mode == LocalTempo {
		return t.sched.Now(UnitSeconds)
	}
	return t.sched.Now(UnitBeats)
}

func (t *Timeline) basisTime(v float64) Time {
	if t.mode == LocalTempo {
		return Seconds(v)
	}
	return Beats(v)
}

// Start begins playback. Looped content schedules one full iteration and a
// lookahead continuation; one-shot content schedules everything from the
// cursor to the end.
func (t *Timeline) Start(params StartParams) {
	if t.playing {
		t.Stop()
	}
	t.mode = params.Mode
	if params.StartBeat >= 0 {
		t.cursor = params.StartBeat
	}
	t.playing = true
	t.startBeats = t.cursor
	t.playStart = t.basisNow()

	origin := t.playStart - t.cursor*t.beatLen()
	if t.loopBeats > 0 {
		t.scheduleIteration(origin, t.generation)
	} else {
		for _, note := range t.notes {
			if note.Beat < t.cursor {
				continue
			}
			t.scheduleNote(note, origin)
		}
	}
}

// scheduleIteration schedules one loop's worth of notes starting at origin
// (in basis units), then a continuation roughly one second before the loop
// ends which schedules the next iteration. The continuation captures the
// playback generation and becomes a no-op if the transport was stopped in
// the meantime.
func (t *Timeline) scheduleIteration(origin float64, gen uint64) {
	now := t.basisNow()
	beatLen := t.beatLen()
	for _, note := range t.notes {
		if note.Beat >= t.loopBeats {
			continue
		}
		if origin+note.Beat*beatLen < now {
			// Already in the past, e.g. the cursor started mid-loop.
			continue
		}
		t.scheduleNote(note, origin)
	}

	end := origin + t.loopBeats*beatLen
	lead := 1.0 // seconds
	if t.mode == GlobalBeat {
		lead = t.tempo.BPM() / 60
	}
	contAt := end - lead
	if contAt < now {
		contAt = now
	}
	h := t.sched.Schedule(t.basisTime(contAt), func(int) {
		if gen != t.generation {
			return
		}
		t.scheduleIteration(end, gen)
	})
	t.handles = append(t.handles, h)
}

func (t *Timeline) scheduleNote(note Note, origin float64) {
	beatLen := t.beatLen()
	on := origin + note.Beat*beatLen
	off := on + note.Duration*beatLen
	pitch, vel := note.Pitch, note.Velocity
	hOn := t.sched.Schedule(t.basisTime(on), func(offset int) {
		t.held[pitch]++
		t.onAttack(pitch, vel, t.clampOffset(offset))
	})
	hOff := t.sched.Schedule(t.basisTime(off), func(offset int) {
		if t.held[pitch] > 0 {
			t.held[pitch]--
		}
		t.onRelease(pitch, vel, t.clampOffset(offset))
	})
	t.handles = append(t.handles, hOn, hOff)
}

// clampOffset keeps event offsets inside the current render quantum. An
// event scheduled exactly at the quantum boundary lands on its last
// sample, one sample early rather than a whole buffer late.
func (t *Timeline) clampOffset(offset int) int {
	if t.quantum > 0 && offset >= t.quantum {
		offset = t.quantum - 1
	}
	return offset
}

// Stop cancels everything scheduled by the current playback, releases any
// held notes, and freezes the cursor at the live position.
func (t *Timeline) Stop() {
	if !t.playing {
		return
	}
	t.cursor = t.CursorPosition()
	t.generation++
	for _, h := range t.handles {
		t.sched.Cancel(h)
	}
	t.handles = nil
	for pitch, count := range t.held {
		if count > 0 {
			t.onRelease(pitch, 0, 0)
		}
	}
	t.held = make(map[int]int)
	t.playing = false
	t.pos.Store(t.cursor)
}

// CursorPosition returns the playback position in beats. While stopped it
// is the last explicitly set or frozen cursor; while playing it is derived
// from the active clock, wrapped by the loop length when looping.
func (t *Timeline) CursorPosition() float64 {
	if !t.playing {
		return t.cursor
	}
	elapsed := (t.basisNow() - t.playStart) / t.beatLen()
	pos := t.startBeats + elapsed
	if t.loopBeats > 0 {
		for pos >= t.loopBeats {
			pos -= t.loopBeats
		}
	}
	return pos
}

func (t *Timeline) SetCursor(beat float64) {
	t.cursor = beat
	t.pos.Store(beat)
}

func (t *Timeline) Playing() bool { return t.playing }

// Tick advances the transport clocks by one render quantum and fires due
// events. The seconds clock is free-running; the beat counter only moves
// while playing.
func (t *Timeline) Tick(numSamples int) {
	t.quantum = numSamples
	t.control.drain(-1, t.applyCommand)

	secs := t.sched.Now(UnitSeconds) + float64(numSamples)/sampleRate
	t.sched.Advance(Seconds(secs), sampleRate)

	if t.playing {
		bpm := t.tempo.BPM()
		beats := t.sched.Now(UnitBeats) + float64(numSamples)*bpm/60/sampleRate
		t.sched.Advance(Beats(beats), sampleRate*60/bpm)
	}
	t.pos.Store(t.CursorPosition())
}

func (t *Timeline) applyCommand(cmd command) {
	switch cmd.kind {
	case cmdPlay:
		t.Start(cmd.params)
	case cmdStop:
		t.Stop()
	case cmdSetContent:
		t.SetContent(cmd.notes, cmd.loop)
	}
}

// Control-thread entry points. Intents cross to the render thread through
// the command buffer and take effect on the next Tick.

func (t *Timeline) EnqueuePlay(params StartParams) {
	t.control.push(command{kind: cmdPlay, params: params})
}

func (t *Timeline) EnqueueStop() {
	t.control.push(command{kind: cmdStop})
}

func (t *Timeline) EnqueueContent(notes []Note, loopBeats float64) {
	t.control.push(command{kind: cmdSetContent, notes: notes, loop: loopBeats})
}

// Position is the control-thread view of the cursor, updated once per
// render quantum.
func (t *Timeline) Position() float64 {
	return t.pos.Load().(float64)
}
