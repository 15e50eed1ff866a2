package audio

import (
	"reflect"
	"testing"
)

func TestSchedulerOrder(t *testing.T) {
	s := NewScheduler()
	var fired []string
	log := func(name string) func(int) {
		return func(int) { fired = append(fired, name) }
	}

	// C is submitted first but scheduled later; A and B tie at 1.0 and
	// must fire in submission order.
	s.Schedule(Beats(2.0), log("C"))
	s.Schedule(Beats(1.0), log("A"))
	s.Schedule(Beats(1.0), log("B"))

	s.Advance(Beats(1.0), 0)
	want := []string{"A", "B"}
	if !reflect.DeepEqual(want, fired) {
		t.Errorf("want %v, got %v", want, fired)
	}

	s.Advance(Beats(2.0), 0)
	want = []string{"A", "B", "C"}
	if !reflect.DeepEqual(want, fired) {
		t.Errorf("want %v, got %v", want, fired)
	}
	if s.Pending(UnitBeats) != 0 {
		t.Errorf("queue should be empty, %d pending", s.Pending(UnitBeats))
	}
}

func TestSchedulerOffsets(t *testing.T) {
	s := NewScheduler()
	var offsets []int
	note := func(offset int) { offsets = append(offsets, offset) }

	// 22050 samples per beat at 120 bpm
	s.Schedule(Beats(0), note)
	s.Schedule(Beats(0.5), note)
	s.Schedule(Beats(1.0), note)
	s.Advance(Beats(1.0), 22050)

	want := []int{0, 11025, 22050}
	if !reflect.DeepEqual(want, offsets) {
		t.Errorf("want %v, got %v", want, offsets)
	}

	// an event due before the quantum started fires at offset 0
	offsets = nil
	s.Schedule(Beats(0.5), note)
	s.Schedule(Beats(1.25), note)
	s.Advance(Beats(1.5), 22050)
	want = []int{0, 5512}
	if !reflect.DeepEqual(want, offsets) {
		t.Errorf("want %v, got %v", want, offsets)
	}
}

func TestSchedulerCancel(t *testing.T) {
	s := NewScheduler()
	fired := false
	h := s.Schedule(Seconds(1.0), func(int) { fired = true })
	kept := 0
	s.Schedule(Seconds(1.0), func(int) { kept++ })

	s.Cancel(h)
	s.Advance(Seconds(2.0), 0)
	if fired {
		t.Error("cancelled event fired")
	}
	if kept != 1 {
		t.Errorf("surviving event should fire once, fired %d times", kept)
	}

	// cancelling a spent handle is a no-op
	s.Cancel(h)
}

func TestSchedulerIndependentBases(t *testing.T) {
	s := NewScheduler()
	var fired []string
	s.Schedule(Beats(1.0), func(int) { fired = append(fired, "beat") })
	s.Schedule(Seconds(1.0), func(int) { fired = append(fired, "sec") })

	s.Advance(Seconds(5.0), 0)
	want := []string{"sec"}
	if !reflect.DeepEqual(want, fired) {
		t.Errorf("want %v, got %v", want, fired)
	}
	if want, got := 0.0, s.Now(UnitBeats); want != got {
		t.Errorf("beat clock moved: want %v, got %v", want, got)
	}

	s.Advance(Beats(1.0), 0)
	want = []string{"sec", "beat"}
	if !reflect.DeepEqual(want, fired) {
		t.Errorf("want %v, got %v", want, fired)
	}
}

// A callback scheduling into the quantum being advanced must fire within
// the same Advance call. This is how loop continuations chain.
func TestSchedulerReentrant(t *testing.T) {
	s := NewScheduler()
	var fired []float64
	var chain func(at float64) func(int)
	chain = func(at float64) func(int) {
		return func(int) {
			fired = append(fired, at)
			if at < 4 {
				s.Schedule(Beats(at+1), chain(at+1))
			}
		}
	}
	s.Schedule(Beats(1), chain(1))

	s.Advance(Beats(4), 0)
	want := []float64{1, 2, 3, 4}
	if !reflect.DeepEqual(want, fired) {
		t.Errorf("want %v, got %v", want, fired)
	}
	if s.Pending(UnitBeats) != 0 {
		t.Errorf("queue should be empty, %d pending", s.Pending(UnitBeats))
	}
}

func TestSchedulerDeterminism(t *testing.T) {
	run := func() []string {
		s := NewScheduler()
		var fired []string
		log := func(name string) func(int) {
			return func(int) { fired = append(fired, name) }
		}
		s.Schedule(Beats(1.0), log("A"))
		s.Schedule(Beats(1.0), log("B"))
		s.Schedule(Beats(2.0), log("C"))
		s.Advance(Beats(3.0), 0)
		return fired
	}
	first := run()
	for i := 0; i < 10; i++ {
		if got := run(); !reflect.DeepEqual(first, got) {
			t.Fatalf("run %d diverged: want %v, got %v", i, first, got)
		}
	}
}
