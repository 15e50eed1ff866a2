package audio

// TimeUnit selects the time basis an event is scheduled against.
type TimeUnit int

const (
	UnitBeats TimeUnit = iota
	UnitSeconds
	numUnits
)

// Time is a point on one of the two transport clocks.
type Time struct {
	Unit TimeUnit
	Val  float64
}

func Beats(v float64) Time   { return Time{UnitBeats, v} }
func Seconds(v float64) Time { return Time{UnitSeconds, v} }

// Handle identifies a pending event for cancellation.
type Handle uint64

type scheduledEvent struct {
	at     float64
	seq    uint64 // submission order, breaks ties
	handle Handle
	fn     func(offset int)
}

// Scheduler is a sample-accurate event queue over two independent time
// bases. It is owned by the render thread: Schedule, Cancel and Advance
// must all be called from there. Events fire in ascending time order, and
// in submission order for equal times within the same basis. The callback
// receives the event's sample offset within the current render quantum.
type Scheduler struct {
	queues [numUnits][]scheduledEvent
	now    [numUnits]float64
	next   Handle
	seq    uint64
}

func NewScheduler() *Scheduler {
	return &Scheduler{next: 1}
}

// Schedule queues fn to run when the clock for t's basis reaches t.Val.
// An event scheduled at or before the current clock fires on the next
// Advance of that basis.
func (s *Scheduler) Schedule(t Time, fn func(offset int)) Handle {
	h := s.next
	s.next++
	s.seq++
	ev := scheduledEvent{at: t.Val, seq: s.seq, handle: h, fn: fn}

	q := s.queues[t.Unit]
	// Insert after any event with an equal or earlier time to keep
	// submission order stable for ties.
	i := len(q)
	for i > 0 && q[i-1].at > ev.at {
		i--
	}
	q = append(q, scheduledEvent{})
	copy(q[i+1:], q[i:])
	q[i] = ev
	s.queues[t.Unit] = q
	return h
}

// Cancel removes a pending event. A cancelled callback never fires. It is
// a no-op for handles that already fired.
func (s *Scheduler) Cancel(h Handle) {
	for u := range s.queues {
		q := s.queues[u]
		for i := range q {
			if q[i].handle == h {
				s.queues[u] = append(q[:i], q[i+1:]...)
				return
			}
		}
	}
}

// Advance moves the clock for t's basis to t.Val and fires every event due
// at or before it, in order. samplesPerUnit converts basis time to sample
// offsets within the quantum that ends at t.Val; callbacks scheduled at or
// before the previous clock value get offset 0. Callbacks may schedule
// further events, including into the quantum being processed.
func (s *Scheduler) Advance(t Time, samplesPerUnit float64) {
	from := s.now[t.Unit]
	s.now[t.Unit] = t.Val
	for {
		q := s.queues[t.Unit]
		if len(q) == 0 || q[0].at > t.Val {
			return
		}
		ev := q[0]
		s.queues[t.Unit] = q[1:]
		offset := 0
		if ev.at > from {
			offset = int((ev.at - from) * samplesPerUnit)
		}
		ev.fn(offset)
	}
}

// Now returns the current clock value for a basis.
func (s *Scheduler) Now(unit TimeUnit) float64 { return s.now[unit] }

// Pending returns the number of queued events for a basis.
func (s *Scheduler) Pending(unit TimeUnit) int { return len(s.queues[unit]) }
