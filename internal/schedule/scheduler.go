// Package schedule is the session's only tick source: animation-frame
// callbacks and one-shot timers, both fired from Advance on the owning goroutine.
package schedule

import (
	"container/heap"
	"time"
)

// FrameID identifies a pending animation-frame request.
type FrameID uint64

// Scheduler is not safe for concurrent use; every method must run on the
// goroutine that calls Advance.
type Scheduler struct {
	now    time.Time
	seq    uint64
	timers timerHeap
	frames []frameReq
	closed bool
}

type frameReq struct {
	id FrameID
	fn func(now time.Time)
}

// New creates a scheduler whose clock starts at start.
func New(start time.Time) *Scheduler {
	return &Scheduler{now: start}
}

// Now returns the time of the latest Advance.
func (s *Scheduler) Now() time.Time { return s.now }

// RequestFrame schedules fn for the next Advance. Frames requested from inside
// a frame callback run on the following Advance, never the current one.
func (s *Scheduler) RequestFrame(fn func(now time.Time)) FrameID {
	if s.closed {
		return 0
	}
	s.seq++
	id := FrameID(s.seq)
	s.frames = append(s.frames, frameReq{id: id, fn: fn})
	return id
}

// CancelFrame drops a pending frame request. Unknown ids are ignored.
func (s *Scheduler) CancelFrame(id FrameID) {
	for i, f := range s.frames {
		if f.id == id {
			s.frames = append(s.frames[:i], s.frames[i+1:]...)
			return
		}
	}
}

// AfterFunc runs fn once the clock reaches Now()+d.
func (s *Scheduler) AfterFunc(d time.Duration, fn func()) *Timer {
	t := &Timer{s: s, fn: fn}
	if s.closed {
		t.stopped = true
		return t
	}
	s.arm(t, d)
	return t
}

func (s *Scheduler) arm(t *Timer, d time.Duration) {
	s.seq++
	t.seq = s.seq
	t.at = s.now.Add(d)
	t.stopped = false
	heap.Push(&s.timers, t)
}

// Advance moves the clock to now, fires every timer that is due (in deadline
// order), then runs the frame callbacks that were pending on entry.
func (s *Scheduler) Advance(now time.Time) {
	if s.closed {
		return
	}
	if now.After(s.now) {
		s.now = now
	}
	for s.timers.Len() > 0 {
		next := s.timers[0]
		if next.at.After(s.now) {
			break
		}
		heap.Pop(&s.timers)
		if next.stopped {
			continue
		}
		next.stopped = true
		next.fn()
		if s.closed {
			return
		}
	}

	pending := s.frames
	s.frames = nil
	for _, f := range pending {
		f.fn(s.now)
		if s.closed {
			return
		}
	}
}

// Pending returns how many timers and frame requests are outstanding.
func (s *Scheduler) Pending() (timers, frames int) {
	for _, t := range s.timers {
		if !t.stopped {
			timers++
		}
	}
	return timers, len(s.frames)
}

// Close cancels every pending frame and timer. Later requests are ignored.
func (s *Scheduler) Close() {
	s.closed = true
	for _, t := range s.timers {
		t.stopped = true
	}
	s.timers = nil
	s.frames = nil
}

// Timer is a one-shot callback created by AfterFunc.
type Timer struct {
	s       *Scheduler
	fn      func()
	at      time.Time
	seq     uint64
	index   int
	stopped bool
}

// Stop prevents the timer from firing. It reports whether the timer was pending.
func (t *Timer) Stop() bool {
	if t == nil || t.stopped {
		return false
	}
	t.stopped = true
	if t.index >= 0 && t.index < t.s.timers.Len() && t.s.timers[t.index] == t {
		heap.Remove(&t.s.timers, t.index)
	}
	return true
}

// Reset re-arms the timer to fire d after the scheduler's current time.
func (t *Timer) Reset(d time.Duration) {
	if t == nil || t.s.closed {
		return
	}
	t.Stop()
	t.s.arm(t, d)
}

// Active reports whether the timer is still waiting to fire.
func (t *Timer) Active() bool { return t != nil && !t.stopped }

type timerHeap []*Timer

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *timerHeap) Push(x any) {
	t := x.(*Timer)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
