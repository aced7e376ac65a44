package explorer

import (
	"time"

	"github.com/gyaneshwarpardhi/paperatlas/internal/schedule"
)

// Reveal shows a text one rune per step, strictly left to right.
type Reveal struct {
	sched  *schedule.Scheduler
	text   []rune
	shown  int
	step   time.Duration
	timer  *schedule.Timer
	onStep func(shown string)
	closed bool
}

// NewReveal starts revealing text. onStep, if set, is called with the
// revealed prefix after each step.
func NewReveal(sched *schedule.Scheduler, text string, step time.Duration, onStep func(string)) *Reveal {
	r := &Reveal{sched: sched, text: []rune(text), step: step, onStep: onStep}
	if len(r.text) > 0 {
		r.timer = sched.AfterFunc(step, r.advance)
	}
	return r
}

func (r *Reveal) advance() {
	if r.closed || r.shown >= len(r.text) {
		return
	}
	r.shown++
	if r.onStep != nil {
		r.onStep(string(r.text[:r.shown]))
	}
	if r.shown < len(r.text) {
		r.timer = r.sched.AfterFunc(r.step, r.advance)
	}
}

// Text returns the revealed prefix.
func (r *Reveal) Text() string {
	if r == nil {
		return ""
	}
	return string(r.text[:r.shown])
}

// Done reports whether the whole text is visible or the reveal was closed.
func (r *Reveal) Done() bool {
	return r == nil || r.closed || r.shown >= len(r.text)
}

// Close stops further reveal; the visible prefix stays as it is.
func (r *Reveal) Close() {
	if r == nil || r.closed {
		return
	}
	r.closed = true
	r.timer.Stop()
}
