package schedule_test

import (
	"testing"
	"time"

	"github.com/gyaneshwarpardhi/paperatlas/internal/schedule"
)

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestTimersFireInDeadlineOrder(t *testing.T) {
	s := schedule.New(t0)
	var got []string
	s.AfterFunc(30*time.Millisecond, func() { got = append(got, "c") })
	s.AfterFunc(10*time.Millisecond, func() { got = append(got, "a") })
	s.AfterFunc(20*time.Millisecond, func() { got = append(got, "b") })

	s.Advance(t0.Add(15 * time.Millisecond))
	if len(got) != 1 || got[0] != "a" {
		t.Fatalf("after 15ms got %v", got)
	}
	s.Advance(t0.Add(time.Second))
	if len(got) != 3 || got[1] != "b" || got[2] != "c" {
		t.Errorf("after 1s got %v", got)
	}
}

func TestTimerStopAndReset(t *testing.T) {
	s := schedule.New(t0)
	fired := 0
	tm := s.AfterFunc(10*time.Millisecond, func() { fired++ })
	if !tm.Stop() {
		t.Fatal("Stop should report a pending timer")
	}
	s.Advance(t0.Add(time.Second))
	if fired != 0 {
		t.Fatalf("stopped timer fired")
	}

	tm.Reset(50 * time.Millisecond)
	s.Advance(t0.Add(time.Second + 40*time.Millisecond))
	if fired != 0 {
		t.Fatalf("reset timer fired early")
	}
	s.Advance(t0.Add(time.Second + 50*time.Millisecond))
	if fired != 1 || tm.Active() {
		t.Errorf("fired=%d active=%v", fired, tm.Active())
	}
}

func TestFramesRequestedInsideCallbackWaitForNextAdvance(t *testing.T) {
	s := schedule.New(t0)
	count := 0
	var loop func(time.Time)
	loop = func(time.Time) {
		count++
		s.RequestFrame(loop)
	}
	s.RequestFrame(loop)

	for i := 1; i <= 3; i++ {
		s.Advance(t0.Add(time.Duration(i) * 16 * time.Millisecond))
		if count != i {
			t.Fatalf("advance %d: count=%d", i, count)
		}
	}
}

func TestCancelFrame(t *testing.T) {
	s := schedule.New(t0)
	ran := false
	id := s.RequestFrame(func(time.Time) { ran = true })
	s.CancelFrame(id)
	s.Advance(t0.Add(time.Millisecond))
	if ran {
		t.Error("cancelled frame ran")
	}
}

func TestCloseDropsEverything(t *testing.T) {
	s := schedule.New(t0)
	ran := false
	s.AfterFunc(time.Millisecond, func() { ran = true })
	s.RequestFrame(func(time.Time) { ran = true })
	s.Close()
	s.RequestFrame(func(time.Time) { ran = true })
	s.Advance(t0.Add(time.Second))
	if ran {
		t.Error("callback ran after Close")
	}
	if timers, frames := s.Pending(); timers != 0 || frames != 0 {
		t.Errorf("pending after close: %d timers, %d frames", timers, frames)
	}
}
