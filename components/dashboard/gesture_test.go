package dashboard

import (
	"reflect"
	"testing"
	"time"
)

type manualTimer struct {
	at      time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// manualScheduler fires timers only when Advance is called.
type manualScheduler struct {
	now    time.Duration
	timers []*manualTimer
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	t := &manualTimer{at: s.now + d, fn: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *manualScheduler) Advance(d time.Duration) {
	s.now += d
	for _, t := range s.timers {
		if !t.stopped && !t.fired && t.at <= s.now {
			t.fired = true
			t.fn()
		}
	}
}

func TestPressGestureFiresAfterDelay(t *testing.T) {
	clock := &manualScheduler{}
	fired := 0
	g := NewPressGesture(clock, 0, func() { fired++ })

	g.PressStart()
	clock.Advance(599 * time.Millisecond)
	if fired != 0 {
		t.Fatalf("fired before the delay")
	}
	clock.Advance(time.Millisecond)
	if fired != 1 {
		t.Fatalf("expected one fire at 600ms, got %d", fired)
	}
	if g.Pending() {
		t.Fatalf("gesture should be idle after firing")
	}
}

func TestPressGestureCancelledByReleaseOrLeave(t *testing.T) {
	clock := &manualScheduler{}
	fired := 0
	g := NewPressGesture(clock, LongPressDelay, func() { fired++ })

	g.PressStart()
	clock.Advance(300 * time.Millisecond)
	g.PressEnd()
	clock.Advance(time.Second)

	g.PressStart()
	clock.Advance(100 * time.Millisecond)
	g.PressLeave()
	clock.Advance(time.Second)

	if fired != 0 {
		t.Fatalf("short presses must not fire, got %d", fired)
	}
}

func TestPressGestureIgnoresRepeatedStart(t *testing.T) {
	clock := &manualScheduler{}
	fired := 0
	g := NewPressGesture(clock, LongPressDelay, func() { fired++ })
	g.PressStart()
	clock.Advance(400 * time.Millisecond)
	g.PressStart()
	clock.Advance(200 * time.Millisecond)
	if fired != 1 {
		t.Fatalf("expected the first press to fire once, got %d", fired)
	}
}

func TestDragResizerEmitsOneStepPer40px(t *testing.T) {
	d := NewDragResizer(100, 100)
	if steps := d.Move(139, 100); len(steps) != 0 {
		t.Fatalf("expected no step below 40px, got %v", steps)
	}
	if steps := d.Move(140, 100); !reflect.DeepEqual(steps, []ResizeDirection{GrowWidth}) {
		t.Fatalf("expected one width step, got %v", steps)
	}
	if steps := d.Move(225, 181); !reflect.DeepEqual(steps, []ResizeDirection{GrowWidth, GrowWidth, GrowHeight, GrowHeight}) {
		t.Fatalf("unexpected steps %v", steps)
	}
	if steps := d.Move(99, 181); !reflect.DeepEqual(steps, []ResizeDirection{ShrinkWidth, ShrinkWidth, ShrinkWidth, ShrinkWidth}) {
		t.Fatalf("expected shrink past origin, got %v", steps)
	}
}
