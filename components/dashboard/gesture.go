package dashboard

import (
	"math"
	"sync"
	"time"
)

const (
	// LongPressDelay is how long a press must be held to enter edit mode.
	LongPressDelay = 600 * time.Millisecond
	// DragStep is the drag distance, in logical pixels, of one resize step.
	DragStep = 40.0
)

// Timer is a pending scheduled call.
type Timer interface {
	Stop() bool
}

// Scheduler runs f after d. Tests substitute a manual clock.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// PressGesture turns a sustained press into a single fire callback. Releasing
// or leaving the surface before the delay cancels it without side effects.
type PressGesture struct {
	mu        sync.Mutex
	scheduler Scheduler
	delay     time.Duration
	fire      func()
	timer     Timer
	seq       uint64
}

// NewPressGesture builds a gesture that calls fire after delay. A nil
// scheduler uses the wall clock; a non-positive delay uses LongPressDelay.
func NewPressGesture(scheduler Scheduler, delay time.Duration, fire func()) *PressGesture {
	if scheduler == nil {
		scheduler = realScheduler{}
	}
	if delay <= 0 {
		delay = LongPressDelay
	}
	return &PressGesture{scheduler: scheduler, delay: delay, fire: fire}
}

// PressStart arms the timer. A press already pending is left alone.
func (g *PressGesture) PressStart() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.timer != nil {
		return
	}
	g.seq++
	seq := g.seq
	g.timer = g.scheduler.AfterFunc(g.delay, func() {
		g.mu.Lock()
		if g.seq != seq || g.timer == nil {
			g.mu.Unlock()
			return
		}
		g.timer = nil
		fire := g.fire
		g.mu.Unlock()
		if fire != nil {
			fire()
		}
	})
}

// PressEnd cancels a press released before the delay.
func (g *PressGesture) PressEnd() {
	g.cancel()
}

// PressLeave cancels a press whose pointer left the surface.
func (g *PressGesture) PressLeave() {
	g.cancel()
}

// Pending reports whether a press is armed.
func (g *PressGesture) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.timer != nil
}

func (g *PressGesture) cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.timer == nil {
		return
	}
	g.timer.Stop()
	g.timer = nil
	g.seq++
}

// DragResizer converts a continuous drag into discrete resize steps, one per
// DragStep crossed on each axis.
type DragResizer struct {
	step     float64
	originX  float64
	originY  float64
	emittedW int
	emittedH int
}

// NewDragResizer starts a drag at (x, y).
func NewDragResizer(x, y float64) *DragResizer {
	return &DragResizer{step: DragStep, originX: x, originY: y}
}

// Move reports the resize steps produced since the previous call.
func (d *DragResizer) Move(x, y float64) []ResizeDirection {
	var out []ResizeDirection
	w := int(math.Floor((x - d.originX) / d.step))
	h := int(math.Floor((y - d.originY) / d.step))
	out = appendSteps(out, w-d.emittedW, GrowWidth, ShrinkWidth)
	out = appendSteps(out, h-d.emittedH, GrowHeight, ShrinkHeight)
	d.emittedW, d.emittedH = w, h
	return out
}

func appendSteps(out []ResizeDirection, delta int, grow, shrink ResizeDirection) []ResizeDirection {
	for ; delta > 0; delta-- {
		out = append(out, grow)
	}
	for ; delta < 0; delta++ {
		out = append(out, shrink)
	}
	return out
}
