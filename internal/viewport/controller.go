package viewport

import (
	"math"
	"time"

	"github.com/gyaneshwarpardhi/paperatlas/internal/config"
	"github.com/gyaneshwarpardhi/paperatlas/internal/graph"
	"github.com/gyaneshwarpardhi/paperatlas/internal/schedule"
)

// Simulation is the part of the layout simulator the controller drives.
type Simulation interface {
	Stop()
	Restart()
}

// PanState is the pointer gesture state.
type PanState int

const (
	Idle PanState = iota
	Panning
)

func (s PanState) String() string {
	if s == Panning {
		return "panning"
	}
	return "idle"
}

// Wheel delta modes, as reported by browsers.
const (
	DeltaPixel = 0
	DeltaLine  = 1
	DeltaPage  = 2
)

const linePixels = 16

// Wheel is one wheel or trackpad event.
type Wheel struct {
	X, Y           float64
	DeltaX, DeltaY float64
	DeltaMode      int
	Ctrl, Meta     bool
}

// Touch is one active touch point.
type Touch struct {
	ID   int
	X, Y float64
}

// Controller owns the viewport transform and the gesture state machine.
//
// Pan and the zoom window are independent interactions. While either is
// active the simulator is stopped; it restarts when the last one ends.
// Zoom input is accumulated and applied at most once per frame.
type Controller struct {
	conf  config.ViewportConf
	sched *schedule.Scheduler
	sim   Simulation

	size Size
	t    Transform

	pan        PanState
	lastX      float64
	lastY      float64
	panTouch   int
	touchCount int

	zooming   bool
	zoomAccum float64
	zoomX     float64
	zoomY     float64
	zoomFrame schedule.FrameID
	quiet     *schedule.Timer

	pinchDist float64

	stopped bool
}

// NewController returns an idle controller with the identity transform.
func NewController(sched *schedule.Scheduler, sim Simulation, conf config.ViewportConf) *Controller {
	return &Controller{
		conf:  conf,
		sched: sched,
		sim:   sim,
		size:  Size{W: conf.Width, H: conf.Height},
		t:     Identity(),
	}
}

// SetConf swaps tuning parameters and re-clamps the current scale.
func (c *Controller) SetConf(conf config.ViewportConf) {
	c.conf = conf
	c.t.K = clamp(c.t.K, conf.MinScale, conf.MaxScale)
}

// Transform returns the current transform.
func (c *Controller) Transform() Transform { return c.t }

// Size returns the canvas size.
func (c *Controller) Size() Size { return c.size }

// PanState reports the pointer gesture state.
func (c *Controller) PanState() PanState { return c.pan }

// Zooming reports whether a zoom window is open.
func (c *Controller) Zooming() bool { return c.zooming }

// Interacting reports whether any interaction is in progress. Two fingers on
// the surface count even between pinch movements.
func (c *Controller) Interacting() bool {
	return c.pan == Panning || c.zooming || c.touchCount >= 2
}

// PointerDown starts a pan unless the pointer landed on a node.
func (c *Controller) PointerDown(x, y float64, onNode bool) {
	if onNode {
		return
	}
	c.lastX, c.lastY = x, y
	c.pan = Panning
	c.sync()
}

// PointerMove translates by the pointer delta while panning.
func (c *Controller) PointerMove(x, y float64) {
	if c.pan != Panning {
		return
	}
	c.t = c.t.Pan(x-c.lastX, y-c.lastY)
	c.lastX, c.lastY = x, y
}

// PointerUp ends a pan. PointerLeave is the same transition.
func (c *Controller) PointerUp() {
	if c.pan != Panning {
		return
	}
	c.pan = Idle
	c.sync()
}

// PointerLeave ends a pan when the pointer exits the canvas.
func (c *Controller) PointerLeave() { c.PointerUp() }

// Wheel feeds one wheel event into the zoom window.
func (c *Controller) Wheel(w Wheel) {
	dy := w.DeltaY
	switch w.DeltaMode {
	case DeltaLine:
		dy *= linePixels
	case DeltaPage:
		dy *= c.size.H
	}
	sens := c.conf.WheelSensitivity
	if isTrackpadPinch(w) {
		sens = c.conf.PinchSensitivity
	}
	c.addZoom(dy*sens, w.X, w.Y)
}

// isTrackpadPinch tells a trackpad pinch from a mouse wheel. Browsers report
// pinch as a wheel event with ctrl set; some trackpads instead emit a
// horizontal delta alongside a fractional vertical one.
func isTrackpadPinch(w Wheel) bool {
	if w.Ctrl || w.Meta {
		return true
	}
	return w.DeltaX != 0 && w.DeltaY != math.Trunc(w.DeltaY)
}

// TouchStart handles a change in the set of active touches.
func (c *Controller) TouchStart(touches []Touch) { c.touches(touches) }

// TouchEnd handles touches lifting; touches holds the ones still down.
func (c *Controller) TouchEnd(touches []Touch) { c.touches(touches) }

// TouchMove pans with one finger and pinches with two.
func (c *Controller) TouchMove(touches []Touch) {
	switch {
	case len(touches) >= 2:
		d := dist(touches[0], touches[1])
		if c.pinchDist > 0 {
			mx, my := mid(touches[0], touches[1])
			c.addZoom((c.pinchDist-d)*c.conf.PinchSensitivity, mx, my)
		}
		c.pinchDist = d
	case len(touches) == 1 && c.pan == Panning:
		c.PointerMove(touches[0].X, touches[0].Y)
	}
}

func (c *Controller) touches(touches []Touch) {
	prev := c.touchCount
	c.touchCount = len(touches)
	switch {
	case len(touches) >= 2:
		c.pinchDist = dist(touches[0], touches[1])
		c.pan = Idle
	case len(touches) == 1:
		c.pinchDist = 0
		if prev >= 2 || c.pan != Panning || c.panTouch != touches[0].ID {
			// Re-arm pan on the remaining finger; the simulator stays as it is
			// when a pinch hands over to a pan.
			c.lastX, c.lastY = touches[0].X, touches[0].Y
			c.panTouch = touches[0].ID
			c.pan = Panning
		}
	default:
		c.pinchDist = 0
		c.pan = Idle
	}
	if len(touches) >= 2 && !c.zooming {
		c.openZoomWindow()
	}
	c.sync()
}

func (c *Controller) addZoom(delta, x, y float64) {
	c.zoomAccum += delta
	c.zoomX, c.zoomY = x, y
	c.openZoomWindow()
	if c.zoomFrame == 0 {
		c.zoomFrame = c.sched.RequestFrame(func(time.Time) {
			c.zoomFrame = 0
			c.Flush()
		})
	}
	c.sync()
}

// openZoomWindow opens the zoom window or extends it by a full quiescence interval.
func (c *Controller) openZoomWindow() {
	c.zooming = true
	d := time.Duration(c.conf.QuiescenceMs) * time.Millisecond
	if c.quiet != nil {
		c.quiet.Reset(d)
		return
	}
	c.quiet = c.sched.AfterFunc(d, c.closeZoomWindow)
}

func (c *Controller) closeZoomWindow() {
	c.Flush()
	c.quiet = nil
	c.zooming = false
	c.sync()
}

// Flush applies accumulated zoom input. It is called from the zoom frame and
// by renderers that need the transform current before drawing.
func (c *Controller) Flush() {
	if c.zoomAccum == 0 {
		return
	}
	factor := math.Exp(-c.zoomAccum)
	c.zoomAccum = 0
	c.t = c.t.ZoomAt(c.size, c.zoomX, c.zoomY, factor, c.conf.MinScale, c.conf.MaxScale)
}

// sync stops or restarts the simulator on interaction edges.
func (c *Controller) sync() {
	active := c.Interacting()
	switch {
	case active && !c.stopped:
		c.stopped = true
		if c.sim != nil {
			c.sim.Stop()
		}
	case !active && c.stopped:
		c.stopped = false
		if c.sim != nil {
			c.sim.Restart()
		}
	}
}

// Resize changes the canvas size. The translation is centre-relative, so the
// world point at the centre stays there.
func (c *Controller) Resize(w, h float64) {
	if w <= 0 || h <= 0 {
		return
	}
	c.size = Size{W: w, H: h}
}

// Reset restores the identity transform.
func (c *Controller) Reset() {
	c.t = Identity()
	c.t.K = clamp(1, c.conf.MinScale, c.conf.MaxScale)
}

// Fit scales and centres the transform so every positioned node lies inside
// the canvas, leaving padding pixels on each side.
func (c *Controller) Fit(nodes []*graph.Node, padding float64) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, n := range nodes {
		if !n.HasPosition() {
			continue
		}
		minX, maxX = math.Min(minX, n.X), math.Max(maxX, n.X)
		minY, maxY = math.Min(minY, n.Y), math.Max(maxY, n.Y)
	}
	if math.IsInf(minX, 1) {
		c.Reset()
		return
	}
	w := math.Max(c.size.W-2*padding, 1)
	h := math.Max(c.size.H-2*padding, 1)
	k := c.conf.MaxScale
	if bw := maxX - minX; bw > 0 {
		k = math.Min(k, w/bw)
	}
	if bh := maxY - minY; bh > 0 {
		k = math.Min(k, h/bh)
	}
	k = clamp(k, c.conf.MinScale, c.conf.MaxScale)
	mx, my := (minX+maxX)/2, (minY+maxY)/2
	c.t = Transform{K: k, TX: -mx * k, TY: -my * k}
}

// Close cancels the pending zoom frame and quiescence timer.
func (c *Controller) Close() {
	if c.zoomFrame != 0 {
		c.sched.CancelFrame(c.zoomFrame)
		c.zoomFrame = 0
	}
	if c.quiet != nil {
		c.quiet.Stop()
		c.quiet = nil
	}
}

func dist(a, b Touch) float64 { return math.Hypot(a.X-b.X, a.Y-b.Y) }

func mid(a, b Touch) (float64, float64) { return (a.X + b.X) / 2, (a.Y + b.Y) / 2 }
