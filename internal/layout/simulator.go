// Package layout is the force-directed position solver for the session graph.
package layout

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/gyaneshwarpardhi/paperatlas/internal/config"
	"github.com/gyaneshwarpardhi/paperatlas/internal/graph"
	"github.com/gyaneshwarpardhi/paperatlas/internal/metrics"
	"github.com/gyaneshwarpardhi/paperatlas/internal/schedule"
)

// TickFunc observes the live node and link set after each integration step.
// It must not write node positions.
type TickFunc func(nodes []*graph.Node, links []graph.Link)

const initialRadius = 10.0

var initialAngle = math.Pi * (3 - math.Sqrt(5))

// Simulator integrates node positions one tick per animation frame.
//
// It is either running or stopped. A running simulator whose alpha has decayed
// below AlphaMin is cooled: it stays running but stops ticking until something
// reheats it (Restart, UpdateData, CenterNode).
type Simulator struct {
	conf  config.PhysicsConf
	sched *schedule.Scheduler
	rng   *rand.Rand

	nodes  []*graph.Node
	links  []graph.Link
	index  map[string]*graph.Node
	degree map[string]int
	placed map[*graph.Node]struct{}

	alpha   float64
	running bool
	frame   schedule.FrameID
	radius  func(*graph.Node) float64

	onTick  map[int]TickFunc
	tickSeq int
	unpins  map[string]*schedule.Timer
	ticks   uint64
}

// New creates a stopped simulator with no data.
func New(sched *schedule.Scheduler, conf config.PhysicsConf) *Simulator {
	s := &Simulator{
		conf:   conf,
		sched:  sched,
		rng:    rand.New(rand.NewPCG(uint64(sched.Now().UnixNano()), 0x9e3779b97f4a7c15)),
		index:  make(map[string]*graph.Node),
		degree: make(map[string]int),
		placed: make(map[*graph.Node]struct{}),
		alpha:  1,
		onTick: make(map[int]TickFunc),
		unpins: make(map[string]*schedule.Timer),
	}
	s.radius = func(*graph.Node) float64 { return s.conf.CollideRadius }
	return s
}

// SetRadius overrides the per-node collision radius.
func (s *Simulator) SetRadius(fn func(*graph.Node) float64) {
	if fn != nil {
		s.radius = fn
	}
}

// SetPhysics swaps the tuning parameters; the current alpha is kept.
func (s *Simulator) SetPhysics(conf config.PhysicsConf) {
	s.conf = conf
}

// OnTick registers fn to run after every integration step. The returned
// function unregisters it.
func (s *Simulator) OnTick(fn TickFunc) (remove func()) {
	s.tickSeq++
	id := s.tickSeq
	s.onTick[id] = fn
	return func() { delete(s.onTick, id) }
}

// Start resumes ticking without touching alpha.
func (s *Simulator) Start() {
	s.running = true
	if s.frame == 0 {
		s.requestFrame()
	}
}

// requestFrame asks for the next frame. A callback whose id no longer matches
// s.frame was superseded by Stop and is ignored.
func (s *Simulator) requestFrame() {
	var id schedule.FrameID
	id = s.sched.RequestFrame(func(now time.Time) {
		if s.frame != id {
			return
		}
		s.onFrame(now)
	})
	s.frame = id
}

// Stop freezes the layout; no node moves until Start or Restart.
func (s *Simulator) Stop() {
	s.running = false
	if s.frame != 0 {
		s.sched.CancelFrame(s.frame)
		s.frame = 0
	}
}

// Restart reheats the layout and resumes ticking.
func (s *Simulator) Restart() {
	s.alpha = s.conf.RestartAlpha
	s.Start()
}

// UpdateData rebinds the working set after a merge, places nodes that have
// never been positioned, and restarts with UpdateAlpha.
func (s *Simulator) UpdateData(nodes []*graph.Node, links []graph.Link) {
	s.nodes = nodes
	s.links = links
	s.index = make(map[string]*graph.Node, len(nodes))
	for _, n := range nodes {
		s.index[n.ID] = n
	}
	s.degree = make(map[string]int, len(nodes))
	for _, l := range links {
		s.degree[l.Source]++
		s.degree[l.Target]++
	}
	s.place()
	s.alpha = math.Max(s.alpha, s.conf.UpdateAlpha)
	s.Start()
}

// CenterNode pins id at the origin, reheats the layout and releases the pin
// after CenterUnpinMs. It reports whether the node exists.
func (s *Simulator) CenterNode(id string) bool {
	n := s.index[id]
	if n == nil {
		return false
	}
	n.Pin(0, 0)
	n.VX, n.VY = 0, 0
	s.alpha = math.Max(s.alpha, s.conf.CenterAlpha)
	s.Start()

	if t := s.unpins[id]; t != nil {
		t.Stop()
	}
	delay := time.Duration(s.conf.CenterUnpinMs) * time.Millisecond
	s.unpins[id] = s.sched.AfterFunc(delay, func() {
		delete(s.unpins, id)
		if fx, fy, ok := n.Pinned(); ok && fx == 0 && fy == 0 {
			n.Unpin()
		}
	})
	return true
}

// Alpha returns the current energy.
func (s *Simulator) Alpha() float64 { return s.alpha }

// Running reports whether the simulator is in the running state.
func (s *Simulator) Running() bool { return s.running }

// Cooled reports whether a running simulator has stopped ticking for lack of energy.
func (s *Simulator) Cooled() bool { return s.running && s.alpha < s.conf.AlphaMin }

// Ticks returns the number of integration steps taken.
func (s *Simulator) Ticks() uint64 { return s.ticks }

// Nodes returns the working set.
func (s *Simulator) Nodes() []*graph.Node { return s.nodes }

func (s *Simulator) onFrame(time.Time) {
	s.frame = 0
	if !s.running || s.alpha < s.conf.AlphaMin {
		return
	}
	s.Tick()
	if s.running && s.frame == 0 && s.alpha >= s.conf.AlphaMin {
		s.requestFrame()
	}
}

// Tick performs one integration step regardless of state.
func (s *Simulator) Tick() {
	s.alpha += (0 - s.alpha) * s.conf.AlphaDecay
	alpha := s.alpha

	s.applyLinks(alpha)
	s.applyManyBody(alpha)
	s.applyCenter(alpha)
	s.applyCollide()

	damp := 1 - s.conf.VelocityDecay
	for _, n := range s.nodes {
		if fx, fy, ok := n.Pinned(); ok {
			n.X, n.Y = fx, fy
			n.VX, n.VY = 0, 0
			continue
		}
		n.VX *= damp
		n.VY *= damp
		n.X += n.VX
		n.Y += n.VY
	}

	s.ticks++
	metrics.SimulationTicks.Inc()
	for _, fn := range s.onTick {
		fn(s.nodes, s.links)
	}
}

// place seeds positions for nodes the simulator has not seen before: next to
// an already placed neighbour when one exists, otherwise on a phyllotaxis spiral.
func (s *Simulator) place() {
	neighbours := make(map[string][]string)
	for _, l := range s.links {
		neighbours[l.Source] = append(neighbours[l.Source], l.Target)
		neighbours[l.Target] = append(neighbours[l.Target], l.Source)
	}
	for i, n := range s.nodes {
		if _, ok := s.placed[n]; ok {
			continue
		}
		var anchor *graph.Node
		for _, id := range neighbours[n.ID] {
			if a := s.index[id]; a != nil {
				if _, ok := s.placed[a]; ok {
					anchor = a
					break
				}
			}
		}
		if fx, fy, ok := n.Pinned(); ok {
			n.X, n.Y = fx, fy
		} else if anchor != nil {
			angle := s.rng.Float64() * 2 * math.Pi
			r := s.conf.LinkDistance * (0.4 + 0.2*s.rng.Float64())
			n.X = anchor.X + r*math.Cos(angle)
			n.Y = anchor.Y + r*math.Sin(angle)
		} else {
			r := initialRadius * math.Sqrt(0.5+float64(i))
			a := float64(i) * initialAngle
			n.X, n.Y = r*math.Cos(a), r*math.Sin(a)
		}
		n.VX, n.VY = 0, 0
		s.placed[n] = struct{}{}
	}
}

func (s *Simulator) jiggle() float64 {
	return (s.rng.Float64() - 0.5) * 1e-6
}
