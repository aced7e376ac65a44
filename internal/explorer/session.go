// Package explorer runs interactive graph sessions: one graph, one layout,
// one viewport and one frame stream per session, all owned by a single loop
// goroutine.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gyaneshwarpardhi/paperatlas/internal/action"
	"github.com/gyaneshwarpardhi/paperatlas/internal/config"
	"github.com/gyaneshwarpardhi/paperatlas/internal/engine"
	"github.com/gyaneshwarpardhi/paperatlas/internal/event"
	"github.com/gyaneshwarpardhi/paperatlas/internal/graph"
	"github.com/gyaneshwarpardhi/paperatlas/internal/hittest"
	"github.com/gyaneshwarpardhi/paperatlas/internal/layout"
	"github.com/gyaneshwarpardhi/paperatlas/internal/metrics"
	"github.com/gyaneshwarpardhi/paperatlas/internal/render"
	"github.com/gyaneshwarpardhi/paperatlas/internal/schedule"
	"github.com/gyaneshwarpardhi/paperatlas/internal/source"
	"github.com/gyaneshwarpardhi/paperatlas/internal/viewport"
)

var (
	ErrClosed            = errors.New("session closed")
	ErrBusy              = errors.New("session inbox full")
	ErrUnknownNode       = errors.New("unknown node")
	ErrExpansionInFlight = errors.New("expansion already in flight")
)

const (
	inboxDepth  = 256
	revealStep  = 18 * time.Millisecond
	fetchWindow = 10 * time.Second
)

// Expander accepts asynchronous expansion requests.
type Expander interface {
	Submit(req engine.Request) (string, error)
}

// Session is one explorer: a graph, its layout simulation, a viewport, hover
// and selection state, and the latest rendered frame.
//
// Everything except Post, Do, Snapshot, Subscribe, Close, LastActive and ID
// must run on the session loop: from Run, Step, or inside Do.
type Session struct {
	id  string
	log *slog.Logger

	src      source.Source
	exp      Expander
	registry *action.Registry

	sched *schedule.Scheduler
	graph *graph.Graph
	sim   *layout.Simulator
	view  *viewport.Controller
	style *render.Style
	hit   hittest.Tester
	hover hittest.Hover
	start time.Time

	selected string
	detail   *source.Detail
	reveal   *Reveal
	loading  bool
	inFlight map[string]bool
	epoch    uint64

	frame     render.Frame
	frameSeq  uint64
	renderReq schedule.FrameID

	subMu  sync.Mutex
	subs   map[int]chan render.Frame
	subSeq int

	inbox      chan func()
	quit       chan struct{}
	closeOnce  sync.Once
	running    atomic.Bool
	closed     bool
	lastActive atomic.Int64
}

// New creates a session with an empty graph. Call Load to fetch the initial
// graph and Run to start its loop.
func New(id string, src source.Source, exp Expander, cfg *config.Config, now time.Time) *Session {
	sched := schedule.New(now)
	s := &Session{
		id:       id,
		log:      slog.Default().With("session", id),
		src:      src,
		exp:      exp,
		registry: action.Default(),
		sched:    sched,
		graph:    graph.Empty(),
		start:    now,
		inFlight: make(map[string]bool),
		subs:     make(map[int]chan render.Frame),
		inbox:    make(chan func(), inboxDepth),
		quit:     make(chan struct{}),
	}
	s.sim = layout.New(sched, cfg.Physics)
	s.view = viewport.NewController(sched, s.sim, cfg.Viewport)
	s.applyStyle(cfg)
	s.sim.OnTick(func([]*graph.Node, []graph.Link) {
		if !s.view.Interacting() {
			s.render()
		}
	})
	s.touch(now)
	return s
}

func (s *Session) applyStyle(cfg *config.Config) {
	s.style = render.NewStyle(cfg.Render)
	s.hit = hittest.Tester{Radius: s.style.Radius, Tolerance: cfg.Render.HitTolerance}
	collide := cfg.Physics.CollideRadius
	s.sim.SetRadius(func(n *graph.Node) float64 {
		return math.Max(collide, render.BaseRadius(n)*1.6)
	})
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// LastActive returns when the session last received input.
func (s *Session) LastActive() time.Time { return time.Unix(0, s.lastActive.Load()) }

func (s *Session) touch(now time.Time) { s.lastActive.Store(now.UnixNano()) }

// Graph returns the current graph.
func (s *Session) Graph() *graph.Graph { return s.graph }

// Simulator returns the session's layout simulation.
func (s *Session) Simulator() *layout.Simulator { return s.sim }

// Viewport returns the session's viewport controller.
func (s *Session) Viewport() *viewport.Controller { return s.view }

// Scheduler returns the session clock.
func (s *Session) Scheduler() *schedule.Scheduler { return s.sched }

// Frame returns the latest rendered frame and its sequence number.
func (s *Session) Frame() (render.Frame, uint64) { return s.frame, s.frameSeq }

// ApplyConfig swaps in physics, viewport and render settings.
func (s *Session) ApplyConfig(cfg *config.Config) {
	s.sim.SetPhysics(cfg.Physics)
	s.view.SetConf(cfg.Viewport)
	s.applyStyle(cfg)
	s.requestRender()
}

// ---- loop ----

// Run drives the session until ctx is done or Close is called. Frames are
// advanced at frameRate per second.
func (s *Session) Run(ctx context.Context, frameRate int) {
	s.running.Store(true)
	defer s.shutdown()
	if frameRate <= 0 {
		frameRate = 60
	}
	t := time.NewTicker(time.Second / time.Duration(frameRate))
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.quit:
			return
		case fn := <-s.inbox:
			fn()
		case now := <-t.C:
			s.sched.Advance(now)
		}
	}
}

// Step runs queued work and advances the clock to now. Headless callers use
// it in place of Run.
func (s *Session) Step(now time.Time) {
	for drained := false; !drained; {
		select {
		case fn := <-s.inbox:
			fn()
		default:
			drained = true
		}
	}
	s.sched.Advance(now)
}

// Post queues fn onto the loop without waiting.
func (s *Session) Post(fn func()) error {
	select {
	case <-s.quit:
		return ErrClosed
	default:
	}
	select {
	case s.inbox <- fn:
		return nil
	default:
		return ErrBusy
	}
}

// deliver queues fn, blocking until there is room or the session closes.
func (s *Session) deliver(fn func()) {
	select {
	case s.inbox <- fn:
	case <-s.quit:
	}
}

// Do runs fn on the loop and waits for it to finish.
func (s *Session) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case s.inbox <- func() { fn(); close(done) }:
	case <-s.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-s.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the session. With Run active the loop tears down; otherwise
// teardown happens here.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
		if !s.running.Load() {
			s.shutdown()
		}
	})
}

// Done is closed once Close has been called.
func (s *Session) Done() <-chan struct{} { return s.quit }

func (s *Session) shutdown() {
	if s.closed {
		return
	}
	s.closed = true
	s.epoch++
	s.reveal.Close()
	s.view.Close()
	s.sim.Stop()
	s.sched.Close()
	s.subMu.Lock()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.subMu.Unlock()
	s.log.Info("session closed", "nodes", s.graph.NodeCount())
}

// ---- rendering ----

// Subscribe returns a channel that receives every new frame. A slow reader
// only sees the latest one. The channel closes with the session.
func (s *Session) Subscribe() (<-chan render.Frame, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	ch := make(chan render.Frame, 1)
	select {
	case <-s.quit:
		close(ch)
		return ch, func() {}
	default:
	}
	s.subSeq++
	id := s.subSeq
	s.subs[id] = ch
	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if c, ok := s.subs[id]; ok {
			close(c)
			delete(s.subs, id)
		}
	}
}

// Snapshot returns the latest frame, rendering one first if none exists yet.
func (s *Session) Snapshot(ctx context.Context) (render.Frame, error) {
	var f render.Frame
	err := s.Do(ctx, func() {
		if s.frameSeq == 0 {
			s.render()
		}
		f = s.frame
	})
	return f, err
}

func (s *Session) scene() render.Scene {
	sc := render.Scene{
		Graph:       s.graph,
		Size:        s.view.Size(),
		Transform:   s.view.Transform(),
		Interacting: s.view.Interacting(),
		Selected:    s.selected,
		Elapsed:     s.sched.Now().Sub(s.start),
	}
	if h := s.hover.Current(); h != nil {
		sc.Hovered = h.ID
	}
	return sc
}

// Render draws the current state into a new frame and publishes it.
func (s *Session) render() {
	s.frame = s.style.Render(s.scene())
	s.frameSeq++
	s.subMu.Lock()
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s.frame
	}
	s.subMu.Unlock()
}

// requestRender schedules a render on the next frame. While a gesture is
// active the request re-arms itself, flushing coalesced zoom each frame.
func (s *Session) requestRender() {
	if s.renderReq != 0 || s.closed {
		return
	}
	var id schedule.FrameID
	id = s.sched.RequestFrame(func(time.Time) {
		if s.renderReq != id {
			return
		}
		s.renderReq = 0
		s.view.Flush()
		s.render()
		if s.view.Interacting() {
			s.requestRender()
		}
	})
	s.renderReq = id
}

// ---- loading and expansion ----

// Load fetches the initial graph and merges it in. On failure the current
// graph is left as it is.
func (s *Session) Load(ctx context.Context) error {
	s.loading = true
	sg, err := s.src.Initial(ctx)
	s.loading = false
	if err != nil {
		s.log.Warn("initial load failed", "err", err)
		return fmt.Errorf("initial graph: %w", err)
	}
	s.epoch++
	clear(s.inFlight)
	s.merge(sg)
	s.view.Fit(s.graph.Nodes(), 40)
	return nil
}

// Reload refetches the initial graph in the background. Expansions issued
// before the reload are discarded when they arrive.
func (s *Session) Reload(_ context.Context) error {
	if s.closed {
		return ErrClosed
	}
	s.epoch++
	epoch := s.epoch
	clear(s.inFlight)
	s.loading = true
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), fetchWindow)
		defer cancel()
		sg, err := s.src.Initial(ctx)
		s.deliver(func() {
			if s.epoch != epoch {
				return
			}
			s.loading = false
			if err != nil {
				s.log.Warn("reload failed", "err", err)
				s.requestRender()
				return
			}
			s.merge(sg)
		})
	}()
	s.requestRender()
	return nil
}

// Expand asks for the neighbourhood of id. At most one request per node is
// outstanding at a time.
func (s *Session) Expand(id string) error {
	if s.closed {
		return ErrClosed
	}
	if s.graph.Node(id) == nil {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	if s.inFlight[id] {
		return fmt.Errorf("%w: %s", ErrExpansionInFlight, id)
	}
	s.inFlight[id] = true
	_, err := s.exp.Submit(engine.Request{
		Session: s.id,
		NodeID:  id,
		Epoch:   s.epoch,
		Deliver: func(r *engine.Result) {
			s.deliver(func() { s.applyExpansion(r) })
		},
	})
	if err != nil {
		delete(s.inFlight, id)
		return err
	}
	return nil
}

func (s *Session) applyExpansion(r *engine.Result) {
	if r.Epoch != s.epoch {
		metrics.ExpansionResults.WithLabelValues("stale").Inc()
		s.log.Debug("expansion dropped", "node", r.NodeID, "epoch", r.Epoch, "current", s.epoch)
		return
	}
	delete(s.inFlight, r.NodeID)
	if r.Err != nil {
		metrics.ExpansionResults.WithLabelValues("failed").Inc()
		return
	}
	metrics.ExpansionResults.WithLabelValues("merged").Inc()
	s.merge(r.Subgraph)
}

func (s *Session) merge(sg *graph.Subgraph) {
	merged, rep := graph.Merge(s.graph, sg)
	if len(rep.Rejected) > 0 {
		metrics.RejectedLinks.Add(float64(len(rep.Rejected)))
		s.log.Debug("links rejected", "report", rep.String())
	}
	if merged == s.graph {
		return
	}
	metrics.MergedNodes.Add(float64(rep.NodesAdded))
	s.graph = merged
	s.sim.UpdateData(merged.Nodes(), merged.Links())
	s.requestRender()
}

// Expanding reports whether an expansion for id is outstanding.
func (s *Session) Expanding(id string) bool { return s.inFlight[id] }

// ---- commands ----

// Center pins id at the world origin for a while and reheats the layout.
func (s *Session) Center(id string) error {
	if !s.sim.CenterNode(id) {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	return nil
}

// Select makes id the selected node, loads its detail and starts revealing
// its summary.
func (s *Session) Select(id string) error {
	n := s.graph.Node(id)
	if n == nil {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	if s.selected == id {
		return nil
	}
	s.Deselect()
	s.selected = id
	s.reveal = NewReveal(s.sched, n.Summary, revealStep, nil)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), fetchWindow)
		defer cancel()
		d, err := s.src.Detail(ctx, id)
		s.deliver(func() {
			if s.selected != id {
				return
			}
			if err != nil {
				s.log.Warn("detail failed", "node", id, "err", err)
				return
			}
			s.detail = d
		})
	}()
	s.requestRender()
	return nil
}

// Deselect clears the selection and stops the summary reveal.
func (s *Session) Deselect() {
	if s.selected == "" {
		return
	}
	s.reveal.Close()
	s.reveal = nil
	s.selected = ""
	s.detail = nil
	s.requestRender()
}

// Fit frames every positioned node.
func (s *Session) Fit(padding float64) {
	s.view.Fit(s.graph.Nodes(), padding)
	s.requestRender()
}

// ResetView restores the identity transform.
func (s *Session) ResetView() {
	s.view.Reset()
	s.requestRender()
}

// ---- input ----

// HandleEvent applies one input event.
func (s *Session) HandleEvent(ctx context.Context, ev event.Event) (*action.Result, error) {
	if s.closed {
		return nil, ErrClosed
	}
	metrics.InputEvents.WithLabelValues(string(ev.Type)).Inc()
	at := ev.ReceivedAt
	if at.IsZero() {
		at = time.Now()
	}
	s.touch(at)

	var res *action.Result
	var err error
	switch ev.Type {
	case event.PointerDown:
		n := s.hitAt(ev.X, ev.Y)
		s.view.PointerDown(ev.X, ev.Y, n != nil)
		if n != nil {
			s.activate(n)
		}
	case event.PointerMove:
		if s.view.PanState() == viewport.Panning {
			s.view.PointerMove(ev.X, ev.Y)
		} else {
			s.hover.Set(s.hitAt(ev.X, ev.Y))
		}
	case event.PointerUp:
		s.view.PointerUp()
	case event.PointerLeave:
		s.view.PointerLeave()
		s.hover.Set(nil)
	case event.Wheel:
		s.view.Wheel(viewport.Wheel{
			X: ev.X, Y: ev.Y,
			DeltaX: ev.DeltaX, DeltaY: ev.DeltaY, DeltaMode: ev.DeltaMode,
			Ctrl: ev.Ctrl, Meta: ev.Meta,
		})
	case event.TouchStart:
		if len(ev.Touches) == 1 {
			if n := s.hitAt(ev.Touches[0].X, ev.Touches[0].Y); n != nil {
				s.activate(n)
				break
			}
		}
		s.view.TouchStart(touches(ev.Touches))
	case event.TouchMove:
		s.view.TouchMove(touches(ev.Touches))
	case event.TouchEnd:
		s.view.TouchEnd(touches(ev.Touches))
	case event.Resize:
		s.view.Resize(ev.Width, ev.Height)
	case event.Command:
		res, err = s.registry.Run(ctx, s, ev.Command, ev.Params)
	}
	s.requestRender()
	return res, err
}

// activate selects n and expands it unless an expansion is already pending.
func (s *Session) activate(n *graph.Node) {
	if err := s.Select(n.ID); err != nil {
		s.log.Debug("select failed", "node", n.ID, "err", err)
	}
	if s.inFlight[n.ID] {
		return
	}
	if err := s.Expand(n.ID); err != nil {
		s.log.Warn("expand failed", "node", n.ID, "err", err)
	}
}

func (s *Session) hitAt(x, y float64) *graph.Node {
	return s.hit.Hit(s.graph.Nodes(), s.view.Transform(), s.view.Size(), x, y)
}

func touches(ts []event.Touch) []viewport.Touch {
	out := make([]viewport.Touch, len(ts))
	for i, t := range ts {
		out[i] = viewport.Touch{ID: t.ID, X: t.X, Y: t.Y}
	}
	return out
}
