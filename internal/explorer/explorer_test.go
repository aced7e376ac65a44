package explorer_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gyaneshwarpardhi/paperatlas/internal/config"
	"github.com/gyaneshwarpardhi/paperatlas/internal/engine"
	"github.com/gyaneshwarpardhi/paperatlas/internal/event"
	"github.com/gyaneshwarpardhi/paperatlas/internal/explorer"
	"github.com/gyaneshwarpardhi/paperatlas/internal/graph"
	"github.com/gyaneshwarpardhi/paperatlas/internal/source"
)

var t0 = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

const frame = 16 * time.Millisecond

type fakeSource struct {
	mu      sync.Mutex
	initial func() *graph.Subgraph
	initErr error
}

func (f *fakeSource) Initial(context.Context) (*graph.Subgraph, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.initErr != nil {
		return nil, f.initErr
	}
	return f.initial(), nil
}

func (f *fakeSource) Expand(context.Context, string) (*graph.Subgraph, error) {
	return nil, errors.New("not used")
}

func (f *fakeSource) Detail(_ context.Context, id string) (*source.Detail, error) {
	return &source.Detail{ArxivID: id, Title: "detail " + id}, nil
}

func (f *fakeSource) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initErr = err
}

type fakeExpander struct {
	reqs []engine.Request
	err  error
}

func (f *fakeExpander) Submit(req engine.Request) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.reqs = append(f.reqs, req)
	return "req", nil
}

func star(center string, leaves ...string) func() *graph.Subgraph {
	return func() *graph.Subgraph {
		sg := &graph.Subgraph{Nodes: []*graph.Node{{ID: center, Variant: graph.VariantToday, Title: center, Summary: "summary of " + center}}}
		for _, l := range leaves {
			sg.Nodes = append(sg.Nodes, &graph.Node{ID: l, Title: l})
			sg.Links = append(sg.Links, graph.Link{Source: center, Target: l})
		}
		return sg
	}
}

type rig struct {
	s   *explorer.Session
	src *fakeSource
	exp *fakeExpander
	now time.Time
}

func newRig(t *testing.T) *rig {
	t.Helper()
	src := &fakeSource{initial: star("a", "b", "c")}
	exp := &fakeExpander{}
	s := explorer.New("s1", src, exp, config.Default(), t0)
	t.Cleanup(s.Close)
	if err := s.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	return &rig{s: s, src: src, exp: exp, now: t0}
}

func (r *rig) frames(n int) {
	for i := 0; i < n; i++ {
		r.now = r.now.Add(frame)
		r.s.Step(r.now)
	}
}

// until steps frames until cond holds or real time runs out; it covers work
// delivered from other goroutines.
func (r *rig) until(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached")
		}
		r.frames(1)
		time.Sleep(time.Millisecond)
	}
}

func (r *rig) handle(t *testing.T, ev event.Event) {
	t.Helper()
	if _, err := r.s.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("%s: %v", ev.Type, err)
	}
}

func (r *rig) screenOf(id string) (float64, float64) {
	n := r.s.Graph().Node(id)
	v := r.s.Viewport()
	return v.Transform().WorldToScreen(v.Size(), n.X, n.Y)
}

func TestLoadPlacesAndRenders(t *testing.T) {
	r := newRig(t)
	if got := r.s.Graph().NodeCount(); got != 3 {
		t.Fatalf("nodes = %d, want 3", got)
	}
	for _, n := range r.s.Graph().Nodes() {
		if !n.HasPosition() {
			t.Errorf("node %s has no position", n.ID)
		}
	}
	frames, unsub := r.s.Subscribe()
	defer unsub()

	r.frames(1)
	f, seq := r.s.Frame()
	if seq == 0 || len(f.Nodes) != 3 || len(f.Edges) != 2 {
		t.Fatalf("frame %d: %d nodes, %d edges", seq, len(f.Nodes), len(f.Edges))
	}
	select {
	case got := <-frames:
		if len(got.Nodes) != 3 {
			t.Errorf("subscriber frame has %d nodes", len(got.Nodes))
		}
	default:
		t.Error("subscriber got no frame")
	}
}

func TestFailedLoadKeepsGraph(t *testing.T) {
	r := newRig(t)
	before := r.s.Graph()
	r.src.fail(errors.New("service down"))
	if err := r.s.Load(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if r.s.Graph() != before {
		t.Error("graph replaced after failed load")
	}
	if r.s.State().Loading {
		t.Error("loading flag left set")
	}
}

func TestExpandMergesOncePerNode(t *testing.T) {
	r := newRig(t)
	if err := r.s.Expand("b"); err != nil {
		t.Fatal(err)
	}
	if err := r.s.Expand("b"); !errors.Is(err, explorer.ErrExpansionInFlight) {
		t.Fatalf("second expand = %v, want ErrExpansionInFlight", err)
	}
	if err := r.s.Expand("zzz"); !errors.Is(err, explorer.ErrUnknownNode) {
		t.Fatalf("unknown expand = %v", err)
	}
	if len(r.exp.reqs) != 1 {
		t.Fatalf("submitted %d requests, want 1", len(r.exp.reqs))
	}

	req := r.exp.reqs[0]
	req.Deliver(&engine.Result{NodeID: "b", Epoch: req.Epoch, Subgraph: star("b", "a", "d", "e")()})
	r.frames(1)

	g := r.s.Graph()
	if g.NodeCount() != 5 {
		t.Fatalf("nodes = %d, want 5", g.NodeCount())
	}
	if !g.HasLink("b", "d") || !g.HasLink("a", "b") {
		t.Error("links missing after merge")
	}
	if r.s.Expanding("b") {
		t.Error("b still marked in flight")
	}
	for _, id := range []string{"d", "e"} {
		if !g.Node(id).HasPosition() {
			t.Errorf("new node %s not placed", id)
		}
	}
}

func TestStaleExpansionDropped(t *testing.T) {
	r := newRig(t)
	if err := r.s.Expand("b"); err != nil {
		t.Fatal(err)
	}
	old := r.exp.reqs[0]
	if err := r.s.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	old.Deliver(&engine.Result{NodeID: "b", Epoch: old.Epoch, Subgraph: star("b", "x")()})
	r.until(t, func() bool { return !r.s.State().Loading })

	if r.s.Graph().Node("x") != nil {
		t.Error("stale expansion merged")
	}
	if err := r.s.Expand("b"); err != nil {
		t.Errorf("expand after reload: %v", err)
	}
}

func TestFailedExpansionClearsInFlight(t *testing.T) {
	r := newRig(t)
	if err := r.s.Expand("c"); err != nil {
		t.Fatal(err)
	}
	req := r.exp.reqs[0]
	req.Deliver(&engine.Result{NodeID: "c", Epoch: req.Epoch, Err: errors.New("boom")})
	r.frames(1)
	if r.s.Expanding("c") {
		t.Error("c still in flight after failure")
	}
	if r.s.Graph().NodeCount() != 3 {
		t.Error("graph changed after failed expansion")
	}
}

type panicFetcher struct{}

func (panicFetcher) Expand(context.Context, string) (*graph.Subgraph, error) { panic("boom") }

func TestPanickingExpansionReleasesNode(t *testing.T) {
	cfg := config.Default()
	eng := engine.New(context.Background(), panicFetcher{}, cfg.Expansion)
	t.Cleanup(eng.Shutdown)
	s := explorer.New("s1", &fakeSource{initial: star("a", "b")}, eng, cfg, t0)
	t.Cleanup(s.Close)
	if err := s.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	r := &rig{s: s, now: t0}

	if err := s.Expand("a"); err != nil {
		t.Fatal(err)
	}
	r.until(t, func() bool { return !s.Expanding("a") })
	if err := s.Expand("a"); err != nil {
		t.Errorf("re-expand after panic: %v", err)
	}
}

func TestSubmitErrorReleasesNode(t *testing.T) {
	r := newRig(t)
	r.exp.err = engine.ErrQueueFull
	if err := r.s.Expand("a"); !errors.Is(err, engine.ErrQueueFull) {
		t.Fatalf("err = %v", err)
	}
	if r.s.Expanding("a") {
		t.Error("a left in flight")
	}
}

func TestPointerDownOnNodeSelectsAndExpands(t *testing.T) {
	r := newRig(t)
	r.frames(3)
	x, y := r.screenOf("a")
	r.handle(t, event.Event{Type: event.PointerDown, X: x, Y: y})

	st := r.s.State()
	if st.Selected != "a" {
		t.Fatalf("selected = %q", st.Selected)
	}
	if len(r.exp.reqs) != 1 || r.exp.reqs[0].NodeID != "a" {
		t.Fatalf("requests = %+v", r.exp.reqs)
	}
	if r.s.Viewport().Interacting() {
		t.Error("press on a node started a pan")
	}
	r.until(t, func() bool { return r.s.State().Detail != nil })
	if d := r.s.State().Detail; d.Title != "detail a" {
		t.Errorf("detail = %+v", d)
	}
	r.until(t, func() bool { return r.s.State().Insight == "summary of a" })
}

func TestPointerDownOnBackgroundPans(t *testing.T) {
	r := newRig(t)
	r.handle(t, event.Event{Type: event.PointerDown, X: 2, Y: 2})
	if !r.s.Viewport().Interacting() {
		t.Fatal("background press did not start a pan")
	}
	if r.s.Simulator().Running() {
		t.Error("simulation running during pan")
	}
	before := r.s.Viewport().Transform()
	r.handle(t, event.Event{Type: event.PointerMove, X: 12, Y: 7})
	after := r.s.Viewport().Transform()
	if after.TX-before.TX != 10 || after.TY-before.TY != 5 {
		t.Errorf("pan moved by (%g,%g)", after.TX-before.TX, after.TY-before.TY)
	}
	r.handle(t, event.Event{Type: event.PointerUp})
	if !r.s.Simulator().Running() {
		t.Error("simulation not restarted after pan")
	}
}

func TestHoverPinsNode(t *testing.T) {
	r := newRig(t)
	r.frames(3)
	x, y := r.screenOf("b")
	r.handle(t, event.Event{Type: event.PointerMove, X: x, Y: y})
	if got := r.s.State().Hovered; got != "b" {
		t.Fatalf("hovered = %q", got)
	}
	if _, _, pinned := r.s.Graph().Node("b").Pinned(); !pinned {
		t.Error("hovered node not pinned")
	}
	r.handle(t, event.Event{Type: event.PointerLeave})
	if _, _, pinned := r.s.Graph().Node("b").Pinned(); pinned {
		t.Error("node still pinned after leave")
	}
}

func TestHoverKeepsCenteringPin(t *testing.T) {
	r := newRig(t)
	r.frames(3)
	x, y := r.screenOf("b")
	r.handle(t, event.Event{Type: event.PointerMove, X: x, Y: y})
	if err := r.s.Center("b"); err != nil {
		t.Fatal(err)
	}
	r.handle(t, event.Event{Type: event.PointerLeave})
	r.frames(1)

	b := r.s.Graph().Node("b")
	if fx, fy, ok := b.Pinned(); !ok || fx != 0 || fy != 0 {
		t.Fatalf("after leave pin = (%g,%g,%v), want origin", fx, fy, ok)
	}
	// 1500ms at 16ms per frame.
	r.frames(100)
	if _, _, ok := b.Pinned(); ok {
		t.Error("centering pin not released after its delay")
	}
}

func TestWheelZoomRendersEveryFrame(t *testing.T) {
	r := newRig(t)
	r.frames(2)
	k := r.s.Viewport().Transform().K

	r.handle(t, event.Event{Type: event.Wheel, X: 640, Y: 400, DeltaY: 100})
	if r.s.Simulator().Running() {
		t.Fatal("simulation running during zoom")
	}
	_, seq := r.s.Frame()
	r.frames(3)
	_, seq2 := r.s.Frame()
	if seq2-seq != 3 {
		t.Errorf("rendered %d frames during zoom, want 3", seq2-seq)
	}
	if got := r.s.Viewport().Transform().K; got >= k {
		t.Errorf("k = %g, want < %g", got, k)
	}

	r.frames(15)
	if !r.s.Simulator().Running() {
		t.Error("simulation not restarted after zoom settled")
	}
	if r.s.Viewport().Interacting() {
		t.Error("still interacting")
	}
}

func TestCommandEvent(t *testing.T) {
	r := newRig(t)
	res, err := r.s.HandleEvent(context.Background(), event.Event{
		Type: event.Command, Command: "center", Params: map[string]any{"id": "c"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Errorf("result = %+v", res)
	}
	if fx, fy, ok := r.s.Graph().Node("c").Pinned(); !ok || fx != 0 || fy != 0 {
		t.Errorf("c pinned = (%g,%g,%v)", fx, fy, ok)
	}
}

func TestCloseStopsEverything(t *testing.T) {
	r := newRig(t)
	frames, _ := r.s.Subscribe()
	r.s.Close()

	if err := r.s.Post(func() {}); !errors.Is(err, explorer.ErrClosed) {
		t.Errorf("post after close = %v", err)
	}
	if _, err := r.s.HandleEvent(context.Background(), event.Event{Type: event.PointerUp}); !errors.Is(err, explorer.ErrClosed) {
		t.Errorf("event after close = %v", err)
	}
	for range frames {
	}
	timers, pending := r.s.Scheduler().Pending()
	if timers != 0 || pending != 0 {
		t.Errorf("pending timers=%d frames=%d", timers, pending)
	}
}

func TestRunLoop(t *testing.T) {
	src := &fakeSource{initial: star("a", "b")}
	s := explorer.New("s2", src, &fakeExpander{}, config.Default(), time.Now())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Load(ctx); err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	go func() {
		s.Run(ctx, 120)
		close(done)
	}()

	f, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Nodes) != 2 {
		t.Errorf("snapshot has %d nodes", len(f.Nodes))
	}
	s.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}
