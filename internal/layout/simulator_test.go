package layout_test

import (
	"math"
	"testing"
	"time"

	"github.com/gyaneshwarpardhi/paperatlas/internal/config"
	"github.com/gyaneshwarpardhi/paperatlas/internal/graph"
	"github.com/gyaneshwarpardhi/paperatlas/internal/layout"
	"github.com/gyaneshwarpardhi/paperatlas/internal/schedule"
)

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

const frame = 16 * time.Millisecond

type rig struct {
	sched *schedule.Scheduler
	sim   *layout.Simulator
	now   time.Time
	g     *graph.Graph
}

func newRig(t *testing.T, ids ...string) *rig {
	t.Helper()
	var nodes []*graph.Node
	for _, id := range ids {
		nodes = append(nodes, &graph.Node{ID: id, Variant: graph.VariantToday})
	}
	var links []graph.Link
	for i := 1; i < len(ids); i++ {
		links = append(links, graph.Link{Source: ids[0], Target: ids[i]})
	}
	g, _ := graph.Build(nodes, links)

	s := schedule.New(t0)
	sim := layout.New(s, config.Default().Physics)
	sim.UpdateData(g.Nodes(), g.Links())
	return &rig{sched: s, sim: sim, now: t0, g: g}
}

func (r *rig) frames(n int) {
	for i := 0; i < n; i++ {
		r.now = r.now.Add(frame)
		r.sched.Advance(r.now)
	}
}

func positions(g *graph.Graph) map[string][2]float64 {
	out := make(map[string][2]float64)
	for _, n := range g.Nodes() {
		out[n.ID] = [2]float64{n.X, n.Y}
	}
	return out
}

func TestPinnedNodeHoldsPosition(t *testing.T) {
	r := newRig(t, "a", "b", "c", "d")
	r.frames(5)

	a := r.g.Node("a")
	a.Pin(a.X, a.Y)
	x, y := a.X, a.Y
	r.frames(10)
	if a.X != x || a.Y != y {
		t.Fatalf("pinned node moved: (%g,%g) -> (%g,%g)", x, y, a.X, a.Y)
	}
	if a.VX != 0 || a.VY != 0 {
		t.Errorf("pinned node has velocity (%g,%g)", a.VX, a.VY)
	}

	a.Unpin()
	r.sim.Restart()
	r.frames(10)
	if a.X == x && a.Y == y {
		t.Error("unpinned node did not resume moving")
	}
}

func TestStopFreezesLayout(t *testing.T) {
	r := newRig(t, "a", "b", "c")
	r.frames(3)
	r.sim.Stop()
	before := positions(r.g)
	r.frames(20)
	after := positions(r.g)
	for id, p := range before {
		if after[id] != p {
			t.Errorf("%s moved while stopped: %v -> %v", id, p, after[id])
		}
	}

	r.sim.Restart()
	if got := r.sim.Alpha(); got != config.Default().Physics.RestartAlpha {
		t.Errorf("alpha after restart = %g", got)
	}
	r.frames(2)
	moved := false
	for id, p := range positions(r.g) {
		if before[id] != p {
			moved = true
		}
	}
	if !moved {
		t.Error("restart did not resume ticking")
	}
}

func TestAlphaDecaysUntilCooled(t *testing.T) {
	r := newRig(t, "a", "b")
	conf := config.Default().Physics
	prev := r.sim.Alpha()
	r.frames(1)
	if got := r.sim.Alpha(); got >= prev {
		t.Fatalf("alpha did not decay: %g -> %g", prev, got)
	}

	r.frames(2000)
	if !r.sim.Running() {
		t.Fatal("cooling must not leave the running state")
	}
	if !r.sim.Cooled() {
		t.Fatalf("expected cooled simulator, alpha=%g min=%g", r.sim.Alpha(), conf.AlphaMin)
	}
	ticks := r.sim.Ticks()
	r.frames(10)
	if r.sim.Ticks() != ticks {
		t.Error("cooled simulator kept ticking")
	}
	if _, frames := r.sched.Pending(); frames != 0 {
		t.Errorf("cooled simulator left %d frame requests", frames)
	}
}

func TestCenterNodePinsThenReleases(t *testing.T) {
	r := newRig(t, "a", "b", "c")
	r.frames(5)
	if r.sim.CenterNode("missing") {
		t.Fatal("CenterNode on unknown id should report false")
	}
	if !r.sim.CenterNode("b") {
		t.Fatal("CenterNode(b) = false")
	}
	b := r.g.Node("b")
	r.frames(3)
	if b.X != 0 || b.Y != 0 {
		t.Fatalf("centred node at (%g,%g)", b.X, b.Y)
	}

	r.frames(int(time.Duration(config.Default().Physics.CenterUnpinMs)*time.Millisecond/frame) + 2)
	if _, _, ok := b.Pinned(); ok {
		t.Error("centre pin was not released")
	}
}

func TestCenterReleaseKeepsLaterPin(t *testing.T) {
	r := newRig(t, "a", "b")
	r.sim.CenterNode("a")
	a := r.g.Node("a")
	a.Pin(40, 40)
	r.frames(200)
	if fx, fy, ok := a.Pinned(); !ok || fx != 40 || fy != 40 {
		t.Errorf("pin replaced after centring was cleared: (%g,%g,%v)", fx, fy, ok)
	}
}

func TestManyBodySeparatesNodes(t *testing.T) {
	s := schedule.New(t0)
	conf := config.Default().Physics
	conf.CenterStrength = 0.0001
	sim := layout.New(s, conf)
	a := &graph.Node{ID: "a"}
	b := &graph.Node{ID: "b"}
	sim.UpdateData([]*graph.Node{a, b}, nil)
	d0 := math.Hypot(a.X-b.X, a.Y-b.Y)
	for i := 0; i < 30; i++ {
		sim.Tick()
	}
	if d := math.Hypot(a.X-b.X, a.Y-b.Y); d <= d0 {
		t.Errorf("unlinked nodes did not repel: %g -> %g", d0, d)
	}
}

func TestUpdateDataPlacesNewNodesNearNeighbours(t *testing.T) {
	r := newRig(t, "a", "b")
	r.frames(300)
	a := r.g.Node("a")

	c := &graph.Node{ID: "c", Variant: graph.VariantExpanded}
	merged, _ := graph.Merge(r.g, &graph.Subgraph{
		Nodes: []*graph.Node{c},
		Links: []graph.Link{{Source: "a", Target: "c"}},
	})
	r.sim.UpdateData(merged.Nodes(), merged.Links())

	if d := math.Hypot(c.X-a.X, c.Y-a.Y); d > config.Default().Physics.LinkDistance {
		t.Errorf("new node placed %g away from its neighbour", d)
	}
	if r.sim.Alpha() < config.Default().Physics.UpdateAlpha {
		t.Errorf("alpha after update = %g", r.sim.Alpha())
	}
	if r.sim.Cooled() {
		t.Error("update did not reheat")
	}
}

func TestOnTickUnsubscribe(t *testing.T) {
	r := newRig(t, "a", "b")
	calls := 0
	remove := r.sim.OnTick(func([]*graph.Node, []graph.Link) { calls++ })
	r.frames(3)
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	remove()
	r.frames(3)
	if calls != 3 {
		t.Errorf("callback ran after removal")
	}
}
