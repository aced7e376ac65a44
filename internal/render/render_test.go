package render_test

import (
	"bytes"
	"image/png"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/gyaneshwarpardhi/paperatlas/internal/config"
	"github.com/gyaneshwarpardhi/paperatlas/internal/graph"
	"github.com/gyaneshwarpardhi/paperatlas/internal/render"
	"github.com/gyaneshwarpardhi/paperatlas/internal/viewport"
)

func sampleGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, rep := graph.Build(
		[]*graph.Node{
			{ID: "a", Variant: graph.VariantToday, Category: "Robotics", Title: "Learning to Grasp", X: -40, Y: 0},
			{ID: "b", Variant: graph.VariantCited, Category: "Machine Learning", Title: "Adam", X: 40, Y: 0},
			{ID: "c", Variant: graph.VariantCited, Category: "Machine Learning", Title: "Dropout", X: 0, Y: 60},
		},
		[]graph.Link{{Source: "a", Target: "b"}, {Source: "b", Target: "c"}},
	)
	if len(rep.Rejected) != 0 {
		t.Fatalf("unexpected rejections: %v", rep.Rejected)
	}
	return g
}

func newStyle() *render.Style { return render.NewStyle(config.Default().Render) }

func TestRadiusRules(t *testing.T) {
	st := newStyle()
	center := &graph.Node{Variant: graph.VariantCenter}
	today := &graph.Node{Variant: graph.VariantToday}
	cited := &graph.Node{Variant: graph.VariantCited}
	if !(st.Radius(center, 1) > st.Radius(today, 1) && st.Radius(today, 1) > st.Radius(cited, 1)) {
		t.Fatal("variant radii not ordered center > today > default")
	}

	many := &graph.Node{Variant: graph.VariantCited, AuthorCount: 400}
	some := &graph.Node{Variant: graph.VariantCited, AuthorCount: 3}
	if st.Radius(some, 1) <= st.Radius(cited, 1) {
		t.Error("authors add no bonus")
	}
	if st.Radius(many, 1) >= st.Radius(cited, 1)*3 {
		t.Error("author bonus is unbounded")
	}

	conf := config.Default().Render
	cases := []struct {
		k    float64
		want float64
	}{
		{0.01, conf.RadiusScaleMin},
		{1, 1},
		{4, 2},
		{100, conf.RadiusScaleMax},
	}
	for _, tc := range cases {
		if got := st.ZoomScale(tc.k); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("ZoomScale(%g) = %g, want %g", tc.k, got, tc.want)
		}
	}
}

func TestDecorationsFollowQuality(t *testing.T) {
	st := newStyle()
	g := sampleGraph(t)
	size := viewport.Size{W: 400, H: 300}

	cases := []struct {
		name        string
		k           float64
		interacting bool
		decorated   bool
	}{
		{"idle", 1, false, true},
		{"interacting", 1, true, false},
		{"zoomed out", 0.3, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := st.Render(render.Scene{
				Graph:       g,
				Size:        size,
				Transform:   viewport.Transform{K: tc.k},
				Interacting: tc.interacting,
				Elapsed:     400 * time.Millisecond,
			})
			if len(f.Nodes) != 3 || len(f.Edges) != 2 {
				t.Fatalf("nodes=%d edges=%d; existence must not degrade", len(f.Nodes), len(f.Edges))
			}
			if f.Decorated != tc.decorated {
				t.Fatalf("Decorated = %v", f.Decorated)
			}
			hasLabels := len(f.Labels) > 0
			hasGlow := f.Nodes[0].Glow > 0
			hasPulse := f.Nodes[0].Pulse > 0
			hasGradient := f.Edges[0].Gradient
			if hasLabels != tc.decorated || hasGlow != tc.decorated || hasPulse != tc.decorated || hasGradient != tc.decorated {
				t.Errorf("labels=%v glow=%v pulse=%v gradient=%v", hasLabels, hasGlow, hasPulse, hasGradient)
			}
			if f.Nodes[1].Pulse != 0 {
				t.Error("pulse ring on a non-today node")
			}
		})
	}
}

func TestSelectionEmphasis(t *testing.T) {
	st := newStyle()
	g := sampleGraph(t)
	base := render.Scene{Graph: g, Size: viewport.Size{W: 400, H: 300}, Transform: viewport.Identity()}

	plain := st.Render(base)
	if plain.Edges[0].Opacity != plain.Edges[1].Opacity {
		t.Fatal("edges differ in opacity with nothing selected")
	}

	sel := base
	sel.Selected = "a"
	f := st.Render(sel)
	opacities := []float64{f.Edges[0].Opacity, f.Edges[1].Opacity}
	if diff := cmp.Diff([]float64{1, 0.15}, opacities); diff != "" {
		t.Errorf("edge opacities (-want +got):\n%s", diff)
	}
	if f.Nodes[0].StrokeWidth <= f.Nodes[1].StrokeWidth {
		t.Error("selected node outline is not thicker")
	}
}

func TestRenderSkipsUnpositionedNodes(t *testing.T) {
	st := newStyle()
	g := sampleGraph(t)
	g.Node("c").X = math.NaN()
	f := st.Render(render.Scene{Graph: g, Size: viewport.Size{W: 400, H: 300}, Transform: viewport.Identity()})
	if len(f.Nodes) != 2 || len(f.Edges) != 1 {
		t.Errorf("nodes=%d edges=%d, want 2/1", len(f.Nodes), len(f.Edges))
	}
}

func TestRenderDoesNotMovePositions(t *testing.T) {
	st := newStyle()
	g := sampleGraph(t)
	before := make(map[string][2]float64)
	for _, n := range g.Nodes() {
		before[n.ID] = [2]float64{n.X, n.Y}
	}
	st.Render(render.Scene{Graph: g, Size: viewport.Size{W: 400, H: 300}, Transform: viewport.Transform{K: 2, TX: 10}})
	for _, n := range g.Nodes() {
		if before[n.ID] != [2]float64{n.X, n.Y} {
			t.Errorf("%s moved during render", n.ID)
		}
	}
}

func TestEncodeSVG(t *testing.T) {
	st := newStyle()
	f := st.Render(render.Scene{Graph: sampleGraph(t), Size: viewport.Size{W: 400, H: 300}, Transform: viewport.Identity()})
	var buf bytes.Buffer
	if err := render.EncodeSVG(&buf, f); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"<svg", `data-id="a"`, "linearGradient", "Learning to Grasp", "</svg>"} {
		if !strings.Contains(out, want) {
			t.Errorf("svg output missing %q", want)
		}
	}
}

func TestEncodePNG(t *testing.T) {
	st := newStyle()
	f := st.Render(render.Scene{Graph: sampleGraph(t), Size: viewport.Size{W: 320, H: 200}, Transform: viewport.Identity()})
	var buf bytes.Buffer
	if err := render.EncodePNG(&buf, f); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 200 {
		t.Fatalf("image size %v", b)
	}
	// The first node sits left of centre; its pixel must differ from the background.
	bg := f.Background
	r, g, b, _ := img.At(160-40, 100).RGBA()
	br, bgG, bb, _ := bg.RGBA()
	if r == br && g == bgG && b == bb {
		t.Error("node centre was not drawn")
	}
}

func TestPaletteOverrides(t *testing.T) {
	conf := config.Default().Render
	conf.Palette = map[string]string{"Robotics": "#ff0000"}
	st := render.NewStyle(conf)
	if got := st.Color("Robotics").Hex(); got != "#ff0000" {
		t.Errorf("configured colour = %s", got)
	}
	if st.Color("Multimodal") != st.Color("Multimodal") {
		t.Error("generated colour is not stable")
	}
}
