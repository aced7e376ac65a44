// Package render turns a graph snapshot and a viewport into a display list
// and encodes display lists as SVG or PNG.
package render

import (
	"math"
	"time"
	"unicode/utf8"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/gyaneshwarpardhi/paperatlas/internal/graph"
	"github.com/gyaneshwarpardhi/paperatlas/internal/viewport"
)

const (
	edgeOpacityIdle     = 0.55
	edgeOpacityDimmed   = 0.15
	edgeOpacitySelected = 1.0

	edgeWidth         = 1.2
	strokeWidth       = 1.0
	strokeWidthActive = 3.0

	glowSpread   = 2.2
	pulsePeriod  = 1600 * time.Millisecond
	pulseSpread  = 7.0
	labelMaxRune = 42
	labelSize    = 11.0
)

// Scene is everything one frame depends on.
type Scene struct {
	Graph       *graph.Graph
	Size        viewport.Size
	Transform   viewport.Transform
	Interacting bool
	Hovered     string
	Selected    string
	// Elapsed drives the pulse ring animation.
	Elapsed time.Duration
}

// Frame is a display list in screen coordinates, drawn back to front:
// edges, then nodes, then labels.
type Frame struct {
	Width, Height float64
	Background    colorful.Color
	Decorated     bool
	Edges         []Edge
	Nodes         []Disc
	Labels        []Label
}

// Edge is a straight stroke between two node centres. When Gradient is set
// the stroke blends From into To.
type Edge struct {
	X1, Y1, X2, Y2 float64
	From, To       colorful.Color
	Gradient       bool
	Opacity        float64
	Width          float64
}

// Disc is a node circle with optional halo and pulse ring.
type Disc struct {
	ID          string
	X, Y, R     float64
	Fill        colorful.Color
	Stroke      colorful.Color
	StrokeWidth float64
	// Glow is the halo radius; zero means no halo.
	Glow float64
	// Pulse is the ring radius; zero means no ring.
	Pulse        float64
	PulseOpacity float64
}

// Label is a node title anchored at its left baseline.
type Label struct {
	X, Y float64
	Text string
	Size float64
}

var (
	strokeDefault = colorful.Color{R: 0.1, G: 0.12, B: 0.16}
	strokeActive  = colorful.Color{R: 1, G: 1, B: 1}
)

// Render builds the frame for s. It reads node positions and never writes them.
func (st *Style) Render(s Scene) Frame {
	k := s.Transform.K
	f := Frame{
		Width:      s.Size.W,
		Height:     s.Size.H,
		Background: st.Background(),
		Decorated:  st.Decorated(k, s.Interacting),
	}
	g := s.Graph
	if g == nil {
		return f
	}

	for _, l := range g.Links() {
		src, dst, ok := g.Resolve(l)
		if !ok || !src.HasPosition() || !dst.HasPosition() {
			continue
		}
		x1, y1 := s.Transform.WorldToScreen(s.Size, src.X, src.Y)
		x2, y2 := s.Transform.WorldToScreen(s.Size, dst.X, dst.Y)
		e := Edge{X1: x1, Y1: y1, X2: x2, Y2: y2, Opacity: edgeOpacityIdle, Width: edgeWidth}
		from, to := st.Color(src.Category), st.Color(dst.Category)
		e.From = from.BlendLab(strokeDefault, 0.35).Clamped()
		e.To = e.From
		if f.Decorated {
			e.Gradient = true
			e.To = to.BlendLab(strokeDefault, 0.35).Clamped()
		}
		if s.Selected != "" {
			if l.Source == s.Selected || l.Target == s.Selected {
				e.Opacity = edgeOpacitySelected
				e.Width = edgeWidth * 1.5
			} else {
				e.Opacity = edgeOpacityDimmed
			}
		}
		f.Edges = append(f.Edges, e)
	}

	for _, n := range g.Nodes() {
		if !n.HasPosition() {
			continue
		}
		x, y := s.Transform.WorldToScreen(s.Size, n.X, n.Y)
		d := Disc{
			ID:          n.ID,
			X:           x,
			Y:           y,
			R:           st.Radius(n, k),
			Fill:        st.Color(n.Category),
			Stroke:      strokeDefault,
			StrokeWidth: strokeWidth,
		}
		switch n.ID {
		case s.Selected:
			d.Stroke, d.StrokeWidth = strokeActive, strokeWidthActive
		case s.Hovered:
			d.Stroke, d.StrokeWidth = strokeActive, strokeWidth*1.5
		}
		if f.Decorated {
			d.Glow = d.R * glowSpread
			if n.Variant == graph.VariantToday {
				phase := float64(s.Elapsed%pulsePeriod) / float64(pulsePeriod)
				d.Pulse = d.R + pulseSpread*phase
				d.PulseOpacity = 1 - phase
			}
			if t := truncate(n.Title, labelMaxRune); t != "" {
				f.Labels = append(f.Labels, Label{X: x + d.R + 4, Y: y + labelSize/3, Text: t, Size: labelSize})
			}
		}
		f.Nodes = append(f.Nodes, d)
	}
	return f
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

// Bounds reports whether any part of a disc is inside the frame.
func (f Frame) Bounds(d Disc) bool {
	r := math.Max(d.R, math.Max(d.Glow, d.Pulse))
	return d.X+r >= 0 && d.Y+r >= 0 && d.X-r <= f.Width && d.Y-r <= f.Height
}
