package render

import (
	"hash/fnv"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/gyaneshwarpardhi/paperatlas/internal/config"
	"github.com/gyaneshwarpardhi/paperatlas/internal/graph"
)

// Base radii in world units, before the author bonus and zoom scaling.
const (
	radiusCenter  = 14.0
	radiusToday   = 11.0
	radiusDefault = 8.0

	authorBonus = 0.5
	authorCap   = 8
)

// Style resolves geometry and colour for nodes. It is derived from
// configuration and holds no per-frame state.
type Style struct {
	conf       config.RenderConf
	background colorful.Color
	palette    map[string]colorful.Color
}

// NewStyle parses the configured colours. Invalid entries fall back to the
// generated palette; config validation rejects them before they get here.
func NewStyle(conf config.RenderConf) *Style {
	s := &Style{conf: conf, palette: make(map[string]colorful.Color, len(conf.Palette))}
	bg, err := colorful.Hex(conf.Background)
	if err != nil {
		bg = colorful.Color{R: 0.04, G: 0.05, B: 0.08}
	}
	s.background = bg
	for cat, hex := range conf.Palette {
		if c, err := colorful.Hex(hex); err == nil {
			s.palette[cat] = c
		}
	}
	return s
}

// Conf returns the render settings the style was built from.
func (s *Style) Conf() config.RenderConf { return s.conf }

// BaseRadius is the world radius of n: the variant base plus a bonus for
// each author up to a cap.
func BaseRadius(n *graph.Node) float64 {
	r := radiusDefault
	switch n.Variant {
	case graph.VariantCenter:
		r = radiusCenter
	case graph.VariantToday:
		r = radiusToday
	}
	return r + float64(min(max(n.AuthorCount, 0), authorCap))*authorBonus
}

// ZoomScale is the sub-linear radius multiplier at scale k.
func (s *Style) ZoomScale(k float64) float64 {
	return math.Min(math.Max(math.Sqrt(k), s.conf.RadiusScaleMin), s.conf.RadiusScaleMax)
}

// Radius is the on-screen radius of n at scale k.
func (s *Style) Radius(n *graph.Node, k float64) float64 {
	return BaseRadius(n) * s.ZoomScale(k)
}

// Decorated reports whether decorations are drawn for this frame.
func (s *Style) Decorated(k float64, interacting bool) bool {
	return !interacting && k >= s.conf.LabelMinScale
}

// Color returns the fill colour for a category. Unconfigured categories get
// a stable hue derived from the name.
func (s *Style) Color(category string) colorful.Color {
	if c, ok := s.palette[category]; ok {
		return c
	}
	h := fnv.New32a()
	h.Write([]byte(category))
	hue := float64(h.Sum32()%360)
	return colorful.Hcl(hue, 0.55, 0.68).Clamped()
}

// Background returns the canvas colour.
func (s *Style) Background() colorful.Color { return s.background }
