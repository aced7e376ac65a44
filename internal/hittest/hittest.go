// Package hittest resolves pointer positions to nodes and tracks hover pins.
package hittest

import (
	"math"

	"github.com/gyaneshwarpardhi/paperatlas/internal/graph"
	"github.com/gyaneshwarpardhi/paperatlas/internal/viewport"
)

// RadiusFunc returns the on-screen radius of a node at scale k.
type RadiusFunc func(n *graph.Node, k float64) float64

// Tester finds the node under a screen point.
type Tester struct {
	Radius    RadiusFunc
	Tolerance float64
}

// Hit returns the first node, in insertion order, whose screen distance from
// (px, py) is less than its radius plus the tolerance. Nodes without a
// usable position are skipped.
func (t Tester) Hit(nodes []*graph.Node, tr viewport.Transform, size viewport.Size, px, py float64) *graph.Node {
	if tr.K <= 0 {
		return nil
	}
	wx, wy := tr.ScreenToWorld(size, px, py)
	for _, n := range nodes {
		if !n.HasPosition() {
			continue
		}
		// Compare in world space: screen distance is world distance times k.
		d := math.Hypot(n.X-wx, n.Y-wy) * tr.K
		if d < t.Radius(n, tr.K)+t.Tolerance {
			return n
		}
	}
	return nil
}

// Hover tracks the hovered node and keeps it pinned where the pointer found it.
// It only releases a pin it placed itself: a node that is already pinned
// (for example while being centered) keeps its pin through hover and leave.
type Hover struct {
	current *graph.Node
	owned   bool
	px, py  float64
}

// Current returns the hovered node, or nil.
func (h *Hover) Current() *graph.Node { return h.current }

// Set moves hover to n (nil clears it) and reports whether it changed.
func (h *Hover) Set(n *graph.Node) bool {
	if n == h.current {
		return false
	}
	h.release()
	h.current = n
	if n == nil {
		return true
	}
	if _, _, pinned := n.Pinned(); !pinned {
		h.px, h.py, h.owned = n.X, n.Y, true
		n.Pin(h.px, h.py)
	}
	return true
}

func (h *Hover) release() {
	if h.current == nil || !h.owned {
		h.owned = false
		return
	}
	h.owned = false
	if fx, fy, ok := h.current.Pinned(); ok && fx == h.px && fy == h.py {
		h.current.Unpin()
	}
}
