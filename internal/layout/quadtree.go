package layout

import (
	"math"

	"github.com/gyaneshwarpardhi/paperatlas/internal/graph"
)

// maxDepth bounds subdivision; points that still share a cell at this depth
// are kept together in one leaf.
const maxDepth = 24

type body struct {
	n    *graph.Node
	idx  int
	x, y float64
}

// quad is a cell of a region quadtree over node positions. A cell is either a
// leaf holding bodies or an internal cell with up to four children.
type quad struct {
	x0, y0, x1, y1 float64
	children       [4]*quad
	internal       bool
	bodies         []body

	// many-body aggregates
	charge float64
	cx, cy float64

	// largest collision radius in the cell
	r float64
}

// buildQuadtree indexes nodes at the positions returned by pos.
func buildQuadtree(nodes []*graph.Node, pos func(*graph.Node) (float64, float64)) *quad {
	if len(nodes) == 0 {
		return nil
	}
	x0, y0 := math.Inf(1), math.Inf(1)
	x1, y1 := math.Inf(-1), math.Inf(-1)
	bodies := make([]body, 0, len(nodes))
	for i, n := range nodes {
		x, y := pos(n)
		if math.IsNaN(x) || math.IsNaN(y) {
			continue
		}
		bodies = append(bodies, body{n: n, idx: i, x: x, y: y})
		x0, y0 = math.Min(x0, x), math.Min(y0, y)
		x1, y1 = math.Max(x1, x), math.Max(y1, y)
	}
	if len(bodies) == 0 {
		return nil
	}
	// square cells keep the Barnes–Hut width test meaningful
	side := math.Max(x1-x0, y1-y0)
	if side <= 0 {
		side = 1
	}
	root := &quad{x0: x0, y0: y0, x1: x0 + side, y1: y0 + side}
	for _, b := range bodies {
		root.insert(b, 0)
	}
	return root
}

func (q *quad) insert(b body, depth int) {
	if !q.internal {
		if len(q.bodies) == 0 || depth >= maxDepth || (q.bodies[0].x == b.x && q.bodies[0].y == b.y) {
			q.bodies = append(q.bodies, b)
			return
		}
		existing := q.bodies
		q.bodies = nil
		q.internal = true
		for _, e := range existing {
			q.child(e.x, e.y).insert(e, depth+1)
		}
	}
	q.child(b.x, b.y).insert(b, depth+1)
}

func (q *quad) child(x, y float64) *quad {
	mx, my := (q.x0+q.x1)/2, (q.y0+q.y1)/2
	i := 0
	if x >= mx {
		i |= 1
	}
	if y >= my {
		i |= 2
	}
	if q.children[i] == nil {
		c := &quad{x0: q.x0, y0: q.y0, x1: mx, y1: my}
		if i&1 != 0 {
			c.x0, c.x1 = mx, q.x1
		}
		if i&2 != 0 {
			c.y0, c.y1 = my, q.y1
		}
		q.children[i] = c
	}
	return q.children[i]
}

// visit walks the tree depth first; returning true from fn skips the cell's children.
func (q *quad) visit(fn func(*quad) bool) {
	if q == nil || fn(q) || !q.internal {
		return
	}
	for _, c := range q.children {
		c.visit(fn)
	}
}

// visitAfter walks the tree post order.
func (q *quad) visitAfter(fn func(*quad)) {
	if q == nil {
		return
	}
	for _, c := range q.children {
		c.visitAfter(fn)
	}
	fn(q)
}

// accumulate fills charge and its centre for every cell.
func (q *quad) accumulate(strength func(*graph.Node) float64) {
	q.visitAfter(func(c *quad) {
		var sum, weight, x, y float64
		if c.internal {
			for _, ch := range c.children {
				if ch == nil || ch.charge == 0 {
					continue
				}
				w := math.Abs(ch.charge)
				sum += ch.charge
				weight += w
				x += w * ch.cx
				y += w * ch.cy
			}
		} else {
			for _, b := range c.bodies {
				s := strength(b.n)
				w := math.Abs(s)
				sum += s
				weight += w
				x += w * b.x
				y += w * b.y
			}
		}
		c.charge = sum
		if weight > 0 {
			c.cx, c.cy = x/weight, y/weight
		}
	})
}

// prepareRadii fills r with the largest radius in every cell.
func (q *quad) prepareRadii(radius func(*graph.Node) float64) {
	q.visitAfter(func(c *quad) {
		c.r = 0
		if c.internal {
			for _, ch := range c.children {
				if ch != nil && ch.r > c.r {
					c.r = ch.r
				}
			}
			return
		}
		for _, b := range c.bodies {
			if r := radius(b.n); r > c.r {
				c.r = r
			}
		}
	})
}
