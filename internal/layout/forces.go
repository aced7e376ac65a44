package layout

import (
	"math"

	"github.com/gyaneshwarpardhi/paperatlas/internal/graph"
)

const distanceMin2 = 1.0

// applyLinks pulls linked nodes toward LinkDistance. The correction is split
// between endpoints in proportion to degree so hubs move less.
func (s *Simulator) applyLinks(alpha float64) {
	for _, l := range s.links {
		src, dst := s.index[l.Source], s.index[l.Target]
		if src == nil || dst == nil {
			continue
		}
		x := dst.X + dst.VX - src.X - src.VX
		y := dst.Y + dst.VY - src.Y - src.VY
		if x == 0 {
			x = s.jiggle()
		}
		if y == 0 {
			y = s.jiggle()
		}
		d := math.Sqrt(x*x + y*y)
		cs, ct := float64(s.degree[l.Source]), float64(s.degree[l.Target])
		strength := s.conf.LinkStrength
		if strength == 0 {
			strength = 1 / math.Min(cs, ct)
		}
		k := (d - s.conf.LinkDistance) / d * alpha * strength
		x *= k
		y *= k
		bias := cs / (cs + ct)
		dst.VX -= x * bias
		dst.VY -= y * bias
		src.VX += x * (1 - bias)
		src.VY += y * (1 - bias)
	}
}

// applyManyBody repels every node from every other using a Barnes–Hut
// approximation: a cell whose width is small relative to its distance is
// treated as a single body at its charge centre.
func (s *Simulator) applyManyBody(alpha float64) {
	tree := buildQuadtree(s.nodes, func(n *graph.Node) (float64, float64) { return n.X, n.Y })
	if tree == nil {
		return
	}
	charge := s.conf.Charge
	tree.accumulate(func(*graph.Node) float64 { return charge })
	theta2 := s.conf.Theta * s.conf.Theta
	distanceMax2 := s.conf.DistanceMax * s.conf.DistanceMax

	for _, n := range s.nodes {
		tree.visit(func(q *quad) bool {
			if q.charge == 0 {
				return true
			}
			x, y := q.cx-n.X, q.cy-n.Y
			w := q.x1 - q.x0
			l := x*x + y*y

			if w*w/theta2 < l {
				if l < distanceMax2 {
					if x == 0 {
						x = s.jiggle()
						l += x * x
					}
					if y == 0 {
						y = s.jiggle()
						l += y * y
					}
					if l < distanceMin2 {
						l = math.Sqrt(distanceMin2 * l)
					}
					n.VX += x * q.charge * alpha / l
					n.VY += y * q.charge * alpha / l
				}
				return true
			}
			if q.internal || l >= distanceMax2 {
				return false
			}

			for _, b := range q.bodies {
				if b.n == n {
					continue
				}
				bx, by := b.x-n.X, b.y-n.Y
				if bx == 0 {
					bx = s.jiggle()
				}
				if by == 0 {
					by = s.jiggle()
				}
				bl := bx*bx + by*by
				if bl < distanceMin2 {
					bl = math.Sqrt(distanceMin2 * bl)
				}
				n.VX += bx * charge * alpha / bl
				n.VY += by * charge * alpha / bl
			}
			return true
		})
	}
}

// applyCenter pulls every node weakly toward the origin.
func (s *Simulator) applyCenter(alpha float64) {
	k := s.conf.CenterStrength * alpha
	for _, n := range s.nodes {
		n.VX -= n.X * k
		n.VY -= n.Y * k
	}
}

// applyCollide pushes apart overlapping nodes. Each pass resolves only the
// overlaps visible from the positions at the start of the pass.
func (s *Simulator) applyCollide() {
	strength := s.conf.CollideStrength
	for it := 0; it < s.conf.CollideIterations; it++ {
		tree := buildQuadtree(s.nodes, func(n *graph.Node) (float64, float64) { return n.X + n.VX, n.Y + n.VY })
		if tree == nil {
			return
		}
		tree.prepareRadii(s.radius)

		for i, n := range s.nodes {
			ri := s.radius(n)
			ri2 := ri * ri
			xi, yi := n.X+n.VX, n.Y+n.VY
			tree.visit(func(q *quad) bool {
				r := ri + q.r
				if q.internal {
					return q.x0 > xi+r || q.x1 < xi-r || q.y0 > yi+r || q.y1 < yi-r
				}
				for _, b := range q.bodies {
					if b.idx <= i {
						continue
					}
					rj := s.radius(b.n)
					rr := ri + rj
					x := xi - b.n.X - b.n.VX
					y := yi - b.n.Y - b.n.VY
					l := x*x + y*y
					if l >= rr*rr {
						continue
					}
					if x == 0 {
						x = s.jiggle()
						l += x * x
					}
					if y == 0 {
						y = s.jiggle()
						l += y * y
					}
					d := math.Sqrt(l)
					k := (rr - d) / d * strength
					x *= k
					y *= k
					share := rj * rj / (ri2 + rj*rj)
					n.VX += x * share
					n.VY += y * share
					b.n.VX -= x * (1 - share)
					b.n.VY -= y * (1 - share)
				}
				return true
			})
		}
	}
}
