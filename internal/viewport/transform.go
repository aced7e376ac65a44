// Package viewport maps world coordinates to the screen and turns pointer,
// wheel and touch input into pan and zoom.
package viewport

import "math"

// Size is the canvas size in screen pixels.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Center returns the canvas midpoint.
func (s Size) Center() (float64, float64) { return s.W / 2, s.H / 2 }

// Transform is the world→screen mapping:
//
//	screen = center + (TX, TY) + world·K
type Transform struct {
	K  float64 `json:"k"`
	TX float64 `json:"tx"`
	TY float64 `json:"ty"`
}

// Identity is the unit transform.
func Identity() Transform { return Transform{K: 1} }

// WorldToScreen projects a world point.
func (t Transform) WorldToScreen(size Size, x, y float64) (float64, float64) {
	cx, cy := size.Center()
	return cx + t.TX + x*t.K, cy + t.TY + y*t.K
}

// ScreenToWorld inverts WorldToScreen.
func (t Transform) ScreenToWorld(size Size, sx, sy float64) (float64, float64) {
	cx, cy := size.Center()
	return (sx - cx - t.TX) / t.K, (sy - cy - t.TY) / t.K
}

// Pan shifts the translation by a screen delta.
func (t Transform) Pan(dx, dy float64) Transform {
	t.TX += dx
	t.TY += dy
	return t
}

// ZoomAt scales by factor around the screen point (px, py), clamping K to
// [min, max]. The world point under (px, py) stays under it.
func (t Transform) ZoomAt(size Size, px, py, factor, min, max float64) Transform {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return t
	}
	k := clamp(t.K*factor, min, max)
	if k == t.K {
		return t
	}
	cx, cy := size.Center()
	ox, oy := px-cx-t.TX, py-cy-t.TY
	ratio := 1 - k/t.K
	return Transform{K: k, TX: t.TX + ox*ratio, TY: t.TY + oy*ratio}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
