package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// kappa places cubic control points for a quarter circle.
const kappa = 0.5522847498

var goRegular = sync.OnceValues(func() (*opentype.Font, error) {
	return opentype.Parse(goregular.TTF)
})

// raster draws display-list primitives onto an RGBA image with
// anti-aliasing from the vector rasterizer.
type raster struct {
	img  *image.RGBA
	z    *vector.Rasterizer
	face font.Face
}

// Rasterize draws f into a new RGBA image.
func Rasterize(f Frame) (*image.RGBA, error) {
	w, h := px(f.Width), px(f.Height)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("render: empty frame %dx%d", w, h)
	}
	r := &raster{
		img: image.NewRGBA(image.Rect(0, 0, w, h)),
		z:   vector.NewRasterizer(w, h),
	}
	draw.Draw(r.img, r.img.Bounds(), image.NewUniform(f.Background), image.Point{}, draw.Src)

	for _, e := range f.Edges {
		c := e.From
		if e.Gradient {
			// Raster output approximates the gradient with its midpoint.
			c = e.From.BlendLab(e.To, 0.5).Clamped()
		}
		r.line(e.X1, e.Y1, e.X2, e.Y2, e.Width, c, e.Opacity)
	}
	for _, d := range f.Nodes {
		if !f.Bounds(d) {
			continue
		}
		if d.Glow > 0 {
			r.disc(d.X, d.Y, d.Glow, d.Fill, 0.16)
		}
		if d.Pulse > 0 {
			r.ring(d.X, d.Y, d.Pulse, 1.5, d.Fill, d.PulseOpacity)
		}
		r.disc(d.X, d.Y, d.R, d.Fill, 1)
		r.ring(d.X, d.Y, d.R, d.StrokeWidth, d.Stroke, 1)
	}
	if len(f.Labels) > 0 {
		if err := r.labels(f.Labels); err != nil {
			return nil, err
		}
	}
	return r.img, nil
}

// EncodePNG writes f as a PNG image.
func EncodePNG(w io.Writer, f Frame) error {
	img, err := Rasterize(f)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

func (r *raster) fill(c colorful.Color, opacity float64) {
	cr, cg, cb := c.RGB255()
	src := image.NewUniform(color.NRGBA{R: cr, G: cg, B: cb, A: uint8(math.Round(255 * clamp01(opacity)))})
	r.z.DrawOp = draw.Over
	r.z.Draw(r.img, r.img.Bounds(), src, image.Point{})
	b := r.img.Bounds()
	r.z.Reset(b.Dx(), b.Dy())
}

func (r *raster) circle(cx, cy, rad float64, reverse bool) {
	k := rad * kappa
	x, y, R, K := float32(cx), float32(cy), float32(rad), float32(k)
	if !reverse {
		r.z.MoveTo(x+R, y)
		r.z.CubeTo(x+R, y+K, x+K, y+R, x, y+R)
		r.z.CubeTo(x-K, y+R, x-R, y+K, x-R, y)
		r.z.CubeTo(x-R, y-K, x-K, y-R, x, y-R)
		r.z.CubeTo(x+K, y-R, x+R, y-K, x+R, y)
	} else {
		r.z.MoveTo(x+R, y)
		r.z.CubeTo(x+R, y-K, x+K, y-R, x, y-R)
		r.z.CubeTo(x-K, y-R, x-R, y-K, x-R, y)
		r.z.CubeTo(x-R, y+K, x-K, y+R, x, y+R)
		r.z.CubeTo(x+K, y+R, x+R, y+K, x+R, y)
	}
	r.z.ClosePath()
}

func (r *raster) disc(cx, cy, rad float64, c colorful.Color, opacity float64) {
	if rad <= 0 {
		return
	}
	r.circle(cx, cy, rad, false)
	r.fill(c, opacity)
}

// ring strokes a circle outline centred on rad. The inner contour winds the
// other way so it cancels the outer one.
func (r *raster) ring(cx, cy, rad, width float64, c colorful.Color, opacity float64) {
	if width <= 0 || rad <= 0 {
		return
	}
	r.circle(cx, cy, rad+width/2, false)
	if inner := rad - width/2; inner > 0 {
		r.circle(cx, cy, inner, true)
	}
	r.fill(c, opacity)
}

func (r *raster) line(x1, y1, x2, y2, width float64, c colorful.Color, opacity float64) {
	dx, dy := x2-x1, y2-y1
	l := math.Hypot(dx, dy)
	if l < 1e-9 || width <= 0 {
		return
	}
	nx, ny := -dy/l*width/2, dx/l*width/2
	r.z.MoveTo(float32(x1+nx), float32(y1+ny))
	r.z.LineTo(float32(x2+nx), float32(y2+ny))
	r.z.LineTo(float32(x2-nx), float32(y2-ny))
	r.z.LineTo(float32(x1-nx), float32(y1-ny))
	r.z.ClosePath()
	r.fill(c, opacity)
}

func (r *raster) labels(labels []Label) error {
	fnt, err := goRegular()
	if err != nil {
		return fmt.Errorf("render: parse font: %w", err)
	}
	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    labels[0].Size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return fmt.Errorf("render: font face: %w", err)
	}
	defer face.Close()

	d := &font.Drawer{
		Dst:  r.img,
		Src:  image.NewUniform(color.RGBA{R: 0xd8, G: 0xde, B: 0xe9, A: 0xff}),
		Face: face,
	}
	for _, l := range labels {
		d.Dot = fixed.Point26_6{X: fixed.I(px(l.X)), Y: fixed.I(px(l.Y))}
		d.DrawString(l.Text)
	}
	return nil
}

func clamp01(v float64) float64 { return math.Min(math.Max(v, 0), 1) }
