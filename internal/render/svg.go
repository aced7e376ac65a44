package render

import (
	"fmt"
	"html"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"
)

// EncodeSVG writes f as a standalone SVG document.
func EncodeSVG(w io.Writer, f Frame) error {
	cw := &errWriter{w: w}
	canvas := svg.New(cw)
	canvas.Start(px(f.Width), px(f.Height))
	canvas.Rect(0, 0, px(f.Width), px(f.Height), "fill:"+f.Background.Hex())

	if f.Decorated {
		canvas.Def()
		for i, e := range f.Edges {
			if !e.Gradient {
				continue
			}
			// userSpaceOnUse keeps gradients on axis-aligned lines, whose
			// bounding box has zero height or width.
			fmt.Fprintf(canvas.Writer,
				`<linearGradient id="e%d" gradientUnits="userSpaceOnUse" x1="%d" y1="%d" x2="%d" y2="%d">`+
					`<stop offset="0" stop-color="%s"/><stop offset="1" stop-color="%s"/></linearGradient>`+"\n",
				i, px(e.X1), px(e.Y1), px(e.X2), px(e.Y2), e.From.Hex(), e.To.Hex())
		}
		canvas.DefEnd()
	}

	canvas.Gid("edges")
	for i, e := range f.Edges {
		stroke := e.From.Hex()
		if e.Gradient {
			stroke = fmt.Sprintf("url(#e%d)", i)
		}
		canvas.Line(px(e.X1), px(e.Y1), px(e.X2), px(e.Y2),
			fmt.Sprintf("stroke:%s;stroke-opacity:%.2f;stroke-width:%.1f", stroke, e.Opacity, e.Width))
	}
	canvas.Gend()

	canvas.Gid("nodes")
	for _, d := range f.Nodes {
		if !f.Bounds(d) {
			continue
		}
		if d.Glow > 0 {
			canvas.Circle(px(d.X), px(d.Y), px(d.Glow), fmt.Sprintf("fill:%s;fill-opacity:0.16", d.Fill.Hex()))
		}
		if d.Pulse > 0 {
			canvas.Circle(px(d.X), px(d.Y), px(d.Pulse),
				fmt.Sprintf("fill:none;stroke:%s;stroke-width:1.5;stroke-opacity:%.2f", d.Fill.Hex(), d.PulseOpacity))
		}
		canvas.Circle(px(d.X), px(d.Y), px(d.R),
			fmt.Sprintf(`data-id="%s"`, html.EscapeString(d.ID)),
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:%.1f", d.Fill.Hex(), d.Stroke.Hex(), d.StrokeWidth))
	}
	canvas.Gend()

	if len(f.Labels) > 0 {
		canvas.Gstyle("fill:#d8dee9;font-family:sans-serif")
		for _, l := range f.Labels {
			canvas.Text(px(l.X), px(l.Y), l.Text, fmt.Sprintf("font-size:%.0fpx", l.Size))
		}
		canvas.Gend()
	}
	canvas.End()
	return cw.err
}

func px(v float64) int { return int(math.Round(v)) }

// errWriter remembers the first write error; svgo discards them.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err == nil {
		_, e.err = e.w.Write(p)
	}
	return len(p), nil
}
