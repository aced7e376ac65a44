package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/paperatlas/internal/classify"
	"github.com/gyaneshwarpardhi/paperatlas/internal/engine"
	"github.com/gyaneshwarpardhi/paperatlas/internal/explorer"
	"github.com/gyaneshwarpardhi/paperatlas/internal/render"
	"github.com/gyaneshwarpardhi/paperatlas/internal/source"
	"github.com/gyaneshwarpardhi/paperatlas/internal/store"
)

// inlineExpander runs each expansion on the caller's goroutine so a headless
// session sees every result on its next step.
type inlineExpander struct {
	eng *engine.Engine
}

func (x inlineExpander) Submit(req engine.Request) (string, error) {
	start := time.Now()
	sg, err := x.eng.ExpandSync(context.Background(), req.NodeID)
	req.Deliver(&engine.Result{
		NodeID:   req.NodeID,
		Epoch:    req.Epoch,
		Subgraph: sg,
		Err:      err,
		Duration: time.Since(start),
	})
	return "", nil
}

type renderOpts struct {
	out     string
	format  string
	ticks   int
	width   float64
	height  float64
	expand  []string
	center  string
	selectN string
	remote  string
}

func renderCmd(g *globals) *cobra.Command {
	o := &renderOpts{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Lay out the daily graph headlessly and write one frame",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, g, o)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.out, "out", "o", "atlas.svg", "Output file; - writes to stdout")
	f.StringVar(&o.format, "format", "", "svg or png (default from the output extension)")
	f.IntVar(&o.ticks, "ticks", 300, "Animation frames to simulate before drawing")
	f.Float64Var(&o.width, "width", 0, "Canvas width (default from config)")
	f.Float64Var(&o.height, "height", 0, "Canvas height (default from config)")
	f.StringSliceVar(&o.expand, "expand", nil, "Paper id to expand before layout (repeatable)")
	f.StringVar(&o.center, "center", "", "Paper id to centre")
	f.StringVar(&o.selectN, "select", "", "Paper id to highlight")
	f.StringVar(&o.remote, "remote", "", "Graph service base URL instead of the local store")
	return cmd
}

func runRender(cmd *cobra.Command, g *globals, o *renderOpts) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := g.config()
	if err != nil {
		return err
	}
	format := o.format
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(o.out), ".")
	}
	var encode func(io.Writer, render.Frame) error
	switch format {
	case "svg", "":
		encode = render.EncodeSVG
	case "png":
		encode = render.EncodePNG
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	var src source.Source
	if o.remote != "" {
		src = source.NewClient(o.remote, time.Duration(cfg.Expansion.TimeoutMs)*time.Millisecond)
	} else {
		db, err := store.Open(g.storePath(cfg))
		if err != nil {
			return err
		}
		defer db.Close()
		c, err := classify.New(cfg.Classify)
		if err != nil {
			return err
		}
		src = source.NewLocal(db, c, cfg.Store.LatestN)
	}

	engCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	eng := engine.New(engCtx, src, cfg.Expansion)
	defer eng.Shutdown()

	now := time.Unix(0, 0)
	s := explorer.New("atlas", src, inlineExpander{eng: eng}, cfg, now)
	defer s.Close()
	if o.width > 0 && o.height > 0 {
		s.Viewport().Resize(o.width, o.height)
	}
	if err := s.Load(ctx); err != nil {
		return err
	}
	for _, id := range o.expand {
		if err := s.Expand(id); err != nil {
			return err
		}
		s.Step(now)
	}
	if o.center != "" {
		if err := s.Center(o.center); err != nil {
			return err
		}
	}
	if o.selectN != "" {
		if err := s.Select(o.selectN); err != nil {
			return err
		}
	}

	const frame = 16 * time.Millisecond
	for i := 0; i < o.ticks; i++ {
		now = now.Add(frame)
		s.Step(now)
	}
	s.Fit(40)
	s.Step(now.Add(frame))
	f, _ := s.Frame()

	w := cmd.OutOrStdout()
	if o.out != "-" {
		file, err := os.Create(o.out)
		if err != nil {
			return err
		}
		defer file.Close()
		w = file
	}
	if err := encode(w, f); err != nil {
		return err
	}
	if o.out != "-" {
		st := s.State()
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", good.Sprint("wrote"), o.out,
			subtle.Sprintf("(%d nodes, %d links, %d ticks, alpha %.3f)", st.Nodes, st.Links, s.Simulator().Ticks(), st.Alpha))
	}
	return nil
}
