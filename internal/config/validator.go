package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/gyaneshwarpardhi/paperatlas/internal/condition"
)

// Validate checks a defaulted config for:
//   - required fields and numeric ranges
//   - scale bounds that leave room to zoom
//   - domain rules with unique names and parseable expressions
//   - palette entries that are valid hex colours
//   - an absolute arXiv endpoint and sane batch sizes
func Validate(cfg *Config) error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if cfg.Version == "" {
		add("version is required")
	}
	if cfg.Server.FrameRate < 1 || cfg.Server.FrameRate > 240 {
		add("server.frame_rate must be in [1, 240], got %d", cfg.Server.FrameRate)
	}

	p := cfg.Physics
	if p.LinkDistance <= 0 {
		add("physics.link_distance must be positive")
	}
	if p.LinkStrength < 0 {
		add("physics.link_strength must not be negative")
	}
	if p.Theta <= 0 || p.Theta > 2 {
		add("physics.theta must be in (0, 2], got %g", p.Theta)
	}
	if p.CollideIterations < 1 {
		add("physics.collide_iterations must be at least 1")
	}
	if p.AlphaMin <= 0 || p.AlphaMin >= 1 {
		add("physics.alpha_min must be in (0, 1)")
	}
	if p.AlphaDecay <= 0 || p.AlphaDecay >= 1 {
		add("physics.alpha_decay must be in (0, 1)")
	}
	if p.VelocityDecay < 0 || p.VelocityDecay >= 1 {
		add("physics.velocity_decay must be in [0, 1)")
	}
	for name, a := range map[string]float64{"restart_alpha": p.RestartAlpha, "update_alpha": p.UpdateAlpha, "center_alpha": p.CenterAlpha} {
		if a <= p.AlphaMin || a > 1 {
			add("physics.%s must be in (alpha_min, 1], got %g", name, a)
		}
	}

	v := cfg.Viewport
	if v.MinScale <= 0 {
		add("viewport.min_scale must be positive")
	}
	if v.MaxScale <= v.MinScale {
		add("viewport.max_scale (%g) must exceed min_scale (%g)", v.MaxScale, v.MinScale)
	}
	if v.Width <= 0 || v.Height <= 0 {
		add("viewport.width and viewport.height must be positive")
	}
	if v.QuiescenceMs < 1 {
		add("viewport.quiescence_ms must be positive")
	}

	r := cfg.Render
	if r.RadiusScaleMin <= 0 || r.RadiusScaleMax < r.RadiusScaleMin {
		add("render.radius_scale_min/max must satisfy 0 < min <= max")
	}
	if _, err := colorful.Hex(r.Background); err != nil {
		add("render.background %q: %s", r.Background, err)
	}
	for cat, hex := range r.Palette {
		if _, err := colorful.Hex(hex); err != nil {
			add("render.palette[%s] %q: %s", cat, hex, err)
		}
	}

	if cfg.Expansion.Workers < 1 || cfg.Expansion.QueueDepth < 1 {
		add("expansion.workers and expansion.queue_depth must be positive")
	}

	a := cfg.Arxiv
	if u, err := url.Parse(a.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		add("arxiv.base_url %q must be an absolute URL", a.BaseURL)
	}
	if a.BatchSize < 1 || a.BatchSize > 2000 {
		add("arxiv.batch_size must be in [1, 2000], got %d", a.BatchSize)
	}
	if a.PauseMs < 0 || a.TimeoutMs < 1 {
		add("arxiv.pause_ms must not be negative and arxiv.timeout_ms must be positive")
	}

	names := make(map[string]int)
	for i, d := range cfg.Classify.Domains {
		if d.Name == "" {
			add("classify.domains[%d]: name is required", i)
			continue
		}
		if prev, ok := names[d.Name]; ok {
			add("duplicate domain %q (first seen at index %d, again at %d)", d.Name, prev, i)
		} else {
			names[d.Name] = i
		}
		if _, err := condition.Parse(d.Expression); err != nil {
			add("domain %s: %s", d.Name, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
