package config

import (
	"fmt"
	"strings"
)

// Default returns a complete configuration; ApplyDefaults fills the zero
// fields of a loaded file from it.
func Default() *Config {
	cfg := &Config{Version: "v1"}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields in place.
func ApplyDefaults(cfg *Config) {
	s := &cfg.Server
	if s.FrameRate == 0 {
		s.FrameRate = 60
	}
	if s.IdleTimeoutSec == 0 {
		s.IdleTimeoutSec = 900
	}
	if cfg.Store.Path == "" && cfg.Store.RemoteURL == "" {
		cfg.Store.Path = "paperatlas.db"
	}
	if cfg.Store.LatestN == 0 {
		cfg.Store.LatestN = 10
	}

	p := &cfg.Physics
	setF(&p.LinkDistance, 90)
	setF(&p.Charge, -260)
	setF(&p.Theta, 0.9)
	setF(&p.DistanceMax, 2000)
	setF(&p.CenterStrength, 0.04)
	setF(&p.CollideRadius, 24)
	setF(&p.CollideStrength, 0.7)
	if p.CollideIterations == 0 {
		p.CollideIterations = 2
	}
	setF(&p.AlphaMin, 0.001)
	setF(&p.AlphaDecay, 0.0228)
	setF(&p.VelocityDecay, 0.4)
	setF(&p.RestartAlpha, 0.3)
	setF(&p.UpdateAlpha, 0.8)
	setF(&p.CenterAlpha, 0.5)
	if p.CenterUnpinMs == 0 {
		p.CenterUnpinMs = 1500
	}

	v := &cfg.Viewport
	setF(&v.Width, 1280)
	setF(&v.Height, 800)
	setF(&v.MinScale, 0.1)
	setF(&v.MaxScale, 8)
	setF(&v.WheelSensitivity, 0.0015)
	setF(&v.PinchSensitivity, 0.01)
	if v.QuiescenceMs == 0 {
		v.QuiescenceMs = 150
	}

	r := &cfg.Render
	setF(&r.LabelMinScale, 0.6)
	setF(&r.HitTolerance, 4)
	setF(&r.RadiusScaleMin, 0.6)
	setF(&r.RadiusScaleMax, 2.2)
	if r.Background == "" {
		r.Background = "#0b0e14"
	}

	e := &cfg.Expansion
	if e.Workers == 0 {
		e.Workers = 4
	}
	if e.QueueDepth == 0 {
		e.QueueDepth = 256
	}
	if e.TimeoutMs == 0 {
		e.TimeoutMs = 8000
	}

	a := &cfg.Arxiv
	if a.BaseURL == "" {
		a.BaseURL = "https://export.arxiv.org/api/query"
	}
	if len(a.Categories) == 0 {
		a.Categories = []string{"cs.AI", "cs.CL", "cs.CV"}
	}
	if a.BatchSize == 0 {
		a.BatchSize = 20
	}
	if a.PauseMs == 0 {
		a.PauseMs = 3000
	}
	if a.TimeoutMs == 0 {
		a.TimeoutMs = 30000
	}

	if cfg.Classify.Default == "" {
		cfg.Classify.Default = "AI/ML"
	}
	if len(cfg.Classify.Domains) == 0 {
		cfg.Classify.Domains = defaultDomains()
	}
}

func setF(f *float64, v float64) {
	if *f == 0 {
		*f = v
	}
}

// defaultDomains mirrors the keyword table the paper service has always used.
func defaultDomains() []DomainRule {
	table := []struct {
		name     string
		keywords []string
	}{
		{"Computer Vision", []string{"vision", "image", "visual", "cnn", "convolution", "detection", "segmentation", "object"}},
		{"Natural Language Processing", []string{"language", "nlp", "text", "transformer", "attention", "bert", "gpt", "linguistic"}},
		{"Machine Learning", []string{"learning", "neural", "network", "deep", "training", "optimization", "model"}},
		{"Reinforcement Learning", []string{"reinforcement", "rl", "agent", "policy", "reward", "environment", "action"}},
		{"Robotics", []string{"robot", "robotics", "manipulation", "control", "autonomous", "motion"}},
		{"Speech & Audio", []string{"speech", "audio", "acoustic", "voice", "recognition", "sound"}},
		{"Graph Neural Networks", []string{"graph", "node", "edge", "network", "topology", "gnn"}},
		{"Generative AI", []string{"generative", "generation", "diffusion", "gan", "vae", "autoencoder", "generate"}},
		{"Multimodal", []string{"multimodal", "multi-modal", "vision-language", "cross-modal"}},
	}
	rules := make([]DomainRule, 0, len(table))
	for _, d := range table {
		terms := make([]string, len(d.keywords))
		for i, k := range d.keywords {
			op := "contains"
			if len(k) <= 4 {
				// Short keywords such as "rl" or "gan" only count as whole words.
				op = "mentions"
			}
			terms[i] = fmt.Sprintf("text %s %q", op, k)
		}
		rules = append(rules, DomainRule{Name: d.name, Expression: strings.Join(terms, " OR ")})
	}
	return rules
}
