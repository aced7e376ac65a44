package config

// Config is the top-level YAML structure.
type Config struct {
	Version   string        `yaml:"version"`
	Server    ServerConf    `yaml:"server"`
	Store     StoreConf     `yaml:"store"`
	Physics   PhysicsConf   `yaml:"physics"`
	Viewport  ViewportConf  `yaml:"viewport"`
	Render    RenderConf    `yaml:"render"`
	Expansion ExpansionConf `yaml:"expansion"`
	Classify  ClassifyConf  `yaml:"classify"`
	Arxiv     ArxivConf     `yaml:"arxiv"`
}

// ServerConf holds session loop settings.
type ServerConf struct {
	FrameRate      int `yaml:"frame_rate"`       // session loop frames per second
	MaxSessions    int `yaml:"max_sessions"`     // 0 = unlimited
	IdleTimeoutSec int `yaml:"idle_timeout_sec"` // sessions without input are closed
}

// StoreConf selects the Graph Data Service backing the sessions.
type StoreConf struct {
	Path      string `yaml:"path"`       // SQLite database file
	RemoteURL string `yaml:"remote_url"` // when set, sessions fetch over HTTP instead
	LatestN   int    `yaml:"latest_n"`   // fallback size when no paper is dated today
}

// PhysicsConf tunes the force simulation.
type PhysicsConf struct {
	LinkDistance      float64 `yaml:"link_distance"`
	LinkStrength      float64 `yaml:"link_strength"` // 0 = degree based
	Charge            float64 `yaml:"charge"`        // negative repels
	Theta             float64 `yaml:"theta"`         // Barnes–Hut accuracy threshold
	DistanceMax       float64 `yaml:"distance_max"`
	CenterStrength    float64 `yaml:"center_strength"`
	CollideRadius     float64 `yaml:"collide_radius"`
	CollideStrength   float64 `yaml:"collide_strength"`
	CollideIterations int     `yaml:"collide_iterations"`
	AlphaMin          float64 `yaml:"alpha_min"`
	AlphaDecay        float64 `yaml:"alpha_decay"`
	VelocityDecay     float64 `yaml:"velocity_decay"`
	RestartAlpha      float64 `yaml:"restart_alpha"`
	UpdateAlpha       float64 `yaml:"update_alpha"`
	CenterAlpha       float64 `yaml:"center_alpha"`
	CenterUnpinMs     int     `yaml:"center_unpin_ms"`
}

// ViewportConf bounds the transform and tunes gestures.
type ViewportConf struct {
	Width            float64 `yaml:"width"`
	Height           float64 `yaml:"height"`
	MinScale         float64 `yaml:"min_scale"`
	MaxScale         float64 `yaml:"max_scale"`
	WheelSensitivity float64 `yaml:"wheel_sensitivity"`
	PinchSensitivity float64 `yaml:"pinch_sensitivity"`
	QuiescenceMs     int     `yaml:"quiescence_ms"`
}

// RenderConf tunes the adaptive renderer and hit testing.
type RenderConf struct {
	LabelMinScale  float64           `yaml:"label_min_scale"`
	HitTolerance   float64           `yaml:"hit_tolerance"`
	RadiusScaleMin float64           `yaml:"radius_scale_min"`
	RadiusScaleMax float64           `yaml:"radius_scale_max"`
	Background     string            `yaml:"background"`
	Palette        map[string]string `yaml:"palette"` // category → hex colour
}

// ExpansionConf sizes the expansion worker pool.
type ExpansionConf struct {
	Workers    int `yaml:"workers"`
	QueueDepth int `yaml:"queue_depth"`
	TimeoutMs  int `yaml:"timeout_ms"`
}

// ArxivConf points ingestion and backfill at the arXiv export API.
type ArxivConf struct {
	BaseURL    string   `yaml:"base_url"`
	Categories []string `yaml:"categories"`  // used by latest-paper ingestion
	BatchSize  int      `yaml:"batch_size"`  // ids per id_list query
	PauseMs    int      `yaml:"pause_ms"`    // wait between consecutive queries
	TimeoutMs  int      `yaml:"timeout_ms"`
}

// ClassifyConf holds ordered domain rules; the first match wins.
type ClassifyConf struct {
	Default string       `yaml:"default"`
	Domains []DomainRule `yaml:"domains"`
}

// DomainRule labels a paper when Expression holds.
type DomainRule struct {
	Name       string `yaml:"name"`
	Expression string `yaml:"expression"`
}
