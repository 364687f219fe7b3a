// Package config handles YAML configuration loading, environment variable
// expansion, defaulting, and structural validation for the memory engine.
//
// Every numeric threshold the engine applies is configuration: the stock
// values are carried policy constants, not derived from any optimization.
package config

// Config is the top-level configuration structure.
type Config struct {
	// DataPath is the SQLite database file backing the document store.
	// Empty means in-memory only (nothing survives Close).
	DataPath string `yaml:"data_path,omitempty"`

	Limits    Limits    `yaml:"limits"`
	Search    Search    `yaml:"search"`
	Patterns  Patterns  `yaml:"patterns"`
	Organize  Organize  `yaml:"organize"`
	Retention Retention `yaml:"retention"`
	Jobs      Jobs      `yaml:"jobs"`
}

// Limits bounds the durable collections.
type Limits struct {
	// MaxMemoryEntries caps the memory collection; the lowest-ranked
	// records are evicted past it. Defaults to 1000.
	MaxMemoryEntries int `yaml:"max_memory_entries"`

	// MaxHistoryEntries caps the action log (FIFO drop). Defaults to 1000.
	MaxHistoryEntries int `yaml:"max_history_entries"`
}

// Search configures the query path.
type Search struct {
	// CacheTTLSeconds is the result-cache entry lifetime. Defaults to 300.
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`

	// DefaultLimit is the page size used when a query passes none.
	// Defaults to 20.
	DefaultLimit int `yaml:"default_limit"`
}

// Patterns configures the behavior-pattern detector.
type Patterns struct {
	// Window is how many recent actions each detector run examines.
	// Defaults to 100.
	Window int `yaml:"window"`

	// RetentionDays prunes patterns not observed for this long.
	// Defaults to 365.
	RetentionDays int `yaml:"retention_days"`
}

// Organize carries the organization-engine thresholds.
type Organize struct {
	DuplicateThreshold   float64 `yaml:"duplicate_threshold"`    // default 0.75
	KeepBothThreshold    float64 `yaml:"keep_both_threshold"`    // default 0.8
	MergeThreshold       float64 `yaml:"merge_threshold"`        // default 0.9
	NearIdentical        float64 `yaml:"near_identical"`         // default 0.95
	RelatednessThreshold float64 `yaml:"relatedness_threshold"`  // default 0.6
	ClusterConfidence    float64 `yaml:"cluster_confidence"`     // default 0.8
	ArchiveAfterDays     int     `yaml:"archive_after_days"`     // default 90
	MaxArchivesPerRun    int     `yaml:"max_archives_per_run"`   // default 10
	MaxClusterMembers    int     `yaml:"max_cluster_members"`    // default 8
}

// Retention bounds the action log by age.
type Retention struct {
	// ActionDays purges history entries older than this during periodic
	// cleanup. Defaults to 30.
	ActionDays int `yaml:"action_days"`
}

// Jobs holds the cron expressions for the background passes.
type Jobs struct {
	// Cleanup is the daily history/pattern cleanup. Defaults to "0 3 * * *".
	Cleanup string `yaml:"cleanup"`

	// Organize checks hourly whether a full auto-organization run is due
	// (at most one per 24 h). Defaults to "0 * * * *".
	Organize string `yaml:"organize"`

	// Suggestions refreshes the suggestion set. Defaults to "*/15 * * * *".
	Suggestions string `yaml:"suggestions"`
}

// Default returns a Config with every field at its stock value.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued fields with their stock values.
func (c *Config) ApplyDefaults() {
	if c.Limits.MaxMemoryEntries == 0 {
		c.Limits.MaxMemoryEntries = 1000
	}
	if c.Limits.MaxHistoryEntries == 0 {
		c.Limits.MaxHistoryEntries = 1000
	}
	if c.Search.CacheTTLSeconds == 0 {
		c.Search.CacheTTLSeconds = 300
	}
	if c.Search.DefaultLimit == 0 {
		c.Search.DefaultLimit = 20
	}
	if c.Patterns.Window == 0 {
		c.Patterns.Window = 100
	}
	if c.Patterns.RetentionDays == 0 {
		c.Patterns.RetentionDays = 365
	}
	if c.Organize.DuplicateThreshold == 0 {
		c.Organize.DuplicateThreshold = 0.75
	}
	if c.Organize.KeepBothThreshold == 0 {
		c.Organize.KeepBothThreshold = 0.8
	}
	if c.Organize.MergeThreshold == 0 {
		c.Organize.MergeThreshold = 0.9
	}
	if c.Organize.NearIdentical == 0 {
		c.Organize.NearIdentical = 0.95
	}
	if c.Organize.RelatednessThreshold == 0 {
		c.Organize.RelatednessThreshold = 0.6
	}
	if c.Organize.ClusterConfidence == 0 {
		c.Organize.ClusterConfidence = 0.8
	}
	if c.Organize.ArchiveAfterDays == 0 {
		c.Organize.ArchiveAfterDays = 90
	}
	if c.Organize.MaxArchivesPerRun == 0 {
		c.Organize.MaxArchivesPerRun = 10
	}
	if c.Organize.MaxClusterMembers == 0 {
		c.Organize.MaxClusterMembers = 8
	}
	if c.Retention.ActionDays == 0 {
		c.Retention.ActionDays = 30
	}
	if c.Jobs.Cleanup == "" {
		c.Jobs.Cleanup = "0 3 * * *"
	}
	if c.Jobs.Organize == "" {
		c.Jobs.Organize = "0 * * * *"
	}
	if c.Jobs.Suggestions == "" {
		c.Jobs.Suggestions = "*/15 * * * *"
	}
}
