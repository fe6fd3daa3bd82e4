// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level pipeline configuration loaded from YAML. Invalid
// configuration is a fatal error surfaced before any fetch starts.
type Config struct {
	Name      string          `yaml:"name" json:"name"`
	Catalogs  []CatalogConfig `yaml:"catalogs" json:"catalogs"`
	Fetch     FetchConfig     `yaml:"fetch" json:"fetch"`
	Browser   BrowserConfig   `yaml:"browser" json:"browser"`
	Cleaning  CleaningConfig  `yaml:"cleaning" json:"cleaning"`
	Anomaly   AnomalyConfig   `yaml:"anomaly" json:"anomaly"`
	Output    OutputConfig    `yaml:"output" json:"output"`
	Metrics   MetricsConfig   `yaml:"metrics" json:"metrics"`
	LogLevel  string          `yaml:"log_level,omitempty" json:"log_level,omitempty"`
}

// CatalogConfig names one chart page to collect, and the category label
// applied to every record discovered through it.
type CatalogConfig struct {
	URL      string `yaml:"url" json:"url"`
	Category string `yaml:"category" json:"category"` // "movie" or "tv"
}

// FetchConfig controls the orchestrator and the detail fetcher.
type FetchConfig struct {
	Limit          int           `yaml:"limit" json:"limit"`                       // items per catalog
	Workers        int           `yaml:"workers" json:"workers"`                   // concurrent fetches
	AutosaveEvery  int           `yaml:"autosave_every" json:"autosave_every"`     // successes between checkpoints
	MaxRetries     int           `yaml:"max_retries" json:"max_retries"`           // transient failures per URL
	RetryBaseDelay time.Duration `yaml:"retry_base_delay" json:"retry_base_delay"` // doubles per attempt
	RetryMaxDelay  time.Duration `yaml:"retry_max_delay" json:"retry_max_delay"`   // backoff cap
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
	RateLimit      float64       `yaml:"rate_limit" json:"rate_limit"` // requests per second
	RateBurst      int           `yaml:"rate_burst" json:"rate_burst"`
	FastMode       bool          `yaml:"fast_mode" json:"fast_mode"` // skip the render tier entirely
	UserAgents     []string      `yaml:"user_agents,omitempty" json:"user_agents,omitempty"`
}

// BrowserConfig controls the chromedp render tier. Each worker owns its own
// session; sessions are never shared.
type BrowserConfig struct {
	Headless       bool          `yaml:"headless" json:"headless"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`
	WaitSelector   string        `yaml:"wait_selector,omitempty" json:"wait_selector,omitempty"`
	ViewportWidth  int           `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight int           `yaml:"viewport_height" json:"viewport_height"`
	DisableImages  bool          `yaml:"disable_images" json:"disable_images"`
	UserAgent      string        `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
}

// CleaningConfig bounds the normalization stage.
type CleaningConfig struct {
	MaxDurationMin int      `yaml:"max_duration_min" json:"max_duration_min"` // above this, durations are implausible
	ImputeFields   []string `yaml:"impute_fields,omitempty" json:"impute_fields,omitempty"`
}

// AnomalyConfig holds the detection thresholds. The heuristic thresholds are
// fixed policy, kept configurable rather than inferred.
type AnomalyConfig struct {
	IQRMultiplier      float64 `yaml:"iqr_multiplier" json:"iqr_multiplier"`
	ResidualMultiplier float64 `yaml:"residual_multiplier" json:"residual_multiplier"`
	MinGroupSize       int     `yaml:"min_group_size" json:"min_group_size"`
	HighRating         float64 `yaml:"high_rating" json:"high_rating"`
	MetascoreGap       float64 `yaml:"metascore_gap" json:"metascore_gap"`
	LowVotes           int     `yaml:"low_votes" json:"low_votes"`
}

// OutputConfig names the export destinations.
type OutputConfig struct {
	File           string       `yaml:"file" json:"file"`                       // final interchange JSON
	CheckpointFile string       `yaml:"checkpoint_file" json:"checkpoint_file"` // autosave/resume location
	CSVFile        string       `yaml:"csv_file,omitempty" json:"csv_file,omitempty"`
	ExcelFile      string       `yaml:"excel_file,omitempty" json:"excel_file,omitempty"`
	MongoDB        *MongoConfig `yaml:"mongodb,omitempty" json:"mongodb,omitempty"`
}

// MongoConfig configures the external document-store collaborator. The core
// only upserts by URL; pooling and TLS belong to the driver.
type MongoConfig struct {
	URI        string        `yaml:"uri" json:"uri"`
	Database   string        `yaml:"database" json:"database"`
	Collection string        `yaml:"collection" json:"collection"`
	Timeout    time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Address string `yaml:"address,omitempty" json:"address,omitempty"`
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("configuration filename cannot be empty")
	}

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", filename)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %v", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes, applies defaults, and
// validates the result.
func LoadFromBytes(data []byte) (*Config, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("configuration data cannot be empty")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %v", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v", err)
	}

	return &cfg, nil
}

// Default returns a configuration populated entirely from defaults, targeting
// the standard pair of chart catalogs.
func Default() *Config {
	cfg := &Config{
		Name: "chartminer",
		Catalogs: []CatalogConfig{
			{URL: "https://www.imdb.com/chart/top/", Category: "movie"},
			{URL: "https://www.imdb.com/chart/toptv/", Category: "tv"},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset fields with production-safe defaults.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "chartminer"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.Fetch.Limit <= 0 {
		c.Fetch.Limit = 250
	}
	if c.Fetch.Workers <= 0 {
		c.Fetch.Workers = 16
	}
	if c.Fetch.AutosaveEvery <= 0 {
		c.Fetch.AutosaveEvery = 25
	}
	if c.Fetch.MaxRetries <= 0 {
		c.Fetch.MaxRetries = 3
	}
	if c.Fetch.RetryBaseDelay <= 0 {
		c.Fetch.RetryBaseDelay = 500 * time.Millisecond
	}
	if c.Fetch.RetryMaxDelay <= 0 {
		c.Fetch.RetryMaxDelay = 8 * time.Second
	}
	if c.Fetch.RequestTimeout <= 0 {
		c.Fetch.RequestTimeout = 15 * time.Second
	}
	if c.Fetch.RateLimit <= 0 {
		c.Fetch.RateLimit = 4.0
	}
	if c.Fetch.RateBurst <= 0 {
		c.Fetch.RateBurst = 8
	}

	if c.Browser.Timeout <= 0 {
		c.Browser.Timeout = 30 * time.Second
	}
	if c.Browser.ViewportWidth <= 0 {
		c.Browser.ViewportWidth = 1920
	}
	if c.Browser.ViewportHeight <= 0 {
		c.Browser.ViewportHeight = 1080
	}

	if c.Cleaning.MaxDurationMin <= 0 {
		c.Cleaning.MaxDurationMin = 600
	}
	if len(c.Cleaning.ImputeFields) == 0 {
		c.Cleaning.ImputeFields = []string{"rating", "metascore", "votes", "duration_min", "year"}
	}

	if c.Anomaly.IQRMultiplier <= 0 {
		c.Anomaly.IQRMultiplier = 1.5
	}
	if c.Anomaly.ResidualMultiplier <= 0 {
		c.Anomaly.ResidualMultiplier = 2.0
	}
	if c.Anomaly.MinGroupSize <= 0 {
		c.Anomaly.MinGroupSize = 5
	}
	if c.Anomaly.HighRating <= 0 {
		c.Anomaly.HighRating = 8.5
	}
	if c.Anomaly.MetascoreGap <= 0 {
		c.Anomaly.MetascoreGap = 10
	}
	if c.Anomaly.LowVotes <= 0 {
		c.Anomaly.LowVotes = 1000
	}

	if c.Output.File == "" {
		c.Output.File = "titles_final.json"
	}
	if c.Output.CheckpointFile == "" {
		c.Output.CheckpointFile = "titles_checkpoint.json"
	}

	if c.Metrics.Enabled && c.Metrics.Address == "" {
		c.Metrics.Address = ":9190"
	}
}
