package model

import "time"

// Config is the complete runtime configuration
type Config struct {
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Scoring      ScoringConfig      `yaml:"scoring" mapstructure:"scoring"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
}

// HTTPConfig controls the page fetcher
type HTTPConfig struct {
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent      string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxHeaderBytes int64         `yaml:"max_header_bytes" mapstructure:"max_header_bytes"`
	MaxRedirects   int           `yaml:"max_redirects" mapstructure:"max_redirects"`
	InsecureTLS    bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	RespectRobots  bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy      string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy     string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy        string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig controls the fetched-page cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskDir   string        `yaml:"disk_dir" mapstructure:"disk_dir"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig bounds outbound request pressure
type ConcurrencyConfig struct {
	Workers          int `yaml:"workers" mapstructure:"workers"`                     // tools enriched in parallel
	CategoryFetchers int `yaml:"category_fetchers" mapstructure:"category_fetchers"` // pages fetched in parallel per tool
}

// RateLimitingConfig is applied per destination host
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ScoringConfig tunes the composite scorer
type ScoringConfig struct {
	ChecklistPath string             `yaml:"checklist_path,omitempty" mapstructure:"checklist_path"`
	SourceTrust   map[string]float64 `yaml:"source_trust,omitempty" mapstructure:"source_trust"`
}

// StoreConfig locates the SQLite database
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// OutputConfig controls reporting
type OutputConfig struct {
	Verbose  bool   `yaml:"verbose" mapstructure:"verbose"`
	JSONPath string `yaml:"json_path,omitempty" mapstructure:"json_path"`
}

// DefaultUserAgent identifies the crawler to vendors
const DefaultUserAgent = "ToolRate/0.2 (+https://github.com/ppiankov/toolrate; tool enrichment bot)"

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:        12 * time.Second,
			UserAgent:      DefaultUserAgent,
			MaxBodyBytes:   2_000_000,
			MaxHeaderBytes: 8 << 20,
			MaxRedirects:   5,
			RespectRobots:  true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 30 * time.Minute,
			DiskDir:   "",
			DiskTTL:   24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers:          4,
			CategoryFetchers: 3,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         4,
		},
		Store: StoreConfig{
			Path: "toolrate.db",
		},
	}
}
