package model

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Config is the complete runtime configuration
type Config struct {
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Catalog     CatalogConfig     `yaml:"catalog" mapstructure:"catalog"`
	PDF         PDFConfig         `yaml:"pdf" mapstructure:"pdf"`
	Definitions DefinitionsConfig `yaml:"definitions" mapstructure:"definitions"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`

	// IDOverrides maps canonical work paths to document IDs and takes
	// precedence over the built-in table.
	IDOverrides map[string]string `yaml:"id_overrides,omitempty" mapstructure:"id_overrides"`
}

// HTTPConfig controls network acquisition
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MinInterval   time.Duration `yaml:"min_interval" mapstructure:"min_interval"` // Spacing between request starts
	MaxRetries    int           `yaml:"max_retries" mapstructure:"max_retries"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// CacheConfig controls the source page cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// CatalogConfig describes the portal search endpoint
type CatalogConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	SearchPath  string `yaml:"search_path" mapstructure:"search_path"`
	GenericTerm string `yaml:"generic_term" mapstructure:"generic_term"`
	StartYear   int    `yaml:"start_year" mapstructure:"start_year"`
	PageSize    int    `yaml:"page_size" mapstructure:"page_size"`
}

// PDFConfig holds the text-layer tool and column selection thresholds
type PDFConfig struct {
	Tool         string  `yaml:"tool" mapstructure:"tool"`
	BandMin      float64 `yaml:"band_min" mapstructure:"band_min"`
	BandMax      float64 `yaml:"band_max" mapstructure:"band_max"`
	HeadingRatio float64 `yaml:"heading_ratio" mapstructure:"heading_ratio"`
	MinHeadings  int     `yaml:"min_headings" mapstructure:"min_headings"`
	LengthRatio  float64 `yaml:"length_ratio" mapstructure:"length_ratio"`
	LowTextChars int     `yaml:"low_text_chars" mapstructure:"low_text_chars"`
}

// DefinitionsConfig bounds definition mining
type DefinitionsConfig struct {
	Max int `yaml:"max" mapstructure:"max"`
}

// OutputConfig controls where records and reports go
type OutputConfig struct {
	Dir     string `yaml:"dir" mapstructure:"dir"`
	DBPath  string `yaml:"db_path,omitempty" mapstructure:"db_path"`
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns the configuration used when nothing is overridden
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:       60 * time.Second,
			UserAgent:     "lexharvest/0.1 (+https://github.com/ppiankov/lexharvest)",
			MaxBodyBytes:  50 << 20,
			MinInterval:   1200 * time.Millisecond,
			MaxRetries:    3,
			RespectRobots: true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       filepath.Join(xdg.CacheHome, "lexharvest"),
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Catalog: CatalogConfig{
			BaseURL:     "https://rwandalii.org",
			SearchPath:  "/search/api/documents/",
			GenericTerm: "law",
			StartYear:   1962,
			PageSize:    50,
		},
		PDF: PDFConfig{
			Tool:         "pdftotext",
			BandMin:      0.36,
			BandMax:      0.62,
			HeadingRatio: 0.30,
			MinHeadings:  3,
			LengthRatio:  0.35,
			LowTextChars: 1200,
		},
		Definitions: DefinitionsConfig{
			Max: 80,
		},
		Output: OutputConfig{
			Dir: "./data/seed",
		},
	}
}
