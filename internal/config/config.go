// =============================================================================
// TTC Price Export - Configuration Module
// =============================================================================
//
// This module loads the application configuration. Settings are resolved in
// this order (later wins):
//
//   1. Built-in defaults (the NA and EU Tamriel Trade Centre regions)
//   2. The YAML config file (config.yaml), if present
//   3. TTC_* environment variables, optionally loaded from a .env file
//
// A missing config file is not an error: the tool runs on defaults alone.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the global application configuration.
type Config struct {
	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputDir is the root of the dated output folders (YYYY/MM/DD).
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// LatestDir always holds the most recent export of every region.
	// Default: "<output_dir>/latest"
	LatestDir string `yaml:"latest_dir"`

	// WriteXLSX adds an Excel workbook next to every price CSV.
	WriteXLSX bool `yaml:"write_xlsx"`

	// WriteJSON adds a JSON document next to every price CSV.
	WriteJSON bool `yaml:"write_json"`

	// WriteXML adds an XML document next to every price CSV.
	WriteXML bool `yaml:"write_xml"`

	// RetentionDays removes dated folders older than this many days after a
	// successful export. 0 keeps everything.
	RetentionDays int `yaml:"retention_days"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// MaxConcurrency is the number of regions exported at the same time.
	// Default: 2
	MaxConcurrency int `yaml:"max_concurrency"`

	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`

	// Regions lists the price tables to export.
	// Default: NA and EU
	Regions []RegionConfig `yaml:"regions"`
}

// HTTPConfig configures the archive downloader.
type HTTPConfig struct {
	// Timeout bounds a single request. Default: 2m
	Timeout time.Duration `yaml:"timeout"`

	// RetryCount is the number of retries after the first attempt. Default: 3
	RetryCount int `yaml:"retry_count"`

	// RetryWait is the initial backoff. Default: 2s
	RetryWait time.Duration `yaml:"retry_wait"`

	// RetryMaxWait caps the backoff. Default: 30s
	RetryMaxWait time.Duration `yaml:"retry_max_wait"`

	UserAgent string `yaml:"user_agent"`
}

// DatabaseConfig configures the optional MySQL snapshot store.
type DatabaseConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`

	// BatchSize is the number of rows per INSERT. Default: 500
	BatchSize int `yaml:"batch_size"`
}

// RegionConfig describes one Tamriel Trade Centre price table download.
type RegionConfig struct {
	// Name identifies the region on the command line and in logs, e.g. "NA".
	Name string `yaml:"name"`

	// URL of the zip archive.
	URL string `yaml:"url"`

	// LuaFile is the name of the price table member inside the archive.
	LuaFile string `yaml:"lua_file"`

	// LookupFile is the name of the item lookup member inside the archive.
	LookupFile string `yaml:"lookup_file"`

	// CSVPrefix is the base name of the output files, e.g. "na" -> na.csv.
	CSVPrefix string `yaml:"csv_prefix"`
}

// DefaultRegions are the two public Tamriel Trade Centre price tables.
func DefaultRegions() []RegionConfig {
	return []RegionConfig{
		{
			Name:       "NA",
			URL:        "https://us.tamrieltradecentre.com/download/PriceTable",
			LuaFile:    "PriceTableNA.lua",
			LookupFile: "ItemLookUpTable_EN.lua",
			CSVPrefix:  "na",
		},
		{
			Name:       "EU",
			URL:        "https://eu.tamrieltradecentre.com/download/PriceTable",
			LuaFile:    "PriceTableEU.lua",
			LookupFile: "ItemLookUpTable_EN.lua",
			CSVPrefix:  "eu",
		},
	}
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables already set are not overwritten and a missing file is ignored.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load loads the configuration from a YAML file and the environment.
//
// PARAMETERS:
//   - configPath: The path to the config file. A missing file means defaults.
//
// RETURNS:
//   - A pointer to the Config struct.
//   - An error if the file cannot be parsed or the result is invalid.
func Load(configPath string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// defaults only
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyEnv overrides file values with TTC_* variables.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("TTC_OUTPUT_DIR", &cfg.OutputDir)
	str("TTC_LATEST_DIR", &cfg.LatestDir)
	str("TTC_LOG_LEVEL", &cfg.LogLevel)
	str("TTC_USER_AGENT", &cfg.HTTP.UserAgent)
	str("TTC_DATABASE_DSN", &cfg.Database.DSN)

	if v, ok := lookup("TTC_DATABASE_DSN"); ok && v != "" {
		cfg.Database.Enabled = true
	}

	bools := map[string]*bool{
		"TTC_WRITE_XLSX":       &cfg.WriteXLSX,
		"TTC_WRITE_JSON":       &cfg.WriteJSON,
		"TTC_WRITE_XML":        &cfg.WriteXML,
		"TTC_DATABASE_ENABLED": &cfg.Database.Enabled,
	}
	for key, dst := range bools {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = b
		}
	}

	if v, ok := lookup("TTC_RETENTION_DAYS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TTC_RETENTION_DAYS: %w", err)
		}
		cfg.RetentionDays = n
	}

	if v, ok := lookup("TTC_HTTP_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TTC_HTTP_TIMEOUT: %w", err)
		}
		cfg.HTTP.Timeout = d
	}

	return nil
}

// applyDefaults sets default values for any unset configuration options.
func applyDefaults(cfg *Config) {
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./output"
	}
	if cfg.LatestDir == "" {
		cfg.LatestDir = cfg.OutputDir + "/latest"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.MaxConcurrency == 0 {
		cfg.MaxConcurrency = 2
	}
	if cfg.HTTP.Timeout == 0 {
		cfg.HTTP.Timeout = 2 * time.Minute
	}
	if cfg.HTTP.RetryCount == 0 {
		cfg.HTTP.RetryCount = 3
	}
	if cfg.HTTP.RetryWait == 0 {
		cfg.HTTP.RetryWait = 2 * time.Second
	}
	if cfg.HTTP.RetryMaxWait == 0 {
		cfg.HTTP.RetryMaxWait = 30 * time.Second
	}
	if cfg.HTTP.UserAgent == "" {
		cfg.HTTP.UserAgent = "ttcexport"
	}
	if cfg.Database.BatchSize == 0 {
		cfg.Database.BatchSize = 500
	}
	if len(cfg.Regions) == 0 {
		cfg.Regions = DefaultRegions()
	}
	for i := range cfg.Regions {
		if cfg.Regions[i].CSVPrefix == "" {
			cfg.Regions[i].CSVPrefix = strings.ToLower(cfg.Regions[i].Name)
		}
	}
}

// validate checks the merged configuration.
func validate(cfg *Config) error {
	if cfg.RetentionDays < 0 {
		return errors.New("retention_days must not be negative")
	}
	if cfg.MaxConcurrency < 1 {
		return errors.New("max_concurrency must be at least 1")
	}
	if cfg.HTTP.RetryCount < 0 {
		return errors.New("http.retry_count must not be negative")
	}
	if cfg.Database.Enabled && cfg.Database.DSN == "" {
		return errors.New("database.dsn is required when the database is enabled")
	}
	if cfg.Database.BatchSize < 1 {
		return errors.New("database.batch_size must be at least 1")
	}

	names := make(map[string]bool)
	prefixes := make(map[string]bool)
	for i, r := range cfg.Regions {
		if r.Name == "" {
			return fmt.Errorf("regions[%d]: name is required", i)
		}
		key := strings.ToLower(r.Name)
		if names[key] {
			return fmt.Errorf("regions[%d]: duplicate name %q", i, r.Name)
		}
		names[key] = true

		u, err := url.Parse(r.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("regions[%d] %s: url must be an absolute http(s) URL", i, r.Name)
		}
		if r.LuaFile == "" {
			return fmt.Errorf("regions[%d] %s: lua_file is required", i, r.Name)
		}
		if r.CSVPrefix == "lookup" {
			return fmt.Errorf("regions[%d] %s: csv_prefix %q is reserved", i, r.Name, r.CSVPrefix)
		}
		if prefixes[r.CSVPrefix] {
			return fmt.Errorf("regions[%d] %s: duplicate csv_prefix %q", i, r.Name, r.CSVPrefix)
		}
		prefixes[r.CSVPrefix] = true
	}

	return nil
}

// SelectRegions returns the configured regions with the given names
// (case-insensitive), or all regions when names is empty.
func (c *Config) SelectRegions(names []string) ([]RegionConfig, error) {
	if len(names) == 0 {
		return c.Regions, nil
	}

	selected := make([]RegionConfig, 0, len(names))
	for _, name := range names {
		found := false
		for _, r := range c.Regions {
			if strings.EqualFold(r.Name, name) {
				selected = append(selected, r)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown region %q", name)
		}
	}
	return selected, nil
}
