// Package config loads sitesearch configuration: which classes are indexed
// and how, where the index lives, and how results are paginated.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	serrors "github.com/Aman-CERP/sitesearch/internal/errors"
	"github.com/Aman-CERP/sitesearch/internal/fieldconfig"
)

// File and directory names.
const (
	ProjectConfigFile    = ".sitesearch.yaml"
	ProjectConfigFileAlt = ".sitesearch.yml"
	DataDirName          = ".sitesearch"
)

// Config represents the complete sitesearch configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	Classes []ClassConfig `yaml:"classes" json:"classes"`
	Index   IndexConfig   `yaml:"index" json:"index"`
	Records RecordsConfig `yaml:"records" json:"records"`
	Search  SearchConfig  `yaml:"search" json:"search"`
	Extract ExtractConfig `yaml:"extract" json:"extract"`
	Reindex ReindexConfig `yaml:"reindex" json:"reindex"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Dir is the project directory relative paths are resolved against.
	Dir string `yaml:"-" json:"-"`
}

// ClassConfig enables indexing for one record class.
type ClassConfig struct {
	Name string `yaml:"name" json:"name"`

	// Fields is a comma-separated list, a sequence of names, or a mapping
	// of source field to settings (name, type, filter, store_empty).
	// Empty uses the default columns of well-known classes.
	Fields yaml.Node `yaml:"fields,omitempty" json:"-"`

	// IndexFilter limits which records of the class are indexed. For the
	// SQLite record store it is a SQL boolean expression over the records
	// table.
	IndexFilter string `yaml:"index_filter" json:"index_filter,omitempty"`
}

// IndexConfig locates the search index and the reindex job database.
type IndexConfig struct {
	Path     string `yaml:"path" json:"path"`
	JobsPath string `yaml:"jobs_path" json:"jobs_path"`
}

// RecordsConfig locates the source record database.
type RecordsConfig struct {
	Path string `yaml:"path" json:"path"`
}

// SearchConfig configures result pages.
type SearchConfig struct {
	PageSize   int `yaml:"page_size" json:"page_size"`
	AlwaysShow int `yaml:"always_show_pages" json:"always_show_pages"`
	MaxShow    int `yaml:"max_show_pages" json:"max_show_pages"`

	// BaseURL is the results page that pagination links point at.
	BaseURL string `yaml:"base_url" json:"base_url"`

	// HighlightWords is the length of highlighted excerpts.
	HighlightWords int `yaml:"highlight_words" json:"highlight_words"`

	// StatsPath is the query statistics database.
	StatsPath string `yaml:"stats_path" json:"stats_path"`
}

// ExtractConfig configures file text extraction.
type ExtractConfig struct {
	// Timeout bounds each extraction, e.g. "30s". Empty or "0" means none.
	Timeout string `yaml:"timeout" json:"timeout"`

	// MaxConcurrent bounds concurrent converter subprocesses.
	MaxConcurrent int `yaml:"max_concurrent" json:"max_concurrent"`

	// CacheSize is the number of extracted bodies kept in memory.
	CacheSize int `yaml:"cache_size" json:"cache_size"`

	// Converters maps a converter binary name to an explicit path.
	Converters map[string]string `yaml:"converters" json:"converters,omitempty"`

	// SearchDirs are searched for converters, in order, before PATH.
	SearchDirs []string `yaml:"search_dirs" json:"search_dirs"`
}

// ReindexConfig configures reindex jobs.
type ReindexConfig struct {
	// MaxRetries is how often a step failing with a retryable error is retried.
	MaxRetries int `yaml:"max_retries" json:"max_retries"`
	// RetryDelay is the first backoff delay, e.g. "250ms".
	RetryDelay string `yaml:"retry_delay" json:"retry_delay"`
}

// LoggingConfig configures the file logger.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Index: IndexConfig{
			Path:     filepath.Join(DataDirName, "index"),
			JobsPath: filepath.Join(DataDirName, "jobs.db"),
		},
		Records: RecordsConfig{
			Path: filepath.Join(DataDirName, "records.db"),
		},
		Search: SearchConfig{
			PageSize:       10,
			AlwaysShow:     3,
			MaxShow:        8,
			BaseURL:        "/search",
			HighlightWords: 25,
			StatsPath:      filepath.Join(DataDirName, "stats.db"),
		},
		Extract: ExtractConfig{
			MaxConcurrent: 4,
			CacheSize:     256,
			SearchDirs:    []string{"/usr/local/bin", "/usr/bin", "/opt/local/bin"},
		},
		Reindex: ReindexConfig{
			MaxRetries: 2,
			RetryDelay: "250ms",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/sitesearch/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/sitesearch/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "sitesearch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "sitesearch", "config.yaml")
	}
	return filepath.Join(home, ".config", "sitesearch", "config.yaml")
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist.
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}
	cfg := &Config{}
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}
	return cfg, nil
}

// Load loads configuration for the project in dir.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/sitesearch/config.yaml)
//  3. Project config (.sitesearch.yaml in dir)
//  4. Environment variables (SITESEARCH_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, serrors.New(serrors.ErrCodeConfigInvalid, "failed to load user config", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, serrors.New(serrors.ErrCodeConfigInvalid, "failed to load project config", err).
			WithDetail("dir", dir)
	}

	cfg.applyEnvOverrides()
	cfg.Dir = dir

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ProjectConfigPath returns the project config file in dir, preferring
// .sitesearch.yaml. ok is false when neither exists.
func ProjectConfigPath(dir string) (string, bool) {
	for _, name := range []string{ProjectConfigFile, ProjectConfigFileAlt} {
		p := filepath.Join(dir, name)
		if fileExists(p) {
			return p, true
		}
	}
	return filepath.Join(dir, ProjectConfigFile), false
}

func (c *Config) loadFromFile(dir string) error {
	path, ok := ProjectConfigPath(dir)
	if !ok {
		return nil
	}
	parsed := &Config{}
	if err := parsed.loadYAML(path); err != nil {
		return err
	}
	c.mergeWith(parsed)
	return nil
}

// loadYAML decodes path into c.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// mergeWith merges non-zero values from other into c. A non-empty class
// list replaces the current one.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if len(other.Classes) > 0 {
		c.Classes = other.Classes
	}

	if other.Index.Path != "" {
		c.Index.Path = other.Index.Path
	}
	if other.Index.JobsPath != "" {
		c.Index.JobsPath = other.Index.JobsPath
	}
	if other.Records.Path != "" {
		c.Records.Path = other.Records.Path
	}

	if other.Search.PageSize != 0 {
		c.Search.PageSize = other.Search.PageSize
	}
	if other.Search.AlwaysShow != 0 {
		c.Search.AlwaysShow = other.Search.AlwaysShow
	}
	if other.Search.MaxShow != 0 {
		c.Search.MaxShow = other.Search.MaxShow
	}
	if other.Search.BaseURL != "" {
		c.Search.BaseURL = other.Search.BaseURL
	}
	if other.Search.HighlightWords != 0 {
		c.Search.HighlightWords = other.Search.HighlightWords
	}
	if other.Search.StatsPath != "" {
		c.Search.StatsPath = other.Search.StatsPath
	}

	if other.Extract.Timeout != "" {
		c.Extract.Timeout = other.Extract.Timeout
	}
	if other.Extract.MaxConcurrent != 0 {
		c.Extract.MaxConcurrent = other.Extract.MaxConcurrent
	}
	if other.Extract.CacheSize != 0 {
		c.Extract.CacheSize = other.Extract.CacheSize
	}
	if len(other.Extract.Converters) > 0 {
		if c.Extract.Converters == nil {
			c.Extract.Converters = make(map[string]string)
		}
		for bin, path := range other.Extract.Converters {
			c.Extract.Converters[bin] = path
		}
	}
	if len(other.Extract.SearchDirs) > 0 {
		c.Extract.SearchDirs = other.Extract.SearchDirs
	}

	if other.Reindex.MaxRetries != 0 {
		c.Reindex.MaxRetries = other.Reindex.MaxRetries
	}
	if other.Reindex.RetryDelay != "" {
		c.Reindex.RetryDelay = other.Reindex.RetryDelay
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
}

// applyEnvOverrides applies SITESEARCH_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SITESEARCH_INDEX_PATH"); v != "" {
		c.Index.Path = v
	}
	if v := os.Getenv("SITESEARCH_RECORDS_PATH"); v != "" {
		c.Records.Path = v
	}
	if v := os.Getenv("SITESEARCH_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Search.PageSize = n
		}
	}
	if v := os.Getenv("SITESEARCH_EXTRACT_TIMEOUT"); v != "" {
		c.Extract.Timeout = v
	}
	if v := os.Getenv("SITESEARCH_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Extract.MaxConcurrent = n
		}
	}
	if v := os.Getenv("SITESEARCH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate validates the configuration, including every class's field
// configuration. Errors are config errors.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return serrors.New(serrors.ErrCodeConfigInvalid, fmt.Sprintf(format, args...), nil)
	}

	if c.Search.PageSize <= 0 {
		return invalid("search.page_size must be positive, got %d", c.Search.PageSize)
	}
	if c.Search.AlwaysShow <= 0 {
		return invalid("search.always_show_pages must be positive, got %d", c.Search.AlwaysShow)
	}
	if c.Search.MaxShow < c.Search.AlwaysShow {
		return invalid("search.max_show_pages (%d) must be at least always_show_pages (%d)",
			c.Search.MaxShow, c.Search.AlwaysShow)
	}
	if c.Extract.MaxConcurrent < 0 {
		return invalid("extract.max_concurrent must be non-negative, got %d", c.Extract.MaxConcurrent)
	}
	if _, err := c.ExtractTimeout(); err != nil {
		return invalid("extract.timeout: %v", err)
	}
	if c.Reindex.MaxRetries < 0 {
		return invalid("reindex.max_retries must be non-negative, got %d", c.Reindex.MaxRetries)
	}
	if _, err := c.RetryDelay(); err != nil {
		return invalid("reindex.retry_delay: %v", err)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return invalid("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	seen := make(map[string]bool, len(c.Classes))
	for _, cls := range c.Classes {
		if cls.Name == "" {
			return serrors.ConfigError("class entry has no name", nil)
		}
		if seen[cls.Name] {
			return serrors.ConfigError("class configured twice", nil).WithDetail("class", cls.Name)
		}
		seen[cls.Name] = true
	}

	_, err := c.FieldConfigs(nil, nil)
	return err
}

// FieldConfigs resolves every configured class into a new resolver, in
// configuration order. filters may be nil for the built-in filters.
func (c *Config) FieldConfigs(filters *fieldconfig.Filters, logger *slog.Logger) (*fieldconfig.Resolver, error) {
	var opts []fieldconfig.Option
	if filters != nil {
		opts = append(opts, fieldconfig.WithFilters(filters))
	}
	if logger != nil {
		opts = append(opts, fieldconfig.WithLogger(logger))
	}
	r := fieldconfig.NewResolver(opts...)

	for i := range c.Classes {
		cls := &c.Classes[i]
		var err error
		if list, ok := fieldconfig.DefaultColumns[cls.Name]; ok && isEmpty(&cls.Fields) {
			_, err = r.ResolveList(cls.Name, list)
		} else {
			_, err = r.Resolve(cls.Name, &cls.Fields)
		}
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

func isEmpty(n *yaml.Node) bool {
	return n.Kind == 0 || (n.Kind == yaml.ScalarNode && (n.Tag == "!!null" || strings.TrimSpace(n.Value) == ""))
}

// ExtractTimeout returns the per-extraction timeout, 0 for none.
func (c *Config) ExtractTimeout() (time.Duration, error) {
	return parseDuration(c.Extract.Timeout)
}

// RetryDelay returns the first reindex retry delay.
func (c *Config) RetryDelay() (time.Duration, error) {
	return parseDuration(c.Reindex.RetryDelay)
}

// RetryConfig returns the retry policy for reindex steps.
func (c *Config) RetryConfig() serrors.RetryConfig {
	rc := serrors.DefaultRetryConfig()
	rc.MaxRetries = c.Reindex.MaxRetries
	if d, err := c.RetryDelay(); err == nil && d > 0 {
		rc.InitialDelay = d
	}
	return rc
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("must be non-negative, got %s", s)
	}
	return d, nil
}

// Path resolves p against the project directory.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
