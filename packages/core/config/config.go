package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hncheck/packages/core/env"
	"gopkg.in/yaml.v3"
)

// Config represents the hncheck configuration
type Config struct {
	BaseURL     string            `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty"`
	Timeout     int               `json:"timeout,omitempty" yaml:"timeout,omitempty"` // milliseconds
	MaxStories  int               `json:"maxStories,omitempty" yaml:"maxStories,omitempty"`
	Prefetch    int               `json:"prefetch,omitempty" yaml:"prefetch,omitempty"`
	RateLimit   float64           `json:"rateLimit,omitempty" yaml:"rateLimit,omitempty"` // requests per second
	Proxy       string            `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	ValidateSSL *bool             `json:"validateSSL,omitempty" yaml:"validateSSL,omitempty"`
	Headers     map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Reporters   []string          `json:"reporters,omitempty" yaml:"reporters,omitempty"`
	OutputDir   string            `json:"outputDir,omitempty" yaml:"outputDir,omitempty"`
	FixturesDir string            `json:"fixturesDir,omitempty" yaml:"fixturesDir,omitempty"`
	HistoryPath string            `json:"historyPath,omitempty" yaml:"historyPath,omitempty"`
	Parallel    *bool             `json:"parallel,omitempty" yaml:"parallel,omitempty"`
	Concurrency int               `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	Bail        *bool             `json:"bail,omitempty" yaml:"bail,omitempty"`
	Verbose     *bool             `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	NoColor     *bool             `json:"noColor,omitempty" yaml:"noColor,omitempty"`
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetValidateSSL returns the validate SSL setting, defaulting to true
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

// GetParallel returns the parallel setting, defaulting to false
func (c *Config) GetParallel() bool {
	return getBool(c.Parallel, false)
}

// GetBail returns the bail setting, defaulting to false
func (c *Config) GetBail() bool {
	return getBool(c.Bail, false)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".hncheck.config.json",
	"hncheck.config.json",
	".hncheckrc",
	".hncheckrc.json",
	"hncheck.yaml",
	"hncheck.yml",
	".hncheck.yaml",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	if path := FindConfigFile(dir); path != "" {
		return loadConfigFromFile(path)
	}
	return DefaultConfig(), nil
}

// FindConfigFile returns the first config file present in dir, or "".
func FindConfigFile(dir string) string {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}
	return ""
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	fileCfg := &Config{}
	if isYAML(path) {
		err = yaml.Unmarshal(data, fileCfg)
	} else {
		err = json.Unmarshal(data, fileCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return DefaultConfig().Merge(fileCfg), nil
}

// FromEnv builds a partial config from HNCHECK_* variables, with BASE_URL as
// a fallback for the base URL. Unset variables leave fields zero so the
// result can be passed to Merge.
func FromEnv() (*Config, error) {
	vars := env.LoadSystemEnv(env.Prefix)
	cfg := &Config{}

	if v, ok := env.Lookup(env.Prefix+"BASE_URL", "BASE_URL"); ok {
		cfg.BaseURL = v
	}
	if v := vars["PROXY"]; v != "" {
		cfg.Proxy = v
	}
	if v := vars["REPORTERS"]; v != "" {
		cfg.Reporters = strings.Split(v, ",")
	}
	if v := vars["OUTPUT_DIR"]; v != "" {
		cfg.OutputDir = v
	}
	if v := vars["FIXTURES_DIR"]; v != "" {
		cfg.FixturesDir = v
	}
	if v := vars["HISTORY"]; v != "" {
		cfg.HistoryPath = v
	}

	ints := map[string]*int{
		"TIMEOUT":     &cfg.Timeout,
		"MAX_STORIES": &cfg.MaxStories,
		"PREFETCH":    &cfg.Prefetch,
		"CONCURRENCY": &cfg.Concurrency,
	}
	for key, dst := range ints {
		if v := vars[key]; v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("%s%s: %w", env.Prefix, key, err)
			}
			*dst = n
		}
	}

	if v := vars["RATE_LIMIT"]; v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%sRATE_LIMIT: %w", env.Prefix, err)
		}
		cfg.RateLimit = f
	}

	bools := map[string]**bool{
		"VALIDATE_SSL": &cfg.ValidateSSL,
		"PARALLEL":     &cfg.Parallel,
		"BAIL":         &cfg.Bail,
		"VERBOSE":      &cfg.Verbose,
		"NO_COLOR":     &cfg.NoColor,
	}
	for key, dst := range bools {
		if v := vars[key]; v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("%s%s: %w", env.Prefix, key, err)
			}
			*dst = BoolPtr(b)
		}
	}

	return cfg, nil
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if c.MaxStories < 0 {
		return fmt.Errorf("maxStories must not be negative")
	}
	if c.Prefetch < 0 {
		return fmt.Errorf("prefetch must not be negative")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rateLimit must not be negative")
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative")
	}
	return nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.BaseURL != "" {
		result.BaseURL = other.BaseURL
	}
	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.MaxStories > 0 {
		result.MaxStories = other.MaxStories
	}
	if other.Prefetch > 0 {
		result.Prefetch = other.Prefetch
	}
	if other.RateLimit > 0 {
		result.RateLimit = other.RateLimit
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.OutputDir != "" {
		result.OutputDir = other.OutputDir
	}
	if other.FixturesDir != "" {
		result.FixturesDir = other.FixturesDir
	}
	if other.HistoryPath != "" {
		result.HistoryPath = other.HistoryPath
	}
	if other.Concurrency > 0 {
		result.Concurrency = other.Concurrency
	}

	// Boolean flags - only override if explicitly set in other config
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.Parallel != nil {
		result.Parallel = other.Parallel
	}
	if other.Bail != nil {
		result.Bail = other.Bail
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	if len(other.Headers) > 0 {
		headers := make(map[string]string, len(result.Headers)+len(other.Headers))
		for k, v := range result.Headers {
			headers[k] = v
		}
		for k, v := range other.Headers {
			headers[k] = v
		}
		result.Headers = headers
	}

	if len(other.Reporters) > 0 {
		result.Reporters = other.Reporters
	}

	return &result
}

// SaveConfig writes the configuration, as YAML when path ends in .yaml/.yml.
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
