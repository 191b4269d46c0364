package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/thebeast/llamarouter/internal/domain/retrieval"
)

// Config holds the llamarouter configuration. Loaded once at startup and read-only afterwards.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	LlamaCloud LlamaCloudConfig `yaml:"llamacloud"`
	Router     RouterConfig     `yaml:"router"`
	Targets    []TargetConfig   `yaml:"targets"`
	Retry      RetryConfig      `yaml:"retry"`
	Breaker    BreakerConfig    `yaml:"breaker"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Filters    FiltersConfig    `yaml:"filters"`
	Query      QueryConfig      `yaml:"query"`
	Cache      CacheConfig      `yaml:"cache"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// LlamaCloudConfig holds retrieval dependency settings.
type LlamaCloudConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	OrganizationID string `yaml:"organization_id"`
	ProjectName    string `yaml:"project_name"`
	ConnectTimeout int    `yaml:"connect_timeout_sec"`
	ReadTimeout    int    `yaml:"read_timeout_sec"`
}

// RouterConfig holds routing model settings. Only used with more than one target.
type RouterConfig struct {
	Provider string `yaml:"provider"` // openai (default)
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
}

// TargetConfig describes one retrieval index.
type TargetConfig struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	IndexName   string           `yaml:"index_name"`
	PipelineID  string           `yaml:"pipeline_id"`
	Tuning      retrieval.Tuning `yaml:"tuning"`
}

// RetryConfig holds the bounded retry policy for retrieval.
type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
	BackoffMS   int `yaml:"backoff_ms"`
}

// BreakerConfig holds circuit breaker settings for retrieval.
type BreakerConfig struct {
	Enabled          bool    `yaml:"enabled"`
	MinRequests      uint32  `yaml:"min_requests"`
	FailureRatio     float64 `yaml:"failure_ratio"`
	OpenTimeoutSec   int     `yaml:"open_timeout_sec"`
	HalfOpenMaxCalls uint32  `yaml:"half_open_max_calls"`
	IntervalSec      int     `yaml:"interval_sec"` // closed-state count window (default: 2x open_timeout_sec)
}

// RateLimitConfig throttles outbound retrieval calls. RPS 0 means unlimited.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// FiltersConfig selects how filter values are expanded.
type FiltersConfig struct {
	Expansion     string   `yaml:"expansion"` // encoded (default), variants, none
	VariantFields []string `yaml:"variant_fields"`
}

// QueryConfig holds orchestration settings.
type QueryConfig struct {
	RequiredFilterKeys []string `yaml:"required_filter_keys"`
	EmptyResultMessage string   `yaml:"empty_result_message"`
}

// CacheConfig holds the routing decision cache settings.
type CacheConfig struct {
	Driver           string   `yaml:"driver"` // none (default), redis, valkey
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	TTLSec           int      `yaml:"ttl_sec"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Cache drivers.
const (
	CacheNone   = "none"
	CacheRedis  = "redis"
	CacheValkey = "valkey"
)

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${VAR} references, then applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Retrieval may take up to three read timeouts plus backoff.
		c.HTTP.WriteTimeoutSec = 400
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.LlamaCloud.ConnectTimeout <= 0 {
		c.LlamaCloud.ConnectTimeout = 10
	}
	if c.LlamaCloud.ReadTimeout <= 0 {
		c.LlamaCloud.ReadTimeout = 120
	}
	if c.Router.Provider == "" {
		c.Router.Provider = "openai"
	}
	if c.Router.Model == "" {
		c.Router.Model = "gpt-4o-mini"
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.BackoffMS <= 0 {
		c.Retry.BackoffMS = 2000
	}
	if c.Breaker.MinRequests == 0 {
		c.Breaker.MinRequests = 10
	}
	if c.Breaker.FailureRatio <= 0 {
		c.Breaker.FailureRatio = 0.5
	}
	if c.Breaker.OpenTimeoutSec <= 0 {
		c.Breaker.OpenTimeoutSec = 30
	}
	if c.Breaker.HalfOpenMaxCalls == 0 {
		c.Breaker.HalfOpenMaxCalls = 2
	}
	if c.Breaker.IntervalSec <= 0 {
		c.Breaker.IntervalSec = 2 * c.Breaker.OpenTimeoutSec
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 1
	}
	if c.Filters.Expansion == "" {
		c.Filters.Expansion = "encoded"
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = CacheNone
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 3600
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.LlamaCloud.APIKey == "" {
		return fmt.Errorf("llamacloud.api_key is required (set LLAMA_API_KEY)")
	}
	if len(c.Targets) == 0 {
		return fmt.Errorf("at least one target is required")
	}
	seen := make(map[string]struct{}, len(c.Targets))
	for i, t := range c.Targets {
		if t.Name == "" {
			return fmt.Errorf("targets[%d].name is required", i)
		}
		if _, dup := seen[t.Name]; dup {
			return fmt.Errorf("duplicate target name %q", t.Name)
		}
		seen[t.Name] = struct{}{}
		if t.IndexName == "" && t.PipelineID == "" {
			return fmt.Errorf("targets.%s: index_name or pipeline_id is required", t.Name)
		}
	}
	if c.Routed() {
		if c.Router.Provider != "openai" {
			return fmt.Errorf("router.provider must be \"openai\", got %q", c.Router.Provider)
		}
		if c.Router.APIKey == "" {
			return fmt.Errorf("router.api_key is required with more than one target (set OPENAI_API_KEY)")
		}
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Breaker.FailureRatio > 1 {
		return fmt.Errorf("breaker.failure_ratio must be in (0, 1], got %v", c.Breaker.FailureRatio)
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("rate_limit.rps must not be negative, got %v", c.RateLimit.RPS)
	}
	switch c.Filters.Expansion {
	case "encoded", "variants", "none":
		// ok
	default:
		return fmt.Errorf(
			"filters.expansion must be \"encoded\", \"variants\" or \"none\", got %q", c.Filters.Expansion,
		)
	}
	switch c.Cache.Driver {
	case CacheNone:
	case CacheRedis, CacheValkey:
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for driver %q", c.Cache.Driver)
		}
	default:
		return fmt.Errorf("cache.driver must be \"none\", \"redis\" or \"valkey\", got %q", c.Cache.Driver)
	}
	return nil
}

// Routed reports whether more than one target is configured.
func (c *Config) Routed() bool { return len(c.Targets) > 1 }

// Backoff returns the fixed wait between retrieval attempts.
func (c *Config) Backoff() time.Duration {
	return time.Duration(c.Retry.BackoffMS) * time.Millisecond
}

// CacheTTL returns the routing cache entry lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSec) * time.Second
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
