package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Config{
		LlamaCloud: LlamaCloudConfig{APIKey: "llx-test"},
		Targets: []TargetConfig{
			{Name: "deals", Description: "Deal memos", IndexName: "SharePoint Deal Pipeline"},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()

	if cfg.HTTP.Port != 8000 {
		t.Errorf("port = %d", cfg.HTTP.Port)
	}
	if cfg.LlamaCloud.ConnectTimeout != 10 || cfg.LlamaCloud.ReadTimeout != 120 {
		t.Errorf("timeouts = %d/%d", cfg.LlamaCloud.ConnectTimeout, cfg.LlamaCloud.ReadTimeout)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Backoff() != 2*time.Second {
		t.Errorf("retry = %d attempts, %v backoff", cfg.Retry.MaxAttempts, cfg.Backoff())
	}
	if cfg.Filters.Expansion != "encoded" {
		t.Errorf("expansion = %q", cfg.Filters.Expansion)
	}
	if cfg.Cache.Driver != CacheNone || cfg.CacheTTL() != time.Hour {
		t.Errorf("cache = %q ttl %v", cfg.Cache.Driver, cfg.CacheTTL())
	}
	if cfg.Router.Model != "gpt-4o-mini" {
		t.Errorf("router model = %q", cfg.Router.Model)
	}
	if cfg.Breaker.Enabled {
		t.Error("breaker must be off by default")
	}
	if cfg.Breaker.IntervalSec != 60 {
		t.Errorf("breaker interval = %ds, want 60", cfg.Breaker.IntervalSec)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing api key", func(c *Config) { c.LlamaCloud.APIKey = "" }, "LLAMA_API_KEY"},
		{"no targets", func(c *Config) { c.Targets = nil }, "at least one target"},
		{"unnamed target", func(c *Config) { c.Targets[0].Name = "" }, "targets[0].name"},
		{"target without index", func(c *Config) { c.Targets[0].IndexName = "" }, "index_name or pipeline_id"},
		{"duplicate target", func(c *Config) {
			c.Targets = append(c.Targets, c.Targets[0])
			c.Router.APIKey = "sk"
		}, "duplicate target"},
		{"routing without key", func(c *Config) {
			c.Targets = append(c.Targets, TargetConfig{Name: "thematic", IndexName: "Thematic"})
		}, "OPENAI_API_KEY"},
		{"unknown router provider", func(c *Config) {
			c.Targets = append(c.Targets, TargetConfig{Name: "thematic", IndexName: "Thematic"})
			c.Router.APIKey = "sk"
			c.Router.Provider = "anthropic"
		}, "router.provider"},
		{"bad retry", func(c *Config) { c.Retry.MaxAttempts = -1 }, "retry.max_attempts"},
		{"bad expansion", func(c *Config) { c.Filters.Expansion = "fuzzy" }, "filters.expansion"},
		{"bad cache driver", func(c *Config) { c.Cache.Driver = "memcached" }, "cache.driver"},
		{"cache without addrs", func(c *Config) { c.Cache.Driver = CacheRedis }, "cache.addrs"},
		{"bad port", func(c *Config) { c.HTTP.Port = 70000 }, "http.port"},
		{"bad failure ratio", func(c *Config) { c.Breaker.FailureRatio = 2 }, "failure_ratio"},
		{"negative rps", func(c *Config) { c.RateLimit.RPS = -1 }, "rate_limit.rps"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err.Error(), tc.wantErr)
			}
		})
	}
}

func TestValidate_RoutedOK(t *testing.T) {
	cfg := validConfig()
	cfg.Targets = append(cfg.Targets, TargetConfig{Name: "thematic", PipelineID: "pipe-2"})
	cfg.Router.APIKey = "sk-test"
	if !cfg.Routed() {
		t.Fatal("expected routed config")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("LLAMAROUTER_TEST_KEY", "secret")

	got := string(expandEnvVars([]byte("a: ${LLAMAROUTER_TEST_KEY}\nb: ${LLAMAROUTER_UNSET:-fallback}\nc: ${LLAMAROUTER_UNSET}")))
	want := "a: secret\nb: fallback\nc: "
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestParse(t *testing.T) {
	t.Setenv("LLAMA_API_KEY", "llx-env")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	data := []byte(`
http:
  port: 9000
llamacloud:
  api_key: ${LLAMA_API_KEY}
  organization_id: org-1
  project_name: The BEAST
router:
  api_key: ${OPENAI_API_KEY}
targets:
  - name: deals
    description: Company-specific questions and deal materials.
    index_name: SharePoint Deal Pipeline
    tuning:
      dense_similarity_top_k: 8
      enable_reranking: true
  - name: thematic
    description: Market, sector or thematic research.
    pipeline_id: pipe-2
filters:
  expansion: variants
  variant_fields: [file_name]
query:
  required_filter_keys: [company]
  empty_result_message: "No documents found for: %s"
`)

	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.HTTP.Port != 9000 || cfg.LlamaCloud.APIKey != "llx-env" || cfg.Router.APIKey != "sk-env" {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.Targets) != 2 || cfg.Targets[1].PipelineID != "pipe-2" {
		t.Fatalf("targets = %+v", cfg.Targets)
	}
	tuning := cfg.Targets[0].Tuning
	if tuning.DenseTopK == nil || *tuning.DenseTopK != 8 || tuning.EnableReranking == nil || !*tuning.EnableReranking {
		t.Errorf("tuning = %+v", tuning)
	}
	if cfg.Filters.Expansion != "variants" || len(cfg.Filters.VariantFields) != 1 {
		t.Errorf("filters = %+v", cfg.Filters)
	}
	if cfg.Query.EmptyResultMessage != "No documents found for: %s" || cfg.Query.RequiredFilterKeys[0] != "company" {
		t.Errorf("query = %+v", cfg.Query)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("targets: [")); err == nil {
		t.Error("expected YAML error")
	}
	if _, err := Parse([]byte("http:\n  port: 8000\n")); err == nil {
		t.Error("expected validation error")
	}
}
