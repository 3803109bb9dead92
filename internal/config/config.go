// Package config loads process-level configuration (provider keys,
// concurrency limits, storage roots) from the environment, and loads
// per-run Profile documents from disk.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"trustbench/internal/logging"
)

// Config is the process-wide configuration, bound from environment
// variables the way the teacher's internal/config package binds its own
// settings with viper, but flattened to the handful of keys this engine
// actually needs (spec.md §6.4).
type Config struct {
	ProviderAPIKey         string
	FallbackProviderAPIKey string
	FakeProvider           bool
	MaxProviderConcurrency int
	ProviderRetries        int
	ProviderRetryBackoffMS int
	FallbackThreshold      float64

	ToolBridgeURL string
	ToolBridgeKey string
	ToolTimeoutS  int

	AgentTimeoutSeconds int
	MaxParallelPillars  int

	RunsRoot string
	JobsRoot string

	HTTPAddr string

	LogLevel  string
	LogFormat string

	OTLPEndpoint string
}

// Load reads configuration from the environment using viper, applying
// the defaults spec.md §6.4 documents for every optional key.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TRUSTBENCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("fake_provider", false)
	v.SetDefault("max_provider_concurrency", 4)
	v.SetDefault("provider_retries", 2)
	v.SetDefault("provider_retry_backoff_ms", 500)
	v.SetDefault("fallback_threshold", 0.75)
	v.SetDefault("tool_timeout_s", 30)
	v.SetDefault("agent_timeout_seconds", 120)
	v.SetDefault("max_parallel_pillars", 2)
	v.SetDefault("runs_root", "./data/runs")
	v.SetDefault("jobs_root", "./data/jobs")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	cfg := &Config{
		ProviderAPIKey:         v.GetString("provider_api_key"),
		FallbackProviderAPIKey: v.GetString("fallback_provider_api_key"),
		FakeProvider:           v.GetBool("fake_provider"),
		MaxProviderConcurrency: v.GetInt("max_provider_concurrency"),
		ProviderRetries:        v.GetInt("provider_retries"),
		ProviderRetryBackoffMS: v.GetInt("provider_retry_backoff_ms"),
		FallbackThreshold:      v.GetFloat64("fallback_threshold"),
		ToolBridgeURL:          v.GetString("tool_bridge_url"),
		ToolBridgeKey:          v.GetString("tool_bridge_key"),
		ToolTimeoutS:           v.GetInt("tool_timeout_s"),
		AgentTimeoutSeconds:    v.GetInt("agent_timeout_seconds"),
		MaxParallelPillars:     v.GetInt("max_parallel_pillars"),
		RunsRoot:               v.GetString("runs_root"),
		JobsRoot:               v.GetString("jobs_root"),
		HTTPAddr:               v.GetString("http_addr"),
		LogLevel:               v.GetString("log_level"),
		LogFormat:              v.GetString("log_format"),
		OTLPEndpoint:           v.GetString("otel_exporter_otlp_endpoint"),
	}

	if !cfg.FakeProvider && cfg.ProviderAPIKey == "" {
		return nil, fmt.Errorf("config: TRUSTBENCH_PROVIDER_API_KEY is required unless TRUSTBENCH_FAKE_PROVIDER=1")
	}
	if cfg.MaxProviderConcurrency < 1 {
		return nil, fmt.Errorf("config: max_provider_concurrency must be >= 1")
	}

	logging.Debug("config loaded", "fake_provider", cfg.FakeProvider, "runs_root", cfg.RunsRoot, "jobs_root", cfg.JobsRoot)
	return cfg, nil
}
