// Package config provides deployment targets and client tunables for the
// SDK, plus an optional environment/file loading convenience. The
// reconnect fields (ReconnectBaseDelay, ReconnectMaxDelay,
// DegradeAfterFailures) are not read by the Event Stream, which uses its
// own fixed 1s/30s/5 values.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Deployment names one of the Network's three public targets, or a
// caller-supplied custom one.
type Deployment struct {
	Name   string
	BEURL  string
	L0URL  string
	L1URL  string
}

// Named built-in deployments. Hosts are placeholders for the real
// production/test/integration endpoints; callers targeting the live
// Network supply the actual URLs via Custom.
var (
	Production = Deployment{
		Name:  "production",
		BEURL: "https://be-mainnet.constellationnetwork.io",
		L0URL: "https://l0-mainnet.constellationnetwork.io",
		L1URL: "https://l1-mainnet.constellationnetwork.io",
	}
	Test = Deployment{
		Name:  "test",
		BEURL: "https://be-testnet.constellationnetwork.io",
		L0URL: "https://l0-testnet.constellationnetwork.io",
		L1URL: "https://l1-testnet.constellationnetwork.io",
	}
	Integration = Deployment{
		Name:  "integration",
		BEURL: "https://be-integrationnet.constellationnetwork.io",
		L0URL: "https://l0-integrationnet.constellationnetwork.io",
		L1URL: "https://l1-integrationnet.constellationnetwork.io",
	}
)

// Custom builds an arbitrary deployment from explicit URLs.
func Custom(name, beURL, l0URL, l1URL string) Deployment {
	return Deployment{Name: name, BEURL: beURL, L0URL: l0URL, L1URL: l1URL}
}

// ClientConfig bundles the client's tunables: transport timeouts/retry,
// batch concurrency, connection pool limits, and event-stream
// polling/reconnect behavior.
type ClientConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	RetryAttempts  int           `mapstructure:"retry_attempts"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`

	MaxConnsPerHost     int `mapstructure:"max_conns_per_host"`
	MaxIdleConnsPerHost int `mapstructure:"max_idle_conns_per_host"`

	BatchConcurrency int `mapstructure:"batch_concurrency"`

	PollInterval        time.Duration `mapstructure:"poll_interval"`
	ReconnectBaseDelay   time.Duration `mapstructure:"reconnect_base_delay"`
	ReconnectMaxDelay    time.Duration `mapstructure:"reconnect_max_delay"`
	DegradeAfterFailures int           `mapstructure:"degrade_after_failures"`

	PushIdlePing time.Duration `mapstructure:"push_idle_ping"`
	PushIdleDead time.Duration `mapstructure:"push_idle_dead"`
}

// Default returns the SDK's built-in settings: 30s request timeout, 3
// retry attempts, concurrency width 32, 5s polling, 1s/30s reconnect
// backoff bounds, degrade after 5 consecutive failures, 60s/90s push
// keep-alive thresholds.
func Default() ClientConfig {
	return ClientConfig{
		RequestTimeout:       30 * time.Second,
		RetryAttempts:        3,
		RetryBaseDelay:       250 * time.Millisecond,
		MaxConnsPerHost:      100,
		MaxIdleConnsPerHost:  30,
		BatchConcurrency:     32,
		PollInterval:         5 * time.Second,
		ReconnectBaseDelay:   time.Second,
		ReconnectMaxDelay:    30 * time.Second,
		DegradeAfterFailures: 5,
		PushIdlePing:         60 * time.Second,
		PushIdleDead:         90 * time.Second,
	}
}

// FromEnv loads overrides for Default from a ".env" file (if present) and
// environment variables sharing the given prefix, via godotenv + viper.
// This is a convenience for CLI-adjacent callers; the SDK core never
// invokes it implicitly — a Client is always built from an explicit
// ClientConfig value.
func FromEnv(prefix string) (ClientConfig, error) {
	cfg := Default()

	_ = godotenv.Load() // optional: missing .env is not an error

	v := viper.New()
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()
	v.SetDefault("request_timeout", cfg.RequestTimeout)
	v.SetDefault("retry_attempts", cfg.RetryAttempts)
	v.SetDefault("retry_base_delay", cfg.RetryBaseDelay)
	v.SetDefault("max_conns_per_host", cfg.MaxConnsPerHost)
	v.SetDefault("max_idle_conns_per_host", cfg.MaxIdleConnsPerHost)
	v.SetDefault("batch_concurrency", cfg.BatchConcurrency)
	v.SetDefault("poll_interval", cfg.PollInterval)
	v.SetDefault("reconnect_base_delay", cfg.ReconnectBaseDelay)
	v.SetDefault("reconnect_max_delay", cfg.ReconnectMaxDelay)
	v.SetDefault("degrade_after_failures", cfg.DegradeAfterFailures)
	v.SetDefault("push_idle_ping", cfg.PushIdlePing)
	v.SetDefault("push_idle_dead", cfg.PushIdleDead)

	if err := v.Unmarshal(&cfg); err != nil {
		return ClientConfig{}, fmt.Errorf("config: unmarshal env: %w", err)
	}
	return cfg, nil
}
