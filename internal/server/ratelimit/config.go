package ratelimit

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // exact path, or a prefix when it ends with "/"
	Method string        // HTTP method
	Limit  int           // requests per window
	Window time.Duration // refill window
	Burst  int           // defaults to Limit when 0
}

type envSettings struct {
	Enabled         bool          `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	DefaultLimit    int           `envconfig:"RATE_LIMIT_DEFAULT_LIMIT" default:"1000"`
	DefaultWindow   time.Duration `envconfig:"RATE_LIMIT_DEFAULT_WINDOW" default:"1m"`
	CleanupInterval time.Duration `envconfig:"RATE_LIMIT_CLEANUP_INTERVAL" default:"5m"`
	Whitelist       string        `envconfig:"RATE_LIMIT_WHITELIST"`
	Blacklist       string        `envconfig:"RATE_LIMIT_BLACKLIST"`
}

// LoadConfig loads rate limiting configuration from RATE_LIMIT_* environment
// variables.
func LoadConfig() (*Config, error) {
	var env envSettings
	if err := envconfig.Process("", &env); err != nil {
		return nil, err
	}
	if !env.Enabled {
		return &Config{Enabled: false}, nil
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    env.DefaultLimit,
		DefaultWindow:   env.DefaultWindow,
		CleanupInterval: env.CleanupInterval,
		Whitelist:       parseIPList(env.Whitelist),
		Blacklist:       parseIPList(env.Blacklist),
		EndpointConfigs: DefaultEndpointConfigs(),
	}, nil
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// LLM-backed operations
		{Path: "/generations/", Method: "POST", Limit: 20, Window: time.Hour, Burst: 3},
		{Path: "/cover-letters", Method: "POST", Limit: 20, Window: time.Hour, Burst: 3},
		{Path: "/cover-letters/", Method: "POST", Limit: 20, Window: time.Hour, Burst: 3},

		// Login
		{Path: "/auth/token", Method: "POST", Limit: 10, Window: time.Minute, Burst: 5},

		// Catalog writes
		{Path: "/admin/", Method: "POST", Limit: 100, Window: time.Minute, Burst: 10},
		{Path: "/admin/", Method: "PUT", Limit: 100, Window: time.Minute, Burst: 10},
	}
}

// parseIPList parses a comma-separated list of IP addresses into a set.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
