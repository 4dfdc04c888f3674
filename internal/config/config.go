// Package config assembles process configuration from defaults, an optional
// YAML file, environment variables and command-line flags, in that order.
package config

import (
	"errors"
	"flag"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names.
const (
	EnvConfigFile  = "COUNSEL_CONFIG"
	EnvDatabaseURL = "DATABASE_URL"
	EnvJWTSecret   = "JWT_SECRET"
	EnvHTTPAddr    = "HTTP_ADDR"
	EnvGRPCAddr    = "GRPC_ADDR"
	EnvRedisURL    = "REDIS_URL"
	EnvTokenTTL    = "TOKEN_TTL"
	EnvClockSkew   = "CLOCK_SKEW"
	EnvLogLevel    = "LOG_LEVEL"
	EnvAppEnv      = "APP_ENV"
	EnvProxies     = "TRUSTED_PROXIES"
)

// ErrIncomplete reports that required settings are missing.
var ErrIncomplete = errors.New("config: required settings missing")

// Config holds runtime settings for the API server.
type Config struct {
	HTTPAddr     string        `yaml:"http_addr"`
	GRPCAddr     string        `yaml:"grpc_addr"`
	DatabaseURL  string        `yaml:"database_url"`
	JWTSecret    string        `yaml:"jwt_secret"`
	RedisURL     string        `yaml:"redis_url"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
	ClockSkew    time.Duration `yaml:"clock_skew"`
	LogLevel     string        `yaml:"log_level"`
	Env          string        `yaml:"env"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	LoginBurst   int           `yaml:"login_burst"`
	LoginPerMin  int           `yaml:"login_per_minute"`

	// TrustedProxies lists addresses or CIDRs whose X-Forwarded-For is honoured.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// Defaults returns development defaults. Secrets have no default.
func Defaults() Config {
	return Config{
		HTTPAddr:     ":8080",
		TokenTTL:     24 * time.Hour,
		LogLevel:     "info",
		Env:          "development",
		MaxBodyBytes: 1 << 20,
		LoginBurst:   10,
		LoginPerMin:  10,
	}
}

// Load builds a Config from defaults, the YAML file named by -config or
// COUNSEL_CONFIG, the environment and finally flags.
func Load(args []string, getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := Defaults()

	fs := flag.NewFlagSet("counselbot", flag.ContinueOnError)
	var (
		configPath  = fs.String("config", "", "path to YAML config file")
		httpAddr    = fs.String("http-addr", "", "HTTP listen address")
		grpcAddr    = fs.String("grpc-addr", "", "gRPC health listen address (empty disables)")
		databaseURL = fs.String("database-url", "", "PostgreSQL connection string")
		redisURL    = fs.String("redis-url", "", "Redis URL for shared login throttling")
		tokenTTL    = fs.Duration("token-ttl", 0, "session token lifetime")
		clockSkew   = fs.Duration("clock-skew", 0, "grace period for token time checks")
		logLevel    = fs.String("log-level", "", "log level")
		proxies     = fs.String("trusted-proxies", "", "comma-separated proxy addresses or CIDRs allowed to set X-Forwarded-For")
	)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	path := *configPath
	if path == "" {
		path = getenv(EnvConfigFile)
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.mergeEnv(getenv); err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "http-addr":
			cfg.HTTPAddr = *httpAddr
		case "grpc-addr":
			cfg.GRPCAddr = *grpcAddr
		case "database-url":
			cfg.DatabaseURL = *databaseURL
		case "redis-url":
			cfg.RedisURL = *redisURL
		case "token-ttl":
			cfg.TokenTTL = *tokenTTL
		case "clock-skew":
			cfg.ClockSkew = *clockSkew
		case "log-level":
			cfg.LogLevel = *logLevel
		case "trusted-proxies":
			cfg.TrustedProxies = splitList(*proxies)
		}
	})

	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("config: token ttl must be positive, got %s", cfg.TokenTTL)
	}
	if cfg.ClockSkew < 0 {
		return nil, fmt.Errorf("config: clock skew must not be negative, got %s", cfg.ClockSkew)
	}
	if _, err := cfg.TrustedProxyPrefixes(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv(getenv func(string) string) error {
	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	setString(EnvHTTPAddr, &c.HTTPAddr)
	setString(EnvGRPCAddr, &c.GRPCAddr)
	setString(EnvDatabaseURL, &c.DatabaseURL)
	setString(EnvJWTSecret, &c.JWTSecret)
	setString(EnvRedisURL, &c.RedisURL)
	setString(EnvLogLevel, &c.LogLevel)
	setString(EnvAppEnv, &c.Env)
	if v := strings.TrimSpace(getenv(EnvProxies)); v != "" {
		c.TrustedProxies = splitList(v)
	}

	for key, dst := range map[string]*time.Duration{EnvTokenTTL: &c.TokenTTL, EnvClockSkew: &c.ClockSkew} {
		raw := strings.TrimSpace(getenv(key))
		if raw == "" {
			continue
		}
		d, err := parseDuration(raw)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		*dst = d
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// TrustedProxyPrefixes parses TrustedProxies. Bare addresses become
// single-host prefixes.
func (c *Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("config: trusted proxy %q: %w", raw, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("config: trusted proxy %q: %w", raw, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// parseDuration accepts Go durations ("24h") and bare seconds ("86400").
func parseDuration(raw string) (time.Duration, error) {
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(raw)
}

// Missing lists the environment names of required settings that are empty.
func (c *Config) Missing() []string {
	var missing []string
	if strings.TrimSpace(c.DatabaseURL) == "" {
		missing = append(missing, EnvDatabaseURL)
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		missing = append(missing, EnvJWTSecret)
	}
	return missing
}

// Validate returns ErrIncomplete naming every missing required setting.
func (c *Config) Validate() error {
	if missing := c.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: %s not set", ErrIncomplete, strings.Join(missing, ", "))
	}
	return nil
}

// Production reports whether the process runs with production settings.
func (c *Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

// EffectiveDatabaseURL returns the DSN, requiring TLS in production unless the
// DSN already chooses an sslmode.
func (c *Config) EffectiveDatabaseURL() string {
	dsn := strings.TrimSpace(c.DatabaseURL)
	if dsn == "" || !c.Production() || strings.Contains(dsn, "sslmode=") {
		return dsn
	}
	if strings.Contains(dsn, "://") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return dsn + sep + "sslmode=require"
	}
	return dsn + " sslmode=require"
}
