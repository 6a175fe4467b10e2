// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the ReddNotes service.
package server

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the server configuration settings including security controls.
type Config struct {
	Port            string
	AllowedOrigins  []string
	MaxMessageSize  int64
	RateLimit       RateLimitConfig
	JWTSecret       string
	TokenTTL        time.Duration
	DatabasePath    string
	LogLevel        string
	ShutdownTimeout time.Duration
}

// ErrMissingSecret is returned by LoadConfig when no token secret is configured.
var ErrMissingSecret = errors.New("config: SECRET_KEY must be set")

var (
	configMu        sync.RWMutex
	activeConfig    Config
	allowedOrigins  map[string]struct{}
	allowAllOrigins bool
)

func init() {
	SetConfig(nil)
}

func defaultConfig() Config {
	return Config{
		Port: ":8080",
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		MaxMessageSize: 32 * 1024,
		RateLimit: RateLimitConfig{
			Burst:          5,
			RefillInterval: time.Second,
		},
		TokenTTL:        24 * time.Hour,
		DatabasePath:    "data/reddnotes.db",
		LogLevel:        "info",
		ShutdownTimeout: 10 * time.Second,
	}
}

// sanitizeConfig repairs zero or negative values and normalizes origins.
func sanitizeConfig(cfg Config) (Config, bool) {
	def := defaultConfig()

	if cfg.Port == "" {
		cfg.Port = def.Port
	}
	if !strings.Contains(cfg.Port, ":") {
		cfg.Port = ":" + cfg.Port
	}

	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}

	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = def.RateLimit.Burst
	}

	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = def.RateLimit.RefillInterval
	}

	if cfg.TokenTTL < 0 {
		cfg.TokenTTL = def.TokenTTL
	}

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = def.DatabasePath
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}

	normalizedOrigins, allowAll := normalizeOrigins(cfg.AllowedOrigins)
	cfg.AllowedOrigins = normalizedOrigins
	return cfg, allowAll
}

// Sanitize returns cfg with invalid values replaced by defaults and origins normalized.
func Sanitize(cfg Config) Config {
	sanitized, allowAll := sanitizeConfig(cfg)
	if allowAll {
		sanitized.AllowedOrigins = append(sanitized.AllowedOrigins, "*")
	}
	return sanitized
}

// SetConfig applies the provided configuration. Passing nil resets to defaults.
func SetConfig(cfg *Config) {
	source := defaultConfig()
	if cfg != nil {
		source = *cfg
		source.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	}

	sanitized, allowAll := sanitizeConfig(source)

	configMu.Lock()
	defer configMu.Unlock()

	activeConfig = sanitized
	allowAllOrigins = allowAll
	allowedOrigins = make(map[string]struct{}, len(sanitized.AllowedOrigins))
	for _, origin := range sanitized.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}
}

func currentConfig() Config {
	configMu.RLock()
	defer configMu.RUnlock()

	cfg := activeConfig
	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// Viper keys. Each maps to the upper-cased environment variable of the same name.
const (
	keyPort            = "server_port"
	keyAllowedOrigins  = "allowed_origins"
	keyMaxMessageSize  = "max_message_size"
	keyRateBurst       = "rate_limit_burst"
	keyRateRefill      = "rate_limit_refill_interval"
	keySecret          = "secret_key"
	keyTokenTTL        = "token_ttl"
	keyDatabasePath    = "db_path"
	keyLogLevel        = "log_level"
	keyShutdownTimeout = "shutdown_timeout"
)

// LoadConfig reads configuration from v: defaults first, then the config
// file set with v.SetConfigFile (if any), then environment variables.
// Values that fail to parse fall back to defaults; a missing secret is an error.
func LoadConfig(v *viper.Viper) (*Config, error) {
	def := defaultConfig()

	v.SetDefault(keyPort, def.Port)
	v.SetDefault(keyAllowedOrigins, strings.Join(def.AllowedOrigins, ","))
	v.SetDefault(keyMaxMessageSize, strconv.FormatInt(def.MaxMessageSize, 10))
	v.SetDefault(keyRateBurst, strconv.Itoa(def.RateLimit.Burst))
	v.SetDefault(keyRateRefill, def.RateLimit.RefillInterval.String())
	v.SetDefault(keyTokenTTL, def.TokenTTL.String())
	v.SetDefault(keyDatabasePath, def.DatabasePath)
	v.SetDefault(keyLogLevel, def.LogLevel)
	v.SetDefault(keyShutdownTimeout, def.ShutdownTimeout.String())
	v.AutomaticEnv()

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}

	cfg := Config{
		Port:            v.GetString(keyPort),
		AllowedOrigins:  readOrigins(v),
		MaxMessageSize:  parseMaxMessageSize(v.GetString(keyMaxMessageSize), def.MaxMessageSize),
		JWTSecret:       strings.TrimSpace(v.GetString(keySecret)),
		TokenTTL:        parseDuration(v.GetString(keyTokenTTL), def.TokenTTL),
		DatabasePath:    v.GetString(keyDatabasePath),
		LogLevel:        v.GetString(keyLogLevel),
		ShutdownTimeout: parseDuration(v.GetString(keyShutdownTimeout), def.ShutdownTimeout),
		RateLimit: RateLimitConfig{
			Burst:          parseIntValue(v.GetString(keyRateBurst), def.RateLimit.Burst),
			RefillInterval: parseDuration(v.GetString(keyRateRefill), def.RateLimit.RefillInterval),
		},
	}

	if cfg.JWTSecret == "" {
		return nil, ErrMissingSecret
	}

	sanitized := Sanitize(cfg)
	return &sanitized, nil
}

// readOrigins accepts either a comma separated string (env) or a list (config file).
func readOrigins(v *viper.Viper) []string {
	if raw, ok := v.Get(keyAllowedOrigins).(string); ok {
		return parseOrigins(raw)
	}
	return v.GetStringSlice(keyAllowedOrigins)
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseMaxMessageSize(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
		return size
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

// parseDuration accepts a Go duration ("90s", "24h") or a bare number of seconds.
func parseDuration(value string, defaultValue time.Duration) time.Duration {
	value = strings.TrimSpace(value)
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	return defaultValue
}
