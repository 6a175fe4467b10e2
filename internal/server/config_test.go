package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeConfigRepairsInvalidValues(t *testing.T) {
	cfg, allowAll := sanitizeConfig(Config{
		Port:            "9000",
		AllowedOrigins:  []string{" HTTP://Example.com ", "*", "not a url", ""},
		MaxMessageSize:  -1,
		RateLimit:       RateLimitConfig{Burst: 0, RefillInterval: -time.Second},
		TokenTTL:        -time.Minute,
		ShutdownTimeout: 0,
	})

	def := defaultConfig()
	assert.True(t, allowAll)
	assert.Equal(t, ":9000", cfg.Port)
	assert.Equal(t, []string{"http://example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, def.MaxMessageSize, cfg.MaxMessageSize)
	assert.Equal(t, def.RateLimit, cfg.RateLimit)
	assert.Equal(t, def.TokenTTL, cfg.TokenTTL)
	assert.Equal(t, def.DatabasePath, cfg.DatabasePath)
	assert.Equal(t, def.LogLevel, cfg.LogLevel)
	assert.Equal(t, def.ShutdownTimeout, cfg.ShutdownTimeout)
}

func TestSetConfigIsCopied(t *testing.T) {
	t.Cleanup(func() { SetConfig(nil) })

	cfg := NewConfig()
	cfg.AllowedOrigins = []string{"https://a.example"}
	SetConfig(cfg)
	cfg.AllowedOrigins[0] = "https://mutated.example"

	assert.Equal(t, []string{"https://a.example"}, currentConfig().AllowedOrigins)

	got := currentConfig()
	got.AllowedOrigins[0] = "https://other.example"
	assert.Equal(t, []string{"https://a.example"}, currentConfig().AllowedOrigins)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SECRET_KEY", "s3cret")
	t.Setenv("SERVER_PORT", ":9090")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, https://b.example")
	t.Setenv("MAX_MESSAGE_SIZE", "2048")
	t.Setenv("RATE_LIMIT_BURST", "10")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "3")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("DB_PATH", "/tmp/notes.db")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, []string{"http://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(2048), cfg.MaxMessageSize)
	assert.Equal(t, RateLimitConfig{Burst: 10, RefillInterval: 3 * time.Second}, cfg.RateLimit)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "/tmp/notes.db", cfg.DatabasePath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, defaultConfig().ShutdownTimeout, cfg.ShutdownTimeout)
}

func TestLoadConfigFallsBackOnGarbage(t *testing.T) {
	t.Setenv("SECRET_KEY", "s3cret")
	t.Setenv("MAX_MESSAGE_SIZE", "huge")
	t.Setenv("RATE_LIMIT_BURST", "-4")
	t.Setenv("TOKEN_TTL", "forever")

	cfg, err := LoadConfig(viper.New())
	require.NoError(t, err)

	def := defaultConfig()
	assert.Equal(t, def.MaxMessageSize, cfg.MaxMessageSize)
	assert.Equal(t, def.RateLimit.Burst, cfg.RateLimit.Burst)
	assert.Equal(t, def.TokenTTL, cfg.TokenTTL)
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	t.Setenv("SECRET_KEY", "  ")

	_, err := LoadConfig(viper.New())
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Setenv("SECRET_KEY", "from-env")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server_port: ":7070"
allowed_origins:
  - http://a.example
  - http://b.example
rate_limit_burst: 3
shutdown_timeout: 30s
`), 0o600))

	v := viper.New()
	v.SetConfigFile(path)
	cfg, err := LoadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Port)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 3, cfg.RateLimit.Burst)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "from-env", cfg.JWTSecret)

	v = viper.New()
	v.SetConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = LoadConfig(v)
	assert.Error(t, err)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"5", 5 * time.Second},
		{"250ms", 250 * time.Millisecond},
		{"1h30m", 90 * time.Minute},
		{"0", time.Minute},
		{"-3s", time.Minute},
		{"soon", time.Minute},
		{"", time.Minute},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseDuration(tt.in, time.Minute), "input %q", tt.in)
	}
}
