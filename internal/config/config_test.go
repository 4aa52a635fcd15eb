// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/webauth/internal/auth"
	"github.com/holomush/webauth/pkg/errutil"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func clearDatabaseURL(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("WEBAUTH_DATABASE__URL", "")
}

func validConfig() *Config {
	return &Config{
		HTTP:     HTTPConfig{Addr: ":8000"},
		Database: DatabaseConfig{URL: "postgres://localhost/webauth"},
		Redis:    RedisConfig{URL: "redis://localhost:6379/0"},
		Token:    TokenConfig{Secret: testSecret, TTL: time.Hour},
		Mail:     MailConfig{From: "noreply@example.com", Async: true},
		Log:      LogConfig{Format: "json", Level: "info"},
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearDatabaseURL(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.HTTP.Addr)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, auth.DefaultTokenTTL, cfg.Token.TTL)
	assert.Equal(t, int32(10), cfg.Database.MaxConns)
	assert.Equal(t, uint64(5), cfg.Database.ConnectRetries)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.True(t, cfg.Mail.Async)
	assert.Equal(t, 30*time.Second, cfg.Mail.Timeout)
	assert.Equal(t, "edemy.com", cfg.Mail.Product)
	assert.False(t, cfg.Cookie.Secure)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Empty(t, cfg.Database.URL)
}

func TestLoad_EmptyEnvKeepsFileValue(t *testing.T) {
	clearDatabaseURL(t)
	path := writeFile(t, "webauth.yaml", `
database:
  url: postgres://db/webauth
token:
  secret: file-secret
mail:
  from: noreply@example.com
`)
	t.Setenv("WEBAUTH_TOKEN__SECRET", "")
	t.Setenv("WEBAUTH_MAIL__FROM", "  ")

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "postgres://db/webauth", cfg.Database.URL)
	assert.Equal(t, "file-secret", cfg.Token.Secret)
	assert.Equal(t, "noreply@example.com", cfg.Mail.From)
}

func TestLoad_YAMLFile(t *testing.T) {
	clearDatabaseURL(t)
	path := writeFile(t, "webauth.yaml", `
http:
  addr: ":9000"
  cors_origins: ["https://app.example.com"]
database:
  url: postgres://db/webauth
token:
  secret: file-secret
  ttl: 24h
cookie:
  secure: true
mail:
  from: noreply@example.com
  async: false
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, "postgres://db/webauth", cfg.Database.URL)
	assert.Equal(t, "file-secret", cfg.Token.Secret)
	assert.Equal(t, 24*time.Hour, cfg.Token.TTL)
	assert.True(t, cfg.Cookie.Secure)
	assert.False(t, cfg.Mail.Async)
	assert.Equal(t, "json", cfg.Log.Format, "unset keys keep defaults")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_LOAD_FAILED")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearDatabaseURL(t)
	path := writeFile(t, "webauth.yaml", "token:\n  secret: file-secret\nmail:\n  test_recipient: file@example.com\n")
	t.Setenv("WEBAUTH_TOKEN__SECRET", "env-secret")
	t.Setenv("WEBAUTH_MAIL__TEST_RECIPIENT", "env@example.com")
	t.Setenv("WEBAUTH_MAIL__MAX_RETRY", "9")
	t.Setenv("WEBAUTH_HTTP__CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.Token.Secret)
	assert.Equal(t, "env@example.com", cfg.Mail.TestRecipient)
	assert.Equal(t, 9, cfg.Mail.MaxRetry)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.HTTP.CORSOrigins)
}

func TestLoad_DatabaseURLFallback(t *testing.T) {
	t.Setenv("WEBAUTH_DATABASE__URL", "")
	t.Setenv("DATABASE_URL", "postgres://fallback/webauth")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://fallback/webauth", cfg.Database.URL)
}

func TestLoad_FlagsOverrideEverything(t *testing.T) {
	clearDatabaseURL(t)
	t.Setenv("WEBAUTH_LOG__FORMAT", "json")
	t.Setenv("WEBAUTH_HTTP__ADDR", ":7000")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--log-format=text", "--database-url=postgres://flag/webauth"}))

	cfg, err := Load("", fs)
	require.NoError(t, err)

	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "postgres://flag/webauth", cfg.Database.URL)
	assert.Equal(t, ":7000", cfg.HTTP.Addr, "unchanged flags do not clobber env")
}

func TestLoadEnvFile(t *testing.T) {
	path := writeFile(t, "test.env", "WEBAUTH_TEST_FROM_FILE=loaded\nWEBAUTH_TEST_PRESET=from-file\n")
	t.Setenv("WEBAUTH_TEST_PRESET", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("WEBAUTH_TEST_FROM_FILE") })

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "loaded", os.Getenv("WEBAUTH_TEST_FROM_FILE"))
	assert.Equal(t, "from-env", os.Getenv("WEBAUTH_TEST_PRESET"), "existing variables win")
}

func TestLoadEnvFile_DefaultIsOptional(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, LoadEnvFile(""))
}

func TestLoadEnvFile_ExplicitMissing(t *testing.T) {
	err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env"))
	errutil.AssertErrorCode(t, err, "CONFIG_ENV_FILE_FAILED")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		key    string
	}{
		{name: "missing database url", mutate: func(c *Config) { c.Database.URL = "" }, key: "database.url"},
		{name: "bad log format", mutate: func(c *Config) { c.Log.Format = "xml" }, key: "log.format"},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "loud" }, key: "log.level"},
	}

	require.NoError(t, validConfig().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
			errutil.AssertErrorContext(t, err, "key", tt.key)
		})
	}
}

func TestValidateServe(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		key    string
	}{
		{name: "inherits base validation", mutate: func(c *Config) { c.Database.URL = "" }, key: "database.url"},
		{name: "missing http addr", mutate: func(c *Config) { c.HTTP.Addr = "" }, key: "http.addr"},
		{name: "short secret", mutate: func(c *Config) { c.Token.Secret = "short" }, key: "token.secret"},
		{name: "zero ttl", mutate: func(c *Config) { c.Token.TTL = 0 }, key: "token.ttl"},
		{name: "missing from", mutate: func(c *Config) { c.Mail.From = "" }, key: "mail.from"},
		{name: "async without redis", mutate: func(c *Config) { c.Redis.URL = "" }, key: "redis.url"},
	}

	require.NoError(t, validConfig().ValidateServe())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.ValidateServe()
			errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
			errutil.AssertErrorContext(t, err, "key", tt.key)
		})
	}

	t.Run("inline mail needs no redis", func(t *testing.T) {
		cfg := validConfig()
		cfg.Mail.Async = false
		cfg.Redis.URL = ""
		require.NoError(t, cfg.ValidateServe())
	})
}
