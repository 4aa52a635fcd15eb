// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads service configuration. Sources are layered, later
// ones winning: built-in defaults, an optional YAML file, WEBAUTH_*
// environment variables and finally command-line flags.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/webauth/internal/auth"
	"github.com/holomush/webauth/internal/logging"
)

// EnvPrefix prefixes every environment variable read by Load. A double
// underscore separates nesting levels: WEBAUTH_TOKEN__SECRET sets token.secret.
const EnvPrefix = "WEBAUTH_"

// Config is the complete service configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
	Token    TokenConfig    `koanf:"token"`
	Cookie   CookieConfig   `koanf:"cookie"`
	Mail     MailConfig     `koanf:"mail"`
	AWS      AWSConfig      `koanf:"aws"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Log      LogConfig      `koanf:"log"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr            string        `koanf:"addr"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig configures the PostgreSQL pool.
type DatabaseConfig struct {
	URL            string `koanf:"url"`
	MaxConns       int32  `koanf:"max_conns"`
	ConnectRetries uint64 `koanf:"connect_retries"`
	AutoMigrate    bool   `koanf:"auto_migrate"`
}

// RedisConfig locates the redis server backing the mail queue.
type RedisConfig struct {
	URL string `koanf:"url"`
}

// TokenConfig configures session tokens.
type TokenConfig struct {
	Secret string        `koanf:"secret"`
	TTL    time.Duration `koanf:"ttl"`
	Issuer string        `koanf:"issuer"`
}

// CookieConfig configures the session cookie.
type CookieConfig struct {
	Secure bool   `koanf:"secure"`
	Domain string `koanf:"domain"`
}

// MailConfig configures outgoing mail.
type MailConfig struct {
	From          string `koanf:"from"`
	Product       string `koanf:"product"`
	TestRecipient string `koanf:"test_recipient"`
	// Async sends through the redis queue; otherwise mail is sent inline.
	Async       bool          `koanf:"async"`
	MaxRetry    int           `koanf:"max_retry"`
	Timeout     time.Duration `koanf:"timeout"`
	Concurrency int           `koanf:"concurrency"`
}

// AWSConfig configures the SES client.
type AWSConfig struct {
	Region          string `koanf:"region"`
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
	Endpoint        string `koanf:"endpoint"`
}

// MetricsConfig configures the observability listener. An empty address
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

var defaults = map[string]any{
	"http.addr":                ":8000",
	"http.cors_origins":        []string{"http://localhost:3000"},
	"http.shutdown_timeout":    "10s",
	"database.url":             "",
	"database.max_conns":       10,
	"database.connect_retries": 5,
	"database.auto_migrate":    true,
	"redis.url":                "redis://localhost:6379/0",
	"token.secret":             "",
	"token.ttl":                auth.DefaultTokenTTL.String(),
	"token.issuer":             "",
	"cookie.secure":            false,
	"cookie.domain":            "",
	"mail.from":                "",
	"mail.product":             "edemy.com",
	"mail.test_recipient":      "",
	"mail.async":               true,
	"mail.max_retry":           5,
	"mail.timeout":             "30s",
	"mail.concurrency":         2,
	"aws.region":               "ap-northeast-1",
	"aws.access_key_id":        "",
	"aws.secret_access_key":    "",
	"aws.endpoint":             "",
	"metrics.addr":             "127.0.0.1:9100",
	"log.format":               "json",
	"log.level":                "info",
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"http-addr":    "http.addr",
	"metrics-addr": "metrics.addr",
	"database-url": "database.url",
	"log-format":   "log.format",
	"log-level":    "log.level",
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "YAML config file path")
	fs.String("env-file", "", "dotenv file loaded before reading the environment (default .env if present)")
	fs.String("http-addr", defaults["http.addr"].(string), "API listen address")
	fs.String("metrics-addr", defaults["metrics.addr"].(string), "metrics/health listen address (empty = disabled)")
	fs.String("database-url", "", "PostgreSQL connection URL")
	fs.String("log-format", defaults["log.format"].(string), "log format (json or text)")
	fs.String("log-level", defaults["log.level"].(string), "log level (debug, info, warn, error)")
}

// Load reads configuration from path (may be empty) and the environment,
// then applies any flags set in flags (may be nil).
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("key", key).Wrap(err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}
	if k.String("database.url") == "" {
		if url := os.Getenv("DATABASE_URL"); url != "" {
			if err := k.Set("database.url", url); err != nil {
				return nil, oops.Code("CONFIG_LOAD_FAILED").With("key", "database.url").Wrap(err)
			}
		}
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagKey), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "unmarshal").Wrap(err)
	}
	return &cfg, nil
}

func envValue(name, value string) (string, any) {
	// An empty variable leaves lower layers untouched.
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(name, EnvPrefix)), "__", ".")
	if key == "http.cors_origins" {
		return key, splitList(value)
	}
	return key, value
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func flagKey(f *pflag.Flag) (string, any) {
	key, ok := flagKeys[f.Name]
	if !ok {
		return "", nil
	}
	return key, f.Value.String()
}

// LoadEnvFile loads a dotenv file into the process environment without
// overriding variables that are already set. An empty path loads .env when
// it exists.
func LoadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return oops.Code("CONFIG_ENV_FILE_FAILED").With("path", path).Wrap(err)
	}
	return nil
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").With("key", "database.url").Errorf("database url is required")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").With("key", "log.format").
			Errorf("log format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return oops.Code("CONFIG_INVALID").With("key", "log.level").Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}

// ValidateServe checks the additional settings the API server needs.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.HTTP.Addr == "" {
		return oops.Code("CONFIG_INVALID").With("key", "http.addr").Errorf("http address is required")
	}
	if len(c.Token.Secret) < auth.MinTokenSecretLength {
		return oops.Code("CONFIG_INVALID").With("key", "token.secret").
			Errorf("token secret must be at least %d bytes", auth.MinTokenSecretLength)
	}
	if c.Token.TTL <= 0 {
		return oops.Code("CONFIG_INVALID").With("key", "token.ttl").Errorf("token ttl must be positive")
	}
	if c.Mail.From == "" {
		return oops.Code("CONFIG_INVALID").With("key", "mail.from").Errorf("mail from address is required")
	}
	if c.Mail.Async && c.Redis.URL == "" {
		return oops.Code("CONFIG_INVALID").With("key", "redis.url").Errorf("redis url is required for async mail")
	}
	return nil
}
