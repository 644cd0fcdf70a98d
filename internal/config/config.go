// Package config loads the server and client configuration from a YAML file
// with environment overrides. Priority: ENV > YAML > env-default tags.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Server is the feed server configuration.
type Server struct {
	HTTP     HTTPConfig     `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Import   ImportConfig   `yaml:"import"`
	Feed     FeedConfig     `yaml:"feed"`
	Log      LogConfig      `yaml:"log"`
}

// HTTPConfig holds listener settings.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"             env:"SERVER_ADDR"             env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"30s"`
}

// DatabaseConfig locates the feed database.
type DatabaseConfig struct {
	Path string `yaml:"path" env:"DATABASE_PATH" env-default:"data/feed.db"`
}

// AuthConfig holds session token and identity provider settings.
type AuthConfig struct {
	JWTSecret          string        `yaml:"jwt_secret"           env:"AUTH_JWT_SECRET"           env-required:"true"`
	TokenTTL           time.Duration `yaml:"token_ttl"            env:"AUTH_TOKEN_TTL"            env-default:"720h"`
	AppID              string        `yaml:"app_id"               env:"AUTH_APP_ID"               env-default:"brewlog"`
	GitHubClientID     string        `yaml:"github_client_id"     env:"AUTH_GITHUB_CLIENT_ID"`
	GitHubClientSecret string        `yaml:"github_client_secret" env:"AUTH_GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string        `yaml:"github_callback_url"  env:"AUTH_GITHUB_CALLBACK_URL"`
	DevLogin           bool          `yaml:"dev_login"            env:"AUTH_DEV_LOGIN"            env-default:"false"`
}

// HasGitHub reports whether GitHub login is configured.
func (c AuthConfig) HasGitHub() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// ImportConfig guards bulk import. An empty hash disables it.
type ImportConfig struct {
	KeyHash string `yaml:"key_hash" env:"IMPORT_KEY_HASH"`
}

// FeedConfig bounds discover queries.
type FeedConfig struct {
	MaxPageSize int `yaml:"max_page_size" env:"FEED_MAX_PAGE_SIZE" env-default:"50"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// SlogLevel parses Level. Validate has already rejected unknown names.
func (c LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func (c LogConfig) validate() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Level)
	}
	switch strings.ToLower(c.Format) {
	case "json", "text":
		return nil
	}
	return fmt.Errorf("log.format %q must be json or text", c.Format)
}

// Client is the brewlog CLI configuration.
type Client struct {
	Remote RemoteConfig     `yaml:"client"`
	Store  StoreConfig      `yaml:"store"`
	Feed   ClientFeedConfig `yaml:"feed"`
	Log    ClientLogConfig  `yaml:"log"`
}

// RemoteConfig points the client at a feed server.
type RemoteConfig struct {
	ServerURL string        `yaml:"server_url" env:"BREWLOG_SERVER_URL" env-default:"http://localhost:8080"`
	Timeout   time.Duration `yaml:"timeout"    env:"BREWLOG_TIMEOUT"    env-default:"10s"`
	Provider  string        `yaml:"provider"   env:"BREWLOG_PROVIDER"`
}

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// StoreConfig selects the local key-value backend.
type StoreConfig struct {
	Driver        string `yaml:"driver"         env:"BREWLOG_STORE_DRIVER"   env-default:"sqlite"`
	Path          string `yaml:"path"           env:"BREWLOG_STORE_PATH"     env-default:"brewlog.db"`
	RedisAddr     string `yaml:"redis_addr"     env:"BREWLOG_REDIS_ADDR"     env-default:"localhost:6379"`
	RedisPassword string `yaml:"redis_password" env:"BREWLOG_REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db"       env:"BREWLOG_REDIS_DB"       env-default:"0"`
	Namespace     string `yaml:"namespace"      env:"BREWLOG_NAMESPACE"      env-default:"brewlog"`
}

// ClientFeedConfig sizes discover pages requested by the CLI.
type ClientFeedConfig struct {
	PageSize int `yaml:"page_size" env:"BREWLOG_FEED_PAGE_SIZE" env-default:"10"`
}

// ClientLogConfig holds CLI logging settings. The CLI always logs text to
// stderr.
type ClientLogConfig struct {
	Level string `yaml:"level" env:"BREWLOG_LOG_LEVEL" env-default:"warn"`
}

// SlogLevel parses Level, falling back to warn.
func (c ClientLogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelWarn
	}
	return level
}
