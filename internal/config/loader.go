package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config file locations. The env var wins; the fallback path is optional.
const (
	ServerPathEnv     = "CONFIG_PATH"
	ServerDefaultPath = "./config.yaml"
	ClientPathEnv     = "BREWLOG_CONFIG"
	ClientDefaultPath = "./brewlog.yaml"
)

// LoadServer reads the server configuration from CONFIG_PATH (fallback
// ./config.yaml) and the environment, then validates it.
func LoadServer() (*Server, error) {
	var cfg Server
	if err := load(os.Getenv(ServerPathEnv), ServerDefaultPath, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// LoadClient reads the client configuration. path overrides BREWLOG_CONFIG
// when non-empty.
func LoadClient(path string) (*Client, error) {
	if path == "" {
		path = os.Getenv(ClientPathEnv)
	}
	var cfg Client
	if err := load(path, ClientDefaultPath, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// load reads path into cfg. When path is empty the fallback is tried, and
// a missing fallback means ENV + defaults only. A missing explicit path is
// an error.
func load(path, fallback string, cfg any) error {
	explicitPath := path != ""
	if !explicitPath {
		path = fallback
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return fmt.Errorf("config: read %s: %w", path, err)
		}
		return nil
	} else if explicitPath {
		return fmt.Errorf("config: file %s: %w", path, err)
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return fmt.Errorf("config: read env: %w", err)
	}
	return nil
}
