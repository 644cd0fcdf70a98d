package config

import (
	"fmt"
	"net/url"
	"strings"
)

// MinJWTSecretLen matches what auth.NewTokenService accepts.
const MinJWTSecretLen = 16

// Validate checks business rules on a loaded server configuration.
func (c *Server) Validate() error {
	if c.HTTP.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if len(c.Auth.JWTSecret) < MinJWTSecretLen {
		return fmt.Errorf("auth.jwt_secret must be at least %d characters (got %d)", MinJWTSecretLen, len(c.Auth.JWTSecret))
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be > 0 (got %v)", c.Auth.TokenTTL)
	}
	if !c.Auth.HasGitHub() && !c.Auth.DevLogin {
		return fmt.Errorf("at least one login provider must be configured (github or dev_login)")
	}
	if c.Import.KeyHash != "" && !strings.HasPrefix(c.Import.KeyHash, "$2") {
		return fmt.Errorf("import.key_hash must be a bcrypt hash (run `server hash-import-key`)")
	}
	if c.Feed.MaxPageSize <= 0 {
		return fmt.Errorf("feed.max_page_size must be > 0 (got %d)", c.Feed.MaxPageSize)
	}
	if err := c.Log.validate(); err != nil {
		return err
	}
	return nil
}

// Validate checks business rules on a loaded client configuration.
func (c *Client) Validate() error {
	u, err := url.Parse(c.Remote.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("client.server_url %q must be an absolute URL", c.Remote.ServerURL)
	}
	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("client.timeout must be > 0 (got %v)", c.Remote.Timeout)
	}

	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path must not be empty for the sqlite driver")
		}
	case DriverRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store.redis_addr must not be empty for the redis driver")
		}
	default:
		return fmt.Errorf("store.driver %q must be %s or %s", c.Store.Driver, DriverSQLite, DriverRedis)
	}

	if c.Feed.PageSize <= 0 {
		return fmt.Errorf("feed.page_size must be > 0 (got %d)", c.Feed.PageSize)
	}
	return nil
}
