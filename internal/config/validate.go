package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
// Validate also normalizes URLs and fills derived fields.
func (c *Config) Validate() error {
	if err := c.Server.validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Supabase.validate(c.Server); err != nil {
		return fmt.Errorf("supabase: %w", err)
	}
	if err := c.Database.validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Summarizer.validate(); err != nil {
		return fmt.Errorf("summarizer: %w", err)
	}
	if err := c.Library.validate(); err != nil {
		return fmt.Errorf("library: %w", err)
	}
	if err := c.Storage.validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	return nil
}

func (s *ServerConfig) validate() error {
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("port must be in 0..65535 (got %d)", s.Port)
	}
	if s.SaveRateLimit < 0 {
		return fmt.Errorf("save_rate_limit must be >= 0 (got %d)", s.SaveRateLimit)
	}
	return nil
}

func (s *SupabaseConfig) validate(srv ServerConfig) error {
	u, err := parseBaseURL(s.URL)
	if err != nil {
		return fmt.Errorf("url: %w", err)
	}
	s.URL = u
	if s.AnonKey == "" {
		return fmt.Errorf("anon_key is required")
	}
	if s.RedirectURL == "" {
		host := srv.Host
		if host == "" || host == "0.0.0.0" {
			host = "localhost"
		}
		s.RedirectURL = fmt.Sprintf("http://%s:%d/auth/callback", host, srv.Port)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0 (got %s)", s.Timeout)
	}
	if s.RefreshLeeway < 0 {
		return fmt.Errorf("refresh_leeway must be >= 0 (got %s)", s.RefreshLeeway)
	}
	return nil
}

func (d *DatabaseConfig) validate() error {
	switch d.Driver {
	case DriverREST:
	case DriverPostgres:
		if d.DSN == "" {
			return fmt.Errorf("dsn is required for driver %q", DriverPostgres)
		}
		if d.MaxConns <= 0 {
			return fmt.Errorf("max_conns must be > 0 (got %d)", d.MaxConns)
		}
	default:
		return fmt.Errorf("unknown driver %q (want %q or %q)", d.Driver, DriverREST, DriverPostgres)
	}
	return nil
}

func (s *SummarizerConfig) validate() error {
	u, err := parseBaseURL(s.BaseURL)
	if err != nil {
		return fmt.Errorf("base_url: %w", err)
	}
	s.BaseURL = u
	if s.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0 (got %s)", s.Timeout)
	}
	return nil
}

func (l *LibraryConfig) validate() error {
	loc, err := time.LoadLocation(l.Timezone)
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	l.Location = loc
	if l.RecentLimit <= 0 {
		return fmt.Errorf("recent_limit must be > 0 (got %d)", l.RecentLimit)
	}
	return nil
}

func (s *StorageConfig) validate() error {
	switch s.Backend {
	case StorageAuto, StorageKeyring, StorageFile:
	default:
		return fmt.Errorf("unknown backend %q", s.Backend)
	}
	if s.Dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home dir: %w", err)
		}
		s.Dir = filepath.Join(home, ".promptly")
	}
	return nil
}

// parseBaseURL checks that raw is an absolute http(s) URL and strips
// trailing slashes.
func parseBaseURL(raw string) (string, error) {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return "", fmt.Errorf("is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("scheme must be http or https (got %q)", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("host is required")
	}
	return raw, nil
}
