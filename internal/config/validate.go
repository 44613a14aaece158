package config

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/language"
)

// Bounds for list sizes requested from the inventory API.
const (
	MaxHistoryLimit     = 100
	MaxPageSize         = 100
	MaxParallelEditsCap = 32
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if err := c.API.validate(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Ledger.validate(); err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	if err := c.Stocktake.validate(); err != nil {
		return fmt.Errorf("stocktake: %w", err)
	}
	if err := c.Log.validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := c.DevAPI.validate(); err != nil {
		return fmt.Errorf("devapi: %w", err)
	}
	if c.DevAPI.Storage == StoragePostgres {
		if err := c.Database.validate(); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	return nil
}

func (d *DevAPIConfig) validate() error {
	if d.Port <= 0 || d.Port > 65535 {
		return fmt.Errorf("port must be in 1..65535 (got %d)", d.Port)
	}
	d.Storage = strings.ToLower(strings.TrimSpace(d.Storage))
	switch d.Storage {
	case StorageMemory, StoragePostgres:
	default:
		return fmt.Errorf("storage must be memory or postgres (got %q)", d.Storage)
	}
	return nil
}

func (d *DatabaseConfig) validate() error {
	if strings.TrimSpace(d.DSN) == "" {
		return fmt.Errorf("dsn is required with postgres storage")
	}
	if d.MaxConns < 1 {
		return fmt.Errorf("max_conns must be >= 1 (got %d)", d.MaxConns)
	}
	if d.MinConns < 0 || d.MinConns > d.MaxConns {
		return fmt.Errorf("min_conns must be in 0..max_conns (got %d)", d.MinConns)
	}
	return nil
}

func (a *APIConfig) validate() error {
	u, err := url.Parse(strings.TrimSpace(a.BaseURL))
	if err != nil {
		return fmt.Errorf("base_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url must be an absolute http(s) URL (got %q)", a.BaseURL)
	}
	a.BaseURL = strings.TrimRight(u.String(), "/")

	if a.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0 (got %v)", a.Timeout)
	}
	if a.RetryDelay < 0 {
		return fmt.Errorf("retry_delay must be >= 0 (got %v)", a.RetryDelay)
	}
	return nil
}

func (l *LedgerConfig) validate() error {
	if l.HistoryLimit < 1 || l.HistoryLimit > MaxHistoryLimit {
		return fmt.Errorf("history_limit must be in 1..%d (got %d)", MaxHistoryLimit, l.HistoryLimit)
	}
	if l.PageSize < 1 || l.PageSize > MaxPageSize {
		return fmt.Errorf("page_size must be in 1..%d (got %d)", MaxPageSize, l.PageSize)
	}
	return nil
}

func (s *StocktakeConfig) validate() error {
	s.CountPolicy = strings.ToLower(strings.TrimSpace(s.CountPolicy))
	switch s.CountPolicy {
	case "prefill", "blank":
	default:
		return fmt.Errorf("count_policy must be prefill or blank (got %q)", s.CountPolicy)
	}
	if _, err := language.Parse(s.Locale); err != nil {
		return fmt.Errorf("locale %q: %w", s.Locale, err)
	}
	if s.MaxParallelEdits < 1 || s.MaxParallelEdits > MaxParallelEditsCap {
		return fmt.Errorf("max_parallel_edits must be in 1..%d (got %d)", MaxParallelEditsCap, s.MaxParallelEdits)
	}
	return nil
}

func (l *LogConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(l.Format)) {
	case "json", "text":
	default:
		return fmt.Errorf("format must be json or text (got %q)", l.Format)
	}
	if strings.TrimSpace(l.Output) == "" {
		return fmt.Errorf("output must not be empty")
	}
	return nil
}
