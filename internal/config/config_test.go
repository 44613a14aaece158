package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeYAML(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	return path
}

// defaults returns a config populated the way env-default tags would.
func defaults() Config {
	return Config{
		API:       APIConfig{BaseURL: "http://localhost:5000/api", Timeout: 10 * time.Second, RetryDelay: 500 * time.Millisecond},
		Ledger:    LedgerConfig{HistoryLimit: 20, PageSize: 50},
		Stocktake: StocktakeConfig{CountPolicy: "prefill", Locale: "en", MaxParallelEdits: 4},
		Log:       LogConfig{Level: "info", Format: "json", Output: "stockroom.log"},
		DevAPI:    DevAPIConfig{Storage: StorageMemory, Host: "127.0.0.1", Port: 5000, Seed: true},
		Database:  DatabaseConfig{MaxConns: 10, MinConns: 1, MaxConnLifetime: time.Hour, MaxConnIdleTime: 30 * time.Minute},
	}
}

const validYAML = `
api:
  base_url: "https://inventory.example.com/api/"
  timeout: "3s"
  retry_delay: "250ms"

ledger:
  history_limit: 10
  page_size: 25

stocktake:
  count_policy: "BLANK"
  locale: "de-DE"
  max_parallel_edits: 8

log:
  level: "debug"
  format: "text"
  output: "stderr"

devapi:
  storage: "Postgres"
  host: "0.0.0.0"
  port: 5050
  seed: false

database:
  dsn: "postgres://u:p@localhost:5432/stockroom"
  max_conns: 4
`

func TestLoad_ValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, validYAML)
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.API.BaseURL != "https://inventory.example.com/api" {
		t.Errorf("api.base_url = %q, want trailing slash trimmed", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 3*time.Second {
		t.Errorf("api.timeout = %v, want 3s", cfg.API.Timeout)
	}
	if cfg.API.RetryDelay != 250*time.Millisecond {
		t.Errorf("api.retry_delay = %v, want 250ms", cfg.API.RetryDelay)
	}
	if cfg.Ledger.HistoryLimit != 10 || cfg.Ledger.PageSize != 25 {
		t.Errorf("ledger = %+v", cfg.Ledger)
	}
	if cfg.Stocktake.CountPolicy != "blank" {
		t.Errorf("stocktake.count_policy = %q, want normalized %q", cfg.Stocktake.CountPolicy, "blank")
	}
	if cfg.Stocktake.Locale != "de-DE" || cfg.Stocktake.MaxParallelEdits != 8 {
		t.Errorf("stocktake = %+v", cfg.Stocktake)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" || cfg.Log.Output != "stderr" {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.DevAPI.Addr() != "0.0.0.0:5050" || cfg.DevAPI.Seed {
		t.Errorf("devapi = %+v", cfg.DevAPI)
	}
	if cfg.DevAPI.Storage != StoragePostgres {
		t.Errorf("devapi.storage = %q, want normalized %q", cfg.DevAPI.Storage, StoragePostgres)
	}
	if cfg.Database.DSN != "postgres://u:p@localhost:5432/stockroom" || cfg.Database.MaxConns != 4 {
		t.Errorf("database = %+v", cfg.Database)
	}
	if cfg.Database.MaxConnIdleTime != 30*time.Minute {
		t.Errorf("database.max_conn_idle_time = %v, want default 30m", cfg.Database.MaxConnIdleTime)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := defaults()
	if cfg.API != want.API {
		t.Errorf("api = %+v, want %+v", cfg.API, want.API)
	}
	if cfg.Ledger != want.Ledger {
		t.Errorf("ledger = %+v, want %+v", cfg.Ledger, want.Ledger)
	}
	if cfg.Stocktake != want.Stocktake {
		t.Errorf("stocktake = %+v, want %+v", cfg.Stocktake, want.Stocktake)
	}
	if cfg.Log != want.Log {
		t.Errorf("log = %+v, want %+v", cfg.Log, want.Log)
	}
	if cfg.DevAPI.Port != 5000 || cfg.DevAPI.ShutdownTimeout != 5*time.Second || cfg.DevAPI.Storage != StorageMemory {
		t.Errorf("devapi = %+v", cfg.DevAPI)
	}
	if cfg.Database != want.Database {
		t.Errorf("database = %+v, want %+v", cfg.Database, want.Database)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, validYAML)
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("STOCKROOM_API_BASE_URL", "http://10.0.0.5:8000/api")
	t.Setenv("STOCKROOM_LEDGER_PAGE_SIZE", "75")
	t.Setenv("STOCKROOM_STOCKTAKE_COUNT_POLICY", "prefill")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.BaseURL != "http://10.0.0.5:8000/api" {
		t.Errorf("api.base_url = %q", cfg.API.BaseURL)
	}
	if cfg.Ledger.PageSize != 75 {
		t.Errorf("ledger.page_size = %d, want 75", cfg.Ledger.PageSize)
	}
	if cfg.Stocktake.CountPolicy != "prefill" {
		t.Errorf("stocktake.count_policy = %q", cfg.Stocktake.CountPolicy)
	}
}

func TestLoad_PathArgumentWinsOverEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "ledger:\n  page_size: 5\n")
	t.Setenv("CONFIG_PATH", filepath.Join(dir, "missing.yaml"))

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Ledger.PageSize != 5 {
		t.Errorf("ledger.page_size = %d, want 5", cfg.Ledger.PageSize)
	}
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))

	if _, err := Load(""); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoad_InvalidYAMLValue(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", writeYAML(t, dir, "ledger:\n  history_limit: 500\n"))

	_, err := Load("")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "history_limit") {
		t.Errorf("error %q should name history_limit", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"relative base url", func(c *Config) { c.API.BaseURL = "/api" }, "base_url"},
		{"ftp base url", func(c *Config) { c.API.BaseURL = "ftp://host/api" }, "base_url"},
		{"zero timeout", func(c *Config) { c.API.Timeout = 0 }, "timeout"},
		{"negative retry delay", func(c *Config) { c.API.RetryDelay = -time.Second }, "retry_delay"},
		{"zero retry delay", func(c *Config) { c.API.RetryDelay = 0 }, ""},
		{"history limit zero", func(c *Config) { c.Ledger.HistoryLimit = 0 }, "history_limit"},
		{"history limit max", func(c *Config) { c.Ledger.HistoryLimit = MaxHistoryLimit }, ""},
		{"page size too big", func(c *Config) { c.Ledger.PageSize = MaxPageSize + 1 }, "page_size"},
		{"unknown policy", func(c *Config) { c.Stocktake.CountPolicy = "zero" }, "count_policy"},
		{"bad locale", func(c *Config) { c.Stocktake.Locale = "not a locale!" }, "locale"},
		{"no parallelism", func(c *Config) { c.Stocktake.MaxParallelEdits = 0 }, "max_parallel_edits"},
		{"yaml log format", func(c *Config) { c.Log.Format = "yaml" }, "format"},
		{"blank log output", func(c *Config) { c.Log.Output = " " }, "output"},
		{"devapi port", func(c *Config) { c.DevAPI.Port = 70000 }, "port"},
		{"unknown storage", func(c *Config) { c.DevAPI.Storage = "sqlite" }, "storage"},
		{"postgres without dsn", func(c *Config) { c.DevAPI.Storage = StoragePostgres }, "dsn"},
		{"dsn ignored for memory", func(c *Config) { c.Database.MaxConns = 0 }, ""},
		{"postgres min above max", func(c *Config) {
			c.DevAPI.Storage = StoragePostgres
			c.Database.DSN = "postgres://localhost/db"
			c.Database.MinConns = 20
		}, "min_conns"},
		{"postgres ok", func(c *Config) {
			c.DevAPI.Storage = StoragePostgres
			c.Database.DSN = "postgres://localhost/db"
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestUsage_ListsEnvironment(t *testing.T) {
	text, err := Usage()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, env := range []string{"STOCKROOM_API_BASE_URL", "STOCKROOM_STOCKTAKE_COUNT_POLICY", "STOCKROOM_LOG_OUTPUT"} {
		if !strings.Contains(text, env) {
			t.Errorf("usage should mention %s", env)
		}
	}
}
