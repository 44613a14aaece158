package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the root application configuration.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Stocktake StocktakeConfig `yaml:"stocktake"`
	Log       LogConfig       `yaml:"log"`
	DevAPI    DevAPIConfig    `yaml:"devapi"`
	Database  DatabaseConfig  `yaml:"database"`
}

// APIConfig holds the inventory API connection settings.
type APIConfig struct {
	BaseURL    string        `yaml:"base_url"    env:"STOCKROOM_API_BASE_URL"    env-default:"http://localhost:5000/api"`
	Timeout    time.Duration `yaml:"timeout"     env:"STOCKROOM_API_TIMEOUT"     env-default:"10s"`
	RetryDelay time.Duration `yaml:"retry_delay" env:"STOCKROOM_API_RETRY_DELAY" env-default:"500ms"`
}

// LedgerConfig holds transaction history settings.
type LedgerConfig struct {
	HistoryLimit int `yaml:"history_limit" env:"STOCKROOM_LEDGER_HISTORY_LIMIT" env-default:"20"`
	PageSize     int `yaml:"page_size"     env:"STOCKROOM_LEDGER_PAGE_SIZE"     env-default:"50"`
}

// StocktakeConfig holds reconciliation settings.
type StocktakeConfig struct {
	CountPolicy      string `yaml:"count_policy"       env:"STOCKROOM_STOCKTAKE_COUNT_POLICY"       env-default:"prefill"`
	Locale           string `yaml:"locale"             env:"STOCKROOM_STOCKTAKE_LOCALE"             env-default:"en"`
	MaxParallelEdits int    `yaml:"max_parallel_edits" env:"STOCKROOM_STOCKTAKE_MAX_PARALLEL_EDITS" env-default:"4"`
}

// LogConfig holds logging settings. Output is "stderr", "stdout" or a file path.
type LogConfig struct {
	Level  string `yaml:"level"  env:"STOCKROOM_LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"STOCKROOM_LOG_FORMAT" env-default:"json"`
	Output string `yaml:"output" env:"STOCKROOM_LOG_OUTPUT" env-default:"stockroom.log"`
}

// Storage backends for the development API.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// DevAPIConfig holds settings for the local development inventory API.
type DevAPIConfig struct {
	Storage         string        `yaml:"storage"          env:"STOCKROOM_DEVAPI_STORAGE"          env-default:"memory" env-description:"memory or postgres"`
	Host            string        `yaml:"host"             env:"STOCKROOM_DEVAPI_HOST"             env-default:"127.0.0.1"`
	Port            int           `yaml:"port"             env:"STOCKROOM_DEVAPI_PORT"             env-default:"5000"`
	Seed            bool          `yaml:"seed"             env:"STOCKROOM_DEVAPI_SEED"             env-default:"true"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"STOCKROOM_DEVAPI_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"STOCKROOM_DEVAPI_WRITE_TIMEOUT"    env-default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"STOCKROOM_DEVAPI_SHUTDOWN_TIMEOUT" env-default:"5s"`
}

// DatabaseConfig holds PostgreSQL connection settings. Only the development
// API reads it, and only with storage set to postgres.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"STOCKROOM_DATABASE_DSN"`
	MaxConns        int32         `yaml:"max_conns"          env:"STOCKROOM_DATABASE_MAX_CONNS"          env-default:"10"`
	MinConns        int32         `yaml:"min_conns"          env:"STOCKROOM_DATABASE_MIN_CONNS"          env-default:"1"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"STOCKROOM_DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"STOCKROOM_DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// Addr returns host:port.
func (c DevAPIConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
