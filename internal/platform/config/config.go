package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/SscSPs/atm_ledger/internal/utils"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Ledger drivers accepted by LEDGER_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds application configuration.
type Config struct {
	LedgerDriver string
	SQLitePath   string
	DatabaseURL  string

	LogLevel  string
	LogFormat string

	// AccountNumberAttempts bounds how many generated numbers CreateAccount tries before giving up.
	AccountNumberAttempts int
	AccountNumberLength   int
}

// RegisterFlags adds the command-line flags that override environment values.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("driver", DriverSQLite, "ledger driver: sqlite or postgres")
	fs.String("db", "atm.db", "path of the sqlite ledger file")
	fs.String("pgsql-url", "", "postgres connection URL (driver=postgres)")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("log-format", "json", "log format: json or text")
}

// LoadConfig loads configuration from flags, environment variables and a .env file if present.
// Precedence: explicitly set flag, environment, .env, default. fs may be nil.
func LoadConfig(fs *pflag.FlagSet) (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("LEDGER_DRIVER", DriverSQLite)
	v.SetDefault("SQLITE_PATH", "atm.db")
	v.SetDefault("PGSQL_URL", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("ACCOUNT_NUMBER_ATTEMPTS", 5)
	v.SetDefault("ACCOUNT_NUMBER_LENGTH", utils.DefaultAccountNumberLength)
	v.AutomaticEnv()

	if fs != nil {
		flagKeys := map[string]string{
			"driver":     "LEDGER_DRIVER",
			"db":         "SQLITE_PATH",
			"pgsql-url":  "PGSQL_URL",
			"log-level":  "LOG_LEVEL",
			"log-format": "LOG_FORMAT",
		}
		for flagName, key := range flagKeys {
			f := fs.Lookup(flagName)
			// Only flags given on the command line override the environment.
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", flagName, err)
			}
		}
	}

	cfg := &Config{
		LedgerDriver:          strings.ToLower(strings.TrimSpace(v.GetString("LEDGER_DRIVER"))),
		SQLitePath:            v.GetString("SQLITE_PATH"),
		DatabaseURL:           v.GetString("PGSQL_URL"),
		LogLevel:              v.GetString("LOG_LEVEL"),
		LogFormat:             v.GetString("LOG_FORMAT"),
		AccountNumberAttempts: v.GetInt("ACCOUNT_NUMBER_ATTEMPTS"),
		AccountNumberLength:   v.GetInt("ACCOUNT_NUMBER_LENGTH"),
	}

	switch cfg.LedgerDriver {
	case DriverSQLite:
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("SQLITE_PATH must not be empty")
		}
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("PGSQL_URL must be set when LEDGER_DRIVER=%s", DriverPostgres)
		}
	default:
		return nil, fmt.Errorf("unsupported LEDGER_DRIVER %q", cfg.LedgerDriver)
	}

	if cfg.AccountNumberAttempts < 1 {
		slog.Warn("Invalid ACCOUNT_NUMBER_ATTEMPTS, defaulting to 5", slog.Int("value", cfg.AccountNumberAttempts))
		cfg.AccountNumberAttempts = 5
	}
	if cfg.AccountNumberLength < 1 {
		slog.Warn("Invalid ACCOUNT_NUMBER_LENGTH, using default",
			slog.Int("value", cfg.AccountNumberLength),
			slog.Int("default", utils.DefaultAccountNumberLength))
		cfg.AccountNumberLength = utils.DefaultAccountNumberLength
	}

	return cfg, nil
}
