package config_test

import (
	"os"
	"testing"

	"github.com/SscSPs/atm_ledger/internal/platform/config"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir switches the working directory for the test and restores it on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

// clearEnv blanks every key; viper treats empty variables as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"LEDGER_DRIVER", "SQLITE_PATH", "PGSQL_URL", "LOG_LEVEL", "LOG_FORMAT", "ACCOUNT_NUMBER_ATTEMPTS", "ACCOUNT_NUMBER_LENGTH"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	clearEnv(t)

	cfg, err := config.LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, config.DriverSQLite, cfg.LedgerDriver)
	assert.Equal(t, "atm.db", cfg.SQLitePath)
	assert.Equal(t, 5, cfg.AccountNumberAttempts)
	assert.Equal(t, 10, cfg.AccountNumberLength)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	clearEnv(t)
	t.Setenv("SQLITE_PATH", "/var/lib/atm/ledger.db")
	t.Setenv("ACCOUNT_NUMBER_ATTEMPTS", "9")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := config.LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/atm/ledger.db", cfg.SQLitePath)
	assert.Equal(t, 9, cfg.AccountNumberAttempts)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_FlagsOverrideEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	clearEnv(t)
	t.Setenv("SQLITE_PATH", "from-env.db")

	fs := pflag.NewFlagSet("atm", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--db", "from-flag.db", "--log-format", "text"}))

	cfg, err := config.LoadConfig(fs)
	require.NoError(t, err)
	assert.Equal(t, "from-flag.db", cfg.SQLitePath)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel, "unset flags must not shadow the environment")
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	chdir(t, t.TempDir())

	t.Run("unknown driver", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LEDGER_DRIVER", "mysql")
		_, err := config.LoadConfig(nil)
		assert.ErrorContains(t, err, "unsupported LEDGER_DRIVER")
	})

	t.Run("postgres without url", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LEDGER_DRIVER", "postgres")
		_, err := config.LoadConfig(nil)
		assert.ErrorContains(t, err, "PGSQL_URL must be set")
	})

	t.Run("non-positive attempts fall back", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ACCOUNT_NUMBER_ATTEMPTS", "0")
		cfg, err := config.LoadConfig(nil)
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.AccountNumberAttempts)
	})
}
