package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stockroom/internal/blob"
	"stockroom/internal/core"
)

var allKeys = []string{
	EnvConfigFile,
	"STOCKROOM_STORAGE_DRIVER", "STOCKROOM_DATA_DIR", "STOCKROOM_SQLITE_PATH", "STOCKROOM_POSTGRES_DSN",
	"STOCKROOM_LOG_LEVEL", "STOCKROOM_LOG_FORMAT", "STOCKROOM_LOCK_TIMEOUT", "STOCKROOM_METRICS_FILE",
	"STOCKROOM_BLOB_DRIVER", "STOCKROOM_BLOB_FS_ROOT", "STOCKROOM_BLOB_S3_BUCKET", "STOCKROOM_BLOB_S3_REGION",
	"STOCKROOM_BLOB_S3_ENDPOINT", "STOCKROOM_BLOB_S3_PATH_STYLE", "STOCKROOM_BLOB_S3_ACCESS_KEY", "STOCKROOM_BLOB_S3_SECRET_KEY",
}

// clearEnv unsets every setting for the duration of the test, restoring the
// previous values afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Equal(t, core.StorageFS, cfg.StorageOptions().Driver)
	require.Equal(t, blob.DriverFilesystem, cfg.BlobConfig().Driver)
	require.Len(t, cfg.RegistryOptions(), 1)
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "stockroom.toml", `
lock_timeout = "2s"
metrics_file = "/tmp/stockroom.prom"

[storage]
driver = "sqlite"
sqlite_path = "/var/lib/stockroom.db"

[log]
level = "debug"
format = "json"

[blob]
driver = "s3"

[blob.s3]
bucket = "from-file"
region = "eu-west-1"
path_style = true
`)
	t.Setenv(EnvConfigFile, path)
	t.Setenv("STOCKROOM_STORAGE_DRIVER", "memory")
	t.Setenv("STOCKROOM_BLOB_S3_BUCKET", "from-env")
	t.Setenv("STOCKROOM_LOCK_TIMEOUT", "750ms")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "memory", cfg.Storage.Driver)
	require.Equal(t, "/var/lib/stockroom.db", cfg.Storage.SQLitePath)
	require.Equal(t, Duration(750*time.Millisecond), cfg.LockTimeout)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
	require.Equal(t, "/tmp/stockroom.prom", cfg.MetricsFile)

	bc := cfg.BlobConfig()
	require.Equal(t, blob.DriverS3, bc.Driver)
	require.Equal(t, "from-env", bc.S3.Bucket)
	require.Equal(t, "eu-west-1", bc.S3.Region)
	require.True(t, bc.S3.PathStyle)
}

func TestDotenvFillsUnsetVariables(t *testing.T) {
	clearEnv(t)
	t.Setenv("STOCKROOM_LOG_LEVEL", "warn")
	path := writeFile(t, ".env", "STOCKROOM_DATA_DIR=/srv/stockroom\nSTOCKROOM_LOG_LEVEL=debug\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/srv/stockroom", cfg.Storage.DataDir)
	require.Equal(t, "warn", cfg.Log.Level, "process environment wins over .env")

	_, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	clearEnv(t)
	cases := map[string]map[string]string{
		"unknown storage":      {"STOCKROOM_STORAGE_DRIVER": "tape"},
		"postgres without dsn": {"STOCKROOM_STORAGE_DRIVER": "postgres"},
		"s3 without bucket":    {"STOCKROOM_BLOB_DRIVER": "s3"},
		"unknown blob":         {"STOCKROOM_BLOB_DRIVER": "ftp"},
		"bad timeout":          {"STOCKROOM_LOCK_TIMEOUT": "soon"},
		"bad path style":       {"STOCKROOM_BLOB_S3_PATH_STYLE": "maybe"},
		"bad format":           {"STOCKROOM_LOG_FORMAT": "xml"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			require.Error(t, err)
		})
	}
}

func TestUnknownFileKeyFails(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvConfigFile, writeFile(t, "bad.toml", "[storage]\ndrvier = \"fs\"\n"))
	_, err := Load("")
	require.ErrorContains(t, err, "unknown key")
}
