// Package config assembles runtime settings from an optional TOML file, an
// optional .env file and STOCKROOM_ environment variables. Environment values
// win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"stockroom/internal/blob"
	"stockroom/internal/core"
)

// EnvConfigFile names the TOML file to read.
const EnvConfigFile = "STOCKROOM_CONFIG"

// Duration reads Go duration strings ("750ms", "2s") from TOML.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config is the full set of runtime settings.
type Config struct {
	Storage     Storage  `toml:"storage"`
	LockTimeout Duration `toml:"lock_timeout"`
	Log         Log      `toml:"log"`
	Blob        Blob     `toml:"blob"`
	MetricsFile string   `toml:"metrics_file"`
}

type Storage struct {
	Driver      string `toml:"driver"`
	DataDir     string `toml:"data_dir"`
	SQLitePath  string `toml:"sqlite_path"`
	PostgresDSN string `toml:"postgres_dsn"`
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Blob struct {
	Driver string `toml:"driver"`
	Root   string `toml:"root"`
	S3     S3     `toml:"s3"`
}

type S3 struct {
	Bucket          string `toml:"bucket"`
	Region          string `toml:"region"`
	Endpoint        string `toml:"endpoint"`
	PathStyle       bool   `toml:"path_style"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Storage:     Storage{Driver: string(core.StorageFS)},
		LockTimeout: Duration(core.DefaultLockTimeout),
		Log:         Log{Level: "info", Format: "text"},
		Blob:        Blob{Driver: string(blob.DriverFilesystem)},
	}
}

// Load reads dotenv (when the file exists) into the process environment
// without overriding variables already set, then the TOML file named by
// STOCKROOM_CONFIG, then applies environment overrides.
func Load(dotenv string) (Config, error) {
	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", dotenv, err)
		}
	}
	cfg := Default()
	if path := os.Getenv(EnvConfigFile); path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("read config %s: unknown key %s", path, undecoded[0])
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"STOCKROOM_STORAGE_DRIVER":     &c.Storage.Driver,
		"STOCKROOM_DATA_DIR":           &c.Storage.DataDir,
		"STOCKROOM_SQLITE_PATH":        &c.Storage.SQLitePath,
		"STOCKROOM_POSTGRES_DSN":       &c.Storage.PostgresDSN,
		"STOCKROOM_LOG_LEVEL":          &c.Log.Level,
		"STOCKROOM_LOG_FORMAT":         &c.Log.Format,
		"STOCKROOM_BLOB_DRIVER":        &c.Blob.Driver,
		"STOCKROOM_BLOB_FS_ROOT":       &c.Blob.Root,
		"STOCKROOM_BLOB_S3_BUCKET":     &c.Blob.S3.Bucket,
		"STOCKROOM_BLOB_S3_REGION":     &c.Blob.S3.Region,
		"STOCKROOM_BLOB_S3_ENDPOINT":   &c.Blob.S3.Endpoint,
		"STOCKROOM_BLOB_S3_ACCESS_KEY": &c.Blob.S3.AccessKeyID,
		"STOCKROOM_BLOB_S3_SECRET_KEY": &c.Blob.S3.SecretAccessKey,
		"STOCKROOM_METRICS_FILE":       &c.MetricsFile,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("STOCKROOM_BLOB_S3_PATH_STYLE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("STOCKROOM_BLOB_S3_PATH_STYLE: %w", err)
		}
		c.Blob.S3.PathStyle = b
	}
	if v := os.Getenv("STOCKROOM_LOCK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("STOCKROOM_LOCK_TIMEOUT: %w", err)
		}
		c.LockTimeout = Duration(d)
	}
	return nil
}

// Validate rejects unknown drivers and incomplete backend settings.
func (c Config) Validate() error {
	switch core.StorageDriver(c.Storage.Driver) {
	case core.StorageFS, core.StorageMemory, core.StorageSQLite:
	case core.StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("postgres storage requires a DSN")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch blob.Driver(c.Blob.Driver) {
	case blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Blob.S3.Bucket == "" {
			return fmt.Errorf("s3 blob driver requires a bucket")
		}
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	if c.LockTimeout <= 0 {
		return fmt.Errorf("lock timeout must be positive")
	}
	if !strings.EqualFold(c.Log.Format, "text") && !strings.EqualFold(c.Log.Format, "json") {
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// StorageOptions converts the storage section.
func (c Config) StorageOptions() core.StorageOptions {
	return core.StorageOptions{
		Driver:      core.StorageDriver(c.Storage.Driver),
		DataDir:     c.Storage.DataDir,
		SQLitePath:  c.Storage.SQLitePath,
		PostgresDSN: c.Storage.PostgresDSN,
	}
}

// BlobConfig converts the blob section.
func (c Config) BlobConfig() blob.Config {
	return blob.Config{
		Driver: blob.Driver(c.Blob.Driver),
		Root:   c.Blob.Root,
		S3: blob.S3Config{
			Bucket:          c.Blob.S3.Bucket,
			Region:          c.Blob.S3.Region,
			Endpoint:        c.Blob.S3.Endpoint,
			PathStyle:       c.Blob.S3.PathStyle,
			AccessKeyID:     c.Blob.S3.AccessKeyID,
			SecretAccessKey: c.Blob.S3.SecretAccessKey,
		},
	}
}

// RegistryOptions returns the core options derived from the settings.
func (c Config) RegistryOptions() []core.Option {
	return []core.Option{core.WithLockTimeout(time.Duration(c.LockTimeout))}
}
