// Package config loads the vnastore configuration: defaults, then an optional TOML file,
// then VNASTORE_* environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"vnastore/internal/blob"
	"vnastore/internal/infra/persistence/sqlite"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the resolved configuration.
type Config struct {
	Storage     Storage
	Blob        blob.Config
	Log         Log
	MetricsFile string
	TraceFile   string
}

// Storage selects the profile store backend.
type Storage struct {
	Driver      string
	SQLitePath  string
	PostgresDSN string
}

// Log configures the console logger.
type Log struct {
	Level   string
	NoColor bool
}

// Default returns the configuration used when nothing is set. Exports land next to the
// default database under the XDG data directory.
func Default() Config {
	return Config{
		Storage: Storage{Driver: DriverSQLite, SQLitePath: sqlite.DefaultPath()},
		Blob:    blob.Config{Driver: blob.DriverFilesystem, FSRoot: DefaultExportRoot()},
		Log:     Log{Level: "info"},
	}
}

// DefaultExportRoot returns the exports directory beside the default database.
func DefaultExportRoot() string {
	return filepath.Join(filepath.Dir(sqlite.DefaultPath()), "exports")
}

// DefaultPath returns $XDG_CONFIG_HOME/hp8753/vnastore.toml, falling back to ~/.config.
func DefaultPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "vnastore.toml"
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "hp8753", "vnastore.toml")
}

type fileConfig struct {
	Storage struct {
		Driver      string `toml:"driver"`
		SQLitePath  string `toml:"sqlite_path"`
		PostgresDSN string `toml:"postgres_dsn"`
	} `toml:"storage"`
	Export struct {
		Driver string `toml:"driver"`
		FSRoot string `toml:"fs_root"`
		S3     struct {
			Bucket    string `toml:"bucket"`
			Region    string `toml:"region"`
			Endpoint  string `toml:"endpoint"`
			PathStyle bool   `toml:"path_style"`
		} `toml:"s3"`
	} `toml:"export"`
	Log struct {
		Level   string `toml:"level"`
		NoColor bool   `toml:"no_color"`
	} `toml:"log"`
	MetricsFile string `toml:"metrics_file"`
	TraceFile   string `toml:"trace_file"`
}

// Load resolves the configuration. A missing file at the default location is not an error;
// a missing file that was asked for explicitly is.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); err == nil {
		if err := cfg.decodeFile(path); err != nil {
			return Config{}, err
		}
	} else if explicit {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load config %s: unknown key %s", path, undecoded[0])
	}
	setString := func(dst *string, v string, key ...string) {
		if meta.IsDefined(key...) {
			*dst = strings.TrimSpace(v)
		}
	}
	setString(&c.Storage.Driver, raw.Storage.Driver, "storage", "driver")
	setString(&c.Storage.SQLitePath, raw.Storage.SQLitePath, "storage", "sqlite_path")
	setString(&c.Storage.PostgresDSN, raw.Storage.PostgresDSN, "storage", "postgres_dsn")
	if meta.IsDefined("export", "driver") {
		c.Blob.Driver = blob.Driver(strings.TrimSpace(raw.Export.Driver))
	}
	setString(&c.Blob.FSRoot, raw.Export.FSRoot, "export", "fs_root")
	setString(&c.Blob.S3.Bucket, raw.Export.S3.Bucket, "export", "s3", "bucket")
	setString(&c.Blob.S3.Region, raw.Export.S3.Region, "export", "s3", "region")
	setString(&c.Blob.S3.Endpoint, raw.Export.S3.Endpoint, "export", "s3", "endpoint")
	if meta.IsDefined("export", "s3", "path_style") {
		c.Blob.S3.PathStyle = raw.Export.S3.PathStyle
	}
	setString(&c.Log.Level, raw.Log.Level, "log", "level")
	if meta.IsDefined("log", "no_color") {
		c.Log.NoColor = raw.Log.NoColor
	}
	setString(&c.MetricsFile, raw.MetricsFile, "metrics_file")
	setString(&c.TraceFile, raw.TraceFile, "trace_file")
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(dst *string, name string) {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			*dst = v
		}
	}
	boolean := func(dst *bool, name string) error {
		v := strings.TrimSpace(getenv(name))
		if v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = b
		return nil
	}
	str(&c.Storage.Driver, "VNASTORE_STORAGE_DRIVER")
	str(&c.Storage.SQLitePath, "VNASTORE_SQLITE_PATH")
	str(&c.Storage.PostgresDSN, "VNASTORE_POSTGRES_DSN")
	if v := strings.TrimSpace(getenv("VNASTORE_BLOB_DRIVER")); v != "" {
		c.Blob.Driver = blob.Driver(v)
	}
	str(&c.Blob.FSRoot, "VNASTORE_BLOB_FS_ROOT")
	str(&c.Blob.S3.Bucket, "VNASTORE_BLOB_S3_BUCKET")
	str(&c.Blob.S3.Region, "VNASTORE_BLOB_S3_REGION")
	str(&c.Blob.S3.Endpoint, "VNASTORE_BLOB_S3_ENDPOINT")
	if err := boolean(&c.Blob.S3.PathStyle, "VNASTORE_BLOB_S3_PATH_STYLE"); err != nil {
		return err
	}
	str(&c.Log.Level, "VNASTORE_LOG_LEVEL")
	if err := boolean(&c.Log.NoColor, "VNASTORE_LOG_NOCOLOR"); err != nil {
		return err
	}
	str(&c.MetricsFile, "VNASTORE_METRICS_FILE")
	str(&c.TraceFile, "VNASTORE_TRACE_FILE")
	return nil
}

// Validate rejects unknown drivers.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Blob.Driver {
	case blob.DriverFilesystem, blob.DriverS3, blob.DriverMemory:
	default:
		return fmt.Errorf("unknown export driver %q", c.Blob.Driver)
	}
	if c.Blob.Driver == blob.DriverS3 && c.Blob.S3.Bucket == "" {
		return fmt.Errorf("export driver s3 requires a bucket")
	}
	return nil
}
