// Package config loads edgeprint configuration from a TOML file.
//
// Every value has a default, so a missing file is equivalent to an empty
// one. Unknown keys are rejected so that typos do not silently fall back
// to defaults.
//
//	[storage]
//	backend = "mongo"
//	mongo_uri = "mongodb://localhost:27017"
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//
//	[processing]
//	chunk_size = 1
//	time_budget = "50s"
package config

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/edgeprint/pkg/errors"
	"github.com/matzehuels/edgeprint/pkg/retry"
	"github.com/matzehuels/edgeprint/pkg/slice"
)

// appName names the XDG subdirectories.
const appName = "edgeprint"

// Storage backends.
const (
	StorageFile  = "file"
	StorageMongo = "mongo"
)

// Cache backends.
const (
	CacheNone  = "none"
	CacheFile  = "file"
	CacheRedis = "redis"
)

// Defaults.
const (
	DefaultMongoDatabase  = "edgeprint"
	DefaultServerAddr     = ":8080"
	DefaultMaxBodyBytes   = 256 << 20
	DefaultRequestTimeout = 5 * time.Minute
)

// Duration is a time.Duration written as a string such as "1m30s".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the full configuration.
type Config struct {
	Storage    Storage    `toml:"storage"`
	Cache      Cache      `toml:"cache"`
	Processing Processing `toml:"processing"`
	Retry      Retry      `toml:"retry"`
	Mockup     Mockup     `toml:"mockup"`
	Server     Server     `toml:"server"`
}

// Storage selects the blob store.
type Storage struct {
	Backend       string `toml:"backend"`
	Dir           string `toml:"dir"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
	MongoBucket   string `toml:"mongo_bucket"`
}

// Cache selects the artifact cache.
type Cache struct {
	Backend   string   `toml:"backend"`
	Dir       string   `toml:"dir"`
	RedisAddr string   `toml:"redis_addr"`
	RedisDB   int      `toml:"redis_db"`
	TTL       Duration `toml:"ttl"`

	// KeyPrefix scopes every key, so environments can share one Redis.
	KeyPrefix string `toml:"key_prefix"`
}

// RedisURL returns the connection URL for the Redis backend.
func (c Cache) RedisURL() string {
	addr := c.RedisAddr
	if !strings.Contains(addr, "://") {
		addr = "redis://" + addr
	}
	return fmt.Sprintf("%s/%d", strings.TrimSuffix(addr, "/"), c.RedisDB)
}

// Processing tunes the pipeline.
type Processing struct {
	ChunkSize         int      `toml:"chunk_size"`
	TimeBudget        Duration `toml:"time_budget"`
	PixelsPerPoint    float64  `toml:"pixels_per_point"`
	ParallelDownloads int      `toml:"parallel_downloads"`
}

// Retry bounds retries of storage and network calls.
type Retry struct {
	Attempts  int      `toml:"attempts"`
	BaseDelay Duration `toml:"base_delay"`
}

// Policy returns the retry policy.
func (r Retry) Policy() retry.Policy {
	return retry.Policy{Attempts: r.Attempts, BaseDelay: r.BaseDelay.Duration}
}

// Mockup configures the preview renderer.
type Mockup struct {
	AssetBaseURL string `toml:"asset_base_url"`
	Template     string `toml:"template"`
	PaperColor   string `toml:"paper_color"`
}

// Paper returns the parsed paper colour, or the zero colour when unset.
func (m Mockup) Paper() color.NRGBA {
	if m.PaperColor == "" {
		return color.NRGBA{}
	}
	c, _ := slice.ParseColor(m.PaperColor)
	return c
}

// Server configures the HTTP API.
type Server struct {
	Addr           string   `toml:"addr"`
	MaxBodyBytes   int64    `toml:"max_body_bytes"`
	RequestTimeout Duration `toml:"request_timeout"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.SetDefaults()
	return c
}

// Parse decodes TOML data, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var c Config
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown config keys: %s", strings.Join(keys, ", "))
	}
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads the file at path. A missing file yields the defaults only
// when path is the default location.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Default(), nil
		}
		path = p
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read config %s", path)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "config %s", path)
	}
	return c, nil
}

// SetDefaults fills zero values. Pipeline values left at zero are
// defaulted by the pipeline itself.
func (c *Config) SetDefaults() {
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageFile
	}
	if c.Storage.Dir == "" {
		if dir, err := DataDir(); err == nil {
			c.Storage.Dir = filepath.Join(dir, "store")
		}
	}
	if c.Storage.MongoDatabase == "" {
		c.Storage.MongoDatabase = DefaultMongoDatabase
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheFile
	}
	if c.Cache.Dir == "" {
		if dir, err := CacheDir(); err == nil {
			c.Cache.Dir = dir
		}
	}
	if c.Retry.Attempts == 0 {
		c.Retry.Attempts = retry.DefaultAttempts
	}
	if c.Retry.BaseDelay.Duration == 0 {
		c.Retry.BaseDelay.Duration = retry.DefaultBaseDelay
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.Server.RequestTimeout.Duration == 0 {
		c.Server.RequestTimeout.Duration = DefaultRequestTimeout
	}
}

// Validate checks enum values and required fields.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case StorageFile:
		if c.Storage.Dir == "" {
			return errors.New(errors.ErrCodeInvalidInput, "storage.dir is required for the file backend")
		}
	case StorageMongo:
		if c.Storage.MongoURI == "" {
			return errors.New(errors.ErrCodeInvalidInput, "storage.mongo_uri is required for the mongo backend")
		}
	default:
		return errors.New(errors.ErrCodeInvalidInput, "invalid storage.backend: %q (must be file or mongo)", c.Storage.Backend)
	}

	switch c.Cache.Backend {
	case CacheNone, CacheFile:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return errors.New(errors.ErrCodeInvalidInput, "cache.redis_addr is required for the redis backend")
		}
	default:
		return errors.New(errors.ErrCodeInvalidInput, "invalid cache.backend: %q (must be none, file, or redis)", c.Cache.Backend)
	}

	if c.Processing.ChunkSize < 0 || c.Processing.ParallelDownloads < 0 || c.Processing.PixelsPerPoint < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "processing values must not be negative")
	}
	if c.Retry.Attempts < 1 {
		return errors.New(errors.ErrCodeInvalidInput, "retry.attempts must be at least 1, got %d", c.Retry.Attempts)
	}
	if c.Mockup.PaperColor != "" {
		if _, err := slice.ParseColor(c.Mockup.PaperColor); err != nil {
			return err
		}
	}
	if c.Mockup.AssetBaseURL != "" {
		if err := errors.ValidateURL(c.Mockup.AssetBaseURL); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Paths
// =============================================================================

// DefaultPath returns $XDG_CONFIG_HOME/edgeprint/config.toml.
func DefaultPath() (string, error) {
	dir, err := xdgDir("XDG_CONFIG_HOME", ".config")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// CacheDir returns the cache directory using XDG standard (~/.cache/edgeprint/).
func CacheDir() (string, error) {
	return xdgDir("XDG_CACHE_HOME", ".cache")
}

// DataDir returns the data directory using XDG standard (~/.local/share/edgeprint/).
func DataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func xdgDir(env, fallback string) (string, error) {
	if base := os.Getenv(env); base != "" {
		return filepath.Join(base, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fallback, appName), nil
}
