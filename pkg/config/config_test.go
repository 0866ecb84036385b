package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/edgeprint/pkg/errors"
)

func TestParse(t *testing.T) {
	data := []byte(`
[storage]
backend = "mongo"
mongo_uri = "mongodb://localhost:27017"
mongo_bucket = "jobs"

[cache]
backend = "redis"
redis_addr = "localhost:6379"
redis_db = 2
ttl = "12h"

[processing]
chunk_size = 4
time_budget = "30s"

[retry]
attempts = 5
base_delay = "250ms"

[mockup]
asset_base_url = "https://assets.example.com/mockups"
paper_color = "#f0e8d8"
`)
	c, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Storage.Backend != StorageMongo || c.Storage.MongoBucket != "jobs" || c.Storage.MongoDatabase != DefaultMongoDatabase {
		t.Errorf("storage = %+v", c.Storage)
	}
	if c.Cache.TTL.Duration != 12*time.Hour {
		t.Errorf("cache ttl = %v, want 12h", c.Cache.TTL)
	}
	if got := c.Cache.RedisURL(); got != "redis://localhost:6379/2" {
		t.Errorf("RedisURL() = %q", got)
	}
	if c.Processing.ChunkSize != 4 || c.Processing.TimeBudget.Duration != 30*time.Second {
		t.Errorf("processing = %+v", c.Processing)
	}
	if p := c.Retry.Policy(); p.Attempts != 5 || p.BaseDelay != 250*time.Millisecond {
		t.Errorf("retry policy = %+v", p)
	}
	if p := c.Mockup.Paper(); p.R != 0xf0 || p.G != 0xe8 || p.B != 0xd8 || p.A != 255 {
		t.Errorf("paper = %v", p)
	}
	if c.Server.Addr != DefaultServerAddr {
		t.Errorf("server addr = %q", c.Server.Addr)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"unknown key", "[storage]\nbackend = \"file\"\ndirectory = \"/tmp\"\n", "storage.directory"},
		{"unknown section", "[workers]\ncount = 2\n", "workers"},
		{"bad backend", "[storage]\nbackend = \"s3\"\n", "storage.backend"},
		{"mongo without uri", "[storage]\nbackend = \"mongo\"\n", "mongo_uri"},
		{"bad cache", "[cache]\nbackend = \"memcached\"\n", "cache.backend"},
		{"redis without addr", "[cache]\nbackend = \"redis\"\n", "redis_addr"},
		{"bad duration", "[processing]\ntime_budget = \"soon\"\n", "parse config"},
		{"bad colour", "[mockup]\npaper_color = \"beige\"\n", "beige"},
		{"bad url", "[mockup]\nasset_base_url = \"ftp://x\"\n", "http"},
		{"negative chunk", "[processing]\nchunk_size = -1\n", "negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil {
				t.Fatal("Parse() succeeded")
			}
			if !errors.IsValidation(err) {
				t.Errorf("error %v is not a validation error", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	// Missing default file means defaults.
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load(default) = %v", err)
	}
	if c.Storage.Backend != StorageFile || !strings.HasSuffix(c.Storage.Dir, filepath.Join("edgeprint", "store")) {
		t.Errorf("defaults = %+v", c.Storage)
	}

	// Missing explicit file is an error.
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("Load(missing explicit) succeeded")
	}

	path := filepath.Join(t.TempDir(), "edgeprint.toml")
	if err := os.WriteFile(path, []byte("[server]\naddr = \":9090\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err = Load(path)
	if err != nil {
		t.Fatalf("Load(%s) = %v", path, err)
	}
	if c.Server.Addr != ":9090" || c.Server.MaxBodyBytes != DefaultMaxBodyBytes {
		t.Errorf("server = %+v", c.Server)
	}
}

func TestPaths(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)
	t.Setenv("XDG_CACHE_HOME", base)

	p, err := DefaultPath()
	if err != nil || p != filepath.Join(base, "edgeprint", "config.toml") {
		t.Errorf("DefaultPath() = %q, %v", p, err)
	}
	d, err := CacheDir()
	if err != nil || d != filepath.Join(base, "edgeprint") {
		t.Errorf("CacheDir() = %q, %v", d, err)
	}
}
