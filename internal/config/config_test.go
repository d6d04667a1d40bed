package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/visio2svg/pkg/cache"
)

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[tools]
emf2svg = "/opt/bin/emf2svg-conv"
timeout = "5s"

[cache]
backend = "redis"
redis_addr = "localhost:6379"
redis_db = 3
ttl = "1h"

[output]
indent = 4

[server]
addr = "127.0.0.1:9000"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	want := Default()
	want.Tools.EMF2SVG = "/opt/bin/emf2svg-conv"
	want.Tools.Timeout = Duration{5 * time.Second}
	want.Cache.Backend = cache.BackendRedis
	want.Cache.RedisAddr = "localhost:6379"
	want.Cache.RedisDB = 3
	want.Cache.TTL = Duration{time.Hour}
	want.Output.Indent = 4
	want.Server.Addr = "127.0.0.1:9000"

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"syntax", "[tools\n"},
		{"bad duration", "[tools]\ntimeout = \"soon\"\n"},
		{"wrong type", "[output]\nindent = \"two\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.data), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load() expected error")
			}
		})
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	path, err := DefaultPath()
	if err != nil {
		t.Fatalf("DefaultPath() error: %v", err)
	}
	if want := filepath.Join("/tmp/xdg", AppName, "config.toml"); path != want {
		t.Errorf("DefaultPath() = %q, want %q", path, want)
	}
}

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	dir, err := CacheDir()
	if err != nil {
		t.Fatalf("CacheDir() error: %v", err)
	}
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, ".cache", AppName); dir != want {
		t.Errorf("CacheDir() = %q, want %q", dir, want)
	}

	t.Setenv("XDG_CACHE_HOME", "/tmp/cache")
	dir, _ = CacheDir()
	if want := filepath.Join("/tmp/cache", AppName); dir != want {
		t.Errorf("CacheDir() with XDG_CACHE_HOME = %q, want %q", dir, want)
	}
}

func TestCacheOptions(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/cache")

	cfg := Default()
	opts, err := cfg.CacheOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Dir != filepath.Join("/tmp/cache", AppName) {
		t.Errorf("Dir = %q", opts.Dir)
	}

	cfg.Cache.Backend = cache.BackendRedis
	cfg.Cache.RedisAddr = "redis:6379"
	opts, _ = cfg.CacheOptions()
	if opts.Dir != "" {
		t.Errorf("redis backend Dir = %q, want empty", opts.Dir)
	}
	if opts.Redis.Addr != "redis:6379" {
		t.Errorf("Redis.Addr = %q", opts.Redis.Addr)
	}
}

func TestPipelineIndent(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, -1},
		{-3, -1},
		{2, 2},
		{4, 4},
	}
	for _, tt := range tests {
		if got := (Output{Indent: tt.in}).PipelineIndent(); got != tt.want {
			t.Errorf("PipelineIndent(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
