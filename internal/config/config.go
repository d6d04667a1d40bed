// Package config loads the visio2svg configuration file.
//
// The file is TOML and every key is optional:
//
//	[tools]
//	emf2svg   = "emf2svg-conv"
//	vsd2xhtml = "vsd2xhtml"
//	vss2xhtml = "vss2xhtml"
//	timeout   = "30s"
//
//	[cache]
//	backend    = "file"   # file, redis or none
//	dir        = "~/.cache/visio2svg"
//	redis_addr = "localhost:6379"
//	redis_db   = 0
//	ttl        = "168h"
//
//	[output]
//	indent = 2
//
//	[server]
//	addr     = ":8080"
//	max_body = 33554432
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/visio2svg/pkg/cache"
	"github.com/matzehuels/visio2svg/pkg/metafile"
	"github.com/matzehuels/visio2svg/pkg/posttreat"
	"github.com/matzehuels/visio2svg/pkg/visio"
)

// AppName names the configuration and cache directories.
const AppName = "visio2svg"

// Defaults for values the file leaves unset.
const (
	DefaultTimeout = 30 * time.Second
	DefaultTTL     = 7 * 24 * time.Hour
	DefaultAddr    = ":8080"
	DefaultMaxBody = 32 << 20
)

// Duration is a time.Duration written as a string such as "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the parsed configuration file.
type Config struct {
	Tools  Tools  `toml:"tools"`
	Cache  Cache  `toml:"cache"`
	Output Output `toml:"output"`
	Server Server `toml:"server"`
}

// Tools names the external programs used for conversion.
type Tools struct {
	EMF2SVG   string   `toml:"emf2svg"`
	VSD2XHTML string   `toml:"vsd2xhtml"`
	VSS2XHTML string   `toml:"vss2xhtml"`
	Timeout   Duration `toml:"timeout"`
}

// Cache selects the cache backend.
type Cache struct {
	Backend       string   `toml:"backend"`
	Dir           string   `toml:"dir"`
	RedisAddr     string   `toml:"redis_addr"`
	RedisDB       int      `toml:"redis_db"`
	RedisPassword string   `toml:"redis_password"`
	TTL           Duration `toml:"ttl"`
}

// Output controls serialization.
type Output struct {
	Indent int `toml:"indent"`
}

// Server configures the HTTP API.
type Server struct {
	Addr    string `toml:"addr"`
	MaxBody int64  `toml:"max_body"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Tools: Tools{
			EMF2SVG:   metafile.DefaultCommand,
			VSD2XHTML: visio.DefaultDocumentCommand,
			VSS2XHTML: visio.DefaultStencilCommand,
			Timeout:   Duration{DefaultTimeout},
		},
		Cache: Cache{
			Backend: cache.BackendFile,
			TTL:     Duration{DefaultTTL},
		},
		Output: Output{Indent: posttreat.DefaultIndent},
		Server: Server{Addr: DefaultAddr, MaxBody: DefaultMaxBody},
	}
}

// Load reads the file at path over the defaults. A missing file is not an
// error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := Decode(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses TOML data into cfg, leaving keys absent from data untouched.
func Decode(data []byte, cfg *Config) error {
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// DefaultPath returns $XDG_CONFIG_HOME/visio2svg/config.toml, falling back
// to ~/.config.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName, "config.toml"), nil
}

// CacheDir returns the cache directory using XDG standard (~/.cache/visio2svg/).
func CacheDir() (string, error) {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", AppName), nil
}

// CacheOptions converts the [cache] section for cache.Open. An empty dir
// resolves to CacheDir.
func (c Config) CacheOptions() (cache.Options, error) {
	opts := cache.Options{
		Backend: c.Cache.Backend,
		Dir:     c.Cache.Dir,
		Redis: cache.RedisConfig{
			Addr:     c.Cache.RedisAddr,
			Password: c.Cache.RedisPassword,
			DB:       c.Cache.RedisDB,
		},
	}
	if (opts.Backend == "" || opts.Backend == cache.BackendFile) && opts.Dir == "" {
		dir, err := CacheDir()
		if err != nil {
			return opts, err
		}
		opts.Dir = dir
	}
	return opts, nil
}

// PipelineIndent maps the configured indent to pipeline.Options.Indent,
// where zero selects the default and any negative value compact output.
func (o Output) PipelineIndent() int {
	if o.Indent <= 0 {
		return -1
	}
	return o.Indent
}
