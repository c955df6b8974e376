package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/furechan/tempcache/cache"
	"github.com/furechan/tempcache/observe"
)

var (
	// ErrInvalid indicates a malformed setting.
	ErrInvalid = errors.New("config: invalid setting")

	// ErrMissingEnv indicates a ${VAR} reference to an unset variable.
	ErrMissingEnv = errors.New("config: missing required environment variables")
)

// Environment variables read by ApplyEnv.
const (
	EnvConfig     = "TEMPCACHE_CONFIG"
	EnvDir        = "TEMPCACHE_DIR"
	EnvName       = "TEMPCACHE_NAME"
	EnvMaxAge     = "TEMPCACHE_MAX_AGE"
	EnvSource     = "TEMPCACHE_SOURCE"
	EnvPrefix     = "TEMPCACHE_PREFIX"
	EnvSerializer = "TEMPCACHE_SERIALIZER"
	EnvLogLevel   = "TEMPCACHE_LOG"
)

// Serializers lists the names accepted in Cache.Serializer.
var Serializers = []string{"gob", "json", "zstd", "zstd+json"}

// File is the on-disk configuration.
type File struct {
	Cache   Cache   `yaml:"cache"`
	Observe Observe `yaml:"observe"`
}

// Cache holds store settings.
type Cache struct {
	Name       string   `yaml:"name,omitempty"`
	Dir        string   `yaml:"dir,omitempty"`
	MaxAge     Duration `yaml:"max_age,omitempty"`
	Source     string   `yaml:"source,omitempty"`
	Prefix     string   `yaml:"prefix,omitempty"`
	Serializer string   `yaml:"serializer,omitempty"`
	Breaker    Breaker  `yaml:"breaker,omitempty"`
}

// Breaker holds I/O breaker settings.
type Breaker struct {
	MaxFailures int      `yaml:"max_failures,omitempty"`
	Cooldown    Duration `yaml:"cooldown,omitempty"`
}

// Observe holds diagnostics settings.
type Observe struct {
	LogLevel string  `yaml:"log_level,omitempty"`
	Tracing  Tracing `yaml:"tracing,omitempty"`
	Metrics  Metrics `yaml:"metrics,omitempty"`
}

// Tracing selects a span exporter. An empty exporter disables tracing.
type Tracing struct {
	Exporter  string  `yaml:"exporter,omitempty"`
	SamplePct float64 `yaml:"sample_pct,omitempty"`
}

// Metrics selects a metrics exporter. An empty exporter disables metrics.
type Metrics struct {
	Exporter string `yaml:"exporter,omitempty"`
}

// Default returns the built-in settings. Name and Dir are left empty so that
// the store picks its own: the base of Dir, or cache.DefaultName under the
// system temporary directory.
func Default() File {
	return File{
		Cache: Cache{
			MaxAge:     Duration(cache.DefaultMaxAge),
			Serializer: "gob",
		},
		Observe: Observe{
			LogLevel: "warn",
			Tracing:  Tracing{SamplePct: 1},
		},
	}
}

// DefaultPath returns $TEMPCACHE_CONFIG, or tempcache/config.yaml under the
// user configuration directory.
func DefaultPath() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "tempcache", "config.yaml")
}

// Load reads path over the defaults. Unknown keys are rejected.
func Load(path string) (File, error) {
	f := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("%w: %s: %w", ErrInvalid, path, err)
	}
	return f, nil
}

// LoadOptional behaves like Load but returns the defaults when path is empty
// or does not exist.
func LoadOptional(path string) (File, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return f, err
}

// ApplyEnv overlays TEMPCACHE_* variables found by lookup, os.LookupEnv when
// nil. Empty values are ignored.
func (f *File) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		return v, ok && v != ""
	}
	if v, ok := get(EnvDir); ok {
		f.Cache.Dir = v
	}
	if v, ok := get(EnvName); ok {
		f.Cache.Name = v
	}
	if v, ok := get(EnvMaxAge); ok {
		d, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxAge, err)
		}
		f.Cache.MaxAge = Duration(d)
	}
	if v, ok := get(EnvSource); ok {
		f.Cache.Source = v
	}
	if v, ok := get(EnvPrefix); ok {
		f.Cache.Prefix = v
	}
	if v, ok := get(EnvSerializer); ok {
		f.Cache.Serializer = v
	}
	if v, ok := get(EnvLogLevel); ok {
		f.Observe.LogLevel = v
	}
	return nil
}

// Serializer builds the named serializer.
func Serializer(name string) (cache.Serializer, error) {
	switch name {
	case "", "gob":
		return cache.GobSerializer{}, nil
	case "json":
		return cache.JSONSerializer{}, nil
	case "zstd":
		return cache.NewZstdSerializer(nil)
	case "zstd+json":
		return cache.NewZstdSerializer(cache.JSONSerializer{})
	default:
		return nil, fmt.Errorf("%w: serializer %q (want one of %s)",
			ErrInvalid, name, strings.Join(Serializers, ", "))
	}
}

// CacheConfig converts the cache section. The directory is expanded with
// ExpandEnvStrict. The result still needs an Observer.
func (f File) CacheConfig() (cache.Config, error) {
	dir, err := ExpandEnvStrict(f.Cache.Dir)
	if err != nil {
		return cache.Config{}, fmt.Errorf("cache.dir: %w", err)
	}
	ser, err := Serializer(f.Cache.Serializer)
	if err != nil {
		return cache.Config{}, err
	}

	cfg := cache.Config{
		Name:       f.Cache.Name,
		Root:       dir,
		MaxAge:     f.Cache.MaxAge.Std(),
		Source:     f.Cache.Source,
		Prefix:     f.Cache.Prefix,
		Serializer: ser,
		Breaker: cache.BreakerConfig{
			MaxFailures: f.Cache.Breaker.MaxFailures,
			Cooldown:    f.Cache.Breaker.Cooldown.Std(),
		},
	}
	if err := cfg.Validate(); err != nil {
		return cache.Config{}, err
	}
	return cfg, nil
}

// ObserveConfig converts the observe section for service.
func (f File) ObserveConfig(service string) observe.Config {
	cfg := observe.DefaultConfig(service)
	cfg.Logging.Level = f.Observe.LogLevel
	if e := f.Observe.Tracing.Exporter; e != "" && e != "none" {
		cfg.Tracing = observe.TracingConfig{Enabled: true, Exporter: e, SamplePct: f.Observe.Tracing.SamplePct}
	}
	if e := f.Observe.Metrics.Exporter; e != "" && e != "none" {
		cfg.Metrics = observe.MetricsConfig{Enabled: true, Exporter: e}
	}
	return cfg
}
