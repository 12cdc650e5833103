// Package config loads htmd command configuration from YAML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jcorbin/htmd"
	"github.com/jcorbin/htmd/plugins"
)

// FileName is the name of the configuration file found by Find.
const FileName = ".htmd.yaml"

// Config is the htmd command configuration.
type Config struct {
	Origin   string `yaml:"origin" validate:"omitempty,url"`
	Strategy string `yaml:"strategy" validate:"omitempty,oneof=minimal minimal-from-first-header"`

	Include []string `yaml:"include" validate:"dive,required"`
	Exclude []string `yaml:"exclude" validate:"dive,required"`

	Frontmatter  bool     `yaml:"frontmatter"`
	Meta         []string `yaml:"meta"`
	Readability  bool     `yaml:"readability"`
	MinScore     float64  `yaml:"min_score" validate:"gte=0"`
	Headings     bool     `yaml:"headings"`
	DebugMarkers bool     `yaml:"debug_markers"`

	ChunkSize  int     `yaml:"chunk_size" validate:"gte=0"`
	MinDensity float64 `yaml:"min_density" validate:"gte=0"`
	MaxBuffer  int     `yaml:"max_buffer" validate:"gte=0"`
	Jobs       int     `yaml:"jobs" validate:"gte=0,lte=256"`

	Serve Serve `yaml:"serve"`
}

// Serve configures the conversion server.
type Serve struct {
	Addr    string `yaml:"addr" validate:"omitempty,hostname_port"`
	MaxBody int64  `yaml:"max_body" validate:"gte=0"`
}

// Default returns the configuration used absent any file or flags.
func Default() Config {
	return Config{
		ChunkSize: htmd.DefaultChunkSize,
		Serve: Serve{
			Addr:    ":8080",
			MaxBody: 32 << 20,
		},
	}
}

var validate = validator.New()

// Validate checks field constraints, returning validator.ValidationErrors.
func (c *Config) Validate() error { return validate.Struct(c) }

// Find looks for FileName in dir and every parent directory of it, returning
// the path of the first one found, or "" if there is none.
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		path := filepath.Join(dir, FileName)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// Load reads the named configuration file over Default values, and validates
// the result. Unknown fields are an error.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	cfg, err := Read(f)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Read parses configuration over Default values, and validates the result.
func Read(r io.Reader) (Config, error) {
	cfg := Default()
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, err
	}
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Options builds conversion options, constructing fresh plugins.
func (c *Config) Options(log *slog.Logger) (htmd.Options, error) {
	opts := htmd.Options{
		Origin:       c.Origin,
		DebugMarkers: c.DebugMarkers,
		Logger:       log,
	}
	strategy, err := htmd.ParseStrategy(c.Strategy)
	if err != nil {
		return htmd.Options{}, err
	}
	opts.Strategy = strategy

	if len(c.Include) > 0 || len(c.Exclude) > 0 {
		f, err := plugins.NewFilter(plugins.FilterOptions{Include: c.Include, Exclude: c.Exclude})
		if err != nil {
			return htmd.Options{}, err
		}
		opts.Plugins = append(opts.Plugins, f)
	}
	if c.Frontmatter {
		opts.Plugins = append(opts.Plugins, plugins.NewFrontmatter(plugins.FrontmatterOptions{Meta: c.Meta}))
	}
	if c.Readability {
		opts.Plugins = append(opts.Plugins, plugins.NewReadability(plugins.ReadabilityOptions{MinScore: c.MinScore}))
	}
	if c.Headings {
		opts.Plugins = append(opts.Plugins, plugins.NewHeadings())
	}
	return opts, nil
}

// StreamOptions builds streaming options.
func (c *Config) StreamOptions() htmd.StreamOptions {
	return htmd.StreamOptions{
		ChunkSize:       c.ChunkSize,
		MinDensityScore: c.MinDensity,
		MaxBufferSize:   c.MaxBuffer,
	}
}
