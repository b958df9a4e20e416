package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"kvclient/internal/adapters/kvweb"
	"kvclient/internal/core/domain"
)

// Environment variables overriding the configuration file.
const (
	EnvURL          = "KVFINDER_URL"
	EnvPath         = "KVFINDER_PATH"
	EnvPollInterval = "KVFINDER_POLL_INTERVAL"
	EnvMaxAttempts  = "KVFINDER_MAX_ATTEMPTS"
	EnvVariant      = "KVFINDER_VARIANT"
	EnvOutputDir    = "KVFINDER_OUTPUT_DIR"
)

type Config struct {
	Server      Server         `yaml:"server"`
	Poll        Poll           `yaml:"poll"`
	Variant     domain.Variant `yaml:"variant"`
	OutputDir   string         `yaml:"output_dir"`
	Concurrency int            `yaml:"concurrency"`
	Verbose     bool           `yaml:"verbose"`
}

type Server struct {
	URL  string `yaml:"url"`
	Path string `yaml:"path"` // e.g. /api
}

type Poll struct {
	Interval    time.Duration `yaml:"interval"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: Server{
			URL: "http://localhost:8081",
		},
		Poll: Poll{
			Interval:    kvweb.DefaultPollInterval,
			MaxAttempts: kvweb.DefaultMaxAttempts,
		},
		Variant:     domain.VariantTOML,
		OutputDir:   "./data",
		Concurrency: 4,
	}
}

// Load reads YAML from r on top of the defaults.
func Load(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// LoadFile loads the configuration file at path; an empty path yields the
// defaults. Environment overrides are applied and the result validated.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("opening config file: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		cfg, err = Load(f)
		if err != nil {
			return Config{}, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from the environment using lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvURL); ok {
		c.Server.URL = v
	}
	if v, ok := lookup(EnvPath); ok {
		c.Server.Path = v
	}
	if v, ok := lookup(EnvPollInterval); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPollInterval, err)
		}
		c.Poll.Interval = d
	}
	if v, ok := lookup(EnvMaxAttempts); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxAttempts, err)
		}
		c.Poll.MaxAttempts = n
	}
	if v, ok := lookup(EnvVariant); ok {
		c.Variant = domain.Variant(v)
	}
	if v, ok := lookup(EnvOutputDir); ok {
		c.OutputDir = v
	}
	return nil
}

func (c Config) Validate() error {
	if c.Server.URL == "" {
		return errors.New("server.url must be set")
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive, got %s", c.Poll.Interval)
	}
	if c.Poll.MaxAttempts < 0 {
		return fmt.Errorf("poll.max_attempts must not be negative, got %d", c.Poll.MaxAttempts)
	}
	if _, err := domain.ParseVariant(string(c.Variant)); err != nil {
		return err
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	return nil
}

// ClientOptions translates the configuration into kvweb client options.
func (c Config) ClientOptions() []kvweb.Option {
	variant, _ := domain.ParseVariant(string(c.Variant))
	opts := []kvweb.Option{
		kvweb.WithPollInterval(c.Poll.Interval),
		kvweb.WithMaxAttempts(c.Poll.MaxAttempts),
		kvweb.WithReportFormat(kvweb.ReportFormatFor(variant)),
	}
	if c.Server.Path != "" {
		opts = append(opts, kvweb.WithPathSuffix(c.Server.Path))
	}
	return opts
}
