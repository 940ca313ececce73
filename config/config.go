// Package config loads runtime settings from the environment, an optional
// .env file and an optional YAML file, and builds the matching runtime.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/comalice/hsmx"
	"github.com/comalice/hsmx/internal/logging"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "HSMX_"

var (
	ErrParsingConfig = errors.New("failed to parse environment variables into config")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrUnknownPolicy = errors.New("unknown execution policy")
)

// Policies lists the accepted values of Config.Policy.
var Policies = []string{hsmx.PolicySync, hsmx.PolicyAsync, hsmx.PolicyObserved, hsmx.PolicyRealtime}

type Config struct {
	Policy        string        `env:"POLICY" envDefault:"async" yaml:"policy"`
	QueueCapacity int           `env:"QUEUE_CAPACITY" yaml:"queue_capacity"`
	DiscardOnStop bool          `env:"DISCARD_ON_STOP" yaml:"discard_on_stop"`
	TickPeriod    time.Duration `env:"TICK_PERIOD" envDefault:"100ms" yaml:"tick_period"`
	MetricsAddr   string        `env:"METRICS_ADDR" yaml:"metrics_addr"`

	Realtime Realtime `envPrefix:"REALTIME_" yaml:"realtime"`
	Log      Log      `envPrefix:"LOG_" yaml:"log"`
}

// Realtime holds the worker thread settings of the realtime policy.
type Realtime struct {
	CPUs     []int `env:"CPUS" envSeparator:"," yaml:"cpus"`
	Priority int   `env:"PRIORITY" yaml:"priority"`
	Nice     int   `env:"NICE" yaml:"nice"`
	Strict   bool  `env:"STRICT" yaml:"strict"`
}

type Log struct {
	Level  string `env:"LEVEL" envDefault:"info" yaml:"level"`
	Format string `env:"FORMAT" envDefault:"text" yaml:"format"`
}

// Load reads a .env file from the working directory when present, then parses
// HSMX_ prefixed environment variables.
func Load() (Config, error) {
	// Ignore errors - the .env file might not exist and that's ok
	_ = godotenv.Load()

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile loads the environment like Load and overlays the YAML file at path.
// Keys present in the file win over the environment.
func LoadFile(path string) (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("yaml unmarshal %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if !slices.Contains(Policies, c.Policy) {
		errs = append(errs, fmt.Errorf("%w %q", ErrUnknownPolicy, c.Policy))
	}
	if c.QueueCapacity < 0 {
		errs = append(errs, fmt.Errorf("%w: queue capacity %d is negative", ErrInvalidConfig, c.QueueCapacity))
	}
	if c.TickPeriod <= 0 {
		errs = append(errs, fmt.Errorf("%w: tick period %s must be positive", ErrInvalidConfig, c.TickPeriod))
	}
	if p := c.Realtime.Priority; p < 0 || p > 99 {
		errs = append(errs, fmt.Errorf("%w: realtime priority %d outside 0-99", ErrInvalidConfig, p))
	}
	if n := c.Realtime.Nice; n < -20 || n > 19 {
		errs = append(errs, fmt.Errorf("%w: nice %d outside -20..19", ErrInvalidConfig, n))
	}
	for _, cpu := range c.Realtime.CPUs {
		if cpu < 0 {
			errs = append(errs, fmt.Errorf("%w: cpu %d is negative", ErrInvalidConfig, cpu))
		}
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidConfig, err))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: log format %q", ErrInvalidConfig, c.Log.Format))
	}
	return errors.Join(errs...)
}

// Logger builds the logger described by the Log settings. A nil w means Stderr.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	return logging.New(level, c.Log.Format, w)
}
