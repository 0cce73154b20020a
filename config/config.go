package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAddr            = ":8080"
	DefaultReplayInterval  = 5 * time.Second
	DefaultRecorderSymbol  = "BTCUSDT"
	DefaultRecorderPoll    = time.Second
	DefaultRecorderMaxRows = 600
	DefaultLogLevel        = "info"
)

type Config struct {
	Addr           string
	Data           string
	ReplayInterval time.Duration
	StateDir       string // empty: OBCHART_STATE_DIR or ./wal/flags
	Ephemeral      bool
	Setup          bool
	ConfigPath     string
	Log            LogConfig
	TLS            TLSConfig
	Recorder       RecorderConfig
}

type LogConfig struct {
	Level string
	File  string
}

type TLSConfig struct {
	Domains  []string
	CacheDir string
}

// RecorderConfig controls live depth polling.
type RecorderConfig struct {
	Enabled  bool
	Symbol   string
	Interval time.Duration
	MaxRows  int
	Output   string
}

// ConfigTmp is the raw YAML form of Config.
type ConfigTmp struct {
	Addr           string `yaml:"addr"`
	Data           string `yaml:"data"`
	ReplayInterval string `yaml:"replay_interval,omitempty"`
	StateDir       string `yaml:"state_dir,omitempty"`
	Log            struct {
		Level string `yaml:"level,omitempty"`
		File  string `yaml:"file,omitempty"`
	} `yaml:"log"`
	TLS struct {
		Domains  []string `yaml:"domains,omitempty"`
		CacheDir string   `yaml:"cache_dir,omitempty"`
	} `yaml:"tls"`
	Recorder struct {
		Enabled  bool   `yaml:"enabled"`
		Symbol   string `yaml:"symbol,omitempty"`
		Interval string `yaml:"interval,omitempty"`
		MaxRows  int    `yaml:"max_rows,omitempty"`
		Output   string `yaml:"output,omitempty"`
	} `yaml:"recorder"`
}

// Get reads the configuration from the command line and the optional YAML file.
func Get() (Config, error) {
	return Parse(flag.CommandLine, os.Args[1:])
}

// Parse reads the configuration from args. Flags given explicitly override the YAML file.
func Parse(fs *flag.FlagSet, args []string) (Config, error) {
	configPath := fs.String("config", "", "path to yaml config")
	addr := fs.String("addr", DefaultAddr, "dashboard listen address")
	data := fs.String("data", "", "snapshot rows to load at startup: JSON file path or http(s) URL")
	replayInterval := fs.Duration("replay-interval", DefaultReplayInterval, "period between replay steps")
	stateDir := fs.String("state-dir", "", "directory of the first-use flags log")
	setup := fs.Bool("setup", false, "run the interactive configuration wizard")
	ephemeral := fs.Bool("ephemeral", false, "keep first-use flags in memory only")

	if err := fs.Parse(args); err != nil {
		return Config{}, errors.Wrap(err, "parse flags")
	}

	cfg := defaults()
	if *configPath != "" {
		var err error
		cfg, err = getYaml(*configPath)
		if err != nil {
			return Config{}, err
		}
	}
	cfg.ConfigPath = *configPath
	cfg.Setup = *setup
	cfg.Ephemeral = *ephemeral

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "data":
			cfg.Data = *data
		case "replay-interval":
			cfg.ReplayInterval = *replayInterval
		case "state-dir":
			cfg.StateDir = *stateDir
		}
	})

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		Addr:           DefaultAddr,
		ReplayInterval: DefaultReplayInterval,
		Log:            LogConfig{Level: DefaultLogLevel},
		Recorder: RecorderConfig{
			Symbol:   DefaultRecorderSymbol,
			Interval: DefaultRecorderPoll,
			MaxRows:  DefaultRecorderMaxRows,
		},
	}
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	var c ConfigTmp
	if err := yaml.Unmarshal(f, &c); err != nil {
		return Config{}, errors.Wrapf(err, "parse config %s", path)
	}

	cfg := defaults()
	if c.Addr != "" {
		cfg.Addr = c.Addr
	}
	cfg.Data = c.Data
	if c.ReplayInterval != "" {
		d, err := time.ParseDuration(c.ReplayInterval)
		if err != nil {
			return Config{}, errors.Wrapf(err, "incorrect 'replay_interval' param in yaml config: %s", c.ReplayInterval)
		}
		cfg.ReplayInterval = d
	}
	if c.StateDir != "" {
		cfg.StateDir = c.StateDir
	}

	if c.Log.Level != "" {
		cfg.Log.Level = strings.ToLower(c.Log.Level)
	}
	cfg.Log.File = c.Log.File

	cfg.TLS.Domains = c.TLS.Domains
	cfg.TLS.CacheDir = c.TLS.CacheDir

	cfg.Recorder.Enabled = c.Recorder.Enabled
	if c.Recorder.Symbol != "" {
		cfg.Recorder.Symbol = strings.ToUpper(c.Recorder.Symbol)
	}
	if c.Recorder.Interval != "" {
		d, err := time.ParseDuration(c.Recorder.Interval)
		if err != nil {
			return Config{}, errors.Wrapf(err, "incorrect 'recorder.interval' param in yaml config: %s", c.Recorder.Interval)
		}
		cfg.Recorder.Interval = d
	}
	if c.Recorder.MaxRows != 0 {
		cfg.Recorder.MaxRows = c.Recorder.MaxRows
	}
	cfg.Recorder.Output = c.Recorder.Output

	return cfg, nil
}

func (c Config) validate() error {
	if c.ReplayInterval <= 0 {
		return errors.Errorf("replay interval must be positive, got %s", c.ReplayInterval)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("unknown log level %q", c.Log.Level)
	}
	if c.Recorder.Enabled {
		if c.Recorder.Symbol == "" {
			return errors.New("recorder.symbol is required when the recorder is enabled")
		}
		if c.Recorder.Interval <= 0 {
			return errors.Errorf("recorder.interval must be positive, got %s", c.Recorder.Interval)
		}
		if c.Recorder.MaxRows < 1 {
			return errors.Errorf("recorder.max_rows must be positive, got %d", c.Recorder.MaxRows)
		}
	}
	return nil
}
