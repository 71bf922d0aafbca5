package config

/*
ulpfilter — fast filter for url:login:pass credential lists in Go
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix namespaces every environment override, e.g. ULPFILTER_WORKERS.
	EnvPrefix = "ULPFILTER"
	// DotEnvFile is loaded from the working directory before the environment is read.
	DotEnvFile = ".env"

	// DefaultOutputPath is the merged output file.
	DefaultOutputPath = "filtered_output.txt"
	// DefaultBatchSize is the number of lines a worker drains from the input queue at once.
	DefaultBatchSize = 100
	// DefaultDedupShards is the number of independently locked duplicate-set shards.
	DefaultDedupShards = 16
	// DefaultProgressInterval is how often the progress line is refreshed.
	DefaultProgressInterval = 2 * time.Second
	// DefaultLogLevel is the logrus level used when none is configured.
	DefaultLogLevel = "info"
)

// Settings are the process-level knobs. They come from command-line flags, ULPFILTER_*
// environment variables and .env, in that order of precedence.
type Settings struct {
	ConfigPath       string        `mapstructure:"config"`
	OutputPath       string        `mapstructure:"output"`
	Root             string        `mapstructure:"root"`
	Workers          int           `mapstructure:"workers"`
	BatchSize        int           `mapstructure:"batch"`
	QueueCapacity    int           `mapstructure:"queue-capacity"`
	DedupShards      int           `mapstructure:"dedup-shards"`
	LogLevel         string        `mapstructure:"log-level"`
	Progress         bool          `mapstructure:"progress"`
	ProgressInterval time.Duration `mapstructure:"progress-interval"`
	MetricsFile      string        `mapstructure:"metrics-file"`
	PinWorkers       bool          `mapstructure:"pin-workers"`
}

// LoadSettings resolves Settings. flags may be nil, in which case only defaults, .env and the
// environment are consulted.
func LoadSettings(flags *pflag.FlagSet) (*Settings, error) {
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", DotEnvFile, err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	var s Settings
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	))
	if err := v.Unmarshal(&s, hook); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("config", DefaultConfigPath)
	v.SetDefault("output", DefaultOutputPath)
	v.SetDefault("root", ".")
	v.SetDefault("workers", 0)
	v.SetDefault("batch", DefaultBatchSize)
	v.SetDefault("queue-capacity", 0)
	v.SetDefault("dedup-shards", DefaultDedupShards)
	v.SetDefault("log-level", DefaultLogLevel)
	v.SetDefault("progress", true)
	v.SetDefault("progress-interval", DefaultProgressInterval.String())
	v.SetDefault("metrics-file", "")
	v.SetDefault("pin-workers", false)
}

// Validate rejects settings the pipeline cannot run with.
func (s *Settings) Validate() error {
	if err := ValidateLogLevel(s.LogLevel); err != nil {
		return err
	}
	if s.ConfigPath == "" {
		return errors.New("config path must not be empty")
	}
	if s.OutputPath == "" {
		return errors.New("output path must not be empty")
	}
	if s.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", s.Workers)
	}
	if s.BatchSize <= 0 {
		return fmt.Errorf("batch must be > 0, got %d", s.BatchSize)
	}
	if s.QueueCapacity < 0 {
		return fmt.Errorf("queue-capacity must be >= 0, got %d", s.QueueCapacity)
	}
	if s.DedupShards <= 0 {
		return fmt.Errorf("dedup-shards must be > 0, got %d", s.DedupShards)
	}
	if s.ProgressInterval <= 0 {
		return fmt.Errorf("progress-interval must be positive, got %s", s.ProgressInterval)
	}
	return nil
}

// ValidateLogLevel ensures the user-provided log level matches the supported set.
func ValidateLogLevel(level string) error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(level)] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", level)
	}
	return nil
}
