// Package config loads the optional YAML run configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/rtm0/gridquery/internal/extract"
	"github.com/rtm0/gridquery/internal/grid"
	"github.com/rtm0/gridquery/internal/match"
	"github.com/rtm0/gridquery/internal/query"
)

// Duration is a time.Duration written as "3h", "90m", ...
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Config is the complete run configuration.
type Config struct {
	Grid    string   `yaml:"grid"`
	Queries string   `yaml:"queries"`
	Columns []string `yaml:"columns,omitempty"`
	Output  string   `yaml:"output"`
	Format  string   `yaml:"format,omitempty"`

	DistanceLimit float64  `yaml:"distance_limit"`
	TimeLimit     Duration `yaml:"time_limit"`
	// ForecastIndex selects one forecast/ensemble slot; -1 averages them.
	ForecastIndex int             `yaml:"forecast_index"`
	LonOffset     float64         `yaml:"lon_offset"`
	Ignore        []string        `yaml:"ignore"`
	Dimensions    grid.Dimensions `yaml:"dimensions"`
	Progress      Duration        `yaml:"progress"`

	VM  VMConfig  `yaml:"victoria_metrics,omitempty"`
	Log LogConfig `yaml:"log,omitempty"`
}

// VMConfig enables exporting the table to Victoria Metrics when InsertURL
// is set.
type VMConfig struct {
	InsertURL     string `yaml:"insert_url"`
	MetricPrefix  string `yaml:"metric_prefix"`
	Concurrency   int    `yaml:"concurrency"`
	RecsPerInsert int    `yaml:"recs_per_insert"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Columns:       query.DefaultColumns,
		Output:        "CDS_data.csv",
		DistanceLimit: match.DefaultDistanceLimit,
		TimeLimit:     Duration(match.DefaultTimeWindow),
		ForecastIndex: extract.AllMembers,
		Ignore:        query.DefaultIgnore,
		Dimensions:    grid.DefaultDimensions(),
		Progress:      Duration(5 * time.Second),
		VM: VMConfig{
			MetricPrefix:  "gridquery",
			Concurrency:   4,
			RecsPerInsert: 500,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads a YAML file over the defaults; keys absent from the file keep
// their default values.
func Load(filename string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.UnmarshalStrict(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("%s: %w", filename, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.DistanceLimit < 0 {
		return fmt.Errorf("distance limit %v is negative", c.DistanceLimit)
	}
	if c.TimeLimit < 0 {
		return fmt.Errorf("time limit %v is negative", time.Duration(c.TimeLimit))
	}
	if c.ForecastIndex < extract.AllMembers {
		return fmt.Errorf("forecast index %d: use %d for all members", c.ForecastIndex, extract.AllMembers)
	}
	return nil
}

// Engine returns the engine configuration. The grid loader normalises time
// axes to Unix seconds, so the time window is converted to seconds.
func (c Config) Engine() query.Config {
	return query.Config{
		Policy:           match.NewPolicy(c.DistanceLimit, time.Duration(c.TimeLimit), time.Second),
		Ignore:           c.Ignore,
		ForecastIndex:    c.ForecastIndex,
		ProgressInterval: time.Duration(c.Progress),
	}
}
