package models

import "time"

// ListFormat selects how a list source is read
type ListFormat string

const (
	FormatStandard ListFormat = "standard"
	FormatHosts    ListFormat = "hosts"
)

// Config represents the main configuration
type Config struct {
	Parse  ParseConfig  `mapstructure:"parse" toml:"parse"`
	Regex  RegexConfig  `mapstructure:"regex" toml:"regex"`
	Log    LogConfig    `mapstructure:"log" toml:"log"`
	Output OutputConfig `mapstructure:"output" toml:"output"`
	Lists  []FilterList `mapstructure:"lists" toml:"lists"`
}

// ParseConfig contains line parsing settings
type ParseConfig struct {
	Debug   bool `mapstructure:"debug" toml:"debug"`     // keep raw lines on filters
	Workers int  `mapstructure:"workers" toml:"workers"` // 0 = GOMAXPROCS
}

// RegexConfig contains regex compilation settings
type RegexConfig struct {
	Backtracking bool          `mapstructure:"backtracking" toml:"backtracking"`
	MatchTimeout time.Duration `mapstructure:"match_timeout" toml:"match_timeout"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level string `mapstructure:"level" toml:"level"`
}

// OutputConfig contains compiled output settings
type OutputConfig struct {
	Dir               string `mapstructure:"dir" toml:"dir"`
	MaxFiltersPerFile int    `mapstructure:"max_filters_per_file" toml:"max_filters_per_file"`
}

// FilterList represents a single local filter list
type FilterList struct {
	Name    string     `mapstructure:"name" toml:"name"`
	Path    string     `mapstructure:"path" toml:"path"`
	Format  ListFormat `mapstructure:"format" toml:"format"`
	Enabled bool       `mapstructure:"enabled" toml:"enabled"`
}

// ParseOptions is passed to the line parser
type ParseOptions struct {
	Format ListFormat
}

// EnabledLists returns only enabled filter lists
func (c *Config) EnabledLists() []FilterList {
	var enabled []FilterList
	for _, l := range c.Lists {
		if l.Enabled {
			enabled = append(enabled, l)
		}
	}
	return enabled
}

// DefaultConfig is written by the init command
func DefaultConfig() Config {
	return Config{
		Parse: ParseConfig{Workers: 8},
		Regex: RegexConfig{MatchTimeout: 100 * time.Millisecond},
		Log:   LogConfig{Level: "info"},
		Output: OutputConfig{
			Dir:               "./output",
			MaxFiltersPerFile: 50000,
		},
		Lists: []FilterList{
			{Name: "easylist", Path: "./lists/easylist.txt", Format: FormatStandard, Enabled: true},
			{Name: "easyprivacy", Path: "./lists/easyprivacy.txt", Format: FormatStandard, Enabled: true},
			{Name: "ublock-filters", Path: "./lists/ublock-filters.txt", Format: FormatStandard, Enabled: true},
			{Name: "peter-lowe", Path: "./lists/peter-lowe-hosts.txt", Format: FormatHosts, Enabled: false},
		},
	}
}
