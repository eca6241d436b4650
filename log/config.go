package log

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config describes the content of a log config file.
//
// Example:
//
//	level: info
//	format: text
//	loggers:
//	  race.engine: debug
type Config struct {
	Level   string            `yaml:"level"`
	Format  string            `yaml:"format"`
	Filter  string            `yaml:"filter"` // raw zapfilter rules, appended as is
	Loggers map[string]string `yaml:"loggers"`
}

func LoadConfig(file string) (*Config, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{Level: "info", Format: "json"}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse log config: %w", err)
	}
	return cfg, nil
}

// Rules converts the config into zapfilter rules.
// Named loggers get their own level, everything else uses the global level.
func (c *Config) Rules() string {
	level := c.Level
	if level == "" {
		level = "info"
	}
	names := make([]string, 0, len(c.Loggers))
	for k := range c.Loggers {
		names = append(names, k)
	}
	slices.Sort(names)

	// rules are or'ed, so a named logger can only be more verbose than the global level
	rules := make([]string, 0, len(names)+2)
	rules = append(rules, fmt.Sprintf("%s+:*", level))
	for _, name := range names {
		rules = append(rules, fmt.Sprintf("%s+:%s*", c.Loggers[name], name))
	}
	if c.Filter != "" {
		rules = append(rules, c.Filter)
	}
	return strings.Join(rules, " ")
}

func (c *Config) NewLogger(writer io.Writer, opts ...Option) (*Logger, error) {
	level, err := ParseLevel(c.Level)
	if err != nil {
		level = InfoLevel
	}
	return NewWithFilter(writer, level, c.Format, c.Rules(), opts...)
}
