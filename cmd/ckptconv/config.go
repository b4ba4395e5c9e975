package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const envConfigPath = "CKPTCONV_CONFIG"

// Config represents the ckptconv configuration file (~/.config/ckptconv/config.yaml).
type Config struct {
	LogLevel        string `yaml:"log_level"`
	LogFormat       string `yaml:"log_format"`
	AllowCollisions *bool  `yaml:"allow_collisions"`
}

// settings are the effective options after merging flags over the config file.
type settings struct {
	LogLevel        string
	LogFormat       string
	AllowCollisions bool
}

func configPath() string {
	if p := strings.TrimSpace(os.Getenv(envConfigPath)); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "ckptconv", "config.yaml")
}

// LoadConfig reads the config file. Returns a zero Config if the file doesn't
// exist or can't be parsed.
func LoadConfig() Config {
	return loadConfigFile(configPath())
}

func loadConfigFile(path string) Config {
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}

// resolveSettings applies config file values for every flag the user did not
// set explicitly.
func resolveSettings(c *cli.Command, cfg Config) settings {
	s := settings{
		LogLevel:        c.String(flagLogLevel),
		LogFormat:       c.String(flagLogFormat),
		AllowCollisions: c.Bool(flagAllowCollisions),
	}
	if cfg.LogLevel != "" && !c.IsSet(flagLogLevel) {
		s.LogLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet(flagLogFormat) {
		s.LogFormat = cfg.LogFormat
	}
	if cfg.AllowCollisions != nil && !c.IsSet(flagAllowCollisions) {
		s.AllowCollisions = *cfg.AllowCollisions
	}
	if c.Bool(flagDebug) {
		s.LogLevel = "debug"
	}
	return s
}
