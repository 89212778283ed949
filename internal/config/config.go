package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Version string       `yaml:"version" json:"version"`
	Server  ServerConfig `yaml:"server" json:"server"`
	Engine  Engine       `yaml:"engine" json:"engine"`
}

type ServerConfig struct {
	Addr    string `yaml:"addr" json:"addr"`
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// ExpandDays is the default horizon for expansion spans when a task
	// carries no dates of its own.
	ExpandDays int `yaml:"expand_days" json:"expand_days"`
}

func (s *ServerConfig) ApplyDefaults() {
	if s.Addr == "" {
		s.Addr = ":8420"
	}
	if s.DataDir == "" {
		s.DataDir = "data"
	}
	if s.ExpandDays <= 0 {
		s.ExpandDays = 90
	}
}

func (c *Config) ApplyDefaults() {
	c.Server.ApplyDefaults()
	c.Engine.ApplyDefaults()
}

func Default() *Config {
	var c Config
	c.ApplyDefaults()
	return &c
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.ApplyDefaults()
	return &c, nil
}
