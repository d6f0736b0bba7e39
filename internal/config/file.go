package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/voyagen/stalker2m3u/internal/models"
)

// fileConfig mirrors Config with YAML-friendly types. Pointers distinguish
// "absent" from an explicit zero.
type fileConfig struct {
	ServerPort        string   `yaml:"server_port"`
	DatabaseURL       string   `yaml:"database_url"`
	RedisURL          string   `yaml:"redis_url"`
	Timeout           string   `yaml:"timeout"`
	Concurrency       *int     `yaml:"concurrency"`
	Mode              string   `yaml:"mode"`
	RequestsPerSecond *float64 `yaml:"requests_per_second"`
	MaxPages          *int     `yaml:"max_pages"`
	PersistItems      *bool    `yaml:"persist_items"`
	InlinePlaylist    *bool    `yaml:"inline_playlist"`
	ConvertRateLimit  *int     `yaml:"convert_rate_limit"`
	LogLevel          string   `yaml:"log_level"`
}

// LoadFromFile loads config from a YAML file. Keys left out keep their
// defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseYAML(data)
}

func parseYAML(data []byte) (*Config, error) {
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	c := Default()
	if f.ServerPort != "" {
		c.ServerPort = f.ServerPort
	}
	c.DatabaseURL = f.DatabaseURL
	c.RedisURL = f.RedisURL
	if f.Timeout != "" {
		d, err := time.ParseDuration(f.Timeout)
		if err != nil {
			return nil, fmt.Errorf("config: timeout: %w", err)
		}
		c.Timeout = d
	}
	if f.Concurrency != nil {
		c.Concurrency = *f.Concurrency
	}
	if f.Mode != "" {
		c.Mode = models.EnumerationMode(f.Mode)
	}
	if f.RequestsPerSecond != nil {
		c.RequestsPerSecond = *f.RequestsPerSecond
	}
	if f.MaxPages != nil {
		c.MaxPages = *f.MaxPages
	}
	if f.PersistItems != nil {
		c.PersistItems = *f.PersistItems
	}
	if f.InlinePlaylist != nil {
		c.InlinePlaylist = *f.InlinePlaylist
	}
	if f.ConvertRateLimit != nil {
		c.ConvertRateLimit = *f.ConvertRateLimit
	}
	if f.LogLevel != "" {
		c.LogLevel = f.LogLevel
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
