package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Store    StoreConfig    `yaml:"store"`
	Session  SessionConfig  `yaml:"session"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	Console    bool   `yaml:"console"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type UpstreamConfig struct {
	APIBase string `yaml:"api_base"`
	EventWS string `yaml:"event_ws"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type SessionConfig struct {
	Secret string `yaml:"secret"`
}

func Load(configFile string) *Config {
	c := &Config{
		Server:  ServerConfig{Port: 8080},
		Log:     LogConfig{Level: "info", Console: true, MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 30},
		Store:   StoreConfig{Path: "officetool.json"},
		Session: SessionConfig{Secret: "dev-only-secret"},
	}

	paths := []string{"etc/config-dev.yaml", "/etc/officetool/config.yaml"}
	if configFile != "" {
		paths = []string{configFile}
	}
	for _, path := range paths {
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, c)
			break
		}
	}

	envOverride(&c.Upstream.APIBase, "OFFICETOOL_API_BASE")
	envOverride(&c.Upstream.EventWS, "OFFICETOOL_EVENT_WS")
	envOverride(&c.Store.Path, "OFFICETOOL_STORE")
	envOverride(&c.Session.Secret, "OFFICETOOL_SESSION_SECRET")
	envOverride(&c.Log.Level, "LOG_LEVEL")
	envOverride(&c.Log.File, "LOG_FILE")
	envOverrideInt(&c.Server.Port, "PORT")

	return c
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
