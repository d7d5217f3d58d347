package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Transport TransportConfig `yaml:"transport"`
	Auth      AuthConfig      `yaml:"auth"`
	Gating    GatingConfig    `yaml:"gating"`
	Stats     StatsConfig     `yaml:"stats"`
	Events    EventsConfig    `yaml:"events"`
	Templates TemplatesConfig `yaml:"templates"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

// TransportConfig selects how the MCP server is exposed: "http" or "stdio".
type TransportConfig struct {
	Mode string `yaml:"mode"`
}

type AuthConfig struct {
	Enabled bool `yaml:"enabled"`
}

// GatingConfig selects phase gating: "strict" rejects work in locked phases,
// "advisory" records it.
type GatingConfig struct {
	Mode string `yaml:"mode"`
}

type StatsConfig struct {
	CacheSize int `yaml:"cache_size"`
}

type EventsConfig struct {
	Buffer   int             `yaml:"buffer"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig registers an HTTP endpoint for checklist events. An empty
// Events list subscribes to every event type.
type WebhookConfig struct {
	URL    string   `yaml:"url"`
	Events []string `yaml:"events"`
}

// TemplatesConfig points at a directory of YAML template definitions that
// are registered at startup.
type TemplatesConfig struct {
	Dir string `yaml:"dir"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "phaseline.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Transport: TransportConfig{
			Mode: "http",
		},
		Gating: GatingConfig{
			Mode: "strict",
		},
		Stats: StatsConfig{
			CacheSize: 1024,
		},
		Events: EventsConfig{
			Buffer: 256,
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("PHASELINE_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("PHASELINE_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("PHASELINE_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PHASELINE_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("PHASELINE_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("PHASELINE_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if logPath := os.Getenv("PHASELINE_LOG_PATH"); logPath != "" {
		cfg.Log.Path = logPath
	}
	if mode := os.Getenv("PHASELINE_TRANSPORT_MODE"); mode != "" {
		cfg.Transport.Mode = mode
	}
	if authStr := os.Getenv("PHASELINE_AUTH_ENABLED"); authStr != "" {
		enabled, err := strconv.ParseBool(authStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PHASELINE_AUTH_ENABLED: %w", err)
		}
		cfg.Auth.Enabled = enabled
	}
	if mode := os.Getenv("PHASELINE_GATING_MODE"); mode != "" {
		cfg.Gating.Mode = mode
	}
	if dir := os.Getenv("PHASELINE_TEMPLATES_DIR"); dir != "" {
		cfg.Templates.Dir = dir
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the server cannot start with.
func (c Config) Validate() error {
	switch c.Transport.Mode {
	case "http", "stdio":
	default:
		return fmt.Errorf("invalid transport mode %q", c.Transport.Mode)
	}
	switch c.Gating.Mode {
	case "", "strict", "advisory":
	default:
		return fmt.Errorf("invalid gating mode %q", c.Gating.Mode)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	for i, hook := range c.Events.Webhooks {
		if hook.URL == "" {
			return fmt.Errorf("webhook %d: url is required", i)
		}
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
