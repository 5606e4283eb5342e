package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
	StorageMemory = "memory"

	RemoteNone      = "none"
	RemoteMemory    = "memory"
	RemoteFirestore = "firestore"
)

// Config models taskboard.yml.
type Config struct {
	Storage struct {
		Backend     string `yaml:"backend"`
		RedisAddr   string `yaml:"redis_addr"`
		RedisPrefix string `yaml:"redis_prefix"`
	} `yaml:"storage"`
	Remote struct {
		Backend         string `yaml:"backend"`
		ProjectID       string `yaml:"project_id"`
		CredentialsFile string `yaml:"credentials_file"`
	} `yaml:"remote"`
	Auth struct {
		UserID    string `yaml:"user_id"`
		JWTSecret string `yaml:"jwt_secret"`
		Firebase  bool   `yaml:"firebase"`
	} `yaml:"auth"`
	Notifications struct {
		WebhookURL     string `yaml:"webhook_url"`
		WebhookSecret  string `yaml:"webhook_secret"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		ReminderHour   int    `yaml:"reminder_hour"`
	} `yaml:"notifications"`
	Server struct {
		Addr      string `yaml:"addr"`
		BasePath  string `yaml:"base_path"`
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"server"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create it with tb config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns Default() if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case StorageSQLite, StorageMemory:
	case StorageRedis:
		if strings.TrimSpace(c.Storage.RedisAddr) == "" {
			return fmt.Errorf("config.storage.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("config.storage.backend must be one of %s, %s, %s", StorageSQLite, StorageRedis, StorageMemory)
	}
	switch c.Remote.Backend {
	case RemoteNone, RemoteMemory:
	case RemoteFirestore:
		if strings.TrimSpace(c.Remote.ProjectID) == "" && strings.TrimSpace(c.Remote.CredentialsFile) == "" {
			return fmt.Errorf("config.remote needs project_id or credentials_file for firestore")
		}
	default:
		return fmt.Errorf("config.remote.backend must be one of %s, %s, %s", RemoteNone, RemoteMemory, RemoteFirestore)
	}
	if c.Auth.Firebase && c.Remote.Backend != RemoteFirestore {
		return fmt.Errorf("config.auth.firebase requires the firestore remote backend")
	}
	if c.Notifications.TimeoutSeconds < 0 {
		return fmt.Errorf("config.notifications.timeout_seconds must not be negative")
	}
	if h := c.Notifications.ReminderHour; h < 0 || h > 23 {
		return fmt.Errorf("config.notifications.reminder_hour must be between 0 and 23")
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "taskboard.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Missing keys keep
// their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `storage:
  backend: sqlite
  redis_prefix: "taskboard:"

remote:
  backend: none

auth:
  user_id: ""
  firebase: false

notifications:
  timeout_seconds: 5
  reminder_hour: 9

server:
  addr: 127.0.0.1:8080
  base_path: /v0
`
