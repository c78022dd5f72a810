package models

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

const (
	DefaultMaxUploadBytes int64 = 10 << 20
	DefaultVersion              = "1.0.0"
)

var DefaultAllowedExtensions = []string{"png", "jpg", "jpeg", "webp"}

type Config struct {
	ServerAddr        string   `yaml:"server_addr"`
	DatabaseURL       string   `yaml:"database_url"`
	KafkaBroker       string   `yaml:"kafka_broker"`
	KafkaTopic        string   `yaml:"kafka_topic"`
	KafkaGroupID      string   `yaml:"kafka_group_id"`
	UploadDir         string   `yaml:"upload_dir"`
	MaxUploadBytes    int64    `yaml:"max_upload_bytes"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
	StaticDir         string   `yaml:"static_dir"`
	Version           string   `yaml:"version"`
}

// LoadConfig reads the YAML file at path, fills unset fields with defaults
// and applies PORT / DATABASE_URL from the environment when present.
func LoadConfig(path string) (*Config, error) {
	const op = "models.LoadConfig"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	cfg.applyEnv()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		c.ServerAddr = ":" + port
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.DatabaseURL = dsn
	}
}

func (c *Config) ApplyDefaults() {
	if c.ServerAddr == "" {
		c.ServerAddr = ":5050"
	}
	if c.UploadDir == "" {
		c.UploadDir = "uploads"
	}
	if c.MaxUploadBytes == 0 {
		c.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if len(c.AllowedExtensions) == 0 {
		c.AllowedExtensions = append([]string(nil), DefaultAllowedExtensions...)
	}
	for i, ext := range c.AllowedExtensions {
		c.AllowedExtensions[i] = strings.ToLower(strings.TrimPrefix(ext, "."))
	}
	if c.KafkaTopic == "" {
		c.KafkaTopic = "onion-detections"
	}
	if c.KafkaGroupID == "" {
		c.KafkaGroupID = "onion-stats-group"
	}
	if c.Version == "" {
		c.Version = DefaultVersion
	}
}

func (c *Config) Validate() error {
	if c.MaxUploadBytes < 0 {
		return fmt.Errorf("max_upload_bytes must be positive, got %d", c.MaxUploadBytes)
	}
	for _, ext := range c.AllowedExtensions {
		if ext == "" {
			return fmt.Errorf("allowed_extensions contains an empty entry")
		}
	}
	return nil
}

// KafkaEnabled reports whether detection events should be published.
func (c *Config) KafkaEnabled() bool {
	return c.KafkaBroker != ""
}
