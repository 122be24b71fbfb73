package core

import (
	"fmt"
	"os"
	"time"

	"github.com/jo-hoe/leafdoctor/internal/backend/preprocessing"
	"github.com/jo-hoe/leafdoctor/internal/backend/session"
	"github.com/jo-hoe/leafdoctor/internal/common"
	"gopkg.in/yaml.v3"
)

type Model struct {
	Path         string `yaml:"path" validate:"required"`
	ImageSize    int    `yaml:"imageSize" validate:"gt=0"`
	Threads      int    `yaml:"threads" validate:"gte=0"`
	Interpreters int    `yaml:"interpreters" validate:"gte=0"`
}

type Session struct {
	Store            string        `yaml:"store" validate:"oneof=memory sqlite redis"`
	ConnectionString string        `yaml:"connectionString"`
	CookieName       string        `yaml:"cookieName" validate:"required"`
	TTL              time.Duration `yaml:"ttl" validate:"gte=0"`
	Secure           bool          `yaml:"secure"`
}

type Metrics struct {
	Enabled bool `yaml:"enabled"`
}

type ServiceConfig struct {
	Port      int     `yaml:"port" validate:"gt=0,lte=65535"`
	UploadDir string  `yaml:"uploadDir" validate:"required"`
	BodyLimit string  `yaml:"bodyLimit" validate:"required"`
	Model     Model   `yaml:"model"`
	Session   Session `yaml:"session"`
	Metrics   Metrics `yaml:"metrics"`
}

// DefaultConfig returns the settings used for every key the YAML file leaves out
func DefaultConfig() ServiceConfig {
	return ServiceConfig{
		Port:      5000,
		UploadDir: "uploads",
		BodyLimit: "10M",
		Model: Model{
			Path:         "tomato_disease_model.tflite",
			ImageSize:    preprocessing.DefaultImageSize,
			Threads:      1,
			Interpreters: 1,
		},
		Session: Session{
			Store:      session.StoreMemory,
			CookieName: "session",
		},
		Metrics: Metrics{
			Enabled: true,
		},
	}
}

// LoadConfig loads configuration from the specified YAML file
func LoadConfig(configPath string) (*ServiceConfig, error) {
	// Read the config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// Parse YAML on top of the defaults
	config := DefaultConfig()
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", configPath, err)
	}

	return &config, nil
}

func validateConfig(config *ServiceConfig) error {
	if err := common.ValidateStruct(config); err != nil {
		return err
	}
	if config.Session.Store == session.StoreRedis && config.Session.ConnectionString == "" {
		return fmt.Errorf("session store %q requires a connectionString", session.StoreRedis)
	}
	return nil
}
