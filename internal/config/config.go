package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

//go:embed data/default_config.toml
var defaultConfigTOML string

// Manager handles configuration loading and management
type Manager struct {
	v      *viper.Viper
	cfg    *Config
	logger *slog.Logger
}

// NewManager creates a new configuration manager with default settings
func NewManager() *Manager {
	v := viper.New()

	// alias for easier API key management
	v.RegisterAlias("mistral-key", "mistral.api_key")

	// bind the API key to its conventional environment variable
	_ = v.BindEnv("mistral.api_key", "MISTRAL_API_KEY")
	_ = v.BindEnv("mistral.base_url", "MISTRAL_BASE_URL")

	return &Manager{
		v:   v,
		cfg: &Config{}, // defaults loaded from embedded TOML in Load()
	}
}

// WithLogger sets the logger for the configuration manager
func (m *Manager) WithLogger(logger *slog.Logger) *Manager {
	m.logger = logger
	return m
}

// Load loads configuration from the specified TOML file, merging with defaults
func (m *Manager) Load(configPath string) error {
	if m.logger != nil {
		m.logger.Debug("Attempting to load config file", "path", configPath)
	}

	m.v.SetConfigType("toml")

	// load defaults from embedded TOML
	if err := m.v.ReadConfig(strings.NewReader(defaultConfigTOML)); err != nil {
		return fmt.Errorf("failed to load embedded defaults: %w", err)
	}

	m.v.SetConfigFile(configPath)

	// merge user config file over defaults
	err := m.v.MergeInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		var pathError *os.PathError
		if !errors.As(err, &configFileNotFoundError) && !errors.As(err, &pathError) {
			return err
		}
		if pathError != nil && !os.IsNotExist(pathError) {
			return err
		}
		// file doesn't exist; keep the path so init can write to it later
		if m.logger != nil {
			m.logger.Debug("Config file not found", "path", configPath)
		}
	} else if m.logger != nil {
		m.logger.Info("Configuration loaded successfully", "path", m.v.ConfigFileUsed())
	}

	if err := m.v.Unmarshal(&m.cfg); err != nil {
		return err
	}

	return nil
}

// Save writes the current configuration to the config file, creating parent
// directories as needed.
func (m *Manager) Save() error {
	configPath := m.v.ConfigFileUsed()
	if configPath == "" {
		return fmt.Errorf("no config file path set")
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := m.v.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	if m.logger != nil {
		m.logger.Info("Configuration saved", "path", configPath)
	}

	return nil
}

// Config returns the loaded configuration
func (m *Manager) Config() *Config {
	return m.cfg
}

// Viper returns the underlying viper instance for direct key access
func (m *Manager) Viper() *viper.Viper {
	return m.v
}
