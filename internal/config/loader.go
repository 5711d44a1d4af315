package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"oidckit/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/oidckit"
	configFileName = "config.yaml"
)

// GetDefaultConfigPathOrPanic returns the user-level config directory.
func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir)
}

// LoadConfig loads config.yaml from the given directory, layered over the
// defaults. A missing file is not an error; a malformed one is.
func LoadConfig(configPath string) (Config, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			return config, nil
		}
		logging.Info("ConfigLoader", "Error loading config.yaml from %s: %s", configFilePath, err)
		return Config{}, err
	}
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return Config{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}
	applyDefaults(&config)
	logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	return config, nil
}

// applyDefaults fills zero values left by a partial config file.
func applyDefaults(c *Config) {
	if len(c.Provider.Scopes) == 0 {
		c.Provider.Scopes = DefaultScopes()
	}
	if c.Callback.Port == 0 {
		c.Callback.Port = DefaultCallbackPort
	}
	if c.Callback.TimeoutSeconds == 0 {
		c.Callback.TimeoutSeconds = DefaultCallbackTimeoutSeconds
	}
	if c.Refresh.SkewSeconds == 0 {
		c.Refresh.SkewSeconds = DefaultRefreshSkewSeconds
	}
}
