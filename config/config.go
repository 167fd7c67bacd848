// Copyright 2024 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"github.com/stratastor/logger"
	"github.com/zonys/zonys/internal/constants"
	"gopkg.in/yaml.v3"
)

var (
	instance   *Config
	once       sync.Once
	configPath string // Tracks where the config was loaded from
)

// Config is zonys' app-wide configuration: the default namespace a bare
// "zone ..." invocation operates against, the zone sidecar directory,
// jail defaults, logging, and the rc.d service program path.
type Config struct {
	Namespace struct {
		// Default is the namespace dataset identifier used when neither
		// -n/--namespace nor ZONYS_NAMESPACE names one explicitly.
		Default string `mapstructure:"default"`
		// SidecarDir holds each zone's own "<uuid>.yaml" lineage/config
		// sidecar, sibling to (not inside) the zone's CoW-FS dataset.
		SidecarDir string `mapstructure:"sidecarDir"`
	} `mapstructure:"namespace"`

	Jail struct {
		// Defaults is loaded from the config file only; no zone or jail
		// operation reads it, so it is not merged into any jail's
		// parameters.
		Defaults map[string]any `mapstructure:"defaults"`
	} `mapstructure:"jail"`

	Logger struct {
		LogLevel     string `mapstructure:"logLevel"`
		EnableSentry bool   `mapstructure:"enableSentry"`
		SentryDSN    string `mapstructure:"sentryDSN"`
	} `mapstructure:"logger"`

	Service struct {
		// Program is the zonys binary path recorded in the rendered rc.d
		// script (zonys_program); empty disables rc.d registration.
		Program string `mapstructure:"program"`
	} `mapstructure:"service"`

	Environment string `mapstructure:"environment"`
}

// LoadConfig loads the configuration with precedence rules: explicit
// configFilePath, then ZONYS_CONFIG, then the system-wide config path.
func LoadConfig(configFilePath string) *Config {
	once.Do(func() {
		logConfig := logger.Config{LogLevel: "info"}
		l, err := logger.NewTag(logConfig, "config")
		if err != nil {
			fmt.Printf("Failed to create logger: %v\n", err)
			os.Exit(1)
		}

		viper.Reset()
		viper.SetConfigType("yaml")

		systemConfigPath := filepath.Join(GetConfigDir(), constants.ConfigFileName)

		if configFilePath != "" {
			configPath = configFilePath
		} else if envPath := os.Getenv("ZONYS_CONFIG"); envPath != "" {
			configPath = envPath
		} else {
			configPath = systemConfigPath
		}

		l.Info("Using config file", "path", configPath)

		if absPath, err := filepath.Abs(configPath); err == nil {
			configPath = absPath
		}
		viper.SetConfigFile(configPath)

		viper.SetDefault("environment", "dev")
		viper.SetDefault("namespace.default", constants.DefaultNamespace)
		viper.SetDefault("namespace.sidecarDir", filepath.Join(GetConfigDir(), "zones"))
		viper.SetDefault("logger.logLevel", "info")
		viper.SetDefault("logger.enableSentry", false)
		viper.SetDefault("logger.sentryDSN", "")
		viper.SetDefault("service.program", "")

		viper.AutomaticEnv()
		viper.SetEnvPrefix("ZONYS")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

		err = viper.ReadInConfig()
		if err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				l.Info("Config file not found, creating default at system path", "path", systemConfigPath)

				if err := os.MkdirAll(GetConfigDir(), 0755); err != nil {
					l.Error("Failed to create config directory", "err", err)
				}

				var cfg Config
				if err := viper.Unmarshal(&cfg); err != nil {
					l.Error("Failed to unmarshal default configuration", "err", err)
				}
				instance = &cfg
				configPath = systemConfigPath

				if err := SaveConfig(systemConfigPath); err != nil {
					l.Error("Failed to save default configuration", "err", err)
				}
			} else {
				l.Error("Error reading config file", "err", err)

				var cfg Config
				if err := viper.Unmarshal(&cfg); err != nil {
					l.Error("Failed to unmarshal default configuration", "err", err)
				}
				instance = &cfg
			}
		} else {
			l.Info("Config file loaded successfully", "path", viper.ConfigFileUsed())
			configPath = viper.ConfigFileUsed()

			var cfg Config
			if err := viper.Unmarshal(&cfg); err != nil {
				l.Error("Failed to parse configuration", "err", err)
			} else {
				instance = &cfg
			}
		}

		l.Debug("Loaded configuration", "config", fmt.Sprintf("%+v", instance))
	})

	return instance
}

// SaveConfig persists the current configuration to a specified path.
func SaveConfig(path string) error {
	if path == "" {
		if os.Geteuid() == 0 {
			if err := os.MkdirAll(GetConfigDir(), 0755); err != nil {
				return fmt.Errorf("failed to create system config directory: %w", err)
			}
			path = filepath.Join(GetConfigDir(), constants.ConfigFileName)
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("failed to get home directory: %w", err)
			}
			userConfigDir := filepath.Join(home, ".zonys")
			if err := os.MkdirAll(userConfigDir, 0755); err != nil {
				return fmt.Errorf("failed to create user config directory: %w", err)
			}
			path = filepath.Join(userConfigDir, constants.ConfigFileName)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configYAML, err := yaml.Marshal(instance)
	if err != nil {
		return fmt.Errorf("failed to serialize configuration: %w", err)
	}

	if err := os.WriteFile(path, configYAML, 0644); err != nil {
		return fmt.Errorf("failed to write configuration to file: %w", err)
	}

	configPath = path
	return nil
}

// GetLoadedConfigPath returns the path of the currently loaded configuration file.
func GetLoadedConfigPath() string {
	return configPath
}

// GetConfig returns the current configuration instance, loading defaults
// if nothing has been loaded yet.
func GetConfig() *Config {
	if instance == nil {
		return LoadConfig("")
	}
	return instance
}

func NewLoggerConfig(cfg *Config) logger.Config {
	if cfg == nil {
		return logger.Config{LogLevel: "info"}
	}
	return logger.Config{
		LogLevel:     cfg.Logger.LogLevel,
		EnableSentry: cfg.Logger.EnableSentry,
		SentryDSN:    cfg.Logger.SentryDSN,
	}
}
