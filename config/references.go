// Copyright 2024 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
)

var (
	configDir string // Directory for configuration files
	zonesDir  string // Directory for per-zone sidecar files
)

func init() {
	if os.Geteuid() == 0 {
		configDir = "/etc/zonys"
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			panic(fmt.Sprintf("failed to get home directory: %v", err))
		}
		configDir = filepath.Join(homeDir, ".zonys")
	}

	zonesDir = filepath.Join(configDir, "zones")

	if err := EnsureDirectories(); err != nil {
		panic(fmt.Sprintf("failed to ensure configuration directories: %v", err))
	}
}

// GetConfigDir returns the appropriate configuration directory: the
// system-wide path when running as root, otherwise the user's.
func GetConfigDir() string {
	return configDir
}

// GetZonesDir returns the directory holding each zone's own
// "<uuid>.yaml" sidecar, for namespaces that don't override it.
func GetZonesDir() string {
	return zonesDir
}

// EnsureDirectories creates necessary directories if they do not exist.
func EnsureDirectories() error {
	for _, dir := range []string{configDir, zonesDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
