package config

import (
	"os"
	"path/filepath"

	"github.com/ariel-frischer/changeset/internal/changeset"
)

// UserConfigPath returns the path to the user-level config file.
// This follows the XDG Base Directory Specification:
// - Linux: ~/.config/changeset/config.yml
// - macOS: ~/Library/Application Support/changeset/config.yml
// - Windows: %APPDATA%\changeset\config.yml
//
// If XDG_CONFIG_HOME is set, it will be respected on Linux.
func UserConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "changeset", "config.yml"), nil
}

// ProjectConfigPath returns the path to the project-level config file.
func ProjectConfigPath(root string) string {
	return filepath.Join(root, changeset.DefaultDir, "config.yml")
}

// ProjectJSONConfigPath returns the path to the JSON form of the project config.
func ProjectJSONConfigPath(root string) string {
	return filepath.Join(root, changeset.DefaultDir, "config.json")
}
