package am

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"

	"github.com/teranos/kgraph/errors"
	"github.com/teranos/kgraph/logger"
)

// backupGenerations is how many rotated copies Save keeps.
const backupGenerations = 3

// createBackup creates rotating backups (.back1, .back2, .back3) before modifying config
func createBackup(configPath string) error {
	// Check if file exists before backing up
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil // No file to backup
	}

	// Delete oldest backup if exists
	oldest := backupPath(configPath, backupGenerations)
	if err := os.Remove(oldest); err != nil && !os.IsNotExist(err) {
		// Log deletion failures (but don't fail config save)
		logger.Warnw("Failed to delete old config backup", "path", oldest, "error", err)
	}

	// Rotate .backN-1 to .backN, down to .back1 to .back2
	for n := backupGenerations - 1; n >= 1; n-- {
		from := backupPath(configPath, n)
		if _, err := os.Stat(from); err == nil {
			if err := os.Rename(from, backupPath(configPath, n+1)); err != nil {
				return errors.Wrapf(err, "failed to rotate %s", filepath.Base(from))
			}
		}
	}

	// Copy current to .back1
	content, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}
	if err := os.WriteFile(backupPath(configPath, 1), content, 0644); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}

	return nil
}

func backupPath(configPath string, n int) string {
	return configPath + ".back" + strconv.Itoa(n)
}

// Save writes cfg to configPath as TOML, rotating up to three backups of the
// previous file.
func Save(cfg *Config, configPath string) error {
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "refusing to save invalid config")
	}
	if err := os.MkdirAll(filepath.Dir(configPath), DefaultDirPermissions); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}
	if err := createBackup(configPath); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return errors.Wrapf(err, "failed to write config %s", configPath)
	}
	return nil
}

// UserConfigPath returns ~/.kgraph/am.toml.
func UserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "could not determine home directory")
	}
	return filepath.Join(home, ".kgraph", "am.toml"), nil
}

// Defaults returns a Config holding every default value.
func Defaults() *Config {
	cfg, err := LoadWithViper(defaultViper())
	if err != nil {
		// Defaults are static; unmarshal cannot fail on them
		panic(err)
	}
	return cfg
}
