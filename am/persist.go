package am

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/teranos/hmis/errors"
	"github.com/teranos/hmis/logger"
)

// createBackup creates rotating backups (.back1, .back2, .back3) before modifying config
func createBackup(configPath string) error {
	// Check if file exists before backing up
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil // No file to backup
	}

	// Rotate backups: .back3 -> delete, .back2 -> .back3, .back1 -> .back2, current -> .back1
	back3 := configPath + ".back3"
	back2 := configPath + ".back2"
	back1 := configPath + ".back1"

	// Delete oldest backup if exists
	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		// Log deletion failures (but don't fail config save)
		logger.Warnw("Failed to delete old config backup", logger.FieldPath, back3, logger.FieldError, err)
	}

	if _, err := os.Stat(back2); err == nil {
		if err := os.Rename(back2, back3); err != nil {
			return errors.Wrap(err, "failed to rotate .back2 to .back3")
		}
	}

	if _, err := os.Stat(back1); err == nil {
		if err := os.Rename(back1, back2); err != nil {
			return errors.Wrap(err, "failed to rotate .back1 to .back2")
		}
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}

	if err := os.WriteFile(back1, content, SecretFilePermissions); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}

	return nil
}

// Save writes cfg to path as TOML, rotating backups of the previous file.
// The file may hold passwords, so it is only readable by its owner.
func Save(cfg *Config, path string) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	return writeConfig(path, data)
}

// SetValue sets one dotted key (e.g. "database.backend") in the TOML file at
// path, keeping every other setting in that file. The raw value is stored as
// an integer or boolean when it parses as one.
func SetValue(path, key, raw string) error {
	if !knownKey(key) {
		return errors.WithHint(
			errors.Newk(errors.ErrConfiguration, "unknown setting %q", key),
			"`hmis am show` lists every setting")
	}

	config := map[string]interface{}{}
	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, &config); err != nil {
			return errors.Markf(err, errors.ErrConfiguration, "failed to parse %s", path)
		}
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to read %s", path)
	}

	parts := strings.Split(key, ".")
	section := config
	for _, p := range parts[:len(parts)-1] {
		next, ok := section[p].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			section[p] = next
		}
		section = next
	}
	section[parts[len(parts)-1]] = parseValue(raw)

	data, err := toml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	return writeConfig(path, data)
}

func writeConfig(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), DefaultDirPermissions); err != nil {
		return errors.Wrapf(err, "failed to create %s", filepath.Dir(path))
	}
	if err := createBackup(path); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}
	if err := os.WriteFile(path, data, SecretFilePermissions); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}

	// Next Load must see the change
	Reset()
	return nil
}

func parseValue(raw string) interface{} {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

func knownKey(key string) bool {
	v, err := GetViper()
	if err != nil {
		return false
	}
	for _, k := range v.AllKeys() {
		if k == key {
			return true
		}
	}
	return false
}
