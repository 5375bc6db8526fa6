package am

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/teranos/hmis/errors"
)

// ProjectConfigName is the file looked up from the working directory upward.
const ProjectConfigName = "am.toml"

// SystemConfigPath is the lowest-precedence config file.
var SystemConfigPath = "/etc/hmis/config.toml"

var globalConfig *Config
var viperInstance *viper.Viper

// ConfigSources records, per dotted key, which file supplied the value during
// the last load. Keys absent here came from defaults or the environment.
var ConfigSources = map[string]SourceInfo{}

// Load reads the hmis configuration using Viper
func Load() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	v, err := initViper()
	if err != nil {
		return nil, err
	}

	config, err := LoadWithViper(v)
	if err != nil {
		return nil, err
	}

	globalConfig = config
	return globalConfig, nil
}

// GetViper returns the Viper instance for advanced configuration access
func GetViper() (*viper.Viper, error) {
	return initViper()
}

// LoadWithViper loads configuration using a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Markf(err, errors.ErrConfiguration, "failed to unmarshal config")
	}
	return &config, nil
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	// Set defaults but don't bind environment variables for this specific load
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Markf(err, errors.ErrConfiguration, "failed to read config file %s", configPath)
	}

	return LoadWithViper(v)
}

// Reset clears the cached configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viperInstance = nil
	ConfigSources = map[string]SourceInfo{}
}

// initViper initializes Viper with configuration sources and defaults
func initViper() (*viper.Viper, error) {
	if viperInstance != nil {
		return viperInstance, nil
	}

	v := viper.New()

	// Set up environment variable binding
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind specific sensitive configuration values to environment variables
	BindSensitiveEnvVars(v)

	// Set defaults first
	SetDefaults(v)

	// Merge config files in precedence order: system -> user -> project.
	// Environment variables still win over every file.
	if err := mergeConfigFiles(v); err != nil {
		return nil, err
	}

	viperInstance = v
	return v, nil
}

// UserConfigDir returns ~/.hmis, or "" if the home directory is unknown
func UserConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".hmis")
}

// UserConfigPath returns ~/.hmis/am.toml
func UserConfigPath() string {
	dir := UserConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "am.toml")
}

// findProjectConfig searches for am.toml by walking up the directory tree
// Returns the path to the first config file found, or empty string if none found
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		amPath := filepath.Join(dir, ProjectConfigName)
		if _, err := os.Stat(amPath); err == nil {
			return amPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root, stop searching
			break
		}
		dir = parent
	}

	return ""
}

// ConfigFile is a file that may contribute settings
type ConfigFile struct {
	Path   string
	Source ConfigSource
}

// ConfigPaths lists every file consulted, lowest precedence first, whether or
// not it exists.
func ConfigPaths() []ConfigFile {
	candidates := []ConfigFile{{SystemConfigPath, SourceSystem}}
	if user := UserConfigPath(); user != "" {
		candidates = append(candidates, ConfigFile{user, SourceUser})
	}
	if project := findProjectConfig(); project != "" && project != UserConfigPath() {
		candidates = append(candidates, ConfigFile{project, SourceProject})
	}
	return candidates
}

// mergeConfigFiles merges configuration files in the correct precedence order
// Precedence (lowest to highest): system < user < project < env vars
func mergeConfigFiles(v *viper.Viper) error {
	for _, c := range ConfigPaths() {
		if _, err := os.Stat(c.Path); err != nil {
			continue
		}

		tempViper := viper.New()
		tempViper.SetConfigFile(c.Path)
		tempViper.SetConfigType("toml")

		if err := tempViper.ReadInConfig(); err != nil {
			return errors.WithHint(
				errors.Markf(err, errors.ErrConfiguration, "failed to read config file %s", c.Path),
				"fix or remove the file; `hmis am where` lists every file consulted")
		}

		// MergeConfigMap keeps env vars above file values
		if err := v.MergeConfigMap(tempViper.AllSettings()); err != nil {
			return errors.Markf(err, errors.ErrConfiguration, "failed to merge config file %s", c.Path)
		}

		for _, key := range tempViper.AllKeys() {
			ConfigSources[key] = SourceInfo{Source: c.Source, Path: c.Path}
		}
	}
	return nil
}

// GetString returns a configuration value as string using dot notation
func GetString(key string) string {
	v, err := initViper()
	if err != nil {
		return ""
	}
	return v.GetString(key)
}
