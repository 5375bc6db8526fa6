package am

import (
	"os"
	"sort"
	"strings"

	"github.com/teranos/hmis/errors"
)

// ConfigSource represents where a configuration value came from
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceSystem      ConfigSource = "system"      // /etc/hmis/config.toml
	SourceUser        ConfigSource = "user"        // ~/.hmis/am.toml
	SourceProject     ConfigSource = "project"     // am.toml in the working tree
	SourceEnvironment ConfigSource = "environment" // HMIS_* env vars
)

// SettingInfo contains metadata about a configuration setting
type SettingInfo struct {
	Key        string       `json:"key" yaml:"key"`
	Value      interface{}  `json:"value" yaml:"value"`
	Source     ConfigSource `json:"source" yaml:"source"`
	SourcePath string       `json:"source_path,omitempty" yaml:"source_path,omitempty"` // File path or env var name
}

// SourceInfo tracks where a configuration value originated
type SourceInfo struct {
	Source ConfigSource
	Path   string
}

// sensitiveKeys are masked in introspection output
var sensitiveKeys = map[string]bool{
	"database.postgres.password": true,
	"database.mysql.password":    true,
}

// explicitEnv lists the extra variable names bound by BindSensitiveEnvVars
var explicitEnv = map[string][]string{
	"database.postgres.password": {"HMIS_POSTGRES_PASSWORD"},
	"database.mysql.password":    {"HMIS_MYSQL_PASSWORD"},
	"database.sqlite.path":       {"HMIS_DATABASE_PATH"},
	"database.backend":           {"HMIS_BACKEND"},
}

// GetConfigIntrospection returns every effective setting with the source that
// supplied it, sorted by key.
func GetConfigIntrospection() ([]SettingInfo, error) {
	v, err := GetViper()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config for introspection")
	}

	keys := v.AllKeys()
	sort.Strings(keys)

	settings := make([]SettingInfo, 0, len(keys))
	for _, key := range keys {
		info := SourceInfo{Source: SourceDefault, Path: "built-in default"}
		if si, ok := ConfigSources[key]; ok {
			info = si
		}
		if env := envOverride(key); env != "" {
			info = SourceInfo{Source: SourceEnvironment, Path: env}
		}

		value := v.Get(key)
		if sensitiveKeys[key] {
			if s, _ := value.(string); s != "" {
				value = "xxxxx"
			}
		}

		settings = append(settings, SettingInfo{
			Key:        key,
			Value:      value,
			Source:     info.Source,
			SourcePath: info.Path,
		})
	}
	return settings, nil
}

// envOverride returns the name of the environment variable setting key, if any
func envOverride(key string) string {
	names := append([]string{EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, explicitEnv[key]...)
	for _, name := range names {
		if os.Getenv(name) != "" {
			return name
		}
	}
	return ""
}

// GetConfigSummary counts effective settings by source
func GetConfigSummary() map[ConfigSource]int {
	summary := map[ConfigSource]int{}

	settings, err := GetConfigIntrospection()
	if err != nil {
		return summary
	}
	for _, s := range settings {
		summary[s.Source]++
	}
	return summary
}
