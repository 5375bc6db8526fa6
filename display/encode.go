// Package display writes command results as JSON, YAML or TOML.
package display

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/teranos/hmis/errors"
)

// Structured formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

// Formats lists every format Encode accepts.
var Formats = []string{FormatJSON, FormatYAML, FormatTOML}

// Encode writes v to w in format, matched case-insensitively.
// JSON is indented for people; pipe through jq for compact output.
func Encode(w io.Writer, v interface{}, format string) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(v), "failed to encode JSON")
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return errors.Wrap(err, "failed to encode YAML")
		}
		return errors.Wrap(enc.Close(), "failed to encode YAML")
	case FormatTOML:
		return errors.Wrap(toml.NewEncoder(w).Encode(v), "failed to encode TOML")
	default:
		return errors.WithHintf(
			errors.Newk(errors.ErrConfiguration, "unsupported format %q", format),
			"use one of %s", strings.Join(Formats, ", "))
	}
}

// IsStructured reports whether Encode accepts format.
func IsStructured(format string) bool {
	f := strings.ToLower(format)
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}
