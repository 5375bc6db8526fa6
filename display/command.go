package display

import (
	"strings"

	"github.com/spf13/cobra"
)

// ShouldOutputJSON reports whether cmd was asked for JSON, either with a
// --json flag or with --format json.
func ShouldOutputJSON(cmd *cobra.Command) bool {
	if cmd == nil {
		return false
	}
	if jsonFlag, err := cmd.Flags().GetBool("json"); err == nil && jsonFlag {
		return true
	}
	if format, err := cmd.Flags().GetString("format"); err == nil {
		return strings.EqualFold(format, FormatJSON)
	}
	return false
}

// OutputJSON writes v as indented JSON to the command's output.
func OutputJSON(cmd *cobra.Command, v interface{}) error {
	return Encode(cmd.OutOrStdout(), v, FormatJSON)
}
