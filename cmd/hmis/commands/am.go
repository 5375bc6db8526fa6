package commands

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/hmis/am"
	"github.com/teranos/hmis/display"
	"github.com/teranos/hmis/errors"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: "Manage hmis configuration",
	Long: `am - Manage hmis configuration

Configuration sources (in order of precedence):
1. Environment variables (HMIS_* prefix, e.g. HMIS_DATABASE_BACKEND)
2. Project config (am.toml in the working directory or a parent)
3. User config (~/.hmis/am.toml)
4. System config (/etc/hmis/config.toml)
5. Default values

Passwords are best supplied as HMIS_POSTGRES_PASSWORD or HMIS_MYSQL_PASSWORD.

Examples:
  hmis am show                          # Show current configuration
  hmis am show --sources                # Show where each value came from
  hmis am get database.backend          # Get one value
  hmis am set database.backend postgres # Write to ~/.hmis/am.toml
  hmis am validate                      # Validate current configuration`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the effective configuration merged from all sources. Passwords are masked.",
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a configuration value using dot notation (e.g., database.backend, report.top)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in a TOML file, keeping the file's other settings.
The user config (~/.hmis/am.toml) is written unless --file is given. The
previous file is kept as .back1 (up to .back3).`,
	Args: cobra.ExactArgs(2),
	RunE: runAmSet,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE:  runAmValidate,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where configuration is loaded from",
	Long: `Show the configuration cascade and which files were checked.

Lists all configuration files in order of precedence, lowest first, showing
which exist and which are missing.`,
	RunE: runAmWhere,
}

var (
	configFormat  string
	configSources bool
	configFile    string
)

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")
	amShowCmd.Flags().BoolVar(&configSources, "sources", false, "Show the source of every setting")
	amSetCmd.Flags().StringVar(&configFile, "file", "", "Config file to write (default ~/.hmis/am.toml)")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amSetCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	if configSources {
		return showSources()
	}

	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	red := cfg.Redacted()

	if !display.IsStructured(configFormat) {
		return errors.Newk(errors.ErrConfiguration, "unsupported format: %s (supported: toml, json, yaml)", configFormat)
	}
	if !display.ShouldOutputJSON(cmd) {
		fmt.Println("# hmis configuration")
	}
	return display.Encode(os.Stdout, red, configFormat)
}

func showSources() error {
	settings, err := am.GetConfigIntrospection()
	if err != nil {
		return err
	}

	data := pterm.TableData{{"Key", "Value", "Source", "From"}}
	for _, s := range settings {
		data = append(data, []string{s.Key, fmt.Sprint(s.Value), string(s.Source), s.SourcePath})
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return errors.Wrap(err, "failed to render settings")
	}
	fmt.Println(out)

	summary := am.GetConfigSummary()
	fmt.Printf("\n%d default, %d system, %d user, %d project, %d environment\n",
		summary[am.SourceDefault], summary[am.SourceSystem], summary[am.SourceUser],
		summary[am.SourceProject], summary[am.SourceEnvironment])
	return nil
}

func runAmGet(cmd *cobra.Command, args []string) error {
	key := args[0]

	v, err := am.GetViper()
	if err != nil {
		return err
	}
	if !v.IsSet(key) {
		return errors.Newk(errors.ErrConfiguration, "configuration key %q not found", key)
	}

	settings, err := am.GetConfigIntrospection()
	if err != nil {
		return err
	}
	for _, s := range settings {
		if s.Key == key {
			fmt.Println(s.Value)
			return nil
		}
	}
	// Section keys such as "database" print as a table
	data, err := toml.Marshal(v.Get(key))
	if err != nil {
		return errors.Wrapf(err, "failed to marshal %s", key)
	}
	fmt.Print(string(data))
	return nil
}

func runAmSet(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = am.UserConfigPath()
		if path == "" {
			return errors.WithHint(
				errors.Newk(errors.ErrConfiguration, "cannot locate the home directory"),
				"pass --file")
		}
	}

	if err := am.SetValue(path, args[0], args[1]); err != nil {
		return err
	}

	// Reject a write that leaves the configuration unusable at once
	cfg, err := am.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return errors.WithHintf(err, "the value was written to %s; the previous file is %s.back1", path, path)
	}

	pterm.Success.Printfln("%s = %s (%s)", args[0], args[1], path)
	return nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}

	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}

	conn, err := cfg.ConnectionConfig()
	if err != nil {
		return err
	}
	pterm.Success.Printfln("Configuration is valid (%s)", conn)
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	fmt.Println("Configuration files (lowest precedence first):")
	for _, f := range am.ConfigPaths() {
		status := "missing"
		if _, err := os.Stat(f.Path); err == nil {
			status = "found"
		}
		fmt.Printf("  %-8s %-7s %s\n", f.Source, status, f.Path)
	}
	fmt.Printf("  %-8s         %s_* variables\n", am.SourceEnvironment, am.EnvPrefix)
	return nil
}
