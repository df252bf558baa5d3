package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/kgraph/am"
	"github.com/teranos/kgraph/display"
	"github.com/teranos/kgraph/errors"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: "Manage kgraph configuration",
	Long: `Manage kgraph configuration ("I am")

Configuration sources (in order of precedence):
1. Environment variables (KGRAPH_* prefix)
2. Project config (./am.toml, searched upward)
3. User config (~/.kgraph/am.toml)
4. System config (/etc/kgraph/am.toml)
5. Default values

Examples:
  kgraph am show                    # Show current configuration
  kgraph am show --format json      # Show configuration in JSON format
  kgraph am get query.max_limit     # Get specific config value
  kgraph am init                    # Write defaults to ~/.kgraph/am.toml
  kgraph am where                   # Show where each setting comes from`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the current kgraph configuration from all sources",
	Args:  cobra.NoArgs,
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., database.path, query.max_limit)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	Args:  cobra.NoArgs,
	RunE:  runAmValidate,
}

var amInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to a file",
	Long: `Write every default setting to ~/.kgraph/am.toml, or to --path.
An existing file is rotated to .back1, .back2 and .back3 first.`,
	Args: cobra.NoArgs,
	RunE: runAmInit,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where configuration is loaded from",
	Long: `Show the configuration cascade, which candidate files exist, and the
source of every effective setting.`,
	Args: cobra.NoArgs,
	RunE: runAmWhere,
}

var (
	configFormat string
	initPath     string
)

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")
	amInitCmd.Flags().StringVar(&initPath, "path", "", "Destination file (default ~/.kgraph/am.toml)")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amInitCmd)
	AmCmd.AddCommand(amWhereCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}

	w := cmd.OutOrStdout()
	switch configFormat {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to JSON")
		}
		fmt.Fprintln(w, string(data))

	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to YAML")
		}
		fmt.Fprintf(w, "# kgraph configuration\n%s", string(data))

	case "toml":
		data, err := toml.Marshal(cfg)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to TOML")
		}
		fmt.Fprintf(w, "# kgraph configuration\n%s", string(data))

	default:
		return errors.InvalidStatementf("unsupported format: %s (supported: toml, json, yaml)", configFormat)
	}
	return nil
}

func runAmGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	v := am.GetViper()
	if !v.IsSet(key) {
		return errors.NotFoundf("configuration key %q not found", key)
	}
	fmt.Fprintln(cmd.OutOrStdout(), v.Get(key))
	return nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	// Load validates
	if _, err := am.Load(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}
	fmt.Fprint(cmd.OutOrStdout(), pterm.Success.Sprintln("Configuration is valid"))
	return nil
}

func runAmInit(cmd *cobra.Command, args []string) error {
	path := initPath
	if path == "" {
		var err error
		if path, err = am.UserConfigPath(); err != nil {
			return err
		}
	}
	if err := am.Save(am.Defaults(), path); err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), pterm.Success.Sprintfln("Wrote default configuration to %s", path))
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w, "Configuration cascade (later overrides earlier):")
	fmt.Fprintln(w, "  [default]      built-in defaults")
	for _, f := range am.CandidateFiles() {
		state := "missing"
		if _, err := os.Stat(f.Path); err == nil {
			state = "found"
		}
		fmt.Fprintf(w, "  [%s]%*s%s (%s)\n", f.Source, 13-len(f.Source), "", f.Path, state)
	}
	fmt.Fprintf(w, "  [environment]  %s_* variables\n\n", am.EnvPrefix)

	intro := am.GetConfigIntrospection()
	sort.Slice(intro.Settings, func(i, j int) bool { return intro.Settings[i].Key < intro.Settings[j].Key })

	rows := make([][]string, 0, len(intro.Settings))
	for _, s := range intro.Settings {
		value := fmt.Sprintf("%v", s.Value)
		if len(value) > 50 {
			value = value[:47] + "..."
		}
		source := string(s.Source)
		if s.SourcePath != "" {
			source += " " + s.SourcePath
		}
		rows = append(rows, []string{s.Key, value, source})
	}
	return display.Table(w, []string{"Key", "Value", "Source"}, rows)
}
