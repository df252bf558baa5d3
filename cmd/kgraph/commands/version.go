package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/kgraph/display"
	"github.com/teranos/kgraph/version"
)

// VersionCmd represents the version command
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show kgraph version information",
	Long:  `Display version, build time, commit hash, and platform information for the kgraph binary.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if err := display.CheckFormat(format); err != nil {
			return err
		}

		info := version.Get()
		w := cmd.OutOrStdout()
		if format != display.FormatText {
			return display.Structured(w, format, info)
		}
		fmt.Fprintln(w, info.String())
		fmt.Fprintf(w, "Platform: %s\n", info.Platform)
		fmt.Fprintf(w, "Go: %s\n", info.GoVersion)
		return nil
	},
}

func init() {
	VersionCmd.Flags().String("format", display.FormatText, "Output format: text, json, yaml")
}
