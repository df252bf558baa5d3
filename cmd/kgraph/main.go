package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/kgraph/am"
	"github.com/teranos/kgraph/cmd/kgraph/commands"
	"github.com/teranos/kgraph/logger"
)

var rootCmd = &cobra.Command{
	Use:   "kgraph",
	Short: "kgraph - lifecycle-managed knowledge graph store",
	Long: `kgraph - a quad store for structured knowledge graph objects.

Entities, frames, slots and the edges between them are written and deleted
as whole objects. kgraph keeps every statement of an object tagged with the
entity and frame it belongs to, so updates replace exactly what they should.

Available commands:
  am      - Manage kgraph configuration ("I am")
  db      - Manage spaces (stats, migrations)
  query   - List statements matching a filter
  get     - Show the statements of an object
  apply   - Create, update or upsert objects from YAML
  delete  - Delete an object
  audit   - Check and repair grouping tags
  version - Show build information

Examples:
  kgraph apply -f company.yaml
  kgraph query --subject urn:entity:1
  kgraph get urn:entity:1 --subgraph
  kgraph audit --all --prune`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLog, _ := cmd.Flags().GetBool("json-log")
		// Load errors surface from the command itself
		if cfg, err := am.Load(); err == nil && cfg.Log.JSON {
			jsonLog = true
		}
		if err := logger.InitializeWithVerbosity(jsonLog, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json-log", false, "Log as JSON")
	rootCmd.PersistentFlags().StringVarP(&commands.SpaceName, "space", "s", commands.DefaultSpace, "Space to operate on")
	rootCmd.PersistentFlags().StringVar(&commands.DataRoot, "root", "", "Directory holding the space databases (overrides database.path)")

	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.QueryCmd)
	rootCmd.AddCommand(commands.GetCmd)
	rootCmd.AddCommand(commands.ApplyCmd)
	rootCmd.AddCommand(commands.DeleteCmd)
	rootCmd.AddCommand(commands.AuditCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Cleanup()
	if err := rootCmd.Execute(); err != nil {
		commands.PrintError(err)
		logger.Cleanup()
		os.Exit(commands.ExitCode(err))
	}
}
