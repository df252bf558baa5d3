package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/teranos/kgraph/display"
	"github.com/teranos/kgraph/lifecycle"
	"github.com/teranos/kgraph/space"
)

// GetCmd prints the stored statements of one object.
var GetCmd = &cobra.Command{
	Use:   "get <uri>",
	Short: "Show the stored statements of an object",
	Long: `Show the statements whose subject is the object, or with --subgraph the
statements of everything it contains.

Examples:
  kgraph get urn:entity:1 --graph urn:kg:graph:main
  kgraph get urn:entity:1 --subgraph --format yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

var (
	getGraph    string
	getSubgraph bool
	getFormat   string
)

func init() {
	GetCmd.Flags().StringVar(&getGraph, "graph", DefaultGraph, "Named graph IRI")
	GetCmd.Flags().BoolVar(&getSubgraph, "subgraph", false, "Include everything the object contains")
	GetCmd.Flags().StringVar(&getFormat, "format", display.FormatText, "Output format: text, json, yaml")
}

func runGet(cmd *cobra.Command, args []string) error {
	if err := display.CheckFormat(getFormat); err != nil {
		return err
	}
	scope := lifecycle.ScopeSubjectOnly
	if getSubgraph {
		scope = lifecycle.ScopeSubgraph
	}
	return withSpace(cmd, func(ctx context.Context, s *space.Space) error {
		stmts, err := s.Manager.Get(ctx, getGraph, args[0], scope)
		if err != nil {
			return err
		}
		if getFormat != display.FormatText {
			return display.Structured(cmd.OutOrStdout(), getFormat, stmts)
		}
		return printStatements(cmd.OutOrStdout(), stmts)
	})
}
