package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/teranos/kgraph/display"
	"github.com/teranos/kgraph/lifecycle"
	"github.com/teranos/kgraph/space"
)

// DeleteCmd removes an object.
var DeleteCmd = &cobra.Command{
	Use:   "delete <uri>",
	Short: "Delete an object",
	Long: `Delete an object's own statements and the links into it. With --subgraph
everything the object contains is deleted as well.

Examples:
  kgraph delete urn:entity:1 --subgraph
  kgraph delete urn:frame:1 --graph urn:kg:graph:main`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

var (
	deleteGraph    string
	deleteSubgraph bool
	deleteFormat   string
)

func init() {
	DeleteCmd.Flags().StringVar(&deleteGraph, "graph", DefaultGraph, "Named graph IRI")
	DeleteCmd.Flags().BoolVar(&deleteSubgraph, "subgraph", false, "Also delete everything the object contains")
	DeleteCmd.Flags().StringVar(&deleteFormat, "format", display.FormatText, "Output format: text, json, yaml")
}

func runDelete(cmd *cobra.Command, args []string) error {
	if err := display.CheckFormat(deleteFormat); err != nil {
		return err
	}
	req := lifecycle.DeleteRequest{Graph: deleteGraph, TargetURI: args[0], Scope: lifecycle.ScopeSubjectOnly}
	if deleteSubgraph {
		req.Scope = lifecycle.ScopeSubgraph
	}
	return withSpace(cmd, func(ctx context.Context, s *space.Space) error {
		res, err := s.Manager.Delete(ctx, req)
		if err != nil {
			return err
		}
		if deleteFormat != display.FormatText {
			return display.Structured(cmd.OutOrStdout(), deleteFormat, res)
		}
		printResult(cmd.OutOrStdout(), "delete", req.TargetURI, res)
		return nil
	})
}
