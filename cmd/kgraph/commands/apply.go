package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/kgraph/display"
	"github.com/teranos/kgraph/errors"
	"github.com/teranos/kgraph/lifecycle"
	"github.com/teranos/kgraph/logger"
	"github.com/teranos/kgraph/space"
)

// ApplyCmd writes structured objects from a YAML file.
var ApplyCmd = &cobra.Command{
	Use:   "apply -f <file>",
	Short: "Create, update or upsert objects from a YAML file",
	Long: `Apply one or more write requests read from a YAML file ("-" reads stdin).

Each document names a target object, an optional parent frame or entity and
the statements describing the object and everything it contains. Grouping
tags are computed by kgraph; any supplied in the file are discarded.

Examples:
  kgraph apply -f company.yaml
  kgraph apply -f company.yaml --mode create
  cat frame.yaml | kgraph apply -f - --graph urn:kg:graph:main`,
	Args: cobra.NoArgs,
	RunE: runApply,
}

var (
	applyFile   string
	applyMode   string
	applyGraph  string
	applyFormat string
)

func init() {
	ApplyCmd.Flags().StringVarP(&applyFile, "file", "f", "", "YAML file to apply (- for stdin)")
	ApplyCmd.Flags().StringVar(&applyMode, "mode", "", "Override the mode of every document: create, update, upsert")
	ApplyCmd.Flags().StringVar(&applyGraph, "graph", DefaultGraph, "Graph for documents that do not name one")
	ApplyCmd.Flags().StringVar(&applyFormat, "format", display.FormatText, "Output format: text, json, yaml")
	_ = ApplyCmd.MarkFlagRequired("file")
}

func runApply(cmd *cobra.Command, args []string) error {
	if err := display.CheckFormat(applyFormat); err != nil {
		return err
	}
	docs, err := readApplyFile(cmd, applyFile)
	if err != nil {
		return err
	}

	var override lifecycle.Mode
	if applyMode != "" {
		if override, err = lifecycle.ParseMode(applyMode); err != nil {
			return err
		}
	}

	return withSpace(cmd, func(ctx context.Context, s *space.Space) error {
		log := logger.FromContext(ctx, logger.Logger)
		results := make([]*lifecycle.Result, 0, len(docs))
		for i, d := range docs {
			req, err := d.Request(s.Manager.Vocabulary(), lifecycle.ModeUpsert, applyGraph)
			if err != nil {
				return errors.Wrapf(err, "document %d", i+1)
			}
			if override != 0 {
				req.Mode = override
			}
			res, err := s.Manager.Apply(ctx, req)
			if err != nil {
				return errors.Wrapf(err, "document %d (%s %s)", i+1, req.Mode, req.TargetURI)
			}
			log.Debugw("Applied document", "index", i+1, "target", req.TargetURI, "op_id", res.OperationID)
			results = append(results, res)
			if applyFormat == display.FormatText {
				printResult(cmd.OutOrStdout(), req.Mode.String(), req.TargetURI, res)
			}
		}
		if applyFormat != display.FormatText {
			return display.Structured(cmd.OutOrStdout(), applyFormat, results)
		}
		return nil
	})
}

func readApplyFile(cmd *cobra.Command, path string) ([]Document, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.WithKind(errors.Wrapf(err, "open %s", path), errors.NotFound)
		}
		defer f.Close()
		r = f
	}
	return ReadDocuments(r)
}

func printResult(w io.Writer, verb, target string, res *lifecycle.Result) {
	fmt.Fprint(w, pterm.Success.Sprintfln("%s %s: %d added, %d removed", verb, target, res.Added, res.Removed))
	if len(res.MutatedURIs) > 0 {
		fmt.Fprintf(w, "  mutated: %s\n", strings.Join(res.MutatedURIs, ", "))
	}
}
