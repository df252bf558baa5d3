package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/kgraph/display"
	"github.com/teranos/kgraph/rdf"
	"github.com/teranos/kgraph/space"
	"github.com/teranos/kgraph/store"
)

// QueryCmd lists statements matching a filter.
var QueryCmd = &cobra.Command{
	Use:   "query",
	Short: "List statements matching a filter",
	Long: `List statements of a space matching a filter, one page at a time.

Subject and predicate match exactly. The object matches as an IRI when it
parses as an absolute IRI and otherwise against the lexical form of any
literal. Every keyword of --text must occur, ignoring case, in the subject,
predicate or object of a statement.

Examples:
  kgraph query --graph urn:kg:graph:main --subject urn:entity:1
  kgraph query --predicate http://example.org/name --object Acme
  kgraph query --text "acme corp" --limit 20 --format json`,
	Args: cobra.NoArgs,
	RunE: runQuery,
}

var (
	queryFilter store.Filter
	queryFormat string
)

func init() {
	f := QueryCmd.Flags()
	f.StringVar(&queryFilter.Graph, "graph", "", "Named graph IRI")
	f.StringVar(&queryFilter.Subject, "subject", "", "Subject IRI or _:label")
	f.StringVar(&queryFilter.Predicate, "predicate", "", "Predicate IRI")
	f.StringVar(&queryFilter.Object, "object", "", "Object IRI or literal lexical form")
	f.StringVar(&queryFilter.Text, "text", "", "Whitespace-separated keywords")
	f.IntVar(&queryFilter.Limit, "limit", 0, "Page size (0 uses the configured default)")
	f.IntVar(&queryFilter.Offset, "offset", 0, "Number of statements to skip")
	f.StringVar(&queryFormat, "format", display.FormatText, "Output format: text, json, yaml")
}

func runQuery(cmd *cobra.Command, args []string) error {
	if err := display.CheckFormat(queryFormat); err != nil {
		return err
	}
	return withSpace(cmd, func(ctx context.Context, s *space.Space) error {
		page, err := s.Querier.Query(ctx, queryFilter)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if queryFormat != display.FormatText {
			return display.Structured(w, queryFormat, page)
		}
		if err := printStatements(w, page.Statements); err != nil {
			return err
		}
		fmt.Fprintf(w, "%d of %d statements (offset %d, limit %d)\n",
			len(page.Statements), page.Total, page.Offset, page.Limit)
		return nil
	})
}

// printStatements renders stmts as a table, or a note when there are none.
func printStatements(w io.Writer, stmts []rdf.Statement) error {
	if len(stmts) == 0 {
		fmt.Fprint(w, pterm.Info.Sprintln("No statements"))
		return nil
	}
	rows := make([][]string, len(stmts))
	for i, st := range stmts {
		rows[i] = []string{st.Subject.String(), st.Predicate.String(), st.Object.String(), st.Graph.String()}
	}
	return display.Table(w, []string{"Subject", "Predicate", "Object", "Graph"}, rows)
}
