package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/kgraph/db"
	"github.com/teranos/kgraph/display"
	"github.com/teranos/kgraph/errors"
	"github.com/teranos/kgraph/logger"
	"github.com/teranos/kgraph/space"
)

// DbCmd represents the db (database) command
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage kgraph spaces",
	Long: `Manage kgraph spaces

Each space is one SQLite database under the configured database path.

Examples:
  kgraph db stats                   # Term, quad and graph counts of a space
  kgraph db migrate --space work    # Create or migrate the space "work"
  kgraph db spaces                  # List the spaces on disk`,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show space statistics",
	Args:  cobra.NoArgs,
	RunE:  runDbStats,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Long:  "Open the space, applying every pending migration, and list the applied versions",
	Args:  cobra.NoArgs,
	RunE:  runDbMigrate,
}

var dbSpacesCmd = &cobra.Command{
	Use:   "spaces",
	Short: "List spaces",
	Args:  cobra.NoArgs,
	RunE:  runDbSpaces,
}

var statsFormat string

func init() {
	dbStatsCmd.Flags().StringVar(&statsFormat, "format", display.FormatText, "Output format: text, json, yaml")

	DbCmd.AddCommand(dbStatsCmd)
	DbCmd.AddCommand(dbMigrateCmd)
	DbCmd.AddCommand(dbSpacesCmd)
}

// spaceStats is the structured form of `db stats`.
type spaceStats struct {
	Space  string   `json:"space" yaml:"space"`
	Path   string   `json:"path" yaml:"path"`
	Terms  int      `json:"terms" yaml:"terms"`
	Quads  int      `json:"quads" yaml:"quads"`
	Graphs []string `json:"graphs" yaml:"graphs"`
}

func runDbStats(cmd *cobra.Command, args []string) error {
	if err := display.CheckFormat(statsFormat); err != nil {
		return err
	}
	return withSpace(cmd, func(ctx context.Context, s *space.Space) error {
		st, err := s.Stats(ctx)
		if err != nil {
			return err
		}
		graphs, err := s.Graphs(ctx)
		if err != nil {
			return err
		}
		out := spaceStats{Space: s.Name, Path: s.Path, Terms: st.Terms, Quads: st.Quads, Graphs: graphs}

		w := cmd.OutOrStdout()
		if statsFormat != display.FormatText {
			return display.Structured(w, statsFormat, out)
		}
		fmt.Fprintf(w, "Space Statistics\n")
		fmt.Fprintf(w, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")
		fmt.Fprintf(w, "Space:   %s\n", out.Space)
		fmt.Fprintf(w, "Path:    %s\n", out.Path)
		fmt.Fprintf(w, "Terms:   %d\n", out.Terms)
		fmt.Fprintf(w, "Quads:   %d\n", out.Quads)
		fmt.Fprintf(w, "Graphs:  %d\n", len(out.Graphs))
		for _, g := range out.Graphs {
			fmt.Fprintf(w, "  %s\n", g)
		}
		return nil
	})
}

func runDbMigrate(cmd *cobra.Command, args []string) error {
	return withSpace(cmd, func(ctx context.Context, s *space.Space) error {
		versions, err := db.AppliedVersions(s.DB)
		if err != nil {
			return err
		}
		if len(versions) == 0 {
			return errors.Newf("space %s has no recorded migrations", s.Name)
		}
		fmt.Fprint(cmd.OutOrStdout(), pterm.Success.Sprintfln("Space %s is at schema %s (%d migrations)",
			s.Name, versions[len(versions)-1], len(versions)))
		logger.FromContext(ctx, logger.Logger).Debugw("Applied migrations", "versions", strings.Join(versions, ","))
		return nil
	})
}

func runDbSpaces(cmd *cobra.Command, args []string) error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}
	defer closeRegistry(reg)

	names, err := reg.Available()
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if len(names) == 0 {
		fmt.Fprint(w, pterm.Info.Sprintln("No spaces yet"))
		return nil
	}
	for _, n := range names {
		fmt.Fprintln(w, n)
	}
	return nil
}
