package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/kgraph/display"
	"github.com/teranos/kgraph/errors"
	"github.com/teranos/kgraph/lifecycle"
	"github.com/teranos/kgraph/space"
)

// AuditCmd checks stored grouping tags against the live object structure.
var AuditCmd = &cobra.Command{
	Use:   "audit [entity]",
	Short: "Audit grouping tags of entities",
	Long: `Compare the statements tagged with an entity against the structure
reachable from it. Orphans are tagged statements no longer reachable;
mismatched and missing tags are reachable statements tagged wrongly or not
at all. With --prune the differences are repaired.

Examples:
  kgraph audit urn:entity:1
  kgraph audit --all --prune
  kgraph audit events --limit 20`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAudit,
}

var auditEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recent lifecycle events",
	Long:  "Show the most recent writes, deletes, rollbacks and audit repairs recorded in the space",
	Args:  cobra.NoArgs,
	RunE:  runAuditEvents,
}

var (
	auditGraph  string
	auditAll    bool
	auditPrune  bool
	auditFormat string
	eventsLimit int
)

func init() {
	AuditCmd.Flags().StringVar(&auditGraph, "graph", DefaultGraph, "Named graph IRI")
	AuditCmd.Flags().BoolVar(&auditAll, "all", false, "Audit every entity in the graph")
	AuditCmd.Flags().BoolVar(&auditPrune, "prune", false, "Repair the differences found")
	AuditCmd.Flags().StringVar(&auditFormat, "format", display.FormatText, "Output format: text, json, yaml")

	auditEventsCmd.Flags().IntVar(&eventsLimit, "limit", 20, "Number of events to show")
	auditEventsCmd.Flags().StringVar(&auditFormat, "format", display.FormatText, "Output format: text, json, yaml")

	AuditCmd.AddCommand(auditEventsCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	if err := display.CheckFormat(auditFormat); err != nil {
		return err
	}
	if auditAll == (len(args) == 1) {
		return errors.InvalidStatementf("name one entity or pass --all")
	}
	opts := lifecycle.AuditOptions{Prune: auditPrune}

	return withSpace(cmd, func(ctx context.Context, s *space.Space) error {
		var reports []*lifecycle.AuditReport
		if auditAll {
			var err error
			if reports, err = s.Maintainer.AuditAll(ctx, auditGraph, opts); err != nil {
				return err
			}
		} else {
			r, err := s.Maintainer.Audit(ctx, auditGraph, args[0], opts)
			if err != nil {
				return err
			}
			reports = []*lifecycle.AuditReport{r}
		}

		w := cmd.OutOrStdout()
		if auditFormat != display.FormatText {
			return display.Structured(w, auditFormat, reports)
		}
		printReports(w, reports, auditPrune)
		return nil
	})
}

func printReports(w io.Writer, reports []*lifecycle.AuditReport, pruned bool) {
	if len(reports) == 0 {
		fmt.Fprint(w, pterm.Info.Sprintln("No entities to audit"))
		return
	}
	dirty := 0
	for _, r := range reports {
		if r.Clean() {
			fmt.Fprint(w, pterm.Success.Sprintfln("%s: clean", r.Entity))
			continue
		}
		dirty++
		fmt.Fprint(w, pterm.Warning.Sprintfln("%s: %d orphaned, %d mismatched, %d missing",
			r.Entity, len(r.Orphans), len(r.Mismatched), len(r.Missing)))
		if pruned {
			fmt.Fprintf(w, "  repaired: %d removed, %d added\n", r.Removed, r.Added)
		}
	}
	fmt.Fprintf(w, "%d of %d entities need repair\n", dirty, len(reports))
}

func runAuditEvents(cmd *cobra.Command, args []string) error {
	if err := display.CheckFormat(auditFormat); err != nil {
		return err
	}
	return withSpace(cmd, func(ctx context.Context, s *space.Space) error {
		events, err := s.Events.Recent(ctx, eventsLimit)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if auditFormat != display.FormatText {
			return display.Structured(w, auditFormat, events)
		}
		if len(events) == 0 {
			fmt.Fprint(w, pterm.Info.Sprintln("No lifecycle events recorded"))
			return nil
		}
		rows := make([][]string, 0, len(events))
		for _, e := range events {
			target := e.Target
			if target == "" {
				target = e.Entity
			}
			rows = append(rows, []string{
				e.Timestamp.Format(time.RFC3339), e.Type, target, strconv.Itoa(e.Count), e.Detail,
			})
		}
		return display.Table(w, []string{"Time", "Event", "Target", "Quads", "Detail"}, rows)
	})
}
