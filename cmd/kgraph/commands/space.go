package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/teranos/kgraph/am"
	"github.com/teranos/kgraph/errors"
	"github.com/teranos/kgraph/logger"
	"github.com/teranos/kgraph/space"
)

// Global flags, bound by the root command.
var (
	SpaceName string
	DataRoot  string
)

// DefaultSpace is the space used when --space is not given.
const DefaultSpace = "default"

// DefaultGraph is the graph used by commands when --graph is not given.
const DefaultGraph = "urn:kg:graph:default"

// Exit codes returned by ExitCode.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitInvalid     = 2
	ExitNotFound    = 3
	ExitConflict    = 4
	ExitUnavailable = 5
)

// ExitCode maps an error onto the process exit status by its kind.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch errors.KindOf(err) {
	case errors.InvalidStatement, errors.InvalidReference:
		return ExitInvalid
	case errors.NotFound:
		return ExitNotFound
	case errors.AlreadyExists:
		return ExitConflict
	case errors.Unavailable:
		return ExitUnavailable
	default:
		return ExitFailure
	}
}

// openRegistry loads the configuration and builds a registry over the data
// root, honoring --root.
func openRegistry() (*space.Registry, error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}
	opts := space.OptionsFromConfig(cfg, logger.ComponentLogger("kgraph"))
	if DataRoot != "" {
		opts.Root = DataRoot
	}
	return space.NewRegistry(opts)
}

func closeRegistry(reg *space.Registry) {
	if err := reg.Close(); err != nil {
		logger.Warnw("Failed to close spaces", "error", err)
	}
}

// withSpace opens the selected space and runs fn with a context carrying the
// space name and an invocation id for logging.
func withSpace(cmd *cobra.Command, fn func(ctx context.Context, s *space.Space) error) error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}
	defer closeRegistry(reg)

	name := SpaceName
	if name == "" {
		name = DefaultSpace
	}
	s, err := reg.Open(name)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.WithRequestID(ctx, uuid.NewString())
	return fn(logger.WithSpace(ctx, s.Name), s)
}

// PrintError writes err to stderr with its kind and hints.
func PrintError(err error) {
	printError(os.Stderr, err)
}

func printError(w io.Writer, err error) {
	r := errors.AsRejection(err)
	if r == nil {
		return
	}
	fmt.Fprintf(w, "Error (%s): %s\n", r.Kind, r.Message)
	for _, h := range r.Hints {
		fmt.Fprintf(w, "  hint: %s\n", h)
	}
}
