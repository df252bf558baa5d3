package space

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/teranos/kgraph/am"
	"github.com/teranos/kgraph/db"
	"github.com/teranos/kgraph/errors"
	"github.com/teranos/kgraph/lifecycle"
	"github.com/teranos/kgraph/logger"
	"github.com/teranos/kgraph/metrics"
	"github.com/teranos/kgraph/rdf"
	"github.com/teranos/kgraph/store"
)

// fileExt is the extension of space database files.
const fileExt = ".db"

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// Options configures how a Registry opens spaces.
type Options struct {
	// Root is the directory holding one database file per space, or
	// db.MemoryPath for private in-memory spaces.
	Root          string
	BusyTimeoutMS int
	TermCacheSize int
	DefaultLimit  int
	MaxLimit      int
	BatchSize     int
	Vocabulary    rdf.Vocabulary
	// Audit-all pacing; zero EntitiesPerSecond is unlimited
	EntitiesPerSecond float64
	Burst             int
	Logger            *zap.SugaredLogger
}

// OptionsFromConfig maps the loaded configuration onto registry options.
func OptionsFromConfig(cfg *am.Config, log *zap.SugaredLogger) Options {
	return Options{
		Root:              cfg.GetDatabasePath(),
		BusyTimeoutMS:     cfg.Database.BusyTimeoutMS,
		TermCacheSize:     cfg.Store.TermCacheSize,
		DefaultLimit:      cfg.Query.DefaultLimit,
		MaxLimit:          cfg.Query.MaxLimit,
		BatchSize:         cfg.Lifecycle.ApplyBatchSize,
		Vocabulary:        cfg.Vocabulary(),
		EntitiesPerSecond: cfg.Maintenance.EntitiesPerSecond,
		Burst:             cfg.Maintenance.Burst,
		Logger:            log,
	}
}

// Registry opens each space at most once and hands out the shared handle.
type Registry struct {
	opts   Options
	logger *zap.SugaredLogger
	group  singleflight.Group

	mu     sync.Mutex
	spaces map[string]*Space
	closed bool
}

// NewRegistry creates a registry, creating the root directory if needed.
func NewRegistry(opts Options) (*Registry, error) {
	if opts.Root == "" {
		return nil, errors.New("space root is required")
	}
	opts.Logger = logger.OrNop(opts.Logger)
	if opts.Root != db.MemoryPath {
		if err := os.MkdirAll(opts.Root, am.DefaultDirPermissions); err != nil {
			return nil, errors.WithKind(errors.Wrapf(err, "create space root %s", opts.Root), errors.Unavailable)
		}
	}
	return &Registry{
		opts:   opts,
		logger: opts.Logger.Named("space"),
		spaces: make(map[string]*Space),
	}, nil
}

// ValidName checks that name can be used as a space file name.
func ValidName(name string) error {
	if !validName.MatchString(name) {
		return errors.InvalidStatementf("invalid space name %q: use letters, digits, '.', '_' or '-'", name)
	}
	return nil
}

// Open returns the space called name, opening and migrating its database on
// first use. Concurrent first opens share one database handle.
func (r *Registry) Open(name string) (*Space, error) {
	if err := ValidName(name); err != nil {
		return nil, err
	}
	if s, err := r.lookup(name); s != nil || err != nil {
		return s, err
	}

	v, err, shared := r.group.Do(name, func() (interface{}, error) {
		if s, err := r.lookup(name); s != nil || err != nil {
			return s, err
		}
		s, err := r.open(name)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed {
			s.close()
			return nil, errClosed()
		}
		r.spaces[name] = s
		metrics.OpenSpaces.Inc()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		r.logger.Debugw("Shared concurrent space open", "space", name)
	}
	return v.(*Space), nil
}

func (r *Registry) lookup(name string) (*Space, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, errClosed()
	}
	return r.spaces[name], nil
}

func errClosed() error {
	return errors.Unavailablef("space registry is closed")
}

// path returns the database path of a space.
func (r *Registry) path(name string) string {
	if r.opts.Root == db.MemoryPath {
		return db.MemoryPath
	}
	return filepath.Join(r.opts.Root, name+fileExt)
}

func (r *Registry) open(name string) (*Space, error) {
	log := r.logger.With("space", name)
	path := r.path(name)

	conn, err := db.OpenWithMigrationsTimeout(path, r.opts.BusyTimeoutMS, log)
	if err != nil {
		return nil, errors.Wrapf(err, "open space %s", name)
	}
	terms, err := store.NewTermStore(conn, r.opts.TermCacheSize, log)
	if err != nil {
		conn.Close()
		return nil, err
	}
	index := store.NewQuadIndex(conn, terms, log)

	querier := store.NewQuerier(index, r.opts.DefaultLimit, r.opts.MaxLimit, log)
	querier.OnQuery = func(p store.QueryPath) {
		metrics.QueriesTotal.WithLabelValues(string(p)).Inc()
	}

	events := lifecycle.NewEventLog(conn, log)
	manager := lifecycle.NewManager(index, lifecycle.Options{
		Vocabulary: r.opts.Vocabulary,
		BatchSize:  r.opts.BatchSize,
		Events:     events,
		Logger:     log,
	})

	log.Infow("Space opened", "path", path)
	return &Space{
		Name:       name,
		Path:       path,
		DB:         conn,
		Terms:      terms,
		Index:      index,
		Querier:    querier,
		Manager:    manager,
		Maintainer: lifecycle.NewMaintainer(manager, r.opts.EntitiesPerSecond, r.opts.Burst),
		Events:     events,
	}, nil
}

// Names returns the names of the open spaces, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.spaces))
	for name := range r.spaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Available returns the names of every space with a database file under the
// root, open or not. In-memory registries report the open spaces.
func (r *Registry) Available() ([]string, error) {
	if r.opts.Root == db.MemoryPath {
		return r.Names(), nil
	}
	entries, err := os.ReadDir(r.opts.Root)
	if err != nil {
		return nil, errors.WithKind(errors.Wrapf(err, "list spaces in %s", r.opts.Root), errors.Unavailable)
	}
	var names []string
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), fileExt)
		if e.IsDir() || name == e.Name() || ValidName(name) != nil {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// CloseSpace closes one space. A later Open reopens it.
func (r *Registry) CloseSpace(name string) error {
	r.mu.Lock()
	s, ok := r.spaces[name]
	delete(r.spaces, name)
	r.mu.Unlock()
	if !ok {
		return errors.NotFoundf("space %s is not open", name)
	}
	metrics.OpenSpaces.Dec()
	return s.close()
}

// Close closes every space. The registry cannot be used afterwards.
func (r *Registry) Close() error {
	r.mu.Lock()
	spaces := r.spaces
	r.spaces = make(map[string]*Space)
	r.closed = true
	r.mu.Unlock()

	var result error
	for _, s := range spaces {
		metrics.OpenSpaces.Dec()
		if err := s.close(); err != nil {
			if result == nil {
				result = err
			} else {
				result = errors.WithSecondaryError(result, err)
			}
		}
	}
	return result
}
