package am

import (
	"strings"

	"github.com/teranos/kgraph/errors"
	"github.com/teranos/kgraph/rdf"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Busy timeout: 0 = driver default, negative = invalid
	if c.Database.BusyTimeoutMS < 0 {
		return errors.Newf("database.busy_timeout_ms must be >= 0, got %d", c.Database.BusyTimeoutMS)
	}

	if c.Store.TermCacheSize <= 0 {
		return errors.Newf("store.term_cache_size must be > 0, got %d", c.Store.TermCacheSize)
	}

	// Paging: a zero default would make every unpaged query empty
	if c.Query.DefaultLimit <= 0 {
		return errors.Newf("query.default_limit must be > 0, got %d", c.Query.DefaultLimit)
	}
	if c.Query.MaxLimit < c.Query.DefaultLimit {
		return errors.Newf("query.max_limit (%d) must be >= query.default_limit (%d)",
			c.Query.MaxLimit, c.Query.DefaultLimit)
	}

	if c.Lifecycle.ApplyBatchSize <= 0 {
		return errors.Newf("lifecycle.apply_batch_size must be > 0, got %d", c.Lifecycle.ApplyBatchSize)
	}
	if ns := c.Lifecycle.Namespace; ns != "" {
		if err := rdf.ValidateIRI(ns); err != nil {
			return errors.Wrap(err, "lifecycle.namespace")
		}
		if !strings.HasSuffix(ns, "#") && !strings.HasSuffix(ns, "/") {
			return errors.Newf("lifecycle.namespace must end with '#' or '/', got %q", ns)
		}
	}

	// Audit pacing: 0 = unlimited, negative = invalid
	if c.Maintenance.EntitiesPerSecond < 0 {
		return errors.Newf("maintenance.entities_per_second must be >= 0, got %f", c.Maintenance.EntitiesPerSecond)
	}
	if c.Maintenance.Burst < 1 {
		return errors.Newf("maintenance.burst must be >= 1, got %d", c.Maintenance.Burst)
	}

	return nil
}
