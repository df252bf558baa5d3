package lifecycle

import (
	"context"

	"github.com/teranos/kgraph/diff"
	"github.com/teranos/kgraph/errors"
	"github.com/teranos/kgraph/logger"
	"github.com/teranos/kgraph/metrics"
	"github.com/teranos/kgraph/rdf"
)

// commit applies d: removals first, then insertions in batches. The caller
// holds the entity lock. On any failure the diff is rolled back and the
// returned error is TransactionFailed, or Fatal when the rollback failed too.
func (m *Manager) commit(ctx context.Context, op operation, d *diff.Diff) (added, removed int, err error) {
	if d.Empty() {
		return 0, 0, nil
	}
	backup := append([]rdf.Statement(nil), d.ToRemove...)

	removed, err = m.index.RemoveStatements(ctx, d.ToRemove)
	if err != nil {
		return 0, 0, m.rollback(ctx, op, d, backup, errors.Wrap(err, "remove stale statements"))
	}

	for start := 0; start < len(d.ToAdd); start += m.batch {
		end := start + m.batch
		if end > len(d.ToAdd) {
			end = len(d.ToAdd)
		}
		n, err := m.index.InsertStatements(ctx, d.ToAdd[start:end])
		if err != nil {
			return 0, 0, m.rollback(ctx, op, d, backup,
				errors.Wrapf(err, "insert batch %d-%d of %d", start, end, len(d.ToAdd)))
		}
		added += n
		if logger.ShouldLogTrace(logger.Verbosity) {
			m.logger.Debugw("Inserted batch", "op_id", op.id, "from", start, "to", end, "inserted", n)
		}
	}
	return added, removed, nil
}

// rollback restores the pre-apply state: every statement of ToAdd is removed
// and the backup of ToRemove is re-inserted. ToAdd never overlaps the stored
// state before the apply, so removing all of it is safe even for batches that
// were never written. The rollback ignores the caller's cancellation.
func (m *Manager) rollback(ctx context.Context, op operation, d *diff.Diff, backup []rdf.Statement, cause error) error {
	rctx := context.WithoutCancel(ctx)
	log := m.logger.With("op_id", op.id, "target", op.target, "entity", op.entity)
	log.Warnw("Apply failed, rolling back",
		"error", cause,
		"to_add", len(d.ToAdd),
		"to_remove", len(backup),
	)

	_, rmErr := m.index.RemoveStatements(rctx, d.ToAdd)
	_, insErr := m.index.InsertStatements(rctx, backup)
	if rbErr := firstError(rmErr, insErr); rbErr != nil {
		metrics.RollbacksTotal.WithLabelValues(metrics.RollbackFailed).Inc()
		m.events.Record(rctx, Event{
			Type:        EventRollbackFailed,
			OperationID: op.id,
			Graph:       op.graph,
			Entity:      op.entity,
			Target:      op.target,
			Count:       len(backup),
			Detail:      rbErr.Error(),
		})
		return errors.FatalWrap(errors.WithSecondaryError(cause, rbErr),
			"apply "+op.target+" failed and rollback did not complete")
	}

	metrics.RollbacksTotal.WithLabelValues(metrics.RollbackCompleted).Inc()
	m.events.Record(rctx, Event{
		Type:        EventRollback,
		OperationID: op.id,
		Graph:       op.graph,
		Entity:      op.entity,
		Target:      op.target,
		Count:       len(backup),
		Detail:      cause.Error(),
	})
	log.Infow("Rollback complete", "restored", len(backup))
	return errors.TransactionFailedWrap(cause, "apply "+op.target+" rolled back")
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
