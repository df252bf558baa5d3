package lifecycle

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/kgraph/db"
	"github.com/teranos/kgraph/errors"
)

// Event types recorded in lifecycle_events.
const (
	EventRollback       = "rollback"
	EventRollbackFailed = "rollback_failed"
	EventAuditPrune     = "audit_prune"
)

// Event is one operator-relevant occurrence.
type Event struct {
	Type        string    `json:"event_type"`
	OperationID string    `json:"operation_id,omitempty"`
	Graph       string    `json:"graph,omitempty"`
	Entity      string    `json:"entity,omitempty"`
	Target      string    `json:"target,omitempty"`
	Count       int       `json:"quads_count"`
	Detail      string    `json:"detail,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// EventRecorder receives lifecycle events. Recording never fails an
// operation.
type EventRecorder interface {
	Record(ctx context.Context, e Event)
}

// EventLog records events in the lifecycle_events table.
type EventLog struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// NewEventLog creates an event log over a migrated database.
func NewEventLog(conn *sql.DB, logger *zap.SugaredLogger) *EventLog {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &EventLog{db: conn, logger: logger.Named("events")}
}

// Record stores e. Failures are logged, not returned.
func (l *EventLog) Record(ctx context.Context, e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO lifecycle_events (event_type, operation_id, graph, entity, target, quads_count, detail, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Type,
		nullIfEmpty(e.OperationID),
		nullIfEmpty(e.Graph),
		nullIfEmpty(e.Entity),
		nullIfEmpty(e.Target),
		e.Count,
		nullIfEmpty(e.Detail),
		e.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		l.logger.Warnw("Failed to record lifecycle event",
			"event_type", e.Type,
			"error", err,
		)
	}
}

// Recent returns up to limit events, newest first.
func (l *EventLog) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT event_type, operation_id, graph, entity, target, quads_count, detail, timestamp
		FROM lifecycle_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, db.Classify(err, "query lifecycle events")
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e                                   Event
			opID, graph, entity, target, detail sql.NullString
			ts                                  string
		)
		if err := rows.Scan(&e.Type, &opID, &graph, &entity, &target, &e.Count, &detail, &ts); err != nil {
			return nil, errors.Wrap(err, "scan lifecycle event")
		}
		e.OperationID, e.Graph, e.Entity, e.Target, e.Detail = opID.String, graph.String, entity.String, target.String, detail.String
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			e.Timestamp = parsed
		}
		out = append(out, e)
	}
	return out, db.Classify(rows.Err(), "iterate lifecycle events")
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, Event) {}
