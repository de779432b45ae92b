package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrAuditIncomplete is returned for a record missing action, entity or entity id.
var ErrAuditIncomplete = errors.New("shared: audit record requires action, entity and entity_id")

// AuditLog is one audit_logs row. ActorID 0 is a system action and is stored
// as NULL; a zero At is stamped by the logger.
type AuditLog struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

func (l AuditLog) validate() error {
	if l.Action == "" || l.Entity == "" || l.EntityID == "" {
		return fmt.Errorf("%w: %q %q %q", ErrAuditIncomplete, l.Action, l.Entity, l.EntityID)
	}
	return nil
}

// AuditLogger appends ledger audit records. Callers ignore its errors so a
// failed audit write never undoes a committed posting.
type AuditLogger struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool, now: time.Now}
}

func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil || l.pool == nil {
		return errors.New("shared: audit logger not initialised")
	}
	if err := log.validate(); err != nil {
		return err
	}
	if log.Meta == nil {
		log.Meta = map[string]any{}
	}
	meta, err := json.Marshal(log.Meta)
	if err != nil {
		return fmt.Errorf("shared: encode audit meta: %w", err)
	}
	var actor *int64
	if log.ActorID > 0 {
		actor = &log.ActorID
	}
	if log.At.IsZero() {
		log.At = l.now()
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6)`, actor, log.Action, log.Entity, log.EntityID, meta, log.At)
	if err != nil {
		return fmt.Errorf("shared: insert audit log: %w", err)
	}
	return nil
}
