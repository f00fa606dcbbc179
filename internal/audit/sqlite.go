package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// Config locates the audit database. Path ":memory:" keeps the trail
// in-process, which tests rely on.
type Config struct {
	Path string `conf:"path" yaml:"path" json:"path"`
}

const schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	tenant_id     TEXT NOT NULL,
	actor_user_id TEXT NOT NULL,
	action        TEXT NOT NULL,
	entity_type   TEXT NOT NULL,
	entity_id     TEXT NOT NULL,
	details       TEXT,
	at            TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_tenant ON audit_events (tenant_id, at);
CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_events (entity_type, entity_id);
`

// SQLiteSink is the durable, insert-only audit trail.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (and if needed initializes) the audit database.
func NewSQLiteSink(cfg Config) (*SQLiteSink, error) {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open db: %w", err)
	}

	// The sqlite driver serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent query dispatch.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: init schema: %w", err)
	}

	return &SQLiteSink{db: db}, nil
}

func (s *SQLiteSink) Log(ctx context.Context, event Event) error {
	var details []byte

	if len(event.Details) > 0 {
		var err error

		details, err = json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("audit: marshal details: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_events (tenant_id, actor_user_id, action, entity_type, entity_id, details, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.TenantID, event.ActorUserID, event.Action,
		event.EntityType, event.EntityID, string(details),
		event.At.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("audit: insert event: %w", err)
	}

	return nil
}

// ListByEntity returns the trail for one entity, oldest first.
func (s *SQLiteSink) ListByEntity(ctx context.Context, entityType, entityID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tenant_id, actor_user_id, action, entity_type, entity_id, details, at
		 FROM audit_events WHERE entity_type = ? AND entity_id = ? ORDER BY id`,
		entityType, entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("audit: query events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListByTenant returns the tenant's trail, oldest first.
func (s *SQLiteSink) ListByTenant(ctx context.Context, tenantID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tenant_id, actor_user_id, action, entity_type, entity_id, details, at
		 FROM audit_events WHERE tenant_id = ? ORDER BY id`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("audit: query events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event

	for rows.Next() {
		var (
			event   Event
			details sql.NullString
			atRaw   string
		)

		if err := rows.Scan(&event.TenantID, &event.ActorUserID, &event.Action,
			&event.EntityType, &event.EntityID, &details, &atRaw); err != nil {
			return nil, fmt.Errorf("audit: scan event: %w", err)
		}

		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &event.Details); err != nil {
				return nil, fmt.Errorf("audit: decode details: %w", err)
			}
		}

		if at, err := parseTime(atRaw); err == nil {
			event.At = at
		}

		events = append(events, event)
	}

	return events, rows.Err()
}

// Close releases the database handle.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
