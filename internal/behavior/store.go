// Package behavior is the append-only log of user responses to nudges and
// the analytics computed over it: windowed counts, reroute rates, governance
// adoption, and the badge ladder.
//
// Only event type, timestamp, and an optional rule id are persisted — never
// prompt text.
package behavior

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	throttleotel "github.com/Lcking/throttle/internal/otel"
)

var tracer = throttleotel.Tracer("github.com/Lcking/throttle/internal/behavior")

// EventType classifies one user-facing outcome.
type EventType string

const (
	// EventHit records that a nudge was shown.
	EventHit EventType = "hit"
	// Per-governance-category hits, recorded alongside EventHit when the
	// winning rule belongs to a governance category.
	EventLoad      EventType = "load"
	EventAuthority EventType = "authority"
	EventNoise     EventType = "noise"
	// User responses.
	EventContinue      EventType = "continue"
	EventSwitchAsk     EventType = "switch_ask"
	EventSwitchLight   EventType = "switch_light"
	EventChangeMode    EventType = "change_mode"
	EventMuteRule      EventType = "mute_rule"
	EventGuardTemplate EventType = "guard_template"
)

// EventTypes lists every event type in display order.
var EventTypes = []EventType{
	EventHit, EventLoad, EventAuthority, EventNoise,
	EventContinue, EventSwitchAsk, EventSwitchLight,
	EventChangeMode, EventMuteRule, EventGuardTemplate,
}

// Event is one recorded outcome.
type Event struct {
	ID        string
	Timestamp time.Time
	Type      EventType
	RuleID    string
}

// MaxEvents caps the log; the oldest events are evicted beyond it.
const MaxEvents = 500

// Store persists behavior events in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (and if needed creates) the behavior event database.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening behavior database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		ts INTEGER NOT NULL,
		type TEXT NOT NULL,
		rule_id TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts);
	`
	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating behavior schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends an event, then evicts the oldest rows beyond MaxEvents.
func (s *Store) Record(ctx context.Context, event Event) error {
	ctx, span := tracer.Start(ctx, "behavior.record",
		trace.WithAttributes(
			attribute.String("event.type", string(event.Type)),
			attribute.String("event.rule_id", event.RuleID),
		))
	defer span.End()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, ts, type, rule_id) VALUES (?, ?, ?, ?)`,
		event.ID, event.Timestamp.UnixMilli(), string(event.Type), event.RuleID,
	)
	if err != nil {
		return fmt.Errorf("recording behavior event: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`DELETE FROM events WHERE id IN (
			SELECT id FROM events ORDER BY ts DESC, id DESC LIMIT -1 OFFSET ?
		)`, MaxEvents,
	)
	if err != nil {
		return fmt.Errorf("evicting behavior events: %w", err)
	}
	return nil
}

// Events returns all events, oldest first.
func (s *Store) Events(ctx context.Context) ([]Event, error) {
	ctx, span := tracer.Start(ctx, "behavior.events")
	defer span.End()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, type, rule_id FROM events ORDER BY ts ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying behavior events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event Event
			ts    int64
			typ   string
		)
		if err := rows.Scan(&event.ID, &ts, &typ, &event.RuleID); err != nil {
			continue
		}
		event.Timestamp = time.UnixMilli(ts)
		event.Type = EventType(typ)
		events = append(events, event)
	}

	span.SetAttributes(attribute.Int("event.count", len(events)))
	return events, nil
}

// Count returns the number of stored events.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting behavior events: %w", err)
	}
	return n, nil
}

// Clear removes every event.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return fmt.Errorf("clearing behavior events: %w", err)
	}
	return nil
}
