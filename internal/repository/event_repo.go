package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"smoke_controller/internal/models"
)

// timeLayout is fixed width so text order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const insertEventSQL = `
		INSERT INTO control_events (id, occurred_at, type, probe_id, message, meta)
		VALUES (?, ?, ?, ?, ?, ?)
	`

const selectEventsSQL = `SELECT id, occurred_at, type, probe_id, message, meta FROM control_events`

type EventSQLite struct {
	db *sql.DB
}

func NewEventSQLite(db *sql.DB) *EventSQLite { return &EventSQLite{db: db} }

var _ EventRepo = (*EventSQLite)(nil)

// Append inserts a new event. If EventID or OccurredAt are empty, they're set.
func (r *EventSQLite) Append(ctx context.Context, e models.ControlEvent) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}

	var meta *string
	if e.Metadata != nil {
		if b, err := json.Marshal(e.Metadata); err == nil {
			s := string(b)
			meta = &s
		}
	}
	var probeID *string
	if e.ProbeID != "" {
		probeID = &e.ProbeID
	}

	_, err := r.db.ExecContext(ctx, insertEventSQL,
		e.EventID,
		formatTime(e.OccurredAt),
		strings.ToUpper(strings.TrimSpace(e.Type)),
		probeID,
		e.Description,
		meta,
	)
	if err != nil {
		return fmt.Errorf("insert event %s: %w", e.Type, err)
	}
	return nil
}

// List returns events matching f in time order. With a limit, the newest events are kept.
func (r *EventSQLite) List(ctx context.Context, f EventFilter) ([]models.ControlEvent, error) {
	var (
		conds []string
		args  []any
	)

	if !f.From.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, formatTime(f.From))
	}
	if !f.To.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, formatTime(f.To))
	}
	if typ := strings.ToUpper(strings.TrimSpace(f.Type)); typ != "" {
		conds = append(conds, "type = ?")
		args = append(args, typ)
	}
	if f.ProbeID != "" {
		conds = append(conds, "probe_id = ?")
		args = append(args, f.ProbeID)
	}

	q := selectEventsSQL
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	if f.Limit > 0 {
		q += " ORDER BY occurred_at DESC LIMIT ?"
		args = append(args, f.Limit)
	} else {
		q += " ORDER BY occurred_at ASC"
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	out := make([]models.ControlEvent, 0, 64)
	for rows.Next() {
		var (
			ev      models.ControlEvent
			at      string
			probeID sql.NullString
			meta    sql.NullString
		)
		if err := rows.Scan(&ev.EventID, &at, &ev.Type, &probeID, &ev.Description, &meta); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if ev.OccurredAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("parse occurred_at %q: %w", at, err)
		}
		ev.ProbeID = probeID.String

		if meta.Valid && meta.String != "" {
			var v any
			if err := json.Unmarshal([]byte(meta.String), &v); err == nil {
				ev.Metadata = v
			} else {
				ev.Metadata = meta.String // keep raw if malformed
			}
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	if f.Limit > 0 {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
