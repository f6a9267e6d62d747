package repository

import (
	"context"
	"database/sql"
	"time"

	"smoke_controller/internal/models"
)

// Operators stores the remote API logins seeded from configuration.
type Operators interface {
	Seed(ctx context.Context, username, hash string) (created bool, err error)
	Lookup(ctx context.Context, username string) (models.User, error)
}

// EventFilter narrows a session log query. Zero fields do not filter.
type EventFilter struct {
	From    time.Time
	To      time.Time
	Type    string
	ProbeID string
	Limit   int // most recent N when > 0
}

// EventRepo is the session event log.
type EventRepo interface {
	Append(ctx context.Context, e models.ControlEvent) error
	List(ctx context.Context, f EventFilter) ([]models.ControlEvent, error)
}

type Repository struct {
	EventRepo EventRepo
	Operators Operators
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		EventRepo: NewEventSQLite(db),
		Operators: NewOperatorSQLite(db),
	}
}
