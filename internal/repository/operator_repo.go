package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"smoke_controller/internal/models"
)

// ErrOperatorNotFound is returned by Lookup for an unknown username.
var ErrOperatorNotFound = errors.New("operator not found")

// OperatorSQLite keeps the remote API logins in the session database. Rows are only
// ever written by startup seeding, so there is no update or delete.
type OperatorSQLite struct {
	db *sql.DB
}

func NewOperatorSQLite(db *sql.DB) *OperatorSQLite {
	return &OperatorSQLite{db: db}
}

var _ Operators = (*OperatorSQLite)(nil)

const (
	seedOperatorSQL = `INSERT INTO users (username, password_hash) VALUES (?, ?)
ON CONFLICT(username) DO NOTHING`
	lookupOperatorSQL = `SELECT id, username, password_hash FROM users WHERE username = ?`
)

// Seed stores the operator unless the username is already taken. The stored hash of
// an existing operator is left alone; created reports which case happened.
func (r *OperatorSQLite) Seed(ctx context.Context, username, passwordHash string) (bool, error) {
	res, err := r.db.ExecContext(ctx, seedOperatorSQL, username, passwordHash)
	if err != nil {
		return false, fmt.Errorf("seed operator %q: %w", username, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("seed operator %q: rows affected: %w", username, err)
	}
	return n == 1, nil
}

func (r *OperatorSQLite) Lookup(ctx context.Context, username string) (models.User, error) {
	var u models.User
	err := r.db.QueryRowContext(ctx, lookupOperatorSQL, username).Scan(&u.ID, &u.Username, &u.PasswordHash)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return models.User{}, fmt.Errorf("%w: %q", ErrOperatorNotFound, username)
	case err != nil:
		return models.User{}, fmt.Errorf("lookup operator %q: %w", username, err)
	}
	return u, nil
}
