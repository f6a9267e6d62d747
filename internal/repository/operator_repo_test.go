package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockOperators(t *testing.T) (*OperatorSQLite, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("mock expectations: %v", err)
		}
		_ = db.Close()
	})
	return NewOperatorSQLite(db), mock
}

func TestOperatorSeed(t *testing.T) {
	tests := []struct {
		name        string
		result      func(m sqlmock.Sqlmock)
		wantCreated bool
		wantErr     bool
	}{
		{
			name: "new operator",
			result: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(seedOperatorSQL)).
					WithArgs("pitmaster", "h1").
					WillReturnResult(sqlmock.NewResult(1, 1))
			},
			wantCreated: true,
		},
		{
			name: "username already seeded",
			result: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(seedOperatorSQL)).
					WithArgs("pitmaster", "h1").
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
		},
		{
			name: "session db unavailable",
			result: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(seedOperatorSQL)).
					WithArgs("pitmaster", "h1").
					WillReturnError(errors.New("database is locked"))
			},
			wantErr: true,
		},
		{
			name: "driver cannot count rows",
			result: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(seedOperatorSQL)).
					WithArgs("pitmaster", "h1").
					WillReturnResult(sqlmock.NewErrorResult(errors.New("no rows affected")))
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newMockOperators(t)
			tc.result(mock)

			created, err := repo.Seed(context.Background(), "pitmaster", "h1")
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v; wantErr %v", err, tc.wantErr)
			}
			if created != tc.wantCreated {
				t.Fatalf("created = %v; want %v", created, tc.wantCreated)
			}
		})
	}
}

func TestOperatorLookup(t *testing.T) {
	t.Run("seeded operator", func(t *testing.T) {
		repo, mock := newMockOperators(t)
		mock.ExpectQuery(regexp.QuoteMeta(lookupOperatorSQL)).
			WithArgs("pitmaster").
			WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash"}).AddRow(3, "pitmaster", "h1"))

		u, err := repo.Lookup(context.Background(), "pitmaster")
		if err != nil {
			t.Fatalf("lookup: %v", err)
		}
		if u.ID != 3 || u.Username != "pitmaster" || u.PasswordHash != "h1" {
			t.Fatalf("operator = %+v", u)
		}
	})

	t.Run("unknown username", func(t *testing.T) {
		repo, mock := newMockOperators(t)
		mock.ExpectQuery(regexp.QuoteMeta(lookupOperatorSQL)).
			WithArgs("ghost").
			WillReturnError(sql.ErrNoRows)

		if _, err := repo.Lookup(context.Background(), "ghost"); !errors.Is(err, ErrOperatorNotFound) {
			t.Fatalf("err = %v; want ErrOperatorNotFound", err)
		}
	})

	t.Run("query failure is not a missing operator", func(t *testing.T) {
		repo, mock := newMockOperators(t)
		mock.ExpectQuery(regexp.QuoteMeta(lookupOperatorSQL)).
			WithArgs("pitmaster").
			WillReturnError(errors.New("disk I/O error"))

		_, err := repo.Lookup(context.Background(), "pitmaster")
		if err == nil || errors.Is(err, ErrOperatorNotFound) {
			t.Fatalf("err = %v; want a wrapped query error", err)
		}
	})
}
