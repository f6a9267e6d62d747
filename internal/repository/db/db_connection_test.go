package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"smoke_controller/internal/models"
	"smoke_controller/internal/repository"
)

func TestInitDB_InMemorySessionLog(t *testing.T) {
	conn, err := InitDB("file:" + t.Name() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	defer conn.Close()

	repos := repository.NewRepository(conn)
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	for i, typ := range []string{models.EventControlEnabled, models.EventProbeFault, models.EventProbeRecovered} {
		err := repos.EventRepo.Append(ctx, models.ControlEvent{
			OccurredAt:  base.Add(time.Duration(i) * time.Minute),
			Type:        typ,
			ProbeID:     "pit",
			Description: typ,
		})
		if err != nil {
			t.Fatalf("append %s: %v", typ, err)
		}
	}

	all, err := repos.EventRepo.List(ctx, repository.EventFilter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("list all: %d %v", len(all), err)
	}
	if all[0].Type != models.EventControlEnabled || !all[0].OccurredAt.Equal(base) {
		t.Fatalf("first event: %+v", all[0])
	}

	last, err := repos.EventRepo.List(ctx, repository.EventFilter{Limit: 2})
	if err != nil || len(last) != 2 || last[1].Type != models.EventProbeRecovered {
		t.Fatalf("limit: %+v %v", last, err)
	}

	faults, err := repos.EventRepo.List(ctx, repository.EventFilter{Type: models.EventProbeFault, From: base.Add(30 * time.Second)})
	if err != nil || len(faults) != 1 {
		t.Fatalf("filtered: %+v %v", faults, err)
	}

	created, err := repos.Operators.Seed(ctx, "pitmaster", "hash")
	if err != nil || !created {
		t.Fatalf("seed operator: %v %v", created, err)
	}
	// a second seed with a new password must not overwrite the stored one
	created, err = repos.Operators.Seed(ctx, "pitmaster", "other")
	if err != nil || created {
		t.Fatalf("reseed operator: %v %v", created, err)
	}
	u, err := repos.Operators.Lookup(ctx, "pitmaster")
	if err != nil || u.ID == 0 || u.PasswordHash != "hash" {
		t.Fatalf("lookup operator: %+v %v", u, err)
	}
	if _, err := repos.Operators.Lookup(ctx, "ghost"); !errors.Is(err, repository.ErrOperatorNotFound) {
		t.Fatalf("lookup unknown operator: %v", err)
	}
}
