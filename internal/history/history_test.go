package history

import (
	"errors"
	"sync"
	"testing"
	"time"

	"smoke_controller/internal/models"
)

var base = time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)

func reading(id string, sec int, temp float64) models.Reading {
	return models.Reading{ProbeID: id, TempC: temp, At: base.Add(time.Duration(sec) * time.Second), Valid: true}
}

func TestAppend_KeepsTimeOrderAndRejectsOlder(t *testing.T) {
	s := NewStore([]string{"pit"}, Options{MaxSamples: 10}, nil)

	for _, sec := range []int{0, 5, 5, 9} {
		if err := s.Append(reading("pit", sec, float64(sec))); err != nil {
			t.Fatalf("append %d: %v", sec, err)
		}
	}

	err := s.Append(reading("pit", 3, 999))
	if !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("expected ErrOutOfOrder, got %v", err)
	}

	got := s.Recent("pit", 10)
	if len(got) != 4 {
		t.Fatalf("expected 4 readings, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].At.Before(got[i-1].At) {
			t.Fatalf("readings out of order at %d: %v", i, got)
		}
	}
	if got[len(got)-1].TempC != 9 {
		t.Fatalf("rejected reading altered the tail: %+v", got[len(got)-1])
	}
}

func TestAppend_UnknownProbe(t *testing.T) {
	s := NewStore([]string{"pit"}, Options{}, nil)
	if err := s.Append(reading("food", 0, 1)); !errors.Is(err, ErrUnknownProbe) {
		t.Fatalf("expected ErrUnknownProbe, got %v", err)
	}
	if s.Recent("food", 3) != nil {
		t.Fatalf("expected nil for unknown probe")
	}
}

func TestRecent_PartialWindow(t *testing.T) {
	s := NewStore([]string{"pit"}, Options{MaxSamples: 10}, nil)
	if got := s.Recent("pit", 3); len(got) != 0 {
		t.Fatalf("expected empty history, got %d", len(got))
	}
	_ = s.Append(reading("pit", 0, 100))
	_ = s.Append(reading("pit", 1, 101))

	got := s.Recent("pit", 5)
	if len(got) != 2 || got[0].TempC != 100 || got[1].TempC != 101 {
		t.Fatalf("unexpected recent: %+v", got)
	}
}

func TestEviction_CountBound(t *testing.T) {
	s := NewStore([]string{"pit"}, Options{MaxSamples: 5, MinKeep: 3}, nil)
	for i := 0; i < 23; i++ {
		if err := s.Append(reading("pit", i, float64(i))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if n := s.Len("pit"); n != 5 {
		t.Fatalf("expected 5 retained, got %d", n)
	}
	got := s.Recent("pit", 5)
	if got[0].TempC != 18 || got[4].TempC != 22 {
		t.Fatalf("unexpected retained range: %+v", got)
	}
}

func TestEviction_RetentionNeverDropsMinKeep(t *testing.T) {
	s := NewStore([]string{"pit"}, Options{MaxSamples: 100, Retention: 10 * time.Second, MinKeep: 3}, nil)

	// sparse readings: each one is older than retention relative to the next
	for i := 0; i < 5; i++ {
		_ = s.Append(reading("pit", i*60, float64(i)))
	}
	if n := s.Len("pit"); n != 3 {
		t.Fatalf("expected MinKeep=3 readings to survive, got %d", n)
	}

	// dense readings: the old sparse ones age out once enough fresh ones exist
	for i := 0; i < 5; i++ {
		_ = s.Append(reading("pit", 300+i, float64(100+i)))
	}
	got := s.Recent("pit", 100)
	for _, r := range got {
		if r.TempC < 100 {
			t.Fatalf("expected stale readings evicted, found %+v", r)
		}
	}
}

func TestWindow_TrailingDuration(t *testing.T) {
	now := base.Add(60 * time.Second)
	s := NewStore([]string{"pit"}, Options{MaxSamples: 100, Clock: func() time.Time { return now }}, nil)
	for i := 0; i <= 60; i += 10 {
		_ = s.Append(reading("pit", i, float64(i)))
	}

	got := s.Window("pit", 25*time.Second)
	if len(got) != 3 {
		t.Fatalf("expected 3 readings in window, got %d: %+v", len(got), got)
	}
	if got[0].TempC != 40 {
		t.Fatalf("window should start at 40, got %v", got[0].TempC)
	}

	if got := s.Window("pit", time.Second); len(got) != 1 {
		t.Fatalf("expected only the newest reading, got %d", len(got))
	}

	now = base.Add(time.Hour)
	if got := s.Window("pit", time.Minute); got != nil {
		t.Fatalf("expected empty window, got %+v", got)
	}
}

func TestRecent_ReturnsCopy(t *testing.T) {
	s := NewStore([]string{"pit"}, Options{MaxSamples: 4}, nil)
	_ = s.Append(reading("pit", 0, 50))

	got := s.Recent("pit", 1)
	got[0].TempC = -1

	latest, ok := s.Latest("pit")
	if !ok || latest.TempC != 50 {
		t.Fatalf("caller mutation leaked into store: %+v", latest)
	}
}

func TestConcurrentAppendAndRead(t *testing.T) {
	s := NewStore([]string{"pit"}, Options{MaxSamples: 8, MinKeep: 3}, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 2000; i++ {
			_ = s.Append(reading("pit", i, float64(i)))
		}
	}()

	for i := 0; i < 2000; i++ {
		got := s.Recent("pit", 8)
		for j := 1; j < len(got); j++ {
			if got[j].TempC != got[j-1].TempC+1 {
				t.Fatalf("torn view: %+v", got)
			}
		}
	}
	wg.Wait()

	latest, _ := s.Latest("pit")
	if latest.TempC != 1999 {
		t.Fatalf("expected final reading 1999, got %v", latest.TempC)
	}
}
