// Package history keeps a bounded, per-probe time series of readings.
//
// Each probe has a single writer (its probe worker) and any number of readers. A writer
// fills slots past the published tail and then swaps in a new slice header, so readers
// never wait on a write and never observe a partially written reading.
package history

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"smoke_controller/internal/logger"
	"smoke_controller/internal/metrics"
	"smoke_controller/internal/models"
)

var (
	ErrUnknownProbe = errors.New("unknown probe")
	ErrOutOfOrder   = errors.New("reading precedes the last stored reading")
)

const defaultMaxSamples = 720

// Options bounds retention.
type Options struct {
	MaxSamples int           // hard cap per probe
	Retention  time.Duration // drop readings older than newest-Retention; 0 disables
	MinKeep    int           // most recent readings that are never evicted
	Clock      func() time.Time
}

func (o Options) normalized() Options {
	if o.MaxSamples <= 0 {
		o.MaxSamples = defaultMaxSamples
	}
	if o.MinKeep < 1 {
		o.MinKeep = 1
	}
	if o.MaxSamples < o.MinKeep {
		o.MaxSamples = o.MinKeep
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

type series struct {
	mu      sync.Mutex // serializes writers; readers only touch view
	backing []models.Reading
	start   int
	end     int
	view    atomic.Pointer[[]models.Reading]
}

// Store is the history of every configured probe. The probe set is fixed at construction.
type Store struct {
	series map[string]*series
	opts   Options
	log    *logger.Logger
}

// NewStore creates empty histories for the given probe ids.
func NewStore(probeIDs []string, opts Options, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	opts = opts.normalized()
	s := &Store{
		series: make(map[string]*series, len(probeIDs)),
		opts:   opts,
		log:    log,
	}
	for _, id := range probeIDs {
		s.series[id] = &series{backing: make([]models.Reading, 2*opts.MaxSamples)}
	}
	return s
}

// Append stores r at the tail of its probe's history. A reading older than the current
// tail is rejected and the stored sequence is left untouched.
func (s *Store) Append(r models.Reading) error {
	sr, ok := s.series[r.ProbeID]
	if !ok {
		return fmt.Errorf("append %q: %w", r.ProbeID, ErrUnknownProbe)
	}
	if err := sr.append(r, s.opts); err != nil {
		metrics.HistoryRejected.WithLabelValues(r.ProbeID).Inc()
		s.log.Warnw("history_append_rejected", "probe", r.ProbeID, "at", r.At, "err", err)
		return err
	}
	return nil
}

func (sr *series) append(r models.Reading, opts Options) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	if sr.end > sr.start {
		last := sr.backing[sr.end-1]
		if r.At.Before(last.At) {
			return fmt.Errorf("%w: %s < %s", ErrOutOfOrder, r.At.Format(time.RFC3339Nano), last.At.Format(time.RFC3339Nano))
		}
	}

	// Out of room: move the retained tail into a fresh array. Published views keep
	// pointing at the old one, which is never written again.
	if sr.end == len(sr.backing) {
		n := sr.end - sr.start
		next := make([]models.Reading, 2*opts.MaxSamples)
		copy(next, sr.backing[sr.start:sr.end])
		sr.backing, sr.start, sr.end = next, 0, n
	}

	sr.backing[sr.end] = r
	sr.end++
	sr.evict(r.At, opts)

	v := sr.backing[sr.start:sr.end:sr.end]
	sr.view.Store(&v)
	return nil
}

func (sr *series) evict(newest time.Time, opts Options) {
	for sr.end-sr.start > opts.MaxSamples {
		sr.start++
	}
	if opts.Retention <= 0 {
		return
	}
	cutoff := newest.Add(-opts.Retention)
	for sr.end-sr.start > opts.MinKeep && sr.backing[sr.start].At.Before(cutoff) {
		sr.start++
	}
}

func (s *Store) load(id string) []models.Reading {
	sr, ok := s.series[id]
	if !ok {
		return nil
	}
	v := sr.view.Load()
	if v == nil {
		return nil
	}
	return *v
}

// Recent returns up to n most recent readings in time order.
func (s *Store) Recent(id string, n int) []models.Reading {
	v := s.load(id)
	if n <= 0 || len(v) == 0 {
		return nil
	}
	if n > len(v) {
		n = len(v)
	}
	out := make([]models.Reading, n)
	copy(out, v[len(v)-n:])
	return out
}

// Window returns the readings taken within the trailing duration d.
func (s *Store) Window(id string, d time.Duration) []models.Reading {
	v := s.load(id)
	if d <= 0 || len(v) == 0 {
		return nil
	}
	cutoff := s.opts.Clock().Add(-d)
	i := sort.Search(len(v), func(i int) bool { return !v[i].At.Before(cutoff) })
	if i == len(v) {
		return nil
	}
	out := make([]models.Reading, len(v)-i)
	copy(out, v[i:])
	return out
}

// Latest returns the newest reading for the probe.
func (s *Store) Latest(id string) (models.Reading, bool) {
	v := s.load(id)
	if len(v) == 0 {
		return models.Reading{}, false
	}
	return v[len(v)-1], true
}

// Len reports how many readings are currently retained for the probe.
func (s *Store) Len(id string) int {
	return len(s.load(id))
}

// Has reports whether the probe id is known to the store.
func (s *Store) Has(id string) bool {
	_, ok := s.series[id]
	return ok
}
