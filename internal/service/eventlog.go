package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"smoke_controller/internal/logger"
	"smoke_controller/internal/metrics"
	"smoke_controller/internal/models"
	"smoke_controller/internal/repository"

	"github.com/google/uuid"
)

const (
	defaultEventBuffer = 256
	drainTimeout       = 5 * time.Second
)

// EventLogService persists session events written by the workers and the loop.
// Record never blocks the caller; a single writer goroutine owns the repository.
type EventLogService struct {
	eventRepo repository.EventRepo
	queue     chan models.ControlEvent
	log       *logger.Logger
	now       func() time.Time
}

func NewEventLogService(eventRepo repository.EventRepo, buffer int, log *logger.Logger) *EventLogService {
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}
	if log == nil {
		log = logger.Nop()
	}
	return &EventLogService{
		eventRepo: eventRepo,
		queue:     make(chan models.ControlEvent, buffer),
		log:       log.Named("eventlog"),
		now:       time.Now,
	}
}

var (
	errInvalidTimeRange = errors.New("invalid time range: From must be <= To")
)

// Record queues e for persistence. When the queue is full the event is dropped.
func (s *EventLogService) Record(e models.ControlEvent) {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = s.now().UTC()
	}
	select {
	case s.queue <- e:
	default:
		metrics.EventsDropped.Inc()
		s.log.Warnw("event_dropped", "type", e.Type, "probe", e.ProbeID)
	}
}

// Run writes queued events until ctx is done, then drains what is left.
func (s *EventLogService) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.drain()
			return nil
		case e := <-s.queue:
			s.write(ctx, e)
		}
	}
}

func (s *EventLogService) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case e := <-s.queue:
			s.write(ctx, e)
		default:
			return
		}
	}
}

func (s *EventLogService) write(ctx context.Context, e models.ControlEvent) {
	if err := s.eventRepo.Append(ctx, e); err != nil {
		s.log.Errorw("event_persist_failed", "type", e.Type, "event_id", e.EventID, "error", err)
	}
}

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeEventType trims spaces and uppercases the event type filter.
func normalizeEventType(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

// normalizeAndValidateFilter prepares query parameters and validates the time range.
func normalizeAndValidateFilter(f LogFilter) (repository.EventFilter, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)

	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return repository.EventFilter{}, errInvalidTimeRange
	}
	limit := f.Limit
	if limit < 0 {
		limit = 0
	}

	return repository.EventFilter{
		From:    from,
		To:      to,
		Type:    normalizeEventType(f.Type),
		ProbeID: strings.TrimSpace(f.ProbeID),
		Limit:   limit,
	}, nil
}

func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.ControlEvent, error) {
	rf, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.eventRepo.List(ctx, rf)
}
