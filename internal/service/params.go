package service

import "time"

// LogFilter supports session log filtering by time range, type and probe.
type LogFilter struct {
	From    time.Time // inclusive; zero means no lower bound
	To      time.Time // inclusive; zero means no upper bound
	Type    string    // "", "PROBE_FAULT", "SPEED_CHANGE", ...
	ProbeID string
	Limit   int // newest N events; 0 means all
}

// HistoryQuery selects readings either by count or by trailing window, not both.
type HistoryQuery struct {
	N      int
	Window time.Duration
}
