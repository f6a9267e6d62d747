// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "smoke"

var (
	// ProbeTemperature is the last good reading per probe.
	ProbeTemperature = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "probe_temperature_celsius",
			Help:      "Last valid temperature reading per probe.",
		},
		[]string{"probe"},
	)

	// ProbeFaults counts failed reads by probe and fault kind.
	ProbeFaults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_faults_total",
			Help:      "Probe reads that returned a fault.",
		},
		[]string{"probe", "fault"}, // fault: disconnected/out_of_range
	)

	// HistoryRejected counts out-of-order appends dropped by the history store.
	HistoryRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_rejected_total",
			Help:      "Readings rejected because their timestamp precedes the stored tail.",
		},
		[]string{"probe"},
	)

	// FanSpeed is the confirmed fan level (0=off .. 3=fast).
	FanSpeed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fan_speed_level",
			Help:      "Confirmed fan speed level (0=off, 3=fast).",
		},
	)

	// FanFaulted is 1 while the actuator is in a persistent fault.
	FanFaulted = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fan_faulted",
			Help:      "1 while the fan actuator is faulted.",
		},
	)

	// FanCommands counts actuator commands by outcome.
	FanCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fan_commands_total",
			Help:      "Fan actuator command attempts.",
		},
		[]string{"status"}, // status: success/retry/failed
	)

	// FanCommandLatency measures a single actuator command.
	FanCommandLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fan_command_latency_seconds",
			Help:      "Latency of one fan actuator command.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// Decisions counts control decisions by reason.
	Decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Control loop decisions by reason.",
		},
		[]string{"reason"},
	)

	// TargetTemperature is the operator target; NaN-free, 0 while control is disabled.
	TargetTemperature = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "target_temperature_celsius",
			Help:      "Operator target temperature (0 while control is disabled).",
		},
	)

	// EventsDropped counts session log events dropped because the writer fell behind.
	EventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Session log events dropped because the write queue was full.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		ProbeTemperature,
		ProbeFaults,
		HistoryRejected,
		FanSpeed,
		FanFaulted,
		FanCommands,
		FanCommandLatency,
		Decisions,
		TargetTemperature,
		EventsDropped,
	)
}
