// Copyright (c) 2025 VocalBridge
//
// Licensed under the MIT License. See LICENSE for details.

package internal_metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the bridge.
type Metrics struct {
	// Session metrics
	SessionsStarted prometheus.Counter
	SessionsEnded   prometheus.Counter
	SessionFailures prometheus.Counter
	ActiveSessions  prometheus.Gauge
	SessionDuration prometheus.Histogram

	// Relay metrics
	InboundFrames  prometheus.Counter
	OutboundFrames prometheus.Counter
	RelayErrors    prometheus.Counter
	ToolCalls      prometheus.Counter

	// Capture metrics
	CaptureBytes        prometheus.Counter
	ConversionSuccesses prometheus.Counter
	ConversionFailures  prometheus.Counter
}

// NewMetrics creates and registers all bridge metrics on the given
// registerer. Pass prometheus.DefaultRegisterer in production; tests use a
// fresh registry to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_sessions_started_total",
			Help: "Total number of call sessions started",
		}),
		SessionsEnded: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_sessions_ended_total",
			Help: "Total number of call sessions ended",
		}),
		SessionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_session_failures_total",
			Help: "Total number of sessions that never started relaying",
		}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bridge_active_sessions",
			Help: "Current number of active call sessions",
		}),
		SessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bridge_session_duration_seconds",
			Help:    "Duration of call sessions",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),

		InboundFrames: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_inbound_frames_total",
			Help: "Total number of media frames relayed from telephony to the AI session",
		}),
		OutboundFrames: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_outbound_frames_total",
			Help: "Total number of audio deltas relayed from the AI session to telephony",
		}),
		RelayErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_relay_errors_total",
			Help: "Total number of per-message relay errors (logged and skipped)",
		}),
		ToolCalls: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_tool_calls_total",
			Help: "Total number of tool calls dispatched",
		}),

		CaptureBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_capture_bytes_total",
			Help: "Total number of raw audio bytes captured",
		}),
		ConversionSuccesses: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_conversions_success_total",
			Help: "Total number of successful capture conversions",
		}),
		ConversionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_conversions_failure_total",
			Help: "Total number of failed capture conversions",
		}),
	}
}
