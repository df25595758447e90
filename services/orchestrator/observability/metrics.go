// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the orchestrator.
//
// # Description
//
// Metrics cover chat turns, tool invocations, injection flags, and blob
// store retries. They are exposed on /metrics and registered with the
// default registry via promauto.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const metricsNamespace = "factory"

// =============================================================================
// Metric Definitions
// =============================================================================

var (
	// turnsTotal counts completed chat turns.
	// Labels: status (ok, validation_error, tool_loop_exceeded,
	// upstream_error, storage_unavailable)
	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "chat",
		Name:      "turns_total",
		Help:      "Chat turns by outcome.",
	}, []string{"status"})

	// turnDurationSeconds measures end-to-end turn latency.
	turnDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "chat",
		Name:      "turn_duration_seconds",
		Help:      "End-to-end chat turn duration.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	// toolInvocationsTotal counts tool calls made by the model.
	// Labels: tool, status (ok, error)
	toolInvocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "chat",
		Name:      "tool_invocations_total",
		Help:      "Tool invocations by tool name and outcome.",
	}, []string{"tool", "status"})

	// injectionFlagsTotal counts messages matching injection signatures.
	injectionFlagsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "chat",
		Name:      "injection_flags_total",
		Help:      "Messages that matched a prompt-injection signature.",
	})

	// storageRetriesTotal counts blob store retry attempts.
	// Labels: operation (download, upload, exists)
	storageRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "storage",
		Name:      "retries_total",
		Help:      "Blob store retry attempts by operation.",
	}, []string{"operation"})
)

// =============================================================================
// Recording Helpers
// =============================================================================

// RecordTurn records one finished chat turn.
func RecordTurn(status string, duration time.Duration) {
	turnsTotal.WithLabelValues(status).Inc()
	turnDurationSeconds.Observe(duration.Seconds())
}

// RecordToolInvocation records one tool call.
func RecordToolInvocation(tool string, isError bool) {
	status := "ok"
	if isError {
		status = "error"
	}
	toolInvocationsTotal.WithLabelValues(tool, status).Inc()
}

// RecordInjectionFlag records a message that matched a signature.
func RecordInjectionFlag() {
	injectionFlagsTotal.Inc()
}

// RecordStorageRetry records one blob store retry attempt.
func RecordStorageRetry(operation string) {
	storageRetriesTotal.WithLabelValues(operation).Inc()
}
