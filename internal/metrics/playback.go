// Package metrics exposes Prometheus counters for the playback core.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sourceSelectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcore_source_selected_total",
		Help: "Sources activated by kind and platform",
	}, []string{"kind", "platform"})

	fallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcore_fallback_total",
		Help: "One-time source demotions by failed kind",
	}, []string{"from"})

	retryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcore_retry_total",
		Help: "Element reloads after a fatal error by error kind",
	}, []string{"kind"})

	stallRecoveryTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playcore_stall_recovery_total",
		Help: "Element reloads triggered by stall detection",
	})

	outcomeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcore_outcome_total",
		Help: "Host-visible outcome transitions",
	}, []string{"outcome"})

	dubAttachTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcore_dub_attach_total",
		Help: "Dubbed audio attach attempts by result",
	}, []string{"result"})

	sdkLoadTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcore_sdk_load_total",
		Help: "Embedded player SDK script loads by platform and result",
	}, []string{"platform", "result"})
)

// RecordSourceSelected counts an adapter activation.
func RecordSourceSelected(kind, platform string) {
	sourceSelectedTotal.WithLabelValues(normalizeKind(kind), normalizePlatform(platform)).Inc()
}

// RecordFallback counts a demotion away from the failed kind.
func RecordFallback(from string) {
	fallbackTotal.WithLabelValues(normalizeKind(from)).Inc()
}

// RecordRetry counts a scheduled element reload.
func RecordRetry(kind string) {
	retryTotal.WithLabelValues(normalizeErrorKind(kind)).Inc()
}

// RecordStallRecovery counts a stall-triggered reload.
func RecordStallRecovery() {
	stallRecoveryTotal.Inc()
}

// RecordOutcome counts a host outcome transition.
func RecordOutcome(outcome string) {
	outcomeTotal.WithLabelValues(normalizeOutcome(outcome)).Inc()
}

// RecordDubAttach counts a dubbed track attach by result ("ok" or "failed").
func RecordDubAttach(ok bool) {
	result := "failed"
	if ok {
		result = "ok"
	}
	dubAttachTotal.WithLabelValues(result).Inc()
}

// RecordSDKLoad counts an SDK script fetch.
func RecordSDKLoad(platform string, ok bool) {
	result := "failed"
	if ok {
		result = "ok"
	}
	sdkLoadTotal.WithLabelValues(normalizePlatform(platform), result).Inc()
}

func normalizeKind(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "hosted-mp4", "direct-mp4", "mobile-mp4", "embed":
		return strings.ToLower(strings.TrimSpace(kind))
	default:
		return "unknown"
	}
}

func normalizePlatform(platform string) string {
	switch strings.ToLower(strings.TrimSpace(platform)) {
	case "youtube", "vimeo", "dailymotion", "streamable", "generic":
		return strings.ToLower(strings.TrimSpace(platform))
	case "":
		return "none"
	default:
		return "unknown"
	}
}

func normalizeErrorKind(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "aborted", "network", "decode", "source_unsupported":
		return strings.ToLower(strings.TrimSpace(kind))
	default:
		return "unknown"
	}
}

func normalizeOutcome(outcome string) string {
	switch strings.ToLower(strings.TrimSpace(outcome)) {
	case "playing", "recovering", "unavailable":
		return strings.ToLower(strings.TrimSpace(outcome))
	default:
		return "unknown"
	}
}
