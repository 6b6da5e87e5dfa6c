package metrics

import (
	"fmt"
	"log"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// RecordPublish records the outcome of a channel publish attempt.
// messageType is "photo" or "text", status is "sent" or "failed", errorCode
// is the Telegram HTTP code ("none" when the send succeeded).
func RecordPublish(messageType, status, errorCode string) {
	if !IsEnabled() {
		return
	}

	// VictoriaMetrics/metrics API: include labels in metric name
	metricName := `hrpulse_publish_total{message_type="` + messageType + `",status="` + status + `",error_code="` + errorCode + `"}`
	metrics.GetOrCreateCounter(metricName).Inc()
	log.Printf("[METRICS] Publish: type=%s, status=%s, error=%s", messageType, status, errorCode)
}

// RecordGeneration records whether a draft came from the backend ("ok") or
// from the built-in fallback pool ("fallback").
func RecordGeneration(outcome string) {
	if !IsEnabled() {
		return
	}

	metricName := `hrpulse_generation_total{outcome="` + outcome + `"}`
	metrics.GetOrCreateCounter(metricName).Inc()
	log.Printf("[METRICS] Generation: outcome=%s", outcome)
}

// RecordCallback records a processed approval callback decision.
func RecordCallback(action, status string) {
	if !IsEnabled() {
		return
	}

	metricName := `hrpulse_callback_total{action="` + action + `",status="` + status + `"}`
	metrics.GetOrCreateCounter(metricName).Inc()
	log.Printf("[METRICS] Callback: action=%s, status=%s", action, status)
}

// RecordCycle records a completed scheduled publishing cycle.
func RecordCycle(slot string, duration time.Duration) {
	if !IsEnabled() {
		return
	}

	metrics.GetOrCreateCounter(fmt.Sprintf(`hrpulse_cycles_total{slot=%q}`, slot)).Inc()
	metrics.GetOrCreateHistogram(fmt.Sprintf(`hrpulse_cycle_duration_seconds{slot=%q}`, slot)).Update(duration.Seconds())
	log.Printf("[METRICS] Cycle: slot=%s, duration=%v", slot, duration)
}
