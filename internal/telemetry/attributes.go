// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	// Monitoring session attributes
	SessionIDKey          = "session.id"
	SessionSensitivityKey = "session.sensitivity"
	SessionCameraKey      = "session.camera"
	SessionIntervalKey    = "session.interval_s"
	SessionStopReasonKey  = "session.stop_reason"

	// Analyzer process attributes
	AnalyzerPIDKey    = "analyzer.pid"
	AnalyzerScriptKey = "analyzer.script"

	// Posture state attributes
	StateFromKey = "posture.state_from"
	StateToKey   = "posture.state_to"

	// Alert attributes
	AlertKindKey  = "alert.kind"
	AlertTitleKey = "alert.title"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// SessionAttributes creates monitoring-session span attributes.
func SessionAttributes(id string, sensitivity, interval float64, camera int) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 4)
	if id != "" {
		attrs = append(attrs, attribute.String(SessionIDKey, id))
	}
	attrs = append(attrs,
		attribute.Float64(SessionSensitivityKey, sensitivity),
		attribute.Float64(SessionIntervalKey, interval),
		attribute.Int(SessionCameraKey, camera),
	)
	return attrs
}

// AnalyzerAttributes creates analyzer-process span attributes.
func AnalyzerAttributes(pid int, script string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AnalyzerPIDKey, pid),
		attribute.String(AnalyzerScriptKey, script),
	}
}

// StateAttributes creates posture state transition span attributes.
func StateAttributes(from, to string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(StateFromKey, from),
		attribute.String(StateToKey, to),
	}
}

// AlertAttributes creates alert span attributes.
func AlertAttributes(kind, title string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AlertKindKey, kind),
		attribute.String(AlertTitleKey, title),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
