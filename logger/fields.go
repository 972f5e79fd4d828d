package logger

import (
	"fmt"
	"time"
)

// Field keys shared across the service.
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldTraceID   = "trace_id"
	FieldSpanID    = "span_id"
	FieldRunID     = "run_id"
	FieldFile      = "file"
	FieldIndex     = "index"
	FieldStatus    = "status"
	FieldOperation = "op"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
)

// Fields pairs up alternating keys and values. A trailing key without a
// value is dropped; non-string keys are formatted with fmt.
//
//	log.Info("run created", logger.Fields(logger.FieldRunID, id, "files", n))
func Fields(kv ...any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 1; i < len(kv); i += 2 {
		key, ok := kv[i-1].(string)
		if !ok {
			key = fmt.Sprint(kv[i-1])
		}
		m[key] = kv[i]
	}
	return m
}

// ErrorFields describes a failed operation.
func ErrorFields(op string, err error) map[string]any {
	return map[string]any{FieldOperation: op, FieldError: err.Error()}
}

// DurationFields describes a timed operation.
func DurationFields(op string, d time.Duration) map[string]any {
	return map[string]any{FieldOperation: op, FieldDuration: d.Milliseconds()}
}
