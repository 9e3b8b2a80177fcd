package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

type operationObserver struct {
	prefix          string
	logger          Logger
	metricsRecorder MetricsRecorder
}

func (o operationObserver) observe(
	ctx context.Context,
	startedAt time.Time,
	operation string,
	err error,
	fields map[string]any,
) {
	operation = normalizeOperation(operation)
	if operation == "" {
		operation = "unknown"
	}
	status := "success"
	if err != nil {
		status = "failure"
	}

	contextFields := RedactSensitiveMap(fields)
	contextFields["event_type"] = operation
	contextFields["status"] = status
	contextFields["duration_ms"] = time.Since(startedAt).Milliseconds()
	if err != nil {
		contextFields["error"] = err.Error()
	}

	tags := map[string]string{
		"operation": operation,
		"status":    status,
	}
	for _, key := range []string{"payment_id", "callback"} {
		if value := strings.TrimSpace(fmt.Sprint(contextFields[key])); value != "" && value != "<nil>" {
			tags[key] = value
		}
	}

	o.recordCounter(ctx, o.metricName(operation, "total"), 1, tags)
	o.recordHistogram(ctx, o.metricName(operation, "duration_ms"), float64(time.Since(startedAt).Milliseconds()), tags)

	if err != nil {
		o.logError(ctx, operation+" failed", contextFields)
		return
	}
	o.logInfo(ctx, operation+" succeeded", contextFields)
}

// observeCallback records the outcome of an outbound callback. Failures are
// logged and counted only.
func (o operationObserver) observeCallback(ctx context.Context, kind string, err error, fields map[string]any) {
	kind = normalizeOperation(kind)
	status := "success"
	if err != nil {
		status = "failure"
	}
	o.recordCounter(ctx, o.metricName("callback."+kind, "total"), 1, map[string]string{
		"callback": kind,
		"status":   status,
	})
	if err == nil {
		return
	}
	logFields := RedactSensitiveMap(fields)
	logFields["callback"] = kind
	logFields["error"] = err.Error()
	o.logError(ctx, "callback "+kind+" failed", logFields)
}

func (o operationObserver) metricName(operation string, suffix string) string {
	prefix := strings.TrimSpace(o.prefix)
	if prefix == "" {
		prefix = "connector"
	}
	return prefix + "." + operation + "." + suffix
}

func (o operationObserver) logInfo(ctx context.Context, message string, fields map[string]any) {
	o.logWithLevel(ctx, "info", message, fields)
}

func (o operationObserver) logError(ctx context.Context, message string, fields map[string]any) {
	o.logWithLevel(ctx, "error", message, fields)
}

func (o operationObserver) logWithLevel(ctx context.Context, level string, message string, fields map[string]any) {
	if o.logger == nil {
		return
	}
	logger := o.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	args := flattenFields(fields)
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		logger.Error(message, args...)
	default:
		logger.Info(message, args...)
	}
}

func (o operationObserver) recordCounter(ctx context.Context, name string, value int64, tags map[string]string) {
	if o.metricsRecorder == nil {
		return
	}
	o.metricsRecorder.IncCounter(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func (o operationObserver) recordHistogram(ctx context.Context, name string, value float64, tags map[string]string) {
	if o.metricsRecorder == nil {
		return
	}
	o.metricsRecorder.ObserveHistogram(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func cloneFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	copied := make(map[string]any, len(fields))
	for key, value := range fields {
		copied[key] = value
	}
	return copied
}

func flattenFields(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return args
}

func normalizeOperation(operation string) string {
	operation = strings.TrimSpace(strings.ToLower(operation))
	operation = strings.ReplaceAll(operation, " ", "_")
	operation = strings.ReplaceAll(operation, "-", "_")
	return operation
}
