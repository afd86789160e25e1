package api

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName        = "taskmanager/api"
	requestLogMessage = "tasks.request"
	tasksRoute        = "/api/tasks"
	taskRoute         = "/api/tasks/:id"
)

// requestMetrics records one API call as a log entry and a span.
type requestMetrics struct {
	logger        *log.Logger
	span          trace.Span
	operation     string
	method        string
	route         string
	start         time.Time
	storeDuration time.Duration
	taskID        string
	tasksReturned int
	errorStage    string
	err           error
}

func newRequestMetrics(ctx context.Context, logger *log.Logger, operation, method, route string) (*requestMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, "tasks."+operation, trace.WithSpanKind(trace.SpanKindServer))
	return &requestMetrics{
		logger:        logger,
		span:          span,
		operation:     operation,
		method:        method,
		route:         route,
		start:         time.Now(),
		tasksReturned: -1,
	}, spanCtx
}

func (m *requestMetrics) ObserveStore(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.storeDuration += duration
}

func (m *requestMetrics) SetTaskID(id string) {
	m.taskID = id
}

func (m *requestMetrics) SetTasksReturned(count int) {
	if count < 0 {
		count = 0
	}
	m.tasksReturned = count
}

// Fail records the stage that failed. err is kept for the log entry and the
// span only; it never reaches the response body.
func (m *requestMetrics) Fail(stage string, err error) {
	if stage != "" {
		m.errorStage = stage
	}
	if err != nil {
		m.err = err
	}
}

func (m *requestMetrics) Log(status int) {
	if m == nil {
		return
	}

	total := durationToMillis(time.Since(m.start))
	attrs := []attribute.KeyValue{
		attribute.String("http.route", m.route),
		attribute.String("http.method", m.method),
		attribute.Int("http.status_code", status),
		attribute.String("tasks.operation", m.operation),
		attribute.Float64("tasks.total_ms", total),
	}
	fields := log.Fields{
		"route":     m.route,
		"method":    m.method,
		"operation": m.operation,
		"status":    status,
		"total_ms":  total,
	}

	if m.storeDuration > 0 {
		ms := durationToMillis(m.storeDuration)
		fields["store_ms"] = ms
		attrs = append(attrs, attribute.Float64("tasks.store_ms", ms))
	}
	if m.taskID != "" {
		fields["task_id"] = m.taskID
		attrs = append(attrs, attribute.String("tasks.task_id", m.taskID))
	}
	if m.tasksReturned >= 0 {
		fields["tasks_returned"] = m.tasksReturned
		attrs = append(attrs, attribute.Int("tasks.returned", m.tasksReturned))
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
		attrs = append(attrs, attribute.String("tasks.error_stage", m.errorStage))
	}
	if m.err != nil {
		fields["error"] = m.err.Error()
		attrs = append(attrs, attribute.String("error.message", m.err.Error()))
	}

	level := levelForStatus(status, m.err)
	if m.span != nil {
		if sc := m.span.SpanContext(); sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
			fields["span_id"] = sc.SpanID().String()
		}
		m.span.SetAttributes(attrs...)
		m.span.AddEvent(requestLogMessage, trace.WithAttributes(attribute.String("severity_text", severityText(level))))
		if level == log.ErrorLevel {
			if m.err != nil {
				m.span.RecordError(m.err)
			}
			m.span.SetStatus(codes.Error, http.StatusText(status))
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger != nil {
		m.logger.WithFields(fields).Log(level, requestLogMessage)
	}
}

func levelForStatus(status int, err error) log.Level {
	switch {
	case err != nil || status >= http.StatusInternalServerError || status == 0:
		return log.ErrorLevel
	case status >= http.StatusBadRequest:
		return log.WarnLevel
	default:
		return log.InfoLevel
	}
}

func severityText(level log.Level) string {
	switch level {
	case log.ErrorLevel:
		return "ERROR"
	case log.WarnLevel:
		return "WARN"
	default:
		return "INFO"
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
