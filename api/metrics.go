package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	extractRoute       = "/api/board/extract"
	extractSpanName    = "POST /api/board/extract"
	extractEventName   = "extract.request.metrics"
	extractEventDomain = "kanban"
	tracerName         = "kanban-api/api"
)

// extractRequestMetrics accumulates per-request timings for the extraction
// route and emits them twice on completion: as attributes on an otel span
// and as a structured observability.event log entry.
type extractRequestMetrics struct {
	logger           *log.Logger
	span             trace.Span
	requestID        string
	start            time.Time
	settingsDuration time.Duration
	providerDuration time.Duration
	saveDuration     time.Duration
	provider         string
	draftsInserted   int
	errorStage       string
}

func newExtractRequestMetrics(ctx context.Context, logger *log.Logger) (*extractRequestMetrics, context.Context) {
	tracer := otel.Tracer(tracerName)
	spanCtx, span := tracer.Start(ctx, extractSpanName, trace.WithSpanKind(trace.SpanKindServer))
	return &extractRequestMetrics{
		logger:    logger,
		span:      span,
		requestID: uuid.NewString(),
		start:     time.Now(),
	}, spanCtx
}

func (m *extractRequestMetrics) ObserveSettings(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.settingsDuration = duration
}

func (m *extractRequestMetrics) ObserveProvider(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.providerDuration = duration
}

func (m *extractRequestMetrics) ObserveSave(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.saveDuration = duration
}

func (m *extractRequestMetrics) SetProvider(provider string) {
	m.provider = provider
}

func (m *extractRequestMetrics) SetDraftsInserted(count int) {
	if count < 0 {
		count = 0
	}
	m.draftsInserted = count
}

func (m *extractRequestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

// Log finalizes the span and emits the observability event. It must run
// exactly once per request, after the response status is known.
func (m *extractRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}

	totalMs := durationToMillis(time.Since(m.start))
	severityText, severityNumber := severityForStatus(status, err)

	attrs := []attribute.KeyValue{
		attribute.String("http.route", extractRoute),
		attribute.String("kanban.extract.request_id", m.requestID),
		attribute.Int("http.status_code", status),
		attribute.Float64("kanban.extract.total_ms", totalMs),
		attribute.Int("kanban.extract.drafts_inserted", m.draftsInserted),
	}
	if m.provider != "" {
		attrs = append(attrs, attribute.String("kanban.extract.provider", m.provider))
	}
	if m.settingsDuration > 0 {
		attrs = append(attrs, attribute.Float64("kanban.extract.settings_ms", durationToMillis(m.settingsDuration)))
	}
	if m.providerDuration > 0 {
		attrs = append(attrs, attribute.Float64("kanban.extract.provider_ms", durationToMillis(m.providerDuration)))
	}
	if m.saveDuration > 0 {
		attrs = append(attrs, attribute.Float64("kanban.extract.save_ms", durationToMillis(m.saveDuration)))
	}
	if m.errorStage != "" {
		attrs = append(attrs, attribute.String("kanban.extract.error_stage", m.errorStage))
	}
	if err != nil {
		attrs = append(attrs, attribute.String("error.message", err.Error()))
	}

	if m.span != nil {
		m.span.SetAttributes(attrs...)
		eventAttrs := append([]attribute.KeyValue{
			attribute.String("event.name", extractEventName),
			attribute.String("event.domain", extractEventDomain),
			attribute.String("severity_text", severityText),
			attribute.Int("severity_number", severityNumber),
		}, attrs...)
		m.span.AddEvent("observability.event", trace.WithAttributes(eventAttrs...))
		if err != nil || status >= http.StatusInternalServerError {
			desc := "request failed"
			if err != nil {
				desc = err.Error()
			}
			m.span.SetStatus(codes.Error, desc)
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}

	attrMap := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		attrMap[string(kv.Key)] = kv.Value.AsInterface()
	}
	fields := log.Fields{
		"event.name":      extractEventName,
		"event.domain":    extractEventDomain,
		"attributes":      attrMap,
		"severity_text":   severityText,
		"severity_number": severityNumber,
	}
	if m.span != nil {
		if sc := m.span.SpanContext(); sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
			fields["span_id"] = sc.SpanID().String()
		}
	}
	m.logger.WithFields(fields).Info("observability.event")
}

// severityForStatus maps an HTTP outcome onto OpenTelemetry log severity.
func severityForStatus(status int, err error) (string, int) {
	switch {
	case err != nil || status >= http.StatusInternalServerError:
		return "ERROR", 17
	case status >= http.StatusBadRequest:
		return "WARN", 13
	default:
		return "INFO", 9
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
