package observability

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/yungbote/trainforge-backend/internal/platform/logger"
)

const meterName = "github.com/yungbote/trainforge-backend"

// Metrics holds the service instruments. A nil *Metrics is a valid no-op.
type Metrics struct {
	apiRequests    metric.Int64Counter
	apiLatency     metric.Float64Histogram
	aggLatency     metric.Float64Histogram
	aggConflicts   metric.Int64Counter
	aggRetries     metric.Int64Counter
	scormCalls     metric.Int64Counter
	scormFailures  metric.Int64Counter
	scormSessions  metric.Int64UpDownCounter
	saveOutcomes   metric.Int64Counter
	uploadBytes    metric.Int64Counter
	uploadOutcomes metric.Int64Counter
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Current() *Metrics {
	return instance
}

// Init builds the process-wide instruments from the global meter provider.
func Init(log *logger.Logger) *Metrics {
	initOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			if log != nil {
				log.Warn("metrics init failed (continuing without metrics)", "error", err)
			}
			return
		}
		instance = m
	})
	return instance
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)
	var (
		m   Metrics
		err error
	)
	if m.apiRequests, err = meter.Int64Counter("api_requests_total", metric.WithDescription("HTTP requests by route and status")); err != nil {
		return nil, err
	}
	if m.apiLatency, err = meter.Float64Histogram("api_request_seconds", metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.aggLatency, err = meter.Float64Histogram("aggregate_operation_seconds", metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.aggConflicts, err = meter.Int64Counter("aggregate_conflicts_total"); err != nil {
		return nil, err
	}
	if m.aggRetries, err = meter.Int64Counter("aggregate_retryable_total"); err != nil {
		return nil, err
	}
	if m.scormCalls, err = meter.Int64Counter("scorm_calls_total", metric.WithDescription("SCORM runtime calls by method and result")); err != nil {
		return nil, err
	}
	if m.scormFailures, err = meter.Int64Counter("scorm_commit_failures_total"); err != nil {
		return nil, err
	}
	if m.scormSessions, err = meter.Int64UpDownCounter("scorm_sessions_open"); err != nil {
		return nil, err
	}
	if m.saveOutcomes, err = meter.Int64Counter("module_saves_total"); err != nil {
		return nil, err
	}
	if m.uploadBytes, err = meter.Int64Counter("upload_bytes_total", metric.WithUnit("By")); err != nil {
		return nil, err
	}
	if m.uploadOutcomes, err = meter.Int64Counter("uploads_total"); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status", status),
	)
	ctx := context.Background()
	m.apiRequests.Add(ctx, 1, attrs)
	m.apiLatency.Record(ctx, dur.Seconds(), attrs)
}

func (m *Metrics) ObserveAggregateOperation(name, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aggLatency.Record(context.Background(), dur.Seconds(), metric.WithAttributes(
		attribute.String("operation", strings.TrimSpace(name)),
		attribute.String("status", strings.TrimSpace(status)),
	))
}

func (m *Metrics) IncAggregateConflict(name string) {
	if m == nil {
		return
	}
	m.aggConflicts.Add(context.Background(), 1, metric.WithAttributes(attribute.String("operation", name)))
}

func (m *Metrics) IncAggregateRetry(name string) {
	if m == nil {
		return
	}
	m.aggRetries.Add(context.Background(), 1, metric.WithAttributes(attribute.String("operation", name)))
}

func (m *Metrics) IncScormCall(version, method, result string) {
	if m == nil {
		return
	}
	m.scormCalls.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("version", version),
		attribute.String("method", method),
		attribute.String("result", result),
	))
}

func (m *Metrics) IncScormCommitFailure(version string) {
	if m == nil {
		return
	}
	m.scormFailures.Add(context.Background(), 1, metric.WithAttributes(attribute.String("version", version)))
}

func (m *Metrics) ScormSessionOpened() {
	if m == nil {
		return
	}
	m.scormSessions.Add(context.Background(), 1)
}

func (m *Metrics) ScormSessionClosed() {
	if m == nil {
		return
	}
	m.scormSessions.Add(context.Background(), -1)
}

func (m *Metrics) IncModuleSave(outcome string) {
	if m == nil {
		return
	}
	m.saveOutcomes.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) ObserveUpload(sceneType, outcome string, bytes int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("scene_type", sceneType), attribute.String("outcome", outcome))
	m.uploadOutcomes.Add(context.Background(), 1, attrs)
	if bytes > 0 {
		m.uploadBytes.Add(context.Background(), bytes, attrs)
	}
}
