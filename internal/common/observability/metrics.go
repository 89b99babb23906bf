// internal/common/observability/metrics.go
package observability

import (
	"context"
	"time"

	"rts-portal/internal/common/logger"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability records portal events through an OpenTelemetry meter exported
// to Prometheus. A nil *Observability records nothing.
type Observability struct {
	meterProvider      *metric.MeterProvider
	meter              otelmetric.Meter
	jobCounter         otelmetric.Int64Counter
	jobDuration        otelmetric.Float64Histogram
	submissionCounter  otelmetric.Int64Counter
	submissionDuration otelmetric.Float64Histogram
	lookupCounter      otelmetric.Int64Counter
}

// New registers the exporter with the default Prometheus registerer.
func New(serviceName string, log logger.Logger) *Observability {
	return NewWithRegisterer(serviceName, promclient.DefaultRegisterer, log)
}

func NewWithRegisterer(serviceName string, registerer promclient.Registerer, log logger.Logger) *Observability {
	exporter, err := prometheus.New(prometheus.WithRegisterer(registerer))
	if err != nil {
		log.Error("Failed to create Prometheus exporter", map[string]interface{}{
			"error": err.Error(),
		})
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	jobCounter, _ := meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of Zeebe jobs processed"),
	)
	jobDuration, _ := meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Zeebe job processing duration"),
		otelmetric.WithUnit("ms"),
	)
	submissionCounter, _ := meter.Int64Counter(
		"portal.applications.submitted",
		otelmetric.WithDescription("Application submissions by form and outcome"),
	)
	submissionDuration, _ := meter.Float64Histogram(
		"portal.applications.pipeline.duration",
		otelmetric.WithDescription("Submission pipeline duration"),
		otelmetric.WithUnit("ms"),
	)
	lookupCounter, _ := meter.Int64Counter(
		"portal.tracking.lookups",
		otelmetric.WithDescription("Tracking lookups by result"),
	)

	return &Observability{
		meterProvider:      provider,
		meter:              meter,
		jobCounter:         jobCounter,
		jobDuration:        jobDuration,
		submissionCounter:  submissionCounter,
		submissionDuration: submissionDuration,
		lookupCounter:      lookupCounter,
	}
}

func (o *Observability) RecordJobProcessed(ctx context.Context, taskType, status string) {
	if o == nil || o.jobCounter == nil {
		return
	}
	o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
	))
}

func (o *Observability) RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string) {
	if o == nil || o.jobDuration == nil {
		return
	}
	o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
	))
}

func (o *Observability) RecordSubmission(ctx context.Context, applicationType, outcome string, duration time.Duration) {
	if o == nil || o.submissionCounter == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("application_type", applicationType),
		attribute.String("outcome", outcome),
	)
	o.submissionCounter.Add(ctx, 1, attrs)
	o.submissionDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

func (o *Observability) RecordLookup(ctx context.Context, result string) {
	if o == nil || o.lookupCounter == nil {
		return
	}
	o.lookupCounter.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("result", result)))
}

func (o *Observability) Shutdown() {
	if o == nil || o.meterProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = o.meterProvider.Shutdown(ctx)
}
