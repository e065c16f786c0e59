package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCounter    metric.Int64Counter
	RequestDuration   metric.Float64Histogram
	TokensUsed        metric.Int64Counter
	IngestionDuration metric.Float64Histogram
	ChunksIndexed     metric.Int64Counter
	AskLatency        metric.Float64Histogram
	EmbedCacheLookups metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("pdf-qa-service")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	tokensUsed, err := meter.Int64Counter(
		"gemini.tokens.used",
		metric.WithDescription("Total Gemini tokens used"),
	)
	if err != nil {
		return nil, err
	}

	ingestionDuration, err := meter.Float64Histogram(
		"ingestion.duration",
		metric.WithDescription("Document ingestion duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	chunksIndexed, err := meter.Int64Counter(
		"ingestion.chunks.indexed",
		metric.WithDescription("Total chunks embedded and indexed"),
	)
	if err != nil {
		return nil, err
	}

	askLatency, err := meter.Float64Histogram(
		"ask.duration",
		metric.WithDescription("Retrieval-augmented answer duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	embedCacheLookups, err := meter.Int64Counter(
		"embedding.cache.lookups",
		metric.WithDescription("Embedding cache lookups by outcome"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:    requestCounter,
		RequestDuration:   requestDuration,
		TokensUsed:        tokensUsed,
		IngestionDuration: ingestionDuration,
		ChunksIndexed:     chunksIndexed,
		AskLatency:        askLatency,
		EmbedCacheLookups: embedCacheLookups,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordTokensUsed records model token usage
func (m *Metrics) RecordTokensUsed(tokens int64, model string) {
	m.TokensUsed.Add(context.Background(), tokens,
		metric.WithAttributes(attribute.String("gemini.model", model)))
}

// RecordIngestion records one ingestion run
func (m *Metrics) RecordIngestion(duration float64, chunks int64, status string) {
	attrs := metric.WithAttributes(attribute.String("ingestion.status", status))
	m.IngestionDuration.Record(context.Background(), duration, attrs)
	m.ChunksIndexed.Add(context.Background(), chunks, attrs)
}

// RecordAsk records one retrieval-augmented answer
func (m *Metrics) RecordAsk(duration float64, status string) {
	m.AskLatency.Record(context.Background(), duration,
		metric.WithAttributes(attribute.String("ask.status", status)))
}

// RecordEmbedCacheLookup records an embedding cache hit or miss
func (m *Metrics) RecordEmbedCacheLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.EmbedCacheLookups.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("cache.outcome", outcome)))
}
