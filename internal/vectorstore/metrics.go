package vectorstore

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/recalld/internal/logging"
)

const vectorstoreInstrumentationName = "github.com/fyrsmithlabs/recalld/internal/vectorstore"

// storeMetrics holds vector store operation metrics.
type storeMetrics struct {
	meter       metric.Meter
	duration    metric.Float64Histogram
	resultCount metric.Int64Histogram
	errors      metric.Int64Counter
}

func newStoreMetrics(logger *logging.Logger) *storeMetrics {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &storeMetrics{meter: otel.Meter(vectorstoreInstrumentationName)}

	var err error
	m.duration, err = m.meter.Float64Histogram(
		"recalld.vectorstore.operation_duration_seconds",
		metric.WithDescription("Duration of vector store operations in seconds, labeled by backend and operation"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		logger.Underlying().Warn("failed to create duration histogram", zap.Error(err))
	}

	m.resultCount, err = m.meter.Int64Histogram(
		"recalld.vectorstore.search_results",
		metric.WithDescription("Number of documents returned per search"),
		metric.WithUnit("{document}"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 5, 10, 25, 50, 100),
	)
	if err != nil {
		logger.Underlying().Warn("failed to create result count histogram", zap.Error(err))
	}

	m.errors, err = m.meter.Int64Counter(
		"recalld.vectorstore.errors_total",
		metric.WithDescription("Total vector store operation errors by backend and operation"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		logger.Underlying().Warn("failed to create errors counter", zap.Error(err))
	}
	return m
}

func (m *storeMetrics) record(ctx context.Context, backend, operation string, start time.Time, results int, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("backend", backend),
		attribute.String("operation", operation),
	}
	if m.duration != nil {
		m.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attrs...))
	}
	if results >= 0 && m.resultCount != nil {
		m.resultCount.Record(ctx, int64(results), metric.WithAttributes(attrs...))
	}
	if err != nil && m.errors != nil {
		m.errors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// measuredStore wraps a Store with operation metrics.
type measuredStore struct {
	inner   Store
	backend string
	metrics *storeMetrics
}

func newMeasuredStore(inner Store, backend string, logger *logging.Logger) Store {
	return &measuredStore{
		inner:   inner,
		backend: backend,
		metrics: newStoreMetrics(logger),
	}
}

func (s *measuredStore) AddDocuments(ctx context.Context, docs []Document) ([]string, error) {
	start := time.Now()
	ids, err := s.inner.AddDocuments(ctx, docs)
	s.metrics.record(ctx, s.backend, "add_documents", start, -1, err)
	return ids, err
}

func (s *measuredStore) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	start := time.Now()
	results, err := s.inner.Search(ctx, query, k)
	s.metrics.record(ctx, s.backend, "search", start, len(results), err)
	return results, err
}

func (s *measuredStore) SearchWithFilters(ctx context.Context, query string, k int, filters map[string]interface{}) ([]SearchResult, error) {
	start := time.Now()
	results, err := s.inner.SearchWithFilters(ctx, query, k, filters)
	s.metrics.record(ctx, s.backend, "search_with_filters", start, len(results), err)
	return results, err
}

func (s *measuredStore) DeleteDocuments(ctx context.Context, ids []string) error {
	start := time.Now()
	err := s.inner.DeleteDocuments(ctx, ids)
	s.metrics.record(ctx, s.backend, "delete_documents", start, -1, err)
	return err
}

func (s *measuredStore) CollectionInfo(ctx context.Context) (*CollectionInfo, error) {
	return s.inner.CollectionInfo(ctx)
}

func (s *measuredStore) Close() error {
	return s.inner.Close()
}
