package core

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("gridedit.core")

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridedit_operations_total",
		Help: "Mutating calls by operation kind and outcome",
	}, []string{"kind", "outcome"})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gridedit_operation_duration_seconds",
		Help:    "Time spent inside the write lock per operation kind",
		Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
	}, []string{"kind"})

	staleRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridedit_stale_requests_total",
		Help: "Requests whose advisory content no longer matched the live document",
	}, []string{"kind"})

	reindexQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gridedit_reindex_queue_depth",
		Help: "Sheet rebuilds queued and not yet started",
	})

	reindexDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gridedit_reindex_duration_seconds",
		Help:    "Time spent rebuilding one sheet's index",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 5},
	})

	reindexTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridedit_reindex_total",
		Help: "Sheet rebuild jobs by outcome (rebuilt, abandoned, current)",
	}, []string{"outcome"})

	searchResults = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gridedit_search_results",
		Help:    "Number of results returned per search",
		Buckets: []float64{0, 1, 5, 10, 50, 100, 1000},
	})

	ioTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridedit_io_total",
		Help: "Document load and store calls by outcome",
	}, []string{"op", "outcome"})
)

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// endSpan records err on span, if any, and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func startSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, opts...)
}
