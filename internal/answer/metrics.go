package answer

import (
	"context"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
)

var (
	metricsOnce   sync.Once
	answersTotal  otelmetric.Int64Counter
	llmFailures   otelmetric.Int64Counter
	llmLatencySec otelmetric.Float64Histogram
)

func initMetrics() {
	meter := otel.Meter("documind/answer")
	var err error
	answersTotal, err = meter.Int64Counter(
		"documind_answers_total",
		otelmetric.WithDescription("Answers returned, by body source"),
	)
	if err != nil {
		log.Printf("answer metrics init: documind_answers_total: %v", err)
	}
	llmFailures, err = meter.Int64Counter(
		"documind_llm_failures_total",
		otelmetric.WithDescription("Completion attempts that fell back to document matching"),
	)
	if err != nil {
		log.Printf("answer metrics init: documind_llm_failures_total: %v", err)
	}
	llmLatencySec, err = meter.Float64Histogram(
		"documind_llm_latency_seconds",
		otelmetric.WithDescription("Latency of successful completion attempts"),
		otelmetric.WithUnit("s"),
	)
	if err != nil {
		log.Printf("answer metrics init: documind_llm_latency_seconds: %v", err)
	}
}

func recordAnswer(ctx context.Context, source Source) {
	metricsOnce.Do(initMetrics)
	if answersTotal == nil {
		return
	}
	answersTotal.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("source", string(source))))
}

func recordLLMFailure(ctx context.Context, reason LLMReason) {
	metricsOnce.Do(initMetrics)
	if llmFailures == nil {
		return
	}
	llmFailures.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("reason", string(reason))))
}

func recordLLMLatency(ctx context.Context, d time.Duration) {
	metricsOnce.Do(initMetrics)
	if llmLatencySec == nil {
		return
	}
	llmLatencySec.Record(ctx, d.Seconds())
}
