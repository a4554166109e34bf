package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics 业务和 HTTP 指标集合
type OTelMetrics struct {
	// 每日任务相关指标
	GenerationTotal metric.Int64Counter
	FallbackTotal   metric.Int64Counter
	RefreshTotal    metric.Int64Counter
	RefreshDuration metric.Float64Histogram
	RecordsTotal    metric.Int64Counter
	EventsConsumed  metric.Int64Counter

	// HTTP 相关指标
	HTTPServerRequestTotal   metric.Int64Counter
	HTTPServerDuration       metric.Float64Histogram
	HTTPServerActiveRequests metric.Int64UpDownCounter
}

var (
	metrics *OTelMetrics
	once    sync.Once
)

// Get 首次调用时从全局 MeterProvider 创建指标；provider 可以在之后才设置
func Get() *OTelMetrics {
	once.Do(func() {
		meter := otel.Meter("dopamine-breaker")
		m := &OTelMetrics{}

		m.GenerationTotal, _ = meter.Int64Counter("missions_generation_total",
			metric.WithDescription("Daily mission generation attempts by source"),
			metric.WithUnit("{attempt}"),
		)
		m.FallbackTotal, _ = meter.Int64Counter("missions_fallback_total",
			metric.WithDescription("Times the static fallback set was used"),
			metric.WithUnit("{fallback}"),
		)
		m.RefreshTotal, _ = meter.Int64Counter("missions_refresh_total",
			metric.WithDescription("Daily refresh runs by outcome"),
			metric.WithUnit("{run}"),
		)
		m.RefreshDuration, _ = meter.Float64Histogram("missions_refresh_duration_seconds",
			metric.WithDescription("Daily refresh run duration"),
			metric.WithUnit("s"),
		)
		m.RecordsTotal, _ = meter.Int64Counter("missions_records_total",
			metric.WithDescription("Mission records by tier and result"),
			metric.WithUnit("{record}"),
		)
		m.EventsConsumed, _ = meter.Int64Counter("missions_events_consumed_total",
			metric.WithDescription("Events consumed by the worker"),
			metric.WithUnit("{event}"),
		)

		m.HTTPServerRequestTotal, _ = meter.Int64Counter("http_server_requests_total",
			metric.WithDescription("Total number of HTTP requests"),
			metric.WithUnit("{request}"),
		)
		m.HTTPServerDuration, _ = meter.Float64Histogram("http_server_duration_seconds",
			metric.WithDescription("HTTP request duration"),
			metric.WithUnit("s"),
		)
		m.HTTPServerActiveRequests, _ = meter.Int64UpDownCounter("http_server_active_requests",
			metric.WithDescription("Number of in-flight HTTP requests"),
			metric.WithUnit("{request}"),
		)

		metrics = m
	})
	return metrics
}

// RecordGeneration 记录一次生成，source 为 gemini、fallback 或 failed
func RecordGeneration(ctx context.Context, source, reason string) {
	m := Get()
	m.GenerationTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
	if reason != "" {
		m.FallbackTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
	}
}

// RecordRefresh 记录一次每日刷新
func RecordRefresh(ctx context.Context, outcome string, seconds float64) {
	m := Get()
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.RefreshTotal.Add(ctx, 1, attrs)
	m.RefreshDuration.Record(ctx, seconds, attrs)
}

// RecordMission 记录一次任务完成或失败
func RecordMission(ctx context.Context, tier string, succeeded bool) {
	result := "failed"
	if succeeded {
		result = "completed"
	}
	if tier == "" {
		tier = "custom"
	}
	Get().RecordsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tier", tier),
		attribute.String("result", result),
	))
}

// RecordEvent worker 消费一条事件
func RecordEvent(ctx context.Context, routingKey, status string) {
	Get().EventsConsumed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("routing_key", routingKey),
		attribute.String("status", status),
	))
}
