package database

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const maxSQLLength = 500

var secretPattern = regexp.MustCompile(`(password_hash|password|token|secret)\s*=\s*'[^']*'`)

// OTELPlugin 为每条 SQL 建 span 并记录耗时
type OTELPlugin struct {
	tracer   trace.Tracer
	system   attribute.KeyValue
	queries  metric.Int64Counter
	duration metric.Float64Histogram
}

// NewOTELPlugin 创建插件实例，指标从全局 MeterProvider 获取
func NewOTELPlugin(serviceName, driver string) *OTELPlugin {
	meter := otel.Meter(serviceName + ".gorm")
	queries, _ := meter.Int64Counter(
		"db.queries.total",
		metric.WithDescription("Total number of database queries"),
		metric.WithUnit("{query}"),
	)
	duration, _ := meter.Float64Histogram(
		"db.query.duration",
		metric.WithDescription("Database query duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)

	return &OTELPlugin{
		tracer:   otel.Tracer(serviceName + ".gorm"),
		system:   dbSystem(driver),
		queries:  queries,
		duration: duration,
	}
}

func dbSystem(driver string) attribute.KeyValue {
	switch driver {
	case "mysql":
		return semconv.DBSystemMySQL
	case "sqlite":
		return semconv.DBSystemSqlite
	default:
		return semconv.DBSystemPostgreSQL
	}
}

// Name 实现 gorm.Plugin 接口
func (p *OTELPlugin) Name() string {
	return "otel_plugin"
}

// Initialize 注册回调
func (p *OTELPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	steps := []struct {
		name     string
		register func(before, after func(*gorm.DB)) error
	}{
		{"query", func(b, a func(*gorm.DB)) error {
			if err := cb.Query().Before("gorm:query").Register("otel:before_query", b); err != nil {
				return err
			}
			return cb.Query().After("gorm:query").Register("otel:after_query", a)
		}},
		{"create", func(b, a func(*gorm.DB)) error {
			if err := cb.Create().Before("gorm:create").Register("otel:before_create", b); err != nil {
				return err
			}
			return cb.Create().After("gorm:create").Register("otel:after_create", a)
		}},
		{"update", func(b, a func(*gorm.DB)) error {
			if err := cb.Update().Before("gorm:update").Register("otel:before_update", b); err != nil {
				return err
			}
			return cb.Update().After("gorm:update").Register("otel:after_update", a)
		}},
		{"row", func(b, a func(*gorm.DB)) error {
			if err := cb.Row().Before("gorm:row").Register("otel:before_row", b); err != nil {
				return err
			}
			return cb.Row().After("gorm:row").Register("otel:after_row", a)
		}},
		{"raw", func(b, a func(*gorm.DB)) error {
			if err := cb.Raw().Before("gorm:raw").Register("otel:before_raw", b); err != nil {
				return err
			}
			return cb.Raw().After("gorm:raw").Register("otel:after_raw", a)
		}},
	}

	for _, step := range steps {
		if err := step.register(p.before(step.name), p.after); err != nil {
			return err
		}
	}
	return nil
}

func (p *OTELPlugin) before(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		attrs := []attribute.KeyValue{p.system, attribute.String("db.operation", operation)}
		if table := db.Statement.Table; table != "" {
			attrs = append(attrs, attribute.String("db.table", table))
		}

		ctx, span := p.tracer.Start(ctx, "db."+operation,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(attrs...),
		)

		db.InstanceSet("otel:start_time", time.Now())
		db.InstanceSet("otel:span", span)
		db.InstanceSet("otel:operation", operation)
		db.Statement.Context = ctx
	}
}

func (p *OTELPlugin) after(db *gorm.DB) {
	spanVal, ok := db.InstanceGet("otel:span")
	if !ok {
		return
	}
	span, ok := spanVal.(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	span.SetAttributes(
		semconv.DBStatement(sanitizeSQL(db.Statement.SQL.String())),
		attribute.Int64("db.rows_affected", db.Statement.RowsAffected),
	)

	status := "success"
	switch {
	case db.Error == nil:
		span.SetStatus(codes.Ok, "")
	case errors.Is(db.Error, gorm.ErrRecordNotFound):
		span.SetStatus(codes.Ok, "record not found")
	default:
		status = "error"
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	operation, _ := db.InstanceGet("otel:operation")
	op, _ := operation.(string)
	labels := metric.WithAttributes(
		attribute.String("db.operation", op),
		attribute.String("db.status", status),
	)

	ctx := db.Statement.Context
	if p.queries != nil {
		p.queries.Add(ctx, 1, labels)
	}
	if start, ok := db.InstanceGet("otel:start_time"); ok && p.duration != nil {
		if t, ok := start.(time.Time); ok {
			p.duration.Record(ctx, time.Since(t).Seconds(), labels)
		}
	}
}

// sanitizeSQL 截断长 SQL 并隐去敏感字段
func sanitizeSQL(sql string) string {
	if len(sql) > maxSQLLength {
		sql = sql[:maxSQLLength] + "..."
	}
	return secretPattern.ReplaceAllString(strings.TrimSpace(sql), "$1='***'")
}
