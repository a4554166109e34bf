package generator

import (
	"context"
	stderrors "errors"
	"fmt"

	"go.uber.org/zap"

	"DopamineBreaker/internal/model"
	"DopamineBreaker/pkg/errors"
	"DopamineBreaker/pkg/logger"
	"DopamineBreaker/pkg/metrics"
)

// ErrNoClient 未配置 API key
var ErrNoClient = stderrors.New("generative client not configured")

// ContentClient 文本生成服务
type ContentClient interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Result 一次生成的结果
type Result struct {
	Slots          []model.CatalogSlot
	Source         string
	Model          string
	FallbackReason string
}

// Meta 生成信息，写入 catalog_entries.meta
func (r *Result) Meta() model.CatalogMeta {
	return model.CatalogMeta{
		Source:         r.Source,
		Model:          r.Model,
		FallbackReason: r.FallbackReason,
	}
}

// Generator 每次调用只请求一次外部服务；FailSoft 时失败改用固定任务集
type Generator struct {
	client   ContentClient
	fallback *Batch
	failSoft bool
}

// New client 可以为 nil，此时直接使用固定任务集
func New(client ContentClient, fallback *Batch, failSoft bool) *Generator {
	return &Generator{client: client, fallback: fallback, failSoft: failSoft}
}

// Generate 生成 13 个任务；previous 为前一天的条目，可为空
func (g *Generator) Generate(ctx context.Context, previous *model.CatalogEntry) (*Result, error) {
	result, err := g.attempt(ctx, previous)
	if err == nil {
		metrics.RecordGeneration(ctx, model.SourceGemini, "")
		return result, nil
	}

	if !g.failSoft || g.fallback == nil {
		metrics.RecordGeneration(ctx, "failed", err.Error())
		return nil, err
	}

	logger.Logger.Warn("Mission generation failed, using fallback missions", zap.Error(err))
	metrics.RecordGeneration(ctx, model.SourceFallback, err.Error())

	modelName := ""
	if g.client != nil {
		modelName = g.client.Model()
	}
	return &Result{
		Slots:          g.fallback.Slots(),
		Source:         model.SourceFallback,
		Model:          modelName,
		FallbackReason: err.Error(),
	}, nil
}

func (g *Generator) attempt(ctx context.Context, previous *model.CatalogEntry) (*Result, error) {
	if g.client == nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrGeneration, ErrNoClient)
	}

	raw, err := g.client.GenerateContent(ctx, BuildPrompt(previous))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrGeneration, err)
	}

	batch, err := ParseBatch(raw)
	if err != nil {
		return nil, err
	}

	logger.Logger.Info("Missions generated",
		zap.String("model", g.client.Model()),
		zap.Int("slots", model.SlotsPerDay),
	)
	return &Result{
		Slots:  batch.Slots(),
		Source: model.SourceGemini,
		Model:  g.client.Model(),
	}, nil
}
