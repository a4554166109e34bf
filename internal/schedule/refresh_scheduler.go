package schedule

// 每日任务调度器：每天固定时间生成当天的任务目录

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"DopamineBreaker/internal/service"
	"DopamineBreaker/pkg/logger"
)

// Refresher 执行一次当天目录刷新
type Refresher interface {
	RefreshToday(ctx context.Context) service.Outcome
}

var (
	schedulerOnce sync.Once
	schedulerInst *RefreshScheduler
)

type RefreshScheduler struct {
	refresher  Refresher
	logger     *zap.Logger
	hour       int
	minute     int
	location   *time.Location
	runTimeout time.Duration

	mu          sync.Mutex
	running     bool
	lastRunTime time.Time
}

type Options struct {
	Hour       int
	Minute     int
	Location   *time.Location
	RunTimeout time.Duration
}

func GetScheduler(refresher Refresher, opts Options) *RefreshScheduler {
	schedulerOnce.Do(func() {
		schedulerInst = NewRefreshScheduler(refresher, opts)
	})
	return schedulerInst
}

func NewRefreshScheduler(refresher Refresher, opts Options) *RefreshScheduler {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = 5 * time.Minute
	}
	return &RefreshScheduler{
		refresher:  refresher,
		logger:     logger.Logger,
		hour:       opts.Hour,
		minute:     opts.Minute,
		location:   opts.Location,
		runTimeout: opts.RunTimeout,
	}
}

// NextRun 返回 now 之后最近一次的触发时间
func (s *RefreshScheduler) NextRun(now time.Time) time.Time {
	local := now.In(s.location)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.hour, s.minute, 0, 0, s.location)
	if !next.After(local) {
		// 用 AddDate 而不是 24h，跨夏令时也落在同一钟点
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// RunOnce 执行一次刷新，已有任务在跑时直接跳过
func (s *RefreshScheduler) RunOnce(ctx context.Context) (service.Outcome, bool) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Info("Refresh job already running, skipping")
		return service.Outcome{}, false
	}
	s.running = true
	s.lastRunTime = time.Now()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	outcome := s.refresher.RefreshToday(runCtx)
	if outcome.Status == service.OutcomeFailed {
		s.logger.Error("Daily refresh run failed",
			zap.String("date", outcome.Date),
			zap.String("reason", outcome.Reason),
		)
	}
	return outcome, true
}

func (s *RefreshScheduler) LastRunTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRunTime
}

// Run 阻塞直到 ctx 结束；startup 为 true 时先补跑一次（当天已有目录时是空操作）
func (s *RefreshScheduler) Run(ctx context.Context, startup bool) {
	if startup {
		s.RunOnce(ctx)
	}

	for {
		now := time.Now()
		next := s.NextRun(now)
		delay := next.Sub(now)
		s.logger.Info("Scheduled next daily refresh run",
			zap.Time("now", now),
			zap.Time("next_run", next),
			zap.Duration("delay", delay),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.RunOnce(ctx)
		}
	}
}

// RunEvery 按固定间隔刷新，开发环境调试用
func (s *RefreshScheduler) RunEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}
