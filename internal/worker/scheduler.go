package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/affiliate-desk/internal/logger"
	"github.com/affiliate-desk/internal/queue"
	"github.com/affiliate-desk/internal/service"

	"github.com/robfig/cron/v3"
)

const (
	defaultReconcileSchedule = "@every 1h"
	reconcileUniqueTTL       = 30 * time.Minute
	defaultCounterSweepGrace = 5 * time.Minute
	counterSweepBatchSize    = 200
)

// OperatorLister 列出需要对账的运营方
type OperatorLister interface {
	ListActiveIDs() ([]uint, error)
}

// OperatorReconciler 对单个运营方执行批量校验
type OperatorReconciler interface {
	ReconcileOperator(ctx context.Context, operatorID uint) (service.ValidationBatchResult, error)
}

// CounterSweeper 补偿累加未生效的推广用户计数
type CounterSweeper interface {
	SweepPendingCounters(ctx context.Context, grace time.Duration, limit int) (int, error)
}

// Scheduler 定时对账服务：队列可用时按运营方投递任务，否则在进程内直接执行
type Scheduler struct {
	schedule   string
	operators  OperatorLister
	reconciler OperatorReconciler
	queue      *queue.Client

	sweepSchedule string
	sweepGrace    time.Duration
	sweeper       CounterSweeper
	sweeping      bool

	cron    *cron.Cron
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewScheduler 创建定时对账服务
func NewScheduler(schedule string, operators OperatorLister, reconciler OperatorReconciler, queueClient *queue.Client) *Scheduler {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		schedule = defaultReconcileSchedule
	}
	return &Scheduler{
		schedule:   schedule,
		operators:  operators,
		reconciler: reconciler,
		queue:      queueClient,
	}
}

// WithCounterSweep 挂载计数补偿任务；schedule 为空时不启用
func (s *Scheduler) WithCounterSweep(schedule string, grace time.Duration, sweeper CounterSweeper) *Scheduler {
	s.sweepSchedule = strings.TrimSpace(schedule)
	s.sweeper = sweeper
	s.sweepGrace = grace
	if s.sweepGrace <= 0 {
		s.sweepGrace = defaultCounterSweepGrace
	}
	return s
}

// Name 服务名称
func (s *Scheduler) Name() string {
	return "scheduler"
}

// Start 启动定时任务并阻塞直到 Stop 或 ctx 结束
func (s *Scheduler) Start(ctx context.Context) error {
	if s.operators == nil || s.reconciler == nil {
		return errors.New("scheduler dependencies missing")
	}
	runCtx, cancel := context.WithCancel(ctx)
	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() { s.RunOnce(runCtx) }); err != nil {
		cancel()
		return err
	}
	if s.sweeper != nil && s.sweepSchedule != "" {
		if _, err := c.AddFunc(s.sweepSchedule, func() { s.SweepCounters(runCtx) }); err != nil {
			cancel()
			return err
		}
	}

	s.mu.Lock()
	s.cron = c
	s.cancel = cancel
	s.stopped = make(chan struct{})
	stopped := s.stopped
	s.mu.Unlock()

	c.Start()
	logger.Infow("scheduler_started", "schedule", s.schedule, "counter_sweep_schedule", s.sweepSchedule)
	<-runCtx.Done()
	<-c.Stop().Done()
	close(stopped)
	return nil
}

// Stop 停止定时任务，等待正在执行的对账结束
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	stopped := s.stopped
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce 执行一轮对账；上一轮未结束时跳过
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		logger.Infow("scheduler_reconcile_skip_overlap")
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ids, err := s.operators.ListActiveIDs()
	if err != nil {
		logger.Warnw("scheduler_list_operators_failed", "error", err)
		return
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		if s.queue != nil && s.queue.Enabled() {
			if err := s.queue.EnqueueOperatorReconcile(queue.OperatorReconcilePayload{OperatorID: id}, reconcileUniqueTTL); err != nil {
				logger.Warnw("scheduler_enqueue_reconcile_failed", "operator_id", id, "error", err)
			}
			continue
		}
		result, err := s.reconciler.ReconcileOperator(ctx, id)
		if err != nil {
			logger.Warnw("scheduler_reconcile_failed", "operator_id", id, "error", err)
			continue
		}
		logger.Infow("scheduler_reconcile_done", "operator_id", id, "total", result.Total, "canceled", result.Canceled)
	}
}

// SweepCounters 执行一轮计数补偿；上一轮未结束时跳过
func (s *Scheduler) SweepCounters(ctx context.Context) {
	if s.sweeper == nil {
		return
	}
	s.mu.Lock()
	if s.sweeping {
		s.mu.Unlock()
		return
	}
	s.sweeping = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.sweeping = false
		s.mu.Unlock()
	}()

	applied, err := s.sweeper.SweepPendingCounters(ctx, s.sweepGrace, counterSweepBatchSize)
	if err != nil {
		logger.Warnw("scheduler_counter_sweep_failed", "applied", applied, "error", err)
		return
	}
	if applied > 0 {
		logger.Infow("scheduler_counter_sweep_done", "applied", applied)
	}
}
