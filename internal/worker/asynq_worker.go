package worker

import (
	"context"
	"fmt"

	"github.com/affiliate-desk/internal/logger"
	"github.com/affiliate-desk/internal/provider"
	"github.com/affiliate-desk/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.Use(taskLogContext)
	mux.HandleFunc(queue.TaskAffiliateCounters, c.handleAffiliateCounters)
	mux.HandleFunc(queue.TaskReferralValidate, c.handleReferralValidate)
	mux.HandleFunc(queue.TaskOperatorReconcile, c.handleOperatorReconcile)
}

// taskLogContext 为任务处理挂上 task_type / task_id 日志字段
func taskLogContext(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
		fields := []interface{}{"task_type", task.Type()}
		if id, ok := asynq.GetTaskID(ctx); ok {
			fields = append(fields, "task_id", id)
		}
		if retried, ok := asynq.GetRetryCount(ctx); ok && retried > 0 {
			fields = append(fields, "retry", retried)
		}
		return next.ProcessTask(logger.With(ctx, fields...), task)
	})
}

func (c *Consumer) handleAffiliateCounters(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.AttributionService == nil {
		logger.Ctx(ctx).Debugw("worker_affiliate_counters_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.AffiliateCountersPayload
	if err := queue.ParsePayload(task, &payload); err != nil {
		logger.Ctx(ctx).Warnw("worker_affiliate_counters_unmarshal_failed", "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if payload.ReferralID == 0 {
		logger.Ctx(ctx).Debugw("worker_affiliate_counters_skip_invalid_payload")
		return nil
	}
	if err := c.AttributionService.ApplyReferralCounters(payload.ReferralID); err != nil {
		logger.Ctx(ctx).Warnw("worker_affiliate_counters_failed", "referral_id", payload.ReferralID, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleReferralValidate(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.ValidationService == nil {
		logger.Ctx(ctx).Debugw("worker_referral_validate_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ReferralValidatePayload
	if err := queue.ParsePayload(task, &payload); err != nil {
		logger.Ctx(ctx).Warnw("worker_referral_validate_unmarshal_failed", "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if payload.ReferralID == 0 {
		logger.Ctx(ctx).Debugw("worker_referral_validate_skip_invalid_payload")
		return nil
	}
	if err := c.ValidationService.ReconcileReferral(ctx, payload.ReferralID); err != nil {
		logger.Ctx(ctx).Warnw("worker_referral_validate_failed", "referral_id", payload.ReferralID, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleOperatorReconcile(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.ValidationService == nil {
		logger.Ctx(ctx).Debugw("worker_operator_reconcile_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OperatorReconcilePayload
	if err := queue.ParsePayload(task, &payload); err != nil {
		logger.Ctx(ctx).Warnw("worker_operator_reconcile_unmarshal_failed", "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if payload.OperatorID == 0 {
		return nil
	}
	result, err := c.ValidationService.ReconcileOperator(ctx, payload.OperatorID)
	if err != nil {
		logger.Ctx(ctx).Warnw("worker_operator_reconcile_failed", "operator_id", payload.OperatorID, "error", err)
		return err
	}
	logger.Ctx(ctx).Infow("worker_operator_reconcile_done",
		"operator_id", payload.OperatorID,
		"total", result.Total,
		"validated", result.Validated,
		"canceled", result.Canceled,
	)
	return nil
}
