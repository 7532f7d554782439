package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/affiliate-desk/internal/config"
	"github.com/affiliate-desk/internal/logger"
	"github.com/affiliate-desk/internal/provider"
	"github.com/affiliate-desk/internal/queue"
	"github.com/affiliate-desk/internal/service"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumerSkipsWhenServicesMissing(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	task, err := queue.NewAffiliateCountersTask(queue.AffiliateCountersPayload{ReferralID: 1})
	require.NoError(t, err)

	assert.NoError(t, consumer.handleAffiliateCounters(context.Background(), task))
	assert.NoError(t, consumer.handleReferralValidate(context.Background(), task))
	assert.NoError(t, consumer.handleOperatorReconcile(context.Background(), task))
}

func TestConsumerRegisterIgnoresNil(t *testing.T) {
	var consumer *Consumer
	consumer.Register(asynq.NewServeMux())
	NewConsumer(&provider.Container{}).Register(nil)
}

func TestNewServiceRequiresEnabledQueue(t *testing.T) {
	_, err := NewService(nil, NewConsumer(&provider.Container{}))
	assert.ErrorIs(t, err, ErrQueueDisabled)
	_, err = NewService(&config.QueueConfig{Enabled: false}, NewConsumer(&provider.Container{}))
	assert.ErrorIs(t, err, ErrQueueDisabled)
	_, err = NewService(&config.QueueConfig{Enabled: true}, nil)
	assert.Error(t, err)

	var svc *Service
	assert.NoError(t, svc.Stop(context.Background()))
	assert.Error(t, svc.Start(context.Background()))
}

func TestTaskLogContextAddsTaskFields(t *testing.T) {
	var fields []interface{}
	handler := taskLogContext(asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
		fields = logger.Fields(ctx)
		return nil
	}))
	require.NoError(t, handler.ProcessTask(context.Background(), asynq.NewTask(queue.TaskReferralValidate, nil)))
	assert.Equal(t, []interface{}{"task_type", queue.TaskReferralValidate}, fields)
}

func TestConsumerBadPayloadSkipsRetry(t *testing.T) {
	consumer := NewConsumer(&provider.Container{
		AttributionService: service.NewAttributionService(nil, nil, nil, nil, nil),
	})
	err := consumer.handleAffiliateCounters(context.Background(), asynq.NewTask(queue.TaskAffiliateCounters, []byte("{")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	err = consumer.handleAffiliateCounters(context.Background(), asynq.NewTask(queue.TaskAffiliateCounters, []byte(`{"referral_id":0}`)))
	assert.NoError(t, err)
}
