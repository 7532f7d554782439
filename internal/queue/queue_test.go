package queue

import (
	"errors"
	"testing"
	"time"

	"github.com/affiliate-desk/internal/config"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledClientSkipsEnqueue(t *testing.T) {
	client, err := NewClient(&config.QueueConfig{Enabled: false})
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.EnqueueAffiliateCounters(AffiliateCountersPayload{ReferralID: 1}))
	assert.NoError(t, client.EnqueueReferralValidate(ReferralValidatePayload{ReferralID: 1}))
	assert.NoError(t, client.EnqueueOperatorReconcile(OperatorReconcilePayload{OperatorID: 1}, 0))
	assert.NoError(t, client.Close())

	var nilClient *Client
	assert.False(t, nilClient.Enabled())
}

func TestTaskPayloadRoundTrip(t *testing.T) {
	task, err := NewAffiliateCountersTask(AffiliateCountersPayload{ReferralID: 42})
	require.NoError(t, err)
	assert.Equal(t, TaskAffiliateCounters, task.Type())

	var payload AffiliateCountersPayload
	require.NoError(t, ParsePayload(task, &payload))
	assert.Equal(t, uint(42), payload.ReferralID)

	task, err = NewOperatorReconcileTask(OperatorReconcilePayload{OperatorID: 7})
	require.NoError(t, err)
	assert.Equal(t, TaskOperatorReconcile, task.Type())
}

func TestBuildServerConfigDefaults(t *testing.T) {
	opt, cfg := BuildServerConfig(&config.QueueConfig{Host: " redis ", Port: 6380, DB: 2})
	assert.Equal(t, "redis:6380", opt.Addr)
	opt, _ = BuildServerConfig(&config.QueueConfig{Host: "::1"})
	assert.Equal(t, "[::1]:6379", opt.Addr)
	opt, cfg = BuildServerConfig(&config.QueueConfig{Host: " redis ", Port: 6380, DB: 2})
	assert.Equal(t, 2, opt.DB)
	assert.Equal(t, 10, cfg.Concurrency)
	assert.Equal(t, map[string]int{CriticalQueue: 6, DefaultQueue: 3}, cfg.Queues)

	opt, cfg = BuildServerConfig(nil)
	assert.Equal(t, "127.0.0.1:6379", opt.Addr)
	assert.Equal(t, 10, cfg.Concurrency)
}

func TestBuildServerConfigWiresRetryAndErrorHandling(t *testing.T) {
	_, cfg := BuildServerConfig(&config.QueueConfig{Queues: map[string]int{"critical": 4, " ": 3, "default": 0}})
	assert.Equal(t, map[string]int{"critical": 4}, cfg.Queues)
	assert.NotNil(t, cfg.RetryDelayFunc)
	assert.NotNil(t, cfg.ErrorHandler)
	assert.Equal(t, workerShutdownTimeout, cfg.ShutdownTimeout)

	_, cfg = BuildServerConfig(&config.QueueConfig{Queues: map[string]int{"default": -1}})
	assert.Equal(t, map[string]int{CriticalQueue: 6, DefaultQueue: 3}, cfg.Queues)
}

func TestRetryDelayByTaskType(t *testing.T) {
	counters := asynq.NewTask(TaskAffiliateCounters, nil)
	validate := asynq.NewTask(TaskReferralValidate, nil)
	boom := errors.New("boom")

	assert.Equal(t, 5*time.Second, RetryDelay(0, boom, counters))
	assert.Equal(t, 20*time.Second, RetryDelay(2, boom, counters))
	assert.Equal(t, 5*time.Minute, RetryDelay(9, boom, counters))

	assert.Equal(t, 30*time.Second, RetryDelay(0, boom, validate))
	assert.Equal(t, 4*time.Minute, RetryDelay(3, boom, validate))
	assert.Equal(t, 30*time.Minute, RetryDelay(50, boom, validate))

	assert.Positive(t, RetryDelay(1, boom, asynq.NewTask(TaskOperatorReconcile, nil)))
}

func TestCountersTaskIDIsStablePerReferral(t *testing.T) {
	assert.Equal(t, "referral-counters:42", countersTaskID(42))
	assert.NotEqual(t, countersTaskID(42), countersTaskID(43))
}
