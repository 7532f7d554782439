package queue

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/affiliate-desk/internal/config"
	"github.com/affiliate-desk/internal/constants"
	"github.com/affiliate-desk/internal/logger"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 校验类任务队列
	DefaultQueue = constants.QueueDefault
	// CriticalQueue 计数累加队列，影响推广用户看到的数据，优先消费
	CriticalQueue = constants.QueueCritical

	defaultMaxRetry    = 5
	defaultConcurrency = 10

	// 计数任务以推荐记录ID去重，保留窗口内重复入队直接忽略
	countersTaskRetention = time.Hour
	workerShutdownTimeout = 10 * time.Second
)

// Client 推荐业务任务的入队客户端
type Client struct {
	client   *asynq.Client
	maxRetry int
}

// NewClient 创建队列客户端；未启用时返回可安全调用的空客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{maxRetry: defaultMaxRetry}, nil
	}
	maxRetry := cfg.MaxRetry
	if maxRetry <= 0 {
		maxRetry = defaultMaxRetry
	}
	return &Client{client: asynq.NewClient(buildRedisOpt(cfg)), maxRetry: maxRetry}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

// EnqueueAffiliateCounters 推送推广用户计数累加任务，同一推荐记录只保留一个待执行任务
func (c *Client) EnqueueAffiliateCounters(payload AffiliateCountersPayload, opts ...asynq.Option) error {
	task, err := NewAffiliateCountersTask(payload)
	if err != nil {
		return err
	}
	base := []asynq.Option{
		asynq.Queue(CriticalQueue),
		asynq.MaxRetry(c.retries()),
		asynq.TaskID(countersTaskID(payload.ReferralID)),
		asynq.Retention(countersTaskRetention),
	}
	return c.enqueue(task, append(base, opts...)...)
}

// EnqueueReferralValidate 推送单条推荐记录校验任务
func (c *Client) EnqueueReferralValidate(payload ReferralValidatePayload, opts ...asynq.Option) error {
	task, err := NewReferralValidateTask(payload)
	if err != nil {
		return err
	}
	base := []asynq.Option{asynq.Queue(DefaultQueue), asynq.MaxRetry(c.retries())}
	return c.enqueue(task, append(base, opts...)...)
}

// EnqueueOperatorReconcile 推送运营方批量校验任务，unique 时间窗内同一运营方只入队一次。
// 批量任务不重试，下一轮调度会重新覆盖 error 状态的记录。
func (c *Client) EnqueueOperatorReconcile(payload OperatorReconcilePayload, unique time.Duration) error {
	task, err := NewOperatorReconcileTask(payload)
	if err != nil {
		return err
	}
	options := []asynq.Option{asynq.Queue(DefaultQueue), asynq.MaxRetry(0)}
	if unique > 0 {
		options = append(options, asynq.Unique(unique))
	}
	return c.enqueue(task, options...)
}

func (c *Client) enqueue(task *asynq.Task, opts ...asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	_, err := c.client.Enqueue(task, opts...)
	if errors.Is(err, asynq.ErrDuplicateTask) || errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

func (c *Client) retries() int {
	if c == nil || c.maxRetry <= 0 {
		return defaultMaxRetry
	}
	return c.maxRetry
}

func countersTaskID(referralID uint) string {
	return "referral-counters:" + strconv.FormatUint(uint64(referralID), 10)
}

// RetryDelay 按任务类型退避：计数任务只依赖本地数据库，快速重试；
// 校验任务依赖外部市场，退避更长，避免对方故障时放大请求。
func RetryDelay(retried int, err error, task *asynq.Task) time.Duration {
	if retried < 0 {
		retried = 0
	}
	if retried > 10 {
		retried = 10
	}
	var base, ceiling time.Duration
	switch task.Type() {
	case TaskAffiliateCounters:
		base, ceiling = 5*time.Second, 5*time.Minute
	case TaskReferralValidate:
		base, ceiling = 30*time.Second, 30*time.Minute
	default:
		return asynq.DefaultRetryDelayFunc(retried, err, task)
	}
	delay := base << uint(retried)
	if delay > ceiling {
		return ceiling
	}
	return delay
}

// logTaskError 记录任务失败，最后一次重试失败时升级为 error
func logTaskError(ctx context.Context, task *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	log := logger.Ctx(ctx)
	if retried >= maxRetry {
		log.Errorw("queue_task_exhausted", "task_type", task.Type(), "retried", retried, "error", err)
		return
	}
	log.Warnw("queue_task_failed", "task_type", task.Type(), "retried", retried, "max_retry", maxRetry, "error", err)
}

// BuildServerConfig 生成队列消费端配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	concurrency := defaultConcurrency
	if cfg != nil && cfg.Concurrency > 0 {
		concurrency = cfg.Concurrency
	}
	return buildRedisOpt(cfg), asynq.Config{
		Concurrency:     concurrency,
		Queues:          queueWeights(cfg),
		RetryDelayFunc:  RetryDelay,
		ErrorHandler:    asynq.ErrorHandlerFunc(logTaskError),
		ShutdownTimeout: workerShutdownTimeout,
	}
}

// queueWeights 读取配置的队列权重，忽略非正权重；全部无效时使用默认权重
func queueWeights(cfg *config.QueueConfig) map[string]int {
	weights := make(map[string]int)
	if cfg != nil {
		for name, weight := range cfg.Queues {
			name = strings.TrimSpace(name)
			if name != "" && weight > 0 {
				weights[name] = weight
			}
		}
	}
	if len(weights) == 0 {
		return map[string]int{CriticalQueue: 6, DefaultQueue: 3}
	}
	return weights
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	host, port := "127.0.0.1", 6379
	opt := asynq.RedisClientOpt{}
	if cfg != nil {
		if trimmed := strings.TrimSpace(cfg.Host); trimmed != "" {
			host = trimmed
		}
		if cfg.Port > 0 {
			port = cfg.Port
		}
		opt.Password = cfg.Password
		opt.DB = cfg.DB
	}
	opt.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	return opt
}
