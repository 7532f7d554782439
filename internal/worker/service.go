package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/affiliate-desk/internal/config"
	"github.com/affiliate-desk/internal/logger"
	"github.com/affiliate-desk/internal/queue"

	"github.com/hibiken/asynq"
)

// ErrQueueDisabled 队列未启用时不创建消费服务
var ErrQueueDisabled = errors.New("queue disabled")

// Service 推荐任务消费服务：计数累加、单条校验、运营方批量校验
type Service struct {
	server *asynq.Server
	mux    *asynq.ServeMux

	stopOnce sync.Once
}

// NewService 创建消费服务并注册任务处理器
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, ErrQueueDisabled
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{server: asynq.NewServer(opt, serverCfg), mux: mux}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	return "worker"
}

// Start 启动消费并阻塞到 ctx 结束；连接 Redis 失败时立即返回
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil {
		return errors.New("worker not initialized")
	}
	if err := s.server.Start(s.mux); err != nil {
		return err
	}
	logger.Infow("worker_started")
	<-ctx.Done()
	return nil
}

// Stop 等待处理中的任务结束；超过 ctx 时限则放弃等待，未完成任务由 asynq 重新投递
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		s.stopOnce.Do(s.server.Shutdown)
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
