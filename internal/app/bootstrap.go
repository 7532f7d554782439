package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/affiliate-desk/internal/config"
	"github.com/affiliate-desk/internal/logger"
	"github.com/affiliate-desk/internal/provider"
	"github.com/affiliate-desk/internal/router"
	"github.com/affiliate-desk/internal/worker"

	"go.uber.org/zap"
)

// 启动模式
const (
	ModeAll    = "all"    // 接口 + 队列消费 + 定时对账
	ModeAPI    = "api"    // 仅接口
	ModeWorker = "worker" // 队列消费 + 定时对账
)

// ErrUnknownMode 未知启动模式
var ErrUnknownMode = errors.New("unknown run mode")

// Options 应用启动选项
type Options struct {
	Config          *config.Config
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            string
}

// ParseMode 规范化启动模式，空值视为 all
func ParseMode(raw string) (string, error) {
	mode := strings.ToLower(strings.TrimSpace(raw))
	switch mode {
	case "":
		return ModeAll, nil
	case ModeAll, ModeAPI, ModeWorker:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownMode, raw)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = logger.S()
	}
	if opts.ShutdownTimeout <= 0 && opts.Config != nil && opts.Config.Server.ShutdownTimeoutSeconds > 0 {
		opts.ShutdownTimeout = time.Duration(opts.Config.Server.ShutdownTimeoutSeconds) * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}
	if opts.Mode == "" {
		opts.Mode = ModeAll
	}
	return opts
}

// BuildRunner 按启动模式装配服务。
// 注册顺序即停止顺序：HTTP、定时对账、队列消费。
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	mode, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}

	container := provider.NewContainer(cfg)

	var services []Service

	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		services = append(services, NewHTTPService(cfg.Server, engine))
	}

	if mode == ModeAll || mode == ModeWorker {
		services = append(services, worker.NewScheduler(
			cfg.Validation.Schedule,
			container.OperatorRepo,
			container.ValidationService,
			container.QueueClient,
		).WithCounterSweep(
			cfg.Attribution.CounterSweepSchedule,
			time.Duration(cfg.Attribution.CounterSweepGraceSec)*time.Second,
			container.AttributionService,
		))
	}

	// all 模式下队列未启用时不启动消费者，计数与校验在请求内或定时任务中完成
	if mode == ModeWorker || (mode == ModeAll && cfg.Queue.Enabled) {
		consumer := worker.NewConsumer(container)
		workerService, err := worker.NewService(&cfg.Queue, consumer)
		if err != nil {
			return nil, err
		}
		services = append(services, workerService)
	} else if mode == ModeAll {
		logger.Infow("app_worker_skipped", "reason", "queue disabled")
	}

	return NewRunner(services...), nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	opts.Logger.Infow("app_start",
		"addr", opts.Config.Server.Host+":"+opts.Config.Server.Port,
		"mode", opts.Mode,
		"services", runner.Names(),
	)
	return RunWithOptions(runner, opts)
}
