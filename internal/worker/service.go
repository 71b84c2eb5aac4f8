package worker

import (
	"context"
	"errors"
	"time"

	"github.com/lingxian-next/internal/config"
	"github.com/lingxian-next/internal/logger"
	"github.com/lingxian-next/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	defaultSweepInterval = time.Minute
	sweepBatchSize       = 100
)

// Service 异步队列服务
type Service struct {
	name          string
	server        *asynq.Server
	mux           *asynq.ServeMux
	consumer      *Consumer
	sweepInterval time.Duration
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, orderCfg config.OrderConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	serverCfg.Logger = logger.S()
	serverCfg.ErrorHandler = asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		logger.Warnw("worker_task_failed",
			"type", task.Type(),
			"retried", retried,
			"max_retry", maxRetry,
			"error", err,
		)
	})
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:          "worker",
		server:        server,
		mux:           mux,
		consumer:      consumer,
		sweepInterval: sweepInterval(orderCfg),
	}, nil
}

func sweepInterval(cfg config.OrderConfig) time.Duration {
	if cfg.SweepIntervalSeconds <= 0 {
		return defaultSweepInterval
	}
	return time.Duration(cfg.SweepIntervalSeconds) * time.Second
}

func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动消费与兜底扫描，阻塞到 ctx 结束
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if err := s.server.Start(s.mux); err != nil {
		return err
	}
	if s.consumer != nil && s.consumer.OrderService != nil {
		go RunSweepLoop(ctx, s.consumer, s.sweepInterval)
	}
	<-ctx.Done()
	return nil
}

// Stop 等待进行中的任务处理完毕，未完成的任务回到队列
func (s *Service) Stop(_ context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	s.server.Shutdown()
	return nil
}

// RunSweepLoop 周期性兜底取消过期订单，延迟任务丢失时由此补偿
func RunSweepLoop(ctx context.Context, consumer *Consumer, interval time.Duration) {
	if consumer == nil || consumer.OrderService == nil {
		return
	}
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	runOnce := func() {
		cancelled, err := consumer.OrderService.SweepExpiredOrders(ctx, sweepBatchSize)
		if err != nil {
			logger.Warnw("worker_order_sweep_failed", "error", err)
			return
		}
		if cancelled > 0 {
			logger.Infow("worker_order_sweep_done", "cancelled", cancelled)
		}
	}
	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

// SweepService 未启用队列时仅运行过期订单兜底扫描
type SweepService struct {
	consumer *Consumer
	interval time.Duration
	done     chan struct{}
}

// NewSweepService 创建兜底扫描服务
func NewSweepService(orderCfg config.OrderConfig, consumer *Consumer) *SweepService {
	return &SweepService{consumer: consumer, interval: sweepInterval(orderCfg), done: make(chan struct{})}
}

// Name 服务名称
func (s *SweepService) Name() string {
	return "order_sweeper"
}

// Start 阻塞运行直到 ctx 结束
func (s *SweepService) Start(ctx context.Context) error {
	defer close(s.done)
	RunSweepLoop(ctx, s.consumer, s.interval)
	<-ctx.Done()
	return nil
}

// Stop 等待扫描循环退出
func (s *SweepService) Stop(ctx context.Context) error {
	select {
	case <-s.done:
	case <-ctx.Done():
	}
	return nil
}
