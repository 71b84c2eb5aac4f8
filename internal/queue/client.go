package queue

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lingxian-next/internal/config"
	"github.com/lingxian-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	DefaultQueue  = constants.QueueDefault
	CriticalQueue = constants.QueueCritical

	notifyMaxRetry      = 3
	orphanAlertMaxRetry = 10
	taskTimeout         = 30 * time.Second
)

// Client 投递订单相关异步任务；未启用队列时所有投递都是空操作
type Client struct {
	client *asynq.Client
}

// NewClient 未启用时返回可安全调用的空客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{}, nil
	}
	return &Client{client: asynq.NewClient(redisOpt(cfg))}, nil
}

func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

func (c *Client) enqueue(task *asynq.Task, opts ...asynq.Option) error {
	if _, err := c.client.Enqueue(task, append([]asynq.Option{asynq.Timeout(taskTimeout)}, opts...)...); err != nil {
		return fmt.Errorf("enqueue %s failed: %w", task.Type(), err)
	}
	return nil
}

// EnqueueOrderNotify 投递站内消息通知
func (c *Client) EnqueueOrderNotify(payload OrderNotifyPayload) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewOrderNotifyTask(payload)
	if err != nil {
		return err
	}
	return c.enqueue(task, asynq.Queue(DefaultQueue), asynq.MaxRetry(notifyMaxRetry))
}

// EnqueueOrderTimeoutCancel 延迟投递超时取消，同一订单只保留一个任务
func (c *Client) EnqueueOrderTimeoutCancel(payload OrderTimeoutCancelPayload, delay time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	if delay < 0 {
		delay = 0
	}
	task, err := NewOrderTimeoutCancelTask(payload)
	if err != nil {
		return err
	}
	err = c.enqueue(task,
		asynq.Queue(DefaultQueue),
		asynq.ProcessIn(delay),
		asynq.TaskID(TimeoutCancelTaskID(payload.OrderID)),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// EnqueuePaymentOrphanAlert 孤儿支付告警走高优先级队列
func (c *Client) EnqueuePaymentOrphanAlert(payload PaymentOrphanAlertPayload) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewPaymentOrphanAlertTask(payload)
	if err != nil {
		return err
	}
	return c.enqueue(task, asynq.Queue(CriticalQueue), asynq.MaxRetry(orphanAlertMaxRetry))
}

// TimeoutCancelTaskID 超时取消任务的去重 ID
func TimeoutCancelTaskID(orderID uint) string {
	return fmt.Sprintf("%s:%d", TaskOrderTimeoutCancel, orderID)
}

// BuildServerConfig 生成 worker 端连接与并发配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	concurrency := 10
	queues := map[string]int{CriticalQueue: 6, DefaultQueue: 3}
	if cfg != nil {
		if cfg.Concurrency > 0 {
			concurrency = cfg.Concurrency
		}
		if len(cfg.Queues) > 0 {
			queues = cfg.Queues
		}
	}
	return redisOpt(cfg), asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
	}
}

func redisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	opt := asynq.RedisClientOpt{Addr: "127.0.0.1:6379"}
	if cfg == nil {
		return opt
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	opt.Addr = fmt.Sprintf("%s:%d", host, port)
	opt.Password = cfg.Password
	opt.DB = cfg.DB
	return opt
}
