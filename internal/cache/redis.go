package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lingxian-next/internal/config"
	"github.com/lingxian-next/internal/logger"

	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "lx"
	initPingTimeout  = 3 * time.Second
)

// store 进程内唯一的 Redis 连接，未启用时所有读写都是空操作
type store struct {
	mu     sync.RWMutex
	client *redis.Client
	prefix string
}

var shared = &store{prefix: defaultKeyPrefix}

func (s *store) snapshot() (*redis.Client, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client, s.prefix
}

func (s *store) swap(client *redis.Client, prefix string) *redis.Client {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.client
	s.client = client
	s.prefix = prefix
	return old
}

// InitRedis 按配置建立连接；首次 ping 失败只告警，缓存读写会各自降级
func InitRedis(cfg *config.RedisConfig) error {
	if cfg == nil || !cfg.Enabled {
		if old := shared.swap(nil, ""); old != nil {
			_ = old.Close()
		}
		return nil
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if old := shared.swap(client, cfg.Prefix); old != nil {
		_ = old.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), initPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warnw("cache_redis_ping_failed", "addr", client.Options().Addr, "error", err)
	}
	return nil
}

// UseClient 注入外部客户端，测试或与队列共享连接时使用
func UseClient(client *redis.Client, prefix string) {
	shared.swap(client, prefix)
}

// Close 关闭连接并回到未启用状态
func Close() error {
	old := shared.swap(nil, "")
	if old == nil {
		return nil
	}
	return old.Close()
}

// Ping 未启用时视为正常
func Ping(ctx context.Context) error {
	client, _ := shared.snapshot()
	if client == nil {
		return nil
	}
	return client.Ping(ctx).Err()
}

func Enabled() bool {
	client, _ := shared.snapshot()
	return client != nil
}

// Client 未启用时返回 nil，调用方据此跳过限流等依赖 Redis 的逻辑
func Client() *redis.Client {
	client, _ := shared.snapshot()
	return client
}

// GetJSON 未命中返回 (false, nil)
func GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	client, prefix := shared.snapshot()
	if client == nil {
		return false, nil
	}
	raw, err := client.Get(ctx, buildKey(prefix, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	client, prefix := shared.snapshot()
	if client == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return client.Set(ctx, buildKey(prefix, key), payload, ttl).Err()
}

func Del(ctx context.Context, key string) error {
	client, prefix := shared.snapshot()
	if client == nil {
		return nil
	}
	return client.Del(ctx, buildKey(prefix, key)).Err()
}

func buildKey(prefix, key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return prefix
	}
	return prefix + ":" + key
}
