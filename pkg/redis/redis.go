package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"attendance-engine/backend/config"
)

// ErrLockHeld 锁已被其他执行者持有
var ErrLockHeld = errors.New("锁已被占用")

// Client Redis 客户端封装
// 用于期间计算锁（同一月份单写者）与接口限流
type Client struct {
	rdb    goredis.UniversalClient
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── 分布式锁 ──

// releaseScript 仅当锁值与持有者令牌一致时删除，避免误删他人续上的锁
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock 已获取的锁
type Lock struct {
	client *Client
	key    string
	token  string
}

// AcquireLock SET NX 获取锁；已被占用返回 ErrLockHeld
func (c *Client) AcquireLock(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	token := uuid.NewString()
	ok, err := c.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return &Lock{client: c, key: key, token: token}, nil
}

// Release 释放锁
func (l *Lock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client.rdb, []string{l.key}, l.token).Err(); err != nil && !errors.Is(err, goredis.Nil) {
		l.client.logger.Warn("释放锁失败", zap.String("key", l.key), zap.Error(err))
		return err
	}
	return nil
}

// ── 限流 ──

// CheckRateLimit 固定窗口计数限流，返回本次请求是否放行
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= int64(limit), nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
