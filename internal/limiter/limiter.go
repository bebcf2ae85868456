package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Allower решает, можно ли пропустить очередной запрос с ключом key.
type Allower interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Strategy — алгоритм ограничения частоты поверх Redis.
type Strategy interface {
	Allow(ctx context.Context, rdb redis.Scripter, key string, limit int, window time.Duration) (bool, error)
}

// Manager применяет стратегию с фиксированными лимитом и окном.
type Manager struct {
	rdb      redis.Scripter
	strategy Strategy
	prefix   string
	limit    int
	window   time.Duration
}

// NewManager создает ограничитель: не более limit запросов за window на ключ.
func NewManager(rdb redis.Scripter, strategy Strategy, prefix string, limit int, window time.Duration) *Manager {
	return &Manager{rdb: rdb, strategy: strategy, prefix: prefix, limit: limit, window: window}
}

// Allow проверяет лимит для ключа.
func (m *Manager) Allow(ctx context.Context, key string) (bool, error) {
	return m.strategy.Allow(ctx, m.rdb, m.prefix+key, m.limit, m.window)
}

// fixedWindowScript атомарно выполняет INCR и EXPIRE.
var fixedWindowScript = redis.NewScript(`
	local current = redis.call("INCR", KEYS[1])
	if current == 1 then
		redis.call("EXPIRE", KEYS[1], tonumber(ARGV[2]))
	end
	if current > tonumber(ARGV[1]) then
		return 0
	end
	return 1
`)

// FixedWindowStrategy — счетчик запросов в фиксированном окне.
type FixedWindowStrategy struct{}

func (FixedWindowStrategy) Allow(ctx context.Context, rdb redis.Scripter, key string, limit int, window time.Duration) (bool, error) {
	seconds := int(window / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	result, err := fixedWindowScript.Run(ctx, rdb, []string{key}, limit, seconds).Int()
	if err != nil {
		return false, fmt.Errorf("ошибка проверки лимита для %s: %w", key, err)
	}
	return result == 1, nil
}

// NewRedisClient подключается к Redis и проверяет соединение.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ошибка подключения к Redis (%s): %w", addr, err)
	}
	return rdb, nil
}
