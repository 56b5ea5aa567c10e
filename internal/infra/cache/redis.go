package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"tg-xp-bot/internal/domain"
	"tg-xp-bot/internal/infra/metrics"
)

// RedisCooldowns реализует domain.CooldownTracker через SET NX PX, так что
// проверка и установка паузы выполняются одной командой даже для нескольких реплик.
type RedisCooldowns struct {
	client *redis.Client
	window time.Duration
	prefix string
}

var _ domain.CooldownTracker = (*RedisCooldowns)(nil)

// NewRedisCooldowns создаёт трекер пауз.
func NewRedisCooldowns(client *redis.Client, window time.Duration) *RedisCooldowns {
	return &RedisCooldowns{client: client, window: window, prefix: "xp:cooldown"}
}

// CheckAndSet реализует domain.CooldownTracker. Остаток паузы считает Redis по TTL ключа.
func (c *RedisCooldowns) CheckAndSet(ctx context.Context, senderID, receiverID int64, now time.Time) (time.Duration, bool, error) {
	key := fmt.Sprintf("%s:%d:%d", c.prefix, senderID, receiverID)
	// второй проход нужен, если ключ истёк между SETNX и PTTL
	for attempt := 0; attempt < 2; attempt++ {
		start := time.Now()
		ok, err := c.client.SetNX(ctx, key, now.UnixMilli(), c.window).Result()
		metrics.ObserveNetworkRequest("redis", "cooldown_setnx", "cooldown", start, err)
		if err != nil {
			return 0, false, fmt.Errorf("cooldown setnx: %w", err)
		}
		if ok {
			return 0, true, nil
		}
		start = time.Now()
		ttl, err := c.client.PTTL(ctx, key).Result()
		metrics.ObserveNetworkRequest("redis", "cooldown_pttl", "cooldown", start, err)
		if err != nil && !errors.Is(err, redis.Nil) {
			return 0, false, fmt.Errorf("cooldown pttl: %w", err)
		}
		if ttl > 0 {
			return ttl, false, nil
		}
	}
	return 0, false, errors.New("cooldown: key expired concurrently")
}

// RedisGroups хранит множество чатов бота в Redis и переживает перезапуски.
type RedisGroups struct {
	client *redis.Client
	key    string
}

var _ domain.GroupRegistry = (*RedisGroups)(nil)

// NewRedisGroups создаёт реестр чатов.
func NewRedisGroups(client *redis.Client) *RedisGroups {
	return &RedisGroups{client: client, key: "xp:groups"}
}

// Add добавляет чат.
func (g *RedisGroups) Add(ctx context.Context, chatID int64) error {
	start := time.Now()
	err := g.client.SAdd(ctx, g.key, chatID).Err()
	metrics.ObserveNetworkRequest("redis", "groups_add", "groups", start, err)
	return err
}

// List возвращает все чаты.
func (g *RedisGroups) List(ctx context.Context) ([]int64, error) {
	start := time.Now()
	members, err := g.client.SMembers(ctx, g.key).Result()
	metrics.ObserveNetworkRequest("redis", "groups_list", "groups", start, err)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(members))
	for _, raw := range members {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
