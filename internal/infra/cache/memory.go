package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"tg-xp-bot/internal/domain"
)

type cooldownPair struct {
	sender   int64
	receiver int64
}

// Cooldowns хранит в памяти время последнего изменения XP для пары
// отправитель → получатель. Данные живут до перезапуска процесса.
type Cooldowns struct {
	window time.Duration
	mu     sync.Mutex
	last   map[cooldownPair]time.Time
}

var _ domain.CooldownTracker = (*Cooldowns)(nil)

// NewCooldowns создаёт трекер с заданной паузой.
func NewCooldowns(window time.Duration) *Cooldowns {
	return &Cooldowns{window: window, last: make(map[cooldownPair]time.Time)}
}

// CheckAndSet реализует domain.CooldownTracker.
func (c *Cooldowns) CheckAndSet(_ context.Context, senderID, receiverID int64, now time.Time) (time.Duration, bool, error) {
	key := cooldownPair{sender: senderID, receiver: receiverID}
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.last[key]; ok {
		if elapsed := now.Sub(prev); elapsed < c.window {
			return c.window - elapsed, false, nil
		}
	}
	c.last[key] = now
	return 0, true, nil
}

// Replies запоминает последнее служебное сообщение бота в каждой области.
type Replies struct {
	mu   sync.Mutex
	last map[domain.ReplyKey]int
}

var _ domain.ReplyTracker = (*Replies)(nil)

// NewReplies создаёт пустой трекер.
func NewReplies() *Replies {
	return &Replies{last: make(map[domain.ReplyKey]int)}
}

// RecordAndReplace сохраняет новый id и возвращает предыдущий, если он был.
func (r *Replies) RecordAndReplace(key domain.ReplyKey, messageID int) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.last[key]
	r.last[key] = messageID
	return prev, ok
}

// Last возвращает текущий id для ключа.
func (r *Replies) Last(key domain.ReplyKey) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.last[key]
	return id, ok
}

// Groups: множество чатов в памяти процесса.
type Groups struct {
	mu  sync.Mutex
	set map[int64]struct{}
}

var _ domain.GroupRegistry = (*Groups)(nil)

// NewGroups создаёт пустое множество.
func NewGroups() *Groups {
	return &Groups{set: make(map[int64]struct{})}
}

// Add добавляет чат.
func (g *Groups) Add(_ context.Context, chatID int64) error {
	g.mu.Lock()
	g.set[chatID] = struct{}{}
	g.mu.Unlock()
	return nil
}

// List возвращает чаты по возрастанию id.
func (g *Groups) List(_ context.Context) ([]int64, error) {
	g.mu.Lock()
	ids := make([]int64, 0, len(g.set))
	for id := range g.set {
		ids = append(ids, id)
	}
	g.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
