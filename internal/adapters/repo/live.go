package repo

import (
	"context"
	"sync"

	"tg-xp-bot/internal/domain"
)

// Live оборачивает хранилище, которое обслуживает бот. Обычные операции идут под общей
// блокировкой, архивирование идёт под эксклюзивной, поэтому ротация не пересекается
// ни с одним начатым изменением XP.
type Live struct {
	mu    sync.RWMutex
	store domain.ArchivableStore
}

var _ domain.ScoreStore = (*Live)(nil)

// NewLive оборачивает хранилище.
func NewLive(store domain.ArchivableStore) *Live {
	return &Live{store: store}
}

// Rotate архивирует данные за год. При ошибке продолжает работать прежнее хранилище.
func (l *Live) Rotate(ctx context.Context, year int) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Archive(ctx, year)
}

func (l *Live) IsChatEnabled(ctx context.Context, chatID int64) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store.IsChatEnabled(ctx, chatID)
}

func (l *Live) SetChatEnabled(ctx context.Context, chatID int64, enabled bool) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store.SetChatEnabled(ctx, chatID, enabled)
}

func (l *Live) GetUserXP(ctx context.Context, chatID, userID int64) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store.GetUserXP(ctx, chatID, userID)
}

func (l *Live) UpdateUserXP(ctx context.Context, chatID, userID int64, delta int) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store.UpdateUserXP(ctx, chatID, userID, delta)
}

func (l *Live) GetTopUsers(ctx context.Context, chatID int64, limit int) ([]domain.UserScore, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store.GetTopUsers(ctx, chatID, limit)
}

func (l *Live) RefreshUsername(ctx context.Context, chatID, userID int64, name string) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store.RefreshUsername(ctx, chatID, userID, name)
}

func (l *Live) GetStoredUsername(ctx context.Context, chatID, userID int64) (string, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store.GetStoredUsername(ctx, chatID, userID)
}

func (l *Live) RemoveUser(ctx context.Context, chatID, userID int64) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store.RemoveUser(ctx, chatID, userID)
}

// Update выполняет fn под общей блокировкой: ротация дождётся её завершения.
func (l *Live) Update(fn func(store domain.ScoreStore) error) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return fn(l.store)
}
