package leaderboard

import (
	"context"
	"fmt"
	"strconv"

	"tg-xp-bot/internal/domain"
)

// DefaultLimit: размер таблицы лидеров по умолчанию.
const DefaultLimit = 10

const podiumSize = 3

// Service строит таблицу лидеров и медали.
type Service struct {
	store domain.ScoreStore
}

// NewService создаёт сервис.
func NewService(store domain.ScoreStore) *Service {
	return &Service{store: store}
}

// Top возвращает лучших участников чата. Пустой результат не считается ошибкой.
func (s *Service) Top(ctx context.Context, chatID int64, limit int) ([]domain.UserScore, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	top, err := s.store.GetTopUsers(ctx, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("таблица лидеров: %w", err)
	}
	return top, nil
}

// Medal возвращает медаль участника.
func (s *Service) Medal(ctx context.Context, chatID, userID int64) (domain.Medal, error) {
	podium, err := PodiumOf(ctx, s.store, chatID)
	if err != nil {
		return domain.MedalNone, err
	}
	return podium.MedalOf(userID), nil
}

// Podium хранит первые три места чата в порядке таблицы.
type Podium []int64

// PodiumOf читает первые три места из хранилища.
func PodiumOf(ctx context.Context, store domain.ScoreStore, chatID int64) (Podium, error) {
	top, err := store.GetTopUsers(ctx, chatID, podiumSize)
	if err != nil {
		return nil, fmt.Errorf("пьедестал: %w", err)
	}
	podium := make(Podium, 0, len(top))
	for _, score := range top {
		podium = append(podium, score.UserID)
	}
	return podium, nil
}

// MedalOf возвращает медаль участника по его месту.
func (p Podium) MedalOf(userID int64) domain.Medal {
	for i, id := range p {
		if i >= podiumSize {
			break
		}
		if id == userID {
			return domain.MedalForPosition(i)
		}
	}
	return domain.MedalNone
}

// RankLabel возвращает метку строки таблицы: медаль для первых трёх мест, иначе номер.
func RankLabel(pos int) string {
	if glyph := domain.MedalForPosition(pos).Glyph(); glyph != "" {
		return glyph
	}
	return strconv.Itoa(pos + 1)
}
