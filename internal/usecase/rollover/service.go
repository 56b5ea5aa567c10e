package rollover

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"tg-xp-bot/internal/domain"
	"tg-xp-bot/internal/infra/metrics"
	"tg-xp-bot/internal/infra/texts"
)

// ErrAlreadyFiring возвращается, если предыдущий запуск ещё не завершён.
var ErrAlreadyFiring = errors.New("rollover already firing")

// DefaultSpec: полночь 1 января, cron с секундами.
const DefaultSpec = "0 0 0 1 1 *"

// State: состояние задачи.
type State int

const (
	StateIdle State = iota
	StateFiring
)

// Rotator архивирует живое хранилище под годом и оставляет пустое.
type Rotator interface {
	Rotate(ctx context.Context, year int) (string, error)
}

// Renderer подставляет параметры в шаблон сообщения.
type Renderer interface {
	Render(key string, params texts.Params) string
}

// Service поздравляет все чаты с Новым годом и при необходимости архивирует счета.
type Service struct {
	groups    domain.GroupRegistry
	messenger domain.Messenger
	rotator   Rotator
	texts     Renderer
	erase     bool
	loc       *time.Location
	log       zerolog.Logger
	now       func() time.Time
	firing    atomic.Bool
}

// NewService создаёт сервис. loc: часовой пояс, в котором наступает Новый год.
func NewService(groups domain.GroupRegistry, messenger domain.Messenger, rotator Rotator, renderer Renderer, erase bool, loc *time.Location, log zerolog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		groups:    groups,
		messenger: messenger,
		rotator:   rotator,
		texts:     renderer,
		erase:     erase,
		loc:       loc,
		log:       log,
		now:       time.Now,
	}
}

// State возвращает текущее состояние.
func (s *Service) State() State {
	if s.firing.Load() {
		return StateFiring
	}
	return StateIdle
}

// Register добавляет задачу в планировщик.
func (s *Service) Register(ctx context.Context, c *cron.Cron, spec string) (cron.EntryID, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	id, err := c.AddFunc(spec, func() {
		if err := s.Fire(ctx); err != nil {
			s.log.Error().Err(err).Msg("новогодняя ротация завершилась с ошибкой")
		}
	})
	if err != nil {
		return 0, fmt.Errorf("регистрация ротации: %w", err)
	}
	return id, nil
}

// Fire выполняет поздравление и, если включено, архивирование.
// Ошибка архивации не отменяет уже отправленные поздравления, а хранилище остаётся прежним.
func (s *Service) Fire(ctx context.Context) error {
	if !s.firing.CompareAndSwap(false, true) {
		return ErrAlreadyFiring
	}
	defer s.firing.Store(false)

	year := s.now().In(s.loc).Year()
	log := s.log.With().Str("run", uuid.NewString()).Int("year", year).Logger()

	chats, err := s.groups.List(ctx)
	if err != nil {
		metrics.IncRollover("error")
		return fmt.Errorf("список чатов: %w", err)
	}
	log.Info().Int("chats", len(chats)).Bool("erase", s.erase).Msg("новогодняя ротация началась")

	s.broadcast(ctx, log, chats, s.texts.Render(texts.KeyNewYearGreeting, texts.Params{"year": year}))
	if !s.erase {
		metrics.IncRollover("greeted")
		return nil
	}
	s.broadcast(ctx, log, chats, s.texts.Render(texts.KeyNewYearDeletion, texts.Params{"year": year}))

	archive, err := s.rotator.Rotate(ctx, year)
	if err != nil {
		metrics.IncRollover("archive_failed")
		log.Error().Err(err).Msg("не удалось архивировать счета, продолжаем со старыми данными")
		return fmt.Errorf("архивация: %w", err)
	}
	metrics.IncRollover("archived")
	log.Info().Str("archive", archive).Msg("счета архивированы")
	return nil
}

func (s *Service) broadcast(ctx context.Context, log zerolog.Logger, chats []int64, text string) {
	for _, chatID := range chats {
		if _, err := s.messenger.Send(ctx, domain.OutgoingMessage{ChatID: chatID, Text: text}); err != nil {
			log.Warn().Err(err).Int64("chat", chatID).Msg("не удалось отправить поздравление")
		}
	}
}
