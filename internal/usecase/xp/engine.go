package xp

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tg-xp-bot/internal/domain"
	"tg-xp-bot/internal/infra/metrics"
	"tg-xp-bot/internal/usecase/leaderboard"
)

// Outcome: итог обработки триггера.
type Outcome int

const (
	// OutcomeIgnored: не триггер или не ответ на сообщение.
	OutcomeIgnored Outcome = iota
	// OutcomeDisabled: XP в чате выключен, нужно попросить включить.
	OutcomeDisabled
	// OutcomeSelfOrBotTarget: попытка изменить свой XP или XP бота.
	OutcomeSelfOrBotTarget
	// OutcomeTargetUnavailable: получатель вышел из чата или забанен.
	OutcomeTargetUnavailable
	// OutcomeOnCooldown: пауза для пары ещё не истекла.
	OutcomeOnCooldown
	// OutcomeApplied: XP изменён.
	OutcomeApplied
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeDisabled:
		return "disabled"
	case OutcomeSelfOrBotTarget:
		return "self_or_bot"
	case OutcomeTargetUnavailable:
		return "target_unavailable"
	case OutcomeOnCooldown:
		return "cooldown"
	case OutcomeApplied:
		return "applied"
	default:
		return "unknown"
	}
}

// Request описывает входящий ответ с возможным триггером.
type Request struct {
	ChatID int64
	Sender domain.Participant
	// Receiver: автор сообщения, на которое ответили; nil, если это не ответ.
	Receiver       *domain.Participant
	ReceiverStatus domain.MemberStatus
	Text           string
}

// Result описывает итог. Поля кроме Outcome заполнены только для
// OutcomeOnCooldown (RemainingSeconds, ReceiverName) и OutcomeApplied.
type Result struct {
	Outcome          Outcome
	Kind             TriggerKind
	RemainingSeconds int

	SenderMedal    domain.Medal
	SenderName     string
	SenderXPBefore int

	ReceiverMedal   domain.Medal
	ReceiverName    string
	ReceiverXPAfter int
}

// Store: хранилище, в котором изменение XP выполняется целиком до начала ротации.
type Store interface {
	domain.ScoreStore
	Update(fn func(store domain.ScoreStore) error) error
}

// Engine применяет триггеры к счетам участников.
type Engine struct {
	store      Store
	cooldowns  domain.CooldownTracker
	classifier *Classifier
	log        zerolog.Logger
	now        func() time.Time
}

// NewEngine создаёт движок.
func NewEngine(store Store, cooldowns domain.CooldownTracker, classifier *Classifier, log zerolog.Logger) *Engine {
	return &Engine{
		store:      store,
		cooldowns:  cooldowns,
		classifier: classifier,
		log:        log,
		now:        time.Now,
	}
}

// IsTrigger сообщает, является ли текст триггером.
func (e *Engine) IsTrigger(text string) bool {
	return e.classifier.Classify(text) != TriggerNone
}

// Apply обрабатывает триггер. Ошибка возвращается только при сбое хранилища или
// трекера пауз; состояние при этом не меняется частично.
func (e *Engine) Apply(ctx context.Context, req Request) (Result, error) {
	kind := e.classifier.Classify(req.Text)
	if kind == TriggerNone {
		return Result{Outcome: OutcomeIgnored}, nil
	}
	enabled, err := e.store.IsChatEnabled(ctx, req.ChatID)
	if err != nil {
		return Result{}, fmt.Errorf("проверка чата: %w", err)
	}
	if !enabled {
		return e.skip(OutcomeDisabled, kind), nil
	}
	if req.Receiver == nil {
		return e.skip(OutcomeIgnored, kind), nil
	}
	receiver := *req.Receiver
	if receiver.ID == req.Sender.ID || receiver.IsBot {
		return e.skip(OutcomeSelfOrBotTarget, kind), nil
	}
	if req.ReceiverStatus.Departed() {
		return e.skip(OutcomeTargetUnavailable, kind), nil
	}

	result := Result{
		Kind:         kind,
		SenderName:   req.Sender.DisplayName(),
		ReceiverName: receiver.DisplayName(),
	}
	err = e.store.Update(func(store domain.ScoreStore) error {
		senderXP, err := store.GetUserXP(ctx, req.ChatID, req.Sender.ID)
		if err != nil {
			return fmt.Errorf("XP отправителя: %w", err)
		}
		remaining, ok, err := e.cooldowns.CheckAndSet(ctx, req.Sender.ID, receiver.ID, e.now())
		if err != nil {
			return fmt.Errorf("проверка паузы: %w", err)
		}
		if !ok {
			result.Outcome = OutcomeOnCooldown
			result.RemainingSeconds = int(remaining / time.Second)
			return nil
		}
		after, err := store.UpdateUserXP(ctx, req.ChatID, receiver.ID, kind.Delta())
		if err != nil {
			return fmt.Errorf("изменение XP: %w", err)
		}
		result.Outcome = OutcomeApplied
		result.SenderXPBefore = senderXP
		result.ReceiverXPAfter = after

		// обе медали берутся из одного снимка таблицы после изменения
		podium, err := leaderboard.PodiumOf(ctx, store, req.ChatID)
		if err != nil {
			e.log.Warn().Err(err).Int64("chat", req.ChatID).Msg("не удалось получить медали")
		} else {
			result.SenderMedal = podium.MedalOf(req.Sender.ID)
			result.ReceiverMedal = podium.MedalOf(receiver.ID)
		}
		if name := receiver.FullName(); name != "" {
			if err := store.RefreshUsername(ctx, req.ChatID, receiver.ID, name); err != nil {
				e.log.Warn().Err(err).Int64("chat", req.ChatID).Int64("user", receiver.ID).Msg("не удалось обновить имя")
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	switch result.Outcome {
	case OutcomeApplied:
		metrics.IncXPChange(kind.String())
		e.log.Debug().Int64("chat", req.ChatID).Int64("sender", req.Sender.ID).Int64("receiver", receiver.ID).Int("delta", kind.Delta()).Int("xp", result.ReceiverXPAfter).Msg("XP изменён")
	case OutcomeOnCooldown:
		metrics.IncCooldownReject()
	}
	return result, nil
}

func (e *Engine) skip(outcome Outcome, kind TriggerKind) Result {
	metrics.IncIgnored(outcome.String())
	return Result{Outcome: outcome, Kind: kind}
}
