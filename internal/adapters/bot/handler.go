package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-xp-bot/internal/adapters/telegram"
	"tg-xp-bot/internal/domain"
	"tg-xp-bot/internal/infra/texts"
	"tg-xp-bot/internal/usecase/leaderboard"
	"tg-xp-bot/internal/usecase/xp"
)

// Handler обрабатывает апдейты Telegram: команды, триггеры XP и события участников.
type Handler struct {
	messenger domain.Messenger
	members   domain.MemberLookup
	engine    *xp.Engine
	board     *leaderboard.Service
	store     domain.ScoreStore
	groups    domain.GroupRegistry
	replies   domain.ReplyTracker
	texts     *texts.Catalog
	botID     int64
	log       zerolog.Logger
}

// NewHandler создаёт обработчик. botID: id самого бота, его XP менять нельзя.
func NewHandler(messenger domain.Messenger, members domain.MemberLookup, engine *xp.Engine, board *leaderboard.Service, store domain.ScoreStore, groups domain.GroupRegistry, replies domain.ReplyTracker, catalog *texts.Catalog, botID int64, log zerolog.Logger) *Handler {
	return &Handler{
		messenger: messenger,
		members:   members,
		engine:    engine,
		board:     board,
		store:     store,
		groups:    groups,
		replies:   replies,
		texts:     catalog,
		botID:     botID,
		log:       log,
	}
}

// Run последовательно обрабатывает апдейты, пока не закроется канал или не отменится ctx.
func (h *Handler) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			h.HandleUpdate(ctx, upd)
		}
	}
}

// HandleUpdate обрабатывает входящий апдейт. Отредактированные сообщения игнорируются.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil || upd.Message.Chat == nil {
		return
	}
	h.handleMessage(ctx, upd.Message)
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if msg.Chat.IsGroup() || msg.Chat.IsSuperGroup() {
		if err := h.groups.Add(ctx, chatID); err != nil {
			h.log.Warn().Err(err).Int64("chat", chatID).Msg("не удалось запомнить чат")
		}
	}

	switch {
	case len(msg.NewChatMembers) > 0:
		h.handleNewMembers(ctx, msg)
	case msg.LeftChatMember != nil:
		h.handleLeftMember(ctx, msg)
	case msg.IsCommand():
		h.handleCommand(ctx, msg)
	case msg.From != nil && h.engine.IsTrigger(msg.Text):
		h.handleTrigger(ctx, msg)
	}
}

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		h.reply(ctx, msg, h.texts.Render(texts.KeyGreeting, nil))
	case "enable":
		h.handleToggle(ctx, msg, true)
	case "disable":
		h.handleToggle(ctx, msg, false)
	case "xp":
		h.handleXP(ctx, msg)
	case "top":
		h.handleTop(ctx, msg)
	}
}

type toggleTexts struct {
	done, already, noRights, runtimeError string
}

var (
	enableTexts  = toggleTexts{texts.KeyEnabled, texts.KeyEnabledAlready, texts.KeyEnabledNoRights, texts.KeyEnabledRuntimeError}
	disableTexts = toggleTexts{texts.KeyDisabled, texts.KeyDisabledAlready, texts.KeyDisabledNoRights, texts.KeyDisabledRuntimeError}
)

func (h *Handler) handleToggle(ctx context.Context, msg *tgbotapi.Message, enable bool) {
	keys := disableTexts
	if enable {
		keys = enableTexts
	}
	chatID := msg.Chat.ID

	current, err := h.store.IsChatEnabled(ctx, chatID)
	if err != nil {
		h.log.Error().Err(err).Int64("chat", chatID).Msg("не удалось прочитать настройки чата")
		h.reply(ctx, msg, h.texts.Render(keys.runtimeError, nil))
		return
	}
	if current == enable {
		h.reply(ctx, msg, h.texts.Render(keys.already, nil))
		return
	}
	if !h.isAdmin(ctx, chatID, msg.From) {
		h.reply(ctx, msg, h.texts.Render(keys.noRights, nil))
		return
	}
	if err := h.store.SetChatEnabled(ctx, chatID, enable); err != nil {
		h.log.Error().Err(err).Int64("chat", chatID).Bool("enable", enable).Msg("не удалось сохранить настройки чата")
		h.reply(ctx, msg, h.texts.Render(keys.runtimeError, nil))
		return
	}
	h.log.Info().Int64("chat", chatID).Bool("enable", enable).Msg("подсчёт XP переключён")
	h.reply(ctx, msg, h.texts.Render(keys.done, nil))
}

// isAdmin проверяет статус по живым данным. Если статус узнать не удалось, прав нет.
func (h *Handler) isAdmin(ctx context.Context, chatID int64, from *tgbotapi.User) bool {
	if from == nil {
		return false
	}
	_, status, err := h.members.Member(ctx, chatID, from.ID)
	if err != nil {
		h.log.Warn().Err(err).Int64("chat", chatID).Int64("user", from.ID).Msg("не удалось узнать статус участника")
		return false
	}
	return status.IsAdmin()
}

func (h *Handler) handleXP(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	chatID := msg.Chat.ID
	enabled, err := h.store.IsChatEnabled(ctx, chatID)
	if err != nil {
		h.log.Error().Err(err).Int64("chat", chatID).Msg("не удалось прочитать настройки чата")
		return
	}
	if !enabled {
		h.reply(ctx, msg, h.texts.Render(texts.KeyWarn, nil))
		return
	}
	value, err := h.store.GetUserXP(ctx, chatID, msg.From.ID)
	if err != nil {
		h.log.Error().Err(err).Int64("chat", chatID).Int64("user", msg.From.ID).Msg("не удалось получить XP")
		return
	}
	sender := telegram.FromUser(msg.From)
	text := h.texts.Render(texts.KeyXPStatus, texts.Params{"name": sender.DisplayName(), "xp": value})
	h.replyTracked(ctx, msg, domain.XPInfoKey(chatID, sender.ID), text)
}

func (h *Handler) handleTop(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	enabled, err := h.store.IsChatEnabled(ctx, chatID)
	if err != nil {
		h.log.Error().Err(err).Int64("chat", chatID).Msg("не удалось прочитать настройки чата")
		return
	}
	if !enabled {
		h.reply(ctx, msg, h.texts.Render(texts.KeyWarn, nil))
		return
	}
	top, err := h.board.Top(ctx, chatID, leaderboard.DefaultLimit)
	if err != nil {
		h.log.Error().Err(err).Int64("chat", chatID).Msg("не удалось построить таблицу лидеров")
		return
	}

	var b strings.Builder
	b.WriteString(h.texts.Render(texts.KeyTopHeader, nil))
	b.WriteString("\n\n")
	if len(top) == 0 {
		b.WriteString(h.texts.Render(texts.KeyTopEmpty, nil))
	}
	for i, score := range top {
		fmt.Fprintf(&b, "[%s] %s (%+d)\n", leaderboard.RankLabel(i), h.memberName(ctx, chatID, score), score.XP)
	}
	h.replyTracked(ctx, msg, domain.TopKey(chatID), b.String())
}

// memberName берёт имя из Telegram, затем из сохранённого, затем id.
func (h *Handler) memberName(ctx context.Context, chatID int64, score domain.UserScore) string {
	member, _, err := h.members.Member(ctx, chatID, score.UserID)
	if err == nil {
		if name := member.FullName(); name != "" {
			return name
		}
	} else {
		h.log.Debug().Err(err).Int64("chat", chatID).Int64("user", score.UserID).Msg("участник недоступен, берём сохранённое имя")
	}
	if score.DisplayName != "" {
		return score.DisplayName
	}
	return strconv.FormatInt(score.UserID, 10)
}

func (h *Handler) handleTrigger(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	req := xp.Request{
		ChatID: chatID,
		Sender: telegram.FromUser(msg.From),
		Text:   msg.Text,
	}
	if reply := msg.ReplyToMessage; reply != nil && reply.From != nil {
		receiver := telegram.FromUser(reply.From)
		req.Receiver = &receiver
		if receiver.ID != req.Sender.ID && !receiver.IsBot {
			_, status, err := h.members.Member(ctx, chatID, receiver.ID)
			if err != nil {
				h.log.Warn().Err(err).Int64("chat", chatID).Int64("user", receiver.ID).Msg("статус получателя неизвестен")
			}
			req.ReceiverStatus = status
		}
	}

	result, err := h.engine.Apply(ctx, req)
	if err != nil {
		h.log.Error().Err(err).Int64("chat", chatID).Int64("sender", req.Sender.ID).Msg("не удалось изменить XP")
		return
	}

	switch result.Outcome {
	case xp.OutcomeDisabled:
		h.reply(ctx, msg, h.texts.Render(texts.KeyWarn, nil))
	case xp.OutcomeOnCooldown:
		text := h.texts.Render(texts.KeyWait, texts.Params{"time": result.RemainingSeconds, "name": result.ReceiverName})
		h.replyTracked(ctx, msg, domain.XPChangeKey(chatID), text)
	case xp.OutcomeApplied:
		text := h.texts.Render(texts.KeyXPChange, texts.Params{
			"sender_medal":   result.SenderMedal.Glyph(),
			"sender_name":    result.SenderName,
			"sender_xp":      result.SenderXPBefore,
			"receiver_medal": result.ReceiverMedal.Glyph(),
			"receiver_name":  result.ReceiverName,
			"receiver_xp":    fmt.Sprintf("%+d", result.ReceiverXPAfter),
		})
		h.replyTracked(ctx, msg, domain.XPChangeKey(chatID), text)
	}
}

func (h *Handler) handleNewMembers(ctx context.Context, msg *tgbotapi.Message) {
	for _, member := range msg.NewChatMembers {
		if member.ID == h.botID {
			h.send(ctx, domain.OutgoingMessage{ChatID: msg.Chat.ID, Text: h.texts.Render(texts.KeyGroupGreeting, nil)})
			return
		}
	}
}

func (h *Handler) handleLeftMember(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	left := telegram.FromUser(msg.LeftChatMember)
	if err := h.store.RemoveUser(ctx, chatID, left.ID); err != nil {
		h.log.Error().Err(err).Int64("chat", chatID).Int64("user", left.ID).Msg("не удалось удалить участника")
	}
	if left.ID == h.botID {
		return
	}
	h.reply(ctx, msg, h.texts.Render(texts.KeyLeave, texts.Params{"name": left.DisplayName()}))
}

func (h *Handler) reply(ctx context.Context, msg *tgbotapi.Message, text string) {
	h.send(ctx, domain.OutgoingMessage{ChatID: msg.Chat.ID, Text: text, ReplyTo: msg.MessageID})
}

// replyTracked отправляет служебное сообщение и удаляет предыдущее в той же области.
func (h *Handler) replyTracked(ctx context.Context, msg *tgbotapi.Message, key domain.ReplyKey, text string) {
	id, ok := h.send(ctx, domain.OutgoingMessage{ChatID: msg.Chat.ID, Text: text, ReplyTo: msg.MessageID})
	if !ok {
		return
	}
	prev, had := h.replies.RecordAndReplace(key, id)
	if !had || prev == id {
		return
	}
	if err := h.messenger.Delete(ctx, msg.Chat.ID, prev); err != nil {
		h.log.Debug().Err(err).Int64("chat", msg.Chat.ID).Int("message", prev).Msg("не удалось удалить старое сообщение")
	}
}

func (h *Handler) send(ctx context.Context, out domain.OutgoingMessage) (int, bool) {
	id, err := h.messenger.Send(ctx, out)
	if err != nil {
		h.log.Error().Err(err).Int64("chat", out.ChatID).Msg("не удалось отправить сообщение")
		return 0, false
	}
	return id, true
}
