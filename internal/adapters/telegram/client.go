package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg-xp-bot/internal/domain"
	"tg-xp-bot/internal/infra/metrics"
)

// Client реализует domain.Messenger и domain.MemberLookup поверх Bot API.
type Client struct {
	bot *tgbotapi.BotAPI
}

var (
	_ domain.Messenger    = (*Client)(nil)
	_ domain.MemberLookup = (*Client)(nil)
)

// NewClient оборачивает клиента Bot API.
func NewClient(bot *tgbotapi.BotAPI) *Client {
	return &Client{bot: bot}
}

// Send отправляет сообщение. Длинный текст уходит несколькими частями, ответом
// на ReplyTo становится только первая. Возвращает id последней части.
func (c *Client) Send(ctx context.Context, out domain.OutgoingMessage) (int, error) {
	target := strconv.FormatInt(out.ChatID, 10)
	lastID := 0
	for i, part := range SplitMessage(out.Text) {
		if err := ctx.Err(); err != nil {
			return lastID, err
		}
		msg := tgbotapi.NewMessage(out.ChatID, part)
		if i == 0 && out.ReplyTo != 0 {
			msg.ReplyToMessageID = out.ReplyTo
		}
		start := time.Now()
		sent, err := c.bot.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", target, start, err)
		if err != nil {
			metrics.BotSendErrors.Inc()
			return lastID, fmt.Errorf("send message: %w", err)
		}
		lastID = sent.MessageID
	}
	return lastID, nil
}

// Delete удаляет сообщение бота.
func (c *Client) Delete(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	_, err := c.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	metrics.ObserveNetworkRequest("telegram_bot", "delete_message", strconv.FormatInt(chatID, 10), start, err)
	if err != nil {
		return fmt.Errorf("delete message %d: %w", messageID, err)
	}
	return nil
}

// Member возвращает актуальные данные и статус участника.
func (c *Client) Member(ctx context.Context, chatID, userID int64) (domain.Participant, domain.MemberStatus, error) {
	if err := ctx.Err(); err != nil {
		return domain.Participant{}, domain.MemberStatusUnknown, err
	}
	start := time.Now()
	member, err := c.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	})
	metrics.ObserveNetworkRequest("telegram_bot", "get_chat_member", strconv.FormatInt(chatID, 10), start, err)
	if err != nil {
		return domain.Participant{}, domain.MemberStatusUnknown, fmt.Errorf("chat member %d: %w", userID, errors.Join(domain.ErrLookupUnavailable, err))
	}
	if member.User == nil {
		return domain.Participant{}, domain.MemberStatusUnknown, fmt.Errorf("chat member %d: %w", userID, domain.ErrLookupUnavailable)
	}
	return FromUser(member.User), domain.MemberStatus(member.Status), nil
}

// FromUser переводит пользователя Bot API в участника.
func FromUser(u *tgbotapi.User) domain.Participant {
	if u == nil {
		return domain.Participant{}
	}
	return domain.Participant{
		ID:        u.ID,
		UserName:  u.UserName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsBot:     u.IsBot,
	}
}
