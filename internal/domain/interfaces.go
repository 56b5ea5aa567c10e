package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrStorage возвращается, когда хранилище отклонило операцию.
	ErrStorage = errors.New("storage error")
	// ErrLookupUnavailable возвращается, когда Telegram не смог отдать данные участника.
	ErrLookupUnavailable = errors.New("member lookup unavailable")
	// ErrArchiveExists возвращается, если архив за этот год уже существует.
	ErrArchiveExists = errors.New("archive already exists")
)

// ScoreStore хранит флаги чатов и счета участников.
// Чтение никогда не создаёт строк, запись всегда делает upsert.
type ScoreStore interface {
	IsChatEnabled(ctx context.Context, chatID int64) (bool, error)
	SetChatEnabled(ctx context.Context, chatID int64, enabled bool) error
	GetUserXP(ctx context.Context, chatID, userID int64) (int, error)
	// UpdateUserXP атомарно прибавляет delta и возвращает новое значение.
	UpdateUserXP(ctx context.Context, chatID, userID int64, delta int) (int, error)
	// GetTopUsers возвращает участников по убыванию XP; при равенстве раньше идёт тот,
	// чья строка была создана раньше.
	GetTopUsers(ctx context.Context, chatID int64, limit int) ([]UserScore, error)
	RefreshUsername(ctx context.Context, chatID, userID int64, name string) error
	GetStoredUsername(ctx context.Context, chatID, userID int64) (string, bool, error)
	RemoveUser(ctx context.Context, chatID, userID int64) error
}

// Archiver переносит текущие данные в архив с годом в имени и оставляет пустое хранилище.
type Archiver interface {
	Archive(ctx context.Context, year int) (string, error)
}

// ArchivableStore: хранилище, которое умеет архивироваться.
type ArchivableStore interface {
	ScoreStore
	Archiver
}

// CooldownTracker следит за паузой между изменениями XP от отправителя к получателю.
type CooldownTracker interface {
	// CheckAndSet атомарно проверяет паузу для пары и, если она истекла, запоминает now.
	// При отказе возвращает оставшееся время и false, отметка времени не меняется.
	CheckAndSet(ctx context.Context, senderID, receiverID int64, now time.Time) (time.Duration, bool, error)
}

// ReplyScope разделяет служебные сообщения бота по типу.
type ReplyScope int

const (
	ReplyScopeXPChange ReplyScope = iota
	ReplyScopeTop
	ReplyScopeXPInfo
)

// ReplyKey идентифицирует последнее служебное сообщение в области видимости.
type ReplyKey struct {
	Scope  ReplyScope
	ChatID int64
	UserID int64
}

// XPChangeKey: ключ объявлений об изменении XP в чате.
func XPChangeKey(chatID int64) ReplyKey {
	return ReplyKey{Scope: ReplyScopeXPChange, ChatID: chatID}
}

// TopKey — ключ таблицы лидеров в чате.
func TopKey(chatID int64) ReplyKey {
	return ReplyKey{Scope: ReplyScopeTop, ChatID: chatID}
}

// XPInfoKey: ключ личного ответа на /xp.
func XPInfoKey(chatID, userID int64) ReplyKey {
	return ReplyKey{Scope: ReplyScopeXPInfo, ChatID: chatID, UserID: userID}
}

// ReplyTracker запоминает последнее служебное сообщение, чтобы удалить его перед новым.
type ReplyTracker interface {
	RecordAndReplace(key ReplyKey, messageID int) (int, bool)
}

// GroupRegistry хранит чаты, в которых присутствует бот.
type GroupRegistry interface {
	Add(ctx context.Context, chatID int64) error
	List(ctx context.Context) ([]int64, error)
}

// Messenger отправляет и удаляет сообщения.
type Messenger interface {
	Send(ctx context.Context, msg OutgoingMessage) (int, error)
	Delete(ctx context.Context, chatID int64, messageID int) error
}

// MemberLookup получает актуальные данные участника чата.
type MemberLookup interface {
	Member(ctx context.Context, chatID, userID int64) (Participant, MemberStatus, error)
}
