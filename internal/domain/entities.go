package domain

import "strings"

// ChatSetting хранит флаг включения XP для чата.
type ChatSetting struct {
	ChatID    int64
	XPEnabled bool
}

// UserScore описывает счёт участника в конкретном чате.
type UserScore struct {
	ChatID      int64
	UserID      int64
	XP          int
	DisplayName string
}

// Participant описывает автора сообщения так, как его видит Telegram.
type Participant struct {
	ID        int64
	UserName  string
	FirstName string
	LastName  string
	IsBot     bool
}

// FullName возвращает имя и фамилию участника.
func (p Participant) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

// DisplayName возвращает @username, если он есть, иначе полное имя.
func (p Participant) DisplayName() string {
	if p.UserName != "" {
		return "@" + p.UserName
	}
	return p.FullName()
}

// MemberStatus: статус участника чата по данным Telegram.
type MemberStatus string

const (
	MemberStatusUnknown       MemberStatus = ""
	MemberStatusCreator       MemberStatus = "creator"
	MemberStatusAdministrator MemberStatus = "administrator"
	MemberStatusMember        MemberStatus = "member"
	MemberStatusRestricted    MemberStatus = "restricted"
	MemberStatusLeft          MemberStatus = "left"
	MemberStatusKicked        MemberStatus = "kicked"
)

// IsAdmin сообщает, может ли участник управлять настройками чата.
func (s MemberStatus) IsAdmin() bool {
	return s == MemberStatusCreator || s == MemberStatusAdministrator
}

// Departed сообщает, что участник вышел из чата или был забанен.
// Неизвестный статус участником не считается ушедшим.
func (s MemberStatus) Departed() bool {
	return s == MemberStatusLeft || s == MemberStatusKicked
}

// TriggerSet перечисляет токены, которые меняют XP.
type TriggerSet struct {
	SimplePlus  []string `yaml:"simple_plus"`
	DoublePlus  []string `yaml:"double_plus"`
	SimpleMinus []string `yaml:"simple_minus"`
	DoubleMinus []string `yaml:"double_minus"`
}

// OutgoingMessage: сообщение, которое бот отправляет в чат.
type OutgoingMessage struct {
	ChatID  int64
	Text    string
	ReplyTo int
}
