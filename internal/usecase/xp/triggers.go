package xp

import (
	"strings"

	"tg-xp-bot/internal/domain"
)

// TriggerKind: категория триггера.
type TriggerKind int

const (
	TriggerNone TriggerKind = iota
	TriggerSimplePlus
	TriggerDoublePlus
	TriggerSimpleMinus
	TriggerDoubleMinus
)

// Delta возвращает изменение XP для категории.
func (k TriggerKind) Delta() int {
	switch k {
	case TriggerSimplePlus:
		return 1
	case TriggerDoublePlus:
		return 2
	case TriggerSimpleMinus:
		return -1
	case TriggerDoubleMinus:
		return -2
	default:
		return 0
	}
}

func (k TriggerKind) String() string {
	switch k {
	case TriggerSimplePlus:
		return "simple_plus"
	case TriggerDoublePlus:
		return "double_plus"
	case TriggerSimpleMinus:
		return "simple_minus"
	case TriggerDoubleMinus:
		return "double_minus"
	default:
		return "none"
	}
}

// Classifier сопоставляет текст сообщения с категорией триггера.
type Classifier struct {
	tokens map[string]TriggerKind
}

// NewClassifier строит классификатор. Если токен указан в нескольких наборах,
// побеждает первый в порядке: simple_plus, double_plus, simple_minus, double_minus.
func NewClassifier(set domain.TriggerSet) *Classifier {
	c := &Classifier{tokens: make(map[string]TriggerKind)}
	c.add(set.SimplePlus, TriggerSimplePlus)
	c.add(set.DoublePlus, TriggerDoublePlus)
	c.add(set.SimpleMinus, TriggerSimpleMinus)
	c.add(set.DoubleMinus, TriggerDoubleMinus)
	return c
}

func (c *Classifier) add(tokens []string, kind TriggerKind) {
	for _, token := range tokens {
		key := Normalize(token)
		if key == "" {
			continue
		}
		if _, exists := c.tokens[key]; exists {
			continue
		}
		c.tokens[key] = kind
	}
}

// Classify возвращает категорию; TriggerNone, текст не триггер.
func (c *Classifier) Classify(text string) TriggerKind {
	return c.tokens[Normalize(text)]
}

// Normalize приводит текст к нижнему регистру и обрезает пробелы.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
