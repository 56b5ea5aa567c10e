package xp

import (
	"testing"

	"tg-xp-bot/internal/domain"
)

func defaultSet() domain.TriggerSet {
	return domain.TriggerSet{
		SimplePlus:  []string{"+"},
		DoublePlus:  []string{"++", "mega+", "megamas", "megamás"},
		SimpleMinus: []string{"-"},
		DoubleMinus: []string{"--", "mega-", "megamenos"},
	}
}

func TestClassify(t *testing.T) {
	c := NewClassifier(defaultSet())
	tests := []struct {
		text  string
		want  TriggerKind
		delta int
	}{
		{text: "+", want: TriggerSimplePlus, delta: 1},
		{text: "++", want: TriggerDoublePlus, delta: 2},
		{text: "MEGA+", want: TriggerDoublePlus, delta: 2},
		{text: " megamas ", want: TriggerDoublePlus, delta: 2},
		{text: "MegaMás", want: TriggerDoublePlus, delta: 2},
		{text: "-", want: TriggerSimpleMinus, delta: -1},
		{text: "--", want: TriggerDoubleMinus, delta: -2},
		{text: "Megamenos", want: TriggerDoubleMinus, delta: -2},
		{text: "hello", want: TriggerNone, delta: 0},
		{text: "+ +", want: TriggerNone, delta: 0},
		{text: "", want: TriggerNone, delta: 0},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := c.Classify(tt.text)
			if got != tt.want {
				t.Fatalf("Classify(%q) = %v, want %v", tt.text, got, tt.want)
			}
			if got.Delta() != tt.delta {
				t.Fatalf("Delta() = %d, want %d", got.Delta(), tt.delta)
			}
		})
	}
}

func TestClassifierFirstSetWins(t *testing.T) {
	c := NewClassifier(domain.TriggerSet{
		SimplePlus:  []string{"ok"},
		DoubleMinus: []string{"OK", ""},
	})
	if got := c.Classify("ok"); got != TriggerSimplePlus {
		t.Fatalf("ожидали simple_plus, получили %v", got)
	}
	if got := c.Classify(""); got != TriggerNone {
		t.Fatalf("пустой токен не должен быть триггером, получили %v", got)
	}
}
