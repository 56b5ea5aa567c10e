package domain

import "testing"

func TestMedalForPosition(t *testing.T) {
	tests := []struct {
		name  string
		pos   int
		want  Medal
		glyph string
	}{
		{name: "first", pos: 0, want: MedalGold, glyph: "🥇"},
		{name: "second", pos: 1, want: MedalSilver, glyph: "🥈"},
		{name: "third", pos: 2, want: MedalBronze, glyph: "🥉"},
		{name: "fourth", pos: 3, want: MedalNone, glyph: ""},
		{name: "negative", pos: -1, want: MedalNone, glyph: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MedalForPosition(tt.pos)
			if got != tt.want {
				t.Fatalf("MedalForPosition(%d) = %v, want %v", tt.pos, got, tt.want)
			}
			if got.Glyph() != tt.glyph {
				t.Fatalf("Glyph() = %q, want %q", got.Glyph(), tt.glyph)
			}
		})
	}
}

func TestMemberStatus(t *testing.T) {
	if !MemberStatusCreator.IsAdmin() || !MemberStatusAdministrator.IsAdmin() {
		t.Fatal("creator и administrator должны считаться админами")
	}
	if MemberStatusMember.IsAdmin() || MemberStatusUnknown.IsAdmin() {
		t.Fatal("обычный участник не админ")
	}
	if !MemberStatusLeft.Departed() || !MemberStatusKicked.Departed() {
		t.Fatal("left и kicked должны считаться ушедшими")
	}
	if MemberStatusUnknown.Departed() || MemberStatusRestricted.Departed() {
		t.Fatal("неизвестный статус не должен блокировать начисление")
	}
}

func TestParticipantNames(t *testing.T) {
	p := Participant{FirstName: "Ana", LastName: "García"}
	if p.DisplayName() != "Ana García" {
		t.Fatalf("unexpected display name %q", p.DisplayName())
	}
	p.UserName = "ana"
	if p.DisplayName() != "@ana" {
		t.Fatalf("unexpected display name %q", p.DisplayName())
	}
	if p.FullName() != "Ana García" {
		t.Fatalf("unexpected full name %q", p.FullName())
	}
}
