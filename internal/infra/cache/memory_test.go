package cache

import (
	"context"
	"testing"
	"time"

	"tg-xp-bot/internal/domain"
)

func TestCooldownsPerOrderedPair(t *testing.T) {
	ctx := context.Background()
	c := NewCooldowns(30 * time.Second)
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if _, ok, _ := c.CheckAndSet(ctx, 1, 2, t0); !ok {
		t.Fatal("первое изменение должно проходить")
	}
	remaining, ok, _ := c.CheckAndSet(ctx, 1, 2, t0.Add(29*time.Second))
	if ok {
		t.Fatal("через 29 секунд пауза ещё действует")
	}
	if int(remaining/time.Second) != 1 {
		t.Fatalf("ожидали 1 секунду, получили %v", remaining)
	}
	if _, ok, _ := c.CheckAndSet(ctx, 3, 2, t0.Add(time.Second)); !ok {
		t.Fatal("другой отправитель не должен ждать")
	}
	if _, ok, _ := c.CheckAndSet(ctx, 2, 1, t0.Add(time.Second)); !ok {
		t.Fatal("обратное направление не должно ждать")
	}
	if _, ok, _ := c.CheckAndSet(ctx, 1, 2, t0.Add(31*time.Second)); !ok {
		t.Fatal("через 31 секунду пауза должна закончиться")
	}
}

func TestCooldownsRejectDoesNotReset(t *testing.T) {
	ctx := context.Background()
	c := NewCooldowns(30 * time.Second)
	t0 := time.Unix(1_700_000_000, 0)
	c.CheckAndSet(ctx, 1, 2, t0)
	c.CheckAndSet(ctx, 1, 2, t0.Add(20*time.Second))
	if _, ok, _ := c.CheckAndSet(ctx, 1, 2, t0.Add(30*time.Second)); !ok {
		t.Fatal("отказ не должен сдвигать отметку времени")
	}
}

func TestRepliesRecordAndReplace(t *testing.T) {
	r := NewReplies()
	key := domain.TopKey(10)
	if _, ok := r.RecordAndReplace(key, 100); ok {
		t.Fatal("для первого сообщения предыдущего быть не должно")
	}
	prev, ok := r.RecordAndReplace(key, 101)
	if !ok || prev != 100 {
		t.Fatalf("ожидали предыдущий id 100, получили %d %v", prev, ok)
	}
	if last, _ := r.Last(key); last != 101 {
		t.Fatalf("ожидали 101, получили %d", last)
	}
	if _, ok := r.RecordAndReplace(domain.XPChangeKey(10), 5); ok {
		t.Fatal("области должны быть независимы")
	}
	if _, ok := r.RecordAndReplace(domain.XPInfoKey(10, 7), 6); ok {
		t.Fatal("личные ответы хранятся отдельно для каждого участника")
	}
	if _, ok := r.RecordAndReplace(domain.XPInfoKey(10, 8), 7); ok {
		t.Fatal("личные ответы хранятся отдельно для каждого участника")
	}
}

func TestGroupsList(t *testing.T) {
	ctx := context.Background()
	g := NewGroups()
	_ = g.Add(ctx, 5)
	_ = g.Add(ctx, -100)
	_ = g.Add(ctx, 5)
	ids, _ := g.List(ctx)
	if len(ids) != 2 || ids[0] != -100 || ids[1] != 5 {
		t.Fatalf("unexpected groups %v", ids)
	}
}
