package repo

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"tg-xp-bot/internal/domain"
	"tg-xp-bot/internal/infra/db"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xp_data.db")
	conn, err := db.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	store := NewSQLite(conn, path)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestSQLiteReadsDoNotCreateRows(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)

	xp, err := store.GetUserXP(ctx, 1, 42)
	if err != nil || xp != 0 {
		t.Fatalf("ожидали 0 без ошибки, получили %d (%v)", xp, err)
	}
	if enabled, err := store.IsChatEnabled(ctx, 1); err != nil || enabled {
		t.Fatalf("новый чат должен быть выключен: %v (%v)", enabled, err)
	}
	if _, ok, _ := store.GetStoredUsername(ctx, 1, 42); ok {
		t.Fatal("имени быть не должно")
	}
	if err := store.RefreshUsername(ctx, 1, 42, "Алиса"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	top, err := store.GetTopUsers(ctx, 1, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 0 {
		t.Fatalf("чтения не должны создавать строки, получили %+v", top)
	}
}

func TestSQLiteUpdateAccumulatesDeltas(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)

	for _, delta := range []int{1, 2, -1, -2, 2} {
		if _, err := store.UpdateUserXP(ctx, 1, 7, delta); err != nil {
			t.Fatalf("update: %v", err)
		}
	}
	xp, err := store.UpdateUserXP(ctx, 1, 7, 0)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if xp != 2 {
		t.Fatalf("ожидали сумму 2, получили %d", xp)
	}
	if other, _ := store.GetUserXP(ctx, 2, 7); other != 0 {
		t.Fatalf("счёт в другом чате должен быть независим, получили %d", other)
	}
}

func TestSQLiteSetChatEnabledIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)

	for i := 0; i < 2; i++ {
		if err := store.SetChatEnabled(ctx, 5, true); err != nil {
			t.Fatalf("enable: %v", err)
		}
	}
	if enabled, _ := store.IsChatEnabled(ctx, 5); !enabled {
		t.Fatal("чат должен быть включён")
	}
	if err := store.SetChatEnabled(ctx, 5, false); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if enabled, _ := store.IsChatEnabled(ctx, 5); enabled {
		t.Fatal("чат должен быть выключен")
	}
}

func TestSQLiteTopTieBreaksByInsertion(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)

	_, _ = store.UpdateUserXP(ctx, 1, 100, 3) // A
	_, _ = store.UpdateUserXP(ctx, 1, 200, 3) // B
	_, _ = store.UpdateUserXP(ctx, 1, 300, 1) // C
	_ = store.RefreshUsername(ctx, 1, 200, "Боб")

	top, err := store.GetTopUsers(ctx, 1, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	got := []int64{top[0].UserID, top[1].UserID, top[2].UserID}
	want := []int64{100, 200, 300}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ожидали порядок %v, получили %v", want, got)
		}
	}
	if top[1].DisplayName != "Боб" {
		t.Fatalf("ожидали сохранённое имя, получили %q", top[1].DisplayName)
	}

	limited, _ := store.GetTopUsers(ctx, 1, 2)
	if len(limited) != 2 {
		t.Fatalf("limit не соблюдён: %d", len(limited))
	}
}

func TestSQLiteRemoveUserStartsFresh(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)

	_, _ = store.UpdateUserXP(ctx, 1, 10, 5)
	_ = store.RefreshUsername(ctx, 1, 10, "Алиса")
	if err := store.RemoveUser(ctx, 1, 10); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := store.RemoveUser(ctx, 1, 10); err != nil {
		t.Fatalf("повторное удаление не должно падать: %v", err)
	}
	if _, ok, _ := store.GetStoredUsername(ctx, 1, 10); ok {
		t.Fatal("имя должно быть удалено вместе со строкой")
	}
	xp, _ := store.UpdateUserXP(ctx, 1, 10, 1)
	if xp != 1 {
		t.Fatalf("после удаления счёт начинается заново, получили %d", xp)
	}
}

func TestSQLiteArchive(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)

	_ = store.SetChatEnabled(ctx, 1, true)
	_, _ = store.UpdateUserXP(ctx, 1, 10, 4)

	target, err := store.Archive(ctx, 2026)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if target != ArchivePath(store.path, 2026) {
		t.Fatalf("unexpected archive path %q", target)
	}
	if xp, _ := store.GetUserXP(ctx, 1, 10); xp != 0 {
		t.Fatalf("живая база должна быть пустой, получили %d", xp)
	}

	conn, err := db.OpenSQLite(target)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer conn.Close()
	archived := NewSQLite(conn, target)
	if xp, _ := archived.GetUserXP(ctx, 1, 10); xp != 4 {
		t.Fatalf("архив должен сохранить счёт, получили %d", xp)
	}
	if enabled, _ := archived.IsChatEnabled(ctx, 1); !enabled {
		t.Fatal("архив должен сохранить настройки чата")
	}

	if _, err := store.Archive(ctx, 2026); !errors.Is(err, domain.ErrArchiveExists) {
		t.Fatalf("ожидали ErrArchiveExists, получили %v", err)
	}
}

func TestArchivePath(t *testing.T) {
	if got := ArchivePath("data/xp_data.db", 2025); got != "data/xp_data_2025.db" {
		t.Fatalf("unexpected path %q", got)
	}
	if got := ArchivePath("xp", 2025); got != "xp_2025" {
		t.Fatalf("unexpected path %q", got)
	}
}
