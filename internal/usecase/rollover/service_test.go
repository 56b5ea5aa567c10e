package rollover

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"tg-xp-bot/internal/adapters/repo"
	"tg-xp-bot/internal/domain"
	"tg-xp-bot/internal/infra/cache"
	"tg-xp-bot/internal/infra/db"
	"tg-xp-bot/internal/infra/texts"
)

type sentMessage struct {
	chatID int64
	text   string
}

type recordingMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
	fail map[int64]bool
}

func (m *recordingMessenger) Send(_ context.Context, msg domain.OutgoingMessage) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[msg.ChatID] {
		return 0, errors.New("chat not found")
	}
	m.sent = append(m.sent, sentMessage{chatID: msg.ChatID, text: msg.Text})
	return len(m.sent), nil
}

func (m *recordingMessenger) Delete(context.Context, int64, int) error { return nil }

type stubRotator struct {
	calls int
	year  int
	err   error
}

func (r *stubRotator) Rotate(_ context.Context, year int) (string, error) {
	r.calls++
	r.year = year
	return "archive", r.err
}

func newService(t *testing.T, erase bool, rotator Rotator, messenger *recordingMessenger, chats ...int64) *Service {
	t.Helper()
	groups := cache.NewGroups()
	for _, id := range chats {
		_ = groups.Add(context.Background(), id)
	}
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skipf("нет базы часовых поясов: %v", err)
	}
	svc := NewService(groups, messenger, rotator, texts.Default(), erase, paris, zerolog.Nop())
	// 23:00 UTC 31 декабря: это уже 1 января в Париже
	svc.now = func() time.Time { return time.Date(2025, 12, 31, 23, 0, 5, 0, time.UTC) }
	return svc
}

func TestFireGreetsWithoutErase(t *testing.T) {
	messenger := &recordingMessenger{}
	rotator := &stubRotator{}
	svc := newService(t, false, rotator, messenger, 1, 2)

	if err := svc.Fire(context.Background()); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(messenger.sent) != 2 {
		t.Fatalf("ожидали 2 поздравления, получили %d", len(messenger.sent))
	}
	want := texts.Default().Render(texts.KeyNewYearGreeting, texts.Params{"year": 2026})
	if messenger.sent[0].text != want {
		t.Fatalf("unexpected greeting %q, want %q", messenger.sent[0].text, want)
	}
	if rotator.calls != 0 {
		t.Fatal("без флага архивирования ротации быть не должно")
	}
	if svc.State() != StateIdle {
		t.Fatal("после запуска задача должна вернуться в Idle")
	}
}

func TestFireEraseArchivesAfterNotices(t *testing.T) {
	messenger := &recordingMessenger{fail: map[int64]bool{2: true}}
	rotator := &stubRotator{}
	svc := newService(t, true, rotator, messenger, 1, 2, 3)

	if err := svc.Fire(context.Background()); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(messenger.sent) != 4 {
		t.Fatalf("ожидали 4 сообщения (2 чата × 2), получили %d", len(messenger.sent))
	}
	if rotator.calls != 1 || rotator.year != 2026 {
		t.Fatalf("ожидали одну ротацию за 2026, получили %d за %d", rotator.calls, rotator.year)
	}
}

func TestFireArchiveFailureKeepsGreetings(t *testing.T) {
	messenger := &recordingMessenger{}
	rotator := &stubRotator{err: domain.ErrArchiveExists}
	svc := newService(t, true, rotator, messenger, 1)

	err := svc.Fire(context.Background())
	if !errors.Is(err, domain.ErrArchiveExists) {
		t.Fatalf("ожидали ErrArchiveExists, получили %v", err)
	}
	if len(messenger.sent) != 2 {
		t.Fatalf("поздравление и уведомление должны уйти, получили %d", len(messenger.sent))
	}
	if svc.State() != StateIdle {
		t.Fatal("после ошибки задача должна вернуться в Idle")
	}
}

func TestFireRejectsOverlap(t *testing.T) {
	svc := newService(t, false, &stubRotator{}, &recordingMessenger{}, 1)
	svc.firing.Store(true)
	if err := svc.Fire(context.Background()); !errors.Is(err, ErrAlreadyFiring) {
		t.Fatalf("ожидали ErrAlreadyFiring, получили %v", err)
	}
}

func TestRegisterSchedulesNewYearInParis(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skipf("нет базы часовых поясов: %v", err)
	}
	svc := newService(t, false, &stubRotator{}, &recordingMessenger{})
	c := cron.New(cron.WithSeconds(), cron.WithLocation(paris))
	id, err := svc.Register(context.Background(), c, "")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	next := c.Entry(id).Schedule.Next(time.Date(2025, 6, 1, 0, 0, 0, 0, paris))
	want := time.Date(2026, 1, 1, 0, 0, 0, 0, paris)
	if !next.Equal(want) {
		t.Fatalf("ожидали %v, получили %v", want, next)
	}
}

func TestFireEraseWithSQLiteStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "xp_data.db")
	conn, err := db.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()
	store := repo.NewSQLite(conn, path)
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	live := repo.NewLive(store)
	_ = live.SetChatEnabled(ctx, 1, true)
	_, _ = live.UpdateUserXP(ctx, 1, 10, 5)
	_, _ = live.UpdateUserXP(ctx, 1, 20, -2)

	svc := newService(t, true, live, &recordingMessenger{}, 1)
	if err := svc.Fire(ctx); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	top, err := live.GetTopUsers(ctx, 1, 10)
	if err != nil || len(top) != 0 {
		t.Fatalf("живое хранилище должно быть пустым: %v (%v)", top, err)
	}
	if enabled, _ := live.IsChatEnabled(ctx, 1); enabled {
		t.Fatal("настройки чатов тоже должны быть сброшены")
	}

	archiveConn, err := db.OpenSQLite(repo.ArchivePath(path, 2026))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer archiveConn.Close()
	archived := repo.NewSQLite(archiveConn, repo.ArchivePath(path, 2026))
	top, err = archived.GetTopUsers(ctx, 1, 10)
	if err != nil {
		t.Fatalf("archive top: %v", err)
	}
	if len(top) != 2 || top[0].UserID != 10 || top[0].XP != 5 || top[1].XP != -2 {
		t.Fatalf("архив должен содержать прежние данные: %+v", top)
	}

	if err := svc.Fire(ctx); !errors.Is(err, domain.ErrArchiveExists) {
		t.Fatalf("повторная архивация за тот же год должна отказать, получили %v", err)
	}
}
