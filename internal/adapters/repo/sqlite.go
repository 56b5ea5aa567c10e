package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tg-xp-bot/internal/domain"
	"tg-xp-bot/internal/infra/metrics"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chat_settings (
	chat_id INTEGER PRIMARY KEY,
	xp_enabled INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS user_xp (
	chat_id INTEGER NOT NULL,
	user_id INTEGER NOT NULL,
	xp INTEGER NOT NULL DEFAULT 0,
	username TEXT,
	PRIMARY KEY (chat_id, user_id)
);
`

// SQLite реализует domain.ArchivableStore поверх одного файла.
// Порядок при равном XP: rowid, то есть порядок создания строки.
type SQLite struct {
	db   *sql.DB
	path string
}

var _ domain.ArchivableStore = (*SQLite)(nil)

// NewSQLite создаёт адаптер. path, путь к файлу базы, от него строится имя архива.
func NewSQLite(db *sql.DB, path string) *SQLite {
	return &SQLite{db: db, path: path}
}

func (s *SQLite) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(domain.ErrStorage, err))
}

// Migrate создаёт таблицы, если их нет.
func (s *SQLite) Migrate(ctx context.Context) error {
	ctx, cancel := s.connCtx(ctx)
	defer cancel()
	start := time.Now()
	_, err := s.db.ExecContext(ctx, sqliteSchema)
	metrics.ObserveNetworkRequest("sqlite", "migrate", "schema", start, err)
	if err != nil {
		return storageErr("migrate", err)
	}
	return nil
}

// IsChatEnabled реализует domain.ScoreStore.
func (s *SQLite) IsChatEnabled(ctx context.Context, chatID int64) (bool, error) {
	ctx, cancel := s.connCtx(ctx)
	defer cancel()
	var enabled bool
	start := time.Now()
	err := s.db.QueryRowContext(ctx, `SELECT xp_enabled FROM chat_settings WHERE chat_id = ?`, chatID).Scan(&enabled)
	metrics.ObserveNetworkRequest("sqlite", "chat_enabled_get", "chat_settings", start, err)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storageErr("is chat enabled", err)
	}
	return enabled, nil
}

// SetChatEnabled реализует domain.ScoreStore.
func (s *SQLite) SetChatEnabled(ctx context.Context, chatID int64, enabled bool) error {
	ctx, cancel := s.connCtx(ctx)
	defer cancel()
	start := time.Now()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO chat_settings (chat_id, xp_enabled) VALUES (?, ?)
ON CONFLICT(chat_id) DO UPDATE SET xp_enabled = excluded.xp_enabled
`, chatID, enabled)
	metrics.ObserveNetworkRequest("sqlite", "chat_enabled_set", "chat_settings", start, err)
	if err != nil {
		return storageErr("set chat enabled", err)
	}
	return nil
}

// GetUserXP реализует domain.ScoreStore.
func (s *SQLite) GetUserXP(ctx context.Context, chatID, userID int64) (int, error) {
	ctx, cancel := s.connCtx(ctx)
	defer cancel()
	var xp int
	start := time.Now()
	err := s.db.QueryRowContext(ctx, `SELECT xp FROM user_xp WHERE chat_id = ? AND user_id = ?`, chatID, userID).Scan(&xp)
	metrics.ObserveNetworkRequest("sqlite", "xp_get", "user_xp", start, err)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, storageErr("get user xp", err)
	}
	return xp, nil
}

// UpdateUserXP реализует domain.ScoreStore.
func (s *SQLite) UpdateUserXP(ctx context.Context, chatID, userID int64, delta int) (int, error) {
	ctx, cancel := s.connCtx(ctx)
	defer cancel()
	var xp int
	start := time.Now()
	err := s.db.QueryRowContext(ctx, `
INSERT INTO user_xp (chat_id, user_id, xp) VALUES (?, ?, ?)
ON CONFLICT(chat_id, user_id) DO UPDATE SET xp = user_xp.xp + excluded.xp
RETURNING xp
`, chatID, userID, delta).Scan(&xp)
	metrics.ObserveNetworkRequest("sqlite", "xp_update", "user_xp", start, err)
	if err != nil {
		return 0, storageErr("update user xp", err)
	}
	return xp, nil
}

// GetTopUsers реализует domain.ScoreStore.
func (s *SQLite) GetTopUsers(ctx context.Context, chatID int64, limit int) ([]domain.UserScore, error) {
	ctx, cancel := s.connCtx(ctx)
	defer cancel()
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, `
SELECT user_id, xp, COALESCE(username, '') FROM user_xp
WHERE chat_id = ?
ORDER BY xp DESC, rowid ASC
LIMIT ?
`, chatID, limit)
	metrics.ObserveNetworkRequest("sqlite", "xp_top", "user_xp", start, err)
	if err != nil {
		return nil, storageErr("get top users", err)
	}
	defer rows.Close()
	var result []domain.UserScore
	for rows.Next() {
		score := domain.UserScore{ChatID: chatID}
		if err := rows.Scan(&score.UserID, &score.XP, &score.DisplayName); err != nil {
			return nil, storageErr("scan top users", err)
		}
		result = append(result, score)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate top users", err)
	}
	return result, nil
}

// RefreshUsername обновляет сохранённое имя. Строку не создаёт.
func (s *SQLite) RefreshUsername(ctx context.Context, chatID, userID int64, name string) error {
	ctx, cancel := s.connCtx(ctx)
	defer cancel()
	start := time.Now()
	_, err := s.db.ExecContext(ctx, `UPDATE user_xp SET username = ? WHERE chat_id = ? AND user_id = ?`, name, chatID, userID)
	metrics.ObserveNetworkRequest("sqlite", "username_refresh", "user_xp", start, err)
	if err != nil {
		return storageErr("refresh username", err)
	}
	return nil
}

// GetStoredUsername реализует domain.ScoreStore.
func (s *SQLite) GetStoredUsername(ctx context.Context, chatID, userID int64) (string, bool, error) {
	ctx, cancel := s.connCtx(ctx)
	defer cancel()
	var name sql.NullString
	start := time.Now()
	err := s.db.QueryRowContext(ctx, `SELECT username FROM user_xp WHERE chat_id = ? AND user_id = ?`, chatID, userID).Scan(&name)
	metrics.ObserveNetworkRequest("sqlite", "username_get", "user_xp", start, err)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storageErr("get stored username", err)
	}
	if !name.Valid || name.String == "" {
		return "", false, nil
	}
	return name.String, true, nil
}

// RemoveUser реализует domain.ScoreStore.
func (s *SQLite) RemoveUser(ctx context.Context, chatID, userID int64) error {
	ctx, cancel := s.connCtx(ctx)
	defer cancel()
	start := time.Now()
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_xp WHERE chat_id = ? AND user_id = ?`, chatID, userID)
	metrics.ObserveNetworkRequest("sqlite", "user_remove", "user_xp", start, err)
	if err != nil {
		return storageErr("remove user", err)
	}
	return nil
}

// ArchivePath возвращает путь архива: xp_data.db → xp_data_2025.db.
func ArchivePath(path string, year int) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return fmt.Sprintf("%s_%d%s", base, year, ext)
}

// Archive копирует базу в файл с годом в имени и очищает текущие таблицы.
// Если копия не создана, данные остаются на месте.
func (s *SQLite) Archive(ctx context.Context, year int) (string, error) {
	target := ArchivePath(s.path, year)
	if _, err := os.Stat(target); err == nil {
		return "", fmt.Errorf("archive %s: %w", target, domain.ErrArchiveExists)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", storageErr("stat archive", err)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	start := time.Now()
	_, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, target)
	metrics.ObserveNetworkRequest("sqlite", "archive_copy", "database", start, err)
	if err != nil {
		return "", storageErr("archive copy", err)
	}

	start = time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", storageErr("archive begin", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM user_xp`); err == nil {
		_, err = tx.ExecContext(ctx, `DELETE FROM chat_settings`)
	}
	if err != nil {
		_ = tx.Rollback()
		metrics.ObserveNetworkRequest("sqlite", "archive_reset", "database", start, err)
		return "", storageErr("archive reset", err)
	}
	err = tx.Commit()
	metrics.ObserveNetworkRequest("sqlite", "archive_reset", "database", start, err)
	if err != nil {
		return "", storageErr("archive commit", err)
	}
	return target, nil
}

// Close закрывает соединение с базой.
func (s *SQLite) Close() error {
	return s.db.Close()
}
