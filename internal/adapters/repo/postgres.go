package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"tg-xp-bot/internal/domain"
	"tg-xp-bot/internal/infra/metrics"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS chat_settings (
	chat_id BIGINT PRIMARY KEY,
	xp_enabled BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE TABLE IF NOT EXISTS user_xp (
	chat_id BIGINT NOT NULL,
	user_id BIGINT NOT NULL,
	xp BIGINT NOT NULL DEFAULT 0,
	username TEXT,
	seq BIGSERIAL NOT NULL,
	PRIMARY KEY (chat_id, user_id)
);
`

// Postgres реализует domain.ArchivableStore на основе pgxpool.
// Порядок при равном XP: seq, то есть порядок создания строки.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ domain.ArchivableStore = (*Postgres)(nil)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// Migrate создаёт таблицы, если их нет.
func (p *Postgres) Migrate(ctx context.Context) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	start := time.Now()
	_, err := p.pool.Exec(ctx, postgresSchema)
	metrics.ObserveNetworkRequest("postgres", "migrate", "schema", start, err)
	if err != nil {
		return storageErr("migrate", err)
	}
	return nil
}

// IsChatEnabled реализует domain.ScoreStore.
func (p *Postgres) IsChatEnabled(ctx context.Context, chatID int64) (bool, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	var enabled bool
	start := time.Now()
	err := p.pool.QueryRow(ctx, `SELECT xp_enabled FROM chat_settings WHERE chat_id = $1`, chatID).Scan(&enabled)
	metrics.ObserveNetworkRequest("postgres", "chat_enabled_get", "chat_settings", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storageErr("is chat enabled", err)
	}
	return enabled, nil
}

// SetChatEnabled реализует domain.ScoreStore.
func (p *Postgres) SetChatEnabled(ctx context.Context, chatID int64, enabled bool) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO chat_settings (chat_id, xp_enabled) VALUES ($1, $2)
ON CONFLICT (chat_id) DO UPDATE SET xp_enabled = EXCLUDED.xp_enabled
`, chatID, enabled)
	metrics.ObserveNetworkRequest("postgres", "chat_enabled_set", "chat_settings", start, err)
	if err != nil {
		return storageErr("set chat enabled", err)
	}
	return nil
}

// GetUserXP реализует domain.ScoreStore.
func (p *Postgres) GetUserXP(ctx context.Context, chatID, userID int64) (int, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	var xp int64
	start := time.Now()
	err := p.pool.QueryRow(ctx, `SELECT xp FROM user_xp WHERE chat_id = $1 AND user_id = $2`, chatID, userID).Scan(&xp)
	metrics.ObserveNetworkRequest("postgres", "xp_get", "user_xp", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, storageErr("get user xp", err)
	}
	return int(xp), nil
}

// UpdateUserXP реализует domain.ScoreStore.
func (p *Postgres) UpdateUserXP(ctx context.Context, chatID, userID int64, delta int) (int, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	var xp int64
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO user_xp (chat_id, user_id, xp) VALUES ($1, $2, $3)
ON CONFLICT (chat_id, user_id) DO UPDATE SET xp = user_xp.xp + EXCLUDED.xp
RETURNING xp
`, chatID, userID, int64(delta)).Scan(&xp)
	metrics.ObserveNetworkRequest("postgres", "xp_update", "user_xp", start, err)
	if err != nil {
		return 0, storageErr("update user xp", err)
	}
	return int(xp), nil
}

// GetTopUsers реализует domain.ScoreStore.
func (p *Postgres) GetTopUsers(ctx context.Context, chatID int64, limit int) ([]domain.UserScore, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT user_id, xp, COALESCE(username, '') FROM user_xp
WHERE chat_id = $1
ORDER BY xp DESC, seq ASC
LIMIT $2
`, chatID, limit)
	metrics.ObserveNetworkRequest("postgres", "xp_top", "user_xp", start, err)
	if err != nil {
		return nil, storageErr("get top users", err)
	}
	defer rows.Close()
	var result []domain.UserScore
	for rows.Next() {
		var (
			score domain.UserScore
			xp    int64
		)
		score.ChatID = chatID
		if err := rows.Scan(&score.UserID, &xp, &score.DisplayName); err != nil {
			return nil, storageErr("scan top users", err)
		}
		score.XP = int(xp)
		result = append(result, score)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate top users", err)
	}
	return result, nil
}

// RefreshUsername обновляет сохранённое имя. Строку не создаёт.
func (p *Postgres) RefreshUsername(ctx context.Context, chatID, userID int64, name string) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	start := time.Now()
	_, err := p.pool.Exec(ctx, `UPDATE user_xp SET username = $3 WHERE chat_id = $1 AND user_id = $2`, chatID, userID, name)
	metrics.ObserveNetworkRequest("postgres", "username_refresh", "user_xp", start, err)
	if err != nil {
		return storageErr("refresh username", err)
	}
	return nil
}

// GetStoredUsername реализует domain.ScoreStore.
func (p *Postgres) GetStoredUsername(ctx context.Context, chatID, userID int64) (string, bool, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	var name *string
	start := time.Now()
	err := p.pool.QueryRow(ctx, `SELECT username FROM user_xp WHERE chat_id = $1 AND user_id = $2`, chatID, userID).Scan(&name)
	metrics.ObserveNetworkRequest("postgres", "username_get", "user_xp", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storageErr("get stored username", err)
	}
	if name == nil || *name == "" {
		return "", false, nil
	}
	return *name, true, nil
}

// RemoveUser реализует domain.ScoreStore.
func (p *Postgres) RemoveUser(ctx context.Context, chatID, userID int64) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	start := time.Now()
	_, err := p.pool.Exec(ctx, `DELETE FROM user_xp WHERE chat_id = $1 AND user_id = $2`, chatID, userID)
	metrics.ObserveNetworkRequest("postgres", "user_remove", "user_xp", start, err)
	if err != nil {
		return storageErr("remove user", err)
	}
	return nil
}

// ArchiveSchema возвращает имя схемы архива за год.
func ArchiveSchema(year int) string {
	return fmt.Sprintf("xp_%d", year)
}

// Archive в одной транзакции переносит таблицы в схему xp_<год> и создаёт пустые.
// При любой ошибке транзакция откатывается и данные остаются на месте.
func (p *Postgres) Archive(ctx context.Context, year int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	schema := ArchiveSchema(year)
	ident := pgx.Identifier{schema}.Sanitize()

	start := time.Now()
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	metrics.ObserveNetworkRequest("postgres", "begin_tx", "archive", start, err)
	if err != nil {
		return "", storageErr("archive begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	statements := []string{
		`LOCK TABLE chat_settings, user_xp IN ACCESS EXCLUSIVE MODE`,
		`CREATE SCHEMA ` + ident,
		`ALTER TABLE chat_settings SET SCHEMA ` + ident,
		`ALTER TABLE user_xp SET SCHEMA ` + ident,
		postgresSchema,
	}
	start = time.Now()
	for _, stmt := range statements {
		if _, err = tx.Exec(ctx, stmt); err != nil {
			break
		}
	}
	metrics.ObserveNetworkRequest("postgres", "archive_move", "archive", start, err)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "42P06" {
			return "", fmt.Errorf("archive %s: %w", schema, domain.ErrArchiveExists)
		}
		return "", storageErr("archive move", err)
	}

	start = time.Now()
	err = tx.Commit(ctx)
	metrics.ObserveNetworkRequest("postgres", "commit", "archive", start, err)
	if err != nil {
		return "", storageErr("archive commit", err)
	}
	return schema, nil
}
