package db

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

// OpenSQLite открывает файл SQLite. Запись в SQLite однопоточная, поэтому пул
// ограничен одним соединением.
func OpenSQLite(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(DELETE)")
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}
