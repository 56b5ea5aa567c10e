package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"tg-xp-bot/internal/adapters/repo"
	"tg-xp-bot/internal/infra/db"
	"tg-xp-bot/internal/usecase/leaderboard"
)

func main() {
	var (
		dbPath string
		chatID int64
		limit  int
	)
	flag.StringVar(&dbPath, "db", "", "Path to archived SQLite file, e.g. xp_data_2025.db")
	flag.Int64Var(&chatID, "chat", 0, "Telegram chat id")
	flag.IntVar(&limit, "limit", leaderboard.DefaultLimit, "Number of rows to print")
	flag.Parse()

	if dbPath == "" || chatID == 0 {
		log.Fatal().Msg("xp-archive: both -db and -chat are required")
	}
	if _, err := os.Stat(dbPath); err != nil {
		log.Fatal().Err(err).Msg("xp-archive: archive file not found")
	}

	conn, err := db.OpenSQLite(dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("xp-archive: failed to open archive")
	}
	store := repo.NewSQLite(conn, dbPath)
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	top, err := leaderboard.NewService(store).Top(ctx, chatID, limit)
	if err != nil {
		log.Fatal().Err(err).Msg("xp-archive: failed to read leaderboard")
	}
	if len(top) == 0 {
		fmt.Printf("Chat %d has no scores in %s\n", chatID, dbPath)
		return
	}
	for i, score := range top {
		name := score.DisplayName
		if name == "" {
			name = fmt.Sprint(score.UserID)
		}
		fmt.Printf("[%s] %s (%+d)\n", leaderboard.RankLabel(i), name, score.XP)
	}
}
