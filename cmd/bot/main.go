package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"tg-xp-bot/internal/adapters/bot"
	"tg-xp-bot/internal/adapters/repo"
	"tg-xp-bot/internal/adapters/telegram"
	"tg-xp-bot/internal/domain"
	"tg-xp-bot/internal/infra/cache"
	"tg-xp-bot/internal/infra/config"
	"tg-xp-bot/internal/infra/db"
	httpserver "tg-xp-bot/internal/infra/http"
	"tg-xp-bot/internal/infra/log"
	"tg-xp-bot/internal/infra/metrics"
	"tg-xp-bot/internal/infra/texts"
	"tg-xp-bot/internal/usecase/leaderboard"
	"tg-xp-bot/internal/usecase/rollover"
	"tg-xp-bot/internal/usecase/xp"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)
	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	catalog, err := texts.Load(cfg.XP.TextsFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось загрузить тексты")
	}

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("не удалось открыть хранилище")
	}
	defer closeStore()
	live := repo.NewLive(store)

	var (
		cooldowns domain.CooldownTracker = cache.NewCooldowns(cfg.XP.Cooldown)
		groups    domain.GroupRegistry   = cache.NewGroups()
	)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("нет подключения к Redis")
		}
		cooldowns = cache.NewRedisCooldowns(client, cfg.XP.Cooldown)
		groups = cache.NewRedisGroups(client)
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать бота")
	}
	tg := telegram.NewClient(botAPI)

	engine := xp.NewEngine(live, cooldowns, xp.NewClassifier(catalog.Triggers), log.Component(logger, "xp"))
	board := leaderboard.NewService(live)
	handler := bot.NewHandler(tg, tg, engine, board, live, groups, cache.NewReplies(), catalog, botAPI.Self.ID, log.Component(logger, "bot"))

	loc, err := time.LoadLocation(cfg.Rollover.Timezone)
	if err != nil {
		logger.Fatal().Err(err).Str("tz", cfg.Rollover.Timezone).Msg("неизвестный часовой пояс")
	}
	newYear := rollover.NewService(groups, tg, live, catalog, cfg.Rollover.EraseNewYear, loc, log.Component(logger, "rollover"))
	scheduler := cron.New(cron.WithSeconds(), cron.WithLocation(loc))
	if _, err := newYear.Register(ctx, scheduler, cfg.Rollover.Spec); err != nil {
		logger.Fatal().Err(err).Str("spec", cfg.Rollover.Spec).Msg("не удалось запланировать ротацию")
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	server := httpserver.NewServer(logger, cfg.Port)
	updates := make(chan tgbotapi.Update, 100)

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Telegram.WebhookURL != "" {
		server.Router.Post(bot.WebhookPath, bot.Webhook(updates))
		wh, err := tgbotapi.NewWebhook(cfg.Telegram.WebhookURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("некорректный адрес вебхука")
		}
		if _, err := botAPI.Request(wh); err != nil {
			logger.Fatal().Err(err).Msg("не удалось зарегистрировать вебхук")
		}
		logger.Info().Str("url", cfg.Telegram.WebhookURL).Msg("режим вебхука")
	} else {
		if _, err := botAPI.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			logger.Warn().Err(err).Msg("не удалось снять вебхук")
		}
		g.Go(func() error { return poll(gctx, botAPI, updates) })
		logger.Info().Msg("режим long polling")
	}

	g.Go(server.Start)
	g.Go(func() error { return handler.Run(gctx, updates) })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	logger.Info().Int64("bot", botAPI.Self.ID).Str("storage", cfg.Storage.Driver).Msg("бот запущен")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("бот остановлен с ошибкой")
	}
	logger.Info().Msg("остановка бота")
}

func poll(ctx context.Context, botAPI *tgbotapi.BotAPI, out chan<- tgbotapi.Update) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 60
	in := botAPI.GetUpdatesChan(cfg)
	defer botAPI.StopReceivingUpdates()
	for {
		select {
		case <-ctx.Done():
			return nil
		case upd, ok := <-in:
			if !ok {
				return nil
			}
			select {
			case out <- upd:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func openStore(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) (domain.ArchivableStore, func(), error) {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		pool, err := db.Connect(cfg.PGDSN)
		if err != nil {
			return nil, nil, err
		}
		store := repo.NewPostgres(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	case config.StorageSQLite:
		conn, err := db.OpenSQLite(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		store := repo.NewSQLite(conn, cfg.Storage.SQLitePath)
		if err := store.Migrate(ctx); err != nil {
			_ = conn.Close()
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn().Err(err).Msg("не удалось закрыть SQLite")
			}
		}, nil
	default:
		return nil, nil, errors.New("неизвестный STORAGE_DRIVER: " + cfg.Storage.Driver)
	}
}
