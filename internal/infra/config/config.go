package config

import (
	"errors"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	// StorageSQLite хранит данные в одном файле SQLite.
	StorageSQLite = "sqlite"
	// StoragePostgres хранит данные в Postgres.
	StoragePostgres = "postgres"
)

// AppConfig описывает конфигурацию бота.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	Port   int    `envconfig:"PORT" default:"8080"`

	Telegram struct {
		Token      string `envconfig:"TG_BOT_TOKEN" required:"true"`
		WebhookURL string `envconfig:"TG_WEBHOOK_URL"`
	} `envconfig:""`

	Storage struct {
		Driver     string `envconfig:"STORAGE_DRIVER" default:"sqlite"`
		SQLitePath string `envconfig:"SQLITE_PATH" default:"xp_data.db"`
	} `envconfig:""`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	XP struct {
		Cooldown  time.Duration `envconfig:"XP_COOLDOWN" default:"30s"`
		TextsFile string        `envconfig:"TEXTS_FILE"`
	} `envconfig:""`

	Rollover struct {
		EraseNewYear bool   `envconfig:"ERASE_NEW_YEAR" default:"false"`
		Timezone     string `envconfig:"ROLLOVER_TZ" default:"Europe/Paris"`
		Spec         string `envconfig:"ROLLOVER_SPEC" default:"0 0 0 1 1 *"`
	} `envconfig:""`
}

// Load загружает конфиг из .env (если есть) и окружения.
func Load() AppConfig {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("не удалось прочитать .env: %v", err)
	}
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
