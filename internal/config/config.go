// internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gkh-portal/internal/constants"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	AppEnv         string
	Port           string
	DatabaseURL    string
	StorageBackend string

	JWTSecret string
	TokenTTL  time.Duration

	MediaStoragePath string
	MaxUploadBytes   int64
	AllowedOrigins   []string

	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	MessageRateLimit  int
	MessageRateWindow time.Duration

	TelegramToken string
	AdminChatID   int64

	AdminPollInterval time.Duration

	PublicBaseURL string

	AdminName     string
	AdminEmail    string
	AdminPassword string
}

// IsDev сообщает, запущено ли приложение в режиме разработки.
func (c *Config) IsDev() bool {
	return c.AppEnv == constants.AppEnvDev
}

// RateLimitEnabled сообщает, настроен ли Redis для ограничения частоты сообщений.
func (c *Config) RateLimitEnabled() bool {
	return c.RedisAddr != "" && c.MessageRateLimit > 0
}

// NotificationsEnabled сообщает, настроены ли уведомления администраторам в Telegram.
func (c *Config) NotificationsEnabled() bool {
	return c.TelegramToken != "" && c.AdminChatID != 0
}

// AdminBootstrapEnabled сообщает, нужно ли создать администратора при запуске.
func (c *Config) AdminBootstrapEnabled() bool {
	return c.AdminEmail != "" && c.AdminPassword != ""
}

// LoadConfig загружает конфигурацию из переменных окружения.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           os.Getenv("ENV"),
		Port:             getEnv("PORT", constants.DefaultPort),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		StorageBackend:   strings.ToLower(getEnv("STORAGE_BACKEND", constants.StorageBackendPostgres)),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		MediaStoragePath: getEnv("MEDIA_STORAGE_PATH", constants.DefaultMediaStoragePath),
		AllowedOrigins:   splitList(getEnv("ALLOWED_ORIGINS", "https://*,http://*")),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		TelegramToken:    os.Getenv("TELEGRAM_APITOKEN"),
		PublicBaseURL:    strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),
		AdminName:        getEnv("ADMIN_NAME", "Служба поддержки"),
		AdminEmail:       os.Getenv("ADMIN_EMAIL"),
		AdminPassword:    os.Getenv("ADMIN_PASSWORD"),
	}

	cfg.TokenTTL = time.Duration(getEnvAsInt("TOKEN_TTL_HOURS", int(constants.DefaultTokenTTL/time.Hour))) * time.Hour
	cfg.MaxUploadBytes = int64(getEnvAsInt("MAX_UPLOAD_MB", constants.DefaultMaxUploadMB)) << 20
	cfg.RedisDB = getEnvAsInt("REDIS_DB", 0)
	cfg.MessageRateLimit = getEnvAsInt("MESSAGE_RATE_LIMIT", constants.DefaultMessageRateLimit)
	cfg.MessageRateWindow = time.Duration(getEnvAsInt("MESSAGE_RATE_WINDOW_SEC", int(constants.DefaultMessageRateWindow/time.Second))) * time.Second
	cfg.AdminPollInterval = time.Duration(getEnvAsInt("ADMIN_POLL_INTERVAL_SEC", int(constants.DefaultAdminPollInterval/time.Second))) * time.Second

	var err error
	if chatID := os.Getenv("ADMIN_CHAT_ID"); chatID != "" {
		cfg.AdminChatID, err = strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			log.Printf("Предупреждение: не удалось прочитать ADMIN_CHAT_ID: %v. Уведомления администраторам отключены.", err)
			cfg.AdminChatID = 0
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if !cfg.RateLimitEnabled() {
		log.Println("Предупреждение: REDIS_ADDR не установлен. Ограничение частоты сообщений отключено.")
	}
	if !cfg.NotificationsEnabled() {
		log.Println("Предупреждение: TELEGRAM_APITOKEN или ADMIN_CHAT_ID не установлены. Уведомления администраторам отключены.")
	}

	log.Println("Конфигурация загружена.")
	return cfg, nil
}

// Validate проверяет обязательные параметры.
func (c *Config) Validate() error {
	var missing []string
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	switch c.StorageBackend {
	case constants.StorageBackendPostgres:
		if c.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case constants.StorageBackendMemory:
		log.Println("Предупреждение: используется хранилище в памяти, данные не сохраняются между перезапусками.")
	default:
		return fmt.Errorf("неизвестное значение STORAGE_BACKEND: %q", c.StorageBackend)
	}
	if len(missing) > 0 {
		return fmt.Errorf("не установлены обязательные переменные окружения: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvAsInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		log.Printf("Предупреждение: некорректное значение %s ('%s'): %v. Используется значение по умолчанию %d.", key, v, err, def)
		return def
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
