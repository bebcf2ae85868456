package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"gkh-portal/internal/api"
	"gkh-portal/internal/auth"
	"gkh-portal/internal/config"
	"gkh-portal/internal/constants"
	"gkh-portal/internal/db"
	"gkh-portal/internal/limiter"
	"gkh-portal/internal/storage/memory"
	"gkh-portal/internal/support"
	"gkh-portal/internal/telegram_api"
)

// portalStore — хранилище, общее для обращений и учетных записей.
type portalStore interface {
	support.Store
	auth.UserStore
}

func main() {
	// --- Блок инициализации ---
	err := godotenv.Load()
	if err != nil {
		log.Println("Предупреждение: не удалось загрузить файл .env. Переменные окружения должны быть установлены иным способом.")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Критическая ошибка: не удалось загрузить конфигурацию: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store portalStore
	var health func(context.Context) error
	switch cfg.StorageBackend {
	case constants.StorageBackendMemory:
		store = memory.NewStore()
	default:
		pg, err := db.InitDB(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Критическая ошибка: не удалось инициализировать базу данных: %v", err)
		}
		defer pg.Close()
		store = pg
		health = pg.Ping
	}

	if err := api.EnsureMediaStorage(cfg.MediaStoragePath); err != nil {
		log.Fatalf("Критическая ошибка: не удалось создать папку для медиафайлов %s: %v", cfg.MediaStoragePath, err)
	}

	var msgLimiter limiter.Allower
	if cfg.RateLimitEnabled() {
		rdb, err := limiter.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Printf("Предупреждение: %v. Ограничение частоты сообщений отключено.", err)
		} else {
			defer closeRedis(rdb)
			msgLimiter = limiter.NewManager(rdb, limiter.FixedWindowStrategy{}, "gkh:rl:messages:", cfg.MessageRateLimit, cfg.MessageRateWindow)
			log.Printf("Ограничение частоты сообщений: %d за %s", cfg.MessageRateLimit, cfg.MessageRateWindow)
		}
	}

	var notifier support.Notifier
	if cfg.NotificationsEnabled() {
		bot, err := telegram_api.NewBotClient(cfg.TelegramToken, cfg.IsDev())
		if err != nil {
			log.Printf("Предупреждение: не удалось инициализировать Telegram бота: %v. Уведомления отключены.", err)
		} else {
			defer bot.StopReceivingUpdates()
			notifier = telegram_api.NewAdminNotifier(bot, cfg.AdminChatID)
		}
	}

	service := support.NewService(support.Dependencies{
		Store:        store,
		Notifier:     notifier,
		PollInterval: cfg.AdminPollInterval,
	})
	accounts := auth.NewAccounts(store, auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL))

	if cfg.AdminBootstrapEnabled() {
		if _, err := accounts.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatalf("Критическая ошибка: не удалось создать администратора: %v", err)
		}
	}

	// --- Настройка роутера и Middleware ---
	apiRouter := chi.NewRouter()

	// ГЛОБАЛЬНЫЕ MIDDLEWARES ДОЛЖНЫ ИДТИ ПЕРЕД api.SetupRoutes
	apiRouter.Use(middleware.RequestID)
	apiRouter.Use(middleware.RealIP)
	apiRouter.Use(middleware.Logger)
	apiRouter.Use(middleware.Recoverer)
	apiRouter.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Poll-Interval"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	api.SetupRoutes(apiRouter, &api.ApiDependencies{
		Config:   cfg,
		Service:  service,
		Accounts: accounts,
		Limiter:  msgLimiter,
		Health:   health,
	})

	// Обработка запроса иконки, чтобы избежать ошибки 404 в логах
	apiRouter.Get("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Собранный фронтенд портала, если он лежит рядом с бинарником
	workDir, _ := os.Getwd()
	webappDir := filepath.Join(workDir, "webapp")
	if info, err := os.Stat(webappDir); err == nil && info.IsDir() {
		apiRouter.Get("/", http.RedirectHandler("/webapp/", http.StatusMovedPermanently).ServeHTTP)
		FileServer(apiRouter, "/webapp", http.Dir(webappDir))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           apiRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Запуск HTTP-сервера API обращений на порту %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("КРИТИЧЕСКАЯ ОШИБКА: не удалось запустить HTTP-сервер: %v", err)
		}
	}()

	<-ctx.Done()
	GracefulShutdown(srv, 15*time.Second)
}

// FileServer для обслуживания статичных файлов
func FileServer(r chi.Router, path string, root http.FileSystem) {
	if strings.ContainsAny(path, "{}*") {
		panic("FileServer не поддерживает шаблоны URL")
	}

	if path != "/" && path[len(path)-1] != '/' {
		r.Get(path, http.RedirectHandler(path+"/", http.StatusMovedPermanently).ServeHTTP)
		path += "/"
	}
	path += "*"

	r.Get(path, func(w http.ResponseWriter, r *http.Request) {
		rctx := chi.RouteContext(r.Context())
		pathPrefix := strings.TrimSuffix(rctx.RoutePattern(), "/*")
		fs := http.StripPrefix(pathPrefix, http.FileServer(root))
		fs.ServeHTTP(w, r)
	})
}

// GracefulShutdown останавливает сервер, дожидаясь завершения активных запросов.
func GracefulShutdown(srv *http.Server, timeout time.Duration) {
	log.Println("Получен сигнал завершения, останавливаем HTTP-сервер...")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Ошибка при остановке HTTP-сервера: %v", err)
		return
	}
	log.Println("HTTP-сервер остановлен.")
}

func closeRedis(rdb *redis.Client) {
	if err := rdb.Close(); err != nil {
		log.Printf("Ошибка закрытия соединения с Redis: %v", err)
	}
}
