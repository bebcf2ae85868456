package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gkh-portal/internal/auth"
	"gkh-portal/internal/config"
	"gkh-portal/internal/constants"
	"gkh-portal/internal/limiter"
	"gkh-portal/internal/support"
)

// ApiDependencies содержит зависимости для обработчиков API.
type ApiDependencies struct {
	Config   *config.Config
	Service  *support.Service
	Accounts *auth.Accounts
	Limiter  limiter.Allower             // nil, если ограничение частоты отключено
	Health   func(context.Context) error // nil, если проверять нечего
}

// SetupRoutes настраивает все маршруты для API.
func SetupRoutes(r chi.Router, deps *ApiDependencies) {
	r.Use(DepsMiddleware(deps))

	r.Get("/healthz", Healthz)

	r.Group(func(r chi.Router) {
		r.Post("/api/auth/register", Register)
		r.Post("/api/auth/login", Login)
		r.Post("/api/dev/seed", SeedDemoData)
	})

	// Имена файлов — случайные UUID, поэтому раздача публичная.
	r.Get(constants.MediaURLPrefix+"{filename}", MediaProxyHandler)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(deps.Accounts))

		r.Post("/api/upload-media", UploadMediaHandler)
		r.Get("/api/user/profile", GetUserProfile)

		// --- Обращение текущего пользователя ---
		r.Route("/api/support/question", func(r chi.Router) {
			r.Get("/", GetMyQuestion)
			r.Get("/qr", GetMyQuestionQR)
			r.With(RateLimitMiddleware(deps)).Post("/messages", PostMyMessage)
		})

		// --- Маршруты для администраторов ---
		// Сервис дополнительно перепроверяет роль по хранилищу.
		r.Route("/api/admin/questions", func(r chi.Router) {
			r.Use(RoleMiddleware(constants.ROLE_ADMIN))

			r.Get("/", ListQuestions)
			r.Get("/summary", GetQuestionStats)
			r.Get("/export", ExportQuestions)
			r.Get("/{id}", GetQuestionDetails)
			r.Post("/{id}/status", UpdateQuestionStatus)
			r.With(RateLimitMiddleware(deps)).Post("/{id}/messages", PostAdminMessage)
		})
	})
}

func getDeps(r *http.Request) *ApiDependencies {
	deps, _ := r.Context().Value(DepsContextKey).(*ApiDependencies)
	return deps
}
