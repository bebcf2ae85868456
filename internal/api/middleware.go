// Файл: internal/api/middleware.go
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"gkh-portal/internal/auth"
	"gkh-portal/internal/models"
	"gkh-portal/internal/utils"
)

// UserContextKey - ключ для сохранения данных пользователя в контексте запроса.
var UserContextKey = &contextKey{"User"}

// DepsContextKey - ключ для сохранения зависимостей API в контексте запроса.
var DepsContextKey = &contextKey{"Deps"}

type contextKey struct {
	name string
}

// DepsMiddleware добавляет зависимости API в контекст запроса.
func DepsMiddleware(deps *ApiDependencies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), DepsContextKey, deps)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthMiddleware проверяет заголовок Authorization: Bearer <token>.
// Пользователь загружается из хранилища, роль из токена не используется.
func AuthMiddleware(accounts *auth.Accounts) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, "Требуется авторизация")
				return
			}

			user, err := accounts.Authenticate(r.Context(), strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				if errors.Is(err, auth.ErrInvalidToken) {
					log.Printf("AuthMiddleware: недействительный токен: %v", err)
					writeJSONError(w, http.StatusUnauthorized, "Недействительный токен")
					return
				}
				log.Printf("AuthMiddleware: ошибка загрузки пользователя: %v", err)
				writeJSONError(w, http.StatusInternalServerError, "Не удалось проверить авторизацию")
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RoleMiddleware проверяет, соответствует ли роль пользователя требуемой.
func RoleMiddleware(requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := r.Context().Value(UserContextKey).(models.User)
			if !ok {
				writeJSONError(w, http.StatusForbidden, "Пользователь не найден в контексте")
				return
			}

			if !utils.IsRoleOrHigher(user.Role, requiredRole) {
				writeJSONError(w, http.StatusForbidden, "Недостаточно прав")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitMiddleware ограничивает частоту запросов пользователя.
// При недоступности Redis запрос пропускается.
func RateLimitMiddleware(deps *ApiDependencies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if deps.Limiter == nil {
				next.ServeHTTP(w, r)
				return
			}
			user, ok := r.Context().Value(UserContextKey).(models.User)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			allowed, err := deps.Limiter.Allow(r.Context(), fmt.Sprintf("user:%d", user.ID))
			if err != nil {
				log.Printf("RateLimitMiddleware: ошибка проверки лимита для пользователя %d: %v", user.ID, err)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				writeJSONError(w, http.StatusTooManyRequests, "Слишком много сообщений, попробуйте позже")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
