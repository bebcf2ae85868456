package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"gkh-portal/internal/auth"
	"gkh-portal/internal/models"
	"gkh-portal/internal/support"
)

// maxJSONBodyBytes ограничивает размер JSON-тела запроса.
const maxJSONBodyBytes = 1 << 20

// jsonResponse - вспомогательная структура для стандартного ответа API
type jsonResponse struct {
	Status  string      `json:"status"` // "success" или "error"
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// --- Вспомогательные функции для JSON-ответов ---
func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(jsonResponse{Status: "error", Message: message})
}

func writeJSONSuccess(w http.ResponseWriter, message string, data interface{}) {
	writeJSONWithStatus(w, http.StatusOK, message, data)
}

func writeJSONWithStatus(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(jsonResponse{Status: "success", Message: message, Data: data})
}

// writeServiceError переводит ошибку сервиса обращений в HTTP-ответ.
// Подробности ошибок хранилища показываются только в dev-режиме.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	kinds := []struct {
		kind   error
		status int
	}{
		{support.ErrUnauthenticated, http.StatusUnauthorized},
		{support.ErrForbidden, http.StatusForbidden},
		{support.ErrNotFound, http.StatusNotFound},
		{support.ErrInvalidArgument, http.StatusBadRequest},
	}
	for _, k := range kinds {
		if errors.Is(err, k.kind) {
			writeJSONError(w, k.status, strings.TrimPrefix(err.Error(), k.kind.Error()+": "))
			return
		}
	}

	log.Printf("API %s: внутренняя ошибка: %v", op, err)
	message := "Внутренняя ошибка сервера"
	if deps := getDeps(r); deps != nil && deps.Config != nil && deps.Config.IsDev() {
		message = fmt.Sprintf("%s: %v", message, err)
	}
	writeJSONError(w, http.StatusInternalServerError, message)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Некорректное тело запроса: "+err.Error())
		return false
	}
	return true
}

func currentUser(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user, ok := r.Context().Value(UserContextKey).(models.User)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "Не удалось определить пользователя из контекста")
	}
	return user, ok
}

func questionIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSONError(w, http.StatusBadRequest, "Некорректный ID обращения")
		return 0, false
	}
	return id, true
}

// Healthz сообщает о готовности сервиса.
func Healthz(w http.ResponseWriter, r *http.Request) {
	if deps := getDeps(r); deps != nil && deps.Health != nil {
		if err := deps.Health(r.Context()); err != nil {
			log.Printf("Healthz: хранилище недоступно: %v", err)
			writeJSONError(w, http.StatusServiceUnavailable, "Хранилище недоступно")
			return
		}
	}
	writeJSONSuccess(w, "ok", nil)
}

// Register регистрирует нового жителя и возвращает токен.
func Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sess, err := getDeps(r).Accounts.Register(r.Context(), req.Name, req.Email, req.Password)
	switch {
	case err == nil:
		writeJSONWithStatus(w, http.StatusCreated, "Регистрация выполнена", sess)
	case errors.Is(err, auth.ErrInvalidInput):
		writeJSONError(w, http.StatusBadRequest, strings.TrimPrefix(err.Error(), auth.ErrInvalidInput.Error()+": "))
	case errors.Is(err, auth.ErrEmailTaken):
		writeJSONError(w, http.StatusConflict, "Пользователь с таким email уже зарегистрирован")
	default:
		log.Printf("API Register: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "Не удалось зарегистрировать пользователя")
	}
}

// Login выполняет вход по email и паролю.
func Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sess, err := getDeps(r).Accounts.Login(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		writeJSONSuccess(w, "Вход выполнен", sess)
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeJSONError(w, http.StatusUnauthorized, "Неверный email или пароль")
	default:
		log.Printf("API Login: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "Не удалось выполнить вход")
	}
}

// GetUserProfile возвращает профиль пользователя, прошедшего аутентификацию.
func GetUserProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeJSONSuccess(w, "Профиль получен", user)
}
