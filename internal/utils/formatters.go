// Файл: internal/utils/formatters.go

package utils

import (
	"fmt"
	"strings"
	"time"

	"gkh-portal/internal/constants"
	"gkh-portal/internal/models"

	"github.com/google/uuid" // Для GenerateUUID
)

// Truncate обрезает строку до max символов (рун), добавляя многоточие.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return strings.TrimSpace(string(runes[:max-1])) + "…"
}

// EscapeTelegramMarkdown экранирует специальные символы для Telegram Markdown (старый стиль).
func EscapeTelegramMarkdown(text string) string {
	var replacer = strings.NewReplacer(
		"_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[",
	)
	return replacer.Replace(text)
}

// FormatDateTimeForDisplay форматирует время для уведомлений и выгрузок (например, "25.05.2025 14:30").
func FormatDateTimeForDisplay(t time.Time) string {
	if t.IsZero() {
		return "не указано"
	}
	return t.Local().Format(constants.ExportDateTimeLayout)
}

// GetRoleDisplayName возвращает отображаемое имя роли на русском языке.
func GetRoleDisplayName(roleKey string) string {
	names := map[string]string{
		constants.ROLE_USER:  "🙎 Житель",
		constants.ROLE_ADMIN: "👩‍💻 Поддержка",
	}
	if name, ok := names[roleKey]; ok {
		return name
	}
	return roleKey
}

// GetStatusDisplayName возвращает название статуса обращения.
func GetStatusDisplayName(status models.QuestionStatus) string {
	if name, ok := constants.StatusDisplayMap[status]; ok {
		return name
	}
	return string(status)
}

// GenerateUUID генерирует новый UUID.
func GenerateUUID() string {
	return uuid.New().String()
}

// GetUserDisplayName формирует отображаемое имя владельца обращения.
func GetUserDisplayName(owner models.Owner) string {
	name := strings.TrimSpace(owner.Name)
	email := strings.TrimSpace(owner.Email)

	switch {
	case name != "" && email != "":
		return fmt.Sprintf("%s (%s)", name, email)
	case name != "":
		return name
	case email != "":
		return email
	default:
		return fmt.Sprintf("Пользователь %d", owner.ID)
	}
}
