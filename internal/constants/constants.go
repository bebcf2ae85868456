package constants

import (
	"time"

	"gkh-portal/internal/models"
)

// Роли пользователей портала
// Portal user roles
const (
	ROLE_USER  = "USER"
	ROLE_ADMIN = "ADMIN"
)

// StatusDisplayMap — названия статусов обращений для выгрузок и уведомлений.
var StatusDisplayMap = map[models.QuestionStatus]string{
	models.QuestionStatusPending:    "Ожидает ответа",
	models.QuestionStatusInProgress: "В работе",
	models.QuestionStatusCompleted:  "Завершено",
}

// Значения по умолчанию
const (
	DefaultPort              = "8080"
	DefaultMediaStoragePath  = "./media_storage"
	DefaultMaxUploadMB       = 10
	DefaultTokenTTL          = 72 * time.Hour
	DefaultMessageRateLimit  = 20
	DefaultMessageRateWindow = time.Minute
	DefaultAdminPollInterval = 30 * time.Second
	MessagePreviewMaxRunes   = 100
	NotificationTextMaxRunes = 500
	ExportSheetName          = "Обращения"
	ExportDateTimeLayout     = "02.01.2006 15:04"
	MediaURLPrefix           = "/api/media/"
	StorageBackendPostgres   = "postgres"
	StorageBackendMemory     = "memory"
	AppEnvDev                = "dev"
)
