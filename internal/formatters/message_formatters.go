package formatters

import (
	"fmt"
	"strings"

	"gkh-portal/internal/constants"
	"gkh-portal/internal/models"
	"gkh-portal/internal/utils"
)

const (
	separator = "─ ─ ─ ─ ─ ─ ─ ─ ─ ─ ─ ─ ─"
)

// FormatQuestionNotification форматирует уведомление для чата поддержки о новом сообщении жителя.
// Текст в разметке Telegram Markdown (старый стиль).
func FormatQuestionNotification(q models.QuestionWithOwner, msg models.Message) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📨 *Новое сообщение в обращении #%d*\n", q.ID))
	b.WriteString(separator + "\n")
	b.WriteString(fmt.Sprintf(" •  От: %s\n", utils.EscapeTelegramMarkdown(utils.GetUserDisplayName(q.Owner))))
	b.WriteString(fmt.Sprintf(" •  Статус: %s\n", utils.EscapeTelegramMarkdown(utils.GetStatusDisplayName(q.Status))))
	b.WriteString(fmt.Sprintf(" •  Время: %s\n", utils.FormatDateTimeForDisplay(msg.CreatedAt)))

	if msg.Text != "" {
		b.WriteString("\n")
		b.WriteString(utils.EscapeTelegramMarkdown(utils.Truncate(msg.Text, constants.NotificationTextMaxRunes)))
		b.WriteString("\n")
	}
	if msg.ImageURL.Valid {
		b.WriteString("\n🖼 К сообщению приложено изображение\n")
	}

	b.WriteString(separator + "\n")
	b.WriteString("Ответить можно в разделе «Обращения» панели администратора.")
	return b.String()
}
