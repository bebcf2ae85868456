package telegram_api

import (
	"context"
	"fmt"
	"log"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"gkh-portal/internal/formatters"
	"gkh-portal/internal/models"
)

// Sender отправляет сообщения в Telegram. Реализуется *BotClient.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// AdminNotifier отправляет в чат поддержки уведомления о новых сообщениях жителей.
type AdminNotifier struct {
	sender      Sender
	adminChatID int64
}

// NewAdminNotifier создает уведомитель для чата adminChatID.
func NewAdminNotifier(sender Sender, adminChatID int64) *AdminNotifier {
	return &AdminNotifier{sender: sender, adminChatID: adminChatID}
}

// NotifyNewMessage отправляет уведомление о сообщении msg в обращении q.
func (n *AdminNotifier) NotifyNewMessage(ctx context.Context, q models.QuestionWithOwner, msg models.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	newMsg := tgbotapi.NewMessage(n.adminChatID, formatters.FormatQuestionNotification(q, msg))
	newMsg.ParseMode = tgbotapi.ModeMarkdown

	sent, err := n.sender.Send(newMsg)
	if err != nil {
		log.Printf("NotifyNewMessage: ОШИБКА отправки уведомления в чат %d (обращение #%d): %v", n.adminChatID, q.ID, err)
		return fmt.Errorf("ошибка отправки уведомления: %w", err)
	}
	log.Printf("NotifyNewMessage: уведомление ID %d об обращении #%d отправлено в чат %d", sent.MessageID, q.ID, n.adminChatID)
	return nil
}
