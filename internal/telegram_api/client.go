package telegram_api

import (
	"fmt"
	"log"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
)

// BotClient представляет собой обертку для Telegram Bot API.
// Используется только для исходящих уведомлений, обновления не читаются.
type BotClient struct {
	api   *tgbotapi.BotAPI
	Debug bool
}

// NewBotClient инициализирует Telegram бота.
// token - API токен бота, debug - флаг для включения режима отладки.
func NewBotClient(token string, debug bool) (*BotClient, error) {
	if token == "" {
		return nil, fmt.Errorf("токен Telegram API не предоставлен")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации Telegram Bot API: %w", err)
	}
	api.Debug = debug

	log.Printf("Авторизован как аккаунт %s", api.Self.UserName)
	return &BotClient{api: api, Debug: debug}, nil
}

// Send отправляет сообщение через BotClient.
func (bc *BotClient) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if bc == nil || bc.api == nil {
		return tgbotapi.Message{}, fmt.Errorf("BotClient или его API не инициализирован")
	}
	if bc.Debug {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			log.Printf("Отправка сообщения: ChatID=%d, Text='%.50s...'", msg.ChatID, msg.Text)
		} else {
			log.Printf("Отправка/запрос типа %T", c)
		}
	}
	return bc.api.Send(c)
}

// StopReceivingUpdates завершает работу клиента.
func (bc *BotClient) StopReceivingUpdates() {
	if bc != nil && bc.api != nil {
		bc.api.StopReceivingUpdates()
	}
}
