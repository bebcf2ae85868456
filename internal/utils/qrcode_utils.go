package utils

import (
	"fmt"
	"log"
	"strings"

	"github.com/skip2/go-qrcode"
)

// QuestionLink формирует ссылку на обращение в веб-портале.
// baseURL должен передаваться, так как это конфигурационное значение.
func QuestionLink(baseURL string, questionID int64) (string, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		log.Println("QuestionLink: базовый адрес портала не настроен.")
		return "", fmt.Errorf("базовый адрес портала не настроен")
	}
	if questionID <= 0 {
		log.Printf("QuestionLink: невалидный ID обращения: %d", questionID)
		return "", fmt.Errorf("невалидный ID обращения")
	}
	return fmt.Sprintf("%s/support/questions/%d", baseURL, questionID), nil
}

// GenerateQuestionQRCode генерирует PNG с QR-кодом ссылки на обращение,
// чтобы продолжить переписку с телефона.
func GenerateQuestionQRCode(baseURL string, questionID int64) ([]byte, error) {
	link, err := QuestionLink(baseURL, questionID)
	if err != nil {
		return nil, err
	}

	// qrcode.Medium - уровень коррекции ошибок, 256 - размер QR-кода в пикселях.
	qrBytes, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		log.Printf("GenerateQuestionQRCode: ошибка кодирования QR-кода для ссылки '%s': %v", link, err)
		return nil, err
	}
	return qrBytes, nil
}
