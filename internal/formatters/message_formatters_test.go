package formatters

import (
	"strings"
	"testing"
	"time"

	"gkh-portal/internal/models"
)

func TestFormatQuestionNotification(t *testing.T) {
	q := models.QuestionWithOwner{
		Question: models.Question{ID: 12, Status: models.QuestionStatusPending},
		Owner:    models.Owner{ID: 3, Name: "Иван_Петров", Email: "ivan@example.ru"},
	}
	msg := models.Message{
		Text:      "Нет *горячей* воды",
		ImageURL:  models.NewNullString("/api/media/a.jpg"),
		CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local),
	}

	text := FormatQuestionNotification(q, msg)
	for _, want := range []string{
		"обращении #12",
		"Иван\\_Петров (ivan@example.ru)",
		"Ожидает ответа",
		"01.05.2024 10:00",
		"Нет \\*горячей\\* воды",
		"приложено изображение",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("notification does not contain %q:\n%s", want, text)
		}
	}
}

func TestFormatQuestionNotificationImageOnly(t *testing.T) {
	q := models.QuestionWithOwner{Question: models.Question{ID: 1, Status: models.QuestionStatusInProgress}}
	msg := models.Message{ImageURL: models.NewNullString("/api/media/b.png")}

	text := FormatQuestionNotification(q, msg)
	if !strings.Contains(text, "Пользователь 0") || !strings.Contains(text, "В работе") {
		t.Errorf("unexpected notification:\n%s", text)
	}
	if !strings.Contains(text, "приложено изображение") {
		t.Errorf("image marker missing:\n%s", text)
	}
}
