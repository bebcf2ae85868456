package support

import (
	"context"
	"time"

	"gkh-portal/internal/models"
)

// Store — хранилище обращений и сообщений.
//
// Отсутствие записи сообщается через sql.ErrNoRows, нарушение уникальности обращения
// пользователя — через models.ErrAlreadyExists.
type Store interface {
	GetUserByID(ctx context.Context, id int64) (models.User, error)

	GetLatestQuestionByUser(ctx context.Context, userID int64) (models.Question, error)
	CreateQuestion(ctx context.Context, q *models.Question) error
	GetQuestionByID(ctx context.Context, id int64) (models.QuestionWithOwner, error)
	ListQuestions(ctx context.Context) ([]models.QuestionWithOwner, error)
	UpdateQuestionStatus(ctx context.Context, id int64, status models.QuestionStatus, updatedAt time.Time) error
	CountQuestionsByStatus(ctx context.Context) (map[models.QuestionStatus]int, error)

	// GetMessagesByQuestionIDs возвращает сообщения, сгруппированные по обращению,
	// в порядке created_at, id по возрастанию.
	GetMessagesByQuestionIDs(ctx context.Context, questionIDs []int64) (map[int64][]models.Message, error)
	// AppendMessage атомарно сохраняет сообщение и переносит updated_at обращения
	// на время сообщения. Заполняет msg.ID.
	AppendMessage(ctx context.Context, msg *models.Message) error
}

// Notifier оповещает поддержку о новых сообщениях пользователей.
type Notifier interface {
	NotifyNewMessage(ctx context.Context, question models.QuestionWithOwner, msg models.Message) error
}
