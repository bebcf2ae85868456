package models

import (
	"errors"
	"time"
)

// ErrAlreadyExists возвращается хранилищем, когда вставка нарушает ограничение уникальности
// (например, второе обращение того же пользователя).
var ErrAlreadyExists = errors.New("record already exists")

// QuestionStatus — статус обращения в поддержку.
type QuestionStatus string

const (
	QuestionStatusPending    QuestionStatus = "PENDING"
	QuestionStatusInProgress QuestionStatus = "IN_PROGRESS"
	QuestionStatusCompleted  QuestionStatus = "COMPLETED"
)

// Rank задает порядок статусов в списке админки: сначала необработанные.
func (s QuestionStatus) Rank() int {
	switch s {
	case QuestionStatusPending:
		return 0
	case QuestionStatusInProgress:
		return 1
	case QuestionStatusCompleted:
		return 2
	default:
		return 3
	}
}

// Valid сообщает, входит ли статус в допустимый набор.
func (s QuestionStatus) Valid() bool {
	return s.Rank() < 3
}

// Question — обращение (тред) пользователя в поддержку.
type Question struct {
	ID        int64          `json:"id"`
	UserID    int64          `json:"user_id"`
	Status    QuestionStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// QuestionWithOwner — обращение вместе с отображаемыми полями владельца.
type QuestionWithOwner struct {
	Question
	Owner Owner `json:"owner"`
}

// Message — сообщение в обращении. Только добавляется, не редактируется.
type Message struct {
	ID          int64      `json:"id"`
	QuestionID  int64      `json:"question_id"`
	AuthorID    int64      `json:"author_id"`
	Text        string     `json:"text"`
	ImageURL    NullString `json:"image_url"`
	IsFromAdmin bool       `json:"is_from_admin"`
	CreatedAt   time.Time  `json:"created_at"`
}
