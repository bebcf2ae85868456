package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"

	"gkh-portal/internal/models"
)

const questionWithOwnerSelect = `
    SELECT q.id, q.user_id, q.status, q.created_at, q.updated_at,
           u.id, u.name, u.email
    FROM questions q
    JOIN users u ON u.id = q.user_id`

// GetLatestQuestionByUser возвращает самое новое обращение пользователя или sql.ErrNoRows.
func (s *Store) GetLatestQuestionByUser(ctx context.Context, userID int64) (models.Question, error) {
	var q models.Question
	err := s.DB.QueryRowContext(ctx, `
        SELECT id, user_id, status, created_at, updated_at
        FROM questions
        WHERE user_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT 1`, userID).Scan(&q.ID, &q.UserID, &q.Status, &q.CreatedAt, &q.UpdatedAt)
	if err != nil && err != sql.ErrNoRows {
		log.Printf("GetLatestQuestionByUser: ошибка получения обращения пользователя %d: %v", userID, err)
	}
	return q, err
}

// CreateQuestion создает обращение и заполняет ID.
// Если у пользователя уже есть обращение, возвращает models.ErrAlreadyExists.
func (s *Store) CreateQuestion(ctx context.Context, q *models.Question) error {
	err := s.DB.QueryRowContext(ctx, `
        INSERT INTO questions (user_id, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id`,
		q.UserID, q.Status, q.CreatedAt, q.UpdatedAt).Scan(&q.ID)
	if err != nil {
		err = mapUniqueViolation(err)
		if err != models.ErrAlreadyExists {
			log.Printf("CreateQuestion: ошибка создания обращения пользователя %d: %v", q.UserID, err)
		}
		return err
	}
	return nil
}

// GetQuestionByID возвращает обращение с данными владельца или sql.ErrNoRows.
func (s *Store) GetQuestionByID(ctx context.Context, id int64) (models.QuestionWithOwner, error) {
	q, err := scanQuestionWithOwner(s.DB.QueryRowContext(ctx, questionWithOwnerSelect+` WHERE q.id = $1`, id))
	if err != nil && err != sql.ErrNoRows {
		log.Printf("GetQuestionByID: ошибка получения обращения #%d: %v", id, err)
	}
	return q, err
}

// ListQuestions возвращает все обращения в порядке списка админки.
func (s *Store) ListQuestions(ctx context.Context) ([]models.QuestionWithOwner, error) {
	rows, err := s.DB.QueryContext(ctx, questionWithOwnerSelect+`
        ORDER BY CASE q.status
                     WHEN 'PENDING' THEN 0
                     WHEN 'IN_PROGRESS' THEN 1
                     WHEN 'COMPLETED' THEN 2
                     ELSE 3
                 END,
                 q.updated_at DESC, q.id DESC`)
	if err != nil {
		log.Printf("ListQuestions: ошибка запроса обращений: %v", err)
		return nil, err
	}
	defer rows.Close()

	var out []models.QuestionWithOwner
	for rows.Next() {
		q, err := scanQuestionWithOwner(rows)
		if err != nil {
			log.Printf("ListQuestions: ошибка сканирования обращения: %v", err)
			return nil, err
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListQuestions: ошибка итерации: %w", err)
	}
	return out, nil
}

// UpdateQuestionStatus меняет статус обращения. Если обращения нет, возвращает sql.ErrNoRows.
func (s *Store) UpdateQuestionStatus(ctx context.Context, id int64, status models.QuestionStatus, updatedAt time.Time) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE questions SET status = $1, updated_at = $2 WHERE id = $3`, status, updatedAt, id)
	if err != nil {
		log.Printf("UpdateQuestionStatus: ошибка обновления статуса обращения #%d: %v", id, err)
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountQuestionsByStatus возвращает количество обращений по каждому статусу.
func (s *Store) CountQuestionsByStatus(ctx context.Context) (map[models.QuestionStatus]int, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT status, COUNT(*) FROM questions GROUP BY status`)
	if err != nil {
		log.Printf("CountQuestionsByStatus: ошибка запроса: %v", err)
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.QuestionStatus]int)
	for rows.Next() {
		var status models.QuestionStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// GetMessagesByQuestionIDs возвращает сообщения обращений, сгруппированные по question_id.
func (s *Store) GetMessagesByQuestionIDs(ctx context.Context, questionIDs []int64) (map[int64][]models.Message, error) {
	out := make(map[int64][]models.Message, len(questionIDs))
	if len(questionIDs) == 0 {
		return out, nil
	}

	rows, err := s.DB.QueryContext(ctx, `
        SELECT id, question_id, author_id, text, image_url, is_from_admin, created_at
        FROM question_messages
        WHERE question_id = ANY($1)
        ORDER BY created_at ASC, id ASC`, pq.Array(questionIDs))
	if err != nil {
		log.Printf("GetMessagesByQuestionIDs: ошибка запроса сообщений: %v", err)
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.QuestionID, &m.AuthorID, &m.Text, &m.ImageURL, &m.IsFromAdmin, &m.CreatedAt); err != nil {
			log.Printf("GetMessagesByQuestionIDs: ошибка сканирования сообщения: %v", err)
			return nil, err
		}
		out[m.QuestionID] = append(out[m.QuestionID], m)
	}
	return out, rows.Err()
}

// AppendMessage в одной транзакции сохраняет сообщение и переносит updated_at обращения.
// Если обращения нет, возвращает sql.ErrNoRows.
func (s *Store) AppendMessage(ctx context.Context, msg *models.Message) (err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("AppendMessage: ошибка начала транзакции: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `UPDATE questions SET updated_at = $1 WHERE id = $2`, msg.CreatedAt, msg.QuestionID)
	if err != nil {
		log.Printf("AppendMessage: ошибка обновления обращения #%d: %v", msg.QuestionID, err)
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	err = tx.QueryRowContext(ctx, `
        INSERT INTO question_messages (question_id, author_id, text, image_url, is_from_admin, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id`,
		msg.QuestionID, msg.AuthorID, msg.Text, msg.ImageURL, msg.IsFromAdmin, msg.CreatedAt).Scan(&msg.ID)
	if err != nil {
		log.Printf("AppendMessage: ошибка вставки сообщения в обращение #%d: %v", msg.QuestionID, err)
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("AppendMessage: ошибка фиксации транзакции: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestionWithOwner(row rowScanner) (models.QuestionWithOwner, error) {
	var q models.QuestionWithOwner
	err := row.Scan(&q.ID, &q.UserID, &q.Status, &q.CreatedAt, &q.UpdatedAt,
		&q.Owner.ID, &q.Owner.Name, &q.Owner.Email)
	return q, err
}
