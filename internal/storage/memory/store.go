package memory

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gkh-portal/internal/models"
)

// Store — хранилище пользователей, обращений и сообщений в памяти.
// Не сохраняет данные между перезапусками, подходит для локального режима и тестов.
type Store struct {
	mu sync.RWMutex

	users     map[int64]models.User
	emails    map[string]int64
	questions map[int64]models.Question
	byUser    map[int64][]int64
	messages  map[int64][]models.Message

	lastUserID     int64
	lastQuestionID int64
	lastMessageID  int64
}

// NewStore создает пустое хранилище в памяти.
func NewStore() *Store {
	return &Store{
		users:     make(map[int64]models.User),
		emails:    make(map[string]int64),
		questions: make(map[int64]models.Question),
		byUser:    make(map[int64][]int64),
		messages:  make(map[int64][]models.Message),
	}
}

// CreateUser сохраняет пользователя и заполняет ID. Email уникален без учета регистра.
func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(u.Email))
	if _, exists := s.emails[key]; exists {
		return models.ErrAlreadyExists
	}
	s.lastUserID++
	u.ID = s.lastUserID
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	s.users[u.ID] = *u
	s.emails[key] = u.ID
	return nil
}

func (s *Store) GetUserByID(_ context.Context, id int64) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return models.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return models.User{}, sql.ErrNoRows
	}
	return s.users[id], nil
}

func (s *Store) GetLatestQuestionByUser(_ context.Context, userID int64) (models.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest models.Question
	found := false
	for _, id := range s.byUser[userID] {
		q := s.questions[id]
		if !found || q.CreatedAt.After(latest.CreatedAt) ||
			(q.CreatedAt.Equal(latest.CreatedAt) && q.ID > latest.ID) {
			latest, found = q, true
		}
	}
	if !found {
		return models.Question{}, sql.ErrNoRows
	}
	return latest, nil
}

// CreateQuestion сохраняет обращение. У пользователя может быть только одно обращение.
func (s *Store) CreateQuestion(_ context.Context, q *models.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[q.UserID]; !ok {
		return fmt.Errorf("пользователь %d не существует", q.UserID)
	}
	if len(s.byUser[q.UserID]) > 0 {
		return models.ErrAlreadyExists
	}
	s.lastQuestionID++
	q.ID = s.lastQuestionID
	s.questions[q.ID] = *q
	s.byUser[q.UserID] = append(s.byUser[q.UserID], q.ID)
	return nil
}

func (s *Store) GetQuestionByID(_ context.Context, id int64) (models.QuestionWithOwner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.questions[id]
	if !ok {
		return models.QuestionWithOwner{}, sql.ErrNoRows
	}
	return s.withOwner(q), nil
}

func (s *Store) ListQuestions(_ context.Context) ([]models.QuestionWithOwner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.QuestionWithOwner, 0, len(s.questions))
	for _, q := range s.questions {
		out = append(out, s.withOwner(q))
	}
	sort.Slice(out, func(i, j int) bool {
		if ri, rj := out[i].Status.Rank(), out[j].Status.Rank(); ri != rj {
			return ri < rj
		}
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateQuestionStatus(_ context.Context, id int64, status models.QuestionStatus, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.questions[id]
	if !ok {
		return sql.ErrNoRows
	}
	q.Status = status
	q.UpdatedAt = updatedAt
	s.questions[id] = q
	return nil
}

func (s *Store) CountQuestionsByStatus(_ context.Context) (map[models.QuestionStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[models.QuestionStatus]int)
	for _, q := range s.questions {
		counts[q.Status]++
	}
	return counts, nil
}

func (s *Store) GetMessagesByQuestionIDs(_ context.Context, questionIDs []int64) (map[int64][]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64][]models.Message, len(questionIDs))
	for _, id := range questionIDs {
		msgs := s.messages[id]
		if len(msgs) == 0 {
			continue
		}
		cp := make([]models.Message, len(msgs))
		copy(cp, msgs)
		out[id] = cp
	}
	return out, nil
}

// AppendMessage добавляет сообщение и обновляет updated_at обращения под одной блокировкой.
func (s *Store) AppendMessage(_ context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.questions[msg.QuestionID]
	if !ok {
		return sql.ErrNoRows
	}
	s.lastMessageID++
	msg.ID = s.lastMessageID
	s.messages[q.ID] = append(s.messages[q.ID], *msg)

	q.UpdatedAt = msg.CreatedAt
	s.questions[q.ID] = q
	return nil
}

func (s *Store) withOwner(q models.Question) models.QuestionWithOwner {
	return models.QuestionWithOwner{Question: q, Owner: models.OwnerOf(s.users[q.UserID])}
}
