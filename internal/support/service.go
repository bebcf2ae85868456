package support

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"sort"
	"strings"
	"time"

	"gkh-portal/internal/constants"
	"gkh-portal/internal/models"
)

// Dependencies содержит зависимости сервиса обращений.
type Dependencies struct {
	Store        Store
	Notifier     Notifier // может быть nil
	PollInterval time.Duration
}

// Service реализует сценарии чата поддержки: получение/создание обращения,
// сообщения, смену статуса и список для админки.
type Service struct {
	store        Store
	notifier     Notifier
	pollInterval time.Duration
	now          func() time.Time
}

// NewService создает сервис обращений.
func NewService(deps Dependencies) *Service {
	poll := deps.PollInterval
	if poll <= 0 {
		poll = constants.DefaultAdminPollInterval
	}
	return &Service{
		store:        deps.Store,
		notifier:     deps.Notifier,
		pollInterval: poll,
		now:          time.Now,
	}
}

// Thread — обращение вместе с упорядоченными сообщениями.
type Thread struct {
	models.Question
	Owner    models.Owner     `json:"owner"`
	Messages []models.Message `json:"messages"`
}

// PostMessageInput — параметры добавления сообщения.
type PostMessageInput struct {
	QuestionID  int64
	AuthorID    int64
	Text        string
	ImageURL    string
	IsFromAdmin bool
}

// Summary — сводка по статусам для периодического опроса из админки.
type Summary struct {
	Pending             int `json:"pending"`
	InProgress          int `json:"in_progress"`
	Completed           int `json:"completed"`
	Total               int `json:"total"`
	PollIntervalSeconds int `json:"poll_interval_seconds"`
}

// GetOrCreateThread возвращает последнее обращение пользователя с сообщениями.
// Если обращения нет, создает новое в статусе PENDING.
func (s *Service) GetOrCreateThread(ctx context.Context, userID int64) (*Thread, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("пользователь %d не найден", userID)
		}
		return nil, storageFailure("GetOrCreateThread", err)
	}

	q, err := s.store.GetLatestQuestionByUser(ctx, userID)
	switch {
	case err == nil:
	case errors.Is(err, sql.ErrNoRows):
		q, err = s.createQuestion(ctx, userID)
		if err != nil {
			return nil, err
		}
		return &Thread{Question: q, Owner: models.OwnerOf(user), Messages: []models.Message{}}, nil
	default:
		return nil, storageFailure("GetOrCreateThread", err)
	}

	msgs, err := s.messagesFor(ctx, "GetOrCreateThread", q.ID)
	if err != nil {
		return nil, err
	}
	return &Thread{Question: q, Owner: models.OwnerOf(user), Messages: msgs[q.ID]}, nil
}

// createQuestion создает обращение. Проигравший гонку за создание перечитывает
// обращение, созданное победителем.
func (s *Service) createQuestion(ctx context.Context, userID int64) (models.Question, error) {
	now := s.now()
	q := models.Question{
		UserID:    userID,
		Status:    models.QuestionStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.store.CreateQuestion(ctx, &q)
	if err == nil {
		log.Printf("GetOrCreateThread: создано обращение #%d для пользователя %d", q.ID, userID)
		return q, nil
	}
	if !errors.Is(err, models.ErrAlreadyExists) {
		return models.Question{}, storageFailure("GetOrCreateThread", err)
	}

	existing, err := s.store.GetLatestQuestionByUser(ctx, userID)
	if err != nil {
		return models.Question{}, storageFailure("GetOrCreateThread", err)
	}
	log.Printf("GetOrCreateThread: обращение пользователя %d уже создано параллельным запросом (#%d)", userID, existing.ID)
	return existing, nil
}

// GetThread возвращает одно обращение. Доступно владельцу и администратору.
func (s *Service) GetThread(ctx context.Context, actorID, threadID int64) (*Thread, error) {
	actor, err := s.resolveActor(ctx, "GetThread", actorID)
	if err != nil {
		return nil, err
	}
	q, err := s.getQuestion(ctx, "GetThread", threadID)
	if err != nil {
		return nil, err
	}
	if actor.Role != constants.ROLE_ADMIN && q.UserID != actor.ID {
		return nil, forbidden("обращение #%d недоступно пользователю %d", threadID, actorID)
	}

	msgs, err := s.messagesFor(ctx, "GetThread", q.ID)
	if err != nil {
		return nil, err
	}
	return &Thread{Question: q.Question, Owner: q.Owner, Messages: msgs[q.ID]}, nil
}

// ListThreadsForAdmin возвращает все обращения: сначала PENDING, затем IN_PROGRESS,
// затем COMPLETED; внутри статуса — по убыванию updated_at.
func (s *Service) ListThreadsForAdmin(ctx context.Context, actorID int64) ([]Thread, error) {
	if _, err := s.requireAdmin(ctx, "ListThreadsForAdmin", actorID); err != nil {
		return nil, err
	}

	questions, err := s.store.ListQuestions(ctx)
	if err != nil {
		return nil, storageFailure("ListThreadsForAdmin", err)
	}
	ids := make([]int64, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}
	msgs, err := s.messagesFor(ctx, "ListThreadsForAdmin", ids...)
	if err != nil {
		return nil, err
	}

	threads := make([]Thread, 0, len(questions))
	for _, q := range questions {
		threads = append(threads, Thread{Question: q.Question, Owner: q.Owner, Messages: msgs[q.ID]})
	}
	SortThreadsForAdmin(threads)
	return threads, nil
}

// SetThreadStatus меняет статус обращения. Сообщение при этом не создается.
func (s *Service) SetThreadStatus(ctx context.Context, threadID int64, status string, actorID int64) (models.QuestionStatus, error) {
	if _, err := s.requireAdmin(ctx, "SetThreadStatus", actorID); err != nil {
		return "", err
	}

	newStatus := models.QuestionStatus(strings.TrimSpace(status))
	if !newStatus.Valid() {
		return "", invalidArgument("недопустимый статус %q", status)
	}

	err := s.store.UpdateQuestionStatus(ctx, threadID, newStatus, s.now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", notFound("обращение #%d не найдено", threadID)
		}
		return "", storageFailure("SetThreadStatus", err)
	}
	log.Printf("SetThreadStatus: статус обращения #%d изменен на %s администратором %d", threadID, newStatus, actorID)
	return newStatus, nil
}

// PostMessage добавляет сообщение в обращение от владельца или администратора.
func (s *Service) PostMessage(ctx context.Context, in PostMessageInput) (*models.Message, error) {
	text := strings.TrimSpace(in.Text)
	image := models.NewNullString(in.ImageURL)
	if text == "" && !image.Valid {
		return nil, invalidArgument("сообщение не может быть пустым")
	}

	author, err := s.store.GetUserByID(ctx, in.AuthorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("автор %d не найден", in.AuthorID)
		}
		return nil, storageFailure("PostMessage", err)
	}
	if in.IsFromAdmin && author.Role != constants.ROLE_ADMIN {
		return nil, forbidden("пользователь %d не может отвечать от имени поддержки", author.ID)
	}

	q, err := s.getQuestion(ctx, "PostMessage", in.QuestionID)
	if err != nil {
		return nil, err
	}
	if !in.IsFromAdmin && q.UserID != author.ID {
		return nil, forbidden("пользователь %d не является владельцем обращения #%d", author.ID, q.ID)
	}

	msg := models.Message{
		QuestionID:  q.ID,
		AuthorID:    author.ID,
		Text:        text,
		ImageURL:    image,
		IsFromAdmin: in.IsFromAdmin,
		CreatedAt:   s.now(),
	}
	if err := s.store.AppendMessage(ctx, &msg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("обращение #%d не найдено", in.QuestionID)
		}
		return nil, storageFailure("PostMessage", err)
	}
	log.Printf("PostMessage: сообщение #%d добавлено в обращение #%d (автор %d, поддержка: %t)", msg.ID, q.ID, author.ID, msg.IsFromAdmin)

	if !msg.IsFromAdmin && s.notifier != nil {
		q.UpdatedAt = msg.CreatedAt
		if err := s.notifier.NotifyNewMessage(ctx, q, msg); err != nil {
			log.Printf("PostMessage: не удалось уведомить поддержку о сообщении #%d: %v", msg.ID, err)
		}
	}
	return &msg, nil
}

// Summary возвращает количество обращений по статусам.
func (s *Service) Summary(ctx context.Context, actorID int64) (*Summary, error) {
	if _, err := s.requireAdmin(ctx, "Summary", actorID); err != nil {
		return nil, err
	}
	counts, err := s.store.CountQuestionsByStatus(ctx)
	if err != nil {
		return nil, storageFailure("Summary", err)
	}
	sum := &Summary{
		Pending:             counts[models.QuestionStatusPending],
		InProgress:          counts[models.QuestionStatusInProgress],
		Completed:           counts[models.QuestionStatusCompleted],
		PollIntervalSeconds: int(s.pollInterval / time.Second),
	}
	sum.Total = sum.Pending + sum.InProgress + sum.Completed
	return sum, nil
}

// SortThreadsForAdmin упорядочивает обращения для админки.
func SortThreadsForAdmin(threads []Thread) {
	sort.SliceStable(threads, func(i, j int) bool {
		a, b := threads[i], threads[j]
		if ra, rb := a.Status.Rank(), b.Status.Rank(); ra != rb {
			return ra < rb
		}
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.ID > b.ID
	})
}

// SortMessages упорядочивает сообщения по времени создания, при равенстве — по ID.
func SortMessages(msgs []models.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
		}
		return msgs[i].ID < msgs[j].ID
	})
}

// requireAdmin перечитывает роль из хранилища, не доверяя данным сессии.
func (s *Service) requireAdmin(ctx context.Context, op string, actorID int64) (models.User, error) {
	actor, err := s.resolveActor(ctx, op, actorID)
	if err != nil {
		return models.User{}, err
	}
	if actor.Role != constants.ROLE_ADMIN {
		return models.User{}, forbidden("пользователь %d не является администратором", actorID)
	}
	return actor, nil
}

func (s *Service) resolveActor(ctx context.Context, op string, actorID int64) (models.User, error) {
	actor, err := s.store.GetUserByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, unauthenticated("пользователь %d не найден", actorID)
		}
		return models.User{}, storageFailure(op, err)
	}
	return actor, nil
}

func (s *Service) getQuestion(ctx context.Context, op string, id int64) (models.QuestionWithOwner, error) {
	q, err := s.store.GetQuestionByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.QuestionWithOwner{}, notFound("обращение #%d не найдено", id)
		}
		return models.QuestionWithOwner{}, storageFailure(op, err)
	}
	return q, nil
}

// messagesFor загружает сообщения и гарантирует непустой срез для каждого обращения.
func (s *Service) messagesFor(ctx context.Context, op string, ids ...int64) (map[int64][]models.Message, error) {
	out := make(map[int64][]models.Message, len(ids))
	if len(ids) > 0 {
		loaded, err := s.store.GetMessagesByQuestionIDs(ctx, ids)
		if err != nil {
			return nil, storageFailure(op, err)
		}
		for id, msgs := range loaded {
			SortMessages(msgs)
			out[id] = msgs
		}
	}
	for _, id := range ids {
		if out[id] == nil {
			out[id] = []models.Message{}
		}
	}
	return out, nil
}
