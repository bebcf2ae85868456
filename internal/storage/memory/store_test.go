package memory

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"gkh-portal/internal/models"
)

func TestCreateQuestionIsUniquePerUser(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	u := &models.User{Name: "Иван", Email: "ivan@example.com", Role: "USER"}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	now := time.Now()
	first := &models.Question{UserID: u.ID, Status: models.QuestionStatusPending, CreatedAt: now, UpdatedAt: now}
	if err := s.CreateQuestion(ctx, first); err != nil {
		t.Fatalf("CreateQuestion: %v", err)
	}

	second := &models.Question{UserID: u.ID, Status: models.QuestionStatusPending, CreatedAt: now, UpdatedAt: now}
	if err := s.CreateQuestion(ctx, second); !errors.Is(err, models.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	if err := s.CreateUser(ctx, &models.User{Email: "a@example.com"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := s.CreateUser(ctx, &models.User{Email: " A@Example.com "}); !errors.Is(err, models.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	u, err := s.GetUserByEmail(ctx, "A@EXAMPLE.COM")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if u.ID != 1 {
		t.Fatalf("unexpected user id %d", u.ID)
	}
}

func TestAppendMessageBumpsUpdatedAt(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	u := &models.User{Email: "b@example.com"}
	_ = s.CreateUser(ctx, u)

	created := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	q := &models.Question{UserID: u.ID, Status: models.QuestionStatusPending, CreatedAt: created, UpdatedAt: created}
	if err := s.CreateQuestion(ctx, q); err != nil {
		t.Fatalf("CreateQuestion: %v", err)
	}

	msgTime := created.Add(time.Hour)
	msg := &models.Message{QuestionID: q.ID, AuthorID: u.ID, Text: "Здравствуйте", CreatedAt: msgTime}
	if err := s.AppendMessage(ctx, msg); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if msg.ID == 0 {
		t.Fatalf("expected message id to be assigned")
	}

	got, err := s.GetQuestionByID(ctx, q.ID)
	if err != nil {
		t.Fatalf("GetQuestionByID: %v", err)
	}
	if !got.UpdatedAt.Equal(msgTime) {
		t.Fatalf("updated_at = %v, want %v", got.UpdatedAt, msgTime)
	}
	if got.Owner.Email != "b@example.com" {
		t.Fatalf("owner email = %q", got.Owner.Email)
	}
}

func TestMissingRecordsReturnErrNoRows(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	if _, err := s.GetUserByID(ctx, 42); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetUserByID: expected sql.ErrNoRows, got %v", err)
	}
	if _, err := s.GetLatestQuestionByUser(ctx, 42); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetLatestQuestionByUser: expected sql.ErrNoRows, got %v", err)
	}
	if err := s.UpdateQuestionStatus(ctx, 42, models.QuestionStatusCompleted, time.Now()); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("UpdateQuestionStatus: expected sql.ErrNoRows, got %v", err)
	}
	if err := s.AppendMessage(ctx, &models.Message{QuestionID: 42, Text: "x"}); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("AppendMessage: expected sql.ErrNoRows, got %v", err)
	}
}
