// Файл: internal/db/db.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/lib/pq" // PostgreSQL driver

	"gkh-portal/internal/models"
)

// uniqueViolation — код ошибки PostgreSQL для нарушения ограничения уникальности.
const uniqueViolation = "23505"

// Store — хранилище пользователей, обращений и сообщений в PostgreSQL.
type Store struct {
	DB *sql.DB
}

// InitDB инициализирует соединение с базой данных и выполняет миграции.
func InitDB(ctx context.Context, dbURL string) (*Store, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL не установлена")
	}

	parsedURL, err := url.Parse(dbURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DATABASE_URL: %v", err)
	}
	// Если используется CA.pem облачного провайдера, добавьте sslrootcert в строку подключения.
	parsedURL.RawQuery = parsedURL.Query().Encode()

	conn, err := sql.Open("postgres", parsedURL.String())
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе данных: %v", err)
	}

	conn.SetMaxOpenConns(50)
	conn.SetMaxIdleConns(20)
	conn.SetConnMaxLifetime(5 * time.Minute)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ошибка проверки соединения с базой данных: %v", err)
	}
	log.Println("Успешное подключение к базе данных.")

	s := &Store{DB: conn}
	if err := s.createTables(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	if err := s.migrateDBSchema(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ошибка выполнения миграции схемы: %v", err)
	}
	s.createIndexes(ctx)

	log.Println("Инициализация базы данных успешно завершена.")
	return s, nil
}

func (s *Store) createTables(ctx context.Context) (err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции для создания таблиц: %v", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			log.Printf("Откат транзакции из-за ошибки: %v", err)
			tx.Rollback()
		}
	}()

	createTablesSQL := `
        CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            role TEXT NOT NULL DEFAULT 'USER',
            name VARCHAR(100) NOT NULL,
            email VARCHAR(255) NOT NULL UNIQUE,
            password_hash TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
        CREATE TABLE IF NOT EXISTS questions (
            id SERIAL PRIMARY KEY,
            user_id INTEGER NOT NULL REFERENCES users(id),
            status TEXT NOT NULL DEFAULT 'PENDING',
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL
        );
        CREATE TABLE IF NOT EXISTS question_messages (
            id SERIAL PRIMARY KEY,
            question_id INTEGER NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
            author_id INTEGER NOT NULL REFERENCES users(id),
            text TEXT NOT NULL DEFAULT '',
            image_url TEXT,
            is_from_admin BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL
        );
    `
	if _, err = tx.ExecContext(ctx, createTablesSQL); err != nil {
		return fmt.Errorf("ошибка создания таблиц: %v", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции создания таблиц: %v", err)
	}
	log.Println("Создание таблиц (если не существуют) завершено.")
	return nil
}

// migrateDBSchema выполняет миграции схемы. Должна быть идемпотентной.
func (s *Store) migrateDBSchema(ctx context.Context) error {
	migrations := []struct {
		name string
		sql  string
	}{
		{
			name: "questions.status_check",
			sql: `DO $$
                  BEGIN
                      IF NOT EXISTS (
                          SELECT 1 FROM pg_constraint
                          WHERE conrelid = 'questions'::regclass
                          AND conname = 'questions_status_check'
                      ) THEN
                          ALTER TABLE questions ADD CONSTRAINT questions_status_check
                              CHECK (status IN ('PENDING', 'IN_PROGRESS', 'COMPLETED'));
                      END IF;
                  END$$;`,
		},
		{
			// Одно обращение на пользователя: параллельные GetOrCreateThread не создадут дубликат.
			name: "questions.user_id_unique",
			sql:  `CREATE UNIQUE INDEX IF NOT EXISTS questions_user_id_key ON questions(user_id);`,
		},
		{
			name: "question_messages.image_url",
			sql:  `ALTER TABLE question_messages ADD COLUMN IF NOT EXISTS image_url TEXT;`,
		},
	}

	for _, migration := range migrations {
		_, err := s.DB.ExecContext(ctx, migration.sql)
		if err != nil {
			if strings.Contains(err.Error(), "already exists") ||
				(migration.name == "questions.user_id_unique" && strings.Contains(err.Error(), "could not create unique index")) {
				log.Printf("INFO: Миграция '%s' пропущена (объект уже существует или данные нарушают его). Детали: %v", migration.name, err)
				continue
			}
			return fmt.Errorf("ошибка миграции схемы ('%s'): %v", migration.name, err)
		}
		log.Printf("INFO: Миграция ('%s') успешно применена или объект уже существовал.", migration.name)
	}

	log.Println("Миграция схемы базы данных успешно выполнена (или не требовалась).")
	return nil
}

func (s *Store) createIndexes(ctx context.Context) {
	createIndexesSQL := `
        CREATE INDEX IF NOT EXISTS idx_questions_status_updated_at ON questions(status, updated_at DESC);
        CREATE INDEX IF NOT EXISTS idx_question_messages_question_id ON question_messages(question_id, created_at, id);
    `
	for _, stmt := range strings.Split(strings.TrimSpace(createIndexesSQL), ";") {
		trimmedStmt := strings.TrimSpace(stmt)
		if trimmedStmt == "" {
			continue
		}
		if _, errIdx := s.DB.ExecContext(ctx, trimmedStmt); errIdx != nil {
			log.Printf("Предупреждение: ошибка при создании индекса ('%s'): %v. Проверьте логи.", trimmedStmt, errIdx)
		}
	}
	log.Println("Создание индексов (если не существуют) завершено.")
}

// Close закрывает соединение с базой данных.
func (s *Store) Close() {
	if s != nil && s.DB != nil {
		s.DB.Close()
		log.Println("Соединение с базой данных закрыто.")
	}
}

// Ping проверяет доступность базы данных.
func (s *Store) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

// mapUniqueViolation превращает ошибку уникальности PostgreSQL в models.ErrAlreadyExists.
func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return models.ErrAlreadyExists
	}
	return err
}
