package db

import (
	"context"
	"database/sql"
	"log"
	"strings"

	"gkh-portal/internal/models"
)

const userColumns = `id, role, name, email, password_hash, created_at`

// CreateUser сохраняет нового пользователя и заполняет ID и CreatedAt.
// При занятом email возвращает models.ErrAlreadyExists.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	err := s.DB.QueryRowContext(ctx, `
        INSERT INTO users (role, name, email, password_hash, created_at)
        VALUES ($1, $2, $3, $4, NOW())
        RETURNING id, created_at`,
		u.Role, u.Name, strings.ToLower(strings.TrimSpace(u.Email)), u.PasswordHash).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		err = mapUniqueViolation(err)
		if err != models.ErrAlreadyExists {
			log.Printf("CreateUser: ошибка вставки пользователя %s: %v", u.Email, err)
		}
		return err
	}
	log.Printf("Зарегистрирован новый пользователь #%d (%s)", u.ID, u.Email)
	return nil
}

// GetUserByID извлекает пользователя по ID. Если не найден, возвращает sql.ErrNoRows.
func (s *Store) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	u, err := scanUser(s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil && err != sql.ErrNoRows {
		log.Printf("GetUserByID: ошибка получения пользователя %d: %v", id, err)
	}
	return u, err
}

// GetUserByEmail извлекает пользователя по email без учета регистра.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	u, err := scanUser(s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(strings.TrimSpace(email))))
	if err != nil && err != sql.ErrNoRows {
		log.Printf("GetUserByEmail: ошибка получения пользователя %s: %v", email, err)
	}
	return u, err
}

func scanUser(row *sql.Row) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Role, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	return u, err
}
