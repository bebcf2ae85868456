package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"

	"gkh-portal/internal/constants"
	"gkh-portal/internal/models"
	"gkh-portal/internal/utils"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidInput       = errors.New("invalid input")
)

// UserStore — хранилище учетных записей.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id int64) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
}

// Accounts реализует регистрацию и вход.
type Accounts struct {
	users  UserStore
	tokens *TokenManager
}

// NewAccounts создает сервис учетных записей.
func NewAccounts(users UserStore, tokens *TokenManager) *Accounts {
	return &Accounts{users: users, tokens: tokens}
}

// Session — результат успешной регистрации или входа.
type Session struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Register создает учетную запись жителя. Роль при регистрации всегда USER.
func (a *Accounts) Register(ctx context.Context, name, email, password string) (*Session, error) {
	name, err := utils.ValidateName(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	email, err = utils.ValidateEmail(email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := utils.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := models.User{Role: constants.ROLE_USER, Name: name, Email: email, PasswordHash: hash}
	if err := a.users.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, models.ErrAlreadyExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("ошибка создания пользователя: %w", err)
	}
	return a.newSession(user)
}

// EnsureAdmin создает учетную запись администратора, если email еще не занят.
// Существующая учетная запись не изменяется.
func (a *Accounts) EnsureAdmin(ctx context.Context, name, email, password string) (models.User, error) {
	email, err := utils.ValidateEmail(email)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	existing, err := a.users.GetUserByEmail(ctx, email)
	if err == nil {
		if existing.Role != constants.ROLE_ADMIN {
			log.Printf("EnsureAdmin: пользователь %s уже зарегистрирован с ролью %s, роль не изменена", email, existing.Role)
		}
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("ошибка получения пользователя: %w", err)
	}
	if err := utils.ValidatePassword(password); err != nil {
		return models.User{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if name, err = utils.ValidateName(name); err != nil {
		return models.User{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	admin := models.User{Role: constants.ROLE_ADMIN, Name: name, Email: email, PasswordHash: hash}
	if err := a.users.CreateUser(ctx, &admin); err != nil {
		return models.User{}, fmt.Errorf("ошибка создания администратора: %w", err)
	}
	log.Printf("EnsureAdmin: создан администратор #%d (%s)", admin.ID, email)
	return admin, nil
}

// IssueSession выпускает токен для уже загруженного пользователя.
func (a *Accounts) IssueSession(user models.User) (*Session, error) {
	return a.newSession(user)
}

// Login проверяет email и пароль и выпускает токен.
func (a *Accounts) Login(ctx context.Context, email, password string) (*Session, error) {
	email, err := utils.ValidateEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	user, err := a.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}
	if !CheckPassword(user.PasswordHash, password) {
		log.Printf("Login: неверный пароль для пользователя #%d", user.ID)
		return nil, ErrInvalidCredentials
	}
	return a.newSession(user)
}

// Authenticate проверяет токен и загружает пользователя из хранилища.
func (a *Accounts) Authenticate(ctx context.Context, tokenStr string) (models.User, error) {
	claims, err := a.tokens.Parse(tokenStr)
	if err != nil {
		return models.User{}, err
	}
	user, err := a.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("%w: пользователь %d не найден", ErrInvalidToken, claims.UserID)
		}
		return models.User{}, fmt.Errorf("ошибка получения пользователя: %w", err)
	}
	return user, nil
}

func (a *Accounts) newSession(user models.User) (*Session, error) {
	token, err := a.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: user}, nil
}

// HashPassword возвращает bcrypt-хеш пароля.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("ошибка хеширования пароля: %w", err)
	}
	return string(hash), nil
}

// CheckPassword сравнивает пароль с bcrypt-хешем.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
