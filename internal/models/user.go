package models

import "time"

// User — учетная запись портала. Подсистема обращений читает только ID, Role, Name и Email.
type User struct {
	ID           int64     `json:"id"`
	Role         string    `json:"role"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Owner — отображаемые поля владельца обращения для админки.
type Owner struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// OwnerOf возвращает отображаемые поля пользователя.
func OwnerOf(u User) Owner {
	return Owner{ID: u.ID, Name: u.Name, Email: u.Email}
}
