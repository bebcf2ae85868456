package utils

import (
	"fmt"
	"log"
	"net/mail"
	"strings"
	"unicode/utf8"

	"gkh-portal/internal/constants"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 72 // bcrypt не учитывает байты после 72-го
	maxNameLength     = 100
)

// ValidateEmail проверяет и нормализует адрес электронной почты.
// Возвращает адрес в нижнем регистре или ошибку.
func ValidateEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", fmt.Errorf("email не может быть пустым")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return "", fmt.Errorf("некорректный формат email: '%s'", email)
	}
	return strings.ToLower(email), nil
}

// ValidatePassword проверяет длину пароля.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("пароль должен содержать не менее %d символов", minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return fmt.Errorf("пароль не должен превышать %d байт", maxPasswordLength)
	}
	return nil
}

// ValidateName проверяет отображаемое имя пользователя.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("имя не может быть пустым")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", fmt.Errorf("имя не должно превышать %d символов", maxNameLength)
	}
	return name, nil
}

// IsRoleOrHigher проверяет, соответствует ли роль пользователя минимально требуемой роли.
// Иерархия ролей: User < Admin
func IsRoleOrHigher(userRole string, requiredRole string) bool {
	roleHierarchy := map[string]int{
		constants.ROLE_USER:  0,
		constants.ROLE_ADMIN: 1,
	}

	userLevel, okUser := roleHierarchy[userRole]
	requiredLevel, okRequired := roleHierarchy[requiredRole]

	if !okUser || !okRequired {
		log.Printf("IsRoleOrHigher: неизвестная роль при сравнении: userRole='%s', requiredRole='%s'", userRole, requiredRole)
		return false
	}
	return userLevel >= requiredLevel
}
