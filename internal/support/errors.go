package support

import (
	"errors"
	"fmt"
	"log"
)

// Виды ошибок подсистемы обращений. Каждая ошибка сервиса оборачивает ровно одну из них,
// вызывающий код различает их через errors.Is.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrStorage         = errors.New("storage failure")
)

func unauthenticated(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnauthenticated, fmt.Sprintf(format, args...))
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func forbidden(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

func notFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// storageFailure логирует исходную ошибку хранилища и возвращает ErrStorage.
// Подробности остаются в тексте ошибки, HTTP-слой показывает их только в dev-режиме.
func storageFailure(op string, err error) error {
	log.Printf("%s: ошибка хранилища: %v", op, err)
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}
