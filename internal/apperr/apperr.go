// Package apperr содержит общую таксономию ошибок ядра.
//
// Каждая операция сервисов возвращает error, оборачивающий ровно одну из
// sentinel-ошибок ниже, поэтому вызывающий код проверяет вид через errors.Is,
// а HTTP-слой переводит вид в код ответа через KindOf.
package apperr

import (
	"errors"
	"fmt"
	"io/fs"

	"gorm.io/gorm"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrIO              = errors.New("io error")
)

// Kind — строковое имя вида ошибки для внешних слоёв.
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindAlreadyExists   Kind = "already_exists"
	KindForbidden       Kind = "forbidden"
	KindInvalidArgument Kind = "invalid_argument"
	KindIO              Kind = "io_error"
	KindInternal        Kind = "internal"
)

// KindOf определяет вид ошибки. Ошибки вне таксономии считаются internal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAlreadyExists):
		return KindAlreadyExists
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrIO):
		return KindIO
	default:
		return KindInternal
	}
}

// Errorf оборачивает sentinel с сообщением: apperr.Errorf(apperr.ErrNotFound, "playlist %d", id).
func Errorf(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// FromOS классифицирует ошибку файловой системы.
func FromOS(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, fs.ErrExist):
		return fmt.Errorf("%w: %v", ErrAlreadyExists, err)
	default:
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
}

// FromDB переводит gorm.ErrRecordNotFound в ErrNotFound, остальное — в ErrIO.
// Уже классифицированные ошибки возвращаются как есть.
func FromDB(err error, what string) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindInternal {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return fmt.Errorf("%w: %s: %v", ErrIO, what, err)
}
