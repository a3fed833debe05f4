package contract

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Классы ошибок. Конкретные ошибки оборачивают их через *Error.
var (
	ErrValidation   = errors.New("validation failed")
	ErrTemplateLoad = errors.New("template load failed")
	ErrConversion   = errors.New("conversion failed")
	ErrIO           = errors.New("i/o failure")
	ErrLedgerWrite  = errors.New("ledger write failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrPathInvalid  = errors.New("path invalid")
)

// Error связывает класс ошибки, объект (RFC, путь, поле) и причину.
type Error struct {
	Kind    error
	Subject string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Subject != "" {
		msg += ": " + e.Subject
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap позволяет errors.Is находить и класс, и причину.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Errorf создает *Error с отформатированным объектом.
func Errorf(kind error, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Subject: fmt.Sprintf(format, args...), Err: err}
}

// Code: короткий код ошибки для логов и метрик.
type Code string

const (
	CodeOK           Code = "ok"
	CodeUnknown      Code = "unknown"
	CodeValidation   Code = "validation"
	CodeTemplate     Code = "template"
	CodeConversion   Code = "conversion"
	CodeIO           Code = "io"
	CodeLedger       Code = "ledger"
	CodeUnauthorized Code = "unauthorized"
	CodeCancel       Code = "cancel"
)

// Classify сводит ошибку к коду. Только sentinel-ошибки и типы stdlib, без разбора строк.
func Classify(err error) Code {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrConversion):
		return CodeCancel
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrTemplateLoad):
		return CodeTemplate
	case errors.Is(err, ErrConversion):
		return CodeConversion
	case errors.Is(err, ErrLedgerWrite):
		return CodeLedger
	case errors.Is(err, ErrIO), errors.Is(err, ErrPathInvalid):
		return CodeIO
	}
	var perr *os.PathError
	if errors.As(err, &perr) {
		return CodeIO
	}
	return CodeUnknown
}
