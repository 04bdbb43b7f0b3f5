package repository

import (
	"errors"
	"fmt"
)

// Code identifica el tipo de falla de un repositorio.
type Code string

const (
	// CodeInvalidInput: a caller-supplied parameter violates a precondition.
	CodeInvalidInput Code = "invalid-input"
	// CodeConnectionFailed: a backing store could not be reached.
	CodeConnectionFailed Code = "connection-failed"
	// CodeUniqueViolation: the write would duplicate a unique key.
	CodeUniqueViolation Code = "unique-violation"
	// CodeNotFound: the referenced id does not exist.
	CodeNotFound Code = "entry-not-found"
	// CodeUnknown is the catch-all.
	CodeUnknown Code = "unknown"
)

// Sentinels para usar con errors.Is; comparan solo el Code.
var (
	ErrInvalidInput     = &Error{Code: CodeInvalidInput}
	ErrConnectionFailed = &Error{Code: CodeConnectionFailed}
	ErrUniqueViolation  = &Error{Code: CodeUniqueViolation}
	ErrNotFound         = &Error{Code: CodeNotFound}
	ErrUnknown          = &Error{Code: CodeUnknown}
)

// Error es el error tipado que cruza la frontera del repositorio.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// NewError construye un Error; un code vacio se trata como CodeUnknown.
func NewError(code Code, message string, cause error) *Error {
	if code == "" {
		code = CodeUnknown
	}
	return &Error{Code: code, Message: message, Cause: cause}
}

// Errorf es NewError con mensaje formateado y sin causa.
func Errorf(code Code, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...), nil)
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error carrying the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// CodeOf devuelve el Code del primer *Error en la cadena, o CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsCode reporta si err lleva el code indicado.
func IsCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}
