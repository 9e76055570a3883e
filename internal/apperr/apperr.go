// Package apperr clasifica los errores de dominio para que el handler los
// traduzca a códigos HTTP sin conocer repositorios ni servicios.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound        Kind = "not-found"
	KindAlreadyExists   Kind = "already-exists"
	KindValidation      Kind = "validation"
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindConflict        Kind = "conflict"
	KindStore           Kind = "store-failure"
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Msg != "" {
		return e.Msg + ": " + e.Err.Error()
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is permite comparar contra los centinelas por Kind:
// errors.Is(err, apperr.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrAlreadyExists   = &Error{Kind: KindAlreadyExists}
	ErrValidation      = &Error{Kind: KindValidation}
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated}
	ErrForbidden       = &Error{Kind: KindForbidden}
	ErrConflict        = &Error{Kind: KindConflict}
	ErrStore           = &Error{Kind: KindStore}
)

func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error { return New(KindNotFound, format, args...) }

func AlreadyExists(format string, args ...any) error {
	return New(KindAlreadyExists, format, args...)
}

func Validation(format string, args ...any) error { return New(KindValidation, format, args...) }

func Forbidden(format string, args ...any) error { return New(KindForbidden, format, args...) }

// Store envuelve un error del driver. El mensaje original queda en la
// cadena para logs pero no se expone al cliente.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: KindStore, Msg: op, Err: err}
}

// KindOf devuelve el Kind del primer *Error de la cadena, o KindStore si no
// hay ninguno.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindStore
}
