// Package apperr agrupa los errores de dominio compartidos entre módulos.
// Los handlers los traducen a status HTTP en internal/platform/httpx.
package apperr

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

// FieldErrors describe errores de validación por campo del formulario.
// errors.Is(fe, ErrInvalidInput) es true.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	if len(fe) == 0 {
		return ErrInvalidInput.Error()
	}
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (fe FieldErrors) Is(target error) bool {
	return target == ErrInvalidInput
}

// Add registra un mensaje para field (el primero gana).
func (fe FieldErrors) Add(field, msg string) {
	if _, exists := fe[field]; exists {
		return
	}
	fe[field] = msg
}

// Merge copia los errores de other sin pisar los ya registrados.
func (fe FieldErrors) Merge(other FieldErrors) {
	for field, msg := range other {
		fe.Add(field, msg)
	}
}

// Err devuelve nil si no hay errores, para cerrar validaciones en una línea.
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// Invalid construye un FieldErrors de un solo campo.
func Invalid(field, msg string) error {
	return FieldErrors{field: msg}
}

// Error es un error con mensaje apto para mostrar al usuario.
// Kind es uno de los sentinels de este paquete.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

// New crea un error público de la categoría kind.
func New(kind error, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// PublicMessage devuelve el mensaje visible para err (vacío si no tiene uno).
func PublicMessage(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Msg
	}
	return ""
}
