// Package httpx reúne helpers HTTP comunes a todos los módulos.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"petpal/internal/platform/apperr"
	"petpal/internal/platform/logger"

	chimw "github.com/go-chi/chi/v5/middleware"
)

const DateLayout = "2006-01-02"

// ErrorResponse es el cuerpo de toda respuesta de error.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error traduce err a un status HTTP. Los errores no clasificados se loguean
// y se responden como 500 sin detalle.
func Error(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	status, body := classify(err)
	if status == http.StatusInternalServerError && log != nil {
		log.Error("request failed", map[string]any{
			"request_id": chimw.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"error":      err.Error(),
		})
	}
	WriteJSON(w, status, body)
}

func classify(err error) (int, ErrorResponse) {
	msg := apperr.PublicMessage(err)

	var fe apperr.FieldErrors
	switch {
	case errors.As(err, &fe):
		return http.StatusBadRequest, ErrorResponse{Error: "invalid input", Fields: fe}
	case errors.Is(err, apperr.ErrInvalidInput):
		return http.StatusBadRequest, ErrorResponse{Error: orDefault(msg, "invalid input")}
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized, ErrorResponse{Error: orDefault(msg, "unauthorized")}
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden, ErrorResponse{Error: orDefault(msg, "forbidden")}
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Error: orDefault(msg, "not found")}
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict, ErrorResponse{Error: orDefault(msg, "conflict")}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "internal error"}
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// ParseForm acepta application/x-www-form-urlencoded y multipart/form-data.
func ParseForm(r *http.Request, maxMemory int64) error {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(strings.ToLower(ct), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			return apperr.New(apperr.ErrInvalidInput, "invalid multipart form")
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return apperr.New(apperr.ErrInvalidInput, "invalid form")
	}
	return nil
}

// FormDate lee un campo YYYY-MM-DD opcional. Vacío => nil.
func FormDate(r *http.Request, field string, fe apperr.FieldErrors) *time.Time {
	v := strings.TrimSpace(r.FormValue(field))
	if v == "" {
		return nil
	}
	t, err := time.Parse(DateLayout, v)
	if err != nil {
		fe.Add(field, "must be YYYY-MM-DD")
		return nil
	}
	return &t
}

// FormBool interpreta checkboxes HTML ("on", "true", "1", "y").
func FormBool(r *http.Request, field string) bool {
	switch strings.ToLower(strings.TrimSpace(r.FormValue(field))) {
	case "on", "true", "1", "y", "yes":
		return true
	default:
		return false
	}
}

// QueryInt lee un entero de la query; si falta devuelve def.
func QueryInt(r *http.Request, key string, def int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Invalid(key, "must be an integer")
	}
	return n, nil
}
