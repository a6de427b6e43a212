package users

import (
	"strings"
	"time"
)

type User struct {
	ID       string
	Username string
	Email    string

	PasswordHash string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormalizeEmail es la forma canónica con la que se guarda y busca un email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
