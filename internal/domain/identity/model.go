package identity

import "time"

// PendingRegistration guarda los datos de un registro hasta que se confirma el email.
// Vive en el KV con el mismo TTL que el token de confirmación.
type PendingRegistration struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type RegisterInput struct {
	Username     string
	Email        string
	Password     string
	Confirmation string
}

type LoginInput struct {
	Email    string
	Password string

	// sesión previa del cliente, se destruye antes de crear la nueva
	PriorSessionID string
}

type ResetInput struct {
	Token        string
	Password     string
	Confirmation string
}
