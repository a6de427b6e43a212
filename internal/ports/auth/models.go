package auth

// Claims identifica al usuario de la sesión activa.
type Claims struct {
	UserID    string
	Email     string
	SessionID string
}
