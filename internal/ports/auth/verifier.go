package auth

import "context"

// AuthVerifier resuelve un id de sesión opaco (cookie o Bearer) a Claims.
type AuthVerifier interface {
	Verify(ctx context.Context, sessionID string) (Claims, error)
}
