package identity

import (
	"context"
	"time"
)

type PendingStore interface {
	Put(ctx context.Context, p PendingRegistration, ttl time.Duration) error
	// Take devuelve y elimina el registro. ErrNotFound si no existe o expiró.
	Take(ctx context.Context, id string) (PendingRegistration, error)
}

type SessionStore interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}
