package ratelimit

import (
	"context"
	"time"
)

// Decision es el resultado de consumir un token del bucket de key.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type Limiter interface {
	Take(ctx context.Context, key string) (Decision, error)
}
