package memkv

import (
	"context"
	"sync"
	"time"

	"petpal/internal/ports/ratelimit"
)

// BucketConfig: Capacity tokens, se reponen RefillTokens cada RefillInterval.
// Un bucket sin uso durante TTL se olvida.
type BucketConfig struct {
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
}

type bucket struct {
	tokens     int
	lastRefill time.Time
	seenAt     time.Time
}

// Limiter es un token bucket por clave con la misma aritmética que el script
// de rediskv: reposición por intervalos enteros, sin fracciones.
type Limiter struct {
	cfg BucketConfig

	mu      sync.Mutex
	buckets map[string]*bucket
	sweptAt time.Time
	now     func() time.Time
}

func NewLimiter(cfg BucketConfig) *Limiter {
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	return &Limiter{
		cfg:     cfg,
		buckets: map[string]*bucket{},
		now:     time.Now,
	}
}

func (l *Limiter) Take(_ context.Context, key string) (ratelimit.Decision, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cfg.TTL > 0 && now.Sub(l.sweptAt) >= l.cfg.TTL {
		for k, old := range l.buckets {
			if now.Sub(old.seenAt) >= l.cfg.TTL {
				delete(l.buckets, k)
			}
		}
		l.sweptAt = now
	}

	b, ok := l.buckets[key]
	if !ok || (l.cfg.TTL > 0 && now.Sub(b.seenAt) >= l.cfg.TTL) {
		b = &bucket{tokens: l.cfg.Capacity, lastRefill: now}
		l.buckets[key] = b
	}
	b.seenAt = now

	if elapsed := now.Sub(b.lastRefill); elapsed > 0 {
		if n := int(elapsed / l.cfg.RefillInterval); n > 0 {
			b.tokens = min(l.cfg.Capacity, b.tokens+n*l.cfg.RefillTokens)
			b.lastRefill = b.lastRefill.Add(time.Duration(n) * l.cfg.RefillInterval)
		}
	}

	d := ratelimit.Decision{Limit: l.cfg.Capacity}
	if b.tokens > 0 {
		b.tokens--
		d.Allowed = true
		d.Remaining = b.tokens
		return d, nil
	}
	d.RetryAfter = max(0, l.cfg.RefillInterval-now.Sub(b.lastRefill))
	return d, nil
}
