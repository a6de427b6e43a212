// Package rediskv implementa sesiones, registros pendientes y rate limit sobre Redis.
package rediskv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"petpal/internal/domain/identity"
	"petpal/internal/platform/apperr"

	"github.com/redis/go-redis/v9"
)

type Options struct {
	Addr     string
	Password string
	DB       int
	// Prefix se antepone a todas las claves (default "petpal").
	Prefix string
}

type Client struct {
	rdb    *redis.Client
	prefix string
}

// Connect abre el cliente y hace ping con timeout corto. Si falla, el
// caller decide si degradar a memkv.
func Connect(ctx context.Context, opts Options) (*Client, error) {
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		return nil, errors.New("rediskv: addr required")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("rediskv: ping %s: %w", addr, err)
	}
	return New(rdb, opts.Prefix), nil
}

// New envuelve un cliente ya creado.
func New(rdb *redis.Client, prefix string) *Client {
	prefix = strings.Trim(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "petpal"
	}
	return &Client{rdb: rdb, prefix: prefix}
}

func (c *Client) Close() error { return c.rdb.Close() }

func (c *Client) Ping(ctx context.Context) error { return c.rdb.Ping(ctx).Err() }

func (c *Client) key(kind, id string) string {
	return c.prefix + ":" + kind + ":" + id
}

func (c *Client) setJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("rediskv: encode %s: %w", key, err)
	}
	if err := c.rdb.Set(ctx, key, b, ttl).Err(); err != nil {
		return fmt.Errorf("rediskv: set %s: %w", key, err)
	}
	return nil
}

func decodeJSON(key string, b []byte, err error, dst any) error {
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("rediskv: %s: %w", key, apperr.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("rediskv: get %s: %w", key, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("rediskv: decode %s: %w", key, err)
	}
	return nil
}

func (c *Client) Sessions() identity.SessionStore { return &sessionStore{c: c} }
func (c *Client) Pending() identity.PendingStore { return &pendingStore{c: c} }

type sessionStore struct{ c *Client }

func (r *sessionStore) Create(ctx context.Context, s identity.Session) error {
	var ttl time.Duration
	if !s.ExpiresAt.IsZero() {
		ttl = time.Until(s.ExpiresAt)
		if ttl <= 0 {
			return nil
		}
	}
	return r.c.setJSON(ctx, r.c.key("session", s.ID), s, ttl)
}

func (r *sessionStore) Get(ctx context.Context, id string) (identity.Session, error) {
	key := r.c.key("session", id)
	b, err := r.c.rdb.Get(ctx, key).Bytes()
	var s identity.Session
	if err := decodeJSON(key, b, err, &s); err != nil {
		return identity.Session{}, err
	}
	return s, nil
}

func (r *sessionStore) Delete(ctx context.Context, id string) error {
	if err := r.c.rdb.Del(ctx, r.c.key("session", id)).Err(); err != nil {
		return fmt.Errorf("rediskv: delete session: %w", err)
	}
	return nil
}

type pendingStore struct{ c *Client }

func (r *pendingStore) Put(ctx context.Context, p identity.PendingRegistration, ttl time.Duration) error {
	return r.c.setJSON(ctx, r.c.key("pending", p.ID), p, ttl)
}

// Take usa GETDEL: dos confirmaciones concurrentes no obtienen el mismo registro.
func (r *pendingStore) Take(ctx context.Context, id string) (identity.PendingRegistration, error) {
	key := r.c.key("pending", id)
	b, err := r.c.rdb.GetDel(ctx, key).Bytes()
	var p identity.PendingRegistration
	if err := decodeJSON(key, b, err, &p); err != nil {
		return identity.PendingRegistration{}, err
	}
	return p, nil
}
