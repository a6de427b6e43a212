// Package memkv guarda sesiones, registros pendientes y buckets de rate limit
// en memoria. Es el fallback cuando Redis no está configurado o no responde.
// Los vencidos se descartan al leerlos y en un barrido que corre al escribir,
// como mucho una vez por SweepInterval.
package memkv

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"petpal/internal/domain/identity"
	"petpal/internal/platform/apperr"
)

var ErrNotFound = apperr.ErrNotFound

const SweepInterval = time.Minute

type item struct {
	val       []byte
	expiresAt time.Time // cero = no vence
}

type Store struct {
	mu      sync.Mutex
	items   map[string]item
	sweptAt time.Time
	now     func() time.Time
}

func New() *Store {
	return &Store{
		items: map[string]item{},
		now:   time.Now,
	}
}

func (s *Store) set(key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("memkv: encode %s: %w", key, err)
	}
	now := s.now()
	it := item{val: b}
	if ttl > 0 {
		it.expiresAt = now.Add(ttl)
	}
	s.mu.Lock()
	s.items[key] = it
	if now.Sub(s.sweptAt) >= SweepInterval {
		s.sweepLocked(now)
	}
	s.mu.Unlock()
	return nil
}

func (s *Store) sweepLocked(now time.Time) {
	for k, it := range s.items {
		if !it.expiresAt.IsZero() && !now.Before(it.expiresAt) {
			delete(s.items, k)
		}
	}
	s.sweptAt = now
}

func (s *Store) get(key string, dst any, del bool) error {
	s.mu.Lock()
	it, ok := s.items[key]
	if ok && !it.expiresAt.IsZero() && !s.now().Before(it.expiresAt) {
		delete(s.items, key)
		ok = false
	}
	if ok && del {
		delete(s.items, key)
	}
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("memkv: %s: %w", key, ErrNotFound)
	}
	if err := json.Unmarshal(it.val, dst); err != nil {
		return fmt.Errorf("memkv: decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) del(key string) {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
}

// Len cuenta las claves no vencidas.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for _, it := range s.items {
		if it.expiresAt.IsZero() || now.Before(it.expiresAt) {
			n++
		}
	}
	return n
}

func (s *Store) Sessions() identity.SessionStore { return &sessionStore{s: s} }
func (s *Store) Pending() identity.PendingStore { return &pendingStore{s: s} }

type sessionStore struct{ s *Store }

func (r *sessionStore) Create(_ context.Context, sess identity.Session) error {
	ttl := sess.ExpiresAt.Sub(r.s.now())
	if sess.ExpiresAt.IsZero() {
		ttl = 0
	} else if ttl <= 0 {
		return nil
	}
	return r.s.set("session:"+sess.ID, sess, ttl)
}

func (r *sessionStore) Get(_ context.Context, id string) (identity.Session, error) {
	var sess identity.Session
	if err := r.s.get("session:"+id, &sess, false); err != nil {
		return identity.Session{}, err
	}
	return sess, nil
}

func (r *sessionStore) Delete(_ context.Context, id string) error {
	r.s.del("session:" + id)
	return nil
}

type pendingStore struct{ s *Store }

func (r *pendingStore) Put(_ context.Context, p identity.PendingRegistration, ttl time.Duration) error {
	return r.s.set("pending:"+p.ID, p, ttl)
}

func (r *pendingStore) Take(_ context.Context, id string) (identity.PendingRegistration, error) {
	var p identity.PendingRegistration
	if err := r.s.get("pending:"+id, &p, true); err != nil {
		return identity.PendingRegistration{}, err
	}
	return p, nil
}
