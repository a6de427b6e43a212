package memory

import (
	"context"
	"time"

	"petpal/internal/domain/users"
)

type userRepo struct{ s *Store }

func (r *userRepo) Create(ctx context.Context, u users.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if u.ID == "" {
		return errIDRequired
	}
	for _, x := range r.s.users {
		if x.Email == u.Email {
			return users.ErrEmailTaken
		}
	}
	r.s.users[u.ID] = u
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (users.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return users.User{}, notFound("user", id)
	}
	return u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (users.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return users.User{}, notFound("user", email)
}

func (r *userRepo) UpdatePassword(ctx context.Context, id, hash string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return notFound("user", id)
	}
	u.PasswordHash = hash
	u.UpdatedAt = at
	r.s.users[id] = u
	return nil
}
