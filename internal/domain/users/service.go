package users

import (
	"context"
	"strings"

	"petpal/internal/platform/apperr"
)

var (
	ErrNotFound   = apperr.ErrNotFound
	ErrEmailTaken = apperr.New(apperr.ErrConflict, "this email is already registered")
)

// Service expone lecturas de usuarios a otros módulos.
// Las escrituras las hace identity contra el Repository.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return User{}, ErrNotFound
	}
	return s.repo.GetByEmail(ctx, email)
}
