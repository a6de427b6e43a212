package accessgrants

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"petpal/internal/domain/users"
	"petpal/internal/platform/apperr"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = apperr.ErrInvalidInput
	ErrForbidden    = apperr.ErrForbidden
	ErrNotFound     = apperr.New(apperr.ErrNotFound, "grant not found")
	ErrBadState     = apperr.New(apperr.ErrConflict, "grant was revoked")
	ErrPetNotFound  = apperr.New(apperr.ErrNotFound, "pet not found")
	ErrUnknownUser  = apperr.New(apperr.ErrNotFound, "no registered user with this email")
)

// PetOwnerLookup evita importar el paquete pets (rompe ciclos).
type PetOwnerLookup interface {
	OwnerOf(ctx context.Context, petID string) (string, error)
}

type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (users.User, error)
}

type Service struct {
	repo  Repository
	pets  PetOwnerLookup
	users UserLookup
	now   func() time.Time
}

func NewService(repo Repository, pets PetOwnerLookup, users UserLookup) *Service {
	return &Service{
		repo:  repo,
		pets:  pets,
		users: users,
		now:   time.Now,
	}
}

type InviteInput struct {
	PetID        string
	OwnerUserID  string
	GranteeEmail string
	Scopes       []Scope
}

// Invite comparte la mascota con un usuario registrado. Solo el dueño.
// Re-invitar al mismo delegado actualiza los scopes del grant vigente.
func (s *Service) Invite(ctx context.Context, in InviteInput) (Grant, error) {
	petID := strings.TrimSpace(in.PetID)
	ownerID := strings.TrimSpace(in.OwnerUserID)

	if err := s.requireOwner(ctx, petID, ownerID); err != nil {
		return Grant{}, err
	}

	email := users.NormalizeEmail(in.GranteeEmail)
	if email == "" {
		return Grant{}, apperr.Invalid("email", "required")
	}
	grantee, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Grant{}, ErrUnknownUser
		}
		return Grant{}, fmt.Errorf("accessgrants: lookup grantee: %w", err)
	}
	return s.invite(ctx, petID, ownerID, grantee.ID, in.Scopes)
}

func (s *Service) invite(ctx context.Context, petID, ownerID, granteeID string, requested []Scope) (Grant, error) {
	if petID == "" || ownerID == "" || granteeID == "" {
		return Grant{}, ErrInvalidInput
	}
	if ownerID == granteeID {
		return Grant{}, apperr.Invalid("email", "cannot share a pet with yourself")
	}

	// Scopes: si viene vacío, aplicamos default útil (ver perfil + ver registros).
	// Si viene con valores, los validamos estrictamente.
	var scopes []Scope
	if len(requested) == 0 {
		scopes = []Scope{ScopePetRead, ScopeRecordsRead}
	} else {
		var err error
		scopes, err = normalizeScopesStrict(requested)
		if err != nil {
			return Grant{}, err
		}
		if len(scopes) == 0 {
			return Grant{}, apperr.Invalid("scopes", "at least one scope is required")
		}
	}

	now := s.now()

	// 1) Buscar grants existentes para (petID, granteeID, ownerID)
	existing, allMatches, err := s.findLatestMatch(ctx, petID, ownerID, granteeID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return Grant{}, err
	}
	if err == nil && existing.Status != StatusRevoked {
		// 2) Deduplicar: revocar cualquier otro matching grant no-revoked
		if err := s.revokeOtherMatches(ctx, existing.ID, allMatches, now); err != nil {
			return Grant{}, err
		}

		// 3) Actualizar scopes del winner
		existing.Scopes = scopes
		existing.UpdatedAt = now
		if err := s.repo.Update(ctx, existing); err != nil {
			return Grant{}, err
		}
		return existing, nil
	}

	// Crear nuevo invite (también si el último estaba revocado)
	g := Grant{
		ID:            uuid.NewString(),
		PetID:         petID,
		OwnerUserID:   ownerID,
		GranteeUserID: granteeID,
		Scopes:        scopes,
		Status:        StatusInvited,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, g); err != nil {
		return Grant{}, err
	}
	return g, nil
}

// Accept activa una invitación del delegado y revoca cualquier otro grant
// vigente para el mismo (pet, owner, delegado).
func (s *Service) Accept(ctx context.Context, grantID, granteeUserID string) (Grant, error) {
	grantID = strings.TrimSpace(grantID)
	granteeUserID = strings.TrimSpace(granteeUserID)

	if grantID == "" || granteeUserID == "" {
		return Grant{}, ErrInvalidInput
	}

	g, err := s.getByID(ctx, grantID)
	if err != nil {
		return Grant{}, err
	}

	if g.GranteeUserID != granteeUserID {
		return Grant{}, ErrForbidden
	}
	if g.Status == StatusRevoked {
		return Grant{}, ErrBadState
	}

	// Idempotente
	if g.Status == StatusActive {
		return g, nil
	}

	now := s.now()
	g.Status = StatusActive
	g.UpdatedAt = now

	if err := s.repo.Update(ctx, g); err != nil {
		return Grant{}, err
	}

	_, matches, err := s.findLatestMatch(ctx, g.PetID, g.OwnerUserID, g.GranteeUserID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return Grant{}, err
	}
	if err := s.revokeOtherMatches(ctx, g.ID, matches, now); err != nil {
		return Grant{}, err
	}
	return g, nil
}

func (s *Service) Revoke(ctx context.Context, grantID, ownerUserID string) (Grant, error) {
	grantID = strings.TrimSpace(grantID)
	ownerUserID = strings.TrimSpace(ownerUserID)

	if grantID == "" || ownerUserID == "" {
		return Grant{}, ErrInvalidInput
	}

	g, err := s.getByID(ctx, grantID)
	if err != nil {
		return Grant{}, err
	}

	if g.OwnerUserID != ownerUserID {
		return Grant{}, ErrForbidden
	}

	// Idempotente
	if g.Status == StatusRevoked {
		return g, nil
	}

	now := s.now()
	g.Status = StatusRevoked
	g.UpdatedAt = now
	g.RevokedAt = &now

	if err := s.repo.Update(ctx, g); err != nil {
		return Grant{}, err
	}
	return g, nil
}

// ListByPet es para el dueño.
func (s *Service) ListByPet(ctx context.Context, petID, ownerUserID string) ([]Grant, error) {
	petID = strings.TrimSpace(petID)
	if err := s.requireOwner(ctx, petID, strings.TrimSpace(ownerUserID)); err != nil {
		return nil, err
	}
	return s.repo.ListByPet(ctx, petID)
}

func (s *Service) GetActiveGrant(ctx context.Context, petID, granteeUserID string) (Grant, error) {
	petID = strings.TrimSpace(petID)
	granteeUserID = strings.TrimSpace(granteeUserID)

	if petID == "" || granteeUserID == "" {
		return Grant{}, ErrInvalidInput
	}
	g, err := s.repo.GetActiveGrant(ctx, petID, granteeUserID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Grant{}, ErrNotFound
		}
		return Grant{}, err
	}
	return g, nil
}

func (s *Service) ListByGrantee(ctx context.Context, granteeUserID string) ([]Grant, error) {
	granteeUserID = strings.TrimSpace(granteeUserID)
	if granteeUserID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByGrantee(ctx, granteeUserID)
}

// HasScope implementa pets.AccessChecker: grant activo que incluya scope.
func (s *Service) HasScope(ctx context.Context, petID, userID, scope string) (bool, error) {
	g, err := s.GetActiveGrant(ctx, petID, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrInvalidInput) {
			return false, nil
		}
		return false, err
	}
	return HasScope(g, Scope(scope)), nil
}

// HasScope valida si el grant incluye un scope.
func HasScope(g Grant, scope Scope) bool {
	for _, s := range g.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

func (s *Service) requireOwner(ctx context.Context, petID, userID string) error {
	if petID == "" {
		return ErrPetNotFound
	}
	if userID == "" {
		return apperr.ErrUnauthorized
	}
	ownerID, err := s.pets.OwnerOf(ctx, petID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return ErrPetNotFound
		}
		return err
	}
	if ownerID != userID {
		return ErrForbidden
	}
	return nil
}

func (s *Service) getByID(ctx context.Context, id string) (Grant, error) {
	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Grant{}, ErrNotFound
		}
		return Grant{}, err
	}
	return g, nil
}

func (s *Service) findLatestMatch(ctx context.Context, petID, ownerID, granteeID string) (Grant, []Grant, error) {
	items, err := s.repo.ListByPet(ctx, petID)
	if err != nil {
		return Grant{}, nil, err
	}

	matches := make([]Grant, 0)
	var winner Grant
	hasWinner := false

	for _, g := range items {
		if g.PetID != petID || g.OwnerUserID != ownerID || g.GranteeUserID != granteeID {
			continue
		}
		matches = append(matches, g)

		if !hasWinner || g.UpdatedAt.After(winner.UpdatedAt) {
			winner = g
			hasWinner = true
		}
	}

	if !hasWinner {
		return Grant{}, matches, apperr.ErrNotFound
	}
	return winner, matches, nil
}

func (s *Service) revokeOtherMatches(ctx context.Context, winnerID string, matches []Grant, now time.Time) error {
	for _, g := range matches {
		if g.ID == "" || g.ID == winnerID {
			continue
		}
		if g.Status == StatusRevoked {
			continue
		}
		g.Status = StatusRevoked
		g.UpdatedAt = now
		g.RevokedAt = &now
		if err := s.repo.Update(ctx, g); err != nil {
			return fmt.Errorf("accessgrants: revoke duplicate %s: %w", g.ID, err)
		}
	}
	return nil
}

func normalizeScopesStrict(in []Scope) ([]Scope, error) {
	allowed := map[Scope]struct{}{
		ScopePetRead:        {},
		ScopePetEditProfile: {},
		ScopeRecordsRead:    {},
		ScopeRecordsWrite:   {},
	}

	seen := map[Scope]struct{}{}
	out := make([]Scope, 0, len(in))

	for _, raw := range in {
		s := Scope(strings.TrimSpace(string(raw)))
		if s == "" {
			continue
		}
		if _, ok := allowed[s]; !ok {
			return nil, apperr.Invalid("scopes", "unknown scope "+string(s))
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	return out, nil
}
