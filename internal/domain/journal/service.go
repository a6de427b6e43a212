package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"petpal/internal/domain/pets"
	"petpal/internal/platform/apperr"
	"petpal/internal/platform/logger"

	"github.com/google/uuid"
)

var ErrNotFound = apperr.New(apperr.ErrNotFound, "entry not found")

type PetAuthorizer interface {
	Authorize(ctx context.Context, petID, userID string, perm pets.Permission) (pets.Pet, error)
}

type Service struct {
	repo Repository
	pets PetAuthorizer
	log  logger.Logger
	now  func() time.Time
}

func NewService(repo Repository, petsAuth PetAuthorizer, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		repo: repo,
		pets: petsAuth,
		log:  log,
		now:  time.Now,
	}
}

// EntryInput: Date nil => hoy.
type EntryInput struct {
	Title   string
	Date    *time.Time
	Content string

	// FormErrors son errores de formato; se reportan después de autorizar.
	FormErrors apperr.FieldErrors
}

func (s *Service) ListByPet(ctx context.Context, petID, userID string) ([]Entry, error) {
	if _, err := s.pets.Authorize(ctx, petID, userID, pets.PermRecordsRead); err != nil {
		return nil, err
	}
	return s.repo.ListByPet(ctx, petID)
}

func (s *Service) Create(ctx context.Context, petID, userID string, in EntryInput) (Entry, error) {
	p, err := s.pets.Authorize(ctx, petID, userID, pets.PermRecordsWrite)
	if err != nil {
		return Entry{}, err
	}
	in, err = s.validate(in)
	if err != nil {
		return Entry{}, err
	}

	now := s.now().UTC()
	e := Entry{
		ID:        uuid.NewString(),
		PetID:     p.ID,
		Title:     in.Title,
		Date:      *in.Date,
		Content:   in.Content,
		CreatedBy: userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return Entry{}, fmt.Errorf("journal: create: %w", err)
	}
	return e, nil
}

// Read es también el GET del formulario de edición.
func (s *Service) Read(ctx context.Context, entryID, userID string) (Entry, error) {
	return s.authorized(ctx, entryID, userID, pets.PermRecordsRead)
}

func (s *Service) Update(ctx context.Context, entryID, userID string, in EntryInput) (Entry, error) {
	e, err := s.authorized(ctx, entryID, userID, pets.PermRecordsWrite)
	if err != nil {
		return Entry{}, err
	}
	if in.Date == nil {
		in.Date = &e.Date
	}
	in, err = s.validate(in)
	if err != nil {
		return Entry{}, err
	}

	e.Title = in.Title
	e.Date = *in.Date
	e.Content = in.Content
	e.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, e); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, fmt.Errorf("journal: update: %w", err)
	}
	return e, nil
}

func (s *Service) Delete(ctx context.Context, entryID, userID string) (Entry, error) {
	e, err := s.authorized(ctx, entryID, userID, pets.PermRecordsWrite)
	if err != nil {
		return Entry{}, err
	}
	if err := s.repo.Delete(ctx, e.ID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, fmt.Errorf("journal: delete: %w", err)
	}
	s.log.Info("journal entry deleted", map[string]any{"pet_id": e.PetID, "entry_id": e.ID, "by": userID})
	return e, nil
}

// authorized carga la entrada y chequea el permiso sobre su mascota.
func (s *Service) authorized(ctx context.Context, entryID, userID string, perm pets.Permission) (Entry, error) {
	entryID = strings.TrimSpace(entryID)
	if entryID == "" {
		return Entry{}, ErrNotFound
	}
	e, err := s.repo.GetByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, fmt.Errorf("journal: get: %w", err)
	}
	if _, err := s.pets.Authorize(ctx, e.PetID, userID, perm); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (s *Service) validate(in EntryInput) (EntryInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)

	fe := apperr.FieldErrors{}
	fe.Merge(in.FormErrors)
	if in.Title == "" {
		fe.Add("title", "required")
	}
	if in.Content == "" {
		fe.Add("content", "required")
	}
	if err := fe.Err(); err != nil {
		return in, err
	}
	if in.Date == nil {
		now := s.now().UTC()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		in.Date = &today
	}
	return in, nil
}
