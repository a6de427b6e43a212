package photos

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"petpal/internal/domain/pets"
	"petpal/internal/platform/apperr"
	"petpal/internal/platform/logger"

	"github.com/google/uuid"
)

var ErrNotFound = apperr.New(apperr.ErrNotFound, "photo not found")

// PetAuthorizer lo implementa pets.Service.
type PetAuthorizer interface {
	Authorize(ctx context.Context, petID, userID string, perm pets.Permission) (pets.Pet, error)
}

type Service struct {
	repo  Repository
	pets  PetAuthorizer
	files pets.ImageStore
	log   logger.Logger
	now   func() time.Time
}

func NewService(repo Repository, petsAuth PetAuthorizer, files pets.ImageStore, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		repo:  repo,
		pets:  petsAuth,
		files: files,
		log:   log,
		now:   time.Now,
	}
}

func (s *Service) ListByPet(ctx context.Context, petID, userID string) ([]Photo, error) {
	if _, err := s.pets.Authorize(ctx, petID, userID, pets.PermRecordsRead); err != nil {
		return nil, err
	}
	return s.repo.ListByPet(ctx, petID)
}

// Upload guarda el archivo y luego la fila. Si la fila falla se borra el archivo.
func (s *Service) Upload(ctx context.Context, petID, userID, title string, img *pets.Image) (Photo, error) {
	p, err := s.pets.Authorize(ctx, petID, userID, pets.PermRecordsWrite)
	if err != nil {
		return Photo{}, err
	}
	if img == nil || img.Body == nil || strings.TrimSpace(img.Filename) == "" {
		return Photo{}, apperr.Invalid("image", "required")
	}

	name, err := s.files.Save(img.Filename, img.Body)
	if err != nil {
		return Photo{}, err
	}

	now := s.now().UTC()
	ph := Photo{
		ID:         uuid.NewString(),
		PetID:      p.ID,
		Filename:   name,
		Title:      strings.TrimSpace(title),
		UploadedBy: userID,
		UploadedOn: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		CreatedAt:  now,
	}
	if err := s.repo.Create(ctx, ph); err != nil {
		s.removeFile(name)
		return Photo{}, fmt.Errorf("photos: create: %w", err)
	}
	s.log.Info("photo uploaded", map[string]any{"pet_id": p.ID, "photo_id": ph.ID})
	return ph, nil
}

// Delete borra la fila y después el archivo.
func (s *Service) Delete(ctx context.Context, photoID, userID string) (Photo, error) {
	ph, err := s.get(ctx, photoID)
	if err != nil {
		return Photo{}, err
	}
	if _, err := s.pets.Authorize(ctx, ph.PetID, userID, pets.PermRecordsWrite); err != nil {
		return Photo{}, err
	}
	if err := s.repo.Delete(ctx, ph.ID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Photo{}, ErrNotFound
		}
		return Photo{}, fmt.Errorf("photos: delete: %w", err)
	}
	s.removeFile(ph.Filename)
	return ph, nil
}

func (s *Service) get(ctx context.Context, id string) (Photo, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Photo{}, ErrNotFound
	}
	ph, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Photo{}, ErrNotFound
		}
		return Photo{}, fmt.Errorf("photos: get: %w", err)
	}
	return ph, nil
}

func (s *Service) removeFile(name string) {
	if err := s.files.Remove(name); err != nil {
		fields := map[string]any{"file": name, "error": err}
		if errors.Is(err, os.ErrNotExist) {
			s.log.Warn("image already missing", fields)
			return
		}
		s.log.Error("remove image failed", fields)
	}
}
