package species

import (
	"context"
	"errors"
	"strings"

	"petpal/internal/platform/apperr"
)

var ErrNotFound = apperr.ErrNotFound

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListSpecies(ctx context.Context) ([]Species, error) {
	return s.repo.ListSpecies(ctx)
}

// ListBreeds devuelve lista vacía para especies desconocidas.
func (s *Service) ListBreeds(ctx context.Context, speciesID string) ([]Breed, error) {
	speciesID = strings.TrimSpace(speciesID)
	if speciesID == "" {
		return []Breed{}, nil
	}
	out, err := s.repo.ListBreeds(ctx, speciesID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Breed{}
	}
	return out, nil
}

// CheckPair valida que la especie exista y que la raza (opcional) sea de esa especie.
// Los errores son de validación, con el campo del formulario.
func (s *Service) CheckPair(ctx context.Context, speciesID, breedID string) error {
	if _, err := s.repo.GetSpecies(ctx, speciesID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.Invalid("species", "unknown species")
		}
		return err
	}
	if breedID == "" {
		return nil
	}
	b, err := s.repo.GetBreed(ctx, breedID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.Invalid("breed", "unknown breed")
		}
		return err
	}
	if b.SpeciesID != speciesID {
		return apperr.Invalid("breed", "breed does not belong to the selected species")
	}
	return nil
}
