package pets

import (
	"context"
	"io"
)

// OwnerOf expone el ownerUserID de una mascota.
// accessgrants lo usa sin importar este paquete.
func (s *Service) OwnerOf(ctx context.Context, petID string) (string, error) {
	p, err := s.GetByID(ctx, petID)
	if err != nil {
		return "", err
	}
	return p.OwnerUserID, nil
}

// AccessChecker resuelve permisos delegados. Lo implementa accessgrants.
type AccessChecker interface {
	HasScope(ctx context.Context, petID, userID, scope string) (bool, error)
}

type SpeciesChecker interface {
	CheckPair(ctx context.Context, speciesID, breedID string) error
}

type ImageStore interface {
	Save(original string, r io.Reader) (string, error)
	Remove(name string) error
}

// Image es una foto recibida en un formulario.
type Image struct {
	Filename string
	Body     io.Reader
}
