package pets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"petpal/internal/platform/apperr"
	"petpal/internal/platform/logger"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput   = apperr.ErrInvalidInput
	ErrNotFound       = apperr.New(apperr.ErrNotFound, "pet not found")
	ErrForbidden      = apperr.ErrForbidden
	ErrMicrochipTaken = apperr.New(apperr.ErrConflict, "microchip number already registered")
)

type Service struct {
	repo    Repository
	catalog SpeciesChecker
	files   ImageStore
	access  AccessChecker
	log     logger.Logger
	now     func() time.Time
}

func NewService(repo Repository, catalog SpeciesChecker, files ImageStore, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		repo:    repo,
		catalog: catalog,
		files:   files,
		log:     log,
		now:     time.Now,
	}
}

// SetAccessChecker conecta los grants después de construir ambos servicios.
func (s *Service) SetAccessChecker(a AccessChecker) {
	s.access = a
}

type ProfileInput struct {
	Name      string
	SpeciesID string
	BreedID   string
	Sex       string

	BirthDate    *time.Time
	AdoptionDate *time.Time
	Sterilized   bool

	MicrochipNumber  string
	InsuranceCompany string
	InsuranceNumber  string
	Notes            string

	// FormErrors son errores de formato del formulario; se reportan
	// junto con la validación, después de autorizar.
	FormErrors apperr.FieldErrors
}

func (s *Service) Create(ctx context.Context, ownerUserID string, in ProfileInput, photo *Image) (Pet, error) {
	if strings.TrimSpace(ownerUserID) == "" {
		return Pet{}, apperr.ErrUnauthorized
	}
	in, err := s.validate(ctx, in)
	if err != nil {
		return Pet{}, err
	}

	now := s.now()
	p := Pet{
		ID:          uuid.NewString(),
		OwnerUserID: ownerUserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	applyProfile(&p, in)

	if photo != nil {
		name, err := s.files.Save(photo.Filename, photo.Body)
		if err != nil {
			return Pet{}, err
		}
		p.ProfilePhoto = name
	}

	if err := s.repo.Create(ctx, p); err != nil {
		s.removeFile(p.ProfilePhoto)
		return Pet{}, s.mapRepoErr(err)
	}
	return p, nil
}

// Update reemplaza el perfil completo (el formulario de edición llega pre-cargado).
// Una foto nueva reemplaza a la anterior, que se borra después de guardar.
func (s *Service) Update(ctx context.Context, petID, userID string, in ProfileInput, photo *Image) (Pet, error) {
	p, err := s.Authorize(ctx, petID, userID, PermPetEditProfile)
	if err != nil {
		return Pet{}, err
	}
	in, err = s.validate(ctx, in)
	if err != nil {
		return Pet{}, err
	}

	applyProfile(&p, in)
	p.UpdatedAt = s.now()

	oldPhoto := p.ProfilePhoto
	if photo != nil {
		name, err := s.files.Save(photo.Filename, photo.Body)
		if err != nil {
			return Pet{}, err
		}
		p.ProfilePhoto = name
	}

	if err := s.repo.Update(ctx, p); err != nil {
		if p.ProfilePhoto != oldPhoto {
			s.removeFile(p.ProfilePhoto)
		}
		return Pet{}, s.mapRepoErr(err)
	}
	if p.ProfilePhoto != oldPhoto {
		s.removeFile(oldPhoto)
	}
	return p, nil
}

// Get devuelve la mascota si userID puede ver su perfil.
func (s *Service) Get(ctx context.Context, petID, userID string) (Pet, error) {
	return s.Authorize(ctx, petID, userID, PermPetRead)
}

// GetByID no verifica permisos; solo para uso entre módulos.
func (s *Service) GetByID(ctx context.Context, id string) (Pet, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Pet{}, ErrNotFound
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Pet{}, ErrNotFound
		}
		return Pet{}, err
	}
	return p, nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerUserID string) ([]Pet, error) {
	return s.repo.ListByOwner(ctx, ownerUserID)
}

// Delete borra la mascota y todo lo que cuelga de ella. Solo el dueño.
func (s *Service) Delete(ctx context.Context, petID, userID string) error {
	if _, err := s.Authorize(ctx, petID, userID, permOwner); err != nil {
		return err
	}
	files, err := s.repo.DeleteCascade(ctx, petID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("pets: delete cascade: %w", err)
	}
	for _, f := range files {
		s.removeFile(f)
	}
	s.log.Info("pet deleted", map[string]any{"pet_id": petID, "files": len(files)})
	return nil
}

// Authorize: mascota inexistente => 404; dueño siempre; delegado según grant activo => si no, 403.
func (s *Service) Authorize(ctx context.Context, petID, userID string, perm Permission) (Pet, error) {
	if strings.TrimSpace(userID) == "" {
		return Pet{}, apperr.ErrUnauthorized
	}
	p, err := s.GetByID(ctx, petID)
	if err != nil {
		return Pet{}, err
	}
	if p.OwnerUserID == userID {
		return p, nil
	}
	if perm == permOwner || s.access == nil {
		return Pet{}, ErrForbidden
	}
	ok, err := s.access.HasScope(ctx, p.ID, userID, string(perm))
	if err != nil {
		return Pet{}, fmt.Errorf("pets: check access: %w", err)
	}
	if !ok {
		return Pet{}, ErrForbidden
	}
	return p, nil
}

// AuthorizeOwner es Authorize para acciones no delegables.
func (s *Service) AuthorizeOwner(ctx context.Context, petID, userID string) (Pet, error) {
	return s.Authorize(ctx, petID, userID, permOwner)
}

// AgeOf calcula la edad a la fecha del servicio.
func (s *Service) AgeOf(p Pet) *int {
	return Age(p.BirthDate, s.now().UTC())
}

func (s *Service) validate(ctx context.Context, in ProfileInput) (ProfileInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.SpeciesID = strings.TrimSpace(in.SpeciesID)
	in.BreedID = strings.TrimSpace(in.BreedID)
	in.Sex = strings.ToUpper(strings.TrimSpace(in.Sex))
	in.MicrochipNumber = strings.TrimSpace(in.MicrochipNumber)
	in.InsuranceCompany = strings.TrimSpace(in.InsuranceCompany)
	in.InsuranceNumber = strings.TrimSpace(in.InsuranceNumber)
	in.Notes = strings.TrimSpace(in.Notes)

	fe := apperr.FieldErrors{}
	fe.Merge(in.FormErrors)
	if in.Name == "" {
		fe.Add("name", "required")
	}
	if in.SpeciesID == "" {
		fe.Add("species", "required")
	}
	switch Sex(in.Sex) {
	case SexMale, SexFemale:
	case "":
		fe.Add("sex", "required")
	default:
		fe.Add("sex", "must be M or F")
	}

	today := s.now().UTC()
	if in.BirthDate != nil && in.BirthDate.After(today) {
		fe.Add("birth_date", "cannot be in the future")
	}
	if in.BirthDate != nil && in.AdoptionDate != nil && in.AdoptionDate.Before(*in.BirthDate) {
		fe.Add("adoption_date", "cannot be before birth date")
	}
	if err := fe.Err(); err != nil {
		return in, err
	}

	if s.catalog != nil {
		if err := s.catalog.CheckPair(ctx, in.SpeciesID, in.BreedID); err != nil {
			return in, err
		}
	}
	return in, nil
}

func applyProfile(p *Pet, in ProfileInput) {
	p.Name = in.Name
	p.SpeciesID = in.SpeciesID
	p.BreedID = in.BreedID
	p.Sex = Sex(in.Sex)
	p.BirthDate = in.BirthDate
	p.AdoptionDate = in.AdoptionDate
	p.Sterilized = in.Sterilized
	p.MicrochipNumber = in.MicrochipNumber
	p.InsuranceCompany = in.InsuranceCompany
	p.InsuranceNumber = in.InsuranceNumber
	p.Notes = in.Notes
}

func (s *Service) mapRepoErr(err error) error {
	switch {
	case errors.Is(err, apperr.ErrConflict):
		return ErrMicrochipTaken
	case errors.Is(err, apperr.ErrNotFound):
		return ErrNotFound
	default:
		return fmt.Errorf("pets: store: %w", err)
	}
}

// removeFile nunca falla: un archivo que ya no está solo se loguea.
func (s *Service) removeFile(name string) {
	if name == "" || s.files == nil {
		return
	}
	if err := s.files.Remove(name); err != nil {
		fields := map[string]any{"file": name, "error": err}
		if errors.Is(err, os.ErrNotExist) {
			s.log.Warn("image already missing", fields)
			return
		}
		s.log.Error("remove image failed", fields)
	}
}
