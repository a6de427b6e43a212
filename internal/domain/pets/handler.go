package pets

import (
	"errors"
	"net/http"
	"time"

	"petpal/internal/middleware"
	"petpal/internal/platform/apperr"
	"petpal/internal/platform/httpx"
	"petpal/internal/platform/logger"

	"github.com/go-chi/chi/v5"
)

type HandlerOptions struct {
	Log            logger.Logger
	MaxUploadBytes int64
}

func RegisterRoutes(r chi.Router, svc *Service, opts HandlerOptions) {
	if opts.Log == nil {
		opts.Log = logger.NewNop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 6 << 20
	}

	// Home: mis mascotas
	r.Get("/", listPetsHandler(svc, opts))
	r.Post("/new_pet", createPetHandler(svc, opts))

	// Perfil de mascota (owner o delegado con pet:read)
	r.Get("/pets/{petID}", getPetHandler(svc, opts))

	// GET pre-carga el formulario; POST requiere pet:edit_profile
	r.Get("/edit_pet/{petID}", getPetHandler(svc, opts))
	r.Post("/edit_pet/{petID}", updatePetHandler(svc, opts))

	r.Post("/delete_pet/{petID}", deletePetHandler(svc, opts))
}

// PetResponse es la representación pública de una mascota.
type PetResponse struct {
	ID               string     `json:"id"`
	OwnerUserID      string     `json:"owner_user_id"`
	Name             string     `json:"name"`
	SpeciesID        string     `json:"species_id"`
	BreedID          string     `json:"breed_id,omitempty"`
	Sex              Sex        `json:"sex"`
	BirthDate        *string    `json:"birth_date,omitempty"`
	AdoptionDate     *string    `json:"adoption_date,omitempty"`
	Age              *int       `json:"age"`
	Sterilized       bool       `json:"sterilized"`
	MicrochipNumber  string     `json:"microchip_number,omitempty"`
	InsuranceCompany string     `json:"insurance_company,omitempty"`
	InsuranceNumber  string     `json:"insurance_number,omitempty"`
	ProfilePhoto     string     `json:"profile_photo,omitempty"`
	ProfilePhotoURL  string     `json:"profile_photo_url,omitempty"`
	Notes            string     `json:"notes"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (s *Service) Response(p Pet) PetResponse {
	out := PetResponse{
		ID:               p.ID,
		OwnerUserID:      p.OwnerUserID,
		Name:             p.Name,
		SpeciesID:        p.SpeciesID,
		BreedID:          p.BreedID,
		Sex:              p.Sex,
		BirthDate:        formatDate(p.BirthDate),
		AdoptionDate:     formatDate(p.AdoptionDate),
		Age:              s.AgeOf(p),
		Sterilized:       p.Sterilized,
		MicrochipNumber:  p.MicrochipNumber,
		InsuranceCompany: p.InsuranceCompany,
		InsuranceNumber:  p.InsuranceNumber,
		ProfilePhoto:     p.ProfilePhoto,
		Notes:            p.Notes,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
	if p.ProfilePhoto != "" {
		out.ProfilePhotoURL = "/uploads/" + p.ProfilePhoto
	}
	return out
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(httpx.DateLayout)
	return &s
}

func listPetsHandler(svc *Service, opts HandlerOptions) http.HandlerFunc {
	// Owner-only (sin mezclar shared)
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListByOwner(r.Context(), middleware.UserID(r))
		if err != nil {
			httpx.Error(w, r, opts.Log, err)
			return
		}

		out := make([]PetResponse, 0, len(items))
		for _, p := range items {
			out = append(out, svc.Response(p))
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

// createPetHandler godoc
// @Summary Registrar mascota
// @Description Crea una mascota del usuario de la sesión. Acepta foto de perfil opcional (png, jpg, jpeg, gif).
// @Tags pets
// @Accept multipart/form-data
// @Produce json
// @Param name formData string true "Nombre"
// @Param species formData string true "ID de especie"
// @Param breed formData string false "ID de raza (de esa especie)"
// @Param sex formData string true "M o F"
// @Param birth_date formData string false "YYYY-MM-DD"
// @Param adoption_date formData string false "YYYY-MM-DD"
// @Param sterilized formData bool false "Esterilizada"
// @Param microchip_number formData string false "Microchip"
// @Param pet_profile_photo formData file false "Foto de perfil"
// @Success 201 {object} PetResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse "microchip duplicado"
// @Router /new_pet [post]
func createPetHandler(svc *Service, opts HandlerOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, photo, closeFn, err := readProfileForm(w, r, opts.MaxUploadBytes)
		if err != nil {
			httpx.Error(w, r, opts.Log, err)
			return
		}
		defer closeFn()

		p, err := svc.Create(r.Context(), middleware.UserID(r), in, photo)
		if err != nil {
			httpx.Error(w, r, opts.Log, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, svc.Response(p))
	}
}

func getPetHandler(svc *Service, opts HandlerOptions) http.HandlerFunc {
	// Owner bypass, delegado requiere pet:read
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.Get(r.Context(), chi.URLParam(r, "petID"), middleware.UserID(r))
		if err != nil {
			httpx.Error(w, r, opts.Log, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, svc.Response(p))
	}
}

// updatePetHandler aplica permisos:
// - owner bypass
// - delegado requiere grant activo + scope pet:edit_profile
func updatePetHandler(svc *Service, opts HandlerOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, photo, closeFn, err := readProfileForm(w, r, opts.MaxUploadBytes)
		if err != nil {
			httpx.Error(w, r, opts.Log, err)
			return
		}
		defer closeFn()

		p, err := svc.Update(r.Context(), chi.URLParam(r, "petID"), middleware.UserID(r), in, photo)
		if err != nil {
			httpx.Error(w, r, opts.Log, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, svc.Response(p))
	}
}

// deletePetHandler godoc
// @Summary Borrar mascota
// @Description Solo el dueño. Borra en una transacción eventos, entradas, fotos y grants de la mascota; luego los archivos de imagen.
// @Tags pets
// @Produce json
// @Param petID path string true "ID de la mascota"
// @Success 200 {object} map[string]string
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /delete_pet/{petID} [post]
func deletePetHandler(svc *Service, opts HandlerOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		petID := chi.URLParam(r, "petID")
		if err := svc.Delete(r.Context(), petID, middleware.UserID(r)); err != nil {
			httpx.Error(w, r, opts.Log, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"deleted": petID})
	}
}

// readProfileForm parsea el formulario de mascota. closeFn libera la foto subida.
func readProfileForm(w http.ResponseWriter, r *http.Request, maxUpload int64) (ProfileInput, *Image, func(), error) {
	noop := func() {}
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload+(1<<20))
	if err := httpx.ParseForm(r, 1<<20); err != nil {
		return ProfileInput{}, nil, noop, err
	}

	fe := apperr.FieldErrors{}
	in := ProfileInput{
		Name:             r.FormValue("name"),
		SpeciesID:        r.FormValue("species"),
		BreedID:          r.FormValue("breed"),
		Sex:              r.FormValue("sex"),
		BirthDate:        httpx.FormDate(r, "birth_date", fe),
		AdoptionDate:     httpx.FormDate(r, "adoption_date", fe),
		Sterilized:       httpx.FormBool(r, "sterilized"),
		MicrochipNumber:  r.FormValue("microchip_number"),
		InsuranceCompany: r.FormValue("insurance_company"),
		InsuranceNumber:  r.FormValue("insurance_number"),
		Notes:            r.FormValue("notes"),
		FormErrors:       fe,
	}

	f, hdr, err := r.FormFile("pet_profile_photo")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return in, nil, noop, nil
		}
		fe.Add("pet_profile_photo", "could not read upload")
		return in, nil, noop, nil
	}
	if hdr.Filename == "" {
		_ = f.Close()
		return in, nil, noop, nil
	}
	return in, &Image{Filename: hdr.Filename, Body: f}, func() { _ = f.Close() }, nil
}
