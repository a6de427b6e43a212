package photos

import (
	"net/http"
	"time"

	"petpal/internal/domain/pets"
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

	r.Get("/gallery/{petID}", listPhotosHandler(svc, opts))
	r.Post("/upload_photo/{petID}", uploadPhotoHandler(svc, opts))
	r.Post("/delete_photo/{photoID}", deletePhotoHandler(svc, opts))
}

type photoResponse struct {
	ID         string    `json:"id"`
	PetID      string    `json:"pet_id"`
	Title      string    `json:"title,omitempty"`
	Filename   string    `json:"filename"`
	URL        string    `json:"url"`
	UploadedOn string    `json:"uploaded_on"`
	CreatedAt  time.Time `json:"created_at"`
}

func toPhotoResponse(p Photo) photoResponse {
	return photoResponse{
		ID:         p.ID,
		PetID:      p.PetID,
		Title:      p.Title,
		Filename:   p.Filename,
		URL:        "/uploads/" + p.Filename,
		UploadedOn: p.UploadedOn.Format(httpx.DateLayout),
		CreatedAt:  p.CreatedAt,
	}
}

// listPhotosHandler godoc
// @Summary Galería de la mascota
// @Description Fotos de la mascota, las más nuevas primero. Requiere ser dueño o tener `records:read`.
// @Tags photos
// @Produce json
// @Param petID path string true "ID de la mascota"
// @Success 200 {array} photoResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /gallery/{petID} [get]
func listPhotosHandler(svc *Service, opts HandlerOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListByPet(r.Context(), chi.URLParam(r, "petID"), middleware.UserID(r))
		if err != nil {
			httpx.Error(w, r, opts.Log, err)
			return
		}
		out := make([]photoResponse, 0, len(items))
		for _, p := range items {
			out = append(out, toPhotoResponse(p))
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

// uploadPhotoHandler godoc
// @Summary Subir foto
// @Description Agrega una foto a la galería. Requiere `records:write`.
// @Tags photos
// @Accept multipart/form-data
// @Produce json
// @Param petID path string true "ID de la mascota"
// @Param title formData string false "Título"
// @Param image formData file true "Imagen (png, jpg, jpeg, gif)"
// @Success 201 {object} photoResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /upload_photo/{petID} [post]
func uploadPhotoHandler(svc *Service, opts HandlerOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, opts.MaxUploadBytes+(1<<20))
		if err := httpx.ParseForm(r, 1<<20); err != nil {
			httpx.Error(w, r, opts.Log, err)
			return
		}

		f, hdr, err := r.FormFile("image")
		if err != nil {
			httpx.Error(w, r, opts.Log, apperr.Invalid("image", "required"))
			return
		}
		defer f.Close()

		p, err := svc.Upload(r.Context(), chi.URLParam(r, "petID"), middleware.UserID(r),
			r.FormValue("title"), &pets.Image{Filename: hdr.Filename, Body: f})
		if err != nil {
			httpx.Error(w, r, opts.Log, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, toPhotoResponse(p))
	}
}

func deletePhotoHandler(svc *Service, opts HandlerOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.Delete(r.Context(), chi.URLParam(r, "photoID"), middleware.UserID(r))
		if err != nil {
			httpx.Error(w, r, opts.Log, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"deleted": p.ID, "pet_id": p.PetID})
	}
}
