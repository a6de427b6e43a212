package journal

import (
	"net/http"
	"time"

	"petpal/internal/middleware"
	"petpal/internal/platform/apperr"
	"petpal/internal/platform/httpx"
	"petpal/internal/platform/logger"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, log logger.Logger) {
	if log == nil {
		log = logger.NewNop()
	}

	r.Get("/logs/{petID}", listEntriesHandler(svc, log))
	r.Post("/new_entry/{petID}", createEntryHandler(svc, log))
	r.Get("/read_entry/{entryID}", readEntryHandler(svc, log))

	// GET pre-carga el formulario
	r.Get("/edit_entry/{entryID}", readEntryHandler(svc, log))
	r.Post("/edit_entry/{entryID}", updateEntryHandler(svc, log))

	r.Post("/delete_entry/{entryID}", deleteEntryHandler(svc, log))
}

type entryResponse struct {
	ID        string    `json:"id"`
	PetID     string    `json:"pet_id"`
	Title     string    `json:"title"`
	Date      string    `json:"date"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toEntryResponse(e Entry) entryResponse {
	return entryResponse{
		ID:        e.ID,
		PetID:     e.PetID,
		Title:     e.Title,
		Date:      e.Date.Format(httpx.DateLayout),
		Content:   e.Content,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

// listEntriesHandler godoc
// @Summary Diario de la mascota
// @Description Entradas ordenadas por fecha, la más reciente primero. Requiere `records:read`.
// @Tags journal
// @Produce json
// @Param petID path string true "ID de la mascota"
// @Success 200 {array} entryResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /logs/{petID} [get]
func listEntriesHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListByPet(r.Context(), chi.URLParam(r, "petID"), middleware.UserID(r))
		if err != nil {
			httpx.Error(w, r, log, err)
			return
		}
		out := make([]entryResponse, 0, len(items))
		for _, e := range items {
			out = append(out, toEntryResponse(e))
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

// createEntryHandler godoc
// @Summary Nueva entrada
// @Description Título y contenido obligatorios; la fecha por defecto es hoy. Requiere `records:write`.
// @Tags journal
// @Accept x-www-form-urlencoded
// @Produce json
// @Param petID path string true "ID de la mascota"
// @Param title formData string true "Título"
// @Param content formData string true "Contenido"
// @Param date formData string false "YYYY-MM-DD"
// @Success 201 {object} entryResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Router /new_entry/{petID} [post]
func createEntryHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := readEntryForm(r)
		if err != nil {
			httpx.Error(w, r, log, err)
			return
		}
		e, err := svc.Create(r.Context(), chi.URLParam(r, "petID"), middleware.UserID(r), in)
		if err != nil {
			httpx.Error(w, r, log, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, toEntryResponse(e))
	}
}

func readEntryHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := svc.Read(r.Context(), chi.URLParam(r, "entryID"), middleware.UserID(r))
		if err != nil {
			httpx.Error(w, r, log, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toEntryResponse(e))
	}
}

func updateEntryHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := readEntryForm(r)
		if err != nil {
			httpx.Error(w, r, log, err)
			return
		}
		e, err := svc.Update(r.Context(), chi.URLParam(r, "entryID"), middleware.UserID(r), in)
		if err != nil {
			httpx.Error(w, r, log, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toEntryResponse(e))
	}
}

func deleteEntryHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := svc.Delete(r.Context(), chi.URLParam(r, "entryID"), middleware.UserID(r))
		if err != nil {
			httpx.Error(w, r, log, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"deleted": e.ID, "pet_id": e.PetID})
	}
}

func readEntryForm(r *http.Request) (EntryInput, error) {
	if err := httpx.ParseForm(r, 1<<20); err != nil {
		return EntryInput{}, err
	}
	fe := apperr.FieldErrors{}
	in := EntryInput{
		Title:      r.FormValue("title"),
		Content:    r.FormValue("content"),
		Date:       httpx.FormDate(r, "date", fe),
		FormErrors: fe,
	}
	return in, nil
}
