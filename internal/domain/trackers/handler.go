package trackers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"petpal/internal/domain/trackers/details"
	"petpal/internal/middleware"
	"petpal/internal/platform/apperr"
	"petpal/internal/platform/httpx"
	"petpal/internal/platform/logger"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes monta los trackers. Las rutas con {petID} en la raíz se
// registran al final para que no tapen a las demás.
func RegisterRoutes(r chi.Router, svc *Service, log logger.Logger) {
	if log == nil {
		log = logger.NewNop()
	}

	r.Post("/add/{type}/{petID}", addEntryHandler(svc, log))

	for _, tr := range all {
		r.Get("/{petID}/"+tr.Slug, listEntriesHandler(svc, tr.Type, log))
	}
	r.Get("/{petID}/weight_graph", weightGraphHandler(svc, log))
	r.Post("/{petID}/entries/{entryID}/void", voidEntryHandler(svc, log))

	r.Get("/{petID}", trackersHomeHandler(svc, log))
}

type entryResponse struct {
	ID         string          `json:"id"`
	PetID      string          `json:"pet_id"`
	Type       Type            `json:"type"`
	Date       string          `json:"date"`
	NextDue    *string         `json:"next_due,omitempty"`
	Notes      string          `json:"notes"`
	Details    json.RawMessage `json:"details" swaggertype:"object"`
	Status     Status          `json:"status"`
	RecordedBy string          `json:"recorded_by"`
	RecordedAt time.Time       `json:"recorded_at"`
}

type summaryResponse struct {
	Type        Type            `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	ListURL     string          `json:"list_url"`
	Entries     []entryResponse `json:"entries"`
}

type dayResponse struct {
	Day      int      `json:"day"`
	Date     string   `json:"date"`
	WeightKg *float64 `json:"weight_kg"`
}

type weightChartResponse struct {
	PetID        string        `json:"pet_id"`
	Year         int           `json:"year"`
	Month        int           `json:"month"`
	MonthName    string        `json:"month_name"`
	Days         []dayResponse `json:"days"`
	Chart        *string       `json:"chart"`
	CurrentMonth int           `json:"current_month"`
	CurrentYear  int           `json:"current_year"`
}

func toEntryResponse(e CareEvent) entryResponse {
	out := entryResponse{
		ID:         e.ID,
		PetID:      e.PetID,
		Type:       e.Type,
		Date:       e.Date.Format(httpx.DateLayout),
		Notes:      e.Notes,
		Details:    e.Details,
		Status:     e.Status,
		RecordedBy: e.RecordedBy,
		RecordedAt: e.RecordedAt,
	}
	if len(out.Details) == 0 {
		out.Details = json.RawMessage("{}")
	}
	if e.NextDue != nil {
		s := e.NextDue.Format(httpx.DateLayout)
		out.NextDue = &s
	}
	return out
}

func toEntryResponses(items []CareEvent) []entryResponse {
	out := make([]entryResponse, 0, len(items))
	for _, e := range items {
		out = append(out, toEntryResponse(e))
	}
	return out
}

// trackersHomeHandler godoc
// @Summary Trackers de la mascota
// @Description Para cada tipo (peso, vacunas, desparasitación interna y externa, medicación) devuelve nombre, descripción y los últimos 10 registros activos.
// @Tags trackers
// @Produce json
// @Param petID path string true "ID de la mascota"
// @Success 200 {array} summaryResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /{petID} [get]
func trackersHomeHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		petID := chi.URLParam(r, "petID")
		items, err := svc.Summaries(r.Context(), petID, middleware.UserID(r))
		if err != nil {
			httpx.Error(w, r, log, err)
			return
		}
		out := make([]summaryResponse, 0, len(items))
		for _, s := range items {
			out = append(out, summaryResponse{
				Type:        s.Tracker.Type,
				Name:        s.Tracker.Name,
				Description: s.Tracker.Description,
				ListURL:     "/" + petID + "/" + s.Tracker.Slug,
				Entries:     toEntryResponses(s.Entries),
			})
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

// addEntryHandler godoc
// @Summary Agregar registro a un tracker
// @Description Campos comunes: date (obligatorio), next_dosis, notes. Según el tipo: weight_kg; vaccine_name, administered_by; product_name, dose; product_name, dosage, frequency.
// @Tags trackers
// @Accept x-www-form-urlencoded
// @Produce json
// @Param type path string true "Tipo" Enums(weight, vaccine, internal_deworming, external_deworming, medication)
// @Param petID path string true "ID de la mascota"
// @Param date formData string true "YYYY-MM-DD"
// @Param next_dosis formData string false "YYYY-MM-DD"
// @Param notes formData string false "Notas"
// @Success 201 {object} entryResponse
// @Failure 400 {object} httpx.ErrorResponse "tipo inválido / validación"
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /add/{type}/{petID} [post]
func addEntryHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		typ := chi.URLParam(r, "type")
		if _, ok := Lookup(typ); !ok {
			httpx.Error(w, r, log, ErrUnknownType)
			return
		}
		if err := httpx.ParseForm(r, 1<<20); err != nil {
			httpx.Error(w, r, log, err)
			return
		}

		fe := apperr.FieldErrors{}
		in := AddInput{
			Date:       httpx.FormDate(r, "date", fe),
			NextDue:    formNextDue(r, fe),
			Notes:      r.FormValue("notes"),
			FormErrors: fe,
		}
		payload, err := details.Parse(typ, r.Form, fe)
		if err != nil {
			httpx.Error(w, r, log, err)
			return
		}
		in.Details = payload

		e, err := svc.Add(r.Context(), chi.URLParam(r, "petID"), middleware.UserID(r), typ, in)
		if err != nil {
			httpx.Error(w, r, log, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, toEntryResponse(e))
	}
}

// El formulario manda next_dosis; next_due también se acepta.
func formNextDue(r *http.Request, fe apperr.FieldErrors) *time.Time {
	if strings.TrimSpace(r.FormValue("next_dosis")) != "" {
		return httpx.FormDate(r, "next_dosis", fe)
	}
	return httpx.FormDate(r, "next_due", fe)
}

// listEntriesHandler godoc
// @Summary Listado de un tracker
// @Description Registros activos del tipo, más recientes primero. Rutas: /{petID}/weights, /vaccinations, /internal_deworming, /external_deworming, /medications.
// @Tags trackers
// @Produce json
// @Param petID path string true "ID de la mascota"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Param q query string false "Texto en notas o detalle"
// @Param limit query int false "1-200, por defecto 50"
// @Success 200 {array} entryResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Router /{petID}/weights [get]
func listEntriesHandler(svc *Service, typ Type, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseListFilter(r)
		if err != nil {
			httpx.Error(w, r, log, err)
			return
		}
		items, err := svc.List(r.Context(), chi.URLParam(r, "petID"), middleware.UserID(r), typ, filter)
		if err != nil {
			httpx.Error(w, r, log, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toEntryResponses(items))
	}
}

// weightGraphHandler godoc
// @Summary Gráfico mensual de peso
// @Description SVG de línea con un punto por registro; los días sin dato cortan la línea. chart es null si el mes no tiene registros.
// @Tags trackers
// @Produce json
// @Param petID path string true "ID de la mascota"
// @Param month query int false "1-12, por defecto el mes actual"
// @Param year query int false "Por defecto el año actual"
// @Success 200 {object} weightChartResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /{petID}/weight_graph [get]
func weightGraphHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		month, err := httpx.QueryInt(r, "month", 0)
		if err != nil {
			httpx.Error(w, r, log, err)
			return
		}
		year, err := httpx.QueryInt(r, "year", 0)
		if err != nil {
			httpx.Error(w, r, log, err)
			return
		}

		petID := chi.URLParam(r, "petID")
		c, err := svc.WeightChart(r.Context(), petID, middleware.UserID(r), month, year)
		if err != nil {
			httpx.Error(w, r, log, err)
			return
		}

		days := make([]dayResponse, 0, len(c.Days))
		for _, d := range c.Days {
			days = append(days, dayResponse{Day: d.Date.Day(), Date: d.Date.Format(httpx.DateLayout), WeightKg: d.WeightKg})
		}
		httpx.WriteJSON(w, http.StatusOK, weightChartResponse{
			PetID:        petID,
			Year:         c.Year,
			Month:        int(c.Month),
			MonthName:    c.MonthName,
			Days:         days,
			Chart:        c.SVG,
			CurrentMonth: int(c.CurrentMonth),
			CurrentYear:  c.CurrentYear,
		})
	}
}

func voidEntryHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := svc.Void(r.Context(), chi.URLParam(r, "petID"), chi.URLParam(r, "entryID"), middleware.UserID(r))
		if err != nil {
			httpx.Error(w, r, log, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toEntryResponse(e))
	}
}

func parseListFilter(r *http.Request) (ListFilter, error) {
	limit, err := httpx.QueryInt(r, "limit", DefaultLimit)
	if err != nil {
		return ListFilter{}, err
	}
	filter := ListFilter{Limit: limit, Query: strings.TrimSpace(r.URL.Query().Get("q"))}

	fe := apperr.FieldErrors{}
	parse := func(key string) *time.Time {
		v := strings.TrimSpace(r.URL.Query().Get(key))
		if v == "" {
			return nil
		}
		t, err := time.Parse(httpx.DateLayout, v)
		if err != nil {
			fe.Add(key, "must be YYYY-MM-DD")
			return nil
		}
		return &t
	}
	filter.From = parse("from")
	filter.To = parse("to")
	return filter, fe.Err()
}
