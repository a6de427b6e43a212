package accessgrants

import (
	"net/http"
	"strings"
	"time"

	"petpal/internal/domain/pets"
	"petpal/internal/middleware"
	"petpal/internal/platform/httpx"
	"petpal/internal/platform/logger"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, petsSvc *pets.Service, log logger.Logger) {
	if log == nil {
		log = logger.NewNop()
	}

	// Owner actions scoped by pet
	r.Route("/pets/{petID}/grants", func(gr chi.Router) {
		gr.Post("/", inviteGrantHandler(svc, log))
		gr.Get("/", listGrantsByPetHandler(svc, log))
	})

	// Grantee/Owner actions scoped by grant id
	r.Route("/grants/{grantID}", func(gr chi.Router) {
		gr.Post("/accept", acceptGrantHandler(svc, log))
		gr.Post("/revoke", revokeGrantHandler(svc, log))
	})

	// Delegado: ver sus invitaciones / grants y las mascotas compartidas
	r.Get("/me/grants", listMyGrantsHandler(svc, log))
	r.Get("/me/pets", listMySharedPetsHandler(svc, petsSvc, log))
}

type grantResponse struct {
	ID            string     `json:"id"`
	PetID         string     `json:"pet_id"`
	OwnerUserID   string     `json:"owner_user_id"`
	GranteeUserID string     `json:"grantee_user_id"`
	Scopes        []Scope    `json:"scopes"`
	Status        Status     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
}

type sharedPetResponse struct {
	Pet    pets.PetResponse   `json:"pet"`
	Grant  sharedGrantSummary `json:"grant"`
	Scopes []Scope            `json:"scopes"`
}

type sharedGrantSummary struct {
	ID     string `json:"id"`
	Status Status `json:"status"`
}

// inviteGrantHandler godoc
// @Summary Compartir mascota
// @Description Solo el dueño. Invita a un usuario registrado (por email). `scopes` se repite o va separado por comas; vacío = pet:read + records:read.
// @Tags grants
// @Accept x-www-form-urlencoded
// @Produce json
// @Param petID path string true "ID de la mascota"
// @Param email formData string true "Email del delegado"
// @Param scopes formData []string false "pet:read, pet:edit_profile, records:read, records:write"
// @Success 201 {object} grantResponse
// @Failure 400 {object} httpx.ErrorResponse "scope desconocido"
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /pets/{petID}/grants [post]
func inviteGrantHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := httpx.ParseForm(r, 1<<20); err != nil {
			httpx.Error(w, r, log, err)
			return
		}

		g, err := svc.Invite(r.Context(), InviteInput{
			PetID:        chi.URLParam(r, "petID"),
			OwnerUserID:  middleware.UserID(r),
			GranteeEmail: r.FormValue("email"),
			Scopes:       parseScopes(r.Form["scopes"]),
		})
		if err != nil {
			httpx.Error(w, r, log, err)
			return
		}

		httpx.WriteJSON(w, http.StatusCreated, toGrantResponse(g))
	}
}

func listGrantsByPetHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListByPet(r.Context(), chi.URLParam(r, "petID"), middleware.UserID(r))
		if err != nil {
			httpx.Error(w, r, log, err)
			return
		}

		out := make([]grantResponse, 0, len(items))
		for _, g := range items {
			out = append(out, toGrantResponse(g))
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

func listMyGrantsHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// status=invited,active (CSV opcional)
		allowed := parseStatusFilter(r.URL.Query().Get("status"))

		items, err := svc.ListByGrantee(r.Context(), middleware.UserID(r))
		if err != nil {
			httpx.Error(w, r, log, err)
			return
		}

		out := make([]grantResponse, 0, len(items))
		for _, g := range items {
			if len(allowed) > 0 {
				if _, ok := allowed[g.Status]; !ok {
					continue
				}
			}
			out = append(out, toGrantResponse(g))
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

func acceptGrantHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := svc.Accept(r.Context(), chi.URLParam(r, "grantID"), middleware.UserID(r))
		if err != nil {
			httpx.Error(w, r, log, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toGrantResponse(g))
	}
}

func revokeGrantHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := svc.Revoke(r.Context(), chi.URLParam(r, "grantID"), middleware.UserID(r))
		if err != nil {
			httpx.Error(w, r, log, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toGrantResponse(g))
	}
}

func listMySharedPetsHandler(svc *Service, petsSvc *pets.Service, log logger.Logger) http.HandlerFunc {
	// Devuelve mascotas compartidas conmigo (grants active con pet:read)
	return func(w http.ResponseWriter, r *http.Request) {
		grants, err := svc.ListByGrantee(r.Context(), middleware.UserID(r))
		if err != nil {
			httpx.Error(w, r, log, err)
			return
		}

		seen := map[string]struct{}{}
		out := make([]sharedPetResponse, 0)

		for _, g := range grants {
			if g.Status != StatusActive || !HasScope(g, ScopePetRead) {
				continue
			}
			if _, ok := seen[g.PetID]; ok {
				continue
			}
			seen[g.PetID] = struct{}{}

			p, err := petsSvc.GetByID(r.Context(), g.PetID)
			if err != nil {
				log.Warn("grant without pet", map[string]any{"grant_id": g.ID, "pet_id": g.PetID, "error": err})
				continue
			}

			out = append(out, sharedPetResponse{
				Pet:    petsSvc.Response(p),
				Grant:  sharedGrantSummary{ID: g.ID, Status: g.Status},
				Scopes: g.Scopes,
			})
		}

		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

func toGrantResponse(g Grant) grantResponse {
	return grantResponse{
		ID:            g.ID,
		PetID:         g.PetID,
		OwnerUserID:   g.OwnerUserID,
		GranteeUserID: g.GranteeUserID,
		Scopes:        g.Scopes,
		Status:        g.Status,
		CreatedAt:     g.CreatedAt,
		UpdatedAt:     g.UpdatedAt,
		RevokedAt:     g.RevokedAt,
	}
}

// parseScopes acepta campos repetidos y CSV.
func parseScopes(values []string) []Scope {
	var out []Scope
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, Scope(p))
			}
		}
	}
	return out
}

func parseStatusFilter(raw string) map[Status]struct{} {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := map[Status]struct{}{}
	for _, p := range parts {
		s := Status(strings.TrimSpace(p))
		if s == "" {
			continue
		}
		out[s] = struct{}{}
	}
	return out
}
