package species

import (
	"net/http"

	"petpal/internal/platform/httpx"
	"petpal/internal/platform/logger"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, log logger.Logger) {
	r.Get("/species", listSpeciesHandler(svc, log))
	r.Get("/get_breeds/{speciesID}", listBreedsHandler(svc, log))
}

type optionResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func listSpeciesHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListSpecies(r.Context())
		if err != nil {
			httpx.Error(w, r, log, err)
			return
		}
		out := make([]optionResponse, 0, len(items))
		for _, s := range items {
			out = append(out, optionResponse{ID: s.ID, Name: s.Name})
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

// listBreedsHandler godoc
// @Summary Razas de una especie
// @Description Alimenta el dropdown dependiente del formulario de mascota. Especie desconocida devuelve lista vacía.
// @Tags species
// @Produce json
// @Param speciesID path string true "ID de la especie"
// @Success 200 {array} optionResponse
// @Router /get_breeds/{speciesID} [get]
func listBreedsHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListBreeds(r.Context(), chi.URLParam(r, "speciesID"))
		if err != nil {
			httpx.Error(w, r, log, err)
			return
		}
		out := make([]optionResponse, 0, len(items))
		for _, b := range items {
			out = append(out, optionResponse{ID: b.ID, Name: b.Name})
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}
