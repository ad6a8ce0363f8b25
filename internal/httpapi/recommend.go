package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/scentbox/internal/model"
	"github.com/roach88/scentbox/internal/recommend"
	"github.com/roach88/scentbox/internal/remote"
)

// loadRecommendations runs a load for the posted filters. A committed load
// reseeds the selection unless a newer load already did. An empty body
// loads with no filters.
func (s *Server) loadRecommendations(w http.ResponseWriter, r *http.Request) {
	var filters model.Filters
	if r.ContentLength != 0 {
		if err := decodeBody(r, &filters); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
	}

	res, err := s.loader.Load(r.Context(), filters)
	if err != nil {
		switch {
		case recommend.IsStale(err):
			writeError(w, http.StatusConflict, "stale_load", err.Error())
		case recommend.IsNoCandidates(err):
			writeError(w, http.StatusNotFound, "no_candidates", err.Error())
		case remote.IsAuthFailure(err):
			writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
		default:
			writeError(w, http.StatusBadGateway, "load_failed", err.Error())
		}
		return
	}

	if !s.selection.ApplyLoad(r.Context(), res.Generation, res.Items) {
		writeError(w, http.StatusConflict, "stale_load", "a newer load was applied first")
		return
	}
	writeOK(w, res)
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	item, ok := s.loader.FindItemByID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "item not in the current recommendations")
		return
	}
	writeOK(w, item)
}
