package httpapi

import (
	"net/http"

	"github.com/roach88/scentbox/internal/model"
	"github.com/roach88/scentbox/internal/selection"
)

type selectionView struct {
	selection.State
	TotalPrice int                 `json:"total_price"`
	Items      []model.CatalogItem `json:"items"`
}

func (s *Server) selectionView() selectionView {
	return selectionView{
		State:      s.selection.State(),
		TotalPrice: s.selection.TotalPrice(),
		Items:      s.selection.SelectedItems(),
	}
}

func (s *Server) getSelection(w http.ResponseWriter, r *http.Request) {
	writeOK(w, s.selectionView())
}

type countRequest struct {
	Count int `json:"count"`
}

func (s *Server) putCount(w http.ResponseWriter, r *http.Request) {
	var req countRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if !s.selection.SetTargetCount(r.Context(), req.Count) {
		writeError(w, http.StatusUnprocessableEntity, "invalid_count", "count must be 4 or 8")
		return
	}
	writeOK(w, s.selectionView())
}

func (s *Server) putPrice(w http.ResponseWriter, r *http.Request) {
	var req model.PriceRange
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if !s.selection.SetPriceRange(r.Context(), req) {
		writeError(w, http.StatusUnprocessableEntity, "invalid_price_range", "invalid price range "+req.String())
		return
	}
	writeOK(w, s.selectionView())
}

type unitRequest struct {
	Unit string `json:"unit"`
}

func (s *Server) putUnit(w http.ResponseWriter, r *http.Request) {
	var req unitRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	unit, err := model.ParseUnitSize(req.Unit)
	if err != nil || !s.selection.SetUnitSize(r.Context(), unit) {
		writeError(w, http.StatusUnprocessableEntity, "invalid_unit", "unit must be one of 2ml, 5ml, 10ml")
		return
	}
	writeOK(w, s.selectionView())
}

type removeRequest struct {
	ID string `json:"id"`
}

func (s *Server) removeItem(w http.ResponseWriter, r *http.Request) {
	var req removeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if !s.selection.Remove(r.Context(), req.ID) {
		writeError(w, http.StatusNotFound, "not_selected", req.ID+" is not selected")
		return
	}
	writeOK(w, s.selectionView())
}

type swapRequest struct {
	OldID string `json:"old_id"`
	NewID string `json:"new_id"`
}

func (s *Server) swapItem(w http.ResponseWriter, r *http.Request) {
	var req swapRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if !s.selection.Swap(r.Context(), req.OldID, req.NewID) {
		writeError(w, http.StatusUnprocessableEntity, "swap_rejected", "cannot swap "+req.OldID+" for "+req.NewID)
		return
	}
	writeOK(w, s.selectionView())
}
