package httpapi

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/scentbox/internal/model"
)

func (s *Server) getSurvey(w http.ResponseWriter, r *http.Request) {
	writeOK(w, s.survey.Snapshot())
}

func (s *Server) resetSurvey(w http.ResponseWriter, r *http.Request) {
	s.survey.ResetSurvey(r.Context())
	writeOK(w, s.survey.Snapshot())
}

// putAnswer takes the raw JSON answer as the body: an integer rating or a
// string choice.
func (s *Server) putAnswer(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(chi.URLParam(r, "key"))
	if key == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "question key is required")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	value, err := model.UnmarshalAnswerValue(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_answer", err.Error())
		return
	}
	if !s.survey.SetAnswer(r.Context(), key, value) {
		writeError(w, http.StatusUnprocessableEntity, "answer_rejected", "answer is not valid for question "+key)
		return
	}
	writeOK(w, s.survey.Snapshot())
}

func (s *Server) submitSurvey(w http.ResponseWriter, r *http.Request) {
	submitted := s.survey.SubmitIfAuthenticated(r.Context())
	writeOK(w, map[string]bool{"submitted": submitted})
}

type progressRequest struct {
	LastQuestionKey string `json:"last_question_key"`
}

func (s *Server) putProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if !s.survey.SaveProgress(r.Context(), req.LastQuestionKey) {
		writeError(w, http.StatusUnprocessableEntity, "progress_rejected", "progress could not be saved")
		return
	}
	cp, _ := s.survey.Progress(r.Context())
	writeOK(w, cp)
}

func (s *Server) getProgress(w http.ResponseWriter, r *http.Request) {
	cp, ok := s.survey.Progress(r.Context())
	if !ok {
		writeError(w, http.StatusNotFound, "no_progress", "no resumable progress")
		return
	}
	writeOK(w, cp)
}

type authRequest struct {
	Authenticated *bool `json:"authenticated"`
}

// putAuth feeds an authentication observation to the survey engine's
// subscription loop.
func (s *Server) putAuth(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Authenticated == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "authenticated is required")
		return
	}
	if !s.survey.Observe(*req.Authenticated) {
		writeError(w, http.StatusServiceUnavailable, "shutting_down", "survey engine is stopped")
		return
	}
	writeJSON(w, http.StatusAccepted, Response{Status: "ok", Data: map[string]bool{"authenticated": *req.Authenticated}})
}
