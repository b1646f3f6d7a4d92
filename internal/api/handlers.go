package api

import (
	"errors"
	"net/http"

	"github.com/bankclean/bankclean/internal/engine"
)

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Running bool   `json:"running"`
	RunID   string `json:"run_id,omitempty"`
}

// RunAcceptedResponse is returned when a run is started.
type RunAcceptedResponse struct {
	Status string `json:"status"`
	RunID  string `json:"run_id"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	id, running := s.engine.Running()
	jsonResponse(w, http.StatusOK, HealthResponse{Status: "ok", Running: running, RunID: id})
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	st, err := s.engine.LoadState()
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, st)
}

func (s *Server) handleLastRun(w http.ResponseWriter, r *http.Request) {
	rep, err := s.engine.LastReport()
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rep == nil {
		errorResponse(w, http.StatusNotFound, "no run recorded")
		return
	}
	w.Header().Set(RunIDHeader, rep.RunID)
	jsonResponse(w, http.StatusOK, rep)
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	id, err := s.engine.Start(s.runCtx, s.callbacks())
	if errors.Is(err, engine.ErrRunning) {
		running, _ := s.engine.Running()
		runErrorResponse(w, http.StatusConflict, err.Error(), running)
		return
	}
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("run started", "run_id", id)
	w.Header().Set(RunIDHeader, id)
	jsonResponse(w, http.StatusAccepted, RunAcceptedResponse{Status: "started", RunID: id})
}

func (s *Server) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, s.engine.Schema)
}
