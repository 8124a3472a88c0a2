package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"traveldesk/internal/budget"
	"traveldesk/internal/db"
	"traveldesk/internal/engine"
	"traveldesk/internal/events"
	"traveldesk/internal/metrics"
	"traveldesk/internal/models"
)

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	infos, err := s.store.ListProjects(r.Context())
	if err != nil {
		s.serverError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"projects": infos})
}

func (s *Server) handleSaveProject(w http.ResponseWriter, r *http.Request) {
	var p models.Project
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "invalid project payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Policy.WeekendPolicy == "" {
		p.Policy = s.cfg.DefaultPolicy()
	}
	if !p.Policy.WeekendPolicy.Valid() {
		http.Error(w, "unknown weekend policy "+string(p.Policy.WeekendPolicy), http.StatusBadRequest)
		return
	}
	for i := range p.Members {
		if p.Members[i].ID == "" {
			p.Members[i].ID = uuid.NewString()
		}
	}

	if err := s.store.SaveProject(r.Context(), &p); err != nil {
		s.serverError(w, err)
		return
	}
	s.bus.Publish(events.Event{Type: events.TypeProjectUpdated, Payload: p.ID})

	s.writeJSON(w, http.StatusOK, &p)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, _ := s.loadProject(w, r)
	if p == nil {
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteProject(r.Context(), id); err != nil {
		if errors.Is(err, db.ErrProjectNotFound) {
			http.Error(w, "project not found", http.StatusNotFound)
			return
		}
		s.serverError(w, err)
		return
	}
	s.bus.Publish(events.Event{Type: events.TypeProjectDeleted, Payload: id})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdatePolicy(w http.ResponseWriter, r *http.Request) {
	p, _ := s.loadProject(w, r)
	if p == nil {
		return
	}

	var policy models.Policy
	if err := json.NewDecoder(r.Body).Decode(&policy); err != nil {
		http.Error(w, "invalid policy payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if !policy.WeekendPolicy.Valid() {
		http.Error(w, "unknown weekend policy "+string(policy.WeekendPolicy), http.StatusBadRequest)
		return
	}

	p.Policy = policy
	if err := s.store.SaveProject(r.Context(), p); err != nil {
		s.serverError(w, err)
		return
	}
	s.bus.Publish(events.Event{Type: events.TypeProjectUpdated, Payload: p.ID})

	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	p, _ := s.loadProject(w, r)
	if p == nil {
		return
	}

	result, err := s.runProject(r, p)
	if err != nil {
		var invalid *engine.InvalidPolicyError
		if errors.As(err, &invalid) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		s.serverError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	result := s.cachedRun(w, r)
	if result == nil {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":    result.RunID,
		"timelines": result.Timelines,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	result := s.cachedRun(w, r)
	if result == nil {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": result.RunID,
		"fleet":  result.Fleet,
	})
}

// cachedRun serves the cached result when present, otherwise runs the engine
// and caches. A nil return means the response is already written.
func (s *Server) cachedRun(w http.ResponseWriter, r *http.Request) *RunResult {
	id := r.PathValue("id")
	if s.cache != nil {
		if result, ok := s.cache.GetRun(r.Context(), id); ok {
			return result
		}
	}

	p, _ := s.loadProject(w, r)
	if p == nil {
		return nil
	}
	result, err := s.runProject(r, p)
	if err != nil {
		s.serverError(w, err)
		return nil
	}
	return result
}

func (s *Server) runProject(r *http.Request, p *models.Project) (*RunResult, error) {
	start := time.Now()
	timelines, failures, err := engine.Run(p, s.logger)
	if err != nil {
		metrics.IncRunCompleted("error")
		return nil, err
	}
	metrics.ObserveRunDuration(time.Since(start))
	metrics.IncRunCompleted("ok")
	metrics.AddMemberFailures(len(failures))

	result := &RunResult{
		RunID:       uuid.NewString(),
		ProjectID:   p.ID,
		GeneratedAt: time.Now().UTC(),
		Fleet:       budget.SummarizeAll(timelines),
		Timelines:   timelines,
	}
	if len(failures) > 0 {
		result.Failures = make(map[string]string, len(failures))
		for memberID, ferr := range failures {
			result.Failures[memberID] = ferr.Error()
		}
	}

	if s.cache != nil {
		s.cache.SetRun(r.Context(), p.ID, result)
	}
	s.bus.Publish(events.Event{Type: events.TypeRunCompleted, Payload: result.RunID})

	return result, nil
}

// loadProject fetches the project from the path ID, writing the error
// response itself on failure.
func (s *Server) loadProject(w http.ResponseWriter, r *http.Request) (*models.Project, error) {
	id := r.PathValue("id")
	p, err := s.store.LoadProject(r.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrProjectNotFound) {
			http.Error(w, "project not found", http.StatusNotFound)
		} else {
			s.serverError(w, err)
		}
		return nil, err
	}
	return p, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("response encode failed")
	}
}

func (s *Server) serverError(w http.ResponseWriter, err error) {
	s.logger.Error().Err(err).Msg("request failed")
	http.Error(w, "internal error", http.StatusInternalServerError)
}
