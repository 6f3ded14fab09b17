// Package admin exposes the runtime scenario-selection API.
package admin

import (
	"encoding/json"
	"net/http"
	"time"

	"cadence/internal/scenario"
)

// Server serves the scenario selection endpoints over HTTP. Selection
// changes apply to the running test without a restart.
type Server struct {
	registry *scenario.Registry
	mux      *http.ServeMux
}

func NewServer(registry *scenario.Registry) *Server {
	s := &Server{
		registry: registry,
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("/scenarios", s.handleScenarios)
	return s
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

type stageView struct {
	Scenario string `json:"scenario"`
	Name     string `json:"name,omitempty"`
	Duration string `json:"duration"`
	Users    int    `json:"users"`
	RampUp   string `json:"ramp_up,omitempty"`
}

type selectionRequest struct {
	Selected []string `json:"selected"`
}

func (s *Server) handleScenarios(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleGet(w)
	case http.MethodPost:
		s.handlePost(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleGet(w http.ResponseWriter) {
	stages := s.registry.Stages()
	views := make([]stageView, 0, len(stages))
	for _, st := range stages {
		views = append(views, stageView{
			Scenario: st.Scenario,
			Name:     st.Name,
			Duration: st.Duration.String(),
			Users:    st.Users,
			RampUp:   formatRampUp(st.RampUp),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"active": s.registry.Active(),
		"stages": views,
	})
}

// handlePost replaces the active set wholesale. An empty selection is
// rejected and the previous selection stays in force.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := s.registry.SetActive(req.Selected); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"active":  s.registry.Active(),
	})
}

func formatRampUp(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   msg,
	})
}
