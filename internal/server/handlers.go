package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// decodeJSON decodes r's body into v, treating an empty body as a no-op
// rather than an error: kill-switch activation with no payload is a valid
// "use the defaults" request.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err == io.EOF {
		return nil
	}
	return err
}

// healthResponse mirrors manager.HealthReport for the wire, kept distinct so
// JSON field names and the internal struct can evolve independently.
type healthResponse struct {
	StrategiesRunning int    `json:"strategies_running"`
	StrategiesPaused  int    `json:"strategies_paused"`
	StrategiesStopped int    `json:"strategies_stopped"`
	BacktestsRunning  int    `json:"backtests_running"`
	BacktestsQueued   int    `json:"backtests_queued"`
	KillSwitchActive  bool   `json:"kill_switch_active"`
	KillSwitchReason  string `json:"kill_switch_reason,omitempty"`
	Goroutines        int    `json:"goroutines"`
	ProcessRSSBytes   uint64 `json:"process_rss_bytes"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.mgr.GetSystemHealth()
	s.writeJSON(w, http.StatusOK, healthResponse{
		StrategiesRunning: h.StrategiesRunning,
		StrategiesPaused:  h.StrategiesPaused,
		StrategiesStopped: h.StrategiesStopped,
		BacktestsRunning:  h.BacktestsRunning,
		BacktestsQueued:   h.BacktestsQueued,
		KillSwitchActive:  h.KillSwitchActive,
		KillSwitchReason:  h.KillSwitchReason,
		Goroutines:        h.Goroutines,
		ProcessRSSBytes:   h.ProcessRSSBytes,
	})
}

func (s *Server) handleListStrategies(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"strategies": s.mgr.ListStrategies()})
}

func (s *Server) handleStrategyStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	status, err := s.mgr.GetStrategyStatus(id)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(status)})
}

func (s *Server) handleStrategyStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	stats, err := s.mgr.GetStrategyStats(id)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleListBacktests(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"backtests": s.mgr.ListBacktests()})
}

func (s *Server) handleBacktestStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	status, err := s.mgr.GetBacktestStatus(id)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(status)})
}

func (s *Server) handleBacktestProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	progress, err := s.mgr.GetBacktestProgress(id)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"id": id, "progress": progress})
}

func (s *Server) handleKillSwitchStatus(w http.ResponseWriter, r *http.Request) {
	active, reason := s.mgr.IsKillSwitchActive()
	s.writeJSON(w, http.StatusOK, map[string]any{"active": active, "reason": reason})
}

type killSwitchActivateRequest struct {
	Reason         string `json:"reason"`
	CancelOrders   bool   `json:"cancel_orders"`
	ClosePositions bool   `json:"close_positions"`
}

func (s *Server) handleKillSwitchActivate(w http.ResponseWriter, r *http.Request) {
	var req killSwitchActivateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	result := s.mgr.ActivateKillSwitch(r.Context(), req.Reason, req.CancelOrders, req.ClosePositions)
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleKillSwitchDeactivate(w http.ResponseWriter, r *http.Request) {
	s.mgr.DeactivateKillSwitch()
	w.WriteHeader(http.StatusNoContent)
}
