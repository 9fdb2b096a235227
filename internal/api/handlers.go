// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ManuGH/uprightd/internal/history"
	"github.com/ManuGH/uprightd/internal/log"
	"github.com/ManuGH/uprightd/internal/monitor"
)

// maxBodyBytes bounds control request bodies; all accepted payloads are a
// few fields.
const maxBodyBytes = 4096

type statusResponse struct {
	Service       string         `json:"service"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	SoundEnabled  bool           `json:"sound_enabled"`
	Monitor       monitor.Status `json:"monitor"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sound, err := s.prefs.SoundEnabled()
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Warn().Err(err).Str(log.FieldEvent, "prefs.read_error").Msg("sound preference unavailable")
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Service:       "uprightd",
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		SoundEnabled:  sound,
		Monitor:       s.controller.Status(),
	})
}

func (s *Server) handleMonitorStart(w http.ResponseWriter, r *http.Request) {
	st, err := s.controller.StartMonitoring(r.Context())
	if err != nil {
		if errors.Is(err, monitor.ErrNotConfigured) {
			writeConflict(w, err)
			return
		}
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleMonitorStop(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.StopMonitoring())
}

type sensitivityRequest struct {
	Sensitivity *float64 `json:"sensitivity"`
}

func (s *Server) handleSensitivity(w http.ResponseWriter, r *http.Request) {
	var req sensitivityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Sensitivity == nil {
		writeError(w, errors.New("sensitivity is required"))
		return
	}

	st, err := s.controller.UpdateSensitivity(r.Context(), *req.Sensitivity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type soundResponse struct {
	Enabled bool `json:"enabled"`
}

type soundRequest struct {
	Enabled *bool `json:"enabled"`
}

func (s *Server) handleSoundGet(w http.ResponseWriter, _ *http.Request) {
	enabled, err := s.prefs.SoundEnabled()
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, soundResponse{Enabled: enabled})
}

func (s *Server) handleSoundPut(w http.ResponseWriter, r *http.Request) {
	var req soundRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Enabled == nil {
		writeError(w, errors.New("enabled is required"))
		return
	}

	if err := s.prefs.SetSoundEnabled(*req.Enabled); err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, soundResponse{Enabled: *req.Enabled})
}

type alertDTO struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	At        time.Time `json:"at"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 50, 500)
	alerts, err := s.history.RecentAlerts(r.Context(), limit)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	out := make([]alertDTO, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, toAlertDTO(a))
	}
	writeJSON(w, http.StatusOK, map[string][]alertDTO{"alerts": out})
}

func toAlertDTO(a history.Alert) alertDTO {
	return alertDTO{
		ID:        a.ID,
		SessionID: a.SessionID,
		At:        a.At,
		Kind:      a.Kind,
		Title:     a.Title,
		Body:      a.Body,
	}
}

type sessionDTO struct {
	ID          string     `json:"id"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	Sensitivity float64    `json:"sensitivity"`
	Interval    float64    `json:"interval_s"`
	Camera      int        `json:"camera"`
	StopReason  string     `json:"stop_reason,omitempty"`
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 20, 200)
	sessions, err := s.history.Sessions(r.Context(), limit)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	out := make([]sessionDTO, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, toSessionDTO(sess))
	}
	writeJSON(w, http.StatusOK, map[string][]sessionDTO{"sessions": out})
}

func toSessionDTO(s history.Session) sessionDTO {
	dto := sessionDTO{
		ID:          s.ID,
		StartedAt:   s.StartedAt,
		Sensitivity: s.Sensitivity,
		Interval:    s.Interval,
		Camera:      s.Camera,
		StopReason:  s.StopReason,
	}
	if !s.EndedAt.IsZero() {
		ended := s.EndedAt
		dto.EndedAt = &ended
	}
	return dto
}

// decodeJSON strictly decodes a small JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}

// queryLimit parses the optional limit parameter, clamped to [1, max].
func queryLimit(r *http.Request, def, max int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
