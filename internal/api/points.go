package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-hassdriver/internal/agent"
)

// valueRequest is the body of value and default writes.
type valueRequest struct {
	Value any `json:"value"`
}

// pointValueResponse is returned by point reads and writes.
type pointValueResponse struct {
	Point string `json:"point"`
	Value any    `json:"value"`
}

// handleListPoints returns every configured point.
func (s *Server) handleListPoints(w http.ResponseWriter, _ *http.Request) {
	points := s.agent.Points()
	writeJSON(w, http.StatusOK, map[string]any{
		"device": s.agent.Device(),
		"points": points,
		"count":  len(points),
	})
}

// handleGetPoint returns one point's metadata and cached value.
func (s *Server) handleGetPoint(w http.ResponseWriter, r *http.Request) {
	info, err := s.agent.Point(chi.URLParam(r, "name"))
	if err != nil {
		writeAgentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleReadPoint reads a point live from the hub.
func (s *Server) handleReadPoint(w http.ResponseWriter, r *http.Request) {
	s.runCommand(w, r, chi.URLParam(r, "name"), agent.CommandMessage{Action: agent.ActionGet})
}

// handleWritePoint writes a point and returns the value sent to the hub.
func (s *Server) handleWritePoint(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.runCommand(w, r, chi.URLParam(r, "name"), agent.CommandMessage{Action: agent.ActionSet, Value: req.Value})
}

// handleRevertPoint restores a point to its default.
func (s *Server) handleRevertPoint(w http.ResponseWriter, r *http.Request) {
	s.runCommand(w, r, chi.URLParam(r, "name"), agent.CommandMessage{Action: agent.ActionRevert})
}

// handleCommand accepts the same body as the MQTT command topic. The
// point may be "_all".
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var cmd agent.CommandMessage
	if !decodeBody(w, r, &cmd) {
		return
	}
	s.runCommand(w, r, chi.URLParam(r, "name"), cmd)
}

// handleSetDefault records the value a later revert restores.
func (s *Server) handleSetDefault(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if !decodeBody(w, r, &req) {
		return
	}
	name := chi.URLParam(r, "name")
	if err := s.agent.SetDefault(name, req.Value); err != nil {
		writeAgentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"point": name, "default": req.Value})
}

// handleScrape reads every point now and returns the full scrape.
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.agent.Scrape(r.Context()))
}

// handleLastScrape returns the most recent scrape without touching the hub.
func (s *Server) handleLastScrape(w http.ResponseWriter, _ *http.Request) {
	last := s.agent.LastScrape()
	if last == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "no scrape yet")
		return
	}
	writeJSON(w, http.StatusOK, last)
}

// handleRevertAll reverts every writable point.
func (s *Server) handleRevertAll(w http.ResponseWriter, r *http.Request) {
	s.runCommand(w, r, agent.AllPoints, agent.CommandMessage{Action: agent.ActionRevert})
}

// runCommand executes cmd through the agent and writes the result.
func (s *Server) runCommand(w http.ResponseWriter, r *http.Request, point string, cmd agent.CommandMessage) {
	if cmd.ID == "" {
		cmd.ID, _ = r.Context().Value(ctxKeyRequestID).(string) //nolint:errcheck // empty is fine
	}
	cmd.Source = "api"
	if c := claimsFromContext(r.Context()); c != nil {
		cmd.Source = "api:" + c.Subject
	}

	value, err := s.agent.Execute(r.Context(), point, cmd)
	if err != nil {
		s.logger.Warn("api command failed", "point", point, "action", cmd.Action, "source", cmd.Source, "error", err)
		writeAgentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pointValueResponse{Point: point, Value: value})
}

// decodeBody decodes a JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			writeBadRequest(w, "request body is required")
			return false
		}
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
