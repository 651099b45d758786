package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/gray-logic-hassdriver/internal/audit"
)

// handleListAudit returns executed point commands, newest first.
//
// Query parameters: point, action, status (success|failed), limit, offset.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "command audit is not enabled")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Device: s.agent.Device(),
		Point:  q.Get("point"),
		Action: q.Get("action"),
		Status: q.Get("status"),
	}
	var err error
	if v := q.Get("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
	}
	if v := q.Get("offset"); v != "" {
		if filter.Offset, err = strconv.Atoi(v); err != nil {
			writeBadRequest(w, "offset must be an integer")
			return
		}
	}

	res, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing command audit failed", "error", err)
		writeInternalError(w, "failed to list command audit")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
