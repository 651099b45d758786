package api

import (
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-hassdriver/internal/configstore"
)

// handleListConfig lists the entry names in the config store.
func (s *Server) handleListConfig(w http.ResponseWriter, r *http.Request) {
	names, err := s.store.List(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"identity": s.store.Identity(),
		"entries":  names,
		"count":    len(names),
	})
}

// handleGetConfig returns one entry. With ?raw=true the stored contents
// are written verbatim instead of wrapped in JSON.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	e, err := s.store.Get(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if r.URL.Query().Get("raw") == "true" {
		w.Header().Set("Content-Type", mimeFor(e.ContentType))
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck // Best-effort write to response
		io.WriteString(w, e.Contents)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// handlePutConfig stores the request body as an entry. The content type
// comes from ?type=, then the Content-Type header, then the entry name's
// extension. Editing the device entry or its registry does not take
// effect until POST /reload.
func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	ct, err := requestContentType(r, name)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "request body too large")
			return
		}
		writeBadRequest(w, "reading body: "+err.Error())
		return
	}

	if err := s.store.Put(r.Context(), name, body, ct); err != nil {
		writeStoreError(w, err)
		return
	}
	e, err := s.store.Get(r.Context(), name)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// handleDeleteConfig removes an entry.
func (s *Server) handleDeleteConfig(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "*")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReload re-reads the device entry and registry.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.agent.Reload(r.Context()); err != nil {
		writeAgentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reloaded": true,
		"points":   len(s.agent.Points()),
	})
}

// requestContentType picks the content type for a config write.
func requestContentType(r *http.Request, name string) (configstore.ContentType, error) {
	if t := r.URL.Query().Get("type"); t != "" {
		return configstore.ParseContentType(t)
	}
	if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil {
		switch mt {
		case "application/json":
			return configstore.ContentJSON, nil
		case "text/csv":
			return configstore.ContentCSV, nil
		case "application/yaml", "application/x-yaml", "text/yaml":
			return configstore.ContentYAML, nil
		}
	}
	return configstore.ContentTypeFor(name), nil
}

func mimeFor(ct configstore.ContentType) string {
	switch ct {
	case configstore.ContentJSON:
		return "application/json"
	case configstore.ContentCSV:
		return "text/csv"
	case configstore.ContentYAML:
		return "application/yaml"
	}
	return "text/plain; charset=utf-8"
}
