package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/koustreak/syncmeta/internal/errs"
	"github.com/koustreak/syncmeta/internal/logger"
	"github.com/koustreak/syncmeta/internal/schema"
	"github.com/koustreak/syncmeta/internal/scope"
	"github.com/koustreak/syncmeta/internal/snapshot"
)

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type existsBody struct {
	Kind   string `json:"kind"`
	Name   string `json:"name"`
	Exists bool   `json:"exists"`
}

type clockBody struct {
	Clock int64  `json:"clock"`
	Time  string `json:"time"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.Ping(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) clock(w http.ResponseWriter, r *http.Request) {
	ts, err := s.backend.Scopes().CurrentServerTimestamp(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	body := clockBody{Clock: ts}
	if t, err := scope.ClockTime(ts); err == nil {
		body.Time = t.Format("2006-01-02T15:04:05.000")
	}
	s.writeJSON(w, http.StatusOK, body)
}

func (s *Server) describeTable(w http.ResponseWriter, r *http.Request) {
	opts := schema.DescribeOptions{}
	if v := r.URL.Query().Get("require_pk"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, r, errs.New(errs.ErrKindInvalidInput, "require_pk must be a boolean"))
			return
		}
		opts.RequirePrimaryKey = b
	}

	td, err := s.backend.Introspector().Describe(r.Context(), chi.URLParam(r, "name"), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snapshot.TableFrom(td))
}

func (s *Server) exists(w http.ResponseWriter, r *http.Request) {
	kind, name := chi.URLParam(r, "kind"), chi.URLParam(r, "name")
	in := s.backend.Introspector()

	var (
		ok  bool
		err error
	)
	switch kind {
	case "table":
		ok, err = in.TableExists(r.Context(), name)
	case "trigger":
		ok, err = in.TriggerExists(r.Context(), name)
	case "procedure":
		ok, err = in.ProcedureExists(r.Context(), name)
	case "type":
		ok, err = in.TypeExists(r.Context(), name)
	case "schema":
		ok, err = in.SchemaExists(r.Context(), name)
	default:
		err = errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("unknown object kind %q", kind))
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, existsBody{Kind: kind, Name: name, Exists: ok})
}

func (s *Server) listScopes(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		s.writeError(w, r, errs.New(errs.ErrKindInvalidInput, "query parameter name is required"))
		return
	}
	rows, err := s.backend.Scopes().ListScopes(r.Context(), name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]snapshot.Scope, 0, len(rows))
	for _, row := range rows {
		out = append(out, snapshot.ScopeFrom(row))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) getScope(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, errs.Wrap(errs.ErrKindInvalidInput, "invalid scope id", err))
		return
	}
	info, err := s.backend.Scopes().Scope(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snapshot.ScopeFrom(info))
}

// statusFor maps an error kind to the HTTP status reported for it.
func statusFor(err error) int {
	if errors.Is(err, schema.ErrTableNotFound) {
		return http.StatusNotFound
	}
	switch errs.KindOf(err) {
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindInvalidInput:
		return http.StatusBadRequest
	case errs.ErrKindPermissionDenied:
		return http.StatusForbidden
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	case errs.ErrKindConnectionFailed:
		return http.StatusServiceUnavailable
	case errs.ErrKindCatalogQuery:
		if errors.Is(err, schema.ErrNoPrimaryKey) {
			return http.StatusUnprocessableEntity
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).ErrorWith("request failed", err, map[string]interface{}{
			"path":   r.URL.Path,
			"status": status,
		})
	}
	s.writeJSON(w, status, errorBody{Error: err.Error(), Kind: errs.KindOf(err).String()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.ErrorWith("failed to encode response", err, nil)
	}
}
