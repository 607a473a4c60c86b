// Package httpapi exposes the aggregation pipeline over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/mailfold/mailfold/internal/auth"
	"github.com/mailfold/mailfold/internal/provider"
	"github.com/mailfold/mailfold/internal/thread"
)

// ThreadLister is the slice of the aggregation service the server uses.
type ThreadLister interface {
	ListThreads(ctx context.Context, accountID string, box provider.Mailbox, q thread.Query) (thread.Page, error)
}

// Server routes HTTP requests to the aggregation pipeline, picking the
// mailbox backend from the authenticated account's provider.
type Server struct {
	lister ThreadLister
	boxes  map[provider.Kind]provider.Mailbox
	keys   *auth.Keyring
	log    *slog.Logger
}

func NewServer(lister ThreadLister, boxes map[provider.Kind]provider.Mailbox, keys *auth.Keyring, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{lister: lister, boxes: boxes, keys: keys, log: log}
}

// Handler returns the server's route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/threads", s.handleThreads)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleThreads(w http.ResponseWriter, r *http.Request) {
	account, ok := s.authenticate(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing or invalid api key")
		return
	}

	box, ok := s.boxes[account.Provider]
	if !ok {
		s.log.ErrorContext(r.Context(), "no mailbox configured for provider",
			"provider", account.Provider, "account", account.ID)
		writeError(w, http.StatusBadGateway, "mail provider not configured")
		return
	}

	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := s.lister.ListThreads(r.Context(), account.ID, box, q)
	if err != nil {
		s.log.WarnContext(r.Context(), "thread listing failed",
			"account", account.ID, "provider", account.Provider, "error", err)
		status, msg := errorStatus(err)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (s *Server) authenticate(r *http.Request) (auth.Account, bool) {
	header := r.Header.Get("Authorization")
	key, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return auth.Account{}, false
	}
	return s.keys.Resolve(strings.TrimSpace(key))
}

func parseQuery(r *http.Request) (thread.Query, error) {
	params := r.URL.Query()
	q := thread.Query{
		Type:      thread.ParseType(params.Get("type")),
		LabelID:   params.Get("labelId"),
		FromEmail: params.Get("fromEmail"),
		Search:    params.Get("q"),
		PageToken: params.Get("nextPageToken"),
	}
	if raw := params.Get("limit"); raw != "" {
		// Rejected here because Normalize would turn an explicit 0 into the
		// default page size. The provider-specific maximum is checked later.
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return thread.Query{}, errors.New("limit must be a positive integer")
		}
		q.Limit = limit
	}
	return q, nil
}

// errorStatus maps the pipeline's error taxonomy onto HTTP statuses.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, thread.ErrInvalidQuery):
		return http.StatusBadRequest, "invalid query"
	case errors.Is(err, thread.ErrUnauthenticated):
		return http.StatusUnauthorized, "provider rejected credentials"
	case errors.Is(err, thread.ErrTimeout):
		return http.StatusGatewayTimeout, "request timed out"
	case errors.Is(err, thread.ErrProviderUnavailable):
		return http.StatusBadGateway, "mail provider unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
