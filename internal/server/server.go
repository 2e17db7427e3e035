// Package server exposes timelines, profiles and snapshot history over a
// small JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/jfmyers9/borahae/internal/refresh"
	"github.com/jfmyers9/borahae/internal/store"
	"github.com/jfmyers9/borahae/pkg/lastfm"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
	shutdownTimeout     = 10 * time.Second
)

// Config holds server configuration
type Config struct {
	Addr     string        // Listen address
	CacheTTL time.Duration // Max age of a snapshot served without rebuilding
}

// Server serves the JSON API
type Server struct {
	config  Config
	service *refresh.Service
	logger  zerolog.Logger
}

// New creates a new Server
func New(cfg Config, service *refresh.Service, logger zerolog.Logger) *Server {
	return &Server{
		config:  cfg,
		service: service,
		logger:  logger.With().Str("component", "server").Logger(),
	}
}

// Handler returns the routed, middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/v1/users/{user}/timeline", s.handleTimeline)
	mux.HandleFunc("GET /api/v1/users/{user}/profile", s.handleProfile)
	mux.HandleFunc("GET /api/v1/users/{user}/history", s.handleHistory)
	mux.HandleFunc("/", s.handleNotFound)

	return s.chain().Then(mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.config.Addr).Msg("Starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorBody{Error: "route not found"})
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")

	mode := refresh.ModeFull
	switch m := r.URL.Query().Get("mode"); m {
	case "", string(refresh.ModeFull):
	case string(refresh.ModeSimple):
		mode = refresh.ModeSimple
	default:
		clientError(w, http.StatusBadRequest, fmt.Sprintf("unknown mode %q", m))
		return
	}

	if !wantsRefresh(r) && s.serveCached(w, r, user, mode.Kind()) {
		return
	}

	result, err := s.service.Timeline(r.Context(), user, mode)
	if err != nil {
		s.upstreamError(w, r, err)
		return
	}
	if _, err := s.service.SaveTimeline(r.Context(), result); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("Failed to save timeline snapshot")
	}

	w.Header().Set("X-Cache", "MISS")
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")

	if !wantsRefresh(r) && s.serveCached(w, r, user, store.KindProfile) {
		return
	}

	summary, err := s.service.Profile(r.Context(), user)
	if err != nil {
		s.upstreamError(w, r, err)
		return
	}
	if _, err := s.service.SaveProfile(r.Context(), summary); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("Failed to save profile snapshot")
	}

	w.Header().Set("X-Cache", "MISS")
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	query := r.URL.Query()

	kind := store.KindTimeline
	if k := query.Get("kind"); k != "" {
		kind = store.Kind(k)
		if !kind.Valid() {
			clientError(w, http.StatusBadRequest, fmt.Sprintf("unknown kind %q", k))
			return
		}
	}

	limit := defaultHistoryLimit
	if l := query.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			clientError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	st := s.service.Store()
	if st == nil {
		clientError(w, http.StatusNotFound, "no snapshot store configured")
		return
	}

	snapshots, err := st.History(r.Context(), user, kind, limit)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, snapshots)
}

// serveCached writes the newest fresh snapshot of kind and reports whether
// it did.
func (s *Server) serveCached(w http.ResponseWriter, r *http.Request, user string, kind store.Kind) bool {
	snap, err := s.service.Cached(r.Context(), user, kind, s.config.CacheTTL)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("Failed to read snapshot cache")
		return false
	}
	if snap == nil {
		return false
	}

	w.Header().Set("X-Cache", "HIT")
	w.Header().Set("Last-Modified", snap.CreatedAt.Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(snap.Payload)
	return true
}

func wantsRefresh(r *http.Request) bool {
	ok, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	return ok
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func clientError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	hlog.FromRequest(r).Error().Err(err).Msg("Request failed")
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: http.StatusText(http.StatusInternalServerError)})
}

// upstreamError maps a build failure to a response. Unknown users are 404,
// other Last.fm failures are 502 and an expired build deadline is 504.
func (s *Server) upstreamError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *lastfm.Error
	var fetchErr *lastfm.FetchError

	switch {
	case refresh.IsNotFound(err):
		clientError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, lastfm.ErrEmptyUsername):
		clientError(w, http.StatusBadRequest, "username cannot be empty")
	case errors.Is(err, context.DeadlineExceeded):
		hlog.FromRequest(r).Warn().Err(err).Msg("Build deadline exceeded")
		clientError(w, http.StatusGatewayTimeout, "timed out building result")
	case errors.As(err, &apiErr), errors.As(err, &fetchErr):
		hlog.FromRequest(r).Warn().Err(err).Msg("Last.fm request failed")
		clientError(w, http.StatusBadGateway, err.Error())
	default:
		s.serverError(w, r, err)
	}
}
