// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/dilemma/internal/app"
	"github.com/okian/dilemma/internal/adapters/jobs"
	"github.com/okian/dilemma/internal/adapters/repository"
	"github.com/okian/dilemma/internal/domain/model"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	RegisterPlayer(ctx context.Context, p model.Player) (model.Player, error)
	Players(ctx context.Context, ids []string) ([]model.Player, error)
	CreateTournament(ctx context.Context, name string, playerIDs []string) (model.Session, error)
	Tournament(ctx context.Context, id string) (model.Session, error)
}

// Server wires HTTP routes for the tournament API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	playersHandler     *PlayersHandler
	tournamentsHandler *TournamentsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		playersHandler:     NewPlayersHandler(deps),
		tournamentsHandler: NewTournamentsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /players", MetricsMiddleware(s.playersHandler.HandleCreate, "players"))
	mux.HandleFunc("GET /players/{ids}", MetricsMiddleware(s.playersHandler.HandleGet, "players"))
	mux.HandleFunc("POST /tournaments", MetricsMiddleware(s.tournamentsHandler.HandleCreate, "tournaments"))
	mux.HandleFunc("GET /tournaments/{id}", MetricsMiddleware(s.tournamentsHandler.HandleGet, "tournament"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service and store errors to a status code.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidPlayer),
		errors.Is(err, service.ErrInvalidTournament),
		errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrDuplicateRun), errors.Is(err, repository.ErrDuplicate):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, jobs.ErrBusy):
		writeError(w, http.StatusTooManyRequests, "busy", err)
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, jobs.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
