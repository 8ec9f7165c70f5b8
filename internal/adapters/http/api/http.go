// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/barbell/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	AthleteDependencies
	AttemptDependencies
	ResultsDependencies
	ExportDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	athletesHandler *AthletesHandler
	attemptsHandler *AttemptsHandler
	resultsHandler  *ResultsHandler
	exportHandler   *ExportHandler

	limiter *IPRateLimiter
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:   NewHealthHandler(statsProvider),
		athletesHandler: NewAthletesHandler(deps),
		attemptsHandler: NewAttemptsHandler(deps),
		resultsHandler:  NewResultsHandler(deps),
		exportHandler:   NewExportHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.statsHandler = NewStatsHandler(statsProvider, s.limiter)
	return s
}

// Register attaches all HTTP routes to r. Middlewares are installed first,
// so r must not have routes yet.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Use(middleware.RequestID, middleware.Recoverer, Metrics)

	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Get("/stats", s.statsHandler.HandleStats)

	r.Route("/tournaments/{tid}", func(r chi.Router) {
		r.Post("/athletes", s.athletesHandler.HandleRegister)
		r.Get("/athletes", s.athletesHandler.HandleList)
		r.Delete("/athletes/{aid}", s.athletesHandler.HandleRemove)
		r.Post("/snapshot", s.athletesHandler.HandleImport)

		r.With(RateLimitMiddleware(s.limiter, "/tournaments/{tid}/attempts")).
			Post("/attempts", s.attemptsHandler.HandleSubmit)

		r.Get("/results", s.resultsHandler.HandleResults)
		r.Get("/teams", s.resultsHandler.HandleTeams)
		r.Get("/results.csv", s.exportHandler.HandleCSV)
		r.Get("/results.xlsx", s.exportHandler.HandleXLSX)
		r.Get("/teams.png", s.exportHandler.HandleTeamChart)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	})
}

// Handler returns a router with every route registered.
func (s *Server) Handler(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	s.Register(ctx, r)
	return r
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
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

// fail classifies err and writes it. Server errors are logged.
func fail(ctx context.Context, w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		logger.Get().Named("api").Error(ctx, "request failed", logger.Error(err))
	}
	writeError(w, status, code, err)
}

// maxBodyBytes bounds request bodies; snapshot imports are the largest.
const maxBodyBytes = 8 << 20

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}

func tournamentID(r *http.Request) string {
	return chi.URLParam(r, "tid")
}
