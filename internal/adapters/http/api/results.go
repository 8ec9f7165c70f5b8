package api

import (
	"context"
	"net/http"

	"github.com/okian/barbell/internal/domain/model"
	"github.com/okian/barbell/internal/domain/types"
)

// ResultsDependencies computes standings.
type ResultsDependencies interface {
	Standings(ctx context.Context, tournamentID string) (model.Standings, error)
}

// ResultsHandler serves computed standings as JSON.
type ResultsHandler struct {
	deps ResultsDependencies
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(deps ResultsDependencies) *ResultsHandler {
	return &ResultsHandler{deps: deps}
}

// HandleResults handles GET /tournaments/{tid}/results.
func (h *ResultsHandler) HandleResults(w http.ResponseWriter, r *http.Request) {
	st, err := h.deps.Standings(r.Context(), tournamentID(r))
	if err != nil {
		fail(r.Context(), w, Wrap("api.get_results", err))
		return
	}
	writeJSON(w, http.StatusOK, types.FromStandings(st))
}

// HandleTeams handles GET /tournaments/{tid}/teams.
func (h *ResultsHandler) HandleTeams(w http.ResponseWriter, r *http.Request) {
	st, err := h.deps.Standings(r.Context(), tournamentID(r))
	if err != nil {
		fail(r.Context(), w, Wrap("api.get_teams", err))
		return
	}
	writeJSON(w, http.StatusOK, types.FromTeams(st.Teams))
}
