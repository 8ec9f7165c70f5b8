package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/barbell/internal/domain/model"
	"github.com/okian/barbell/pkg/logger"
)

// nonStandardWarning is sent when a weight class is not in the catalogue.
const nonStandardWarning = `299 - "non-standard weight class"`

// AthleteDependencies defines the registry operations behind the athlete routes.
type AthleteDependencies interface {
	RegisterAthlete(ctx context.Context, a model.Athlete) (model.Athlete, error)
	RemoveAthlete(ctx context.Context, tournamentID, athleteID string) error
	Athletes(ctx context.Context, tournamentID string) ([]model.Athlete, error)
	Import(ctx context.Context, tournamentID string, s model.Snapshot) error
}

// AthletesHandler handles athlete registry requests.
type AthletesHandler struct {
	deps AthleteDependencies
}

// NewAthletesHandler creates a new athletes handler.
func NewAthletesHandler(deps AthleteDependencies) *AthletesHandler {
	return &AthletesHandler{deps: deps}
}

// HandleRegister handles POST /tournaments/{tid}/athletes.
func (h *AthletesHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	const op = "api.register_athlete"
	var a model.Athlete
	if err := decodeJSON(r, &a); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	a.TournamentID = tournamentID(r)
	out, err := h.deps.RegisterAthlete(r.Context(), a)
	if err != nil {
		fail(r.Context(), w, Wrap(op, err))
		return
	}
	if !model.IsStandardClass(out.Gender, out.WeightClass) {
		logger.Get().Named("api").Warn(r.Context(), "athlete registered in a non-standard weight class",
			logger.String("tournament", out.TournamentID),
			logger.String("athlete", out.ID),
			logger.String("gender", string(out.Gender)),
			logger.String("weight_class", out.WeightClass),
		)
		w.Header().Set("Warning", nonStandardWarning)
	}
	writeJSON(w, http.StatusCreated, out)
}

// HandleList handles GET /tournaments/{tid}/athletes.
func (h *AthletesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	athletes, err := h.deps.Athletes(r.Context(), tournamentID(r))
	if err != nil {
		fail(r.Context(), w, Wrap("api.list_athletes", err))
		return
	}
	writeJSON(w, http.StatusOK, athletes)
}

// HandleRemove handles DELETE /tournaments/{tid}/athletes/{aid}.
func (h *AthletesHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.RemoveAthlete(r.Context(), tournamentID(r), chi.URLParam(r, "aid")); err != nil {
		fail(r.Context(), w, Wrap("api.remove_athlete", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type importResponse struct {
	Athletes int `json:"athletes"`
	Attempts int `json:"attempts"`
}

// HandleImport handles POST /tournaments/{tid}/snapshot, replacing the
// tournament with the posted athletes and attempts.
func (h *AthletesHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	const op = "api.import_snapshot"
	var snap model.Snapshot
	if err := decodeJSON(r, &snap); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.Import(r.Context(), tournamentID(r), snap); err != nil {
		fail(r.Context(), w, Wrap(op, err))
		return
	}
	nonStandard := 0
	for i := range snap.Athletes {
		if !model.IsStandardClass(snap.Athletes[i].Gender, snap.Athletes[i].WeightClass) {
			nonStandard++
		}
	}
	if nonStandard > 0 {
		logger.Get().Named("api").Warn(r.Context(), "snapshot has non-standard weight classes",
			logger.String("tournament", tournamentID(r)),
			logger.Int("athletes", nonStandard),
		)
		w.Header().Set("Warning", nonStandardWarning)
	}
	writeJSON(w, http.StatusOK, importResponse{Athletes: len(snap.Athletes), Attempts: len(snap.Attempts)})
}
