package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/barbell/internal/domain/model"
)

// AttemptDependencies accepts judging submissions.
type AttemptDependencies interface {
	// SubmitJudging queues a judgement. It returns true for an already
	// accepted submission id.
	SubmitJudging(ctx context.Context, e model.JudgingEvent) (bool, error)

	// ApplyJudging stores a judgement before returning.
	ApplyJudging(ctx context.Context, e model.JudgingEvent) (model.Outcome, error)
}

// attemptRequest mirrors the body of POST /tournaments/{tid}/attempts.
type attemptRequest struct {
	SubmissionID   string `json:"submission_id"`
	AthleteID      string `json:"athlete_id"`
	Type           string `json:"type"`
	AttemptNum     int    `json:"attempt_num"`
	DeclaredWeight *int   `json:"declared_weight"`
	Status         string `json:"status"`
	UpdatedAt      string `json:"updated_at"` // RFC3339; empty means now
}

func (e attemptRequest) validate() error {
	switch {
	case strings.TrimSpace(e.SubmissionID) == "":
		return errors.New("missing submission_id")
	case strings.TrimSpace(e.AthleteID) == "":
		return errors.New("missing athlete_id")
	case strings.TrimSpace(e.Type) == "":
		return errors.New("missing type")
	case strings.TrimSpace(e.Status) == "":
		return errors.New("missing status")
	}
	if e.UpdatedAt != "" {
		if _, err := time.Parse(time.RFC3339, e.UpdatedAt); err != nil {
			return errors.New("invalid updated_at; must be RFC3339")
		}
	}
	return nil
}

func (e attemptRequest) event(tournamentID string) model.JudgingEvent {
	var updated time.Time
	if e.UpdatedAt != "" {
		updated, _ = time.Parse(time.RFC3339, e.UpdatedAt)
	}
	return model.JudgingEvent{
		SubmissionID: e.SubmissionID,
		TournamentID: tournamentID,
		Attempt: model.Attempt{
			AthleteID:      e.AthleteID,
			Discipline:     model.Discipline(e.Type),
			AttemptNum:     e.AttemptNum,
			DeclaredWeight: e.DeclaredWeight,
			Status:         model.Status(e.Status),
			UpdatedAt:      updated,
		},
	}
}

// AttemptsHandler handles judging submissions.
type AttemptsHandler struct {
	deps AttemptDependencies
}

// NewAttemptsHandler creates a new attempts handler.
func NewAttemptsHandler(deps AttemptDependencies) *AttemptsHandler {
	return &AttemptsHandler{deps: deps}
}

// HandleSubmit handles POST /tournaments/{tid}/attempts requests. With
// ?sync=true the judgement is stored before the response and the body
// reports the outcome.
func (h *AttemptsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_attempt"
	applyNow := false
	if v := r.URL.Query().Get("sync"); v != "" {
		var err error
		if applyNow, err = strconv.ParseBool(v); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("invalid sync; must be a boolean")))
			return
		}
	}
	var req attemptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	if applyNow {
		outcome, err := h.deps.ApplyJudging(r.Context(), req.event(tournamentID(r)))
		if err != nil {
			fail(r.Context(), w, Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusOK, ackResponse{Status: string(outcome), Duplicate: outcome == model.OutcomeDuplicate})
		return
	}

	duplicate, err := h.deps.SubmitJudging(r.Context(), req.event(tournamentID(r)))
	if err != nil {
		fail(r.Context(), w, Wrap(op, err))
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false})
}
