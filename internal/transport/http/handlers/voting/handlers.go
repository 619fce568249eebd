package votinghandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"ideavote/internal/domain/auth"
	"ideavote/internal/domain/directory"
	"ideavote/internal/domain/voting"
	"ideavote/internal/transport/http/api"
	"ideavote/internal/transport/http/middleware"
	"ideavote/internal/transport/http/shared"
)

type Sessions interface {
	Session(voterID string) *voting.Session
}

type Directory interface {
	FindByEmployeeID(ctx context.Context, employeeID string) (directory.Employee, error)
}

type Handler struct {
	Sessions  Sessions
	Directory Directory
}

func NewHandler(sessions Sessions, dir Directory) *Handler {
	return &Handler{Sessions: sessions, Directory: dir}
}

type startRequest struct {
	CandidateID string `json:"candidateId"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/voting/session", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermVote, nil))
		r.Get("/", h.handleGet)
		r.Post("/browse", h.handleBrowse)
		r.Post("/start", h.handleStart)
		r.Post("/cast", h.handleCast)
		r.Post("/reset", h.handleReset)
	})
}

func (h *Handler) session(r *http.Request) *voting.Session {
	principal, _ := middleware.GetPrincipal(r.Context())
	return h.Sessions.Session(principal.EmployeeID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.session(r).Snapshot(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleBrowse(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.session(r).Browse(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var payload startRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	v := shared.NewValidator()
	v.Required("candidateId", payload.CandidateID, "is required")
	if v.Reject(w, requestID) {
		return
	}

	sess := h.session(r)
	emp, err := h.Directory.FindByEmployeeID(r.Context(), strings.TrimSpace(payload.CandidateID))
	if errors.Is(err, directory.ErrEmployeeNotFound) {
		writeError(w, requestID, sess.Snapshot(), voting.ErrInvalidCandidate)
		return
	}
	if err != nil {
		slog.Error("candidate lookup failed", "candidateId", payload.CandidateID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "candidate_lookup_failed", "failed to load candidate", requestID)
		return
	}

	snap, err := sess.Start(voting.CandidateFrom(emp))
	if err != nil {
		writeError(w, requestID, snap, err)
		return
	}
	api.Success(w, snap, requestID)
}

func (h *Handler) handleCast(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	snap, err := h.session(r).Cast(r.Context())
	if err != nil {
		writeError(w, requestID, snap, err)
		return
	}
	principal, _ := middleware.GetPrincipal(r.Context())
	slog.Info("vote cast", "voterId", principal.EmployeeID, "candidateId", snap.Candidate.EmployeeID, "requestId", requestID)
	api.Success(w, snap, requestID)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.session(r).SelectAnother(), middleware.GetRequestID(r.Context()))
}

func writeError(w http.ResponseWriter, requestID string, snap voting.Snapshot, err error) {
	details := map[string]any{"session": snap}
	switch {
	case errors.Is(err, voting.ErrInvalidCandidate):
		api.FailWithDetails(w, http.StatusUnprocessableEntity, "invalid_candidate", "candidate cannot receive votes", details, requestID)
	case errors.Is(err, voting.ErrAlreadyVoted):
		api.FailWithDetails(w, http.StatusConflict, "already_voted", "you already voted for this candidate", details, requestID)
	case errors.Is(err, voting.ErrSessionExpired):
		api.FailWithDetails(w, http.StatusGone, "session_expired", "the voting window has closed", details, requestID)
	case errors.Is(err, voting.ErrLedgerWrite):
		slog.Warn("ledger write failed", "voterId", snap.VoterID, "err", err, "requestId", requestID)
		details["retryable"] = true
		api.FailWithDetails(w, http.StatusServiceUnavailable, "ledger_write_failed", "vote could not be recorded, try again", details, requestID)
	case errors.Is(err, voting.ErrNoActiveSession):
		api.FailWithDetails(w, http.StatusConflict, "no_active_session", "no candidate is selected", details, requestID)
	case errors.Is(err, voting.ErrSessionInProgress):
		api.FailWithDetails(w, http.StatusConflict, "session_in_progress", "finish or reset the current attempt first", details, requestID)
	default:
		slog.Error("voting session failed", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "voting_failed", "voting failed", requestID)
	}
}
