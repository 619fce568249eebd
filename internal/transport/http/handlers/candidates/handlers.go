package candidateshandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"ideavote/internal/domain/auth"
	"ideavote/internal/domain/directory"
	"ideavote/internal/transport/http/api"
	"ideavote/internal/transport/http/middleware"
	"ideavote/internal/transport/http/shared"
)

type Directory interface {
	FindByEmployeeID(ctx context.Context, employeeID string) (directory.Employee, error)
	Search(ctx context.Context, excluding, query string) ([]directory.Employee, error)
}

type Votes interface {
	CountVotesFor(ctx context.Context, employeeID string) (int, error)
	ListVotesBy(ctx context.Context, voterID string) ([]string, error)
}

type Handler struct {
	Directory Directory
	Votes     Votes
}

func NewHandler(dir Directory, votes Votes) *Handler {
	return &Handler{Directory: dir, Votes: votes}
}

type candidateResponse struct {
	directory.Employee
	DisplayName  string `json:"displayName"`
	AlreadyVoted bool   `json:"alreadyVoted"`
	Votable      bool   `json:"votable"`
}

type meResponse struct {
	Employee      directory.Employee `json:"employee"`
	VotesReceived int                `json:"votesReceived"`
	VotedFor      []string           `json:"votedFor"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermCandidatesRead, nil)).Get("/me", h.handleMe)
	r.With(middleware.RequirePermission(auth.PermCandidatesRead, nil)).Get("/candidates", h.handleListCandidates)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	var (
		emp      directory.Employee
		received int
		votedFor []string
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		emp, err = h.Directory.FindByEmployeeID(ctx, principal.EmployeeID)
		return err
	})
	g.Go(func() error {
		var err error
		received, err = h.Votes.CountVotesFor(ctx, principal.EmployeeID)
		return err
	})
	g.Go(func() error {
		var err error
		votedFor, err = h.Votes.ListVotesBy(ctx, principal.EmployeeID)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, directory.ErrEmployeeNotFound) {
			api.Fail(w, http.StatusNotFound, "identity_not_found", "employee not found in organization", requestID)
			return
		}
		slog.Error("load profile failed", "employeeId", principal.EmployeeID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "profile_failed", "failed to load profile", requestID)
		return
	}
	if votedFor == nil {
		votedFor = []string{}
	}
	api.Success(w, meResponse{Employee: emp, VotesReceived: received, VotedFor: votedFor}, requestID)
}

func (h *Handler) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	candidates, err := h.Directory.Search(r.Context(), principal.EmployeeID, shared.Query(r))
	if err != nil {
		slog.Error("list candidates failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "candidates_failed", "failed to list candidates", requestID)
		return
	}
	votedFor, err := h.Votes.ListVotesBy(r.Context(), principal.EmployeeID)
	if err != nil {
		slog.Error("list votes failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "candidates_failed", "failed to list candidates", requestID)
		return
	}
	voted := make(map[string]struct{}, len(votedFor))
	for _, id := range votedFor {
		voted[id] = struct{}{}
	}

	out := make([]candidateResponse, 0, len(candidates))
	for _, emp := range candidates {
		_, already := voted[emp.EmployeeID]
		out = append(out, candidateResponse{
			Employee:     emp,
			DisplayName:  emp.DisplayName(),
			AlreadyVoted: already,
			Votable:      emp.Votable() && !already,
		})
	}
	api.Success(w, out, requestID)
}
