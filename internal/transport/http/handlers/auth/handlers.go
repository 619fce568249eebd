package authhandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ideavote/internal/domain/audit"
	"ideavote/internal/domain/auth"
	"ideavote/internal/domain/directory"
	"ideavote/internal/domain/identity"
	"ideavote/internal/transport/http/api"
	"ideavote/internal/transport/http/middleware"
	"ideavote/internal/transport/http/shared"
)

type EmailResolver interface {
	ResolveEmail(ctx context.Context, email string) (directory.Employee, error)
}

type AdminAuthenticator interface {
	Login(ctx context.Context, email, password, code string) (auth.Admin, error)
}

type Handler struct {
	Resolver EmailResolver
	OAuth    *identity.OAuthFlow
	Admins   AdminAuthenticator
	Audit    shared.AuditRecorder
	Secret   string
	TokenTTL time.Duration
}

func NewHandler(resolver EmailResolver, oauth *identity.OAuthFlow, admins AdminAuthenticator, recorder shared.AuditRecorder, secret string, ttl time.Duration) *Handler {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Handler{Resolver: resolver, OAuth: oauth, Admins: admins, Audit: recorder, Secret: secret, TokenTTL: ttl}
}

type loginRequest struct {
	Email string `json:"email"`
}

type callbackRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

type adminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	MFACode  string `json:"mfaCode"`
}

// RegisterRoutes mounts the public login endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.HandleLogin)
	r.Get("/auth/oauth/url", h.HandleOAuthURL)
	r.Post("/auth/oauth/callback", h.HandleOAuthCallback)
	r.Post("/admin/login", h.HandleAdminLogin)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Email("email", payload.Email)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	emp, err := h.Resolver.ResolveEmail(r.Context(), payload.Email)
	if err != nil {
		h.failIdentity(w, r, err)
		return
	}
	h.issueEmployeeToken(w, r, emp)
}

func (h *Handler) HandleOAuthURL(w http.ResponseWriter, r *http.Request) {
	authURL, state, err := h.OAuth.AuthURL()
	if errors.Is(err, identity.ErrOAuthDisabled) {
		api.Fail(w, http.StatusNotFound, "oauth_disabled", "oauth login is not configured", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		slog.Error("oauth state issue failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "oauth_error", "failed to start oauth login", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"authUrl": authURL, "state": state}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	var payload callbackRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Required("code", payload.Code, "is required")
	v.Required("state", payload.State, "is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	emp, err := h.OAuth.Callback(r.Context(), payload.Code, payload.State)
	if err != nil {
		h.failIdentity(w, r, err)
		return
	}
	h.issueEmployeeToken(w, r, emp)
}

func (h *Handler) HandleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var payload adminLoginRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	v := shared.NewValidator()
	v.Email("email", payload.Email)
	v.Required("password", payload.Password, "is required")
	if v.Reject(w, requestID) {
		return
	}

	admin, err := h.Admins.Login(r.Context(), payload.Email, payload.Password, payload.MFACode)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", requestID)
		return
	case errors.Is(err, auth.ErrMFARequired):
		api.Fail(w, http.StatusUnauthorized, "mfa_required", "mfa code required", requestID)
		return
	case errors.Is(err, auth.ErrMFAInvalid):
		api.Fail(w, http.StatusUnauthorized, "mfa_invalid", "invalid mfa code", requestID)
		return
	case err != nil:
		slog.Error("admin login failed", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "login_failed", "login failed", requestID)
		return
	}

	claims := auth.Claims{Email: admin.Email, Role: auth.RoleAdmin}
	claims.Subject = admin.ID
	token, err := auth.GenerateToken(h.Secret, claims, h.TokenTTL)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to issue token", requestID)
		return
	}
	shared.RecordAudit(r, h.Audit, admin.Email, audit.ActionAdminLogin, "admin", admin.ID, map[string]bool{"mfa": admin.MFAEnabled()})
	api.Success(w, map[string]any{"token": token, "admin": admin}, requestID)
}

func (h *Handler) issueEmployeeToken(w http.ResponseWriter, r *http.Request, emp directory.Employee) {
	token, err := auth.GenerateToken(h.Secret, auth.Claims{
		EmployeeID: emp.EmployeeID,
		Email:      emp.Email,
		Name:       emp.DisplayName(),
		Role:       auth.RoleEmployee,
	}, h.TokenTTL)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to issue token", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"token": token, "employee": emp}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) failIdentity(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, identity.ErrInvalidEmail):
		api.Fail(w, http.StatusBadRequest, "invalid_email", "email is invalid", requestID)
	case errors.Is(err, identity.ErrAccessDenied):
		api.Fail(w, http.StatusForbidden, "access_denied", "email domain is not allowed", requestID)
	case errors.Is(err, identity.ErrIdentityNotFound):
		api.Fail(w, http.StatusNotFound, "identity_not_found", "employee not found in organization", requestID)
	case errors.Is(err, identity.ErrOAuthDisabled):
		api.Fail(w, http.StatusNotFound, "oauth_disabled", "oauth login is not configured", requestID)
	case errors.Is(err, identity.ErrInvalidState):
		api.Fail(w, http.StatusBadRequest, "invalid_state", "oauth state is invalid or expired", requestID)
	case errors.Is(err, identity.ErrOAuthExchange):
		slog.Warn("oauth exchange failed", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusBadGateway, "oauth_exchange_failed", "could not verify the identity provider response", requestID)
	default:
		slog.Error("identity resolution failed", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "login_failed", "login failed", requestID)
	}
}
