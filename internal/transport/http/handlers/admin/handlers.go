package adminhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"ideavote/internal/domain/audit"
	"ideavote/internal/domain/auth"
	"ideavote/internal/domain/directory"
	"ideavote/internal/domain/importer"
	"ideavote/internal/domain/leaderboard"
	"ideavote/internal/platform/qrcode"
	"ideavote/internal/transport/http/api"
	"ideavote/internal/transport/http/middleware"
	"ideavote/internal/transport/http/shared"
)

const importEndpoint = "employees.import"

type EmployeeLister interface {
	ListAll(ctx context.Context) ([]directory.Employee, error)
}

type Importer interface {
	Import(ctx context.Context, filename string, r io.Reader) (importer.Report, error)
}

type BoardSource interface {
	Current(ctx context.Context) (leaderboard.Board, error)
}

type IdempotencyStore interface {
	Check(ctx context.Context, actor, endpoint, key, requestHash string) (json.RawMessage, bool, error)
	Save(ctx context.Context, actor, endpoint, key, requestHash string, response json.RawMessage) error
}

type Handler struct {
	Employees     EmployeeLister
	Importer      Importer
	Board         BoardSource
	Idempotency   IdempotencyStore
	Audit         shared.AuditRecorder
	PublicBaseURL string
}

func NewHandler(employees EmployeeLister, imp Importer, board BoardSource, idem IdempotencyStore, recorder shared.AuditRecorder, publicBaseURL string) *Handler {
	return &Handler{
		Employees:     employees,
		Importer:      imp,
		Board:         board,
		Idempotency:   idem,
		Audit:         recorder,
		PublicBaseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermEmployeesRead, nil)).Get("/employees", h.handleListEmployees)
	r.With(middleware.RequirePermission(auth.PermEmployeesImport, nil)).Post("/employees/import", h.handleImport)
	r.With(middleware.RequirePermission(auth.PermEmployeesImport, nil)).Get("/employees/template", h.handleTemplate)
	r.With(middleware.RequirePermission(auth.PermLeaderboardExport, nil)).Get("/leaderboard.pdf", h.handleLeaderboardPDF)
	r.With(middleware.RequirePermission(auth.PermQRGenerate, nil)).Get("/qr.png", h.handleQR)
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Employees.ListAll(r.Context())
	if err != nil {
		slog.Error("list employees failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "employees_failed", "failed to list employees", middleware.GetRequestID(r.Context()))
		return
	}
	page, total := shared.Window(directory.Filter(employees, shared.Query(r)), shared.ParsePagination(r, 100, 1000))
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, page, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())

	filename, data, err := readUpload(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", importer.ErrFileTooLarge.Error(), requestID)
			return
		}
		api.Fail(w, http.StatusBadRequest, "invalid_upload", err.Error(), requestID)
		return
	}

	key := middleware.IdempotencyKey(r)
	hash := middleware.RequestHash(append([]byte(filename+"\x00"), data...))
	if h.Idempotency != nil && key != "" {
		stored, found, err := h.Idempotency.Check(r.Context(), principal.Subject, importEndpoint, key, hash)
		if errors.Is(err, middleware.ErrIdempotencyConflict) {
			api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key was used for a different upload", requestID)
			return
		}
		if err != nil {
			slog.Warn("idempotency check failed", "err", err, "requestId", requestID)
		}
		if found {
			w.Header().Set("Idempotent-Replay", "true")
			api.Success(w, stored, requestID)
			return
		}
	}

	report, err := h.Importer.Import(r.Context(), filename, bytes.NewReader(data))
	if err != nil {
		writeImportError(w, requestID, report, err)
		return
	}
	slog.Info("employees imported", "file", filename, "accepted", report.Accepted, "removed", report.Result.Removed, "requestId", requestID)

	if h.Idempotency != nil && key != "" {
		if payload, err := json.Marshal(report); err == nil {
			if err := h.Idempotency.Save(r.Context(), principal.Subject, importEndpoint, key, hash, payload); err != nil {
				slog.Warn("idempotency save failed", "err", err, "requestId", requestID)
			}
		}
	}
	shared.RecordAudit(r, h.Audit, principal.Email, audit.ActionEmployeesImport, "employees", filename, map[string]any{
		"format":   report.Format,
		"accepted": report.Accepted,
		"skipped":  len(report.Skipped),
		"inserted": report.Result.Inserted,
		"updated":  report.Result.Updated,
		"removed":  report.Result.Removed,
	})
	api.Success(w, report, requestID)
}

// readUpload accepts a multipart form with a "file" part or a raw body named
// by the filename query parameter.
func readUpload(r *http.Request) (string, []byte, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return "", nil, err
			}
			if errors.Is(err, http.ErrMissingFile) {
				return "", nil, errors.New("multipart field \"file\" is required")
			}
			return "", nil, err
		}
		defer func(f multipart.File) { _ = f.Close() }(file)
		data, err := io.ReadAll(file)
		return filepath.Base(header.Filename), data, err
	}

	filename := strings.TrimSpace(r.URL.Query().Get("filename"))
	if filename == "" {
		return "", nil, errors.New("filename query parameter is required for raw uploads")
	}
	data, err := io.ReadAll(r.Body)
	return filepath.Base(filename), data, err
}

func writeImportError(w http.ResponseWriter, requestID string, report importer.Report, err error) {
	switch {
	case errors.Is(err, importer.ErrUnsupportedFormat):
		api.Fail(w, http.StatusUnsupportedMediaType, "unsupported_format", err.Error(), requestID)
	case errors.Is(err, importer.ErrFileTooLarge):
		api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", err.Error(), requestID)
	case errors.Is(err, importer.ErrEmptyFile),
		errors.Is(err, importer.ErrMissingColumns),
		errors.Is(err, importer.ErrNoValidRows),
		errors.Is(err, directory.ErrEmptyDirectory),
		errors.Is(err, directory.ErrDuplicateEmail):
		api.FailWithDetails(w, http.StatusUnprocessableEntity, "invalid_import", err.Error(), report, requestID)
	default:
		slog.Error("employee import failed", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "import_failed", "import failed", requestID)
	}
}

func (h *Handler) handleTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=employees-template.csv")
	if _, err := w.Write(importer.Template()); err != nil {
		slog.Warn("template write failed", "err", err)
	}
}

func (h *Handler) handleLeaderboardPDF(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	board, err := h.Board.Current(r.Context())
	if err != nil {
		slog.Error("leaderboard load failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "leaderboard_failed", "failed to load leaderboard", requestID)
		return
	}
	var buf bytes.Buffer
	title := "Idea Leaderboard " + board.GeneratedAt.Format("2006-01-02 15:04 MST")
	if err := leaderboard.WritePDF(&buf, title, board); err != nil {
		slog.Error("leaderboard pdf failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "pdf_failed", "failed to render leaderboard", requestID)
		return
	}

	principal, _ := middleware.GetPrincipal(r.Context())
	shared.RecordAudit(r, h.Audit, principal.Email, audit.ActionLeaderboardPDF, "leaderboard", "", map[string]int{"entries": len(board.Entries), "totalVotes": board.TotalVotes})

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=leaderboard-%s.pdf", board.GeneratedAt.Format("20060102-1504")))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) handleQR(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	content := strings.TrimSpace(r.URL.Query().Get("url"))
	if content == "" {
		content = h.baseURL(r)
	}
	size := qrcode.DefaultSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "size", Reason: "must be an integer"}})
			return
		}
		size = parsed
	}
	v := shared.NewValidator()
	v.MaxLength("url", content, 2048)
	if v.Reject(w, requestID) {
		return
	}

	png, err := qrcode.PNG(content, size)
	switch {
	case errors.Is(err, qrcode.ErrInvalidSize):
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "size", Reason: fmt.Sprintf("must be between %d and %d", qrcode.MinSize, qrcode.MaxSize)}})
		return
	case err != nil:
		slog.Error("qr render failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "qr_failed", "failed to render qr code", requestID)
		return
	}

	principal, _ := middleware.GetPrincipal(r.Context())
	shared.RecordAudit(r, h.Audit, principal.Email, audit.ActionQRGenerate, "qr", content, map[string]int{"size": size})

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// baseURL is PUBLIC_BASE_URL when set, otherwise the origin the request came
// in on.
func (h *Handler) baseURL(r *http.Request) string {
	if h.PublicBaseURL != "" {
		return h.PublicBaseURL + "/"
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	host := r.Host
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-Host")); fwd != "" {
		host = fwd
	}
	return scheme + "://" + host + "/"
}
