package shared

import (
	"context"
	"log/slog"
	"net/http"

	"ideavote/internal/requestctx"
	"ideavote/internal/transport/http/middleware"
)

type AuditRecorder interface {
	Record(ctx context.Context, actor, action, entityType, entityID, requestID, ip string, details any) error
}

// RecordAudit writes an audit event for the request. Failures are logged and
// never fail the request.
func RecordAudit(r *http.Request, rec AuditRecorder, actor, action, entityType, entityID string, details any) {
	if rec == nil {
		return
	}
	requestID := requestctx.GetRequestID(r.Context())
	if err := rec.Record(r.Context(), actor, action, entityType, entityID, requestID, middleware.ClientIP(r), details); err != nil {
		slog.Warn("audit record failed", "action", action, "requestId", requestID, "err", err)
	}
}
