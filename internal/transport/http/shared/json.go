package shared

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"ideavote/internal/requestctx"
	"ideavote/internal/transport/http/api"
)

// DecodeJSON decodes the request body into dst and writes the error response
// itself when that fails. An empty body decodes to the zero value.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body is too large", requestctx.GetRequestID(r.Context()))
		return false
	}
	api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestctx.GetRequestID(r.Context()))
	return false
}
