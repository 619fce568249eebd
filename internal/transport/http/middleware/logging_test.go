package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordedStatus struct {
	mu       sync.Mutex
	statuses []int
}

func (r *recordedStatus) Record(status int, _ time.Duration) {
	r.mu.Lock()
	r.statuses = append(r.statuses, status)
	r.mu.Unlock()
}

func TestLoggerRecordsStatusAndKeepsFlusher(t *testing.T) {
	rec := &recordedStatus{}
	handler := RequestID(Logger(rec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRequestID(r.Context()) == "" {
			t.Fatal("expected request id")
		}
		if _, ok := w.(http.Flusher); !ok {
			t.Fatal("logger must not hide http.Flusher")
		}
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusInternalServerError)
	})))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/x", nil))
	if len(rec.statuses) != 1 || rec.statuses[0] != http.StatusTeapot {
		t.Fatalf("expected first status to be recorded, got %v", rec.statuses)
	}
	if res.Header().Get(RequestIDHeader) == "" {
		t.Fatal("expected request id header on response")
	}
}

func TestRequestIDReusesInboundHeader(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "trace-123")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "trace-123" {
		t.Fatalf("expected inbound id, got %q", seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", 300))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if len(seen) != 36 {
		t.Fatalf("expected oversized id to be replaced by a uuid, got %q", seen)
	}
}

func TestBodyLimitOverrides(t *testing.T) {
	handler := BodyLimit(8, map[string]int64{"/import": 64})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		path string
		body string
		want int
	}{
		{path: "/api/v1/auth/login", body: "0123456789", want: http.StatusRequestEntityTooLarge},
		{path: "/api/v1/admin/employees/import", body: strings.Repeat("a", 40), want: http.StatusNoContent},
		{path: "/api/v1/admin/employees/import", body: strings.Repeat("a", 80), want: http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body)))
		if rec.Code != tt.want {
			t.Fatalf("%s with %d bytes: expected %d, got %d", tt.path, len(tt.body), tt.want, rec.Code)
		}
	}
}

func TestSecureHeaders(t *testing.T) {
	handler := SecureHeaders(true)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard", nil))
	if rec.Header().Get("Strict-Transport-Security") == "" || rec.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("unexpected headers %v", rec.Header())
	}
}
