package shared

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestValidator(t *testing.T) {
	v := NewValidator()
	v.Required("candidateId", " ", "is required")
	v.Email("email", "ana@acme.test")
	v.Email("backupEmail", "Ana <ana@acme.test>")
	v.MaxLength("code", "1234567", 6)
	if !v.HasIssues() {
		t.Fatal("expected issues")
	}
	issues := v.Issues()
	if len(issues) != 3 {
		t.Fatalf("expected 3 issues, got %+v", issues)
	}
	if issues[0].Field != "backupEmail" || issues[1].Field != "candidateId" || issues[2].Field != "code" {
		t.Fatalf("expected sorted issues, got %+v", issues)
	}

	rec := httptest.NewRecorder()
	if !v.Reject(rec, "req-1") {
		t.Fatal("expected reject to write a response")
	}
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Fields []ValidationIssue `json:"fields"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusBadRequest || body.Error.Code != "validation_error" || len(body.Error.Details.Fields) != 3 {
		t.Fatalf("unexpected response %d %+v", rec.Code, body)
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Email string `json:"email"`
	}
	rec := httptest.NewRecorder()
	if !DecodeJSON(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.test"}`)), &dst) || dst.Email != "a@b.test" {
		t.Fatalf("expected decode, got %+v", dst)
	}
	if !DecodeJSON(rec, httptest.NewRequest(http.MethodPost, "/", http.NoBody), &dst) {
		t.Fatal("empty body must decode")
	}

	rec = httptest.NewRecorder()
	if DecodeJSON(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`)), &dst) || rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"`+strings.Repeat("a", 100)+`"}`))
	req.Body = http.MaxBytesReader(rec, req.Body, 16)
	if DecodeJSON(rec, req, &dst) || rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestWindow(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	tests := []struct {
		page  Pagination
		want  []int
		total int
	}{
		{page: Pagination{Limit: 2}, want: []int{1, 2}, total: 5},
		{page: Pagination{Limit: 2, Offset: 4}, want: []int{5}, total: 5},
		{page: Pagination{Limit: 2, Offset: 9}, want: []int{}, total: 5},
	}
	for _, tt := range tests {
		got, total := Window(items, tt.page)
		if total != tt.total || len(got) != len(tt.want) || (len(got) > 0 && got[0] != tt.want[0]) {
			t.Fatalf("Window(%+v) = %v, %d", tt.page, got, total)
		}
	}
}

func TestParsePagination(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?limit=900&offset=-1&q=%20ana%20", nil)
	page := ParsePagination(r, 50, 200)
	if page.Limit != 200 || page.Offset != 0 {
		t.Fatalf("unexpected page %+v", page)
	}
	if Query(r) != "ana" {
		t.Fatalf("unexpected query %q", Query(r))
	}
}
