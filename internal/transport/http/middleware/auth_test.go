package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ideavote/internal/domain/auth"
)

func TestAuthMiddlewareSetsPrincipal(t *testing.T) {
	secret := "test-secret"
	token, err := auth.GenerateToken(secret, auth.Claims{EmployeeID: "E1", Email: "e1@acme.test", Role: auth.RoleEmployee}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	called := false
	handler := Auth(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		principal, ok := GetPrincipal(r.Context())
		if !ok {
			t.Fatal("expected principal in context")
		}
		if principal.EmployeeID != "E1" || principal.Subject != "E1" || principal.Role != auth.RoleEmployee {
			t.Fatalf("unexpected principal: %+v", principal)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if !called {
		t.Fatal("handler not called")
	}
}

func TestAuthMiddlewareIgnoresBadTokens(t *testing.T) {
	state, _ := auth.IssueOAuthState("secret", time.Minute)
	other, _ := auth.GenerateToken("other-secret", auth.Claims{EmployeeID: "E1", Role: auth.RoleEmployee}, time.Hour)
	for name, header := range map[string]string{
		"missing":     "",
		"wrong type":  "Basic abc",
		"oauth state": "Bearer " + state,
		"bad secret":  "Bearer " + other,
	} {
		t.Run(name, func(t *testing.T) {
			handler := Auth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if _, ok := GetPrincipal(r.Context()); ok {
					t.Fatal("did not expect principal in context")
				}
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)
		})
	}
}

func TestAuthMiddlewareAcceptsStreamQueryToken(t *testing.T) {
	token, _ := auth.GenerateToken("s", auth.Claims{EmployeeID: "E2", Role: auth.RoleEmployee}, time.Hour)
	seen := ""
	handler := Auth("s")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := GetPrincipal(r.Context()); ok {
			seen = p.EmployeeID
		}
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard/stream?access_token="+token, nil))
	if seen != "E2" {
		t.Fatalf("expected stream token to authenticate, got %q", seen)
	}
	seen = ""
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/me?access_token="+token, nil))
	if seen != "" {
		t.Fatal("query tokens must only be accepted on streams")
	}
}

func TestRequirePermission(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	guarded := Auth("s")(RequirePermission(auth.PermEmployeesImport, nil)(ok))

	employee, _ := auth.GenerateToken("s", auth.Claims{EmployeeID: "E1", Role: auth.RoleEmployee}, time.Hour)
	admin, _ := auth.GenerateToken("s", auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "adm-1"}, Email: "root@acme.test", Role: auth.RoleAdmin}, time.Hour)

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{name: "anonymous", want: http.StatusUnauthorized},
		{name: "employee", token: employee, want: http.StatusForbidden},
		{name: "admin", token: admin, want: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/employees/import", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			guarded.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	guarded := Auth("s")(RequireRole(auth.RoleEmployee)(ok))
	admin, _ := auth.GenerateToken("s", auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "adm-1"}, Role: auth.RoleAdmin}, time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	rec := httptest.NewRecorder()
	guarded.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected admin to be refused employee routes, got %d", rec.Code)
	}
}
