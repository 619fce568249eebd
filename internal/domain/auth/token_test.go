package auth

import (
	"testing"
	"time"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("super-secret")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if hash == "super-secret" {
		t.Fatal("expected hashed password")
	}
	if err := CheckPassword(hash, "super-secret"); err != nil {
		t.Fatalf("expected password to match, got %v", err)
	}
	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	secret := "test-secret"
	claims := Claims{EmployeeID: "E-100", Email: "ada@example.com", Name: "Ada", Role: RoleEmployee}

	token, err := GenerateToken(secret, claims, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	parsed, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if parsed.EmployeeID != "E-100" || parsed.Subject != "E-100" || parsed.Role != RoleEmployee || parsed.Email != claims.Email {
		t.Fatalf("claims mismatch: %+v", parsed)
	}
	if parsed.ID == "" {
		t.Fatal("expected token id")
	}
}

func TestParseTokenRejects(t *testing.T) {
	good, _ := GenerateToken("secret", Claims{EmployeeID: "E-1", Role: RoleEmployee}, time.Hour)
	expired, _ := GenerateToken("secret", Claims{EmployeeID: "E-1", Role: RoleEmployee}, -time.Minute)
	noRole, _ := GenerateToken("secret", Claims{EmployeeID: "E-1"}, time.Hour)
	state, _ := IssueOAuthState("secret", time.Minute)

	tests := []struct {
		name   string
		secret string
		token  string
	}{
		{name: "wrong secret", secret: "other", token: good},
		{name: "expired", secret: "secret", token: expired},
		{name: "missing role", secret: "secret", token: noRole},
		{name: "oauth state is not a session", secret: "secret", token: state},
		{name: "garbage", secret: "secret", token: "not-a-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.secret, tt.token); err == nil {
				t.Fatal("expected parse error")
			}
		})
	}
}

func TestOAuthStateRoundTrip(t *testing.T) {
	state, err := IssueOAuthState("secret", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := VerifyOAuthState("secret", state); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := VerifyOAuthState("other", state); err == nil {
		t.Fatal("expected wrong secret to fail")
	}
	session, _ := GenerateToken("secret", Claims{EmployeeID: "E-1", Role: RoleEmployee}, time.Hour)
	if err := VerifyOAuthState("secret", session); err == nil {
		t.Fatal("expected session token to be rejected as state")
	}
}
