package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"

	"ideavote/internal/platform/crypto"
)

type fakeAdminStore struct {
	admins  map[string]Admin
	touched []string
}

func newFakeAdminStore() *fakeAdminStore {
	return &fakeAdminStore{admins: map[string]Admin{}}
}

func (f *fakeAdminStore) FindAdminByEmail(_ context.Context, email string) (Admin, error) {
	admin, ok := f.admins[strings.ToLower(email)]
	if !ok {
		return Admin{}, ErrAdminNotFound
	}
	return admin, nil
}

func (f *fakeAdminStore) CreateAdmin(_ context.Context, email, hash string) (Admin, error) {
	key := strings.ToLower(email)
	if _, ok := f.admins[key]; ok {
		return Admin{}, ErrAdminExists
	}
	admin := Admin{ID: "admin-" + key, Email: email, PasswordHash: hash, CreatedAt: time.Now()}
	f.admins[key] = admin
	return admin, nil
}

func (f *fakeAdminStore) UpdatePassword(_ context.Context, adminID, hash string) error {
	for key, admin := range f.admins {
		if admin.ID == adminID {
			admin.PasswordHash = hash
			f.admins[key] = admin
			return nil
		}
	}
	return ErrAdminNotFound
}

func (f *fakeAdminStore) SetTOTPSecret(_ context.Context, adminID string, secret []byte) error {
	for key, admin := range f.admins {
		if admin.ID == adminID {
			admin.TOTPSecretEnc = secret
			f.admins[key] = admin
			return nil
		}
	}
	return ErrAdminNotFound
}

func (f *fakeAdminStore) TouchLogin(_ context.Context, adminID string) error {
	f.touched = append(f.touched, adminID)
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeAdminStore) {
	t.Helper()
	sealer, err := crypto.NewSealer("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("sealer: %v", err)
	}
	store := newFakeAdminStore()
	return NewService(store, sealer), store
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, created, err := svc.EnsureAdmin(ctx, "admin@example.com", "ChangeMe123!")
	if err != nil || !created {
		t.Fatalf("expected admin to be created, created=%v err=%v", created, err)
	}
	second, created, err := svc.EnsureAdmin(ctx, "ADMIN@example.com", "other")
	if err != nil || created {
		t.Fatalf("expected existing admin, created=%v err=%v", created, err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same admin, got %s and %s", first.ID, second.ID)
	}
}

func TestLogin(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	if _, _, err := svc.EnsureAdmin(ctx, "admin@example.com", "ChangeMe123!"); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}

	if _, err := svc.Login(ctx, "admin@example.com", "wrong", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "ChangeMe123!", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected unknown admin to look like bad credentials, got %v", err)
	}
	admin, err := svc.Login(ctx, "admin@example.com", "ChangeMe123!", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if len(store.touched) != 1 || store.touched[0] != admin.ID {
		t.Fatalf("expected last login to be recorded, got %v", store.touched)
	}
}

func TestLoginWithTOTP(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	if _, _, err := svc.EnsureAdmin(ctx, "admin@example.com", "ChangeMe123!"); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	key, err := svc.EnrollTOTP(ctx, "admin@example.com", "ideavote")
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	stored := store.admins["admin@example.com"].TOTPSecretEnc
	if strings.Contains(string(stored), key.Secret()) {
		t.Fatal("expected totp secret to be sealed at rest")
	}

	if _, err := svc.Login(ctx, "admin@example.com", "ChangeMe123!", ""); !errors.Is(err, ErrMFARequired) {
		t.Fatalf("expected mfa required, got %v", err)
	}
	if _, err := svc.Login(ctx, "admin@example.com", "ChangeMe123!", "000000x"); !errors.Is(err, ErrMFAInvalid) {
		t.Fatalf("expected mfa invalid, got %v", err)
	}
	code, err := totp.GenerateCode(key.Secret(), time.Now())
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	if _, err := svc.Login(ctx, "admin@example.com", "ChangeMe123!", code); err != nil {
		t.Fatalf("expected login with valid code, got %v", err)
	}
}
