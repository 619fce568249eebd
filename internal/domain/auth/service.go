package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"ideavote/internal/platform/crypto"
)

type AdminStore interface {
	FindAdminByEmail(ctx context.Context, email string) (Admin, error)
	CreateAdmin(ctx context.Context, email, passwordHash string) (Admin, error)
	UpdatePassword(ctx context.Context, adminID, passwordHash string) error
	SetTOTPSecret(ctx context.Context, adminID string, secretEnc []byte) error
	TouchLogin(ctx context.Context, adminID string) error
}

type Service struct {
	store  AdminStore
	sealer *crypto.Sealer
}

func NewService(store AdminStore, sealer *crypto.Sealer) *Service {
	return &Service{store: store, sealer: sealer}
}

// Login verifies an admin's bcrypt password and, when enrolled, a TOTP code.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password, code string) (Admin, error) {
	admin, err := s.store.FindAdminByEmail(ctx, email)
	if errors.Is(err, ErrAdminNotFound) {
		return Admin{}, ErrInvalidCredentials
	}
	if err != nil {
		return Admin{}, err
	}
	if err := CheckPassword(admin.PasswordHash, password); err != nil {
		return Admin{}, ErrInvalidCredentials
	}

	if admin.MFAEnabled() {
		code = strings.TrimSpace(code)
		if code == "" {
			return Admin{}, ErrMFARequired
		}
		secret, err := s.sealer.Open(admin.TOTPSecretEnc)
		if err != nil || secret == "" {
			return Admin{}, ErrMFAInvalid
		}
		if !totp.Validate(code, secret) {
			return Admin{}, ErrMFAInvalid
		}
	}

	if err := s.store.TouchLogin(ctx, admin.ID); err != nil {
		slog.Warn("admin last login update failed", "adminId", admin.ID, "err", err)
	}
	return admin, nil
}

// EnsureAdmin creates the credential if the email is unknown and leaves an
// existing one untouched.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (Admin, bool, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return Admin{}, false, ErrInvalidCredentials
	}
	existing, err := s.store.FindAdminByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrAdminNotFound) {
		return Admin{}, false, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return Admin{}, false, err
	}
	created, err := s.store.CreateAdmin(ctx, email, hash)
	if errors.Is(err, ErrAdminExists) {
		existing, err := s.store.FindAdminByEmail(ctx, email)
		return existing, false, err
	}
	if err != nil {
		return Admin{}, false, err
	}
	return created, true, nil
}

func (s *Service) SetPassword(ctx context.Context, email, password string) error {
	admin, err := s.store.FindAdminByEmail(ctx, email)
	if err != nil {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return s.store.UpdatePassword(ctx, admin.ID, hash)
}

// EnrollTOTP generates a fresh TOTP secret for the admin, stores it sealed and
// returns the key so the caller can show the otpauth URL or a QR code.
func (s *Service) EnrollTOTP(ctx context.Context, email, issuer string) (*otp.Key, error) {
	admin, err := s.store.FindAdminByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	key, err := totp.Generate(totp.GenerateOpts{Issuer: issuer, AccountName: admin.Email})
	if err != nil {
		return nil, err
	}
	sealed, err := s.sealer.Seal(key.Secret())
	if err != nil {
		return nil, err
	}
	if err := s.store.SetTOTPSecret(ctx, admin.ID, sealed); err != nil {
		return nil, err
	}
	return key, nil
}
