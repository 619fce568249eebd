package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) FindAdminByEmail(ctx context.Context, email string) (Admin, error) {
	var out Admin
	err := s.DB.QueryRow(ctx, `
    SELECT id, email, password_hash, totp_secret_enc, created_at, last_login_at
    FROM admin_credentials
    WHERE lower(email) = lower($1)
  `, strings.TrimSpace(email)).Scan(&out.ID, &out.Email, &out.PasswordHash, &out.TOTPSecretEnc, &out.CreatedAt, &out.LastLoginAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Admin{}, ErrAdminNotFound
	}
	return out, err
}

func (s *Store) CreateAdmin(ctx context.Context, email, passwordHash string) (Admin, error) {
	out := Admin{Email: strings.TrimSpace(email), PasswordHash: passwordHash}
	err := s.DB.QueryRow(ctx, `
    INSERT INTO admin_credentials (email, password_hash)
    VALUES ($1, $2)
    RETURNING id, created_at
  `, out.Email, passwordHash).Scan(&out.ID, &out.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return Admin{}, ErrAdminExists
	}
	return out, err
}

func (s *Store) UpdatePassword(ctx context.Context, adminID, passwordHash string) error {
	_, err := s.DB.Exec(ctx, "UPDATE admin_credentials SET password_hash = $1 WHERE id = $2", passwordHash, adminID)
	return err
}

func (s *Store) SetTOTPSecret(ctx context.Context, adminID string, secretEnc []byte) error {
	tag, err := s.DB.Exec(ctx, "UPDATE admin_credentials SET totp_secret_enc = $1 WHERE id = $2", secretEnc, adminID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAdminNotFound
	}
	return nil
}

func (s *Store) TouchLogin(ctx context.Context, adminID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE admin_credentials SET last_login_at = now() WHERE id = $1", adminID)
	return err
}
