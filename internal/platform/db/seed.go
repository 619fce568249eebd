package db

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"ideavote/internal/domain/auth"
	"ideavote/internal/platform/config"
)

// Seed creates the bootstrap admin credential from SEED_ADMIN_EMAIL and
// SEED_ADMIN_PASSWORD. Existing credentials are never overwritten.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if strings.TrimSpace(cfg.SeedAdminEmail) == "" || strings.TrimSpace(cfg.SeedAdminPassword) == "" {
		return nil
	}
	svc := auth.NewService(auth.NewStore(pool), nil)
	admin, created, err := svc.EnsureAdmin(ctx, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
	if err != nil {
		return err
	}
	if created {
		slog.Info("seeded admin credential", "adminId", admin.ID, "email", admin.Email)
	}
	return nil
}
