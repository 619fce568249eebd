package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"ideavote/internal/platform/crypto"
)

type Config struct {
	Addr                string
	DatabaseURL         string
	JWTSecret           string
	TokenTTL            time.Duration
	DataEncryptionKey   string
	FrontendDir         string
	Environment         string
	PublicBaseURL       string
	AllowedEmailDomains []string
	VotingWindow        time.Duration
	VotingTick          time.Duration
	SessionIdleTTL      time.Duration
	SeedAdminEmail      string
	SeedAdminPassword   string
	RunMigrations       bool
	RunSeed             bool
	MigrationsDir       string
	MaxBodyBytes        int64
	MaxImportBytes      int64
	RateLimitPerMinute  int
	MetricsEnabled      bool
	ChangeFeedListen    bool
	ZohoDomain          string
	ZohoClientID        string
	ZohoClientSecret    string
	OAuthRedirectURL    string
	OAuthScopes         []string
	ImportSchemaFile    string
	IdempotencyTTL      time.Duration
	CleanupInterval     time.Duration
}

// Load reads the process environment. A dotenv file named by ENV_FILE
// (default .env) is applied first without overriding variables already set.
func Load() Config {
	loadDotEnv(getEnv("ENV_FILE", ".env"))

	return Config{
		Addr:                getEnv("APP_ADDR", ":8080"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		TokenTTL:            getEnvDuration("TOKEN_TTL", 12*time.Hour),
		DataEncryptionKey:   getEnv("DATA_ENCRYPTION_KEY", ""),
		FrontendDir:         getEnv("FRONTEND_DIR", "frontend/dist"),
		Environment:         getEnv("APP_ENV", "development"),
		PublicBaseURL:       getEnv("PUBLIC_BASE_URL", ""),
		AllowedEmailDomains: getEnvList("ALLOWED_EMAIL_DOMAINS", nil),
		VotingWindow:        getEnvDuration("VOTING_WINDOW", 45*time.Second),
		VotingTick:          getEnvDuration("VOTING_TICK", time.Second),
		SessionIdleTTL:      getEnvDuration("SESSION_IDLE_TTL", 30*time.Minute),
		SeedAdminEmail:      getEnv("SEED_ADMIN_EMAIL", ""),
		SeedAdminPassword:   getEnv("SEED_ADMIN_PASSWORD", ""),
		RunMigrations:       getEnvBool("RUN_MIGRATIONS", true),
		RunSeed:             getEnvBool("RUN_SEED", true),
		MigrationsDir:       getEnv("MIGRATIONS_DIR", "migrations"),
		MaxBodyBytes:        int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		MaxImportBytes:      int64(getEnvInt("MAX_IMPORT_BYTES", 10*1048576)),
		RateLimitPerMinute:  getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		MetricsEnabled:      getEnvBool("METRICS_ENABLED", true),
		ChangeFeedListen:    getEnvBool("CHANGE_FEED_LISTEN", true),
		ZohoDomain:          getEnv("ZOHO_DOMAIN", ""),
		ZohoClientID:        getEnv("ZOHO_CLIENT_ID", ""),
		ZohoClientSecret:    getEnv("ZOHO_CLIENT_SECRET", ""),
		OAuthRedirectURL:    getEnv("OAUTH_REDIRECT_URL", ""),
		OAuthScopes:         getEnvList("OAUTH_SCOPES", []string{"ZohoPeople.forms.ALL"}),
		ImportSchemaFile:    getEnv("IMPORT_SCHEMA_FILE", ""),
		IdempotencyTTL:      getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		CleanupInterval:     getEnvDuration("CLEANUP_INTERVAL", time.Hour),
	}
}

func loadDotEnv(path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	_ = godotenv.Load(path)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c Config) OAuthEnabled() bool {
	return c.ZohoDomain != "" && c.ZohoClientID != "" && c.ZohoClientSecret != ""
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.IsProduction() {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if c.RunSeed && strings.TrimSpace(c.SeedAdminEmail) != "" && len(c.SeedAdminPassword) < 12 {
			return fmt.Errorf("SEED_ADMIN_PASSWORD must be at least 12 characters in production")
		}
	}
	if c.DataEncryptionKey != "" {
		if key, err := crypto.DecodeKey(c.DataEncryptionKey); err != nil || len(key) != 32 {
			return fmt.Errorf("DATA_ENCRYPTION_KEY must decode to 32 bytes")
		}
	}
	if c.VotingWindow <= 0 {
		return fmt.Errorf("VOTING_WINDOW must be positive")
	}
	if c.VotingTick <= 0 || c.VotingTick >= c.VotingWindow {
		return fmt.Errorf("VOTING_TICK must be positive and shorter than VOTING_WINDOW")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.MaxImportBytes < c.MaxBodyBytes {
		return fmt.Errorf("MAX_IMPORT_BYTES must not be smaller than MAX_BODY_BYTES")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	oauthSet := 0
	for _, v := range []string{c.ZohoDomain, c.ZohoClientID, c.ZohoClientSecret} {
		if v != "" {
			oauthSet++
		}
	}
	if oauthSet != 0 && oauthSet != 3 {
		return fmt.Errorf("ZOHO_DOMAIN, ZOHO_CLIENT_ID and ZOHO_CLIENT_SECRET must be set together")
	}
	if c.OAuthEnabled() && c.OAuthRedirectURL == "" {
		return fmt.Errorf("OAUTH_REDIRECT_URL is required when Zoho login is enabled")
	}
	return nil
}
