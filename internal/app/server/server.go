package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"ideavote/internal/domain/audit"
	"ideavote/internal/domain/auth"
	"ideavote/internal/domain/directory"
	"ideavote/internal/domain/identity"
	"ideavote/internal/domain/importer"
	"ideavote/internal/domain/leaderboard"
	"ideavote/internal/domain/ledger"
	"ideavote/internal/domain/voting"
	"ideavote/internal/platform/config"
	"ideavote/internal/platform/crypto"
	"ideavote/internal/platform/db"
	"ideavote/internal/platform/feed"
	"ideavote/internal/platform/jobs"
	"ideavote/internal/platform/metrics"
	"ideavote/internal/transport/http/api"
	adminhandler "ideavote/internal/transport/http/handlers/admin"
	audithandler "ideavote/internal/transport/http/handlers/audit"
	authhandler "ideavote/internal/transport/http/handlers/auth"
	candidateshandler "ideavote/internal/transport/http/handlers/candidates"
	leaderboardhandler "ideavote/internal/transport/http/handlers/leaderboard"
	votinghandler "ideavote/internal/transport/http/handlers/voting"
	"ideavote/internal/transport/http/middleware"
)

type App struct {
	Config   config.Config
	DB       *pgxpool.Pool
	Router   http.Handler
	Broker   *feed.Broker
	Sessions *voting.Registry
	Metrics  *metrics.Collector
	Jobs     *jobs.Service

	cancel context.CancelFunc
}

// New connects to the database, prepares the schema and assembles the
// router. Background loops run until Close.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if cfg.JWTSecret == "" && !cfg.IsProduction() {
		cfg.JWTSecret = uuid.NewString()
		slog.Warn("JWT_SECRET not set, using a random secret; tokens will not survive a restart")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	sealer, err := crypto.NewSealer(cfg.DataEncryptionKey)
	if err != nil {
		pool.Close()
		return nil, err
	}
	schema := importer.DefaultSchema()
	if cfg.ImportSchemaFile != "" {
		if schema, err = importer.LoadSchema(cfg.ImportSchemaFile); err != nil {
			pool.Close()
			return nil, fmt.Errorf("import schema: %w", err)
		}
	}

	collector := metrics.New()
	broker := feed.NewBroker()
	directorySvc := directory.NewService(directory.NewStore(pool))
	ledgerSvc := ledger.NewService(ledger.NewStore(pool), broker)
	registry := voting.NewRegistry(ledgerSvc,
		voting.WithWindow(cfg.VotingWindow),
		voting.WithTick(cfg.VotingTick),
		voting.WithIdleTTL(cfg.SessionIdleTTL),
		voting.WithObserver(collector),
	)
	boardSvc := leaderboard.NewService(directorySvc, ledgerSvc, broker)
	importSvc := importer.NewService(directorySvc, broker, schema, cfg.MaxImportBytes)
	auditSvc := audit.New(pool)
	resolver := identity.NewResolver(directorySvc, cfg.AllowedEmailDomains)

	var oauthFlow *identity.OAuthFlow
	if cfg.OAuthEnabled() {
		oauthFlow = &identity.OAuthFlow{
			Provider: identity.NewZohoProvider(identity.ZohoConfig{
				Domain:       cfg.ZohoDomain,
				ClientID:     cfg.ZohoClientID,
				ClientSecret: cfg.ZohoClientSecret,
				RedirectURL:  cfg.OAuthRedirectURL,
				Scopes:       cfg.OAuthScopes,
			}),
			Resolver:    resolver,
			StateSecret: cfg.JWTSecret,
			StateTTL:    10 * time.Minute,
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	runner := jobs.New(pool, cfg)
	runner.Start(runCtx)
	runner.Go(runCtx, "voting sessions", registry.Run)
	if cfg.ChangeFeedListen {
		runner.Go(runCtx, "change feed", feed.NewListener(pool, broker).Run)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(collector))
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes, map[string]int64{"/employees/import": cfg.MaxImportBytes}))
	router.Use(middleware.Auth(cfg.JWTSecret))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			snapshot := collector.Snapshot()
			snapshot["activeSessions"] = registry.Len()
			api.Success(w, snapshot, middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(resolver, oauthFlow, auth.NewService(auth.NewStore(pool), sealer), auditSvc, cfg.JWTSecret, cfg.TokenTTL).RegisterRoutes(r)
		leaderboardhandler.NewHandler(boardSvc, collector).RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleEmployee))
			candidateshandler.NewHandler(directorySvc, ledgerSvc).RegisterRoutes(r)
			votinghandler.NewHandler(registry, directorySvc).RegisterRoutes(r)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleAdmin))
			adminhandler.NewHandler(directorySvc, importSvc, boardSvc, middleware.NewIdempotencyStore(pool), auditSvc, cfg.PublicBaseURL).RegisterRoutes(r)
			audithandler.NewHandler(auditSvc).RegisterRoutes(r)
		})
	})

	router.Mount("/", spaHandler{staticPath: cfg.FrontendDir, indexPath: "index.html"})

	return &App{
		Config:   cfg,
		DB:       pool,
		Router:   router,
		Broker:   broker,
		Sessions: registry,
		Metrics:  collector,
		Jobs:     runner,
		cancel:   cancel,
	}, nil
}

// Close stops the background loops, ends open leaderboard streams and
// releases the pool.
func (a *App) Close() {
	a.cancel()
	a.Broker.Close()
	a.Jobs.Wait()
	a.DB.Close()
}

// Run serves until SIGINT or SIGTERM, then drains in-flight requests.
func Run() error {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              app.Config.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("ideavote server listening", "addr", app.Config.Addr, "env", app.Config.Environment)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	// streams only end when the broker closes
	app.Broker.Close()
	return srv.Shutdown(shutdownCtx)
}

type spaHandler struct {
	staticPath string
	indexPath  string
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	path := filepath.Join(h.staticPath, filepath.Clean("/"+r.URL.Path))
	_, err := os.Stat(path)
	if err == nil {
		http.FileServer(http.Dir(h.staticPath)).ServeHTTP(w, r)
		return
	}

	if os.IsNotExist(err) {
		http.ServeFile(w, r, filepath.Join(h.staticPath, h.indexPath))
		return
	}

	http.NotFound(w, r)
}
