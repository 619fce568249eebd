package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"ideavote/internal/platform/config"
)

const (
	JobIdempotencyPrune = "idempotency_prune"
)

// Service runs the process's background work: long-lived loops started with
// Go, one-off jobs queued with Enqueue, and the periodic cleanup schedule.
type Service struct {
	DB    *pgxpool.Pool
	Cfg   config.Config
	queue chan job
	wg    sync.WaitGroup
}

type job struct {
	Type string
	Run  func(context.Context) (any, error)
}

func New(db *pgxpool.Pool, cfg config.Config) *Service {
	return &Service{
		DB:    db,
		Cfg:   cfg,
		queue: make(chan job, 128),
	}
}

func (s *Service) Start(ctx context.Context) {
	s.Go(ctx, "job worker", s.worker)
	if s.DB != nil && s.Cfg.CleanupInterval > 0 && s.Cfg.IdempotencyTTL > 0 {
		s.Go(ctx, "cleanup scheduler", func(ctx context.Context) {
			s.scheduleCleanup(ctx, s.Cfg.CleanupInterval)
		})
	}
}

// Go runs loop on its own goroutine until ctx ends. Wait blocks until every
// loop has returned.
func (s *Service) Go(ctx context.Context, name string, loop func(context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		slog.Debug("background loop started", "name", name)
		loop(ctx)
		slog.Debug("background loop stopped", "name", name)
	}()
}

func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) Enqueue(jobType string, run func(context.Context) (any, error)) {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
	default:
		slog.Warn("job queue full", "jobType", jobType)
	}
}

// RunNow runs a job inline with the same logging as queued jobs.
func (s *Service) RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	started := time.Now()
	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	slog.Info("job run", "jobType", j.Type, "status", status, "durationMs", time.Since(started).Milliseconds(), "details", details)
	return details, err
}

func (s *Service) scheduleCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(JobIdempotencyPrune, s.PruneIdempotency)
		}
	}
}

// PruneIdempotency is the JobIdempotencyPrune job: it drops stored import
// responses older than IDEMPOTENCY_TTL.
func (s *Service) PruneIdempotency(ctx context.Context) (any, error) {
	deleted, err := PruneIdempotencyKeys(ctx, s.DB, time.Now().Add(-s.Cfg.IdempotencyTTL))
	return map[string]any{"deleted": deleted}, err
}

// PruneIdempotencyKeys deletes stored responses created before cutoff.
func PruneIdempotencyKeys(ctx context.Context, db *pgxpool.Pool, cutoff time.Time) (int64, error) {
	tag, err := db.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
