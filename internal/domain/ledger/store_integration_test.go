package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"ideavote/internal/platform/config"
	"ideavote/internal/platform/db"
)

func TestStoreEnforcesPairUniqueness(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.Connect(ctx, config.Config{DatabaseURL: dbURL})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()
	if err := db.Migrate(ctx, pool, "../../../migrations"); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	suffix := time.Now().UnixNano()
	voter := fmt.Sprintf("ledger-voter-%d", suffix)
	votee := fmt.Sprintf("ledger-votee-%d", suffix)
	for _, id := range []string{voter, votee} {
		if _, err := pool.Exec(ctx, "INSERT INTO employees (employee_id, name, selected_idea) VALUES ($1, $1, 'idea')", id); err != nil {
			t.Fatalf("insert employee: %v", err)
		}
	}
	defer pool.Exec(ctx, "DELETE FROM employees WHERE employee_id = ANY($1)", []string{voter, votee})

	svc := NewService(NewStore(pool), nil)
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Append(ctx, voter, votee)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	successes := 0
	for err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrAlreadyVoted):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one successful insert, got %d", successes)
	}
	count, err := svc.CountVotesFor(ctx, votee)
	if err != nil || count != 1 {
		t.Fatalf("expected one stored vote, got %d (%v)", count, err)
	}
	if _, err := svc.Append(ctx, voter, "missing-"+votee); !errors.Is(err, ErrUnknownEmployee) {
		t.Fatalf("expected unknown employee, got %v", err)
	}
}
