package leaderboard

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"ideavote/internal/domain/directory"
	"ideavote/internal/domain/ledger"
	"ideavote/internal/platform/feed"
)

type EmployeeSource interface {
	ListAll(ctx context.Context) ([]directory.Employee, error)
}

type VoteSource interface {
	ListVotes(ctx context.Context) ([]ledger.Vote, error)
}

type Subscriber interface {
	Subscribe(table string) *feed.Subscription
}

type Board struct {
	Entries     []Entry   `json:"entries"`
	TotalVotes  int       `json:"totalVotes"`
	GeneratedAt time.Time `json:"generatedAt"`
}

type Service struct {
	employees EmployeeSource
	votes     VoteSource
	feed      Subscriber
	now       func() time.Time
}

func NewService(employees EmployeeSource, votes VoteSource, sub Subscriber) *Service {
	return &Service{employees: employees, votes: votes, feed: sub, now: time.Now}
}

// Current ranks a fresh read of the directory and the ledger.
func (s *Service) Current(ctx context.Context) (Board, error) {
	var (
		employees []directory.Employee
		votes     []ledger.Vote
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		employees, err = s.employees.ListAll(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		votes, err = s.votes.ListVotes(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Board{}, err
	}
	return Board{
		Entries:     Rank(employees, votes),
		TotalVotes:  len(votes),
		GeneratedAt: s.now().UTC(),
	}, nil
}

// Watch calls emit with the current board and again after every vote or
// directory change until ctx ends or the feed closes. Bursts of changes that
// arrive while a board is being computed collapse into one recompute.
func (s *Service) Watch(ctx context.Context, emit func(Board) error) error {
	votes := s.feed.Subscribe(feed.TableVotes)
	defer votes.Close()
	employees := s.feed.Subscribe(feed.TableEmployees)
	defer employees.Close()

	board, err := s.Current(ctx)
	if err != nil {
		return err
	}
	if err := emit(board); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-votes.Events:
			if !ok {
				return nil
			}
		case _, ok := <-employees.Events:
			if !ok {
				return nil
			}
		}
		drain(votes.Events)
		drain(employees.Events)

		board, err := s.Current(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Warn("leaderboard recompute failed", "err", err)
			continue
		}
		if err := emit(board); err != nil {
			return err
		}
	}
}

func drain(ch <-chan feed.Event) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
