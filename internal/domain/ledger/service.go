package ledger

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"ideavote/internal/platform/feed"
)

type StoreAPI interface {
	Insert(ctx context.Context, vote Vote) (Vote, error)
	HasVote(ctx context.Context, voterID, voteeID string) (bool, error)
	CountFor(ctx context.Context, employeeID string) (int, error)
	ListVoteesBy(ctx context.Context, voterID string) ([]string, error)
	ListAll(ctx context.Context) ([]Vote, error)
}

type Publisher interface {
	Publish(evt feed.Event) int
}

type Service struct {
	store     StoreAPI
	publisher Publisher
	newID     func() string
}

func NewService(store StoreAPI, publisher Publisher) *Service {
	return &Service{store: store, publisher: publisher, newID: uuid.NewString}
}

// Append records that voterID voted for voteeID. It returns ErrAlreadyVoted
// when the pair already exists, including when a concurrent append won.
func (s *Service) Append(ctx context.Context, voterID, voteeID string) (Vote, error) {
	voterID = strings.TrimSpace(voterID)
	voteeID = strings.TrimSpace(voteeID)
	if voterID == "" || voteeID == "" {
		return Vote{}, ErrInvalidVote
	}
	if voterID == voteeID {
		return Vote{}, ErrSelfVote
	}

	vote, err := s.store.Insert(ctx, Vote{ID: s.newID(), VoterEmployeeID: voterID, VotedForEmployeeID: voteeID})
	if err != nil {
		return Vote{}, err
	}
	if s.publisher != nil {
		s.publisher.Publish(feed.Event{ID: vote.ID, Table: feed.TableVotes, Op: feed.OpInsert, At: vote.CreatedAt})
	}
	return vote, nil
}

func (s *Service) HasVoted(ctx context.Context, voterID, voteeID string) (bool, error) {
	return s.store.HasVote(ctx, voterID, voteeID)
}

func (s *Service) CountVotesFor(ctx context.Context, employeeID string) (int, error) {
	return s.store.CountFor(ctx, employeeID)
}

// ListVotesBy returns the employee ids voterID has already voted for.
func (s *Service) ListVotesBy(ctx context.Context, voterID string) ([]string, error) {
	return s.store.ListVoteesBy(ctx, voterID)
}

func (s *Service) ListVotes(ctx context.Context) ([]Vote, error) {
	return s.store.ListAll(ctx)
}
