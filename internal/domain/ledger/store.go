package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

// Insert relies on the votes_voter_votee_key unique constraint; concurrent
// inserts for the same pair leave exactly one row and the losers get
// ErrAlreadyVoted.
func (s *Store) Insert(ctx context.Context, vote Vote) (Vote, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO votes (id, voter_employee_id, voted_for_employee_id)
    VALUES ($1, $2, $3)
    RETURNING created_at
  `, vote.ID, vote.VoterEmployeeID, vote.VotedForEmployeeID).Scan(&vote.CreatedAt)
	if err != nil {
		return Vote{}, translate(err)
	}
	return vote, nil
}

func (s *Store) HasVote(ctx context.Context, voterID, voteeID string) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM votes WHERE voter_employee_id = $1 AND voted_for_employee_id = $2
    )
  `, voterID, voteeID).Scan(&exists)
	return exists, err
}

func (s *Store) CountFor(ctx context.Context, employeeID string) (int, error) {
	var total int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM votes WHERE voted_for_employee_id = $1", employeeID).Scan(&total)
	return total, err
}

func (s *Store) ListVoteesBy(ctx context.Context, voterID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT voted_for_employee_id
    FROM votes
    WHERE voter_employee_id = $1
    ORDER BY voted_for_employee_id
  `, voterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) ListAll(ctx context.Context) ([]Vote, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, voter_employee_id, voted_for_employee_id, created_at
    FROM votes
    ORDER BY created_at, id
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Vote
	for rows.Next() {
		var v Vote
		if err := rows.Scan(&v.ID, &v.VoterEmployeeID, &v.VotedForEmployeeID, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505":
		return ErrAlreadyVoted
	case "23503":
		return ErrUnknownEmployee
	case "23514":
		return ErrSelfVote
	}
	return err
}
