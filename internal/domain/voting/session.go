package voting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"ideavote/internal/domain/directory"
	"ideavote/internal/domain/ledger"
	"ideavote/internal/platform/clock"
)

const DefaultWindow = 45 * time.Second

// ledgerTimeout bounds the ledger round trip of a cast. The round trip is
// detached from the caller's cancellation so a committed vote is never
// reported as a failed write.
const ledgerTimeout = 5 * time.Second

// Ledger is the slice of the vote ledger a session needs.
type Ledger interface {
	HasVoted(ctx context.Context, voterID, voteeID string) (bool, error)
	Append(ctx context.Context, voterID, voteeID string) (ledger.Vote, error)
}

// Observer receives session outcomes. metrics.Collector satisfies it.
type Observer interface {
	VoteCast()
	VoteRejected(reason string)
	SessionExpired()
}

type Candidate struct {
	EmployeeID   string `json:"employeeId"`
	Name         string `json:"name"`
	GroupName    string `json:"groupName,omitempty"`
	SelectedIdea string `json:"selectedIdea"`
}

func CandidateFrom(emp directory.Employee) Candidate {
	return Candidate{
		EmployeeID:   emp.EmployeeID,
		Name:         emp.DisplayName(),
		GroupName:    emp.GroupName,
		SelectedIdea: emp.SelectedIdea,
	}
}

type Snapshot struct {
	VoterID          string     `json:"voterId"`
	Status           Status     `json:"status"`
	Candidate        *Candidate `json:"candidate,omitempty"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	RemainingSeconds int        `json:"remainingSeconds"`
	WindowSeconds    int        `json:"windowSeconds"`
}

// Session drives one voter's attempts, one candidate at a time. All methods
// serialize on the session mutex, so a tick can never interleave with a cast.
type Session struct {
	mu        sync.Mutex
	voterID   string
	ledger    Ledger
	clock     clock.Clock
	observer  Observer
	window    time.Duration
	status    Status
	candidate *Candidate
	deadline  time.Time
	armedFor  time.Duration
	touched   time.Time
}

func NewSession(voterID string, l Ledger, c clock.Clock, window time.Duration) *Session {
	if c == nil {
		c = clock.Real()
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Session{
		voterID: voterID,
		ledger:  l,
		clock:   c,
		window:  window,
		status:  StatusIdle,
		touched: c.Now(),
	}
}

func (s *Session) VoterID() string {
	return s.voterID
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(s.clock.Now())
}

// Browse marks the voter as choosing a candidate.
func (s *Session) Browse() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	s.touched = now
	if s.status == StatusIdle {
		s.status = StatusSelecting
	}
	return s.snapshotLocked(now)
}

// Start arms the session for candidate. The window is fixed at this point and
// later configuration changes do not affect it.
func (s *Session) Start(candidate Candidate) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	s.touched = now

	if s.status != StatusIdle && s.status != StatusSelecting {
		return s.snapshotLocked(now), ErrSessionInProgress
	}
	candidate.EmployeeID = strings.TrimSpace(candidate.EmployeeID)
	if candidate.EmployeeID == "" || candidate.EmployeeID == s.voterID || strings.TrimSpace(candidate.SelectedIdea) == "" {
		return s.snapshotLocked(now), ErrInvalidCandidate
	}

	s.candidate = &candidate
	s.armedFor = s.window
	s.deadline = now.Add(s.armedFor)
	s.status = StatusArmed
	return s.snapshotLocked(now), nil
}

// Cast records the vote for the armed candidate. Terminal sessions never write
// again: Cast reports ErrAlreadyVoted and Expired reports ErrSessionExpired.
func (s *Session) Cast(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	s.touched = now

	switch s.status {
	case StatusCast:
		s.reject("already_voted")
		return s.snapshotLocked(now), ErrAlreadyVoted
	case StatusExpired:
		s.reject("expired")
		return s.snapshotLocked(now), ErrSessionExpired
	case StatusIdle, StatusSelecting:
		return s.snapshotLocked(now), ErrNoActiveSession
	}
	if !now.Before(s.deadline) {
		s.expireLocked()
		s.reject("expired")
		return s.snapshotLocked(now), ErrSessionExpired
	}

	voteeID := s.candidate.EmployeeID
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerTimeout)
	defer cancel()
	voted, err := s.ledger.HasVoted(ctx, s.voterID, voteeID)
	if err != nil {
		s.reject("ledger_error")
		return s.snapshotLocked(now), fmt.Errorf("%w: %w", ErrLedgerWrite, err)
	}
	if voted {
		s.reject("already_voted")
		return s.snapshotLocked(now), ErrAlreadyVoted
	}

	if _, err := s.ledger.Append(ctx, s.voterID, voteeID); err != nil {
		switch {
		case errors.Is(err, ledger.ErrAlreadyVoted):
			s.reject("already_voted")
			return s.snapshotLocked(now), ErrAlreadyVoted
		case errors.Is(err, ledger.ErrSelfVote), errors.Is(err, ledger.ErrUnknownEmployee), errors.Is(err, ledger.ErrInvalidVote):
			s.reject("invalid_candidate")
			return s.snapshotLocked(now), ErrInvalidCandidate
		default:
			s.reject("ledger_error")
			return s.snapshotLocked(now), fmt.Errorf("%w: %w", ErrLedgerWrite, err)
		}
	}

	s.status = StatusCast
	if s.observer != nil {
		s.observer.VoteCast()
	}
	return s.snapshotLocked(now), nil
}

// Tick expires an armed session whose deadline has passed and reports whether
// it did so.
func (s *Session) Tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusArmed || s.clock.Now().Before(s.deadline) {
		return false
	}
	s.expireLocked()
	return true
}

// SelectAnother discards the current attempt.
func (s *Session) SelectAnother() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	s.touched = now
	s.status = StatusIdle
	s.candidate = nil
	s.deadline = time.Time{}
	s.armedFor = 0
	return s.snapshotLocked(now)
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.touched = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.touched), s.status == StatusArmed
}

func (s *Session) expireLocked() {
	s.status = StatusExpired
	if s.observer != nil {
		s.observer.SessionExpired()
	}
}

func (s *Session) reject(reason string) {
	if s.observer != nil {
		s.observer.VoteRejected(reason)
	}
}

func (s *Session) snapshotLocked(now time.Time) Snapshot {
	snap := Snapshot{
		VoterID:       s.voterID,
		Status:        s.status,
		WindowSeconds: int(s.window / time.Second),
	}
	if s.candidate != nil {
		c := *s.candidate
		snap.Candidate = &c
		deadline := s.deadline
		snap.Deadline = &deadline
		snap.WindowSeconds = int(s.armedFor / time.Second)
	}
	if s.status == StatusArmed {
		snap.RemainingSeconds = remainingSeconds(s.deadline.Sub(now))
	}
	return snap
}

func remainingSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}
