package voting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ideavote/internal/domain/ledger"
	"ideavote/internal/platform/clock"
)

type fakeLedger struct {
	mu        sync.Mutex
	pairs     map[string]bool
	appendErr error
	hasErr    error
	raceDup   bool
	appends   int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{pairs: map[string]bool{}}
}

func (f *fakeLedger) HasVoted(ctx context.Context, voterID, voteeID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if f.hasErr != nil {
		return false, f.hasErr
	}
	return f.pairs[voterID+"->"+voteeID], nil
}

func (f *fakeLedger) Append(ctx context.Context, voterID, voteeID string) (ledger.Vote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return ledger.Vote{}, err
	}
	f.appends++
	if f.appendErr != nil {
		return ledger.Vote{}, f.appendErr
	}
	key := voterID + "->" + voteeID
	if f.raceDup || f.pairs[key] {
		return ledger.Vote{}, ledger.ErrAlreadyVoted
	}
	f.pairs[key] = true
	return ledger.Vote{ID: key, VoterEmployeeID: voterID, VotedForEmployeeID: voteeID}, nil
}

func (f *fakeLedger) rows() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pairs)
}

var (
	epoch     = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	candidate = Candidate{EmployeeID: "D", Name: "Dana", SelectedIdea: "Solar carports"}
)

func newTestSession(l Ledger) (*Session, *clock.Manual) {
	clk := clock.NewManual(epoch)
	return NewSession("V", l, clk, 45*time.Second), clk
}

func TestStartRejectsInvalidCandidates(t *testing.T) {
	tests := []struct {
		name      string
		candidate Candidate
	}{
		{name: "self", candidate: Candidate{EmployeeID: "V", SelectedIdea: "idea"}},
		{name: "no idea", candidate: Candidate{EmployeeID: "D", SelectedIdea: "  "}},
		{name: "no id", candidate: Candidate{SelectedIdea: "idea"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestSession(newFakeLedger())
			s.Browse()
			snap, err := s.Start(tt.candidate)
			if !errors.Is(err, ErrInvalidCandidate) {
				t.Fatalf("expected invalid candidate, got %v", err)
			}
			if snap.Status != StatusSelecting || snap.Candidate != nil {
				t.Fatalf("expected no state change, got %+v", snap)
			}
		})
	}
}

func TestStartWhileArmedIsRejected(t *testing.T) {
	s, _ := newTestSession(newFakeLedger())
	if _, err := s.Start(candidate); err != nil {
		t.Fatalf("start: %v", err)
	}
	other := Candidate{EmployeeID: "E", SelectedIdea: "idea"}
	snap, err := s.Start(other)
	if !errors.Is(err, ErrSessionInProgress) {
		t.Fatalf("expected session in progress, got %v", err)
	}
	if snap.Candidate.EmployeeID != "D" {
		t.Fatalf("candidate changed to %s", snap.Candidate.EmployeeID)
	}
}

func TestCastWithinWindow(t *testing.T) {
	l := newFakeLedger()
	s, clk := newTestSession(l)
	if _, err := s.Start(candidate); err != nil {
		t.Fatalf("start: %v", err)
	}
	clk.Advance(44 * time.Second)
	snap, err := s.Cast(context.Background())
	if err != nil {
		t.Fatalf("cast: %v", err)
	}
	if snap.Status != StatusCast || l.rows() != 1 {
		t.Fatalf("expected cast with one row, got %s and %d rows", snap.Status, l.rows())
	}
}

func TestDoubleCastYieldsOneRow(t *testing.T) {
	l := newFakeLedger()
	s, _ := newTestSession(l)
	s.Start(candidate)

	if _, err := s.Cast(context.Background()); err != nil {
		t.Fatalf("first cast: %v", err)
	}
	snap, err := s.Cast(context.Background())
	if !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("expected already voted, got %v", err)
	}
	if snap.Status != StatusCast {
		t.Fatalf("expected terminal status to be kept, got %s", snap.Status)
	}
	if l.rows() != 1 || l.appends != 1 {
		t.Fatalf("expected one append, got %d rows and %d appends", l.rows(), l.appends)
	}
}

func TestCastAfterDeadlineExpires(t *testing.T) {
	l := newFakeLedger()
	s, clk := newTestSession(l)
	s.Start(candidate)
	clk.Advance(46 * time.Second)

	snap, err := s.Cast(context.Background())
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
	if snap.Status != StatusExpired {
		t.Fatalf("expected expired status, got %s", snap.Status)
	}
	if l.rows() != 0 || l.appends != 0 {
		t.Fatalf("expected no ledger writes, got %d", l.appends)
	}
	if _, err := s.Cast(context.Background()); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected expired on repeat, got %v", err)
	}
}

func TestCastExactlyAtDeadlineExpires(t *testing.T) {
	s, clk := newTestSession(newFakeLedger())
	s.Start(candidate)
	clk.Advance(45 * time.Second)
	if _, err := s.Cast(context.Background()); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected expired at deadline, got %v", err)
	}
}

func TestTickExpiresArmedSession(t *testing.T) {
	s, clk := newTestSession(newFakeLedger())
	if s.Tick() {
		t.Fatal("idle session must not expire")
	}
	s.Start(candidate)
	clk.Advance(44 * time.Second)
	if s.Tick() {
		t.Fatal("expired before deadline")
	}
	clk.Advance(time.Second)
	if !s.Tick() {
		t.Fatal("expected expiry at deadline")
	}
	if s.Tick() {
		t.Fatal("expiry must fire once")
	}
	if got := s.Snapshot().Status; got != StatusExpired {
		t.Fatalf("expected expired, got %s", got)
	}
}

func TestLedgerFailureKeepsSessionArmed(t *testing.T) {
	l := newFakeLedger()
	l.appendErr = errors.New("connection refused")
	s, _ := newTestSession(l)
	s.Start(candidate)

	snap, err := s.Cast(context.Background())
	if !errors.Is(err, ErrLedgerWrite) {
		t.Fatalf("expected ledger write error, got %v", err)
	}
	if !errors.Is(err, l.appendErr) {
		t.Fatalf("expected cause to be wrapped, got %v", err)
	}
	if snap.Status != StatusArmed {
		t.Fatalf("expected armed, got %s", snap.Status)
	}

	l.appendErr = nil
	if _, err := s.Cast(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if l.rows() != 1 {
		t.Fatalf("expected one row after retry, got %d", l.rows())
	}
}

func TestLedgerLookupFailureIsRetryable(t *testing.T) {
	l := newFakeLedger()
	l.hasErr = errors.New("timeout")
	s, _ := newTestSession(l)
	s.Start(candidate)
	if _, err := s.Cast(context.Background()); !errors.Is(err, ErrLedgerWrite) {
		t.Fatalf("expected ledger write error, got %v", err)
	}
	if l.appends != 0 {
		t.Fatal("append must not run after a failed lookup")
	}
}

func TestPriorVoteFromAnotherSession(t *testing.T) {
	l := newFakeLedger()
	l.pairs["V->D"] = true
	s, _ := newTestSession(l)
	s.Start(candidate)

	snap, err := s.Cast(context.Background())
	if !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("expected already voted, got %v", err)
	}
	if snap.Status != StatusArmed {
		t.Fatalf("expected session to stay armed, got %s", snap.Status)
	}
	if l.appends != 0 {
		t.Fatalf("expected no append, got %d", l.appends)
	}
}

func TestConstraintRaceMapsToAlreadyVoted(t *testing.T) {
	l := newFakeLedger()
	l.raceDup = true
	s, _ := newTestSession(l)
	s.Start(candidate)
	snap, err := s.Cast(context.Background())
	if !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("expected already voted, got %v", err)
	}
	if snap.Status != StatusArmed {
		t.Fatalf("expected armed, got %s", snap.Status)
	}
}

func TestCastWithoutSession(t *testing.T) {
	s, _ := newTestSession(newFakeLedger())
	if _, err := s.Cast(context.Background()); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected no active session, got %v", err)
	}
	s.Browse()
	if _, err := s.Cast(context.Background()); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected no active session while selecting, got %v", err)
	}
}

func TestSelectAnotherResets(t *testing.T) {
	l := newFakeLedger()
	s, clk := newTestSession(l)
	s.Start(candidate)
	clk.Advance(time.Minute)
	s.Tick()

	snap := s.SelectAnother()
	if snap.Status != StatusIdle || snap.Candidate != nil || snap.Deadline != nil {
		t.Fatalf("expected clean idle snapshot, got %+v", snap)
	}
	if _, err := s.Start(candidate); err != nil {
		t.Fatalf("restart after reset: %v", err)
	}
	if _, err := s.Cast(context.Background()); err != nil {
		t.Fatalf("cast after reset: %v", err)
	}
}

func TestSnapshotRemainingSeconds(t *testing.T) {
	s, clk := newTestSession(newFakeLedger())
	s.Start(candidate)
	clk.Advance(10*time.Second + 500*time.Millisecond)

	snap := s.Snapshot()
	if snap.RemainingSeconds != 35 {
		t.Fatalf("expected 35 seconds remaining, got %d", snap.RemainingSeconds)
	}
	if snap.WindowSeconds != 45 {
		t.Fatalf("expected 45 second window, got %d", snap.WindowSeconds)
	}
	if !snap.Deadline.Equal(epoch.Add(45 * time.Second)) {
		t.Fatalf("unexpected deadline %v", snap.Deadline)
	}
}

func TestTickAndCastNeverBothWin(t *testing.T) {
	for i := 0; i < 200; i++ {
		l := newFakeLedger()
		s, clk := newTestSession(l)
		s.Start(candidate)
		clk.Advance(44 * time.Second)

		var wg sync.WaitGroup
		var castErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, castErr = s.Cast(context.Background())
		}()
		go func() {
			defer wg.Done()
			clk.Advance(time.Second)
			s.Tick()
		}()
		wg.Wait()

		switch s.Snapshot().Status {
		case StatusCast:
			if castErr != nil || l.rows() != 1 {
				t.Fatalf("cast status with err=%v rows=%d", castErr, l.rows())
			}
		case StatusExpired:
			if !errors.Is(castErr, ErrSessionExpired) || l.rows() != 0 {
				t.Fatalf("expired status with err=%v rows=%d", castErr, l.rows())
			}
		default:
			t.Fatalf("unexpected status %s", s.Snapshot().Status)
		}
	}
}

func TestCastSurvivesCallerCancellation(t *testing.T) {
	clk := clock.NewManual(epoch)
	l := newFakeLedger()
	s := NewSession("V", l, clk, DefaultWindow)
	if _, err := s.Start(candidate); err != nil {
		t.Fatalf("start: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	snap, err := s.Cast(ctx)
	if err != nil || snap.Status != StatusCast {
		t.Fatalf("expected the vote to be recorded despite the cancelled request, got %v %+v", err, snap)
	}
	if l.rows() != 1 {
		t.Fatalf("expected one ledger row, got %d", l.rows())
	}
	if _, err := s.Cast(context.Background()); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("expected repeat cast to report already voted, got %v", err)
	}
}
