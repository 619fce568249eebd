package voting

import (
	"context"
	"sync"
	"testing"
	"time"

	"ideavote/internal/platform/clock"
)

type countingObserver struct {
	mu       sync.Mutex
	cast     int
	rejected map[string]int
	expired  int
}

func (o *countingObserver) VoteCast() {
	o.mu.Lock()
	o.cast++
	o.mu.Unlock()
}

func (o *countingObserver) VoteRejected(reason string) {
	o.mu.Lock()
	if o.rejected == nil {
		o.rejected = map[string]int{}
	}
	o.rejected[reason]++
	o.mu.Unlock()
}

func (o *countingObserver) SessionExpired() {
	o.mu.Lock()
	o.expired++
	o.mu.Unlock()
}

func TestRegistryReturnsSameSession(t *testing.T) {
	r := NewRegistry(newFakeLedger())
	a := r.Session("V")
	b := r.Session(" V ")
	if a != b {
		t.Fatal("expected one session per voter")
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", r.Len())
	}
	if _, ok := r.lookup("W"); ok {
		t.Fatal("lookup must not create sessions")
	}
}

func TestRegistryCapturesWindow(t *testing.T) {
	clk := clock.NewManual(epoch)
	r := NewRegistry(newFakeLedger(), WithClock(clk), WithWindow(10*time.Second))
	snap, err := r.Session("V").Start(candidate)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if snap.WindowSeconds != 10 || !snap.Deadline.Equal(epoch.Add(10*time.Second)) {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestSweepExpiresAndEvicts(t *testing.T) {
	clk := clock.NewManual(epoch)
	obs := &countingObserver{}
	r := NewRegistry(newFakeLedger(), WithClock(clk), WithIdleTTL(time.Minute), WithObserver(obs))

	r.Session("idle").Browse()
	r.Session("armed").Start(candidate)

	clk.Advance(46 * time.Second)
	expired, evicted := r.Sweep()
	if expired != 1 || evicted != 0 {
		t.Fatalf("expected 1 expiry and no evictions, got %d/%d", expired, evicted)
	}

	clk.Advance(2 * time.Minute)
	_, evicted = r.Sweep()
	if evicted != 2 || r.Len() != 0 {
		t.Fatalf("expected both sessions evicted, got %d (len %d)", evicted, r.Len())
	}
	if obs.expired != 1 {
		t.Fatalf("expected observer to see 1 expiry, got %d", obs.expired)
	}
}

func TestSweepKeepsArmedSessions(t *testing.T) {
	clk := clock.NewManual(epoch)
	r := NewRegistry(newFakeLedger(), WithClock(clk), WithWindow(time.Hour), WithIdleTTL(time.Minute))
	r.Session("V").Start(candidate)
	clk.Advance(5 * time.Minute)
	if _, evicted := r.Sweep(); evicted != 0 {
		t.Fatal("armed session evicted before its deadline")
	}
}

func TestSweepSparesSessionArmedDuringScan(t *testing.T) {
	clk := clock.NewManual(epoch)
	r := NewRegistry(newFakeLedger(), WithClock(clk), WithIdleTTL(time.Minute))
	s := r.Session("V")
	s.Browse()
	clk.Advance(5 * time.Minute)

	r.beforeEvict = func() {
		if _, err := r.Session("V").Start(candidate); err != nil {
			t.Errorf("start: %v", err)
		}
	}
	if _, evicted := r.Sweep(); evicted != 0 {
		t.Fatalf("expected the freshly armed session to survive, evicted %d", evicted)
	}
	if got := r.Session("V"); got != s || got.Snapshot().Status != StatusArmed {
		t.Fatalf("expected the armed session to be kept, got %+v", got.Snapshot())
	}
}

func TestSessionFetchCountsAsActivity(t *testing.T) {
	clk := clock.NewManual(epoch)
	r := NewRegistry(newFakeLedger(), WithClock(clk), WithIdleTTL(time.Minute))
	s := r.Session("V")
	clk.Advance(5 * time.Minute)
	if r.Session("V") != s {
		t.Fatal("expected the existing session")
	}
	if _, evicted := r.Sweep(); evicted != 0 {
		t.Fatal("session handed out just now was evicted")
	}
	clk.Advance(2 * time.Minute)
	if _, evicted := r.Sweep(); evicted != 1 {
		t.Fatalf("expected idle session to be evicted, got %d", evicted)
	}
}

func TestRunDrivesExpiry(t *testing.T) {
	clk := clock.NewManual(epoch)
	r := NewRegistry(newFakeLedger(), WithClock(clk), WithTick(time.Second))
	s := r.Session("V")
	s.Start(candidate)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for s.Snapshot().Status != StatusExpired {
		if time.Now().After(deadline) {
			t.Fatal("session never expired")
		}
		clk.Advance(time.Second)
		time.Sleep(time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run did not stop")
	}
}

func TestObserverSeesOutcomes(t *testing.T) {
	clk := clock.NewManual(epoch)
	obs := &countingObserver{}
	r := NewRegistry(newFakeLedger(), WithClock(clk), WithObserver(obs))
	s := r.Session("V")
	s.Start(candidate)
	s.Cast(context.Background())
	s.Cast(context.Background())

	if obs.cast != 1 || obs.rejected["already_voted"] != 1 {
		t.Fatalf("unexpected observer counts %+v", obs)
	}
}
