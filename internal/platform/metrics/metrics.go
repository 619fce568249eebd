package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64

	votesCast       uint64
	sessionsExpired uint64
	streamClients   int64

	mu       sync.Mutex
	rejected map[string]uint64
}

func New() *Collector {
	return &Collector{rejected: map[string]uint64{}}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

func (c *Collector) VoteCast() {
	atomic.AddUint64(&c.votesCast, 1)
}

func (c *Collector) VoteRejected(reason string) {
	c.mu.Lock()
	c.rejected[reason]++
	c.mu.Unlock()
}

func (c *Collector) SessionExpired() {
	atomic.AddUint64(&c.sessionsExpired, 1)
}

// StreamOpened tracks a live leaderboard client. Call the returned func when
// the stream ends.
func (c *Collector) StreamOpened() func() {
	atomic.AddInt64(&c.streamClients, 1)
	var once sync.Once
	return func() {
		once.Do(func() { atomic.AddInt64(&c.streamClients, -1) })
	}
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	limited := atomic.LoadUint64(&c.rateLimited)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}

	c.mu.Lock()
	rejected := make(map[string]uint64, len(c.rejected))
	for reason, n := range c.rejected {
		rejected[reason] = n
	}
	c.mu.Unlock()

	return map[string]any{
		"requestsTotal":        total,
		"errorsTotal":          errs,
		"rateLimitedTotal":     limited,
		"avgDurationMs":        avg,
		"totalDurationMs":      totalMs,
		"votesCastTotal":       atomic.LoadUint64(&c.votesCast),
		"votesRejectedTotal":   rejected,
		"sessionsExpiredTotal": atomic.LoadUint64(&c.sessionsExpired),
		"leaderboardStreams":   atomic.LoadInt64(&c.streamClients),
	}
}
