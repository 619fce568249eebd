package feed

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

const (
	defaultSubscriberCapacity = 16
	defaultDedupeWindow       = 1024

	TableVotes     = "votes"
	TableEmployees = "employees"
)

type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// Event announces that a row in Table changed. ID is the row id when known and
// doubles as the dedupe key, so a change observed both locally and through
// Postgres NOTIFY is delivered once.
type Event struct {
	ID    string    `json:"id"`
	Table string    `json:"table"`
	Op    Op        `json:"op"`
	At    time.Time `json:"at"`
}

type BrokerOption func(*Broker)

func WithSubscriberCapacity(capacity int) BrokerOption {
	return func(b *Broker) {
		if capacity > 0 {
			b.capacity = capacity
		}
	}
}

func WithDedupeWindow(size int) BrokerOption {
	return func(b *Broker) {
		if size > 0 {
			b.dedupeWindow = size
		}
	}
}

func WithClock(now func() time.Time) BrokerOption {
	return func(b *Broker) {
		if now != nil {
			b.now = now
		}
	}
}

// Broker fans change events out to in-process subscribers.
type Broker struct {
	mu           sync.RWMutex
	subscribers  map[string]map[*subscriber]struct{}
	recentIDs    map[string]struct{}
	recentOrder  []string
	capacity     int
	dedupeWindow int
	closed       bool
	now          func() time.Time
}

type Subscription struct {
	Events <-chan Event
	cancel func()
}

// Close unsubscribes and closes Events. Safe to call more than once.
func (s *Subscription) Close() {
	if s != nil && s.cancel != nil {
		s.cancel()
	}
}

func NewBroker(opts ...BrokerOption) *Broker {
	b := &Broker{
		subscribers:  map[string]map[*subscriber]struct{}{},
		recentIDs:    map[string]struct{}{},
		capacity:     defaultSubscriberCapacity,
		dedupeWindow: defaultDedupeWindow,
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *Broker) Subscribe(table string) *Subscription {
	key := normalizeTable(table)
	sub := newSubscriber(b.capacity)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.close()
		return &Subscription{Events: sub.ch}
	}
	if b.subscribers[key] == nil {
		b.subscribers[key] = map[*subscriber]struct{}{}
	}
	b.subscribers[key][sub] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return &Subscription{
		Events: sub.ch,
		cancel: func() {
			once.Do(func() { b.remove(key, sub) })
		},
	}
}

// Publish delivers evt to every subscriber of evt.Table and reports how many
// received it. Duplicate ids inside the dedupe window are dropped.
func (b *Broker) Publish(evt Event) int {
	if evt.At.IsZero() {
		evt.At = b.now()
	}
	if evt.ID != "" && b.isDuplicate(evt.Op, evt.ID) {
		return 0
	}

	key := normalizeTable(evt.Table)
	b.mu.RLock()
	subs := make([]*subscriber, 0, len(b.subscribers[key]))
	for sub := range b.subscribers[key] {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	delivered := 0
	for _, sub := range subs {
		if sub.deliver(evt) {
			delivered++
		}
	}
	return delivered
}

func (b *Broker) SubscriberCount(table string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[normalizeTable(table)])
}

// Close drops every subscriber. Later subscriptions receive a closed channel.
func (b *Broker) Close() {
	b.mu.Lock()
	b.closed = true
	all := b.subscribers
	b.subscribers = map[string]map[*subscriber]struct{}{}
	b.mu.Unlock()

	for _, subs := range all {
		for sub := range subs {
			sub.close()
		}
	}
}

func (b *Broker) remove(key string, sub *subscriber) {
	b.mu.Lock()
	if subs := b.subscribers[key]; subs != nil {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.subscribers, key)
		}
	}
	b.mu.Unlock()
	sub.close()
}

func (b *Broker) isDuplicate(op Op, id string) bool {
	key := string(op) + ":" + id
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.recentIDs[key]; ok {
		return true
	}
	b.recentIDs[key] = struct{}{}
	b.recentOrder = append(b.recentOrder, key)
	if len(b.recentOrder) > b.dedupeWindow {
		oldest := b.recentOrder[0]
		b.recentOrder = b.recentOrder[1:]
		delete(b.recentIDs, oldest)
	}
	return false
}

func normalizeTable(table string) string {
	return strings.ToLower(strings.TrimSpace(table))
}

type subscriber struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

func newSubscriber(capacity int) *subscriber {
	return &subscriber{ch: make(chan Event, capacity)}
}

// deliver never blocks. A full buffer already holds a pending change for the
// reader, so the incoming event is dropped.
func (s *subscriber) deliver(evt Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- evt:
		return true
	default:
		slog.Debug("feed subscriber full, event coalesced", "table", evt.Table, "id", evt.ID)
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
