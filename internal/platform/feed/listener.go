package feed

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Publisher is the sink the listener forwards notifications into.
type Publisher interface {
	Publish(evt Event) int
}

// Listener holds a dedicated pool connection on LISTEN and forwards each
// notification payload ({"id","table","op"}) as an Event.
type Listener struct {
	Pool       *pgxpool.Pool
	Channel    string
	Sink       Publisher
	RetryDelay time.Duration
}

// Channel is the NOTIFY channel the votes and employees triggers publish on.
// It must match migrations/0002 and 0003.
const Channel = "vote_changes"

func NewListener(pool *pgxpool.Pool, sink Publisher) *Listener {
	return &Listener{Pool: pool, Channel: Channel, Sink: sink, RetryDelay: 2 * time.Second}
}

// Run blocks until ctx is done, reconnecting after connection failures.
func (l *Listener) Run(ctx context.Context) {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		slog.Warn("change feed listener interrupted", "channel", l.Channel, "err", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(l.RetryDelay):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.Channel}.Sanitize()); err != nil {
		return err
	}
	slog.Info("change feed listening", "channel", l.Channel)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		evt, err := DecodeNotification(n.Payload)
		if err != nil {
			slog.Warn("change feed payload rejected", "channel", l.Channel, "err", err)
			continue
		}
		l.Sink.Publish(evt)
	}
}

func DecodeNotification(payload string) (Event, error) {
	var evt Event
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		return Event{}, err
	}
	if evt.Table == "" {
		return Event{}, errors.New("notification missing table")
	}
	switch evt.Op {
	case OpInsert, OpUpdate, OpDelete:
	default:
		return Event{}, errors.New("notification has unknown op " + string(evt.Op))
	}
	return evt, nil
}
