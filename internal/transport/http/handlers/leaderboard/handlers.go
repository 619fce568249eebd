package leaderboardhandler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"ideavote/internal/domain/auth"
	"ideavote/internal/domain/leaderboard"
	"ideavote/internal/transport/http/api"
	"ideavote/internal/transport/http/middleware"
)

const (
	eventName         = "leaderboard"
	heartbeatInterval = 25 * time.Second
)

type Board interface {
	Current(ctx context.Context) (leaderboard.Board, error)
	Watch(ctx context.Context, emit func(leaderboard.Board) error) error
}

type StreamCounter interface {
	StreamOpened() func()
}

type Handler struct {
	Board     Board
	Streams   StreamCounter
	Heartbeat time.Duration
}

func NewHandler(board Board, streams StreamCounter) *Handler {
	return &Handler{Board: board, Streams: streams, Heartbeat: heartbeatInterval}
}

// RegisterRoutes mounts the public board. Callers that are signed in still
// need the read permission; anonymous viewers are allowed.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leaderboard", func(r chi.Router) {
		r.Use(allowAnonymousOr(auth.PermLeaderboardRead))
		r.Get("/", h.handleGet)
		r.Get("/stream", h.handleStream)
	})
}

func allowAnonymousOr(permission string) func(http.Handler) http.Handler {
	guard := middleware.RequirePermission(permission, nil)
	return func(next http.Handler) http.Handler {
		guarded := guard(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := middleware.GetPrincipal(r.Context()); !ok {
				next.ServeHTTP(w, r)
				return
			}
			guarded.ServeHTTP(w, r)
		})
	}
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	board, err := h.Board.Current(r.Context())
	if err != nil {
		slog.Error("leaderboard load failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "leaderboard_failed", "failed to load leaderboard", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, board, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "streaming_unsupported", "streaming is not supported", middleware.GetRequestID(r.Context()))
		return
	}
	if h.Streams != nil {
		defer h.Streams.StreamOpened()()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx, cancel := context.WithCancel(r.Context())

	// emit and the heartbeat share the writer; closed is set before the
	// handler returns so no write outlives it
	var (
		mu     sync.Mutex
		closed bool
		wg     sync.WaitGroup
	)
	write := func(format string, args ...any) error {
		mu.Lock()
		defer mu.Unlock()
		if closed || ctx.Err() != nil {
			return context.Canceled
		}
		if _, err := fmt.Fprintf(w, format, args...); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}
	defer func() {
		cancel()
		mu.Lock()
		closed = true
		mu.Unlock()
		wg.Wait()
	}()

	if h.Heartbeat > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(h.Heartbeat)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := write(": ping\n\n"); err != nil {
						cancel()
						return
					}
				}
			}
		}()
	}

	var seq int
	err := h.Board.Watch(ctx, func(board leaderboard.Board) error {
		payload, err := json.Marshal(board)
		if err != nil {
			return err
		}
		seq++
		return write("id: %d\nevent: %s\ndata: %s\n\n", seq, eventName, payload)
	})
	if err != nil && ctx.Err() == nil {
		slog.Warn("leaderboard stream ended", "err", err, "requestId", middleware.GetRequestID(r.Context()))
	}
}
