package ws

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Counter keeps a user's connection count across every server instance.
type Counter interface {
	Add(ctx context.Context, userID string, delta int64) (int64, error)
}

// tracker counts live connections per user. Callbacks for one user run one at
// a time, so a reconnect can never be overtaken by the disconnect before it.
// With a shared counter a user only counts as gone once no instance holds a
// connection for them.
type tracker struct {
	mu      sync.Mutex
	users   map[string]*userConns
	counter Counter
	log     *zap.Logger
}

type userConns struct {
	mu   sync.Mutex
	n    int
	refs int
}

func newTracker(counter Counter, log *zap.Logger) *tracker {
	return &tracker{users: make(map[string]*userConns), counter: counter, log: log}
}

// open records a connection and runs fn.
func (t *tracker) open(ctx context.Context, userID string, fn func()) {
	u := t.acquire(userID)
	defer t.release(userID, u)
	u.n++
	if t.counter != nil {
		if _, err := t.counter.Add(ctx, userID, 1); err != nil {
			t.log.Warn("shared connection count failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	fn()
}

// close forgets a connection and runs onLast when it was the user's last one.
func (t *tracker) close(ctx context.Context, userID string, onLast func()) {
	u := t.acquire(userID)
	defer t.release(userID, u)
	if u.n > 0 {
		u.n--
	}
	last := u.n == 0
	if t.counter != nil {
		total, err := t.counter.Add(ctx, userID, -1)
		switch {
		case err != nil:
			t.log.Warn("shared connection count failed", zap.String("user_id", userID), zap.Error(err))
		case total > 0:
			last = false
		}
	}
	if last {
		onLast()
	}
}

func (t *tracker) count(userID string) int {
	u := t.acquire(userID)
	defer t.release(userID, u)
	return u.n
}

func (t *tracker) acquire(userID string) *userConns {
	t.mu.Lock()
	u := t.users[userID]
	if u == nil {
		u = &userConns{}
		t.users[userID] = u
	}
	u.refs++
	t.mu.Unlock()

	u.mu.Lock()
	return u
}

func (t *tracker) release(userID string, u *userConns) {
	n := u.n
	u.mu.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	u.refs--
	if u.refs == 0 && n == 0 && t.users[userID] == u {
		delete(t.users, userID)
	}
}
