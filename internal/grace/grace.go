// Package grace turns a lost connection into a deferred leave. A user who drops
// or hides the tab gets a fixed window to come back before being evicted from
// every room they occupy.
package grace

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/auth"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/engine"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/metrics"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/room"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/types"
	wire "github.com/ibrhyyme/Zkt-Timer-sub002/pkg/types"
)

const evictTimeout = 30 * time.Second

// Rooms is what the coordinator needs from the room service.
type Rooms interface {
	RoomsOf(ctx context.Context, userID string) ([]string, error)
	Evict(ctx context.Context, roomID string, user auth.User) (room.Departure, error)
}

type Broadcaster interface {
	PublishToRoom(roomID string, msg types.ServerMessage)
}

// Peers reaches the other server instances. A user may come back through a
// different instance than the one holding their timer.
type Peers interface {
	Back(userID string)
}

type Coordinator struct {
	rooms Rooms
	bc    Broadcaster
	reg   *Registry
	peers Peers
	log   *zap.Logger

	window    time.Duration
	now       func() time.Time
	afterFunc func(time.Duration, func()) Timer

	// seq orders status broadcasts with the registry change they describe.
	seq sync.Mutex
}

type Option func(*Coordinator)

func WithWindow(d time.Duration) Option {
	return func(c *Coordinator) { c.window = d }
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func WithPeers(p Peers) Option {
	return func(c *Coordinator) { c.peers = p }
}

func WithAfterFunc(f func(time.Duration, func()) Timer) Option {
	return func(c *Coordinator) { c.afterFunc = f }
}

func New(rooms Rooms, bc Broadcaster, reg *Registry, log *zap.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		rooms:  rooms,
		bc:     bc,
		reg:    reg,
		log:    log.With(zap.String("component", "grace")),
		window: engine.GracePeriod,
		now:    time.Now,
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartGracePeriod marks user DISCONNECTED in every room they occupy and arms
// their eviction timer, restarting it if one is already running.
func (c *Coordinator) StartGracePeriod(ctx context.Context, user auth.User) {
	roomIDs, err := c.rooms.RoomsOf(ctx, user.ID)
	if err != nil {
		c.log.Error("rooms lookup failed", zap.String("user_id", user.ID), zap.Error(err))
	}

	c.seq.Lock()
	defer c.seq.Unlock()

	expires := c.now().Add(c.window)
	c.reg.arm(user.ID, expires, func(gen uint64) Timer {
		return c.afterFunc(c.window, func() { c.expire(user, gen) })
	})
	metrics.GracePeriods.WithLabelValues("started").Inc()
	c.log.Debug("grace period started", zap.String("user_id", user.ID), zap.Time("expires", expires))

	c.broadcastStatus(roomIDs, user.ID, room.DisconnectedStatus(expires))
}

// CancelGracePeriod stops a pending eviction and marks user IDLE again, here
// and on every peer. It reports whether this instance had a grace period running.
func (c *Coordinator) CancelGracePeriod(ctx context.Context, user auth.User) bool {
	cancelled := c.Resume(ctx, user.ID)
	if c.peers != nil {
		c.peers.Back(user.ID)
	}
	return cancelled
}

// Resume cancels a grace period held by this instance only. Peers call it when
// a user returns elsewhere.
func (c *Coordinator) Resume(ctx context.Context, userID string) bool {
	roomIDs, err := c.rooms.RoomsOf(ctx, userID)
	if err != nil {
		c.log.Error("rooms lookup failed", zap.String("user_id", userID), zap.Error(err))
	}

	c.seq.Lock()
	defer c.seq.Unlock()

	if !c.reg.cancel(userID) {
		return false
	}
	metrics.GracePeriods.WithLabelValues("cancelled").Inc()
	c.log.Debug("grace period cancelled", zap.String("user_id", userID))

	c.broadcastStatus(roomIDs, userID, wire.StatusIdle)
	return true
}

func (c *Coordinator) HandleDisconnect(ctx context.Context, user auth.User) { c.StartGracePeriod(ctx, user) }
func (c *Coordinator) SignalAway(ctx context.Context, user auth.User)       { c.StartGracePeriod(ctx, user) }

func (c *Coordinator) HandleReconnect(ctx context.Context, user auth.User) { c.CancelGracePeriod(ctx, user) }
func (c *Coordinator) SignalBack(ctx context.Context, user auth.User)      { c.CancelGracePeriod(ctx, user) }

func (c *Coordinator) broadcastStatus(roomIDs []string, userID, status string) {
	for _, id := range roomIDs {
		c.bc.PublishToRoom(id, types.ServerMessage{
			Type:    wire.UserStatus,
			RoomID:  id,
			Payload: wire.UserStatusPayload{UserID: userID, Status: status},
		})
	}
}

// expire runs on the timer goroutine. The registry entry is removed before any
// eviction, so a late cancel finds nothing and a replaced timer does nothing.
func (c *Coordinator) expire(user auth.User, gen uint64) {
	if !c.reg.take(user.ID, gen) {
		return
	}
	metrics.GracePeriods.WithLabelValues("expired").Inc()

	ctx, cancel := context.WithTimeout(context.Background(), evictTimeout)
	defer cancel()

	roomIDs, err := c.rooms.RoomsOf(ctx, user.ID)
	if err != nil {
		c.log.Error("rooms lookup failed on expiry", zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	for _, id := range roomIDs {
		_, err := c.rooms.Evict(ctx, id, user)
		switch {
		case err == nil:
			c.log.Info("evicted after grace period", zap.String("user_id", user.ID), zap.String("room_id", id))
		case errors.Is(err, room.ErrNotParticipant), errors.Is(err, room.ErrRoomNotFound):
		default:
			c.log.Error("eviction failed", zap.String("user_id", user.ID), zap.String("room_id", id), zap.Error(err))
		}
	}
}
