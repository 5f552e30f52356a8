// Package room runs friendly rooms: their lifecycle, membership and round
// progression. Every mutation goes through the store and is followed by the
// broadcasts that describe it.
package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/singleflight"

	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/engine"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/scramble"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/store"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/types"
	wire "github.com/ibrhyyme/Zkt-Timer-sub002/pkg/types"
)

// Broadcaster fans events out to room and lobby subscribers.
type Broadcaster interface {
	PublishToRoom(roomID string, msg types.ServerMessage)
	PublishToLobby(msg types.ServerMessage)
	// Expel stops delivering a room's events to every connection of a user.
	Expel(roomID, userID string)
	// Retire drops a deleted room's channel.
	Retire(roomID string)
}

type Options struct {
	BcryptCost int
	Now        func() time.Time
	NewID      func() string
	Presence   Presence
}

type Service struct {
	store     store.Store
	scrambles scramble.Provider
	bc        Broadcaster
	log       *zap.Logger

	cost     int
	now      func() time.Time
	newID    func() string
	presence Presence

	lists singleflight.Group
}

func NewService(st store.Store, sp scramble.Provider, bc Broadcaster, log *zap.Logger, opts Options) *Service {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Service{
		store:     st,
		scrambles: sp,
		bc:        bc,
		log:       log.With(zap.String("component", "room")),
		cost:      opts.BcryptCost,
		now:       opts.Now,
		newID:     opts.NewID,
		presence:  opts.Presence,
	}
}

func (s *Service) room(ctx context.Context, roomID string) (engine.Room, error) {
	r, err := s.store.GetRoom(ctx, roomID)
	if errors.Is(err, store.ErrNotFound) {
		return r, ErrRoomNotFound
	}
	if err != nil {
		return r, fmt.Errorf("get room %s: %w", roomID, err)
	}
	return r, nil
}

func (s *Service) publish(roomID, typ string, payload any) {
	s.bc.PublishToRoom(roomID, types.ServerMessage{Type: typ, RoomID: roomID, Payload: payload})
}

func (s *Service) notify(roomID, kind, text string) {
	s.publish(roomID, wire.Notification, wire.NotificationPayload{Type: kind, Message: text})
}

// pushLobby sends the current room list to lobby observers. Failures only cost
// observers one refresh, so they are logged and swallowed.
func (s *Service) pushLobby(ctx context.Context) {
	rooms, err := s.listRooms(ctx)
	if err != nil {
		s.log.Warn("lobby refresh failed", zap.Error(err))
		return
	}
	s.bc.PublishToLobby(types.ServerMessage{Type: wire.RoomsList, Payload: rooms})
}

func (s *Service) listRooms(ctx context.Context) ([]wire.RoomView, error) {
	rooms, err := s.store.ListActiveRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	out := make([]wire.RoomView, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, roomView(r))
	}
	return out, nil
}

// List returns every open room. Concurrent callers share one store read.
func (s *Service) List(ctx context.Context) ([]wire.RoomView, error) {
	v, err, _ := s.lists.Do("rooms", func() (any, error) {
		return s.listRooms(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	return v.([]wire.RoomView), nil
}

// Get returns a room without its chat, which only members receive.
func (s *Service) Get(ctx context.Context, roomID string) (wire.RoomView, error) {
	r, err := s.room(ctx, roomID)
	if err != nil {
		return wire.RoomView{}, err
	}
	return roomView(r), nil
}

// fullView is the member view of a room, carrying its recent chat.
func (s *Service) fullView(ctx context.Context, r engine.Room) (wire.RoomView, error) {
	chat, err := s.recentChat(ctx, r.ID)
	if err != nil {
		return wire.RoomView{}, err
	}
	v := roomView(r)
	v.RecentChat = chat
	return v, nil
}

// RoomsOf lists the rooms a user currently occupies.
func (s *Service) RoomsOf(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.store.RoomIDsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("rooms of %s: %w", userID, err)
	}
	return ids, nil
}
