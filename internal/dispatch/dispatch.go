// Package dispatch maps client events onto room operations and decides who
// hears about the outcome.
package dispatch

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/auth"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/channel"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/engine"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/hub"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/room"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/types"
	wire "github.com/ibrhyyme/Zkt-Timer-sub002/pkg/types"
)

const maxStatusLength = 64

var (
	ErrUnknownEvent = errors.New("unknown event")
	ErrMissingField = errors.New("missing field")
)

// Subscriptions is the local channel registry connections listen on.
type Subscriptions interface {
	Subscribe(name string, sub channel.Subscriber)
	Unsubscribe(name, id string)
}

// Fanout delivers client-originated events that bypass the room service.
type Fanout interface {
	PublishToRoomExcept(roomID, exceptID string, msg types.ServerMessage)
}

type Presence interface {
	SignalAway(ctx context.Context, user auth.User)
	SignalBack(ctx context.Context, user auth.User)
	CancelGracePeriod(ctx context.Context, user auth.User) bool
}

type Dispatcher struct {
	rooms    *room.Service
	subs     Subscriptions
	fan      Fanout
	presence Presence
	log      *zap.Logger
}

func New(rooms *room.Service, subs Subscriptions, fan Fanout, presence Presence, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		rooms:    rooms,
		subs:     subs,
		fan:      fan,
		presence: presence,
		log:      log.With(zap.String("component", "dispatch")),
	}
}

// Handle runs one client event. Failures are reported to the acting session
// only; nothing is broadcast for an operation that did not happen.
func (d *Dispatcher) Handle(ctx context.Context, s *Session, m types.ClientMessage) {
	if err := d.handle(ctx, s, m); err != nil {
		d.fail(s, m, err)
	}
}

func (d *Dispatcher) handle(ctx context.Context, s *Session, m types.ClientMessage) error {
	switch m.Type {
	case wire.GetRooms:
		if !s.lobby {
			d.subs.Subscribe(hub.LobbyChannel, s.subscriber())
			s.lobby = true
		}
		rooms, err := d.rooms.List(ctx)
		if err != nil {
			return err
		}
		s.Send(types.ServerMessage{Type: wire.RoomsList, Payload: rooms})

	case wire.LeaveLobby:
		if s.lobby {
			d.subs.Unsubscribe(hub.LobbyChannel, s.ID)
			s.lobby = false
		}

	case wire.GetRoom:
		v, err := d.rooms.Get(ctx, m.RoomID)
		if err != nil {
			return err
		}
		s.Send(types.ServerMessage{Type: wire.RoomData, RoomID: v.ID, Payload: v})

	case wire.CreateRoom:
		if m.Spec == nil {
			return ErrMissingField
		}
		v, err := d.rooms.Create(ctx, s.User, engine.CreateSpec{
			Name:         m.Spec.Name,
			PuzzleType:   m.Spec.PuzzleType,
			MaxPlayers:   m.Spec.MaxPlayers,
			Private:      m.Spec.Private,
			Password:     m.Spec.Password,
			InputMethods: m.Spec.InputMethods,
		})
		if err != nil {
			return err
		}
		d.enter(s, v.ID)
		s.Send(types.ServerMessage{Type: wire.RoomCreated, RoomID: v.ID, Payload: v})

	case wire.JoinRoom:
		d.presence.CancelGracePeriod(ctx, s.User)
		res, err := d.rooms.Join(ctx, m.RoomID, s.User, m.Password)
		if err != nil {
			return err
		}
		d.enter(s, m.RoomID)
		s.Send(types.ServerMessage{Type: wire.RoomData, RoomID: m.RoomID, Payload: res.Room})

	case wire.LeaveRoom:
		if _, err := d.rooms.Leave(ctx, m.RoomID, s.User); err != nil {
			return err
		}
		d.exit(s, m.RoomID)

	case wire.ToggleReady:
		_, err := d.rooms.ToggleReady(ctx, m.RoomID, s.User.ID)
		return err

	case wire.SubmitSolve:
		if m.Result == nil {
			return ErrMissingField
		}
		_, err := d.rooms.Submit(ctx, m.RoomID, s.User.ID, engine.ResultInput{
			Round:   m.Result.Round,
			Elapsed: time.Duration(m.Result.TimeMs) * time.Millisecond,
			DNF:     m.Result.DNF,
			PlusTwo: m.Result.PlusTwo,
		})
		return err

	case wire.SendChat:
		_, err := d.rooms.SendChat(ctx, m.RoomID, s.User, m.Text)
		return err

	case wire.NextScramble:
		return d.rooms.NextRound(ctx, m.RoomID, s.User.ID)

	case wire.StartRoom:
		_, err := d.rooms.Start(ctx, m.RoomID, s.User.ID)
		return err

	case wire.SendStatus:
		if !s.InRoom(m.RoomID) {
			return room.ErrNotParticipant
		}
		if m.Status == "" || utf8.RuneCountInString(m.Status) > maxStatusLength {
			return room.ErrInvalidInput
		}
		// Kicks and bans happen on other connections, so check the room itself.
		in, err := d.rooms.IsParticipant(ctx, m.RoomID, s.User.ID)
		if err != nil {
			if errors.Is(err, room.ErrRoomNotFound) {
				d.exit(s, m.RoomID)
			}
			return err
		}
		if !in {
			d.exit(s, m.RoomID)
			return room.ErrNotParticipant
		}
		d.fan.PublishToRoomExcept(m.RoomID, s.ID, types.ServerMessage{
			Type:    wire.UserStatus,
			RoomID:  m.RoomID,
			Payload: wire.UserStatusPayload{UserID: s.User.ID, Status: m.Status},
		})

	case wire.UpdateRoom:
		if m.Patch == nil {
			return ErrMissingField
		}
		_, err := d.rooms.Update(ctx, m.RoomID, s.User, room.Patch{
			Name:         m.Patch.Name,
			Private:      m.Patch.Private,
			Password:     m.Patch.Password,
			InputMethods: m.Patch.InputMethods,
			PuzzleType:   m.Patch.PuzzleType,
		})
		return err

	case wire.KickUser:
		if m.UserID == "" {
			return ErrMissingField
		}
		_, err := d.rooms.Kick(ctx, m.RoomID, s.User, m.UserID)
		return err

	case wire.BanUser:
		if m.UserID == "" {
			return ErrMissingField
		}
		_, err := d.rooms.Ban(ctx, m.RoomID, s.User, m.UserID)
		return err

	case wire.ToggleSpectator:
		_, err := d.rooms.ToggleSpectator(ctx, m.RoomID, s.User.ID)
		return err

	case wire.AdminDeleteRoom:
		if !s.User.Admin {
			return room.ErrNotPrivileged
		}
		if err := d.rooms.Delete(ctx, m.RoomID, s.User); err != nil {
			return err
		}
		if !s.InRoom(m.RoomID) {
			s.Send(types.ServerMessage{Type: wire.RoomDeleted, RoomID: m.RoomID})
		}

	case wire.AdminViewRoom:
		v, err := d.rooms.AdminView(ctx, m.RoomID, s.User)
		if err != nil {
			return err
		}
		s.Send(types.ServerMessage{Type: wire.AdminRoomData, RoomID: m.RoomID, Payload: v})

	case wire.SignalAway:
		d.presence.SignalAway(ctx, s.User)

	case wire.SignalBack:
		d.presence.SignalBack(ctx, s.User)

	default:
		return ErrUnknownEvent
	}
	return nil
}

// enter subscribes unconditionally: a kick or ban may have expelled this
// connection from the channel while the session still lists the room.
func (d *Dispatcher) enter(s *Session, roomID string) {
	d.subs.Subscribe(hub.RoomChannel(roomID), s.subscriber())
	s.rooms[roomID] = struct{}{}
}

func (d *Dispatcher) exit(s *Session, roomID string) {
	if !s.InRoom(roomID) {
		return
	}
	d.subs.Unsubscribe(hub.RoomChannel(roomID), s.ID)
	delete(s.rooms, roomID)
}

func (d *Dispatcher) fail(s *Session, m types.ClientMessage, err error) {
	msg, expected := userMessage(err)
	if expected {
		d.log.Debug("event rejected",
			zap.String("event", m.Type),
			zap.String("room_id", m.RoomID),
			zap.String("user_id", s.User.ID),
			zap.Error(err))
	} else {
		d.log.Error("event failed",
			zap.String("event", m.Type),
			zap.String("room_id", m.RoomID),
			zap.String("user_id", s.User.ID),
			zap.Error(err))
	}
	reply := types.ErrorMessage(msg)
	reply.RoomID = m.RoomID
	s.Send(reply)
}

var expectedErrors = []error{
	room.ErrNotCreator,
	room.ErrNotPrivileged,
	room.ErrBanned,
	room.ErrSelfTarget,
	room.ErrPasswordRequired,
	room.ErrWrongPassword,
	room.ErrRoomFull,
	room.ErrRoomClosed,
	room.ErrDuplicateResult,
	room.ErrRoomNotFound,
	room.ErrNotParticipant,
	ErrUnknownEvent,
	ErrMissingField,
}

// userMessage picks the text a client sees for err and whether err was an
// ordinary rejection. Infrastructure failures are never described to clients.
func userMessage(err error) (string, bool) {
	if errors.Is(err, room.ErrInvalidInput) {
		return err.Error(), true
	}
	for _, e := range expectedErrors {
		if errors.Is(err, e) {
			return e.Error(), true
		}
	}
	return "internal error", false
}
