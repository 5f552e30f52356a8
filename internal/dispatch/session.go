package dispatch

import (
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/auth"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/channel"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/types"
)

// Session is one authenticated connection. It is driven from the connection's
// read loop only and is not safe for concurrent use.
type Session struct {
	ID     string
	User   auth.User
	outbox chan types.ServerMessage
	kick   func()
	rooms  map[string]struct{}
	lobby  bool
}

func NewSession(id string, user auth.User, outbox chan types.ServerMessage, kick func()) *Session {
	return &Session{
		ID:     id,
		User:   user,
		outbox: outbox,
		kick:   kick,
		rooms:  make(map[string]struct{}),
	}
}

// Send queues a direct reply. A full outbox means the writer cannot keep up,
// so the connection is dropped rather than blocking the read loop.
func (s *Session) Send(msg types.ServerMessage) {
	select {
	case s.outbox <- msg:
	default:
		if s.kick != nil {
			s.kick()
		}
	}
}

func (s *Session) InRoom(roomID string) bool {
	_, ok := s.rooms[roomID]
	return ok
}

func (s *Session) subscriber() channel.Subscriber {
	return channel.Subscriber{ID: s.ID, UserID: s.User.ID, Outbox: s.outbox, Kick: s.kick}
}
