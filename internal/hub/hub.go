package hub

import (
	"context"

	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/channel"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/types"
)

// LobbyChannel is the channel room-list observers subscribe to.
const LobbyChannel = "lobby"

func RoomChannel(roomID string) string { return "room:" + roomID }

type HubMsg interface{ isHubMsg() }

type Subscribe struct {
	Channel string
	Sub     channel.Subscriber
}

type Unsubscribe struct {
	Channel string
	ID      string
}

// UnsubscribeAll removes a subscriber from every channel, used when its
// connection closes.
type UnsubscribeAll struct {
	ID string
}

type Publish struct {
	Channel string
	Msg     types.ServerMessage
	Except  string
}

// Expel removes every subscriber of a channel that belongs to UserID.
type Expel struct {
	Channel string
	UserID  string
}

// Retire shuts a channel down and forgets its subscribers.
type Retire struct {
	Channel string
}

type GetChannel struct {
	Channel string
	Reply   chan *channel.Channel
}

type Members struct {
	Channel string
	Reply   chan []string
}

type ShutdownHub struct{}

func (Subscribe) isHubMsg()      {}
func (Unsubscribe) isHubMsg()    {}
func (UnsubscribeAll) isHubMsg() {}
func (Publish) isHubMsg()        {}
func (Expel) isHubMsg()          {}
func (Retire) isHubMsg()         {}
func (GetChannel) isHubMsg()     {}
func (Members) isHubMsg()        {}
func (ShutdownHub) isHubMsg()    {}

// Hub owns the set of live channels. Channels are created on first subscribe
// and shut down once their last subscriber leaves.
type Hub struct {
	inbox    chan HubMsg
	channels map[string]*channel.Channel
	members  map[string]map[string]string   // channel -> subscriber id -> user id
	joined   map[string]map[string]struct{} // subscriber id -> channels
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 256),
		channels: make(map[string]*channel.Channel),
		members:  make(map[string]map[string]string),
		joined:   make(map[string]map[string]struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) send(m HubMsg) {
	select {
	case h.inbox <- m:
	case <-h.ctx.Done():
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Subscribe:
				ch := h.channels[msg.Channel]
				if ch == nil {
					ch = channel.New(h.ctx, msg.Channel)
					h.channels[msg.Channel] = ch
					h.members[msg.Channel] = make(map[string]string)
				}
				ch.Send(channel.Join{Sub: msg.Sub})
				h.members[msg.Channel][msg.Sub.ID] = msg.Sub.UserID
				if h.joined[msg.Sub.ID] == nil {
					h.joined[msg.Sub.ID] = make(map[string]struct{})
				}
				h.joined[msg.Sub.ID][msg.Channel] = struct{}{}

			case Unsubscribe:
				h.unsubscribe(msg.Channel, msg.ID)

			case UnsubscribeAll:
				for name := range h.joined[msg.ID] {
					h.unsubscribe(name, msg.ID)
				}

			case Publish:
				if ch := h.channels[msg.Channel]; ch != nil {
					ch.Send(channel.Publish{Msg: msg.Msg, Except: msg.Except})
				}

			case Expel:
				for id, userID := range h.members[msg.Channel] {
					if userID == msg.UserID {
						h.unsubscribe(msg.Channel, id)
					}
				}

			case Retire:
				h.retire(msg.Channel)

			case GetChannel:
				msg.Reply <- h.channels[msg.Channel] // May be nil

			case Members:
				ids := make([]string, 0, len(h.members[msg.Channel]))
				for id := range h.members[msg.Channel] {
					ids = append(ids, id)
				}
				msg.Reply <- ids

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) unsubscribe(name, id string) {
	ch := h.channels[name]
	if ch == nil {
		return
	}
	ch.Send(channel.Leave{ID: id})
	delete(h.members[name], id)
	delete(h.joined[id], name)
	if len(h.joined[id]) == 0 {
		delete(h.joined, id)
	}
	if len(h.members[name]) == 0 {
		h.retire(name)
	}
}

func (h *Hub) retire(name string) {
	ch := h.channels[name]
	if ch == nil {
		return
	}
	ch.Send(channel.Shutdown{})
	for id := range h.members[name] {
		delete(h.joined[id], name)
		if len(h.joined[id]) == 0 {
			delete(h.joined, id)
		}
	}
	delete(h.channels, name)
	delete(h.members, name)
}

func (h *Hub) shutdown() {
	for name := range h.channels {
		h.retire(name)
	}
	h.cancel()
}

// Convenience wrappers so callers need not build messages by hand.

func (h *Hub) Subscribe(name string, sub channel.Subscriber) {
	h.send(Subscribe{Channel: name, Sub: sub})
}

func (h *Hub) Unsubscribe(name, id string) {
	h.send(Unsubscribe{Channel: name, ID: id})
}

func (h *Hub) UnsubscribeAll(id string) {
	h.send(UnsubscribeAll{ID: id})
}

func (h *Hub) PublishToRoom(roomID string, msg types.ServerMessage) {
	h.send(Publish{Channel: RoomChannel(roomID), Msg: msg})
}

func (h *Hub) PublishToRoomExcept(roomID, exceptID string, msg types.ServerMessage) {
	h.send(Publish{Channel: RoomChannel(roomID), Msg: msg, Except: exceptID})
}

func (h *Hub) PublishToLobby(msg types.ServerMessage) {
	h.send(Publish{Channel: LobbyChannel, Msg: msg})
}

func (h *Hub) Expel(roomID, userID string) {
	h.send(Expel{Channel: RoomChannel(roomID), UserID: userID})
}

func (h *Hub) Retire(roomID string) {
	h.send(Retire{Channel: RoomChannel(roomID)})
}

// MembersOf returns the subscriber ids of a channel; empty when it does not exist.
func (h *Hub) MembersOf(ctx context.Context, name string) []string {
	reply := make(chan []string, 1)
	h.send(Members{Channel: name, Reply: reply})
	select {
	case ids := <-reply:
		return ids
	case <-ctx.Done():
		return nil
	case <-h.ctx.Done():
		return nil
	}
}

func (h *Hub) Shutdown() {
	h.send(ShutdownHub{})
}
