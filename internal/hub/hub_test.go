package hub

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/channel"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/types"
)

func recvMsg(t *testing.T, ch <-chan types.ServerMessage, within time.Duration) types.ServerMessage {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(within):
		t.Fatalf("timed out waiting for message")
		return types.ServerMessage{} // unreachable
	}
}

func recvNoMsg(t *testing.T, ch <-chan types.ServerMessage, within time.Duration) {
	t.Helper()
	select {
	case m := <-ch:
		t.Fatalf("expected no message within %v, but got: %+v", within, m)
	case <-time.After(within):
	}
}

func getChannel(t *testing.T, h *Hub, name string) *channel.Channel {
	t.Helper()
	reply := make(chan *channel.Channel, 1)
	h.Inbox() <- GetChannel{Channel: name, Reply: reply}
	select {
	case ch := <-reply:
		return ch
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timed out waiting for channel")
		return nil
	}
}

func TestHub_Subscribe_SameChannelPointer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx)

	h.Subscribe(RoomChannel("r1"), channel.Subscriber{ID: "c1", Outbox: make(chan types.ServerMessage, 1)})
	ch1 := getChannel(t, h, RoomChannel("r1"))
	h.Subscribe(RoomChannel("r1"), channel.Subscriber{ID: "c2", Outbox: make(chan types.ServerMessage, 1)})
	ch2 := getChannel(t, h, RoomChannel("r1"))

	if ch1 == nil || ch1 != ch2 {
		t.Fatalf("expected same channel pointer")
	}
	members := h.MembersOf(ctx, RoomChannel("r1"))
	slices.Sort(members)
	if !slices.Equal(members, []string{"c1", "c2"}) {
		t.Fatalf("unexpected members %v", members)
	}
}

func TestHub_PublishToRoom_OnlyThatRoom(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx)

	r1 := make(chan types.ServerMessage, 2)
	r2 := make(chan types.ServerMessage, 2)
	lobby := make(chan types.ServerMessage, 2)
	h.Subscribe(RoomChannel("r1"), channel.Subscriber{ID: "a", Outbox: r1})
	h.Subscribe(RoomChannel("r2"), channel.Subscriber{ID: "b", Outbox: r2})
	h.Subscribe(LobbyChannel, channel.Subscriber{ID: "c", Outbox: lobby})

	h.PublishToRoom("r1", types.ServerMessage{Type: "PLAYER_JOINED", RoomID: "r1"})
	h.PublishToLobby(types.ServerMessage{Type: "ROOMS_LIST"})

	if got := recvMsg(t, r1, 100*time.Millisecond); got.RoomID != "r1" {
		t.Fatalf("wrong message %+v", got)
	}
	if got := recvMsg(t, lobby, 100*time.Millisecond); got.Type != "ROOMS_LIST" {
		t.Fatalf("wrong message %+v", got)
	}
	recvNoMsg(t, r2, 50*time.Millisecond)
}

func TestHub_UnsubscribeAll_RetiresEmptyChannels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx)

	out := make(chan types.ServerMessage, 4)
	h.Subscribe(RoomChannel("r1"), channel.Subscriber{ID: "a", Outbox: out})
	h.Subscribe(LobbyChannel, channel.Subscriber{ID: "a", Outbox: out})
	ch := getChannel(t, h, RoomChannel("r1"))

	h.UnsubscribeAll("a")

	if got := getChannel(t, h, RoomChannel("r1")); got != nil {
		t.Fatalf("expected room channel to be retired")
	}
	if got := getChannel(t, h, LobbyChannel); got != nil {
		t.Fatalf("expected lobby channel to be retired")
	}
	select {
	case <-ch.Done():
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("retired channel still running")
	}
}

func TestHub_Retire_DropsMembership(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx)

	out := make(chan types.ServerMessage, 4)
	h.Subscribe(RoomChannel("r1"), channel.Subscriber{ID: "a", Outbox: out})
	h.Retire("r1")
	h.PublishToRoom("r1", types.ServerMessage{Type: "SCRAMBLE_UPDATED"})

	recvNoMsg(t, out, 50*time.Millisecond)
	if members := h.MembersOf(ctx, RoomChannel("r1")); len(members) != 0 {
		t.Fatalf("expected no members, got %v", members)
	}
}

func TestHub_Expel_DropsEveryConnectionOfUser(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx)

	tab1 := make(chan types.ServerMessage, 2)
	tab2 := make(chan types.ServerMessage, 2)
	other := make(chan types.ServerMessage, 2)
	h.Subscribe(RoomChannel("r1"), channel.Subscriber{ID: "c1", UserID: "u1", Outbox: tab1})
	h.Subscribe(RoomChannel("r1"), channel.Subscriber{ID: "c2", UserID: "u1", Outbox: tab2})
	h.Subscribe(RoomChannel("r1"), channel.Subscriber{ID: "c3", UserID: "u2", Outbox: other})

	h.Expel("r1", "u1")
	h.PublishToRoom("r1", types.ServerMessage{Type: "CHAT_MESSAGE", RoomID: "r1"})

	recvMsg(t, other, 100*time.Millisecond)
	recvNoMsg(t, tab1, 50*time.Millisecond)
	recvNoMsg(t, tab2, 50*time.Millisecond)
	if members := h.MembersOf(ctx, RoomChannel("r1")); len(members) != 1 || members[0] != "c3" {
		t.Fatalf("unexpected members %v", members)
	}
}
