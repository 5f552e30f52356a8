package grace

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/auth"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/engine"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/room"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/store"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/types"
	wire "github.com/ibrhyyme/Zkt-Timer-sub002/pkg/types"
)

type gateway struct {
	mu   sync.Mutex
	msgs []types.ServerMessage
}

func (g *gateway) PublishToRoom(_ string, msg types.ServerMessage) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.msgs = append(g.msgs, msg)
}

func (g *gateway) PublishToLobby(types.ServerMessage) {}
func (g *gateway) Expel(string, string)               {}
func (g *gateway) Retire(string)                      {}

func (g *gateway) kinds() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.msgs))
	for _, m := range g.msgs {
		out = append(out, m.Type)
	}
	return out
}

func (g *gateway) find(typ string) (types.ServerMessage, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, m := range g.msgs {
		if m.Type == typ {
			return m, true
		}
	}
	return types.ServerMessage{}, false
}

type fixedScramble struct{}

func (fixedScramble) Scramble(string) string { return "R U R' U'" }

func twoPlayerRoom(t *testing.T, window time.Duration) (*room.Service, *Coordinator, *gateway, string) {
	t.Helper()
	ctx := context.Background()
	gw := &gateway{}
	reg := NewRegistry()
	svc := room.NewService(store.NewMemory(), fixedScramble{}, gw, zap.NewNop(), room.Options{
		BcryptCost: 4,
		Presence:   reg,
	})
	c := New(svc, gw, reg, zap.NewNop(), WithWindow(window))

	view, err := svc.Create(ctx, auth.User{ID: "a", Username: "alice"}, engine.CreateSpec{Name: "duel", MaxPlayers: 2})
	require.NoError(t, err)
	_, err = svc.Join(ctx, view.ID, auth.User{ID: "b", Username: "bob"}, "")
	require.NoError(t, err)
	return svc, c, gw, view.ID
}

func TestCreatorReturnsWithinWindow(t *testing.T) {
	ctx := context.Background()
	svc, c, gw, roomID := twoPlayerRoom(t, 200*time.Millisecond)
	alice := auth.User{ID: "a", Username: "alice"}

	c.HandleDisconnect(ctx, alice)
	time.Sleep(20 * time.Millisecond)
	c.HandleReconnect(ctx, alice)
	time.Sleep(300 * time.Millisecond)

	view, err := svc.Get(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, "a", view.CreatedBy.ID)
	assert.Len(t, view.Participants, 2)
	assert.NotContains(t, gw.kinds(), wire.PlayerLeft)

	status, ok := gw.find(wire.UserStatus)
	require.True(t, ok)
	assert.Contains(t, status.Payload.(wire.UserStatusPayload).Status, wire.StatusDisconnected+"|")
}

func TestCreatorNeverReturns(t *testing.T) {
	ctx := context.Background()
	svc, c, gw, roomID := twoPlayerRoom(t, 30*time.Millisecond)

	c.HandleDisconnect(ctx, auth.User{ID: "a", Username: "alice"})

	require.Eventually(t, func() bool {
		_, ok := gw.find(wire.AdminChanged)
		return ok
	}, time.Second, 10*time.Millisecond)

	left, ok := gw.find(wire.PlayerLeft)
	require.True(t, ok)
	assert.Equal(t, "a", left.Payload.(wire.UserPayload).UserID)

	changed, _ := gw.find(wire.AdminChanged)
	assert.Equal(t, "b", changed.Payload.(wire.AdminChangedPayload).NewAdminID)

	view, err := svc.Get(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, "b", view.CreatedBy.ID)
	assert.Len(t, view.Participants, 1)
}

func TestAdminViewShowsPendingCountdown(t *testing.T) {
	ctx := context.Background()
	svc, c, _, roomID := twoPlayerRoom(t, time.Minute)

	c.SignalAway(ctx, auth.User{ID: "b", Username: "bob"})
	defer c.SignalBack(ctx, auth.User{ID: "b", Username: "bob"})

	v, err := svc.AdminView(ctx, roomID, auth.User{ID: "root", Admin: true})
	require.NoError(t, err)
	assert.Contains(t, v.UserStatuses["b"], wire.StatusDisconnected+"|")
	assert.NotContains(t, v.UserStatuses, "a")
}
