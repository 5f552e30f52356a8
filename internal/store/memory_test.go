package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/engine"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func seedRoom(t *testing.T, m *Memory, id string, max int, users ...string) {
	t.Helper()
	room := engine.Room{
		ID:         id,
		Name:       "room " + id,
		PuzzleType: "333",
		MaxPlayers: max,
		Round:      1,
		Status:     engine.StatusWaiting,
		CreatedAt:  base,
	}
	for i, u := range users {
		room.Participants = append(room.Participants, engine.Participant{
			ID: id + "-" + u, RoomID: id, UserID: u, Username: u,
			JoinedAt: base.Add(time.Duration(i) * time.Second),
		})
	}
	if len(users) > 0 {
		room.CreatorID = users[0]
		room.OriginalCreatorID = users[0]
	}
	require.NoError(t, m.CreateRoom(context.Background(), room))
}

func TestMemory_GetReturnsCopies(t *testing.T) {
	m := NewMemory()
	seedRoom(t, m, "r1", 4, "a")

	r, err := m.GetRoom(context.Background(), "r1")
	require.NoError(t, err)
	r.Participants[0].Username = "mutated"

	again, err := m.GetRoom(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "a", again.Participants[0].Username)
}

func TestMemory_AddParticipant(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedRoom(t, m, "r1", 2, "a")

	restored, err := m.AddParticipant(ctx, engine.Participant{ID: "p2", RoomID: "r1", UserID: "b", JoinedAt: base.Add(time.Minute)})
	require.NoError(t, err)
	assert.False(t, restored)

	_, err = m.AddParticipant(ctx, engine.Participant{ID: "p2", RoomID: "r1", UserID: "b"})
	assert.ErrorIs(t, err, ErrDuplicate)
	_, err = m.AddParticipant(ctx, engine.Participant{ID: "p3", RoomID: "r1", UserID: "c"})
	assert.ErrorIs(t, err, ErrFull)
	_, err = m.AddParticipant(ctx, engine.Participant{ID: "p4", RoomID: "nope", UserID: "c"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_RemoveParticipant(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedRoom(t, m, "r1", 4, "a", "b", "c")

	out, err := m.RemoveParticipant(ctx, "r1", "b")
	require.NoError(t, err)
	assert.Empty(t, out.NewCreatorID, "non-creator leaving keeps the creator")

	out, err = m.RemoveParticipant(ctx, "r1", "a")
	require.NoError(t, err)
	require.Len(t, out.Remaining, 1)
	assert.Equal(t, "c", out.NewCreatorID)

	_, err = m.RemoveParticipant(ctx, "r1", "a")
	assert.ErrorIs(t, err, ErrNotFound)

	out, err = m.RemoveParticipant(ctx, "r1", "c")
	require.NoError(t, err)
	assert.True(t, out.RoomDeleted)
	_, err = m.GetRoom(ctx, "r1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_SuccessionPicksEarliestJoin(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedRoom(t, m, "r1", 4, "a", "b", "c")

	out, err := m.RemoveParticipant(ctx, "r1", "a")
	require.NoError(t, err)
	assert.Equal(t, "b", out.NewCreatorID)
	assert.Equal(t, "b", out.Remaining[0].UserID)

	r, err := m.GetRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "b", r.CreatorID)
	assert.Equal(t, "a", r.OriginalCreatorID)
}

func TestMemory_OriginalCreatorRegainsRoom(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedRoom(t, m, "r1", 4, "a", "b")

	_, err := m.RemoveParticipant(ctx, "r1", "a")
	require.NoError(t, err)

	restored, err := m.AddParticipant(ctx, engine.Participant{ID: "p3", RoomID: "r1", UserID: "a", JoinedAt: base.Add(time.Hour)})
	require.NoError(t, err)
	assert.True(t, restored)

	r, err := m.GetRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "a", r.CreatorID)
}

func TestMemory_AdvanceRoundIsCompareAndSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedRoom(t, m, "r1", 4, "a")

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := m.AdvanceRound(ctx, "r1", 1, "R U R'")
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	r, _ := m.GetRoom(ctx, "r1")
	assert.Equal(t, 2, r.Round)
	assert.Equal(t, "R U R'", r.Scramble)
}

func TestMemory_AddResultRejectsSecondAnswer(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedRoom(t, m, "r1", 4, "a")

	require.NoError(t, m.AddResult(ctx, "r1", "a", engine.Result{ID: "s1", Round: 1}))
	assert.ErrorIs(t, m.AddResult(ctx, "r1", "a", engine.Result{ID: "s2", Round: 1}), ErrDuplicate)
	assert.ErrorIs(t, m.AddResult(ctx, "r1", "ghost", engine.Result{ID: "s3", Round: 1}), ErrNotFound)
}

func TestMemory_ResetClearsResults(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedRoom(t, m, "r1", 4, "a")
	require.NoError(t, m.AddResult(ctx, "r1", "a", engine.Result{ID: "s1", Round: 1}))
	_, err := m.AdvanceRound(ctx, "r1", 1, "x")
	require.NoError(t, err)

	require.NoError(t, m.UpdateSettings(ctx, "r1", Settings{Reset: &Reset{PuzzleType: "222", Scramble: "R U F"}}))

	r, _ := m.GetRoom(ctx, "r1")
	assert.Equal(t, 1, r.Round)
	assert.Equal(t, "222", r.PuzzleType)
	assert.Empty(t, r.Participants[0].Results)
}

func TestMemory_BansSurviveRoomDeletion(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedRoom(t, m, "r1", 4, "a")

	require.NoError(t, m.UpsertBan(ctx, engine.Ban{RoomID: "r1", UserID: "b"}))
	require.NoError(t, m.UpsertBan(ctx, engine.Ban{RoomID: "r1", UserID: "b"}))
	require.NoError(t, m.DeleteRoom(ctx, "r1"))

	banned, err := m.IsBanned(ctx, "r1", "b")
	require.NoError(t, err)
	assert.True(t, banned)
	assert.ErrorIs(t, m.DeleteRoom(ctx, "r1"), ErrNotFound)
}

func TestMemory_RecentChatKeepsTail(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedRoom(t, m, "r1", 4, "a")
	for _, text := range []string{"one", "two", "three"} {
		require.NoError(t, m.AddChat(ctx, engine.ChatMessage{ID: text, RoomID: "r1", Text: text}))
	}

	msgs, err := m.RecentChat(ctx, "r1", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "two", msgs[0].Text)
	assert.Equal(t, "three", msgs[1].Text)
}

func TestMemory_RoomIDsForUserAndListActive(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedRoom(t, m, "r1", 4, "a", "b")
	seedRoom(t, m, "r2", 4, "b")
	require.NoError(t, m.SetStatus(ctx, "r2", engine.StatusClosed))

	ids, err := m.RoomIDsForUser(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, ids)

	active, err := m.ListActiveRooms(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "r1", active[0].ID)
}
