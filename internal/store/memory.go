package store

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/engine"
)

type banKey struct{ roomID, userID string }

// Memory is an in-process Store. Values are copied in and out so callers never
// share slices with the store.
type Memory struct {
	mu    sync.RWMutex
	rooms map[string]*engine.Room
	chat  map[string][]engine.ChatMessage
	bans  map[banKey]engine.Ban
}

func NewMemory() *Memory {
	return &Memory{
		rooms: make(map[string]*engine.Room),
		chat:  make(map[string][]engine.ChatMessage),
		bans:  make(map[banKey]engine.Ban),
	}
}

func (m *Memory) CreateRoom(_ context.Context, room engine.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[room.ID]; ok {
		return ErrDuplicate
	}
	r := cloneRoom(room)
	sortParticipants(r.Participants)
	m.rooms[room.ID] = &r
	return nil
}

func (m *Memory) GetRoom(_ context.Context, id string) (engine.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	if !ok {
		return engine.Room{}, ErrNotFound
	}
	return cloneRoom(*r), nil
}

func (m *Memory) ListActiveRooms(_ context.Context) ([]engine.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]engine.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		if r.Status == engine.StatusClosed {
			continue
		}
		out = append(out, cloneRoom(*r))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) RoomIDsForUser(_ context.Context, userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for id, r := range m.rooms {
		if _, ok := r.Participant(userID); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *Memory) DeleteRoom(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[id]; !ok {
		return ErrNotFound
	}
	delete(m.rooms, id)
	delete(m.chat, id)
	return nil
}

func (m *Memory) SetStatus(_ context.Context, roomID string, status engine.Status) error {
	return m.update(roomID, func(r *engine.Room) error {
		r.Status = status
		return nil
	})
}

func (m *Memory) UpdateSettings(_ context.Context, roomID string, s Settings) error {
	return m.update(roomID, func(r *engine.Room) error {
		if s.Name != nil {
			r.Name = *s.Name
		}
		if s.Private != nil {
			r.Private = *s.Private
		}
		if s.PasswordHash != nil {
			r.PasswordHash = *s.PasswordHash
		}
		if s.InputMethods != nil {
			r.InputMethods = slices.Clone(s.InputMethods)
		}
		if s.Reset != nil {
			r.PuzzleType = s.Reset.PuzzleType
			r.Scramble = s.Reset.Scramble
			r.Round = 1
			for i := range r.Participants {
				r.Participants[i].Results = nil
			}
		}
		return nil
	})
}

func (m *Memory) AdvanceRound(_ context.Context, roomID string, from int, scramble string) (bool, error) {
	advanced := false
	err := m.update(roomID, func(r *engine.Room) error {
		if r.Round != from {
			return nil
		}
		r.Round = from + 1
		r.Scramble = scramble
		advanced = true
		return nil
	})
	return advanced, err
}

func (m *Memory) AddParticipant(_ context.Context, p engine.Participant) (bool, error) {
	restored := false
	err := m.update(p.RoomID, func(r *engine.Room) error {
		if _, ok := r.Participant(p.UserID); ok {
			return ErrDuplicate
		}
		if r.Full() {
			return ErrFull
		}
		r.Participants = append(r.Participants, cloneParticipant(p))
		sortParticipants(r.Participants)
		if r.OriginalCreatorID == p.UserID && r.CreatorID != p.UserID {
			r.CreatorID = p.UserID
			restored = true
		}
		return nil
	})
	return restored, err
}

func (m *Memory) RemoveParticipant(_ context.Context, roomID, userID string) (Removal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out Removal
	r, ok := m.rooms[roomID]
	if !ok {
		return out, ErrNotFound
	}
	idx := slices.IndexFunc(r.Participants, func(p engine.Participant) bool { return p.UserID == userID })
	if idx < 0 {
		return out, ErrNotFound
	}
	r.Participants = slices.Delete(r.Participants, idx, idx+1)

	if len(r.Participants) == 0 {
		delete(m.rooms, roomID)
		delete(m.chat, roomID)
		out.RoomDeleted = true
		return out, nil
	}
	if r.CreatorID == userID {
		next, _ := engine.Successor(r.Participants)
		r.CreatorID = next.UserID
		out.NewCreatorID = next.UserID
	}
	out.Remaining = cloneRoom(*r).Participants
	return out, nil
}

func (m *Memory) ToggleSpectator(_ context.Context, roomID, userID string) (bool, error) {
	var v bool
	err := m.updateParticipant(roomID, userID, func(p *engine.Participant) error {
		p.Spectator = !p.Spectator
		v = p.Spectator
		return nil
	})
	return v, err
}

func (m *Memory) ToggleReady(_ context.Context, roomID, userID string) (bool, error) {
	var v bool
	err := m.updateParticipant(roomID, userID, func(p *engine.Participant) error {
		p.Ready = !p.Ready
		v = p.Ready
		return nil
	})
	return v, err
}

func (m *Memory) AddResult(_ context.Context, roomID, userID string, res engine.Result) error {
	return m.updateParticipant(roomID, userID, func(p *engine.Participant) error {
		if p.HasResult(res.Round) {
			return ErrDuplicate
		}
		p.Results = append(p.Results, res)
		sort.SliceStable(p.Results, func(i, j int) bool { return p.Results[i].Round < p.Results[j].Round })
		return nil
	})
}

func (m *Memory) AddChat(_ context.Context, msg engine.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[msg.RoomID]; !ok {
		return ErrNotFound
	}
	m.chat[msg.RoomID] = append(m.chat[msg.RoomID], msg)
	return nil
}

func (m *Memory) RecentChat(_ context.Context, roomID string, limit int) ([]engine.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.chat[roomID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return slices.Clone(msgs), nil
}

func (m *Memory) UpsertBan(_ context.Context, b engine.Ban) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := banKey{b.RoomID, b.UserID}
	if _, ok := m.bans[k]; !ok {
		m.bans[k] = b
	}
	return nil
}

func (m *Memory) IsBanned(_ context.Context, roomID, userID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.bans[banKey{roomID, userID}]
	return ok, nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) update(roomID string, fn func(r *engine.Room) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return ErrNotFound
	}
	return fn(r)
}

func (m *Memory) updateParticipant(roomID, userID string, fn func(p *engine.Participant) error) error {
	return m.update(roomID, func(r *engine.Room) error {
		for i := range r.Participants {
			if r.Participants[i].UserID == userID {
				return fn(&r.Participants[i])
			}
		}
		return ErrNotFound
	})
}

func sortParticipants(ps []engine.Participant) {
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].JoinedAt.Before(ps[j].JoinedAt) })
}

func cloneRoom(r engine.Room) engine.Room {
	r.InputMethods = slices.Clone(r.InputMethods)
	ps := make([]engine.Participant, len(r.Participants))
	for i, p := range r.Participants {
		ps[i] = cloneParticipant(p)
	}
	r.Participants = ps
	return r
}

func cloneParticipant(p engine.Participant) engine.Participant {
	p.Results = slices.Clone(p.Results)
	return p
}
