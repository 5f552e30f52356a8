// Package store persists rooms, participants, results, chat and bans. Every method
// is atomic on its own; callers read, decide, then write.
package store

import (
	"context"
	"errors"

	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/engine"
)

var (
	ErrNotFound  = errors.New("store: record not found")
	ErrDuplicate = errors.New("store: duplicate record")
	ErrFull      = errors.New("store: room is full")
)

type Store interface {
	CreateRoom(ctx context.Context, room engine.Room) error
	GetRoom(ctx context.Context, id string) (engine.Room, error)
	ListActiveRooms(ctx context.Context) ([]engine.Room, error)
	RoomIDsForUser(ctx context.Context, userID string) ([]string, error)
	DeleteRoom(ctx context.Context, id string) error
	SetStatus(ctx context.Context, roomID string, status engine.Status) error
	UpdateSettings(ctx context.Context, roomID string, s Settings) error

	// AdvanceRound moves the room from round `from` to from+1 with a new scramble.
	// It reports false, without error, when the room is no longer on round `from`.
	AdvanceRound(ctx context.Context, roomID string, from int, scramble string) (bool, error)

	// AddParticipant fails with ErrFull at capacity and ErrDuplicate if the user is
	// already in the room. When the joiner is the room's original creator and no
	// longer its creator, creator rights move back to them and restored is true.
	AddParticipant(ctx context.Context, p engine.Participant) (restored bool, err error)
	// RemoveParticipant removes the user, deletes the room when nobody is left,
	// and hands the room to the longest-tenured participant when the creator left.
	RemoveParticipant(ctx context.Context, roomID, userID string) (Removal, error)
	ToggleSpectator(ctx context.Context, roomID, userID string) (bool, error)
	ToggleReady(ctx context.Context, roomID, userID string) (bool, error)
	// AddResult fails with ErrDuplicate when the participant already answered the round.
	AddResult(ctx context.Context, roomID, userID string, r engine.Result) error

	AddChat(ctx context.Context, m engine.ChatMessage) error
	RecentChat(ctx context.Context, roomID string, limit int) ([]engine.ChatMessage, error)

	UpsertBan(ctx context.Context, b engine.Ban) error
	IsBanned(ctx context.Context, roomID, userID string) (bool, error)

	Close() error
}

// Settings is a partial room update. Nil fields are untouched; an empty
// PasswordHash clears the password.
type Settings struct {
	Name         *string
	Private      *bool
	PasswordHash *string
	InputMethods []string
	Reset        *Reset
}

type Removal struct {
	Remaining    []engine.Participant // oldest first
	RoomDeleted  bool
	NewCreatorID string
}

// Reset switches the puzzle type, restarts at round 1 and drops every result.
type Reset struct {
	PuzzleType string
	Scramble   string
}
