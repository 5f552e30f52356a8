package room

import "errors"

// Authorization failures.
var (
	ErrNotCreator       = errors.New("only the room creator can do that")
	ErrNotPrivileged    = errors.New("only site admins can do that")
	ErrBanned           = errors.New("you are banned from this room")
	ErrSelfTarget       = errors.New("you cannot target yourself")
	ErrPasswordRequired = errors.New("password required")
	ErrWrongPassword    = errors.New("invalid password")
)

// Capacity and state failures.
var (
	ErrRoomFull        = errors.New("room is full")
	ErrRoomClosed      = errors.New("room is closed")
	ErrInvalidInput    = errors.New("invalid input")
	ErrDuplicateResult = errors.New("result already submitted for this round")
)

// Lookup failures.
var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrNotParticipant = errors.New("not a participant of this room")
)
