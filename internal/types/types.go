package types

import (
	wire "github.com/ibrhyyme/Zkt-Timer-sub002/pkg/types"
)

type ClientMessage struct {
	Type     string      `json:"type"`
	RoomID   string      `json:"room_id,omitempty"`
	Password string      `json:"password,omitempty"`
	Spec     *CreateRoom `json:"spec,omitempty"`
	Result   *Solve      `json:"result,omitempty"`
	Text     string      `json:"text,omitempty"`
	Status   string      `json:"status,omitempty"`
	Patch    *RoomPatch  `json:"patch,omitempty"`
	UserID   string      `json:"user_id,omitempty"`
}

type CreateRoom struct {
	Name         string   `json:"name"`
	Password     string   `json:"password,omitempty"`
	PuzzleType   string   `json:"cube_type"`
	MaxPlayers   int      `json:"max_players"`
	Private      bool     `json:"is_private"`
	InputMethods []string `json:"allowed_timer_types,omitempty"`
}

type Solve struct {
	TimeMs  int64 `json:"time"`
	DNF     bool  `json:"dnf"`
	PlusTwo bool  `json:"plus_two"`
	Round   int   `json:"scramble_index"`
}

// RoomPatch carries UPDATE_ROOM changes; nil fields are left alone.
type RoomPatch struct {
	Name         *string  `json:"name,omitempty"`
	Private      *bool    `json:"is_private,omitempty"`
	Password     *string  `json:"password,omitempty"`
	InputMethods []string `json:"allowed_timer_types,omitempty"`
	PuzzleType   *string  `json:"cube_type,omitempty"`
}

type ServerMessage struct {
	Type    string `json:"type"`
	RoomID  string `json:"room_id,omitempty"`
	Payload any    `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}

func ErrorMessage(msg string) ServerMessage {
	return ServerMessage{Type: wire.Error, Error: msg}
}
