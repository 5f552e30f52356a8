package types

// RoomView is the public shape of a room, sent in ROOM_DATA, ROOM_CREATED and ROOMS_LIST.
type RoomView struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	PuzzleType   string            `json:"cube_type"`
	MaxPlayers   int               `json:"max_players"`
	Private      bool              `json:"is_private"`
	InputMethods []string          `json:"allowed_timer_types"`
	Scramble     string            `json:"current_scramble"`
	Round        int               `json:"scramble_index"`
	Status       string            `json:"status"`
	CreatedAt    string            `json:"created_at"`
	CreatedBy    UserRef           `json:"created_by"`
	Participants []ParticipantView `json:"participants"`
	RecentChat   []ChatMessageView `json:"recent_chat,omitempty"`
}

type UserRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type ParticipantView struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Username  string       `json:"username"`
	Ready     bool         `json:"is_ready"`
	Spectator bool         `json:"is_spectator"`
	JoinedAt  string       `json:"joined_at"`
	Results   []ResultView `json:"solves"`
}

type ResultView struct {
	ID        string `json:"id,omitempty"`
	TimeMs    int64  `json:"time"`
	DNF       bool   `json:"dnf"`
	PlusTwo   bool   `json:"plus_two"`
	Round     int    `json:"scramble_index"`
	CreatedAt string `json:"created_at,omitempty"`
}

type ChatMessageView struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

type AdminRoomView struct {
	Participants []ParticipantView `json:"participants"`
	Round        int               `json:"scrambleIndex"`
	UserStatuses map[string]string `json:"userStatuses"`
}

// Payloads of room-scoped server events.

type PlayerJoinedPayload struct {
	Participant ParticipantView `json:"participant"`
}

type UserPayload struct {
	UserID string `json:"user_id"`
}

type AdminChangedPayload struct {
	NewAdminID string `json:"new_admin_id"`
}

type ScramblePayload struct {
	Scramble string `json:"scramble"`
	Round    int    `json:"scramble_index"`
}

type SolveSubmittedPayload struct {
	UserID string     `json:"user_id"`
	Solve  ResultView `json:"solve"`
}

type UserStatusPayload struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

type SpectatorPayload struct {
	UserID    string `json:"user_id"`
	Spectator bool   `json:"is_spectator"`
}

type ReadyPayload struct {
	UserID string `json:"user_id"`
	Ready  bool   `json:"is_ready"`
}

type NotificationPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
