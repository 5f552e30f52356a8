package types

// Client -> Server event names.
const (
	GetRooms        = "GET_ROOMS"
	GetRoom         = "GET_ROOM"
	CreateRoom      = "CREATE_ROOM"
	JoinRoom        = "JOIN_ROOM"
	LeaveRoom       = "LEAVE_ROOM"
	LeaveLobby      = "LEAVE_LOBBY"
	ToggleReady     = "TOGGLE_READY"
	SubmitSolve     = "SUBMIT_SOLVE"
	SendChat        = "SEND_CHAT"
	NextScramble    = "NEXT_SCRAMBLE"
	StartRoom       = "START_ROOM"
	SendStatus      = "SEND_STATUS"
	UpdateRoom      = "UPDATE_ROOM"
	KickUser        = "KICK_USER"
	BanUser         = "BAN_USER"
	ToggleSpectator = "TOGGLE_SPECTATOR"
	AdminDeleteRoom = "ADMIN_DELETE_ROOM"
	AdminViewRoom   = "ADMIN_VIEW_ROOM"
	SignalAway      = "SIGNAL_AWAY"
	SignalBack      = "SIGNAL_BACK"
)

// Server -> Client event names.
const (
	RoomsList          = "ROOMS_LIST"
	RoomData           = "ROOM_DATA"
	RoomCreated        = "ROOM_CREATED"
	PlayerJoined       = "PLAYER_JOINED"
	PlayerLeft         = "PLAYER_LEFT"
	PlayerReadyChanged = "PLAYER_READY_CHANGED"
	ScrambleUpdated    = "SCRAMBLE_UPDATED"
	SolveSubmitted     = "SOLVE_SUBMITTED"
	RoomStarted        = "ROOM_STARTED"
	RoomDeleted        = "ROOM_DELETED"
	AdminChanged       = "ADMIN_CHANGED"
	UserStatus         = "USER_STATUS"
	SpectatorChanged   = "SPECTATOR_CHANGED"
	ChatMessage        = "CHAT_MESSAGE"
	Notification       = "NOTIFICATION"
	Error              = "ERROR"
	AdminRoomData      = "ADMIN_ROOM_DATA"
)

// User status values carried by USER_STATUS. DISCONNECTED is sent as
// "DISCONNECTED|<expireEpochMs>".
const (
	StatusIdle         = "IDLE"
	StatusDisconnected = "DISCONNECTED"
)

// Notification kinds.
const (
	NoticeJoin  = "JOIN"
	NoticeLeave = "LEAVE"
	NoticeInfo  = "INFO"
)
