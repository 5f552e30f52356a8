package engine

import (
	"errors"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

var ErrInvalidName = errors.New("invalid room name")
var ErrUnsupportedPuzzle = errors.New("unsupported puzzle type")
var ErrPasswordTooLong = errors.New("password too long")
var ErrRoundOutOfRange = errors.New("round out of range")
var ErrRoundAlreadySubmitted = errors.New("round already submitted")
var ErrNegativeTime = errors.New("negative solve time")
var ErrEmptyMessage = errors.New("empty chat message")

type Status string

const (
	StatusWaiting Status = "WAITING"
	StatusActive  Status = "ACTIVE"
	StatusClosed  Status = "CLOSED"
)

type Room struct {
	ID                string
	Name              string
	PuzzleType        string
	MaxPlayers        int
	Private           bool
	PasswordHash      string
	InputMethods      []string
	Scramble          string
	Round             int
	Status            Status
	CreatorID         string
	OriginalCreatorID string
	CreatedAt         time.Time
	Participants      []Participant
}

type Participant struct {
	ID        string
	RoomID    string
	UserID    string
	Username  string
	Spectator bool
	Ready     bool
	JoinedAt  time.Time
	Results   []Result
}

type Result struct {
	ID        string
	Round     int
	Elapsed   time.Duration
	DNF       bool
	PlusTwo   bool
	CreatedAt time.Time
}

type ChatMessage struct {
	ID        string
	RoomID    string
	UserID    string
	Username  string
	Text      string
	CreatedAt time.Time
}

type Ban struct {
	RoomID    string
	UserID    string
	CreatedAt time.Time
}

// CreateSpec is what a client asks for when opening a room.
type CreateSpec struct {
	Name         string
	PuzzleType   string
	MaxPlayers   int
	Private      bool
	Password     string
	InputMethods []string
}

type ResultInput struct {
	Round   int
	Elapsed time.Duration
	DNF     bool
	PlusTwo bool
}

// ValidateSpec normalizes a create request: name trimmed and truncated, puzzle type
// defaulted, capacity clamped, input methods filtered to the known set.
func ValidateSpec(spec CreateSpec) (CreateSpec, error) {
	name, err := NormalizeName(spec.Name)
	if err != nil {
		return spec, err
	}
	spec.Name = name

	if spec.PuzzleType == "" {
		spec.PuzzleType = DefaultPuzzleType
	}
	if !IsSupportedPuzzle(spec.PuzzleType) {
		return spec, ErrUnsupportedPuzzle
	}

	spec.MaxPlayers = ClampPlayers(spec.MaxPlayers)

	if utf8.RuneCountInString(spec.Password) > MaxPasswordLength {
		return spec, ErrPasswordTooLong
	}
	if spec.Password != "" {
		spec.Private = true
	}

	spec.InputMethods = NormalizeInputMethods(spec.InputMethods)
	return spec, nil
}

func NormalizeName(name string) (string, error) {
	name = truncate(strings.TrimSpace(name), MaxRoomNameLength)
	if name == "" {
		return "", ErrInvalidName
	}
	return name, nil
}

func ClampPlayers(n int) int {
	switch {
	case n <= 0:
		return DefaultMaxPlayers
	case n < MinPlayers:
		return MinPlayers
	case n > MaxPlayers:
		return MaxPlayers
	}
	return n
}

func NormalizeInputMethods(methods []string) []string {
	out := make([]string, 0, len(methods))
	for _, m := range methods {
		if slices.Contains(DefaultInputMethods, m) && !slices.Contains(out, m) {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return slices.Clone(DefaultInputMethods)
	}
	return out
}

// NormalizeChat trims and truncates a chat line.
func NormalizeChat(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}
	return strings.TrimSpace(truncate(text, MaxChatMessageLength)), nil
}

// Competing returns the participants that count towards round completion.
func Competing(r Room) []Participant {
	out := make([]Participant, 0, len(r.Participants))
	for _, p := range r.Participants {
		if !p.Spectator {
			out = append(out, p)
		}
	}
	return out
}

// RoundComplete reports whether every competing participant has answered the
// current round. A room with nobody competing is never complete.
func RoundComplete(r Room) bool {
	competing := Competing(r)
	if len(competing) == 0 {
		return false
	}
	for _, p := range competing {
		if !p.HasResult(r.Round) {
			return false
		}
	}
	return true
}

// Successor picks the longest-tenured participant.
func Successor(remaining []Participant) (Participant, bool) {
	if len(remaining) == 0 {
		return Participant{}, false
	}
	best := remaining[0]
	for _, p := range remaining[1:] {
		if p.JoinedAt.Before(best.JoinedAt) ||
			(p.JoinedAt.Equal(best.JoinedAt) && p.UserID < best.UserID) {
			best = p
		}
	}
	return best, true
}

func CanManage(r Room, actorID string, privileged bool) bool {
	return privileged || (actorID != "" && r.CreatorID == actorID)
}

// CheckResult validates a submission against the room's current round.
func CheckResult(r Room, p Participant, in ResultInput) error {
	if in.Round < 1 || in.Round > r.Round {
		return ErrRoundOutOfRange
	}
	if in.Elapsed < 0 {
		return ErrNegativeTime
	}
	if p.HasResult(in.Round) {
		return ErrRoundAlreadySubmitted
	}
	return nil
}

func (r Room) Participant(userID string) (Participant, bool) {
	for _, p := range r.Participants {
		if p.UserID == userID {
			return p, true
		}
	}
	return Participant{}, false
}

func (r Room) Full() bool {
	return len(r.Participants) >= r.MaxPlayers
}

func (p Participant) HasResult(round int) bool {
	return slices.ContainsFunc(p.Results, func(res Result) bool { return res.Round == round })
}
