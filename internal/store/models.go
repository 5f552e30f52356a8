package store

import (
	"strings"
	"time"

	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/engine"
)

type roomRecord struct {
	ID                string `gorm:"primaryKey;size:36"`
	Name              string `gorm:"size:64;not null"`
	PuzzleType        string `gorm:"size:16;not null"`
	MaxPlayers        int    `gorm:"not null"`
	Private           bool
	PasswordHash      string
	InputMethods      string
	Scramble          string `gorm:"type:text"`
	Round             int    `gorm:"not null;default:1"`
	Status            string `gorm:"size:16;not null;index"`
	CreatorID         string `gorm:"size:64;not null"`
	OriginalCreatorID string `gorm:"size:64;not null"`
	CreatedAt         time.Time

	Participants []participantRecord `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE"`
	Chat         []chatRecord        `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE"`
}

func (roomRecord) TableName() string { return "friendly_rooms" }

type participantRecord struct {
	ID        string `gorm:"primaryKey;size:36"`
	RoomID    string `gorm:"size:36;not null;uniqueIndex:idx_participant_room_user"`
	UserID    string `gorm:"size:64;not null;uniqueIndex:idx_participant_room_user;index"`
	Username  string `gorm:"size:64"`
	Spectator bool
	Ready     bool
	JoinedAt  time.Time `gorm:"index"`

	Results []resultRecord `gorm:"foreignKey:ParticipantID;constraint:OnDelete:CASCADE"`
}

func (participantRecord) TableName() string { return "friendly_room_participants" }

type resultRecord struct {
	ID            string `gorm:"primaryKey;size:36"`
	RoomID        string `gorm:"size:36;not null;index"`
	ParticipantID string `gorm:"size:36;not null;uniqueIndex:idx_result_participant_round"`
	Round         int    `gorm:"not null;uniqueIndex:idx_result_participant_round"`
	ElapsedMs     int64
	DNF           bool
	PlusTwo       bool
	CreatedAt     time.Time
}

func (resultRecord) TableName() string { return "friendly_room_solves" }

type chatRecord struct {
	ID        string    `gorm:"primaryKey;size:36"`
	RoomID    string    `gorm:"size:36;not null;index"`
	UserID    string    `gorm:"size:64;not null"`
	Username  string    `gorm:"size:64"`
	Text      string    `gorm:"size:512"`
	CreatedAt time.Time `gorm:"index"`
}

func (chatRecord) TableName() string { return "friendly_room_chat" }

// Bans have no foreign key: they outlive the room row.
type banRecord struct {
	RoomID    string `gorm:"primaryKey;size:36;autoIncrement:false"`
	UserID    string `gorm:"primaryKey;size:64;autoIncrement:false"`
	CreatedAt time.Time
}

func (banRecord) TableName() string { return "friendly_room_bans" }

func toRoomRecord(r engine.Room) roomRecord {
	rec := roomRecord{
		ID:                r.ID,
		Name:              r.Name,
		PuzzleType:        r.PuzzleType,
		MaxPlayers:        r.MaxPlayers,
		Private:           r.Private,
		PasswordHash:      r.PasswordHash,
		InputMethods:      strings.Join(r.InputMethods, ","),
		Scramble:          r.Scramble,
		Round:             r.Round,
		Status:            string(r.Status),
		CreatorID:         r.CreatorID,
		OriginalCreatorID: r.OriginalCreatorID,
		CreatedAt:         r.CreatedAt,
	}
	for _, p := range r.Participants {
		rec.Participants = append(rec.Participants, toParticipantRecord(p))
	}
	return rec
}

func toParticipantRecord(p engine.Participant) participantRecord {
	rec := participantRecord{
		ID:        p.ID,
		RoomID:    p.RoomID,
		UserID:    p.UserID,
		Username:  p.Username,
		Spectator: p.Spectator,
		Ready:     p.Ready,
		JoinedAt:  p.JoinedAt,
	}
	for _, res := range p.Results {
		rec.Results = append(rec.Results, toResultRecord(p.RoomID, p.ID, res))
	}
	return rec
}

func toResultRecord(roomID, participantID string, r engine.Result) resultRecord {
	return resultRecord{
		ID:            r.ID,
		RoomID:        roomID,
		ParticipantID: participantID,
		Round:         r.Round,
		ElapsedMs:     r.Elapsed.Milliseconds(),
		DNF:           r.DNF,
		PlusTwo:       r.PlusTwo,
		CreatedAt:     r.CreatedAt,
	}
}

func (rec roomRecord) toEngine() engine.Room {
	r := engine.Room{
		ID:                rec.ID,
		Name:              rec.Name,
		PuzzleType:        rec.PuzzleType,
		MaxPlayers:        rec.MaxPlayers,
		Private:           rec.Private,
		PasswordHash:      rec.PasswordHash,
		Scramble:          rec.Scramble,
		Round:             rec.Round,
		Status:            engine.Status(rec.Status),
		CreatorID:         rec.CreatorID,
		OriginalCreatorID: rec.OriginalCreatorID,
		CreatedAt:         rec.CreatedAt,
	}
	if rec.InputMethods != "" {
		r.InputMethods = strings.Split(rec.InputMethods, ",")
	}
	for _, p := range rec.Participants {
		r.Participants = append(r.Participants, p.toEngine())
	}
	return r
}

func (rec participantRecord) toEngine() engine.Participant {
	p := engine.Participant{
		ID:        rec.ID,
		RoomID:    rec.RoomID,
		UserID:    rec.UserID,
		Username:  rec.Username,
		Spectator: rec.Spectator,
		Ready:     rec.Ready,
		JoinedAt:  rec.JoinedAt,
	}
	for _, res := range rec.Results {
		p.Results = append(p.Results, engine.Result{
			ID:        res.ID,
			Round:     res.Round,
			Elapsed:   time.Duration(res.ElapsedMs) * time.Millisecond,
			DNF:       res.DNF,
			PlusTwo:   res.PlusTwo,
			CreatedAt: res.CreatedAt,
		})
	}
	return p
}

func (rec chatRecord) toEngine() engine.ChatMessage {
	return engine.ChatMessage{
		ID:        rec.ID,
		RoomID:    rec.RoomID,
		UserID:    rec.UserID,
		Username:  rec.Username,
		Text:      rec.Text,
		CreatedAt: rec.CreatedAt,
	}
}
