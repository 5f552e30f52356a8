package room

import (
	"time"

	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/engine"
	wire "github.com/ibrhyyme/Zkt-Timer-sub002/pkg/types"
)

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

func stamp(t time.Time) string { return t.UTC().Format(isoMillis) }

func roomView(r engine.Room) wire.RoomView {
	v := wire.RoomView{
		ID:           r.ID,
		Name:         r.Name,
		PuzzleType:   r.PuzzleType,
		MaxPlayers:   r.MaxPlayers,
		Private:      r.Private,
		InputMethods: r.InputMethods,
		Scramble:     r.Scramble,
		Round:        r.Round,
		Status:       string(r.Status),
		CreatedAt:    stamp(r.CreatedAt),
		CreatedBy:    wire.UserRef{ID: r.CreatorID},
		Participants: make([]wire.ParticipantView, 0, len(r.Participants)),
	}
	for _, p := range r.Participants {
		if p.UserID == r.CreatorID {
			v.CreatedBy.Username = p.Username
		}
		v.Participants = append(v.Participants, participantView(p))
	}
	return v
}

func participantView(p engine.Participant) wire.ParticipantView {
	v := wire.ParticipantView{
		ID:        p.ID,
		UserID:    p.UserID,
		Username:  p.Username,
		Ready:     p.Ready,
		Spectator: p.Spectator,
		JoinedAt:  stamp(p.JoinedAt),
		Results:   make([]wire.ResultView, 0, len(p.Results)),
	}
	for _, res := range p.Results {
		v.Results = append(v.Results, resultView(res))
	}
	return v
}

func resultView(r engine.Result) wire.ResultView {
	return wire.ResultView{
		ID:        r.ID,
		TimeMs:    r.Elapsed.Milliseconds(),
		DNF:       r.DNF,
		PlusTwo:   r.PlusTwo,
		Round:     r.Round,
		CreatedAt: stamp(r.CreatedAt),
	}
}

func chatView(m engine.ChatMessage) wire.ChatMessageView {
	return wire.ChatMessageView{
		ID:        m.ID,
		UserID:    m.UserID,
		Username:  m.Username,
		Message:   m.Text,
		CreatedAt: stamp(m.CreatedAt),
	}
}
