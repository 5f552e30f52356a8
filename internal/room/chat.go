package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/auth"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/engine"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/store"
	wire "github.com/ibrhyyme/Zkt-Timer-sub002/pkg/types"
)

func (s *Service) SendChat(ctx context.Context, roomID string, user auth.User, text string) (wire.ChatMessageView, error) {
	text, err := engine.NormalizeChat(text)
	if err != nil {
		return wire.ChatMessageView{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	r, err := s.room(ctx, roomID)
	if err != nil {
		return wire.ChatMessageView{}, err
	}
	if _, ok := r.Participant(user.ID); !ok {
		return wire.ChatMessageView{}, ErrNotParticipant
	}

	msg := engine.ChatMessage{
		ID:        s.newID(),
		RoomID:    roomID,
		UserID:    user.ID,
		Username:  user.Username,
		Text:      text,
		CreatedAt: s.now(),
	}
	if err := s.store.AddChat(ctx, msg); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return wire.ChatMessageView{}, ErrRoomNotFound
		}
		return wire.ChatMessageView{}, fmt.Errorf("add chat: %w", err)
	}

	view := chatView(msg)
	s.publish(roomID, wire.ChatMessage, view)
	return view, nil
}

func (s *Service) recentChat(ctx context.Context, roomID string) ([]wire.ChatMessageView, error) {
	msgs, err := s.store.RecentChat(ctx, roomID, engine.RecentChatLimit)
	if err != nil {
		return nil, fmt.Errorf("recent chat %s: %w", roomID, err)
	}
	var out []wire.ChatMessageView
	for _, m := range msgs {
		out = append(out, chatView(m))
	}
	return out, nil
}
