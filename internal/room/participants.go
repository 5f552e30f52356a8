package room

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/auth"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/engine"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/metrics"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/store"
	wire "github.com/ibrhyyme/Zkt-Timer-sub002/pkg/types"
)

type JoinResult struct {
	Room       wire.RoomView
	IsNew      bool
	NewAdminID string
}

type Departure struct {
	RoomDeleted bool
	NewAdminID  string
}

// Join adds user to a room. Joining a room you are already in is a no-op that
// clears any DISCONNECTED status other members see.
func (s *Service) Join(ctx context.Context, roomID string, user auth.User, password string) (JoinResult, error) {
	banned, err := s.store.IsBanned(ctx, roomID, user.ID)
	if err != nil {
		return JoinResult{}, fmt.Errorf("ban lookup: %w", err)
	}
	if banned {
		return JoinResult{}, ErrBanned
	}

	r, err := s.room(ctx, roomID)
	if err != nil {
		return JoinResult{}, err
	}
	if r.Status == engine.StatusClosed {
		return JoinResult{}, ErrRoomClosed
	}
	if _, ok := r.Participant(user.ID); ok {
		return s.rejoin(ctx, r, user)
	}
	if r.Full() {
		return JoinResult{}, ErrRoomFull
	}
	if r.Private && r.PasswordHash != "" && r.CreatorID != user.ID {
		if password == "" {
			return JoinResult{}, ErrPasswordRequired
		}
		if bcrypt.CompareHashAndPassword([]byte(r.PasswordHash), []byte(password)) != nil {
			return JoinResult{}, ErrWrongPassword
		}
	}

	p := engine.Participant{
		ID:       s.newID(),
		RoomID:   roomID,
		UserID:   user.ID,
		Username: user.Username,
		JoinedAt: s.now(),
	}
	restored, err := s.store.AddParticipant(ctx, p)
	switch {
	case errors.Is(err, store.ErrDuplicate):
		// Lost a race with another connection of the same user.
		r, err = s.room(ctx, roomID)
		if err != nil {
			return JoinResult{}, err
		}
		return s.rejoin(ctx, r, user)
	case errors.Is(err, store.ErrFull):
		return JoinResult{}, ErrRoomFull
	case errors.Is(err, store.ErrNotFound):
		return JoinResult{}, ErrRoomNotFound
	case err != nil:
		return JoinResult{}, fmt.Errorf("add participant: %w", err)
	}

	r, err = s.room(ctx, roomID)
	if err != nil {
		return JoinResult{}, err
	}
	view, err := s.fullView(ctx, r)
	if err != nil {
		return JoinResult{}, err
	}
	res := JoinResult{Room: view, IsNew: true}

	if restored {
		res.NewAdminID = user.ID
		s.publish(roomID, wire.AdminChanged, wire.AdminChangedPayload{NewAdminID: user.ID})
	}
	if joined, ok := r.Participant(user.ID); ok {
		s.publish(roomID, wire.PlayerJoined, wire.PlayerJoinedPayload{Participant: participantView(joined)})
	}
	s.notify(roomID, wire.NoticeJoin, user.Username+" joined")
	s.log.Info("player joined",
		zap.String("room_id", roomID),
		zap.String("user_id", user.ID),
		zap.Bool("admin_restored", restored))

	s.pushLobby(ctx)
	return res, nil
}

func (s *Service) rejoin(ctx context.Context, r engine.Room, user auth.User) (JoinResult, error) {
	view, err := s.fullView(ctx, r)
	if err != nil {
		return JoinResult{}, err
	}
	s.publish(r.ID, wire.UserStatus, wire.UserStatusPayload{UserID: user.ID, Status: wire.StatusIdle})
	return JoinResult{Room: view}, nil
}

// IsParticipant reports whether userID currently occupies the room.
func (s *Service) IsParticipant(ctx context.Context, roomID, userID string) (bool, error) {
	r, err := s.room(ctx, roomID)
	if err != nil {
		return false, err
	}
	_, ok := r.Participant(userID)
	return ok, nil
}

// Leave removes user from a room. The last one out deletes it.
func (s *Service) Leave(ctx context.Context, roomID string, user auth.User) (Departure, error) {
	return s.depart(ctx, roomID, user.ID, user.Username+" left")
}

// Evict is Leave for a user whose grace period ran out.
func (s *Service) Evict(ctx context.Context, roomID string, user auth.User) (Departure, error) {
	name := user.Username
	if name == "" {
		name = "A player"
	}
	return s.depart(ctx, roomID, user.ID, name+" left (connection timed out)")
}

// Kick removes targetID from the room. Site admins may kick themselves.
func (s *Service) Kick(ctx context.Context, roomID string, requester auth.User, targetID string) (Departure, error) {
	r, err := s.room(ctx, roomID)
	if err != nil {
		return Departure{}, err
	}
	if !engine.CanManage(r, requester.ID, requester.Admin) {
		return Departure{}, ErrNotCreator
	}
	if requester.ID == targetID && !requester.Admin {
		return Departure{}, ErrSelfTarget
	}
	d, err := s.depart(ctx, roomID, targetID, "")
	if err == nil {
		s.log.Info("player kicked", zap.String("room_id", roomID), zap.String("user_id", targetID), zap.String("by", requester.ID))
	}
	return d, err
}

// Ban records that targetID may not rejoin, then removes them if present.
func (s *Service) Ban(ctx context.Context, roomID string, requester auth.User, targetID string) (Departure, error) {
	r, err := s.room(ctx, roomID)
	if err != nil {
		return Departure{}, err
	}
	if !engine.CanManage(r, requester.ID, requester.Admin) {
		return Departure{}, ErrNotCreator
	}
	if requester.ID == targetID {
		return Departure{}, ErrSelfTarget
	}

	ban := engine.Ban{RoomID: roomID, UserID: targetID, CreatedAt: s.now()}
	if err := s.store.UpsertBan(ctx, ban); err != nil {
		return Departure{}, fmt.Errorf("ban %s: %w", targetID, err)
	}
	s.log.Info("player banned", zap.String("room_id", roomID), zap.String("user_id", targetID), zap.String("by", requester.ID))

	d, err := s.depart(ctx, roomID, targetID, "")
	if errors.Is(err, ErrNotParticipant) {
		return Departure{}, nil
	}
	return d, err
}

func (s *Service) depart(ctx context.Context, roomID, userID, notice string) (Departure, error) {
	out, err := s.store.RemoveParticipant(ctx, roomID, userID)
	if errors.Is(err, store.ErrNotFound) {
		if _, err := s.room(ctx, roomID); err != nil {
			return Departure{}, err
		}
		return Departure{}, ErrNotParticipant
	}
	if err != nil {
		return Departure{}, fmt.Errorf("remove participant: %w", err)
	}

	d := Departure{RoomDeleted: out.RoomDeleted, NewAdminID: out.NewCreatorID}
	if out.RoomDeleted {
		metrics.RoomsDeleted.WithLabelValues("empty").Inc()
		s.log.Info("room emptied", zap.String("room_id", roomID))
		s.publish(roomID, wire.RoomDeleted, nil)
		s.bc.Retire(roomID)
		s.pushLobby(ctx)
		return d, nil
	}

	s.publish(roomID, wire.PlayerLeft, wire.UserPayload{UserID: userID})
	if notice != "" {
		s.notify(roomID, wire.NoticeLeave, notice)
	}
	if out.NewCreatorID != "" {
		s.publish(roomID, wire.AdminChanged, wire.AdminChangedPayload{NewAdminID: out.NewCreatorID})
	}
	s.bc.Expel(roomID, userID)
	s.pushLobby(ctx)

	s.checkRound(ctx, roomID)
	return d, nil
}

// ToggleSpectator flips whether the caller competes. Leaving the competition
// can complete the current round.
func (s *Service) ToggleSpectator(ctx context.Context, roomID, userID string) (bool, error) {
	v, err := s.store.ToggleSpectator(ctx, roomID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return false, ErrNotParticipant
	}
	if err != nil {
		return false, fmt.Errorf("toggle spectator: %w", err)
	}
	s.publish(roomID, wire.SpectatorChanged, wire.SpectatorPayload{UserID: userID, Spectator: v})
	s.checkRound(ctx, roomID)
	return v, nil
}

func (s *Service) ToggleReady(ctx context.Context, roomID, userID string) (bool, error) {
	v, err := s.store.ToggleReady(ctx, roomID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return false, ErrNotParticipant
	}
	if err != nil {
		return false, fmt.Errorf("toggle ready: %w", err)
	}
	s.publish(roomID, wire.PlayerReadyChanged, wire.ReadyPayload{UserID: userID, Ready: v})
	return v, nil
}
