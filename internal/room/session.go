package room

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/auth"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/engine"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/metrics"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/store"
	wire "github.com/ibrhyyme/Zkt-Timer-sub002/pkg/types"
)

// Presence reports users inside their disconnection grace period and when it ends.
type Presence interface {
	Pending() map[string]time.Time
}

// Patch is a partial settings change; nil fields are left alone.
type Patch struct {
	Name         *string
	Private      *bool
	Password     *string
	InputMethods []string
	PuzzleType   *string
}

// Create opens a room with the creator as its only participant.
func (s *Service) Create(ctx context.Context, user auth.User, spec engine.CreateSpec) (wire.RoomView, error) {
	spec, err := engine.ValidateSpec(spec)
	if err != nil {
		return wire.RoomView{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	hash, err := s.hashPassword(spec.Password)
	if err != nil {
		return wire.RoomView{}, err
	}

	now := s.now()
	r := engine.Room{
		ID:                s.newID(),
		Name:              spec.Name,
		PuzzleType:        spec.PuzzleType,
		MaxPlayers:        spec.MaxPlayers,
		Private:           spec.Private,
		PasswordHash:      hash,
		InputMethods:      spec.InputMethods,
		Scramble:          s.scrambles.Scramble(spec.PuzzleType),
		Round:             1,
		Status:            engine.StatusWaiting,
		CreatorID:         user.ID,
		OriginalCreatorID: user.ID,
		CreatedAt:         now,
	}
	r.Participants = []engine.Participant{{
		ID:       s.newID(),
		RoomID:   r.ID,
		UserID:   user.ID,
		Username: user.Username,
		JoinedAt: now,
	}}

	if err := s.store.CreateRoom(ctx, r); err != nil {
		return wire.RoomView{}, fmt.Errorf("create room: %w", err)
	}
	metrics.RoomsCreated.Inc()
	s.log.Info("room created",
		zap.String("room_id", r.ID),
		zap.String("user_id", user.ID),
		zap.String("puzzle", r.PuzzleType))

	s.pushLobby(ctx)
	return roomView(r), nil
}

// Start moves a waiting room to ACTIVE. Starting an active room again only
// repeats the broadcast.
func (s *Service) Start(ctx context.Context, roomID, actorID string) (wire.RoomView, error) {
	r, err := s.room(ctx, roomID)
	if err != nil {
		return wire.RoomView{}, err
	}
	if r.CreatorID != actorID {
		return wire.RoomView{}, ErrNotCreator
	}
	if len(r.Participants) == 0 || r.Status == engine.StatusClosed {
		return wire.RoomView{}, ErrRoomClosed
	}

	if r.Status == engine.StatusWaiting {
		if err := s.store.SetStatus(ctx, roomID, engine.StatusActive); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return wire.RoomView{}, ErrRoomNotFound
			}
			return wire.RoomView{}, fmt.Errorf("start room %s: %w", roomID, err)
		}
		r.Status = engine.StatusActive
	}

	s.publish(roomID, wire.RoomStarted, wire.ScramblePayload{Scramble: r.Scramble, Round: r.Round})
	s.pushLobby(ctx)
	return roomView(r), nil
}

// Delete removes a room outright. Bans survive.
func (s *Service) Delete(ctx context.Context, roomID string, actor auth.User) error {
	r, err := s.room(ctx, roomID)
	if err != nil {
		return err
	}
	if !engine.CanManage(r, actor.ID, actor.Admin) {
		return ErrNotCreator
	}

	if err := s.store.DeleteRoom(ctx, roomID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("delete room %s: %w", roomID, err)
	}
	metrics.RoomsDeleted.WithLabelValues("deleted").Inc()
	s.log.Info("room deleted",
		zap.String("room_id", roomID),
		zap.String("user_id", actor.ID),
		zap.Bool("admin", actor.Admin))

	s.publish(roomID, wire.RoomDeleted, nil)
	s.bc.Retire(roomID)
	s.pushLobby(ctx)
	return nil
}

// Update changes room settings. A new puzzle type restarts the room at round 1
// and discards every result.
func (s *Service) Update(ctx context.Context, roomID string, actor auth.User, p Patch) (wire.RoomView, error) {
	r, err := s.room(ctx, roomID)
	if err != nil {
		return wire.RoomView{}, err
	}
	if !engine.CanManage(r, actor.ID, actor.Admin) {
		return wire.RoomView{}, ErrNotCreator
	}

	var set store.Settings
	if p.Name != nil {
		if name, err := engine.NormalizeName(*p.Name); err == nil {
			set.Name = &name
		}
	}
	if p.Private != nil {
		set.Private = p.Private
	}
	switch {
	case p.Password != nil && *p.Password != "":
		hash, err := s.hashPassword(*p.Password)
		if err != nil {
			return wire.RoomView{}, err
		}
		set.PasswordHash = &hash
	case p.Private != nil && !*p.Private:
		cleared := ""
		set.PasswordHash = &cleared
	}
	if p.InputMethods != nil {
		set.InputMethods = engine.NormalizeInputMethods(p.InputMethods)
	}
	if p.PuzzleType != nil && *p.PuzzleType != r.PuzzleType {
		if !engine.IsSupportedPuzzle(*p.PuzzleType) {
			return wire.RoomView{}, fmt.Errorf("%w: %w", ErrInvalidInput, engine.ErrUnsupportedPuzzle)
		}
		set.Reset = &store.Reset{
			PuzzleType: *p.PuzzleType,
			Scramble:   s.scrambles.Scramble(*p.PuzzleType),
		}
	}

	if err := s.store.UpdateSettings(ctx, roomID, set); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return wire.RoomView{}, ErrRoomNotFound
		}
		return wire.RoomView{}, fmt.Errorf("update room %s: %w", roomID, err)
	}

	r, err = s.room(ctx, roomID)
	if err != nil {
		return wire.RoomView{}, err
	}
	view, err := s.fullView(ctx, r)
	if err != nil {
		return wire.RoomView{}, err
	}
	s.publish(roomID, wire.RoomData, view)
	s.pushLobby(ctx)
	return view, nil
}

// AdminView is the read-only room summary for site admins, including who is
// currently inside a grace period.
func (s *Service) AdminView(ctx context.Context, roomID string, actor auth.User) (wire.AdminRoomView, error) {
	if !actor.Admin {
		return wire.AdminRoomView{}, ErrNotPrivileged
	}
	r, err := s.room(ctx, roomID)
	if err != nil {
		return wire.AdminRoomView{}, err
	}
	v := roomView(r)
	out := wire.AdminRoomView{
		Participants: v.Participants,
		Round:        r.Round,
		UserStatuses: map[string]string{},
	}
	if s.presence != nil {
		pending := s.presence.Pending()
		for _, p := range r.Participants {
			if until, ok := pending[p.UserID]; ok {
				out.UserStatuses[p.UserID] = DisconnectedStatus(until)
			}
		}
	}
	return out, nil
}

// DisconnectedStatus renders the USER_STATUS value observers use to draw a
// countdown to eviction.
func DisconnectedStatus(until time.Time) string {
	return wire.StatusDisconnected + "|" + strconv.FormatInt(until.UnixMilli(), 10)
}

func (s *Service) hashPassword(pw string) (string, error) {
	if pw == "" {
		return "", nil
	}
	if utf8.RuneCountInString(pw) > engine.MaxPasswordLength {
		return "", fmt.Errorf("%w: %w", ErrInvalidInput, engine.ErrPasswordTooLong)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
