package room

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/engine"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/metrics"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/store"
	wire "github.com/ibrhyyme/Zkt-Timer-sub002/pkg/types"
)

// Submit records a participant's result for a round and advances the room
// when that completes the current round.
func (s *Service) Submit(ctx context.Context, roomID, userID string, in engine.ResultInput) (wire.ResultView, error) {
	r, err := s.room(ctx, roomID)
	if err != nil {
		return wire.ResultView{}, err
	}
	p, ok := r.Participant(userID)
	if !ok {
		return wire.ResultView{}, ErrNotParticipant
	}
	if err := engine.CheckResult(r, p, in); err != nil {
		if errors.Is(err, engine.ErrRoundAlreadySubmitted) {
			return wire.ResultView{}, ErrDuplicateResult
		}
		return wire.ResultView{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	res := engine.Result{
		ID:        s.newID(),
		Round:     in.Round,
		Elapsed:   in.Elapsed,
		DNF:       in.DNF,
		PlusTwo:   in.PlusTwo,
		CreatedAt: s.now(),
	}
	switch err := s.store.AddResult(ctx, roomID, userID, res); {
	case errors.Is(err, store.ErrDuplicate):
		return wire.ResultView{}, ErrDuplicateResult
	case errors.Is(err, store.ErrNotFound):
		return wire.ResultView{}, ErrNotParticipant
	case err != nil:
		return wire.ResultView{}, fmt.Errorf("add result: %w", err)
	}
	metrics.ResultsSubmitted.Inc()

	view := resultView(res)
	s.publish(roomID, wire.SolveSubmitted, wire.SolveSubmittedPayload{UserID: userID, Solve: view})

	s.checkRound(ctx, roomID)
	return view, nil
}

// NextRound is the creator skipping ahead to a fresh scramble.
func (s *Service) NextRound(ctx context.Context, roomID, actorID string) error {
	r, err := s.room(ctx, roomID)
	if err != nil {
		return err
	}
	if r.CreatorID != actorID {
		return ErrNotCreator
	}
	_, err = s.advance(ctx, r, "manual")
	return err
}

// checkRound advances the room when every competing participant has answered
// the current round. It re-reads the room each time and never fails its caller.
func (s *Service) checkRound(ctx context.Context, roomID string) {
	r, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log.Warn("round check failed", zap.String("room_id", roomID), zap.Error(err))
		}
		return
	}
	if !engine.RoundComplete(r) {
		return
	}
	if _, err := s.advance(ctx, r, "auto"); err != nil {
		s.log.Warn("auto advance failed", zap.String("room_id", roomID), zap.Error(err))
	}
}

// advance moves r from its current round to the next one. Only the caller whose
// compare-and-set wins broadcasts, so a round advances once however many
// callers observe it complete.
func (s *Service) advance(ctx context.Context, r engine.Room, trigger string) (bool, error) {
	next := s.scrambles.Scramble(r.PuzzleType)
	ok, err := s.store.AdvanceRound(ctx, r.ID, r.Round, next)
	if errors.Is(err, store.ErrNotFound) {
		return false, ErrRoomNotFound
	}
	if err != nil {
		return false, fmt.Errorf("advance round %s: %w", r.ID, err)
	}
	if !ok {
		return false, nil
	}

	round := r.Round + 1
	metrics.RoundsAdvanced.WithLabelValues(trigger).Inc()
	s.log.Debug("round advanced",
		zap.String("room_id", r.ID),
		zap.Int("round", round),
		zap.String("trigger", trigger))

	s.publish(r.ID, wire.ScrambleUpdated, wire.ScramblePayload{Scramble: next, Round: round})
	s.notify(r.ID, wire.NoticeInfo, "Scramble "+strconv.Itoa(round))
	return true, nil
}
