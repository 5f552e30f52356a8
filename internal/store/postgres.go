package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/engine"
)

// Postgres is the gorm-backed Store.
type Postgres struct {
	db  *gorm.DB
	log *zap.Logger
}

// OpenPostgres connects and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string, log *zap.Logger) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	p := NewPostgres(db, log)
	if err := p.Migrate(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func NewPostgres(db *gorm.DB, log *zap.Logger) *Postgres {
	if db == nil {
		panic("database connection cannot be nil for Postgres store")
	}
	return &Postgres{db: db, log: log.With(zap.String("component", "store"))}
}

func (s *Postgres) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(
		&roomRecord{},
		&participantRecord{},
		&resultRecord{},
		&chatRecord{},
		&banRecord{},
	)
	if err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	s.log.Info("schema migrated")
	return nil
}

func (s *Postgres) CreateRoom(ctx context.Context, room engine.Room) error {
	rec := toRoomRecord(room)
	return mapErr("create room", s.db.WithContext(ctx).Create(&rec).Error)
}

func (s *Postgres) GetRoom(ctx context.Context, id string) (engine.Room, error) {
	var rec roomRecord
	err := s.withRoster(s.db.WithContext(ctx)).First(&rec, "id = ?", id).Error
	if err != nil {
		return engine.Room{}, mapErr("get room "+id, err)
	}
	return rec.toEngine(), nil
}

func (s *Postgres) ListActiveRooms(ctx context.Context) ([]engine.Room, error) {
	var recs []roomRecord
	err := s.withRoster(s.db.WithContext(ctx)).
		Where("status IN ?", []string{string(engine.StatusWaiting), string(engine.StatusActive)}).
		Order("created_at DESC").
		Find(&recs).Error
	if err != nil {
		return nil, mapErr("list active rooms", err)
	}
	out := make([]engine.Room, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toEngine())
	}
	return out, nil
}

func (s *Postgres) RoomIDsForUser(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&participantRecord{}).
		Where("user_id = ?", userID).
		Order("room_id").
		Pluck("room_id", &ids).Error
	return ids, mapErr("room ids for user", err)
}

func (s *Postgres) DeleteRoom(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&roomRecord{}, "id = ?", id)
	if res.Error != nil {
		return mapErr("delete room "+id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) SetStatus(ctx context.Context, roomID string, status engine.Status) error {
	return s.updateRoom(ctx, roomID, map[string]any{"status": string(status)})
}

func (s *Postgres) UpdateSettings(ctx context.Context, roomID string, set Settings) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{}
		if set.Name != nil {
			updates["name"] = *set.Name
		}
		if set.Private != nil {
			updates["private"] = *set.Private
		}
		if set.PasswordHash != nil {
			updates["password_hash"] = *set.PasswordHash
		}
		if set.InputMethods != nil {
			updates["input_methods"] = strings.Join(set.InputMethods, ",")
		}
		if set.Reset != nil {
			updates["puzzle_type"] = set.Reset.PuzzleType
			updates["scramble"] = set.Reset.Scramble
			updates["round"] = 1
			if err := tx.Where("room_id = ?", roomID).Delete(&resultRecord{}).Error; err != nil {
				return mapErr("reset results", err)
			}
		}
		if len(updates) == 0 {
			return nil
		}
		res := tx.Model(&roomRecord{}).Where("id = ?", roomID).Updates(updates)
		if res.Error != nil {
			return mapErr("update settings", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *Postgres) AdvanceRound(ctx context.Context, roomID string, from int, scramble string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&roomRecord{}).
		Where("id = ? AND round = ?", roomID, from).
		Updates(map[string]any{"round": from + 1, "scramble": scramble})
	if res.Error != nil {
		return false, mapErr("advance round", res.Error)
	}
	if res.RowsAffected == 1 {
		return true, nil
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&roomRecord{}).Where("id = ?", roomID).Count(&count).Error; err != nil {
		return false, mapErr("advance round", err)
	}
	if count == 0 {
		return false, ErrNotFound
	}
	return false, nil
}

func (s *Postgres) AddParticipant(ctx context.Context, p engine.Participant) (bool, error) {
	restored := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		room, err := lockRoom(tx, p.RoomID)
		if err != nil {
			return err
		}
		var present int64
		if err := tx.Model(&participantRecord{}).Where("room_id = ? AND user_id = ?", p.RoomID, p.UserID).Count(&present).Error; err != nil {
			return mapErr("count participant", err)
		}
		if present > 0 {
			return ErrDuplicate
		}
		var count int64
		if err := tx.Model(&participantRecord{}).Where("room_id = ?", p.RoomID).Count(&count).Error; err != nil {
			return mapErr("count participants", err)
		}
		if int(count) >= room.MaxPlayers {
			return ErrFull
		}
		rec := toParticipantRecord(p)
		if err := tx.Create(&rec).Error; err != nil {
			return mapErr("add participant", err)
		}
		if room.OriginalCreatorID == p.UserID && room.CreatorID != p.UserID {
			if err := tx.Model(&roomRecord{}).Where("id = ?", p.RoomID).Update("creator_id", p.UserID).Error; err != nil {
				return mapErr("restore creator", err)
			}
			restored = true
		}
		return nil
	})
	return restored, err
}

func (s *Postgres) RemoveParticipant(ctx context.Context, roomID, userID string) (Removal, error) {
	var out Removal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		out = Removal{}
		room, err := lockRoom(tx, roomID)
		if err != nil {
			return err
		}
		res := tx.Where("room_id = ? AND user_id = ?", roomID, userID).Delete(&participantRecord{})
		if res.Error != nil {
			return mapErr("remove participant", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		var recs []participantRecord
		if err := tx.Where("room_id = ?", roomID).Order("joined_at ASC").Find(&recs).Error; err != nil {
			return mapErr("list remaining", err)
		}
		if len(recs) == 0 {
			if err := tx.Delete(&roomRecord{}, "id = ?", roomID).Error; err != nil {
				return mapErr("delete empty room", err)
			}
			out.RoomDeleted = true
			return nil
		}
		for _, rec := range recs {
			out.Remaining = append(out.Remaining, rec.toEngine())
		}
		if room.CreatorID == userID {
			next, _ := engine.Successor(out.Remaining)
			if err := tx.Model(&roomRecord{}).Where("id = ?", roomID).Update("creator_id", next.UserID).Error; err != nil {
				return mapErr("hand over room", err)
			}
			out.NewCreatorID = next.UserID
		}
		return nil
	})
	return out, err
}

func (s *Postgres) ToggleSpectator(ctx context.Context, roomID, userID string) (bool, error) {
	return s.toggle(ctx, roomID, userID, "spectator")
}

func (s *Postgres) ToggleReady(ctx context.Context, roomID, userID string) (bool, error) {
	return s.toggle(ctx, roomID, userID, "ready")
}

func (s *Postgres) AddResult(ctx context.Context, roomID, userID string, r engine.Result) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p participantRecord
		if err := tx.First(&p, "room_id = ? AND user_id = ?", roomID, userID).Error; err != nil {
			return mapErr("find participant", err)
		}
		rec := toResultRecord(roomID, p.ID, r)
		return mapErr("add result", tx.Create(&rec).Error)
	})
}

func (s *Postgres) AddChat(ctx context.Context, m engine.ChatMessage) error {
	rec := chatRecord{
		ID:        m.ID,
		RoomID:    m.RoomID,
		UserID:    m.UserID,
		Username:  m.Username,
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
	return mapErr("add chat", s.db.WithContext(ctx).Create(&rec).Error)
}

func (s *Postgres) RecentChat(ctx context.Context, roomID string, limit int) ([]engine.ChatMessage, error) {
	var recs []chatRecord
	err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, mapErr("recent chat", err)
	}
	slices.Reverse(recs)
	out := make([]engine.ChatMessage, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toEngine())
	}
	return out, nil
}

func (s *Postgres) UpsertBan(ctx context.Context, b engine.Ban) error {
	rec := banRecord{RoomID: b.RoomID, UserID: b.UserID, CreatedAt: b.CreatedAt}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
	return mapErr("upsert ban", err)
}

func (s *Postgres) IsBanned(ctx context.Context, roomID, userID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&banRecord{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	if err != nil {
		return false, mapErr("is banned", err)
	}
	return count > 0, nil
}

func (s *Postgres) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Postgres) withRoster(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Participants", func(db *gorm.DB) *gorm.DB { return db.Order("joined_at ASC") }).
		Preload("Participants.Results", func(db *gorm.DB) *gorm.DB { return db.Order("round ASC") })
}

func (s *Postgres) updateRoom(ctx context.Context, roomID string, updates map[string]any) error {
	res := s.db.WithContext(ctx).Model(&roomRecord{}).Where("id = ?", roomID).Updates(updates)
	if res.Error != nil {
		return mapErr("update room "+roomID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) toggle(ctx context.Context, roomID, userID, column string) (bool, error) {
	var p participantRecord
	res := s.db.WithContext(ctx).Model(&p).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: column}}}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Update(column, gorm.Expr("NOT "+column))
	if res.Error != nil {
		return false, mapErr("toggle "+column, res.Error)
	}
	if res.RowsAffected == 0 {
		return false, ErrNotFound
	}
	if column == "ready" {
		return p.Ready, nil
	}
	return p.Spectator, nil
}

// lockRoom takes the room row lock that serializes roster changes.
func lockRoom(tx *gorm.DB, roomID string) (roomRecord, error) {
	var room roomRecord
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&room, "id = ?", roomID).Error
	return room, mapErr("lock room", err)
}

// mapErr folds driver errors into the store sentinels.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicate) || errors.Is(err, ErrFull) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return fmt.Errorf("postgres: %s: %w", op, err)
}
