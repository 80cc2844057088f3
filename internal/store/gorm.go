package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/sujalbistaa/whisperwall/internal/models"
	"github.com/sujalbistaa/whisperwall/internal/moderation"
)

// GormStore implements Store on top of a GORM connection (SQLite or
// Postgres). Counter updates run as in-place SQL increments so concurrent
// requests never lose updates.
type GormStore struct {
	db *gorm.DB
}

func New(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// ResolveIdentity returns the identity behind key, inserting a fresh
// zero-point, non-banned record the first time the key is seen.
func (s *GormStore) ResolveIdentity(ctx context.Context, key string) (*models.Identity, error) {
	var ident models.Identity
	err := s.db.WithContext(ctx).Where(models.Identity{Key: key}).FirstOrCreate(&ident).Error
	if err != nil {
		return nil, err
	}
	return &ident, nil
}

// RewardIdentity adds delta points in place. Points never decrease.
func (s *GormStore) RewardIdentity(ctx context.Context, key string, delta int) error {
	res := s.db.WithContext(ctx).Model(&models.Identity{}).
		Where("key = ?", key).
		UpdateColumn("points", gorm.Expr("points + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// BanIdentity flips the ban flag. The transition is one-way; there is no
// unban.
func (s *GormStore) BanIdentity(ctx context.Context, key string) error {
	res := s.db.WithContext(ctx).Model(&models.Identity{}).
		Where("key = ?", key).
		Update("banned", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateWhisper persists a new whisper. Room coercion happens here so
// every entry point (API, seeding) goes through the same rule.
func (s *GormStore) CreateWhisper(ctx context.Context, w *models.Whisper) error {
	w.Room = models.CoerceRoom(w.Room)
	if w.Status == "" {
		w.Status = models.WhisperActive
	}
	return s.db.WithContext(ctx).Create(w).Error
}

func (s *GormStore) GetWhisper(ctx context.Context, id uint) (*models.Whisper, error) {
	var w models.Whisper
	if err := s.db.WithContext(ctx).First(&w, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &w, nil
}

// DeleteWhisper soft-deletes a whisper (admin action). The row stays so
// existing replies keep a parent.
func (s *GormStore) DeleteWhisper(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.Whisper{}).
		Where("id = ?", id).
		Update("status", models.WhisperDeleted)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRecentWhispers returns the newest whispers regardless of status,
// for the admin dashboard.
func (s *GormStore) ListRecentWhispers(ctx context.Context, limit int) ([]models.Whisper, error) {
	var whispers []models.Whisper
	err := s.db.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Find(&whispers).Error
	return whispers, err
}

// MatchPool is the bounded ordered stage of the matching policy: eligible
// whispers sorted by fewest replies first, newest first among ties, cut
// off at limit. The uniform pick over the result happens in the match
// package.
func (s *GormStore) MatchPool(ctx context.Context, requesterKey, room string, limit int) ([]models.Whisper, error) {
	query := s.db.WithContext(ctx).
		Where("status = ?", models.WhisperActive).
		Where("report_count < ?", moderation.HideThreshold).
		Where("author_key <> ?", requesterKey)
	if room != "" && room != models.RoomAll {
		query = query.Where("room = ?", room)
	}
	var pool []models.Whisper
	err := query.
		Order("reply_count asc, created_at desc").
		Limit(limit).
		Find(&pool).Error
	return pool, err
}

// CreateReply stores a reply and bumps the parent's reply counter in the
// same transaction. IsAuthorReply is computed here, once, from the parent
// whisper's author key.
func (s *GormStore) CreateReply(ctx context.Context, reply *models.Reply) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var parent models.Whisper
		err := tx.Where("status = ?", models.WhisperActive).First(&parent, reply.WhisperID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		reply.IsAuthorReply = reply.ResponderKey == parent.AuthorKey
		if reply.Status == "" {
			reply.Status = models.ReplyVisible
		}
		if err := tx.Create(reply).Error; err != nil {
			return err
		}
		// reply_count throttles matching; it is never decremented later.
		return tx.Model(&models.Whisper{}).
			Where("id = ?", parent.ID).
			UpdateColumn("reply_count", gorm.Expr("reply_count + 1")).Error
	})
}

func (s *GormStore) ListReplies(ctx context.Context, whisperID uint) ([]models.Reply, error) {
	var replies []models.Reply
	err := s.db.WithContext(ctx).
		Where("whisper_id = ? AND status = ?", whisperID, models.ReplyVisible).
		Order("created_at asc").
		Find(&replies).Error
	return replies, err
}

// ReportWhisper counts a report and hides the whisper once the
// post-increment count reaches the threshold. The counter keeps growing
// past the threshold; the hide transition fires at most once.
func (s *GormStore) ReportWhisper(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.Whisper{}).
		Where("id = ?", id).
		UpdateColumn("report_count", gorm.Expr("report_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return s.db.WithContext(ctx).Model(&models.Whisper{}).
		Where("id = ? AND report_count >= ? AND status = ?", id, moderation.HideThreshold, models.WhisperActive).
		Update("status", models.WhisperHidden).Error
}

// ReportReply mirrors ReportWhisper for replies.
func (s *GormStore) ReportReply(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.Reply{}).
		Where("id = ?", id).
		UpdateColumn("report_count", gorm.Expr("report_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return s.db.WithContext(ctx).Model(&models.Reply{}).
		Where("id = ? AND report_count >= ? AND status = ?", id, moderation.HideThreshold, models.ReplyVisible).
		Update("status", models.ReplyHidden).Error
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
