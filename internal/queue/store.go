// Package queue is the local durable store behind the offline photo queue.
// Every mutation is keyed by a single entry's local id.
package queue

import (
	"context"
	"errors"
	"fmt"
	"roofing-photo-sync/internal/constant"
	"roofing-photo-sync/internal/model"
	"time"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("queue entry not found")

type Stats struct {
	Pending   int64 `json:"pending"`
	Syncing   int64 `json:"syncing"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

func (s Stats) Total() int64 {
	return s.Pending + s.Syncing + s.Completed + s.Failed
}

type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Put(ctx context.Context, entry *model.QueuedPhoto) error {
	if entry.Status == "" {
		entry.Status = constant.PhotoStatusPending
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("gagal menyimpan foto ke antrean lokal: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, localID string) (*model.QueuedPhoto, error) {
	var entry model.QueuedPhoto
	err := s.db.WithContext(ctx).Where("local_id = ?", localID).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// List returns entries without their binary payload, newest first. An empty
// status lists every entry.
func (s *Store) List(ctx context.Context, status string) ([]model.QueuedPhoto, error) {
	var entries []model.QueuedPhoto
	q := s.db.WithContext(ctx).Omit("file_data").Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindEligible returns pending or failed entries that still have retries left.
func (s *Store) FindEligible(ctx context.Context, maxRetries, limit int) ([]model.QueuedPhoto, error) {
	var entries []model.QueuedPhoto
	err := s.db.WithContext(ctx).
		Where("status IN ? AND attempts < ?", []string{constant.PhotoStatusPending, constant.PhotoStatusFailed}, maxRetries).
		Order("created_at ASC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Claim moves an eligible entry to syncing and returns the row as it stands
// after the claim. It returns nil when another caller already holds the entry
// or it is no longer eligible.
func (s *Store) Claim(ctx context.Context, localID string, maxRetries int) (*model.QueuedPhoto, error) {
	now := s.now().Unix()

	var claimed *model.QueuedPhoto
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.QueuedPhoto{}).
			Where("local_id = ? AND status IN ? AND attempts < ?",
				localID, []string{constant.PhotoStatusPending, constant.PhotoStatusFailed}, maxRetries).
			Updates(map[string]interface{}{
				"status":       constant.PhotoStatusSyncing,
				"last_attempt": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return nil
		}

		var entry model.QueuedPhoto
		if err := tx.Where("local_id = ?", localID).Take(&entry).Error; err != nil {
			return err
		}
		claimed = &entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (s *Store) MarkCompleted(ctx context.Context, localID, remotePath, remoteURL string, purgeAfter time.Time) error {
	return s.update(ctx, localID, map[string]interface{}{
		"status":      constant.PhotoStatusCompleted,
		"remote_path": remotePath,
		"remote_url":  remoteURL,
		"purge_after": purgeAfter.Unix(),
		"last_error":  nil,
	})
}

// MarkRetry puts the entry back to pending with its new attempt count.
func (s *Store) MarkRetry(ctx context.Context, localID string, attempts int, errMsg string) error {
	return s.update(ctx, localID, map[string]interface{}{
		"status":     constant.PhotoStatusPending,
		"attempts":   attempts,
		"last_error": &errMsg,
	})
}

// MarkFailed records a terminal failure and its dead letter in one transaction.
func (s *Store) MarkFailed(ctx context.Context, entry *model.QueuedPhoto, attempts int, errMsg string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.QueuedPhoto{}).Where("local_id = ?", entry.LocalID).Updates(map[string]interface{}{
			"status":     constant.PhotoStatusFailed,
			"attempts":   attempts,
			"last_error": &errMsg,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}

		deadLetter := model.PhotoDeadLetter{
			LocalID:      entry.LocalID,
			TenantID:     entry.TenantID,
			Attempts:     attempts,
			ErrorMessage: errMsg,
		}
		return tx.Create(&deadLetter).Error
	})
}

// MarkMissingPayload fails an entry that has no bytes to upload. The attempt
// counter is left untouched.
func (s *Store) MarkMissingPayload(ctx context.Context, localID string) error {
	msg := constant.MissingPayloadError
	return s.update(ctx, localID, map[string]interface{}{
		"status":     constant.PhotoStatusFailed,
		"last_error": &msg,
	})
}

// ResetFailed returns every failed entry to pending with a clean retry budget.
func (s *Store) ResetFailed(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Model(&model.QueuedPhoto{}).
		Where("status = ?", constant.PhotoStatusFailed).
		Updates(map[string]interface{}{
			"status":     constant.PhotoStatusPending,
			"attempts":   0,
			"last_error": nil,
		})
	return result.RowsAffected, result.Error
}

// ReleaseStuck returns entries left in syncing since before the threshold to
// pending.
func (s *Store) ReleaseStuck(ctx context.Context, threshold time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Model(&model.QueuedPhoto{}).
		Where("status = ? AND updated_at < ?", constant.PhotoStatusSyncing, threshold.Unix()).
		Update("status", constant.PhotoStatusPending)
	return result.RowsAffected, result.Error
}

// PurgeCompleted deletes completed entries whose retention window has passed.
func (s *Store) PurgeCompleted(ctx context.Context, now time.Time, batchSize int) (int64, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&model.QueuedPhoto{}).
		Where("status = ? AND purge_after IS NOT NULL AND purge_after <= ?", constant.PhotoStatusCompleted, now.Unix()).
		Limit(batchSize).
		Pluck("local_id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	result := s.db.WithContext(ctx).Where("local_id IN ?", ids).Delete(&model.QueuedPhoto{})
	return result.RowsAffected, result.Error
}

func (s *Store) Delete(ctx context.Context, localID string) error {
	result := s.db.WithContext(ctx).Where("local_id = ?", localID).Delete(&model.QueuedPhoto{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := s.db.WithContext(ctx).Model(&model.QueuedPhoto{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	for _, row := range rows {
		switch row.Status {
		case constant.PhotoStatusPending:
			stats.Pending = row.Count
		case constant.PhotoStatusSyncing:
			stats.Syncing = row.Count
		case constant.PhotoStatusCompleted:
			stats.Completed = row.Count
		case constant.PhotoStatusFailed:
			stats.Failed = row.Count
		}
	}
	return stats, nil
}

func (s *Store) DeadLetters(ctx context.Context, localID string) ([]model.PhotoDeadLetter, error) {
	var letters []model.PhotoDeadLetter
	err := s.db.WithContext(ctx).Where("local_id = ?", localID).Order("id ASC").Find(&letters).Error
	return letters, err
}

func (s *Store) update(ctx context.Context, localID string, values map[string]interface{}) error {
	result := s.db.WithContext(ctx).Model(&model.QueuedPhoto{}).Where("local_id = ?", localID).Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
