package adapter

import (
	"context"
	"roofing-photo-sync/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPhotoRecorder inserts photo rows into the remote database.
type GormPhotoRecorder struct {
	db *gorm.DB
}

func NewPhotoRecorder(db *gorm.DB) *GormPhotoRecorder {
	return &GormPhotoRecorder{db: db}
}

// InsertPhoto inserts a single row. Optional columns without a value are left
// out of the statement so column defaults apply.
func (r *GormPhotoRecorder) InsertPhoto(ctx context.Context, photo *model.Photo) error {
	if photo.ID == "" {
		photo.ID = uuid.NewString()
	}

	q := r.db.WithContext(ctx)
	if omit := unsetOptionalColumns(photo); len(omit) > 0 {
		q = q.Omit(omit...)
	}
	return q.Create(photo).Error
}

func unsetOptionalColumns(p *model.Photo) []string {
	var omit []string
	if p.ProjectID == nil {
		omit = append(omit, "project_id")
	}
	if p.ThumbnailURL == nil {
		omit = append(omit, "thumbnail_url")
	}
	if p.DamageType == nil {
		omit = append(omit, "damage_type")
	}
	if p.Severity == nil {
		omit = append(omit, "severity")
	}
	if p.PhotoOrder == nil {
		omit = append(omit, "photo_order")
	}
	if p.ClaimID == nil {
		omit = append(omit, "claim_id")
	}
	return omit
}
