package audit

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/cppla/frypillows/models"
)

// Trail is the persisted review log.
type Trail struct {
	db *gorm.DB
}

func NewTrail(db *gorm.DB) *Trail {
	return &Trail{db: db}
}

// Record appends one decision.
func (t *Trail) Record(ctx context.Context, rec *models.ReviewRecord) error {
	if err := t.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("record review %s/%s: %w", rec.Action, rec.ArtifactKey, err)
	}
	return nil
}

// Recent returns the latest decisions, newest first. An empty key returns all artifacts.
func (t *Trail) Recent(ctx context.Context, key string, limit int) ([]models.ReviewRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := t.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(limit)
	if key != "" {
		q = q.Where("artifact_key = ?", key)
	}
	var out []models.ReviewRecord
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return out, nil
}
