package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tandera.com/daypillar/internal/entity"
)

type ActionRepository interface {
	Create(ctx context.Context, action *entity.Action) error
	// FindByID returns (nil, nil) when the row does not exist so callers can
	// distinguish absence from failure.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Action, error)
	FindAllByUser(ctx context.Context, userID uuid.UUID, status entity.ActionStatus, from, to *time.Time, limit, offset int) ([]*entity.Action, int64, error)
	FindByTargetDate(ctx context.Context, userID uuid.UUID, date time.Time) ([]*entity.Action, error)
	Update(ctx context.Context, action *entity.Action) error
	UpdateClassification(ctx context.Context, id uuid.UUID, pillars entity.PillarSet, status entity.ClassificationStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type actionRepository struct {
	db *gorm.DB
}

func NewActionRepository(db *gorm.DB) ActionRepository {
	return &actionRepository{db: db}
}

func (r *actionRepository) Create(ctx context.Context, action *entity.Action) error {
	return r.db.WithContext(ctx).Create(action).Error
}

func (r *actionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Action, error) {
	var action entity.Action
	if err := r.db.WithContext(ctx).First(&action, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &action, nil
}

func (r *actionRepository) FindAllByUser(ctx context.Context, userID uuid.UUID, status entity.ActionStatus, from, to *time.Time, limit, offset int) ([]*entity.Action, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Action{}).Where("user_id = ?", userID)

	if status != "" {
		query = query.Where("status = ?", status)
	}
	if from != nil {
		query = query.Where("target_date >= ?", *from)
	}
	if to != nil {
		query = query.Where("target_date < ?", *to)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var actions []*entity.Action
	if err := query.Order("target_date ASC, created_at ASC").Limit(limit).Offset(offset).Find(&actions).Error; err != nil {
		return nil, 0, err
	}
	return actions, total, nil
}

func (r *actionRepository) FindByTargetDate(ctx context.Context, userID uuid.UUID, date time.Time) ([]*entity.Action, error) {
	day := entity.DateOnly(date)
	next := day.AddDate(0, 0, 1)

	var actions []*entity.Action
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND target_date >= ? AND target_date < ?", userID, day, next).
		Order("created_at ASC").
		Find(&actions).Error
	if err != nil {
		return nil, err
	}
	return actions, nil
}

// Update persists the user-editable columns only. The classifier owns
// pillar_ids and classification_status through UpdateClassification, and a
// full-row save here could clobber a write-back racing this update.
func (r *actionRepository) Update(ctx context.Context, action *entity.Action) error {
	return r.db.WithContext(ctx).
		Model(&entity.Action{}).
		Where("id = ?", action.ID).
		Updates(map[string]interface{}{
			"title":         action.Title,
			"description":   action.Description,
			"status":        action.Status,
			"completed_at":  action.CompletedAt,
			"target_date":   action.TargetDate,
			"tier":          action.Tier,
			"bounty_points": action.BountyPoints,
			"bonus_points":  action.BonusPoints,
		}).Error
}

// UpdateClassification touches only the classifier-owned columns so it never
// clobbers a concurrent status change.
func (r *actionRepository) UpdateClassification(ctx context.Context, id uuid.UUID, pillars entity.PillarSet, status entity.ClassificationStatus) error {
	// GORM does not run the serializer:json field serializer for map-based
	// Updates, so the set must be marshaled to JSON text here.
	pillarJSON, err := json.Marshal(pillars)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&entity.Action{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"pillar_ids":            string(pillarJSON),
			"classification_status": status,
		}).Error
}

func (r *actionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.Action{}, "id = ?", id).Error
}
