package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tandera.com/daypillar/internal/entity"
)

type PointEventRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*entity.PointEvent, error)
	CreateIfAbsent(ctx context.Context, ev *entity.PointEvent) (bool, error)
	Reactivate(ctx context.Context, id uuid.UUID, points int, pillars entity.PillarSet, grantBonus bool) (bool, error)
	Deactivate(ctx context.Context, id uuid.UUID) (bool, error)
	UpdatePillars(ctx context.Context, id uuid.UUID, pillars entity.PillarSet) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID, from, to *time.Time, activeOnly bool, limit, offset int) ([]*entity.PointEvent, int64, error)
	ListActiveInRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*entity.PointEvent, error)
}

type pointEventRepository struct {
	db *gorm.DB
}

func NewPointEventRepository(db *gorm.DB) PointEventRepository {
	return &pointEventRepository{db: db}
}

func (r *pointEventRepository) Get(ctx context.Context, id uuid.UUID) (*entity.PointEvent, error) {
	var ev entity.PointEvent
	if err := r.db.WithContext(ctx).First(&ev, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ev, nil
}

// CreateIfAbsent relies on the primary key conflict: when two deliveries race
// on the same derived id, exactly one insert lands and the other reports a
// silent no-op via RowsAffected.
func (r *pointEventRepository) CreateIfAbsent(ctx context.Context, ev *entity.PointEvent) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(ev)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *pointEventRepository) Reactivate(ctx context.Context, id uuid.UUID, points int, pillars entity.PillarSet, grantBonus bool) (bool, error) {
	// GORM does not run the serializer:json field serializer for map-based
	// Updates, so the set must be marshaled to JSON text here.
	pillarJSON, err := json.Marshal(pillars)
	if err != nil {
		return false, err
	}
	updates := map[string]interface{}{
		"active":     true,
		"points":     points,
		"pillar_ids": string(pillarJSON),
	}
	if grantBonus {
		updates["bonus_granted"] = true
	}

	res := r.db.WithContext(ctx).
		Model(&entity.PointEvent{}).
		Where("id = ? AND active = ?", id, false).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *pointEventRepository) Deactivate(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.PointEvent{}).
		Where("id = ? AND active = ?", id, true).
		Update("active", false)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *pointEventRepository) UpdatePillars(ctx context.Context, id uuid.UUID, pillars entity.PillarSet) (bool, error) {
	pillarJSON, err := json.Marshal(pillars)
	if err != nil {
		return false, err
	}
	res := r.db.WithContext(ctx).
		Model(&entity.PointEvent{}).
		Where("id = ? AND active = ?", id, true).
		Update("pillar_ids", string(pillarJSON))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *pointEventRepository) ListByUser(ctx context.Context, userID uuid.UUID, from, to *time.Time, activeOnly bool, limit, offset int) ([]*entity.PointEvent, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.PointEvent{}).Where("user_id = ?", userID)

	if from != nil {
		query = query.Where("created_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("created_at < ?", *to)
	}
	if activeOnly {
		query = query.Where("active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var events []*entity.PointEvent
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&events).Error; err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *pointEventRepository) ListActiveInRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*entity.PointEvent, error) {
	var events []*entity.PointEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND active = ? AND created_at >= ? AND created_at < ?", userID, true, from, to).
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
