package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tandera.com/daypillar/internal/entity"
)

type ReflectionRepository interface {
	Create(ctx context.Context, reflection *entity.Reflection) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Reflection, error)
	FindByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) ([]*entity.Reflection, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type reflectionRepository struct {
	db *gorm.DB
}

func NewReflectionRepository(db *gorm.DB) ReflectionRepository {
	return &reflectionRepository{db: db}
}

func (r *reflectionRepository) Create(ctx context.Context, reflection *entity.Reflection) error {
	return r.db.WithContext(ctx).Create(reflection).Error
}

func (r *reflectionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Reflection, error) {
	var reflection entity.Reflection
	if err := r.db.WithContext(ctx).First(&reflection, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reflection, nil
}

func (r *reflectionRepository) FindByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) ([]*entity.Reflection, error) {
	var reflections []*entity.Reflection
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND occurred_date = ?", userID, entity.DateOnly(date)).
		Order("created_at ASC").
		Find(&reflections).Error
	if err != nil {
		return nil, err
	}
	return reflections, nil
}

func (r *reflectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.Reflection{}, "id = ?", id).Error
}
