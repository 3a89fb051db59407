package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tandera.com/daypillar/internal/entity"
)

type PillarRepository interface {
	Create(ctx context.Context, pillar *entity.Pillar) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Pillar, error)
	FindBySlug(ctx context.Context, userID uuid.UUID, slug string) (*entity.Pillar, error)
	FindAllByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Pillar, error)
	Update(ctx context.Context, pillar *entity.Pillar) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type pillarRepository struct {
	db *gorm.DB
}

func NewPillarRepository(db *gorm.DB) PillarRepository {
	return &pillarRepository{db: db}
}

func (r *pillarRepository) Create(ctx context.Context, pillar *entity.Pillar) error {
	return r.db.WithContext(ctx).Create(pillar).Error
}

func (r *pillarRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Pillar, error) {
	var pillar entity.Pillar
	if err := r.db.WithContext(ctx).First(&pillar, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &pillar, nil
}

func (r *pillarRepository) FindBySlug(ctx context.Context, userID uuid.UUID, slug string) (*entity.Pillar, error) {
	var pillar entity.Pillar
	err := r.db.WithContext(ctx).Where("user_id = ? AND slug = ?", userID, slug).First(&pillar).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pillar, nil
}

func (r *pillarRepository) FindAllByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Pillar, error) {
	var pillars []*entity.Pillar
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("position ASC, created_at ASC").
		Find(&pillars).Error
	if err != nil {
		return nil, err
	}
	return pillars, nil
}

func (r *pillarRepository) Update(ctx context.Context, pillar *entity.Pillar) error {
	return r.db.WithContext(ctx).Save(pillar).Error
}

func (r *pillarRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.Pillar{}, "id = ?", id).Error
}
