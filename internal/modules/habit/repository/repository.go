package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tandera.com/daypillar/internal/entity"
)

type HabitRepository interface {
	Create(ctx context.Context, habit *entity.Habit) error
	// FindByID returns (nil, nil) when the row does not exist.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Habit, error)
	FindAllByUser(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]*entity.Habit, error)
	FindActiveOn(ctx context.Context, date time.Time) ([]*entity.Habit, error)
	Update(ctx context.Context, habit *entity.Habit) error
	Delete(ctx context.Context, id uuid.UUID) error

	CreateLogIfAbsent(ctx context.Context, habitLog *entity.HabitLog) (bool, error)
	FindLogByID(ctx context.Context, id uuid.UUID) (*entity.HabitLog, error)
	FindLogsByHabit(ctx context.Context, habitID uuid.UUID) ([]*entity.HabitLog, error)
	FindLogByHabitAndDate(ctx context.Context, habitID uuid.UUID, date time.Time) (*entity.HabitLog, error)
	FindLogsByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) ([]*entity.HabitLog, error)
	UpdateLogStatus(ctx context.Context, id uuid.UUID, status entity.HabitLogStatus) error
	DeleteLog(ctx context.Context, id uuid.UUID) error
}

type habitRepository struct {
	db *gorm.DB
}

func NewHabitRepository(db *gorm.DB) HabitRepository {
	return &habitRepository{db: db}
}

func (r *habitRepository) Create(ctx context.Context, habit *entity.Habit) error {
	return r.db.WithContext(ctx).Create(habit).Error
}

func (r *habitRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Habit, error) {
	var habit entity.Habit
	if err := r.db.WithContext(ctx).First(&habit, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &habit, nil
}

func (r *habitRepository) FindAllByUser(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]*entity.Habit, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if activeOnly {
		query = query.Where("active = ?", true)
	}

	var habits []*entity.Habit
	if err := query.Order("created_at ASC").Find(&habits).Error; err != nil {
		return nil, err
	}
	return habits, nil
}

// FindActiveOn returns every habit, across all users, whose schedule covers
// the given date. Used by the daily projection.
func (r *habitRepository) FindActiveOn(ctx context.Context, date time.Time) ([]*entity.Habit, error) {
	day := entity.DateOnly(date)

	var habits []*entity.Habit
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Where("start_date IS NULL OR start_date <= ?", day).
		Where("end_date IS NULL OR end_date >= ?", day).
		Find(&habits).Error
	if err != nil {
		return nil, err
	}
	return habits, nil
}

func (r *habitRepository) Update(ctx context.Context, habit *entity.Habit) error {
	return r.db.WithContext(ctx).Save(habit).Error
}

func (r *habitRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.Habit{}, "id = ?", id).Error
}

// CreateLogIfAbsent leans on the (habit_id, occurred_date) unique index: the
// daily projection can run any number of times without duplicating logs.
func (r *habitRepository) CreateLogIfAbsent(ctx context.Context, habitLog *entity.HabitLog) (bool, error) {
	habitLog.OccurredDate = entity.DateOnly(habitLog.OccurredDate)

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "habit_id"}, {Name: "occurred_date"}},
			DoNothing: true,
		}).
		Create(habitLog)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *habitRepository) FindLogByID(ctx context.Context, id uuid.UUID) (*entity.HabitLog, error) {
	var habitLog entity.HabitLog
	if err := r.db.WithContext(ctx).First(&habitLog, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &habitLog, nil
}

func (r *habitRepository) FindLogByHabitAndDate(ctx context.Context, habitID uuid.UUID, date time.Time) (*entity.HabitLog, error) {
	var habitLog entity.HabitLog
	err := r.db.WithContext(ctx).
		Where("habit_id = ? AND occurred_date = ?", habitID, entity.DateOnly(date)).
		First(&habitLog).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &habitLog, nil
}

func (r *habitRepository) FindLogsByHabit(ctx context.Context, habitID uuid.UUID) ([]*entity.HabitLog, error) {
	var logs []*entity.HabitLog
	err := r.db.WithContext(ctx).
		Where("habit_id = ?", habitID).
		Order("occurred_date ASC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *habitRepository) FindLogsByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) ([]*entity.HabitLog, error) {
	var logs []*entity.HabitLog
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND occurred_date = ?", userID, entity.DateOnly(date)).
		Order("created_at ASC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *habitRepository) UpdateLogStatus(ctx context.Context, id uuid.UUID, status entity.HabitLogStatus) error {
	return r.db.WithContext(ctx).
		Model(&entity.HabitLog{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *habitRepository) DeleteLog(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.HabitLog{}, "id = ?", id).Error
}
