package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
	"gorm.io/gorm"
)

// JournalRepository stores meals, exercise and medication.
type JournalRepository struct {
	db *gorm.DB
}

// NewJournalRepository returns a meal, exercise and medication store over db.
func NewJournalRepository(db *gorm.DB) *JournalRepository {
	return &JournalRepository{db: db}
}

func (r *JournalRepository) CreateMeal(ctx context.Context, meal *domain.MealEntry) error {
	meal.Timestamp = meal.Timestamp.UTC()
	if err := r.db.WithContext(ctx).Create(meal).Error; err != nil {
		return fmt.Errorf("failed to save meal: %w", err)
	}
	return nil
}

func (r *JournalRepository) CreateExercise(ctx context.Context, exercise *domain.ExerciseRecord) error {
	exercise.Timestamp = exercise.Timestamp.UTC()
	if err := r.db.WithContext(ctx).Create(exercise).Error; err != nil {
		return fmt.Errorf("failed to save exercise: %w", err)
	}
	return nil
}

func (r *JournalRepository) CreateMedication(ctx context.Context, medication *domain.MedicationRecord) error {
	medication.Timestamp = medication.Timestamp.UTC()
	if err := r.db.WithContext(ctx).Create(medication).Error; err != nil {
		return fmt.Errorf("failed to save medication: %w", err)
	}
	return nil
}

func (r *JournalRepository) MealsBetween(ctx context.Context, userID uint, start, end time.Time) ([]domain.MealEntry, error) {
	var meals []domain.MealEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND timestamp >= ? AND timestamp < ?", userID, start.UTC(), end.UTC()).
		Order("timestamp asc").
		Find(&meals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get meals: %w", err)
	}
	return meals, nil
}

func (r *JournalRepository) ExercisesBetween(ctx context.Context, userID uint, start, end time.Time) ([]domain.ExerciseRecord, error) {
	var exercises []domain.ExerciseRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND timestamp >= ? AND timestamp < ?", userID, start.UTC(), end.UTC()).
		Order("timestamp asc").
		Find(&exercises).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get exercises: %w", err)
	}
	return exercises, nil
}
