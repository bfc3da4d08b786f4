package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
	"gorm.io/gorm"
)

// ReadingRepository stores glucose readings.
type ReadingRepository struct {
	db *gorm.DB
}

// NewReadingRepository returns a reading store over db.
func NewReadingRepository(db *gorm.DB) *ReadingRepository {
	return &ReadingRepository{db: db}
}

// CreateReading inserts the reading inside its own transaction.
func (r *ReadingRepository) CreateReading(ctx context.Context, reading *domain.GlucoseReading) error {
	reading.Timestamp = reading.Timestamp.UTC()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(reading).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save glucose reading: %w", err)
	}
	return nil
}

func (r *ReadingRepository) ReadingsSince(ctx context.Context, userID uint, since time.Time, mctx domain.MeasurementContext) ([]domain.GlucoseReading, error) {
	q := r.db.WithContext(ctx).
		Where("user_id = ? AND timestamp >= ?", userID, since.UTC())
	if mctx != "" {
		q = q.Where("context = ?", mctx)
	}

	var readings []domain.GlucoseReading
	if err := q.Order("timestamp asc").Find(&readings).Error; err != nil {
		return nil, fmt.Errorf("failed to get readings: %w", err)
	}
	return readings, nil
}

func (r *ReadingRepository) ReadingsBetween(ctx context.Context, userID uint, start, end time.Time) ([]domain.GlucoseReading, error) {
	var readings []domain.GlucoseReading
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND timestamp >= ? AND timestamp < ?", userID, start.UTC(), end.UTC()).
		Order("timestamp asc").
		Find(&readings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get readings: %w", err)
	}
	return readings, nil
}

// LatestReading returns nil, nil when the user has no readings.
func (r *ReadingRepository) LatestReading(ctx context.Context, userID uint) (*domain.GlucoseReading, error) {
	var reading domain.GlucoseReading
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp desc").
		First(&reading).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest reading: %w", err)
	}
	return &reading, nil
}

// ListReadings returns at most limit readings, newest first. A non-positive
// limit returns all of them.
func (r *ReadingRepository) ListReadings(ctx context.Context, userID uint, limit int) ([]domain.GlucoseReading, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("timestamp desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var readings []domain.GlucoseReading
	if err := q.Find(&readings).Error; err != nil {
		return nil, fmt.Errorf("failed to list readings: %w", err)
	}
	return readings, nil
}
