package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
	apperrors "github.com/Caooin/DigiGlucose-Insight/internal/errors"
	"gorm.io/gorm"
)

// AnalysisRepository stores analysis events and links them back to readings.
type AnalysisRepository struct {
	db *gorm.DB
}

// NewAnalysisRepository creates an analysis repository.
func NewAnalysisRepository(db *gorm.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// SaveAnalysis stores the event and copies its verdict onto the referenced
// reading. A reading that does not belong to the event's user yields
// apperrors.ErrRecordNotFound and nothing is written.
func (r *AnalysisRepository) SaveAnalysis(ctx context.Context, event *domain.AnalysisEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Timestamp = event.Timestamp.UTC()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if event.GlucoseReadingID != nil {
			var owned int64
			err := tx.Model(&domain.GlucoseReading{}).
				Where("id = ? AND user_id = ?", *event.GlucoseReadingID, event.UserID).
				Count(&owned).Error
			if err != nil {
				return err
			}
			if owned == 0 {
				return apperrors.ErrRecordNotFound
			}
		}
		if err := tx.Create(event).Error; err != nil {
			return err
		}
		if event.GlucoseReadingID == nil {
			return nil
		}
		return tx.Model(&domain.GlucoseReading{}).
			Where("id = ? AND user_id = ?", *event.GlucoseReadingID, event.UserID).
			Updates(map[string]interface{}{
				"risk_level":     event.RiskLevel,
				"analysis_notes": event.Reasoning,
			}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save analysis event: %w", err)
	}
	return nil
}

// MarkNotified flips the notification flag. It is the only mutation allowed
// on an existing event.
func (r *AnalysisRepository) MarkNotified(ctx context.Context, eventID uint, at time.Time) error {
	sentAt := at.UTC()
	err := r.db.WithContext(ctx).Model(&domain.AnalysisEvent{}).
		Where("id = ?", eventID).
		Updates(map[string]interface{}{
			"notified":             true,
			"notification_sent_at": &sentAt,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark analysis %d notified: %w", eventID, err)
	}
	return nil
}

func (r *AnalysisRepository) ListAnalyses(ctx context.Context, userID uint, limit int) ([]domain.AnalysisEvent, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("timestamp desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var events []domain.AnalysisEvent
	if err := q.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	return events, nil
}
