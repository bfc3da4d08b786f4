package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
	apperrors "github.com/Caooin/DigiGlucose-Insight/internal/errors"
	"gorm.io/gorm"
)

// ReminderRepository stores user reminders.
type ReminderRepository struct {
	db *gorm.DB
}

// NewReminderRepository returns a reminder store over db.
func NewReminderRepository(db *gorm.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

func (r *ReminderRepository) CreateReminder(ctx context.Context, reminder *domain.Reminder) error {
	if err := r.db.WithContext(ctx).Create(reminder).Error; err != nil {
		return fmt.Errorf("failed to create reminder: %w", err)
	}
	return nil
}

// GetReminder returns apperrors.ErrRecordNotFound unless the reminder exists
// and belongs to userID.
func (r *ReminderRepository) GetReminder(ctx context.Context, userID, reminderID uint) (*domain.Reminder, error) {
	var reminder domain.Reminder
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", reminderID, userID).
		First(&reminder).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reminder %d: %w", reminderID, err)
	}
	return &reminder, nil
}

func (r *ReminderRepository) ListReminders(ctx context.Context, userID uint) ([]domain.Reminder, error) {
	var reminders []domain.Reminder
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Find(&reminders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	return reminders, nil
}

// UpdateReminder writes every mutable column, zero values included.
func (r *ReminderRepository) UpdateReminder(ctx context.Context, reminder *domain.Reminder) error {
	res := r.db.WithContext(ctx).
		Model(reminder).
		Where("user_id = ?", reminder.UserID).
		Select("reminder_type", "title", "content", "reminder_time", "reminder_date",
			"repeat_type", "repeat_days", "enabled", "completed", "completed_at", "updated_at").
		Updates(reminder)
	if res.Error != nil {
		return fmt.Errorf("failed to update reminder %d: %w", reminder.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrRecordNotFound
	}
	return nil
}

func (r *ReminderRepository) DeleteReminder(ctx context.Context, userID, reminderID uint) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", reminderID, userID).
		Delete(&domain.Reminder{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete reminder %d: %w", reminderID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrRecordNotFound
	}
	return nil
}
