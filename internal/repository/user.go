package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
	apperrors "github.com/Caooin/DigiGlucose-Insight/internal/errors"
	"gorm.io/gorm"
)

// UserRepository handles user data operations
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetProfile returns the user or apperrors.ErrUserNotFound.
func (r *UserRepository) GetProfile(ctx context.Context, userID uint) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	return &user, nil
}

// GetByTelegramID gets a user by their Telegram ID
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by telegram id: %w", err)
	}
	return &user, nil
}

// RegisterUser inserts a new user and fills in its ID.
func (r *UserRepository) RegisterUser(ctx context.Context, user *domain.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetOrCreateByTelegramID gets an existing user or creates a new one
func (r *UserRepository) GetOrCreateByTelegramID(ctx context.Context, telegramID int64, username string) (*domain.User, error) {
	user, err := r.GetByTelegramID(ctx, telegramID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, err
	}

	user = &domain.User{
		TelegramID: &telegramID,
		Username:   username,
	}
	if err := r.RegisterUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateTargets sets the personal targets. Nil arguments clear the target.
func (r *UserRepository) UpdateTargets(ctx context.Context, userID uint, fastingMin, fastingMax, postMealMax *float64) (*domain.User, error) {
	result := r.db.WithContext(ctx).Model(&domain.User{ID: userID}).Updates(map[string]interface{}{
		"fasting_target_min":   fastingMin,
		"fasting_target_max":   fastingMax,
		"post_meal_target_max": postMealMax,
	})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update targets: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.ErrUserNotFound
	}
	return r.GetProfile(ctx, userID)
}
