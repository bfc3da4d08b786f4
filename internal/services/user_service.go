package services

import (
	"context"
	"errors"
	"strings"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
	apperrors "github.com/Caooin/DigiGlucose-Insight/internal/errors"
)

// UserService registers users and manages their targets.
type UserService struct {
	users domain.ProfileStore
}

// NewUserService creates a user service over the profile store.
func NewUserService(users domain.ProfileStore) *UserService {
	return &UserService{users: users}
}

// Targets are the personal goals a user may set, in mmol/L.
type Targets struct {
	FastingMin  *float64 `json:"fasting_target_min,omitempty"`
	FastingMax  *float64 `json:"fasting_target_max,omitempty"`
	PostMealMax *float64 `json:"post_meal_target_max,omitempty"`
}

// Validate rejects non-positive targets and an inverted fasting band.
func (t Targets) Validate() error {
	for _, v := range []*float64{t.FastingMin, t.FastingMax, t.PostMealMax} {
		if v != nil && *v <= 0 {
			return apperrors.NewValidationError("目标值必须大于0")
		}
	}
	if t.FastingMin != nil && t.FastingMax != nil && *t.FastingMin >= *t.FastingMax {
		return apperrors.NewValidationError("空腹目标下限必须小于上限")
	}
	return nil
}

// RegisterUser creates a user, optionally with personal targets.
func (s *UserService) RegisterUser(ctx context.Context, username string, targets Targets) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperrors.NewValidationError("用户名不能为空")
	}
	if err := targets.Validate(); err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:          username,
		FastingTargetMin:  targets.FastingMin,
		FastingTargetMax:  targets.FastingMax,
		PostMealTargetMax: targets.PostMealMax,
	}
	if err := s.users.RegisterUser(ctx, user); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return user, nil
}

// RegisterTelegramUser returns the user bound to telegramID, creating it on
// first contact.
func (s *UserService) RegisterTelegramUser(ctx context.Context, telegramID int64, username string) (*domain.User, error) {
	user, err := s.users.GetOrCreateByTelegramID(ctx, telegramID, username)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err).WithContext("telegram_id", telegramID)
	}
	return user, nil
}

// GetProfile passes apperrors.ErrUserNotFound through unchanged.
func (s *UserService) GetProfile(ctx context.Context, userID uint) (*domain.User, error) {
	user, err := s.users.GetProfile(ctx, userID)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError(err).WithContext("user_id", userID)
	}
	return user, nil
}

// UpdateTargets replaces all personal targets. Nil values clear a target.
func (s *UserService) UpdateTargets(ctx context.Context, userID uint, targets Targets) (*domain.User, error) {
	if err := targets.Validate(); err != nil {
		return nil, err
	}
	user, err := s.users.UpdateTargets(ctx, userID, targets.FastingMin, targets.FastingMax, targets.PostMealMax)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError(err).WithContext("user_id", userID)
	}
	return user, nil
}
