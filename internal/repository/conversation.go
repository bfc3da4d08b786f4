package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversationRepository keeps one row per (user, session).
type ConversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository returns a conversation state store over db.
func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) GetState(ctx context.Context, userID uint, sessionID string) (*domain.ConversationState, error) {
	var state domain.ConversationState
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND session_id = ?", userID, sessionID).
		First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation state: %w", err)
	}
	return &state, nil
}

// SaveState upserts on (user_id, session_id), replacing the previous snapshot.
func (r *ConversationRepository) SaveState(ctx context.Context, state *domain.ConversationState) error {
	now := time.Now().UTC()
	if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}
	state.UpdatedAt = now

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"current_topic", "intent", "sentiment", "slots", "updated_at"}),
	}).Create(state).Error
	if err != nil {
		return fmt.Errorf("failed to save conversation state: %w", err)
	}
	return nil
}
