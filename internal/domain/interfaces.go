package domain

import (
	"context"
	"time"
)

// ProfileStore persists users and their personal targets.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID uint) (*User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*User, error)
	RegisterUser(ctx context.Context, user *User) error
	GetOrCreateByTelegramID(ctx context.Context, telegramID int64, username string) (*User, error)
	UpdateTargets(ctx context.Context, userID uint, fastingMin, fastingMax, postMealMax *float64) (*User, error)
}

// ReadingStore persists glucose readings.
type ReadingStore interface {
	CreateReading(ctx context.Context, reading *GlucoseReading) error
	// ReadingsSince returns readings at or after since. An empty context matches all.
	ReadingsSince(ctx context.Context, userID uint, since time.Time, mctx MeasurementContext) ([]GlucoseReading, error)
	// ReadingsBetween returns readings in [start, end) ordered by timestamp.
	ReadingsBetween(ctx context.Context, userID uint, start, end time.Time) ([]GlucoseReading, error)
	LatestReading(ctx context.Context, userID uint) (*GlucoseReading, error)
	// ListReadings returns the newest readings first, at most limit.
	ListReadings(ctx context.Context, userID uint, limit int) ([]GlucoseReading, error)
}

// JournalStore persists meals, exercise and medication entries.
type JournalStore interface {
	CreateMeal(ctx context.Context, meal *MealEntry) error
	CreateExercise(ctx context.Context, exercise *ExerciseRecord) error
	CreateMedication(ctx context.Context, medication *MedicationRecord) error
	MealsBetween(ctx context.Context, userID uint, start, end time.Time) ([]MealEntry, error)
	ExercisesBetween(ctx context.Context, userID uint, start, end time.Time) ([]ExerciseRecord, error)
}

// AnalysisStore persists analysis events.
type AnalysisStore interface {
	// SaveAnalysis stores the event and, when it references a reading, writes
	// the risk level and notes back onto that reading in the same transaction.
	// The reading must belong to the event's user.
	SaveAnalysis(ctx context.Context, event *AnalysisEvent) error
	MarkNotified(ctx context.Context, eventID uint, at time.Time) error
	ListAnalyses(ctx context.Context, userID uint, limit int) ([]AnalysisEvent, error)
}

// ReportStore persists weekly reports. Every call inserts a new row.
type ReportStore interface {
	SaveReport(ctx context.Context, report *WeeklyReport) error
	ListReports(ctx context.Context, userID uint, limit int) ([]WeeklyReport, error)
}

// ReminderStore persists reminders. Get, Update and Delete are scoped to the
// owner and return ErrRecordNotFound for anyone else's reminder.
type ReminderStore interface {
	CreateReminder(ctx context.Context, reminder *Reminder) error
	GetReminder(ctx context.Context, userID, reminderID uint) (*Reminder, error)
	// ListReminders orders by creation time, newest first.
	ListReminders(ctx context.Context, userID uint) ([]Reminder, error)
	UpdateReminder(ctx context.Context, reminder *Reminder) error
	DeleteReminder(ctx context.Context, userID, reminderID uint) error
}

// ConversationStore holds the per-session state snapshot.
type ConversationStore interface {
	// GetState returns nil, nil when the session has no state yet.
	GetState(ctx context.Context, userID uint, sessionID string) (*ConversationState, error)
	// SaveState overwrites any previous state for the same user and session.
	SaveState(ctx context.Context, state *ConversationState) error
}

// AlertNotifier delivers critical analysis events to an outside channel.
type AlertNotifier interface {
	NotifyCritical(ctx context.Context, event *AnalysisEvent) error
}

// ReplySmoother rewrites an assembled reply into more natural prose.
type ReplySmoother interface {
	Smooth(ctx context.Context, reply string) (string, error)
}

// BotService handles chat transport lifecycle
type BotService interface {
	Start(ctx context.Context) error
	Stop()
}
