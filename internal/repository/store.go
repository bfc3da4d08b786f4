package repository

import (
	"gorm.io/gorm"
)

// Store bundles every gorm-backed repository over one connection.
type Store struct {
	db *gorm.DB

	Users         *UserRepository
	Readings      *ReadingRepository
	Journal       *JournalRepository
	Analyses      *AnalysisRepository
	Reports       *ReportRepository
	Conversations *ConversationRepository
	Reminders     *ReminderRepository
}

// New wires all repositories to db.
func New(db *gorm.DB) *Store {
	return &Store{
		db:            db,
		Users:         NewUserRepository(db),
		Readings:      NewReadingRepository(db),
		Journal:       NewJournalRepository(db),
		Analyses:      NewAnalysisRepository(db),
		Reports:       NewReportRepository(db),
		Conversations: NewConversationRepository(db),
		Reminders:     NewReminderRepository(db),
	}
}

// GetDB returns the underlying GORM database instance
func (s *Store) GetDB() *gorm.DB {
	return s.db
}

// Ping checks that the database answers.
func (s *Store) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
