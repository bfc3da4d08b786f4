package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Caooin/DigiGlucose-Insight/internal/database/dbtest"
	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
	"github.com/Caooin/DigiGlucose-Insight/internal/logger"
	"github.com/Caooin/DigiGlucose-Insight/internal/repository"
)

// Wednesday afternoon.
var afternoon = time.Date(2025, 6, 18, 15, 30, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.AnalysisEvent
	err    error
}

func (n *recordingNotifier) NotifyCritical(_ context.Context, event *domain.AnalysisEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, *event)
	return nil
}

type failingReadings struct {
	domain.ReadingStore
}

func (failingReadings) CreateReading(context.Context, *domain.GlucoseReading) error {
	return errors.New("disk I/O error")
}

type fixture struct {
	store     *repository.Store
	logging   *LoggingService
	analysis  *AnalysisService
	reports   *ReportService
	users     *UserService
	reminders *ReminderService
	notifier  *recordingNotifier
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	store := repository.New(dbtest.New(t))
	log := logger.Discard()
	clock := func() time.Time { return now }
	notifier := &recordingNotifier{}

	return &fixture{
		store:     store,
		logging:   NewLoggingService(store.Users, store.Readings, store.Journal, time.UTC, log).WithClock(clock),
		analysis:  NewAnalysisService(store.Users, store.Readings, store.Analyses, notifier, log).WithClock(clock),
		reports:   NewReportService(store.Users, store.Readings, store.Journal, store.Reports, log).WithClock(clock),
		users:     NewUserService(store.Users),
		reminders: NewReminderService(store.Users, store.Reminders, log).WithClock(clock),
		notifier:  notifier,
	}
}

func (f *fixture) user(t *testing.T, targets Targets) *domain.User {
	t.Helper()
	u, err := f.users.RegisterUser(context.Background(), "tester", targets)
	if err != nil {
		t.Fatalf("register user: %v", err)
	}
	return u
}
