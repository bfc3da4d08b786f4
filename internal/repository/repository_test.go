package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Caooin/DigiGlucose-Insight/internal/database/dbtest"
	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
	apperrors "github.com/Caooin/DigiGlucose-Insight/internal/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(dbtest.New(t))
}

func ptr[T any](v T) *T { return &v }

func mustUser(t *testing.T, s *Store, name string) *domain.User {
	t.Helper()
	u := &domain.User{Username: name}
	if err := s.Users.RegisterUser(context.Background(), u); err != nil {
		t.Fatalf("register user: %v", err)
	}
	return u
}

func TestUserRepository_Profile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Users.GetProfile(ctx, 999); !errors.Is(err, apperrors.ErrUserNotFound) {
		t.Fatalf("GetProfile unknown = %v, want ErrUserNotFound", err)
	}

	u := mustUser(t, s, "alice")
	if u.ID == 0 {
		t.Fatal("expected ID to be assigned")
	}

	updated, err := s.Users.UpdateTargets(ctx, u.ID, ptr(4.0), ptr(6.5), ptr(9.0))
	if err != nil {
		t.Fatalf("UpdateTargets: %v", err)
	}
	if *updated.FastingTargetMin != 4.0 || *updated.FastingTargetMax != 6.5 || *updated.PostMealTargetMax != 9.0 {
		t.Errorf("targets not persisted: %+v", updated)
	}

	cleared, err := s.Users.UpdateTargets(ctx, u.ID, nil, nil, nil)
	if err != nil {
		t.Fatalf("UpdateTargets clear: %v", err)
	}
	if cleared.FastingTargetMin != nil || cleared.PostMealTargetMax != nil {
		t.Errorf("targets should be cleared: %+v", cleared)
	}

	if _, err := s.Users.UpdateTargets(ctx, 12345, ptr(4.0), nil, nil); !errors.Is(err, apperrors.ErrUserNotFound) {
		t.Errorf("UpdateTargets unknown = %v, want ErrUserNotFound", err)
	}
}

func TestUserRepository_GetOrCreateByTelegramID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Users.GetOrCreateByTelegramID(ctx, 42, "bob")
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := s.Users.GetOrCreateByTelegramID(ctx, 42, "bob-renamed")
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected same user, got %d and %d", first.ID, second.ID)
	}
	if second.Username != "bob" {
		t.Errorf("existing user should not be renamed, got %q", second.Username)
	}
}

func TestReadingRepository_Queries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s, "carol")
	other := mustUser(t, s, "dave")

	now := time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)
	add := func(userID uint, v float64, at time.Time, c domain.MeasurementContext) {
		t.Helper()
		r := &domain.GlucoseReading{UserID: userID, Value: v, Unit: domain.UnitMmolL, Timestamp: at, Context: c}
		if err := s.Readings.CreateReading(ctx, r); err != nil {
			t.Fatalf("CreateReading: %v", err)
		}
	}
	add(u.ID, 5.0, now.Add(-10*24*time.Hour), domain.ContextFasting)
	add(u.ID, 6.0, now.Add(-2*24*time.Hour), domain.ContextFasting)
	add(u.ID, 9.0, now.Add(-1*24*time.Hour), domain.ContextPostMeal)
	add(u.ID, 7.0, now, domain.ContextFasting)
	add(other.ID, 12.0, now, domain.ContextFasting)

	week, err := s.Readings.ReadingsSince(ctx, u.ID, now.Add(-7*24*time.Hour), "")
	if err != nil {
		t.Fatalf("ReadingsSince: %v", err)
	}
	if len(week) != 3 {
		t.Errorf("ReadingsSince all contexts = %d, want 3", len(week))
	}

	fasting, err := s.Readings.ReadingsSince(ctx, u.ID, now.Add(-7*24*time.Hour), domain.ContextFasting)
	if err != nil {
		t.Fatalf("ReadingsSince fasting: %v", err)
	}
	if len(fasting) != 2 {
		t.Errorf("ReadingsSince fasting = %d, want 2", len(fasting))
	}

	between, err := s.Readings.ReadingsBetween(ctx, u.ID, now.Add(-2*24*time.Hour), now)
	if err != nil {
		t.Fatalf("ReadingsBetween: %v", err)
	}
	if len(between) != 2 {
		t.Errorf("ReadingsBetween = %d, want 2 (end is exclusive)", len(between))
	}
	if len(between) == 2 && between[0].Value != 6.0 {
		t.Errorf("ReadingsBetween should be ordered by time, got first %v", between[0].Value)
	}

	latest, err := s.Readings.LatestReading(ctx, u.ID)
	if err != nil {
		t.Fatalf("LatestReading: %v", err)
	}
	if latest == nil || latest.Value != 7.0 {
		t.Errorf("LatestReading = %+v, want 7.0", latest)
	}

	none, err := s.Readings.LatestReading(ctx, 9999)
	if err != nil || none != nil {
		t.Errorf("LatestReading unknown user = %+v, %v; want nil, nil", none, err)
	}
}

func TestAnalysisRepository_SaveWritesBackToReading(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s, "erin")

	reading := &domain.GlucoseReading{UserID: u.ID, Value: 3.2, Unit: domain.UnitMmolL, Timestamp: time.Now(), Context: domain.ContextRandom}
	if err := s.Readings.CreateReading(ctx, reading); err != nil {
		t.Fatalf("CreateReading: %v", err)
	}

	event := &domain.AnalysisEvent{
		UserID:           u.ID,
		GlucoseReadingID: &reading.ID,
		RiskLevel:        domain.RiskCritical,
		Conclusion:       "低血糖风险",
		Reasoning:        "below threshold",
		Suggestions:      domain.JSONList([]string{"eat sugar"}),
	}
	if err := s.Analyses.SaveAnalysis(ctx, event); err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}

	latest, err := s.Readings.LatestReading(ctx, u.ID)
	if err != nil {
		t.Fatalf("LatestReading: %v", err)
	}
	if latest.RiskLevel == nil || *latest.RiskLevel != domain.RiskCritical {
		t.Errorf("reading risk level = %v, want critical", latest.RiskLevel)
	}
	if latest.AnalysisNotes == nil || *latest.AnalysisNotes != "below threshold" {
		t.Errorf("reading notes = %v", latest.AnalysisNotes)
	}

	sent := time.Now()
	if err := s.Analyses.MarkNotified(ctx, event.ID, sent); err != nil {
		t.Fatalf("MarkNotified: %v", err)
	}
	events, err := s.Analyses.ListAnalyses(ctx, u.ID, 10)
	if err != nil {
		t.Fatalf("ListAnalyses: %v", err)
	}
	if len(events) != 1 || !events[0].Notified || events[0].NotificationSentAt == nil {
		t.Fatalf("event not marked notified: %+v", events)
	}
	suggestions, err := domain.DecodeList(events[0].Suggestions)
	if err != nil || len(suggestions) != 1 || suggestions[0] != "eat sugar" {
		t.Errorf("suggestions = %v, %v", suggestions, err)
	}
}

func TestAnalysisRepository_RejectsForeignReading(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := mustUser(t, s, "gina")
	other := mustUser(t, s, "hank")

	reading := &domain.GlucoseReading{UserID: owner.ID, Value: 5.5, Unit: domain.UnitMmolL, Timestamp: time.Now(), Context: domain.ContextFasting}
	if err := s.Readings.CreateReading(ctx, reading); err != nil {
		t.Fatalf("CreateReading: %v", err)
	}

	event := &domain.AnalysisEvent{UserID: other.ID, GlucoseReadingID: &reading.ID, RiskLevel: domain.RiskCritical}
	if err := s.Analyses.SaveAnalysis(ctx, event); !errors.Is(err, apperrors.ErrRecordNotFound) {
		t.Fatalf("SaveAnalysis foreign reading = %v, want ErrRecordNotFound", err)
	}

	events, err := s.Analyses.ListAnalyses(ctx, other.ID, 0)
	if err != nil {
		t.Fatalf("ListAnalyses: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("events stored for foreign reading: %+v", events)
	}
	latest, _ := s.Readings.LatestReading(ctx, owner.ID)
	if latest.RiskLevel != nil {
		t.Errorf("owner's reading was modified: %v", *latest.RiskLevel)
	}
}

func TestReportRepository_NeverDeduplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s, "frank")

	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		r := &domain.WeeklyReport{UserID: u.ID, WeekStart: start, WeekEnd: start.AddDate(0, 0, 7), TotalMeasurements: 3}
		if err := s.Reports.SaveReport(ctx, r); err != nil {
			t.Fatalf("SaveReport: %v", err)
		}
	}

	reports, err := s.Reports.ListReports(ctx, u.ID, 0)
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	if len(reports) != 2 {
		t.Errorf("reports = %d, want 2", len(reports))
	}
}

func TestConversationRepository_Overwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s, "gina")

	got, err := s.Conversations.GetState(ctx, u.ID, "sess-1")
	if err != nil || got != nil {
		t.Fatalf("GetState empty = %+v, %v", got, err)
	}

	first := &domain.ConversationState{UserID: u.ID, SessionID: "sess-1", Intent: domain.IntentRecordGlucose, Sentiment: domain.SentimentNeutral, Slots: []byte(`{"glucose_value":5.2}`)}
	if err := s.Conversations.SaveState(ctx, first); err != nil {
		t.Fatalf("SaveState first: %v", err)
	}
	second := &domain.ConversationState{UserID: u.ID, SessionID: "sess-1", Intent: domain.IntentWeeklyReport, Sentiment: domain.SentimentAnxious, Slots: []byte(`{"unit":"mmol/L"}`)}
	if err := s.Conversations.SaveState(ctx, second); err != nil {
		t.Fatalf("SaveState second: %v", err)
	}

	var count int64
	s.GetDB().Model(&domain.ConversationState{}).Where("user_id = ?", u.ID).Count(&count)
	if count != 1 {
		t.Fatalf("rows = %d, want 1", count)
	}

	got, err = s.Conversations.GetState(ctx, u.ID, "sess-1")
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if got.Intent != domain.IntentWeeklyReport || got.Sentiment != domain.SentimentAnxious {
		t.Errorf("state = %+v, want second call's values", got)
	}
	slots, err := got.DecodeSlots()
	if err != nil {
		t.Fatalf("DecodeSlots: %v", err)
	}
	if slots.GlucoseValue != nil || slots.Unit != domain.UnitMmolL {
		t.Errorf("slots = %+v, want only the second call's slots", slots)
	}

	other := &domain.ConversationState{UserID: u.ID, SessionID: "sess-2", Intent: domain.IntentGeneral}
	if err := s.Conversations.SaveState(ctx, other); err != nil {
		t.Fatalf("SaveState new session: %v", err)
	}
	s.GetDB().Model(&domain.ConversationState{}).Where("user_id = ?", u.ID).Count(&count)
	if count != 2 {
		t.Errorf("rows = %d, want 2 after a new session", count)
	}
}

func TestJournalRepository(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s, "hank")
	now := time.Now().UTC()

	if err := s.Journal.CreateMeal(ctx, &domain.MealEntry{UserID: u.ID, MealType: domain.MealLunch, Timestamp: now, Description: "米饭"}); err != nil {
		t.Fatalf("CreateMeal: %v", err)
	}
	if err := s.Journal.CreateExercise(ctx, &domain.ExerciseRecord{UserID: u.ID, ExerciseType: "跑步", Intensity: "moderate", Timestamp: now}); err != nil {
		t.Fatalf("CreateExercise: %v", err)
	}
	if err := s.Journal.CreateMedication(ctx, &domain.MedicationRecord{UserID: u.ID, MedicationName: "二甲双胍", Timestamp: now}); err != nil {
		t.Fatalf("CreateMedication: %v", err)
	}

	meals, err := s.Journal.MealsBetween(ctx, u.ID, now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil || len(meals) != 1 {
		t.Errorf("MealsBetween = %d, %v", len(meals), err)
	}
	exercises, err := s.Journal.ExercisesBetween(ctx, u.ID, now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil || len(exercises) != 1 {
		t.Errorf("ExercisesBetween = %d, %v", len(exercises), err)
	}
}

func TestReadingRepository_ListReadings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s, "ivy")
	other := mustUser(t, s, "jack")

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	for i, v := range []float64{5.1, 6.2, 7.3} {
		r := &domain.GlucoseReading{UserID: u.ID, Value: v, Unit: domain.UnitMmolL, Timestamp: base.Add(time.Duration(i) * time.Hour), Context: domain.ContextRandom}
		if err := s.Readings.CreateReading(ctx, r); err != nil {
			t.Fatalf("CreateReading: %v", err)
		}
	}
	if err := s.Readings.CreateReading(ctx, &domain.GlucoseReading{UserID: other.ID, Value: 9, Unit: domain.UnitMmolL, Timestamp: base}); err != nil {
		t.Fatalf("CreateReading: %v", err)
	}

	got, err := s.Readings.ListReadings(ctx, u.ID, 2)
	if err != nil {
		t.Fatalf("ListReadings: %v", err)
	}
	if len(got) != 2 || got[0].Value != 7.3 || got[1].Value != 6.2 {
		t.Errorf("ListReadings = %+v", got)
	}

	all, err := s.Readings.ListReadings(ctx, u.ID, 0)
	if err != nil {
		t.Fatalf("ListReadings all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("len = %d, want 3", len(all))
	}
}

func TestReminderRepository(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s, "kate")
	other := mustUser(t, s, "liam")

	first := &domain.Reminder{UserID: u.ID, ReminderType: domain.ReminderGlucose, Title: "空腹测血糖", ReminderTime: "07:00", RepeatType: domain.RepeatDaily, RepeatDays: domain.JSONDays(nil), Enabled: true}
	second := &domain.Reminder{UserID: u.ID, ReminderType: domain.ReminderMedication, Title: "吃药", ReminderTime: "20:00", RepeatType: domain.RepeatWeekly, RepeatDays: domain.JSONDays([]int{1, 3}), Enabled: false}
	for _, r := range []*domain.Reminder{first, second} {
		if err := s.Reminders.CreateReminder(ctx, r); err != nil {
			t.Fatalf("CreateReminder: %v", err)
		}
	}

	list, err := s.Reminders.ListReminders(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListReminders: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID {
		t.Fatalf("ListReminders = %+v, want newest first", list)
	}
	if list[0].Enabled {
		t.Error("disabled reminder came back enabled")
	}
	if days, _ := list[0].Days(); len(days) != 2 || days[0] != 1 || days[1] != 3 {
		t.Errorf("repeat days = %v", days)
	}

	if _, err := s.Reminders.GetReminder(ctx, other.ID, first.ID); !errors.Is(err, apperrors.ErrRecordNotFound) {
		t.Errorf("GetReminder foreign = %v, want ErrRecordNotFound", err)
	}

	got, err := s.Reminders.GetReminder(ctx, u.ID, first.ID)
	if err != nil {
		t.Fatalf("GetReminder: %v", err)
	}
	got.Enabled = false
	got.Completed = true
	got.CompletedAt = ptr(time.Date(2025, 6, 2, 7, 5, 0, 0, time.UTC))
	if err := s.Reminders.UpdateReminder(ctx, got); err != nil {
		t.Fatalf("UpdateReminder: %v", err)
	}
	reloaded, _ := s.Reminders.GetReminder(ctx, u.ID, first.ID)
	if reloaded.Enabled || !reloaded.Completed || reloaded.CompletedAt == nil {
		t.Errorf("update not persisted: %+v", reloaded)
	}

	foreign := *reloaded
	foreign.UserID = other.ID
	if err := s.Reminders.UpdateReminder(ctx, &foreign); !errors.Is(err, apperrors.ErrRecordNotFound) {
		t.Errorf("UpdateReminder foreign = %v, want ErrRecordNotFound", err)
	}

	if err := s.Reminders.DeleteReminder(ctx, other.ID, first.ID); !errors.Is(err, apperrors.ErrRecordNotFound) {
		t.Errorf("DeleteReminder foreign = %v, want ErrRecordNotFound", err)
	}
	if err := s.Reminders.DeleteReminder(ctx, u.ID, first.ID); err != nil {
		t.Fatalf("DeleteReminder: %v", err)
	}
	if err := s.Reminders.DeleteReminder(ctx, u.ID, first.ID); !errors.Is(err, apperrors.ErrRecordNotFound) {
		t.Errorf("second delete = %v, want ErrRecordNotFound", err)
	}
}
