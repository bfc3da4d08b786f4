package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
	apperrors "github.com/Caooin/DigiGlucose-Insight/internal/errors"
	"github.com/Caooin/DigiGlucose-Insight/internal/report"
)

// ReportResult is the outcome of a weekly report request.
type ReportResult struct {
	Success              bool      `json:"success"`
	Content              string    `json:"content"`
	ReportID             *uint     `json:"report_id,omitempty"`
	WeekStart            time.Time `json:"week_start"`
	WeekEnd              time.Time `json:"week_end"`
	TotalMeasurements    int       `json:"total_measurements"`
	AverageGlucose       *float64  `json:"average_glucose,omitempty"`
	FastingAverage       *float64  `json:"fasting_average,omitempty"`
	PostMealAverage      *float64  `json:"post_meal_average,omitempty"`
	TargetComplianceRate *float64  `json:"target_compliance_rate,omitempty"`
	PositiveProgress     []string  `json:"positive_progress,omitempty"`
}

// ReportService builds and stores weekly reports.
type ReportService struct {
	users    domain.ProfileStore
	readings domain.ReadingStore
	journal  domain.JournalStore
	reports  domain.ReportStore
	now      func() time.Time
	logger   *slog.Logger
}

// NewReportService wires the report builder to its stores.
func NewReportService(users domain.ProfileStore, readings domain.ReadingStore, journal domain.JournalStore, reports domain.ReportStore, logger *slog.Logger) *ReportService {
	return &ReportService{
		users:    users,
		readings: readings,
		journal:  journal,
		reports:  reports,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock replaces the time source.
func (s *ReportService) WithClock(now func() time.Time) *ReportService {
	s.now = now
	return s
}

// GenerateWeeklyReport summarises the current UTC week. A week without
// readings is reported with Success=false and nothing is stored. Every
// successful call stores a new report row.
func (s *ReportService) GenerateWeeklyReport(ctx context.Context, userID uint) (*ReportResult, error) {
	w := report.WeekWindow(s.now())

	readings, err := s.readings.ReadingsBetween(ctx, userID, w.Start, w.End)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err).WithContext("user_id", userID)
	}
	if len(readings) == 0 {
		return &ReportResult{
			Success:   false,
			Content:   report.NoDataMessage,
			WeekStart: w.Start,
			WeekEnd:   w.End,
		}, nil
	}

	meals, err := s.journal.MealsBetween(ctx, userID, w.Start, w.End)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err).WithContext("user_id", userID)
	}
	exercises, err := s.journal.ExercisesBetween(ctx, userID, w.Start, w.End)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err).WithContext("user_id", userID)
	}

	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil && !errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, apperrors.NewDatabaseError(err).WithContext("user_id", userID)
	}

	summary := report.Build(w, readings, meals, exercises, profile)
	record := summary.Record(userID)
	if err := s.reports.SaveReport(ctx, record); err != nil {
		return nil, apperrors.NewDatabaseError(err).WithContext("user_id", userID)
	}

	s.logger.InfoContext(ctx, "Weekly report generated",
		"user_id", userID,
		"report_id", record.ID,
		"measurements", summary.TotalMeasurements)

	return &ReportResult{
		Success:              true,
		Content:              summary.Render(),
		ReportID:             &record.ID,
		WeekStart:            w.Start,
		WeekEnd:              w.End,
		TotalMeasurements:    summary.TotalMeasurements,
		AverageGlucose:       summary.Average,
		FastingAverage:       summary.FastingAverage,
		PostMealAverage:      summary.PostMealAverage,
		TargetComplianceRate: summary.ComplianceRate,
		PositiveProgress:     summary.PositiveProgress,
	}, nil
}

// ListReports returns the user's stored reports, newest first.
func (s *ReportService) ListReports(ctx context.Context, userID uint, limit int) ([]domain.WeeklyReport, error) {
	reports, err := s.reports.ListReports(ctx, userID, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err).WithContext("user_id", userID)
	}
	return reports, nil
}
