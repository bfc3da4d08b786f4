package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
	apperrors "github.com/Caooin/DigiGlucose-Insight/internal/errors"
	"github.com/Caooin/DigiGlucose-Insight/internal/risk"
	"github.com/Caooin/DigiGlucose-Insight/internal/trend"
)

const (
	unknownUserConclusion  = "未找到用户信息"
	readingNotFoundMessage = "未找到该血糖记录"
)

// Analysis is the outcome of assessing one glucose value.
type Analysis struct {
	RiskLevel   domain.RiskLevel  `json:"risk_level"`
	Band        domain.RiskBand   `json:"risk_band,omitempty"`
	Conclusion  string            `json:"conclusion"`
	Reasoning   string            `json:"reasoning"`
	Suggestions []string          `json:"suggestions"`
	Target      *risk.Range       `json:"target,omitempty"`
	Trend       *trend.Trend      `json:"trend,omitempty"`
	Comparison  *trend.Comparison `json:"comparison,omitempty"`
	EventID     *uint             `json:"event_id,omitempty"`
}

// Format renders the analysis block appended to chat replies.
func (a *Analysis) Format() string {
	parts := []string{"【分析结果】" + a.Conclusion}
	if a.Reasoning != "" {
		parts = append(parts, "依据："+a.Reasoning)
	}
	if len(a.Suggestions) > 0 {
		parts = append(parts, "建议：")
		for _, s := range a.Suggestions {
			parts = append(parts, "  • "+s)
		}
	}
	if a.Trend != nil && a.Trend.Message != "" {
		parts = append(parts, "趋势："+a.Trend.Message)
	}
	return strings.Join(parts, "\n")
}

// AnalysisService assesses readings against personal targets and history.
type AnalysisService struct {
	users    domain.ProfileStore
	readings domain.ReadingStore
	analyses domain.AnalysisStore
	notifier domain.AlertNotifier
	now      func() time.Time
	logger   *slog.Logger
}

// NewAnalysisService creates an analysis service. notifier may be nil.
func NewAnalysisService(users domain.ProfileStore, readings domain.ReadingStore, analyses domain.AnalysisStore, notifier domain.AlertNotifier, logger *slog.Logger) *AnalysisService {
	return &AnalysisService{
		users:    users,
		readings: readings,
		analyses: analyses,
		notifier: notifier,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock replaces the time source.
func (s *AnalysisService) WithClock(now func() time.Time) *AnalysisService {
	s.now = now
	return s
}

// AnalyzeGlucose classifies value for the user and context. When readingID
// is set the result is persisted as an analysis event and copied onto the
// reading. An unknown user yields RiskUnknown without an error.
func (s *AnalysisService) AnalyzeGlucose(ctx context.Context, userID uint, value float64, mctx domain.MeasurementContext, readingID *uint) (*Analysis, error) {
	profile, err := s.users.GetProfile(ctx, userID)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return &Analysis{
			RiskLevel:   domain.RiskUnknown,
			Conclusion:  unknownUserConclusion,
			Suggestions: []string{},
		}, nil
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError(err).WithContext("user_id", userID)
	}

	now := s.now()
	target, assessment := risk.Assess(value, mctx, profile)

	history, err := s.readings.ReadingsSince(ctx, userID, now.Add(-trend.HistorySpan()), mctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err).WithContext("user_id", userID)
	}
	tr := trend.Analyze(history, value, mctx, now)
	cmp := trend.Compare(history, mctx, now)

	result := &Analysis{
		RiskLevel:   assessment.Level,
		Band:        assessment.Band,
		Conclusion:  assessment.Conclusion,
		Reasoning:   assessment.Reasoning,
		Suggestions: assessment.Suggestions,
		Target:      &target,
		Trend:       &tr,
		Comparison:  &cmp,
	}
	if readingID == nil {
		return result, nil
	}

	event := &domain.AnalysisEvent{
		UserID:           userID,
		GlucoseReadingID: readingID,
		RiskLevel:        assessment.Level,
		Conclusion:       assessment.Conclusion,
		Reasoning:        assessment.Reasoning,
		Suggestions:      domain.JSONList(assessment.Suggestions),
		TrendDirection:   tr.Direction,
		ComparisonPeriod: cmp.Period,
		AverageValue:     cmp.Average,
		Timestamp:        now,
	}
	if err := s.analyses.SaveAnalysis(ctx, event); err != nil {
		if errors.Is(err, apperrors.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("READING_NOT_FOUND", readingNotFoundMessage).
				WithContext("user_id", userID).
				WithContext("reading_id", *readingID)
		}
		return nil, apperrors.NewDatabaseError(err).
			WithContext("user_id", userID).
			WithContext("reading_id", *readingID)
	}
	result.EventID = &event.ID

	if event.RiskLevel == domain.RiskCritical {
		s.notify(ctx, event)
	}
	return result, nil
}

// notify hands a critical event to the notifier. Delivery problems are
// logged; the analysis itself already succeeded.
func (s *AnalysisService) notify(ctx context.Context, event *domain.AnalysisEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyCritical(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "Critical alert not delivered",
			"event_id", event.ID,
			"user_id", event.UserID,
			"error", err)
		return
	}
	sentAt := s.now()
	if err := s.analyses.MarkNotified(ctx, event.ID, sentAt); err != nil {
		s.logger.ErrorContext(ctx, "Failed to mark analysis notified", "event_id", event.ID, "error", err)
		return
	}
	event.Notified = true
	event.NotificationSentAt = &sentAt
}

// Trend window bounds in days.
const (
	DefaultTrendDays = 7
	maxTrendDays     = 365
)

// GlucoseTrend fits a line through the last days of readings, optionally
// restricted to one measurement context.
func (s *AnalysisService) GlucoseTrend(ctx context.Context, userID uint, days int, mctx domain.MeasurementContext) (*trend.Series, error) {
	if days == 0 {
		days = DefaultTrendDays
	}
	if days < 0 || days > maxTrendDays {
		return nil, apperrors.NewValidationError(fmt.Sprintf("天数必须在1到%d之间", maxTrendDays))
	}
	if mctx != "" && !mctx.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("不支持的测量类型 %q", mctx))
	}

	profile, err := s.users.GetProfile(ctx, userID)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError(err).WithContext("user_id", userID)
	}

	since := s.now().Add(-time.Duration(days) * 24 * time.Hour)
	readings, err := s.readings.ReadingsSince(ctx, userID, since, mctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err).WithContext("user_id", userID)
	}
	series := trend.Fit(readings, profile, days)
	return &series, nil
}
