package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
	apperrors "github.com/Caooin/DigiGlucose-Insight/internal/errors"
	"github.com/Caooin/DigiGlucose-Insight/internal/extract"
)

const (
	MissingGlucoseValue   = "血糖数值"
	MissingContext        = "测量上下文（空腹/餐后）"
	MissingHoursAfterMeal = "餐后时长"
	MissingPortion        = "份量"

	noValueMessage = "抱歉，我没有在您的话里找到血糖数值，请再说一次，比如\"血糖8.5\"。"

	// Readings before this local hour with no other hint count as fasting.
	fastingCutoffHour = 10
	defaultIntensity  = "moderate"
)

// MealEstimator guesses nutrition for meals the keyword table does not know.
type MealEstimator interface {
	EstimateMeal(ctx context.Context, description string) (*MealEstimate, error)
}

// GlucoseOverrides carries values the caller already knows. Zero fields are
// inferred from the text.
type GlucoseOverrides struct {
	Timestamp      *time.Time
	Unit           domain.Unit
	Context        domain.MeasurementContext
	MealType       domain.MealType
	HoursAfterMeal *float64
}

// MealOverrides carries values the caller already knows about a meal.
type MealOverrides struct {
	Timestamp   *time.Time
	MealType    domain.MealType
	PortionSize *string
}

// LogResult is returned by every logging operation.
type LogResult struct {
	Success     bool                      `json:"success"`
	Message     string                    `json:"message"`
	RecordID    *uint                     `json:"record_id,omitempty"`
	Value       *float64                  `json:"value,omitempty"`
	Unit        domain.Unit               `json:"unit,omitempty"`
	Context     domain.MeasurementContext `json:"context,omitempty"`
	MissingInfo []string                  `json:"missing_info"`
}

// Err is nil for a stored record. A failed extraction comes back as an
// extraction error carrying the clarification message.
func (r *LogResult) Err() error {
	if r.Success {
		return nil
	}
	return apperrors.NewExtractionError(r.Message).WithContext("missing_info", r.MissingInfo)
}

// LoggingService turns utterances into stored records.
type LoggingService struct {
	users     domain.ProfileStore
	readings  domain.ReadingStore
	journal   domain.JournalStore
	estimator MealEstimator
	location  *time.Location
	now       func() time.Time
	logger    *slog.Logger
}

// NewLoggingService creates a logging service. loc is used to read the
// local hour for meal and context inference.
func NewLoggingService(users domain.ProfileStore, readings domain.ReadingStore, journal domain.JournalStore, loc *time.Location, logger *slog.Logger) *LoggingService {
	if loc == nil {
		loc = time.UTC
	}
	return &LoggingService{
		users:    users,
		readings: readings,
		journal:  journal,
		location: loc,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock replaces the time source.
func (s *LoggingService) WithClock(now func() time.Time) *LoggingService {
	s.now = now
	return s
}

// WithMealEstimator sets a fallback for nutrition estimates.
func (s *LoggingService) WithMealEstimator(e MealEstimator) *LoggingService {
	s.estimator = e
	return s
}

// requireUser returns apperrors.ErrUserNotFound for unregistered users so no
// record is written without an owner.
func (s *LoggingService) requireUser(ctx context.Context, userID uint) error {
	_, err := s.users.GetProfile(ctx, userID)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return err
	}
	if err != nil {
		return apperrors.NewDatabaseError(err).WithContext("user_id", userID)
	}
	return nil
}

// LogGlucose extracts and stores one glucose reading. A missing value is not
// an error: the result carries Success=false and a clarification message.
// Unregistered users get apperrors.ErrUserNotFound.
func (s *LoggingService) LogGlucose(ctx context.Context, userID uint, text string, o *GlucoseOverrides) (*LogResult, error) {
	if o == nil {
		o = &GlucoseOverrides{}
	}

	value, ok := extract.Value(text)
	if !ok {
		return &LogResult{
			Success:     false,
			Message:     noValueMessage,
			MissingInfo: []string{MissingGlucoseValue},
		}, nil
	}

	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	unit := o.Unit
	if unit == "" {
		unit = extract.Unit(text)
	}
	canonical := extract.ToCanonical(value, unit)

	ts := s.now()
	if o.Timestamp != nil {
		ts = *o.Timestamp
	}
	local := ts.In(s.location)

	mealType := o.MealType
	if mealType == "" {
		mealType = extract.MealType(text, local)
	}

	hours := o.HoursAfterMeal
	missing := []string{}
	mctx := o.Context
	if mctx == "" {
		var found bool
		mctx, found = extract.ContextFromColloquial(text)
		if !found {
			mctx, found = extract.ContextFromKeywords(text, hours != nil)
		}
		if !found {
			if local.Hour() < fastingCutoffHour {
				mctx = domain.ContextFasting
			} else {
				mctx = domain.ContextRandom
				missing = append(missing, MissingContext)
			}
		}
		if mctx == domain.ContextPostMeal && hours == nil {
			if h, ok := extract.HoursAfterMeal(text); ok {
				hours = &h
			} else {
				missing = append(missing, MissingHoursAfterMeal)
			}
		}
	}

	reading := &domain.GlucoseReading{
		UserID:         userID,
		Value:          canonical,
		Unit:           domain.UnitMmolL,
		OriginalUnit:   unit,
		Timestamp:      ts,
		Context:        mctx,
		MealType:       &mealType,
		HoursAfterMeal: hours,
	}
	if err := s.readings.CreateReading(ctx, reading); err != nil {
		return nil, apperrors.NewDatabaseError(err).
			WithContext("user_id", userID).
			WithContext("operation", "log_glucose")
	}

	s.logger.InfoContext(ctx, "Glucose reading logged",
		"user_id", userID,
		"reading_id", reading.ID,
		"value_mmol", canonical,
		"context", mctx)

	var msg strings.Builder
	msg.WriteString("已为您记录血糖值：")
	msg.WriteString(strconv.FormatFloat(value, 'f', -1, 64))
	msg.WriteString(" " + string(unit))
	msg.WriteString("（" + strconv.FormatFloat(canonical, 'f', 1, 64) + " mmol/L）")
	msg.WriteString("，测量类型：" + string(mctx))
	if len(missing) > 0 {
		msg.WriteString("。还需要补充：" + strings.Join(missing, ", "))
	}

	return &LogResult{
		Success:     true,
		Message:     msg.String(),
		RecordID:    &reading.ID,
		Value:       &canonical,
		Unit:        domain.UnitMmolL,
		Context:     mctx,
		MissingInfo: missing,
	}, nil
}

// LogMeal stores a meal description with a rough nutrition estimate.
func (s *LoggingService) LogMeal(ctx context.Context, userID uint, text string, o *MealOverrides) (*LogResult, error) {
	if o == nil {
		o = &MealOverrides{}
	}
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	ts := s.now()
	if o.Timestamp != nil {
		ts = *o.Timestamp
	}
	mealType := o.MealType
	if mealType == "" {
		mealType = extract.MealType(text, ts.In(s.location))
	}

	meal := &domain.MealEntry{
		UserID:      userID,
		MealType:    mealType,
		Timestamp:   ts.UTC(),
		Description: text,
		PortionSize: o.PortionSize,
	}
	if n, ok := s.estimate(ctx, text); ok {
		meal.EstimatedCarbs = &n.Carbs
		meal.EstimatedGI = &n.GI
		meal.EstimatedGL = &n.GL
	}

	if err := s.journal.CreateMeal(ctx, meal); err != nil {
		return nil, apperrors.NewDatabaseError(err).
			WithContext("user_id", userID).
			WithContext("operation", "log_meal")
	}

	result := &LogResult{
		Success:     true,
		Message:     "已为您记录饮食：" + text,
		RecordID:    &meal.ID,
		MissingInfo: []string{},
	}
	if o.PortionSize == nil {
		result.MissingInfo = append(result.MissingInfo, MissingPortion)
		result.Message += "。如需更准确的分析，请补充份量信息。"
	}
	return result, nil
}

func (s *LoggingService) estimate(ctx context.Context, text string) (extract.Nutrition, bool) {
	if n, ok := extract.EstimateNutrition(text); ok {
		return n, true
	}
	if s.estimator == nil {
		return extract.Nutrition{}, false
	}

	est, err := s.estimator.EstimateMeal(ctx, text)
	if err != nil {
		s.logger.WarnContext(ctx, "Meal estimate failed", "error", err)
		return extract.Nutrition{}, false
	}
	if est.Carbs <= 0 || est.GI <= 0 {
		return extract.Nutrition{}, false
	}
	return extract.Nutrition{Carbs: est.Carbs, GI: est.GI, GL: est.Carbs * est.GI / 100}, true
}

// LogExercise stores an activity. Intensity defaults to moderate.
func (s *LoggingService) LogExercise(ctx context.Context, userID uint, text string) (*LogResult, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	kind, _ := extract.ExerciseType(text)
	record := &domain.ExerciseRecord{
		UserID:       userID,
		ExerciseType: kind,
		Intensity:    defaultIntensity,
		Timestamp:    s.now().UTC(),
	}
	if d, ok := extract.DurationMinutes(text); ok {
		record.DurationMinutes = &d
	}

	if err := s.journal.CreateExercise(ctx, record); err != nil {
		return nil, apperrors.NewDatabaseError(err).
			WithContext("user_id", userID).
			WithContext("operation", "log_exercise")
	}
	return &LogResult{
		Success:     true,
		Message:     "已记录运动：" + kind,
		RecordID:    &record.ID,
		MissingInfo: []string{},
	}, nil
}

// LogMedication stores a medication entry named by the whole utterance.
func (s *LoggingService) LogMedication(ctx context.Context, userID uint, text string) (*LogResult, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	record := &domain.MedicationRecord{
		UserID:         userID,
		MedicationName: text,
		Timestamp:      s.now().UTC(),
	}
	if d, ok := extract.Dosage(text); ok {
		record.Dosage = &d
	}

	if err := s.journal.CreateMedication(ctx, record); err != nil {
		return nil, apperrors.NewDatabaseError(err).
			WithContext("user_id", userID).
			WithContext("operation", "log_medication")
	}
	return &LogResult{
		Success:     true,
		Message:     "已记录用药：" + text,
		RecordID:    &record.ID,
		MissingInfo: []string{},
	}, nil
}

// Reading history page sizes.
const (
	DefaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// History returns the user's most recent readings, newest first. A
// non-positive limit means DefaultHistoryLimit.
func (s *LoggingService) History(ctx context.Context, userID uint, limit int) ([]domain.GlucoseReading, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return nil, apperrors.NewValidationError("limit 不能超过 " + strconv.Itoa(maxHistoryLimit))
	}
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	readings, err := s.readings.ListReadings(ctx, userID, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err).WithContext("user_id", userID)
	}
	return readings, nil
}
