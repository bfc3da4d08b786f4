package domain

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Unit is a glucose concentration unit. Values are always stored in UnitMmolL.
type Unit string

const (
	UnitMmolL Unit = "mmol/L"
	UnitMgdL  Unit = "mg/dL"
)

// MgdLPerMmolL is the conversion factor between the two units.
const MgdLPerMmolL = 18.0

func (u Unit) Valid() bool {
	return u == UnitMmolL || u == UnitMgdL
}

type MeasurementContext string

const (
	ContextFasting        MeasurementContext = "fasting"
	ContextPreMeal        MeasurementContext = "pre_meal"
	ContextPostMeal       MeasurementContext = "post_meal"
	ContextRandom         MeasurementContext = "random"
	ContextBeforeExercise MeasurementContext = "before_exercise"
	ContextAfterExercise  MeasurementContext = "after_exercise"
)

func (c MeasurementContext) Valid() bool {
	switch c {
	case ContextFasting, ContextPreMeal, ContextPostMeal, ContextRandom, ContextBeforeExercise, ContextAfterExercise:
		return true
	}
	return false
}

type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
	MealOther     MealType = "other"
)

// DisplayName is the label used in user-facing text.
func (m MealType) DisplayName() string {
	switch m {
	case MealBreakfast:
		return "早餐"
	case MealLunch:
		return "午餐"
	case MealDinner:
		return "晚餐"
	case MealSnack:
		return "加餐"
	case MealOther:
		return "其他"
	default:
		return string(m)
	}
}

type RiskLevel string

const (
	RiskCritical RiskLevel = "critical"
	RiskHigh     RiskLevel = "high"
	RiskModerate RiskLevel = "moderate"
	RiskNormal   RiskLevel = "normal"
	RiskUnknown  RiskLevel = "unknown"
)

// RiskBand is the finer six-way split behind a RiskLevel.
type RiskBand string

const (
	BandCriticalLow  RiskBand = "critical_low"
	BandCriticalHigh RiskBand = "critical_high"
	BandHigh         RiskBand = "high"
	BandModerateLow  RiskBand = "moderate_low"
	BandNormal       RiskBand = "normal"
	BandModerateHigh RiskBand = "moderate_high"
)

type Intent string

const (
	IntentRecordGlucose    Intent = "record_glucose"
	IntentRecordMeal       Intent = "record_meal"
	IntentRecordExercise   Intent = "record_exercise"
	IntentRecordMedication Intent = "record_medication"
	IntentAskValueStatus   Intent = "ask_value_status"
	IntentWeeklyReport     Intent = "weekly_report"
	IntentAskEducation     Intent = "ask_education"
	IntentEmotionalSupport Intent = "emotional_support"
	IntentRiskAlert        Intent = "risk_alert"
	IntentGeneral          Intent = "general"
)

type Sentiment string

const (
	SentimentPositive   Sentiment = "positive"
	SentimentNegative   Sentiment = "negative"
	SentimentAnxious    Sentiment = "anxious"
	SentimentFrustrated Sentiment = "frustrated"
	SentimentNeutral    Sentiment = "neutral"
)

// NeedsEmpathy reports whether a reply should open with an empathy line.
func (s Sentiment) NeedsEmpathy() bool {
	return s == SentimentNegative || s == SentimentAnxious || s == SentimentFrustrated
}

type TrendDirection string

const (
	TrendUp               TrendDirection = "up"
	TrendDown             TrendDirection = "down"
	TrendStable           TrendDirection = "stable"
	TrendInsufficientData TrendDirection = "insufficient_data"
)

// Slots is the structured data pulled out of a single utterance.
type Slots struct {
	GlucoseValue   *float64 `json:"glucose_value,omitempty"`
	Unit           Unit     `json:"unit,omitempty"`
	MealType       MealType `json:"meal_type,omitempty"`
	HoursAfterMeal *float64 `json:"hours_after_meal,omitempty"`
}

// User carries identity and optional personal glucose targets in mmol/L.
type User struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	TelegramID        *int64    `gorm:"uniqueIndex" json:"telegram_id,omitempty"`
	Username          string    `gorm:"size:100;not null" json:"username"`
	FastingTargetMin  *float64  `json:"fasting_target_min,omitempty"`
	FastingTargetMax  *float64  `json:"fasting_target_max,omitempty"`
	PostMealTargetMax *float64  `json:"post_meal_target_max,omitempty"`
}

type GlucoseReading struct {
	ID             uint               `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time          `json:"created_at"`
	UserID         uint               `gorm:"index;not null" json:"user_id"`
	Value          float64            `gorm:"not null" json:"value"`
	Unit           Unit               `gorm:"size:10;not null" json:"unit"`
	OriginalUnit   Unit               `gorm:"size:10" json:"original_unit"`
	Timestamp      time.Time          `gorm:"index;not null" json:"timestamp"`
	Context        MeasurementContext `gorm:"size:20;index" json:"context"`
	MealType       *MealType          `gorm:"size:20" json:"meal_type,omitempty"`
	HoursAfterMeal *float64           `json:"hours_after_meal,omitempty"`
	RiskLevel      *RiskLevel         `gorm:"size:20" json:"risk_level,omitempty"`
	AnalysisNotes  *string            `gorm:"type:text" json:"analysis_notes,omitempty"`
}

type MealEntry struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UserID         uint      `gorm:"index;not null" json:"user_id"`
	MealType       MealType  `gorm:"size:20;not null" json:"meal_type"`
	Timestamp      time.Time `gorm:"index;not null" json:"timestamp"`
	Description    string    `gorm:"type:text;not null" json:"description"`
	PortionSize    *string   `json:"portion_size,omitempty"`
	EstimatedCarbs *float64  `json:"estimated_carbs,omitempty"`
	EstimatedGI    *float64  `gorm:"column:estimated_gi" json:"estimated_gi,omitempty"`
	EstimatedGL    *float64  `gorm:"column:estimated_gl" json:"estimated_gl,omitempty"`
}

type ExerciseRecord struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	UserID          uint      `gorm:"index;not null" json:"user_id"`
	ExerciseType    string    `gorm:"not null" json:"exercise_type"`
	DurationMinutes *int      `json:"duration_minutes,omitempty"`
	Intensity       string    `gorm:"size:20" json:"intensity"`
	Timestamp       time.Time `gorm:"index;not null" json:"timestamp"`
}

type MedicationRecord struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UserID         uint      `gorm:"index;not null" json:"user_id"`
	MedicationName string    `gorm:"not null" json:"medication_name"`
	Dosage         *string   `json:"dosage,omitempty"`
	Timestamp      time.Time `gorm:"index;not null" json:"timestamp"`
}

// ConversationState is the per (user, session) snapshot of the last turn.
// It is overwritten on every turn.
type ConversationState struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	UserID       uint           `gorm:"uniqueIndex:idx_conversation_user_session;not null" json:"user_id"`
	SessionID    string         `gorm:"uniqueIndex:idx_conversation_user_session;size:128;not null" json:"session_id"`
	CurrentTopic Intent         `gorm:"size:32" json:"current_topic"`
	Intent       Intent         `gorm:"size:32" json:"intent"`
	Sentiment    Sentiment      `gorm:"size:16" json:"sentiment"`
	Slots        datatypes.JSON `json:"slots"`
}

// DecodeSlots unmarshals the stored slot mapping.
func (c *ConversationState) DecodeSlots() (Slots, error) {
	var s Slots
	if len(c.Slots) == 0 {
		return s, nil
	}
	err := json.Unmarshal(c.Slots, &s)
	return s, err
}

// AnalysisEvent is written once per analysed reading. Only the
// notification fields change afterwards.
type AnalysisEvent struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	UserID             uint           `gorm:"index;not null" json:"user_id"`
	GlucoseReadingID   *uint          `gorm:"index" json:"glucose_reading_id,omitempty"`
	RiskLevel          RiskLevel      `gorm:"size:20;not null" json:"risk_level"`
	Conclusion         string         `gorm:"type:text" json:"conclusion"`
	Reasoning          string         `gorm:"type:text" json:"reasoning"`
	Suggestions        datatypes.JSON `json:"suggestions"`
	TrendDirection     TrendDirection `gorm:"size:20" json:"trend_direction"`
	ComparisonPeriod   string         `gorm:"size:10" json:"comparison_period"`
	AverageValue       *float64       `json:"average_value,omitempty"`
	Timestamp          time.Time      `gorm:"index;not null" json:"timestamp"`
	Notified           bool           `gorm:"not null;default:false" json:"notified"`
	NotificationSentAt *time.Time     `json:"notification_sent_at,omitempty"`
}

type WeeklyReport struct {
	ID                   uint           `gorm:"primaryKey" json:"id"`
	CreatedAt            time.Time      `json:"created_at"`
	UserID               uint           `gorm:"index;not null" json:"user_id"`
	WeekStart            time.Time      `gorm:"index;not null" json:"week_start"`
	WeekEnd              time.Time      `gorm:"not null" json:"week_end"`
	TotalMeasurements    int            `json:"total_measurements"`
	AverageGlucose       *float64       `json:"average_glucose,omitempty"`
	FastingAverage       *float64       `json:"fasting_average,omitempty"`
	PostMealAverage      *float64       `json:"post_meal_average,omitempty"`
	TargetComplianceRate *float64       `json:"target_compliance_rate,omitempty"`
	Patterns             datatypes.JSON `json:"patterns"`
	ActionItems          datatypes.JSON `json:"action_items"`
	PositiveProgress     datatypes.JSON `json:"positive_progress"`
}

type ReminderType string

const (
	ReminderGlucose     ReminderType = "glucose_measurement"
	ReminderMedication  ReminderType = "medication"
	ReminderDiet        ReminderType = "diet_control"
	ReminderAppointment ReminderType = "appointment"
)

func (t ReminderType) Valid() bool {
	switch t {
	case ReminderGlucose, ReminderMedication, ReminderDiet, ReminderAppointment:
		return true
	}
	return false
}

type RepeatType string

const (
	RepeatDaily   RepeatType = "daily"
	RepeatWeekly  RepeatType = "weekly"
	RepeatMonthly RepeatType = "monthly"
	RepeatOnce    RepeatType = "once"
)

func (r RepeatType) Valid() bool {
	switch r {
	case RepeatDaily, RepeatWeekly, RepeatMonthly, RepeatOnce:
		return true
	}
	return false
}

// Reminder is a user-scheduled prompt. ReminderTime is a wall-clock "HH:MM";
// RepeatDays holds weekdays 1 (Monday) to 7 for weekly reminders.
type Reminder struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	UserID       uint           `gorm:"index;not null" json:"user_id"`
	ReminderType ReminderType   `gorm:"size:32;not null" json:"reminder_type"`
	Title        string         `gorm:"size:200;not null" json:"title"`
	Content      string         `gorm:"type:text" json:"content,omitempty"`
	ReminderTime string         `gorm:"size:5;not null" json:"reminder_time"`
	ReminderDate *time.Time     `json:"reminder_date,omitempty"`
	RepeatType   RepeatType     `gorm:"size:16;not null;default:daily" json:"repeat_type"`
	RepeatDays   datatypes.JSON `json:"repeat_days"`
	Enabled      bool           `gorm:"not null" json:"enabled"`
	Completed    bool           `gorm:"not null;default:false" json:"completed"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// Days decodes RepeatDays.
func (r *Reminder) Days() ([]int, error) {
	var days []int
	if len(r.RepeatDays) == 0 {
		return days, nil
	}
	err := json.Unmarshal(r.RepeatDays, &days)
	return days, err
}

// JSONDays encodes weekdays for a JSON column. A nil list is stored as [].
func JSONDays(days []int) datatypes.JSON {
	if days == nil {
		days = []int{}
	}
	raw, _ := json.Marshal(days)
	return datatypes.JSON(raw)
}

// JSONList encodes a string list for a JSON column. A nil list is stored as [].
func JSONList(items []string) datatypes.JSON {
	if items == nil {
		items = []string{}
	}
	raw, _ := json.Marshal(items)
	return datatypes.JSON(raw)
}

// DecodeList is the inverse of JSONList.
func DecodeList(raw datatypes.JSON) ([]string, error) {
	var items []string
	if len(raw) == 0 {
		return items, nil
	}
	err := json.Unmarshal(raw, &items)
	return items, err
}

// JSONSlots encodes a slot mapping for a JSON column.
func JSONSlots(s Slots) datatypes.JSON {
	raw, _ := json.Marshal(s)
	return datatypes.JSON(raw)
}
