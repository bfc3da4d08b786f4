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
)

const reminderNotFoundMessage = "提醒不存在"

var (
	reminderTypeNames = map[domain.ReminderType]string{
		domain.ReminderGlucose:     "测血糖",
		domain.ReminderMedication:  "用药",
		domain.ReminderDiet:        "饮食控制",
		domain.ReminderAppointment: "复诊",
	}
	repeatNames = map[domain.RepeatType]string{
		domain.RepeatDaily:   "每天",
		domain.RepeatWeekly:  "每周",
		domain.RepeatMonthly: "每月",
		domain.RepeatOnce:    "一次",
	}
	weekdayNames = []string{"", "一", "二", "三", "四", "五", "六", "日"}
)

// ReminderInput is the body of a create or update. On update nil fields are
// left alone; an empty ReminderDate clears the date.
type ReminderInput struct {
	ReminderType *domain.ReminderType `json:"reminder_type,omitempty"`
	Title        *string              `json:"title,omitempty"`
	Content      *string              `json:"content,omitempty"`
	ReminderTime *string              `json:"reminder_time,omitempty"`
	ReminderDate *string              `json:"reminder_date,omitempty"`
	RepeatType   *domain.RepeatType   `json:"repeat_type,omitempty"`
	RepeatDays   *[]int               `json:"repeat_days,omitempty"`
	Enabled      *bool                `json:"enabled,omitempty"`
	Completed    *bool                `json:"completed,omitempty"`
}

// ReminderService manages user reminders. Delivery is up to the client.
type ReminderService struct {
	users     domain.ProfileStore
	reminders domain.ReminderStore
	now       func() time.Time
	logger    *slog.Logger
}

// NewReminderService creates a reminder service over its stores.
func NewReminderService(users domain.ProfileStore, reminders domain.ReminderStore, logger *slog.Logger) *ReminderService {
	return &ReminderService{
		users:     users,
		reminders: reminders,
		now:       time.Now,
		logger:    logger,
	}
}

// WithClock replaces the time source.
func (s *ReminderService) WithClock(now func() time.Time) *ReminderService {
	s.now = now
	return s
}

func (s *ReminderService) requireUser(ctx context.Context, userID uint) error {
	_, err := s.users.GetProfile(ctx, userID)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return err
	}
	if err != nil {
		return apperrors.NewDatabaseError(err).WithContext("user_id", userID)
	}
	return nil
}

func reminderNotFound(userID, reminderID uint) error {
	return apperrors.NewNotFoundError("REMINDER_NOT_FOUND", reminderNotFoundMessage).
		WithContext("user_id", userID).
		WithContext("reminder_id", reminderID)
}

// CreateReminder requires a type, a title and a time. The repeat type
// defaults to daily and a new reminder is enabled unless told otherwise.
func (s *ReminderService) CreateReminder(ctx context.Context, userID uint, in ReminderInput) (*domain.Reminder, error) {
	if in.ReminderType == nil || in.Title == nil || in.ReminderTime == nil {
		return nil, apperrors.NewValidationError("提醒类型、标题和时间不能为空")
	}
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	r := &domain.Reminder{
		UserID:     userID,
		RepeatType: domain.RepeatDaily,
		RepeatDays: domain.JSONDays(nil),
		Enabled:    true,
	}
	if err := s.apply(r, in); err != nil {
		return nil, err
	}

	if err := s.reminders.CreateReminder(ctx, r); err != nil {
		return nil, apperrors.NewDatabaseError(err).WithContext("user_id", userID)
	}
	s.logger.InfoContext(ctx, "Reminder created",
		"user_id", userID,
		"reminder_id", r.ID,
		"type", r.ReminderType,
		"time", r.ReminderTime)
	return r, nil
}

// ListReminders returns the user's reminders, newest first.
func (s *ReminderService) ListReminders(ctx context.Context, userID uint) ([]domain.Reminder, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	reminders, err := s.reminders.ListReminders(ctx, userID)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err).WithContext("user_id", userID)
	}
	return reminders, nil
}

// UpdateReminder patches the fields set in in. Marking a reminder completed
// stamps CompletedAt; clearing it removes the stamp.
func (s *ReminderService) UpdateReminder(ctx context.Context, userID, reminderID uint, in ReminderInput) (*domain.Reminder, error) {
	r, err := s.reminders.GetReminder(ctx, userID, reminderID)
	if errors.Is(err, apperrors.ErrRecordNotFound) {
		return nil, reminderNotFound(userID, reminderID)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError(err).WithContext("reminder_id", reminderID)
	}

	if err := s.apply(r, in); err != nil {
		return nil, err
	}

	err = s.reminders.UpdateReminder(ctx, r)
	if errors.Is(err, apperrors.ErrRecordNotFound) {
		return nil, reminderNotFound(userID, reminderID)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError(err).WithContext("reminder_id", reminderID)
	}
	return r, nil
}

func (s *ReminderService) DeleteReminder(ctx context.Context, userID, reminderID uint) error {
	err := s.reminders.DeleteReminder(ctx, userID, reminderID)
	if errors.Is(err, apperrors.ErrRecordNotFound) {
		return reminderNotFound(userID, reminderID)
	}
	if err != nil {
		return apperrors.NewDatabaseError(err).WithContext("reminder_id", reminderID)
	}
	s.logger.InfoContext(ctx, "Reminder deleted", "user_id", userID, "reminder_id", reminderID)
	return nil
}

// apply validates and copies the set fields of in onto r.
func (s *ReminderService) apply(r *domain.Reminder, in ReminderInput) error {
	if in.ReminderType != nil {
		if !in.ReminderType.Valid() {
			return apperrors.NewValidationError(fmt.Sprintf("不支持的提醒类型 %q", *in.ReminderType))
		}
		r.ReminderType = *in.ReminderType
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return apperrors.NewValidationError("提醒标题不能为空")
		}
		r.Title = title
	}
	if in.Content != nil {
		r.Content = *in.Content
	}
	if in.ReminderTime != nil {
		hm, err := ParseClock(*in.ReminderTime)
		if err != nil {
			return err
		}
		r.ReminderTime = hm
	}
	if in.ReminderDate != nil {
		date, err := parseDate(*in.ReminderDate)
		if err != nil {
			return err
		}
		r.ReminderDate = date
	}
	if in.RepeatType != nil {
		if !in.RepeatType.Valid() {
			return apperrors.NewValidationError(fmt.Sprintf("不支持的重复方式 %q", *in.RepeatType))
		}
		r.RepeatType = *in.RepeatType
	}
	if in.RepeatDays != nil {
		for _, d := range *in.RepeatDays {
			if d < 1 || d > 7 {
				return apperrors.NewValidationError("重复日期必须在1到7之间")
			}
		}
		r.RepeatDays = domain.JSONDays(*in.RepeatDays)
	}
	if in.Enabled != nil {
		r.Enabled = *in.Enabled
	}
	if in.Completed != nil {
		r.Completed = *in.Completed
		if r.Completed {
			at := s.now().UTC()
			r.CompletedAt = &at
		} else {
			r.CompletedAt = nil
		}
	}
	return nil
}

// ParseClock normalises a wall-clock time to "HH:MM".
func ParseClock(v string) (string, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(v))
	if err != nil {
		return "", apperrors.NewValidationError(fmt.Sprintf("时间格式应为HH:MM，收到 %q", v))
	}
	return t.Format("15:04"), nil
}

// parseDate accepts a calendar date or an RFC 3339 timestamp. Empty clears.
func parseDate(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, v); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apperrors.NewValidationError(fmt.Sprintf("日期格式应为YYYY-MM-DD，收到 %q", v))
}

// FormatReminder renders one reminder as a single chat line.
func FormatReminder(r *domain.Reminder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d ⏰ %s %s", r.ID, r.ReminderTime, r.Title)

	when := repeatNames[r.RepeatType]
	if r.RepeatType == domain.RepeatWeekly {
		if days, err := r.Days(); err == nil && len(days) > 0 {
			names := make([]string, 0, len(days))
			for _, d := range days {
				names = append(names, weekdayNames[d])
			}
			when = "每周" + strings.Join(names, "、")
		}
	}
	if r.RepeatType == domain.RepeatOnce && r.ReminderDate != nil {
		when = r.ReminderDate.Format(time.DateOnly)
	}
	fmt.Fprintf(&b, "（%s·%s）", reminderTypeNames[r.ReminderType], when)

	switch {
	case r.Completed:
		b.WriteString(" ✅")
	case !r.Enabled:
		b.WriteString(" ⏸")
	}
	return b.String()
}
