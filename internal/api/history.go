package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
	apperrors "github.com/Caooin/DigiGlucose-Insight/internal/errors"
	"github.com/Caooin/DigiGlucose-Insight/internal/services"
)

// intQuery reads an optional non-negative integer query parameter.
func intQuery(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperrors.NewValidationError("无效的参数 " + name)
	}
	return v, nil
}

// ReadingView is one entry of the reading history.
type ReadingView struct {
	ID        uint                      `json:"id"`
	Value     float64                   `json:"value"`
	Unit      domain.Unit               `json:"unit"`
	Timestamp time.Time                 `json:"timestamp"`
	Context   domain.MeasurementContext `json:"context"`
	MealType  *domain.MealType          `json:"meal_type,omitempty"`
	RiskLevel *domain.RiskLevel         `json:"risk_level,omitempty"`
}

// listReadings handles GET /v1/users/{userID}/readings?limit=N.
func (s *Server) listReadings(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit, err := intQuery(r, "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	readings, err := s.deps.Logging.History(r.Context(), userID, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	views := make([]ReadingView, 0, len(readings))
	for _, rd := range readings {
		views = append(views, ReadingView{
			ID:        rd.ID,
			Value:     rd.Value,
			Unit:      rd.Unit,
			Timestamp: rd.Timestamp,
			Context:   rd.Context,
			MealType:  rd.MealType,
			RiskLevel: rd.RiskLevel,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"readings": views, "count": len(views)})
}

// getTrend handles GET /v1/users/{userID}/trend?days=7&context=fasting.
func (s *Server) getTrend(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	days, err := intQuery(r, "days")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	mctx := domain.MeasurementContext(r.URL.Query().Get("context"))

	series, err := s.deps.Analysis.GlucoseTrend(r.Context(), userID, days, mctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func reminderIDParam(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "reminderID"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.NewValidationError("无效的提醒ID")
	}
	return uint(id), nil
}

func (s *Server) listReminders(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	reminders, err := s.deps.Reminders.ListReminders(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reminders": reminders, "count": len(reminders)})
}

func (s *Server) postReminder(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req services.ReminderInput
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	reminder, err := s.deps.Reminders.CreateReminder(r.Context(), userID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reminder)
}

// putReminder patches only the fields present in the body.
func (s *Server) putReminder(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	reminderID, err := reminderIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req services.ReminderInput
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	reminder, err := s.deps.Reminders.UpdateReminder(r.Context(), userID, reminderID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reminder)
}

func (s *Server) deleteReminder(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	reminderID, err := reminderIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.deps.Reminders.DeleteReminder(r.Context(), userID, reminderID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
