package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
	apperrors "github.com/Caooin/DigiGlucose-Insight/internal/errors"
	"github.com/Caooin/DigiGlucose-Insight/internal/orchestrator"
	"github.com/Caooin/DigiGlucose-Insight/internal/services"
)

type MessageRequest struct {
	UserID    uint   `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

type MessageResponse struct {
	SessionID string `json:"session_id"`
	*orchestrator.Response
}

// postMessage handles POST /v1/messages. A missing session ID starts a new session.
func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.UserID == 0 || strings.TrimSpace(req.Message) == "" {
		s.writeError(w, r, apperrors.NewValidationError("user_id 和 message 不能为空"))
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	resp, err := s.deps.Orchestrator.Process(r.Context(), req.UserID, req.SessionID, req.Message)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{SessionID: req.SessionID, Response: resp})
}

type TargetsRequest struct {
	FastingTargetMin  *float64 `json:"fasting_target_min,omitempty"`
	FastingTargetMax  *float64 `json:"fasting_target_max,omitempty"`
	PostMealTargetMax *float64 `json:"post_meal_target_max,omitempty"`
}

func (t TargetsRequest) targets() services.Targets {
	return services.Targets{
		FastingMin:  t.FastingTargetMin,
		FastingMax:  t.FastingTargetMax,
		PostMealMax: t.PostMealTargetMax,
	}
}

type UserRequest struct {
	Username string `json:"username"`
	TargetsRequest
}

func (s *Server) postUser(w http.ResponseWriter, r *http.Request) {
	var req UserRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	user, err := s.deps.Users.RegisterUser(r.Context(), req.Username, req.targets())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	user, err := s.deps.Users.GetProfile(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) putTargets(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req TargetsRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	user, err := s.deps.Users.UpdateTargets(r.Context(), userID, req.targets())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type ReadingRequest struct {
	Text           string                    `json:"text"`
	Timestamp      *time.Time                `json:"timestamp,omitempty"`
	Unit           domain.Unit               `json:"unit,omitempty"`
	Context        domain.MeasurementContext `json:"context,omitempty"`
	MealType       domain.MealType           `json:"meal_type,omitempty"`
	HoursAfterMeal *float64                  `json:"hours_after_meal,omitempty"`
}

func (req ReadingRequest) validate() error {
	if strings.TrimSpace(req.Text) == "" {
		return apperrors.NewValidationError("text 不能为空")
	}
	if req.Unit != "" && !req.Unit.Valid() {
		return apperrors.NewValidationError("不支持的单位")
	}
	if req.Context != "" && !req.Context.Valid() {
		return apperrors.NewValidationError("不支持的测量类型")
	}
	return nil
}

// postReading logs a glucose reading. Analysis is a separate call.
func (s *Server) postReading(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req ReadingRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.deps.Logging.LogGlucose(r.Context(), userID, req.Text, &services.GlucoseOverrides{
		Timestamp:      req.Timestamp,
		Unit:           req.Unit,
		Context:        req.Context,
		MealType:       req.MealType,
		HoursAfterMeal: req.HoursAfterMeal,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}

type MealRequest struct {
	Text        string          `json:"text"`
	Timestamp   *time.Time      `json:"timestamp,omitempty"`
	MealType    domain.MealType `json:"meal_type,omitempty"`
	PortionSize *string         `json:"portion_size,omitempty"`
}

func (s *Server) postMeal(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req MealRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.writeError(w, r, apperrors.NewValidationError("text 不能为空"))
		return
	}

	res, err := s.deps.Logging.LogMeal(r.Context(), userID, req.Text, &services.MealOverrides{
		Timestamp:   req.Timestamp,
		MealType:    req.MealType,
		PortionSize: req.PortionSize,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

type AnalyzeRequest struct {
	Value     float64                   `json:"value"`
	Context   domain.MeasurementContext `json:"context,omitempty"`
	ReadingID *uint                     `json:"reading_id,omitempty"`
}

func (s *Server) postAnalyze(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req AnalyzeRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Value <= 0 {
		s.writeError(w, r, apperrors.NewValidationError("value 必须大于0"))
		return
	}
	if req.Context != "" && !req.Context.Valid() {
		s.writeError(w, r, apperrors.NewValidationError("不支持的测量类型"))
		return
	}

	analysis, err := s.deps.Analysis.AnalyzeGlucose(r.Context(), userID, req.Value, req.Context, req.ReadingID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) postReport(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Reports.GenerateWeeklyReport(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if !res.Success {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

func (s *Server) listReports(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	reports, err := s.deps.Reports.ListReports(r.Context(), userID, 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports, "count": len(reports)})
}

type EducationRequest struct {
	Question string `json:"question"`
	UserID   *uint  `json:"user_id,omitempty"`
}

func (s *Server) postEducation(w http.ResponseWriter, r *http.Request) {
	var req EducationRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		s.writeError(w, r, apperrors.NewValidationError("question 不能为空"))
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Education.AnswerQuestion(r.Context(), req.Question, req.UserID))
}

type SupportRequest struct {
	Text string `json:"text"`
}

func (s *Server) postSupport(w http.ResponseWriter, r *http.Request) {
	var req SupportRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Support.ProvideSupport(req.Text))
}
