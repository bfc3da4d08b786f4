package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
	apperrors "github.com/Caooin/DigiGlucose-Insight/internal/errors"
	"github.com/Caooin/DigiGlucose-Insight/internal/intent"
	"github.com/Caooin/DigiGlucose-Insight/internal/services"
)

// Disclaimer is appended to replies that contain medical advice.
const Disclaimer = "⚠️ 重要提示：以上建议仅供参考，不能替代专业医疗诊断。如有紧急情况或持续异常，请及时联系医生。"

const (
	noReadingMessage  = "抱歉，我没有找到您最近的血糖记录。请先记录一次血糖测量。"
	riskAlertMessage  = "已检测到风险情况，请查看上述分析建议。"
	generalAck        = "我理解您的问题。"
	generalGlucoseTip = "如果您想记录血糖，可以说\"我测了血糖X.X\"；如果想询问数值，可以说\"这个数值高吗？\""
	generalHelp       = "我可以帮您：记录血糖/饮食/运动，分析血糖状态，回答健康问题，提供情感支持。请告诉我您需要什么帮助。"
)

// Actions reported back to the caller.
const (
	ActionRecordGlucose    = "记录血糖"
	ActionAnalyzeGlucose   = "分析血糖"
	ActionRecordMeal       = "记录饮食"
	ActionRecordExercise   = "记录运动"
	ActionRecordMedication = "记录用药"
	ActionValueStatus      = "分析血糖状态"
	ActionEducation        = "科普教育"
	ActionSupport          = "情感支持"
	ActionWeeklyReport     = "生成周报"
	ActionRiskAlert        = "风险告警"
	ActionSetGoal          = "设定目标"
)

// Response is the outcome of one conversational turn.
type Response struct {
	Reply              string           `json:"reply"`
	Intent             domain.Intent    `json:"intent"`
	Sentiment          domain.Sentiment `json:"sentiment"`
	ActionsTaken       []string         `json:"actions_taken"`
	NeedsClarification []string         `json:"needs_clarification"`
}

// Services groups the domain agents a turn can be routed to.
type Services struct {
	Logging   *services.LoggingService
	Analysis  *services.AnalysisService
	Reports   *services.ReportService
	Education *services.EducationService
	Support   *services.SupportService
}

// Orchestrator runs one message through classification, state tracking and
// the matching domain agent, then assembles the reply.
type Orchestrator struct {
	conversations domain.ConversationStore
	readings      domain.ReadingStore
	svc           Services
	smoother      domain.ReplySmoother
	errors        *apperrors.Handler
	logger        *slog.Logger
}

// New builds an orchestrator over the conversation store and the domain agents.
func New(conversations domain.ConversationStore, readings domain.ReadingStore, svc Services, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		conversations: conversations,
		readings:      readings,
		svc:           svc,
		errors:        apperrors.NewHandler(logger),
		logger:        logger,
	}
}

// WithSmoother rewrites assembled replies before they are returned.
// Smoothing failures keep the original text.
func (o *Orchestrator) WithSmoother(s domain.ReplySmoother) *Orchestrator {
	o.smoother = s
	return o
}

// turn collects reply fragments for one message.
type turn struct {
	parts   []string
	actions []string
	missing []string
}

func (t *turn) add(parts ...string) {
	for _, p := range parts {
		if p != "" {
			t.parts = append(t.parts, p)
		}
	}
}

// Process handles one user message. Domain problems such as a missing value
// come back as clarification text; storage failures abort the turn.
func (o *Orchestrator) Process(ctx context.Context, userID uint, sessionID, text string) (*Response, error) {
	in := intent.Classify(text)
	sentiment := intent.DetectSentiment(text)
	slots := intent.ExtractSlots(text)

	if err := o.saveState(ctx, userID, sessionID, in, sentiment, slots); err != nil {
		return nil, o.errors.LogAndReturn(ctx, err)
	}

	t := &turn{actions: []string{}, missing: []string{}}
	if err := o.dispatch(ctx, t, userID, text, in, slots); err != nil {
		if !clarifiable(err) {
			return nil, o.errors.LogAndReturn(ctx, err)
		}
		o.errors.Handle(ctx, err)
		t.add(apperrors.UserMessage(err))
	}

	if sentiment.NeedsEmpathy() {
		if line := o.svc.Support.Empathy(text); line != "" && !slices.Contains(t.parts, line) {
			t.parts = append([]string{line}, t.parts...)
		}
	}

	reply := strings.Join(t.parts, "\n\n")
	reply = o.smooth(ctx, reply)
	if in == domain.IntentAskValueStatus || in == domain.IntentRiskAlert || strings.Contains(reply, "建议") {
		reply += "\n\n" + Disclaimer
	}

	o.logger.InfoContext(ctx, "Message processed",
		"user_id", userID,
		"session_id", sessionID,
		"intent", in,
		"sentiment", sentiment,
		"actions", t.actions)

	return &Response{
		Reply:              reply,
		Intent:             in,
		Sentiment:          sentiment,
		ActionsTaken:       t.actions,
		NeedsClarification: t.missing,
	}, nil
}

// clarifiable errors are answered in the reply instead of failing the turn.
func clarifiable(err error) bool {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeValidation, apperrors.ErrorTypeExtraction, apperrors.ErrorTypeNotFound:
		return true
	}
	return false
}

func (o *Orchestrator) saveState(ctx context.Context, userID uint, sessionID string, in domain.Intent, sentiment domain.Sentiment, slots domain.Slots) error {
	state := &domain.ConversationState{
		UserID:       userID,
		SessionID:    sessionID,
		CurrentTopic: in,
		Intent:       in,
		Sentiment:    sentiment,
		Slots:        domain.JSONSlots(slots),
	}
	if err := o.conversations.SaveState(ctx, state); err != nil {
		return apperrors.NewDatabaseError(err).
			WithContext("user_id", userID).
			WithContext("session_id", sessionID)
	}
	return nil
}

func (o *Orchestrator) dispatch(ctx context.Context, t *turn, userID uint, text string, in domain.Intent, slots domain.Slots) error {
	switch in {
	case domain.IntentRecordGlucose:
		return o.recordGlucose(ctx, t, userID, text, slots)

	case domain.IntentRecordMeal:
		res, err := o.svc.Logging.LogMeal(ctx, userID, text, &services.MealOverrides{MealType: slots.MealType})
		if err != nil {
			return err
		}
		t.add(res.Message)
		t.actions = append(t.actions, ActionRecordMeal)
		t.missing = append(t.missing, res.MissingInfo...)

	case domain.IntentRecordExercise:
		res, err := o.svc.Logging.LogExercise(ctx, userID, text)
		if err != nil {
			return err
		}
		t.add(res.Message)
		t.actions = append(t.actions, ActionRecordExercise)

	case domain.IntentRecordMedication:
		res, err := o.svc.Logging.LogMedication(ctx, userID, text)
		if err != nil {
			return err
		}
		t.add(res.Message)
		t.actions = append(t.actions, ActionRecordMedication)

	case domain.IntentAskValueStatus:
		msg, err := o.valueStatus(ctx, userID)
		if err != nil {
			return err
		}
		t.add(msg)
		t.actions = append(t.actions, ActionValueStatus)

	case domain.IntentAskEducation:
		answer := o.svc.Education.AnswerQuestion(ctx, text, &userID)
		t.add(answer.Answer, answer.Personalized)
		t.actions = append(t.actions, ActionEducation)

	case domain.IntentEmotionalSupport:
		if o.setGoal(t, text) {
			return nil
		}
		support := o.svc.Support.ProvideSupport(text)
		t.add(support.Empathy, support.Encouragement)
		if len(support.NextSteps) > 0 {
			t.add("建议：\n• " + strings.Join(support.NextSteps, "\n• "))
		}
		t.actions = append(t.actions, ActionSupport)

	case domain.IntentWeeklyReport:
		res, err := o.svc.Reports.GenerateWeeklyReport(ctx, userID)
		if err != nil {
			return err
		}
		t.add(res.Content)
		if len(res.PositiveProgress) > 0 {
			achievement, _, _ := strings.Cut(res.PositiveProgress[0], "，")
			t.add(o.svc.Support.PositiveFeedback(achievement))
		}
		t.actions = append(t.actions, ActionWeeklyReport)

	case domain.IntentRiskAlert:
		t.add(riskAlertMessage)
		t.actions = append(t.actions, ActionRiskAlert)

	default:
		if o.setGoal(t, text) {
			return nil
		}
		t.add(generalAck)
		if strings.Contains(text, "血糖") {
			t.add(generalGlucoseTip)
		} else {
			t.add(generalHelp)
		}
	}
	return nil
}

// setGoal answers a stated goal. It reports false when text is not one.
func (o *Orchestrator) setGoal(t *turn, text string) bool {
	desc, ok := intent.Goal(text)
	if !ok {
		return false
	}
	res := o.svc.Support.SetGoal(desc)
	t.add(res.Message, res.Reminder)
	if res.Success {
		t.actions = append(t.actions, ActionSetGoal)
	}
	return true
}

// recordGlucose logs the reading and, when it was stored, analyses it.
func (o *Orchestrator) recordGlucose(ctx context.Context, t *turn, userID uint, text string, slots domain.Slots) error {
	res, err := o.svc.Logging.LogGlucose(ctx, userID, text, &services.GlucoseOverrides{
		Unit:           slots.Unit,
		MealType:       slots.MealType,
		HoursAfterMeal: slots.HoursAfterMeal,
	})
	if err != nil {
		return err
	}
	t.add(res.Message)
	t.actions = append(t.actions, ActionRecordGlucose)
	t.missing = append(t.missing, res.MissingInfo...)

	if !res.Success || res.RecordID == nil {
		return nil
	}

	analysis, err := o.svc.Analysis.AnalyzeGlucose(ctx, userID, *res.Value, res.Context, res.RecordID)
	if err != nil {
		return err
	}
	t.add(analysis.Format())
	t.actions = append(t.actions, ActionAnalyzeGlucose)
	return nil
}

func (o *Orchestrator) valueStatus(ctx context.Context, userID uint) (string, error) {
	latest, err := o.readings.LatestReading(ctx, userID)
	if err != nil {
		return "", apperrors.NewDatabaseError(err).WithContext("user_id", userID)
	}
	if latest == nil {
		return noReadingMessage, nil
	}

	analysis, err := o.svc.Analysis.AnalyzeGlucose(ctx, userID, latest.Value, latest.Context, &latest.ID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("您最近的血糖值是 %.1f mmol/L", latest.Value) + "\n\n" + analysis.Format(), nil
}

func (o *Orchestrator) smooth(ctx context.Context, reply string) string {
	if o.smoother == nil || reply == "" {
		return reply
	}
	smoothed, err := o.smoother.Smooth(ctx, reply)
	if err != nil {
		o.logger.WarnContext(ctx, "Reply smoothing failed, keeping original", "error", err)
		return reply
	}
	return smoothed
}
