package services

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
	"github.com/Caooin/DigiGlucose-Insight/internal/intent"
)

// PhrasePicker chooses one of n phrasings.
type PhrasePicker interface {
	Pick(n int) int
}

type randomPicker struct{}

func (randomPicker) Pick(n int) int {
	return rand.IntN(n)
}

// FixedPicker always returns the same index, clamped to n. Useful where
// output must be reproducible.
type FixedPicker int

func (p FixedPicker) Pick(n int) int {
	if int(p) >= n {
		return n - 1
	}
	if p < 0 {
		return 0
	}
	return int(p)
}

// SupportResult is the empathetic reply for one utterance.
type SupportResult struct {
	Sentiment     domain.Sentiment `json:"sentiment"`
	Empathy       string           `json:"empathy"`
	Encouragement string           `json:"encouragement"`
	NextSteps     []string         `json:"next_steps"`
}

// Render joins the non-empty parts with blank lines.
func (r SupportResult) Render() string {
	var parts []string
	if r.Empathy != "" {
		parts = append(parts, r.Empathy)
	}
	if r.Encouragement != "" {
		parts = append(parts, r.Encouragement)
	}
	if len(r.NextSteps) > 0 {
		steps := make([]string, len(r.NextSteps))
		for i, s := range r.NextSteps {
			steps[i] = "• " + s
		}
		parts = append(parts, "建议：\n"+strings.Join(steps, "\n"))
	}
	return strings.Join(parts, "\n\n")
}

var supportReplies = map[domain.Sentiment]SupportResult{
	domain.SentimentPositive: {
		Empathy:       "看到您的进步，我也为您感到高兴！",
		Encouragement: "继续保持当前的良好习惯，您的努力正在带来积极的变化。",
		NextSteps: []string{
			"记录下今天的成功经验",
			"继续保持规律的监测",
			"与医生分享您的进步",
		},
	},
	domain.SentimentNegative: {
		Empathy:       "我理解您的沮丧，血糖管理确实是一个长期的过程，偶尔的波动是正常的。",
		Encouragement: "不要因为一次的结果而气馁，重要的是持续的努力和调整。",
		NextSteps: []string{
			"让我们一起复盘最近的数据，找出可以改进的地方",
			"设定一个小的、可执行的目标",
			"记住：进步是渐进的，不是一蹴而就的",
		},
	},
	domain.SentimentAnxious: {
		Empathy:       "我理解您的担心，这是很正常的。让我们一步步来，不要给自己太大压力。",
		Encouragement: "焦虑是正常的，但我们可以通过科学的管理和监测来减少不确定性。",
		NextSteps: []string{
			"定期监测可以帮助您更好地了解自己的血糖模式",
			"与医生沟通您的担忧",
			"记住：您不是一个人在战斗",
		},
	},
	domain.SentimentNeutral: {
		Encouragement: "继续坚持，您正在做正确的事情。",
		NextSteps:     []string{},
	},
}

var feedbackTemplates = []string{
	"太棒了！%s，这是您坚持努力的成果！",
	"恭喜您！%s，继续保持！",
	"做得很好！%s，您的进步值得肯定！",
}

// GoalResult confirms a user goal.
type GoalResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Reminder string `json:"reminder"`
}

// SupportService produces empathy, encouragement and next steps.
type SupportService struct {
	picker PhrasePicker
}

// NewSupportService uses a random picker when picker is nil.
func NewSupportService(picker PhrasePicker) *SupportService {
	if picker == nil {
		picker = randomPicker{}
	}
	return &SupportService{picker: picker}
}

// ProvideSupport labels text with the broad support keyword table and
// returns the matching reply.
func (s *SupportService) ProvideSupport(text string) SupportResult {
	sentiment := intent.SentimentWith(intent.SupportSentiment, text)
	reply, ok := supportReplies[sentiment]
	if !ok {
		reply = supportReplies[domain.SentimentNeutral]
	}
	reply.Sentiment = sentiment
	reply.NextSteps = append([]string{}, reply.NextSteps...)
	return reply
}

// Empathy returns only the opening line for text, empty when none applies.
func (s *SupportService) Empathy(text string) string {
	return s.ProvideSupport(text).Empathy
}

// PositiveFeedback praises an achievement in one of several phrasings.
func (s *SupportService) PositiveFeedback(achievement string) string {
	i := s.picker.Pick(len(feedbackTemplates))
	return fmt.Sprintf(feedbackTemplates[i], achievement)
}

// SetGoal acknowledges a goal the user wants to work towards.
func (s *SupportService) SetGoal(description string) GoalResult {
	description = strings.TrimSpace(description)
	if description == "" {
		return GoalResult{Success: false, Message: "请描述您想达成的目标。"}
	}
	return GoalResult{
		Success:  true,
		Message:  "已为您设定目标：" + description,
		Reminder: "我会定期提醒您关注目标进展。",
	}
}
