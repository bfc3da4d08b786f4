package services

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
	"github.com/Caooin/DigiGlucose-Insight/internal/risk"
	"gopkg.in/yaml.v3"
)

//go:embed knowledge.yaml
var knowledgeYAML []byte

const fallbackAnswer = "这个问题我还在学习中。关于血糖管理，建议关注：低GI饮食、控制总能量、规律运动、定期监测。如有具体问题，可以详细描述。"

// LabeledText is one "label：text" line.
type LabeledText struct {
	Label string `yaml:"label"`
	Text  string `yaml:"text"`
}

// TopicDetail is either a single line or a bulleted list under a title.
type TopicDetail struct {
	Title string        `yaml:"title"`
	Text  string        `yaml:"text"`
	Items []LabeledText `yaml:"items"`
}

// Topic is one knowledge base entry.
type Topic struct {
	Key            string                    `yaml:"key"`
	Concept        string                    `yaml:"concept"`
	Context        domain.MeasurementContext `yaml:"context"`
	Explanation    string                    `yaml:"explanation"`
	Classification []LabeledText             `yaml:"classification"`
	Examples       []LabeledText             `yaml:"examples"`
	Details        []TopicDetail             `yaml:"details"`
}

// KnowledgeBase holds topics in match order.
type KnowledgeBase struct {
	Topics []Topic `yaml:"topics"`
}

// LoadKnowledgeBase parses a YAML knowledge base.
func LoadKnowledgeBase(data []byte) (*KnowledgeBase, error) {
	var kb KnowledgeBase
	if err := yaml.Unmarshal(data, &kb); err != nil {
		return nil, fmt.Errorf("failed to parse knowledge base: %w", err)
	}
	for i, t := range kb.Topics {
		if t.Key == "" || t.Concept == "" {
			return nil, fmt.Errorf("knowledge base topic %d: key and concept are required", i)
		}
	}
	return &kb, nil
}

// Match returns the first topic whose key occurs in the question.
func (kb *KnowledgeBase) Match(question string) (*Topic, bool) {
	lower := strings.ToLower(question)
	for i := range kb.Topics {
		key := strings.ToLower(kb.Topics[i].Key)
		if strings.Contains(lower, key) || strings.Contains(lower, strings.ReplaceAll(key, "值", "")) {
			return &kb.Topics[i], true
		}
	}
	return nil, false
}

// Render formats the topic as a chat answer.
func (t *Topic) Render() string {
	parts := []string{"【" + t.Concept + "】", t.Explanation}
	if len(t.Classification) > 0 {
		parts = append(parts, "\n分类标准：")
		for _, c := range t.Classification {
			parts = append(parts, fmt.Sprintf("  • %s：%s", c.Label, c.Text))
		}
	}
	if len(t.Examples) > 0 {
		parts = append(parts, "\n常见食物示例：")
		for _, e := range t.Examples {
			parts = append(parts, fmt.Sprintf("  • %s：%s", e.Label, e.Text))
		}
	}
	for _, d := range t.Details {
		if len(d.Items) > 0 {
			parts = append(parts, "\n"+d.Title+"：")
			for _, item := range d.Items {
				parts = append(parts, fmt.Sprintf("  • %s：%s", item.Label, item.Text))
			}
			continue
		}
		parts = append(parts, "\n"+d.Title+"："+d.Text)
	}
	return strings.Join(parts, "\n")
}

// EducationAnswer is the reply to a knowledge question.
type EducationAnswer struct {
	Topic        string `json:"topic,omitempty"`
	Answer       string `json:"answer"`
	RelatedInfo  string `json:"related_info"`
	Personalized string `json:"personalized"`
}

// EducationService answers questions from the embedded knowledge base.
type EducationService struct {
	kb       *KnowledgeBase
	users    domain.ProfileStore
	readings domain.ReadingStore
	now      func() time.Time
	logger   *slog.Logger
}

// NewEducationService loads the embedded knowledge base.
func NewEducationService(users domain.ProfileStore, readings domain.ReadingStore, logger *slog.Logger) (*EducationService, error) {
	kb, err := LoadKnowledgeBase(knowledgeYAML)
	if err != nil {
		return nil, err
	}
	return &EducationService{
		kb:       kb,
		users:    users,
		readings: readings,
		now:      time.Now,
		logger:   logger,
	}, nil
}

func (s *EducationService) WithClock(now func() time.Time) *EducationService {
	s.now = now
	return s
}

// AnswerQuestion matches the question against the knowledge base. A
// non-nil userID adds a line about the user's own targets and recent
// average for context-specific topics.
func (s *EducationService) AnswerQuestion(ctx context.Context, question string, userID *uint) EducationAnswer {
	topic, ok := s.kb.Match(question)
	if !ok {
		return EducationAnswer{Answer: fallbackAnswer}
	}

	answer := EducationAnswer{
		Topic:       topic.Key,
		Answer:      topic.Render(),
		RelatedInfo: fmt.Sprintf("更多关于%s的信息，可以继续提问。", topic.Concept),
	}
	if userID != nil && topic.Context != "" {
		answer.Personalized = s.personalize(ctx, *userID, topic.Context)
	}
	return answer
}

func (s *EducationService) personalize(ctx context.Context, userID uint, mctx domain.MeasurementContext) string {
	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		s.logger.DebugContext(ctx, "No profile for personalised answer", "user_id", userID, "error", err)
		return ""
	}

	target := risk.TargetRange(profile, mctx)
	var line, label string
	switch mctx {
	case domain.ContextFasting:
		label = "空腹"
		line = fmt.Sprintf("您当前的空腹目标为%.1f-%.1f mmol/L", target.Min, target.Max)
	case domain.ContextPostMeal:
		label = "餐后"
		line = fmt.Sprintf("您当前的餐后目标为≤%.1f mmol/L", target.Max)
	default:
		return ""
	}

	readings, err := s.readings.ReadingsSince(ctx, userID, s.now().AddDate(0, 0, -7), mctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to load readings for personalised answer", "user_id", userID, "error", err)
		return line + "。"
	}
	if len(readings) == 0 {
		return line + "。"
	}
	var sum float64
	for _, r := range readings {
		sum += r.Value
	}
	return fmt.Sprintf("%s，近7天%s平均值为%.1f mmol/L。", line, label, sum/float64(len(readings)))
}
