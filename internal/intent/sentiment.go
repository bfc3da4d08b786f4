package intent

import (
	"strings"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
)

// SentimentRule labels text containing any of its keywords.
type SentimentRule struct {
	Sentiment domain.Sentiment
	Keywords  []string
}

// TurnSentiment is the table used to label every conversation turn.
// Anxious beats negative beats positive.
var TurnSentiment = []SentimentRule{
	{domain.SentimentAnxious, []string{"担心", "害怕", "焦虑", "紧张"}},
	{domain.SentimentNegative, []string{"沮丧", "控制不好", "又高了", "失败", "失望"}},
	{domain.SentimentPositive, []string{"控制得很好", "达标", "开心", "顺利", "进步"}},
}

// SupportSentiment is the broader table the emotional support component
// uses to choose its wording.
var SupportSentiment = []SentimentRule{
	{domain.SentimentAnxious, []string{"担心", "害怕", "焦虑", "紧张", "不安", "恐惧"}},
	{domain.SentimentNegative, []string{
		"沮丧", "控制不好", "又高了", "失败", "担心", "焦虑", "失望",
		"没效果", "没用", "放弃", "太难了",
	}},
	{domain.SentimentPositive, []string{
		"控制得很好", "达标", "开心", "顺利", "进步", "改善", "好多了",
		"成功", "坚持", "努力", "加油",
	}},
}

// DetectSentiment labels a turn with TurnSentiment.
func DetectSentiment(text string) domain.Sentiment {
	return SentimentWith(TurnSentiment, text)
}

// SentimentWith returns the first rule that matches, or neutral.
func SentimentWith(rules []SentimentRule, text string) domain.Sentiment {
	lower := strings.ToLower(text)
	for _, r := range rules {
		if containsAny(lower, r.Keywords...) {
			return r.Sentiment
		}
	}
	return domain.SentimentNeutral
}
