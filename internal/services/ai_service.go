package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	apperrors "github.com/Caooin/DigiGlucose-Insight/internal/errors"
	"github.com/google/generative-ai-go/genai"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"
)

const (
	geminiModel = "gemini-1.5-flash"
	openaiModel = openai.GPT4oMini
)

var errNoProvider = errors.New("no language model provider configured")

// AIService talks to Gemini first and falls back to OpenAI.
type AIService struct {
	geminiClient *genai.Client
	openaiClient *openai.Client
	logger       *slog.Logger
}

// MealEstimate is a model's guess at a meal's carbohydrate load.
type MealEstimate struct {
	Carbs      float64 `json:"carbs"`
	GI         float64 `json:"gi"`
	Confidence string  `json:"confidence"`
}

// NewAIService creates clients for every provider with a key.
func NewAIService(ctx context.Context, geminiAPIKey, openaiAPIKey string, logger *slog.Logger) (*AIService, error) {
	var geminiClient *genai.Client
	if geminiAPIKey != "" {
		c, err := genai.NewClient(ctx, option.WithAPIKey(geminiAPIKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		geminiClient = c
	}

	var openaiClient *openai.Client
	if openaiAPIKey != "" {
		openaiClient = openai.NewClient(openaiAPIKey)
	}

	return NewAIServiceWithClients(geminiClient, openaiClient, logger), nil
}

// NewAIServiceWithClients wires prepared clients. Either may be nil.
func NewAIServiceWithClients(geminiClient *genai.Client, openaiClient *openai.Client, logger *slog.Logger) *AIService {
	return &AIService{
		geminiClient: geminiClient,
		openaiClient: openaiClient,
		logger:       logger,
	}
}

// Close releases the Gemini client.
func (s *AIService) Close() error {
	if s.geminiClient != nil {
		return s.geminiClient.Close()
	}
	return nil
}

const smoothPrompt = `你是一名糖尿病管理助手的文字编辑。请把下面的回复改写得更自然、更连贯。

要求：
- 保留所有数值、单位、建议和警示内容，不得增删医学信息
- 保留【】标题和列表结构
- 使用简体中文
- 只输出改写后的回复，不要任何解释

回复：
%s`

// Smooth rewrites an assembled reply. It implements domain.ReplySmoother.
func (s *AIService) Smooth(ctx context.Context, reply string) (string, error) {
	out, err := s.complete(ctx, fmt.Sprintf(smoothPrompt, reply))
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", apperrors.NewExternalAPIError(errors.New("empty completion"), "llm")
	}
	return out, nil
}

const mealPrompt = `你是一名营养师。请估算下面这餐的总碳水化合物（克）和整体GI值。

餐食：%s

只输出一个JSON对象，不要任何其他文字：
{"carbs": 45.0, "gi": 65.0, "confidence": "low|medium|high"}`

// EstimateMeal asks the model for a carbohydrate and GI estimate.
func (s *AIService) EstimateMeal(ctx context.Context, description string) (*MealEstimate, error) {
	out, err := s.complete(ctx, fmt.Sprintf(mealPrompt, description))
	if err != nil {
		return nil, err
	}

	jsonStr := extractJSON(out)
	if jsonStr == "" {
		return nil, fmt.Errorf("no valid JSON found in response")
	}
	var est MealEstimate
	if err := json.Unmarshal([]byte(jsonStr), &est); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &est, nil
}

// complete tries each configured provider in order.
func (s *AIService) complete(ctx context.Context, prompt string) (string, error) {
	if s.geminiClient == nil && s.openaiClient == nil {
		return "", apperrors.NewExternalAPIError(errNoProvider, "llm")
	}

	if s.geminiClient != nil {
		out, err := s.completeWithGemini(ctx, prompt)
		if err == nil {
			return out, nil
		}
		if s.openaiClient == nil {
			return "", apperrors.NewExternalAPIError(err, "gemini")
		}
		s.logger.WarnContext(ctx, "Gemini request failed, falling back to OpenAI", "error", err)
	}

	out, err := s.completeWithOpenAI(ctx, prompt)
	if err != nil {
		return "", apperrors.NewExternalAPIError(err, "openai")
	}
	return out, nil
}

func (s *AIService) completeWithGemini(ctx context.Context, prompt string) (string, error) {
	model := s.geminiClient.GenerativeModel(geminiModel)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty Gemini response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}

func (s *AIService) completeWithOpenAI(ctx context.Context, prompt string) (string, error) {
	resp, err := s.openaiClient.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: openaiModel,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty OpenAI response")
	}
	return resp.Choices[0].Message.Content, nil
}

// extractJSON attempts to extract a valid JSON object from the given string.
// It handles cases where the JSON is wrapped in code blocks (```json ... ```) or other text.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}
	end := strings.LastIndex(s, "}")
	if end == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}
