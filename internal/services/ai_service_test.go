package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/Caooin/DigiGlucose-Insight/internal/errors"
	"github.com/Caooin/DigiGlucose-Insight/internal/logger"
	"github.com/sashabaranov/go-openai"
)

// newOpenAIStub serves chat completions that answer with reply.
func newOpenAIStub(t *testing.T, status int, reply string) (*openai.Client, *[]string) {
	t.Helper()
	var prompts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil && len(req.Messages) > 0 {
			prompts = append(prompts, req.Messages[0].Content)
		}

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:     "chatcmpl-test",
			Object: "chat.completion",
			Model:  openaiModel,
			Choices: []openai.ChatCompletionChoice{{
				Index:        0,
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply},
				FinishReason: openai.FinishReasonStop,
			}},
		})
	}))
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	return openai.NewClientWithConfig(cfg), &prompts
}

func TestAIService_Smooth(t *testing.T) {
	client, prompts := newOpenAIStub(t, http.StatusOK, "  您好，已经为您记录了血糖。  ")
	svc := NewAIServiceWithClients(nil, client, logger.Discard())

	got, err := svc.Smooth(context.Background(), "已为您记录血糖值：5.2 mmol/L")
	if err != nil {
		t.Fatalf("Smooth: %v", err)
	}
	if got != "您好，已经为您记录了血糖。" {
		t.Errorf("Smooth = %q", got)
	}
	if len(*prompts) != 1 || !strings.Contains((*prompts)[0], "已为您记录血糖值：5.2 mmol/L") {
		t.Errorf("prompt should embed the reply: %v", *prompts)
	}
}

func TestAIService_Errors(t *testing.T) {
	none := NewAIServiceWithClients(nil, nil, logger.Discard())
	if _, err := none.Smooth(context.Background(), "x"); apperrors.TypeOf(err) != apperrors.ErrorTypeExternal {
		t.Errorf("no provider error = %v", err)
	}

	client, _ := newOpenAIStub(t, http.StatusInternalServerError, "")
	failing := NewAIServiceWithClients(nil, client, logger.Discard())
	if _, err := failing.Smooth(context.Background(), "x"); apperrors.TypeOf(err) != apperrors.ErrorTypeExternal {
		t.Errorf("server error = %v", err)
	}

	empty, _ := newOpenAIStub(t, http.StatusOK, "   ")
	if _, err := NewAIServiceWithClients(nil, empty, logger.Discard()).Smooth(context.Background(), "x"); err == nil {
		t.Error("blank completion should be an error")
	}
}

func TestAIService_EstimateMeal(t *testing.T) {
	client, _ := newOpenAIStub(t, http.StatusOK, "```json\n{\"carbs\": 35.5, \"gi\": 55, \"confidence\": \"medium\"}\n```")
	svc := NewAIServiceWithClients(nil, client, logger.Discard())

	est, err := svc.EstimateMeal(context.Background(), "一份沙拉加鸡胸肉")
	if err != nil {
		t.Fatalf("EstimateMeal: %v", err)
	}
	if est.Carbs != 35.5 || est.GI != 55 || est.Confidence != "medium" {
		t.Errorf("estimate = %+v", est)
	}

	bad, _ := newOpenAIStub(t, http.StatusOK, "I cannot tell")
	if _, err := NewAIServiceWithClients(nil, bad, logger.Discard()).EstimateMeal(context.Background(), "x"); err == nil {
		t.Error("expected error for non-JSON reply")
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"text ```json\n{\"a\":1}\n``` more", `{"a":1}`},
		{"no json", ""},
		{"} backwards {", ""},
	}
	for _, tt := range tests {
		if got := extractJSON(tt.in); got != tt.want {
			t.Errorf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
