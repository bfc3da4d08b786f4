package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
	"github.com/Caooin/DigiGlucose-Insight/internal/logger"
)

type message struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	sent []message
	err  error
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, message{subject, data})
	return nil
}

func criticalEvent() *domain.AnalysisEvent {
	reading := uint(11)
	return &domain.AnalysisEvent{
		ID:               3,
		UserID:           7,
		GlucoseReadingID: &reading,
		RiskLevel:        domain.RiskCritical,
		Conclusion:       "血糖值3.5 mmol/L，低于安全范围",
		Reasoning:        "低于3.9 mmol/L",
		Suggestions:      domain.JSONList([]string{"立即补充15g快速碳水"}),
		Timestamp:        time.Date(2025, 6, 18, 15, 30, 0, 0, time.UTC),
	}
}

func TestNATSNotifier_Publishes(t *testing.T) {
	pub := &fakePublisher{}
	n := NewNotifier(pub, "", logger.Discard())

	if err := n.NotifyCritical(context.Background(), criticalEvent()); err != nil {
		t.Fatalf("NotifyCritical: %v", err)
	}
	if len(pub.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(pub.sent))
	}
	if pub.sent[0].subject != DefaultSubject {
		t.Errorf("subject = %q", pub.sent[0].subject)
	}

	var alert CriticalAlert
	if err := json.Unmarshal(pub.sent[0].data, &alert); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if alert.EventID != 3 || alert.UserID != 7 || *alert.ReadingID != 11 || alert.RiskLevel != domain.RiskCritical {
		t.Errorf("alert = %+v", alert)
	}
	if len(alert.Suggestions) != 1 || alert.Suggestions[0] != "立即补充15g快速碳水" {
		t.Errorf("suggestions = %v", alert.Suggestions)
	}
}

func TestNATSNotifier_Errors(t *testing.T) {
	pub := &fakePublisher{err: errors.New("no responders")}
	n := NewNotifier(pub, "custom.subject", logger.Discard())
	if err := n.NotifyCritical(context.Background(), criticalEvent()); err == nil {
		t.Error("publish failure should surface")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ok := &fakePublisher{}
	if err := NewNotifier(ok, "", logger.Discard()).NotifyCritical(ctx, criticalEvent()); err == nil || len(ok.sent) != 0 {
		t.Errorf("cancelled context should not publish: %v", err)
	}
}

func TestLogNotifier(t *testing.T) {
	if err := NewLogNotifier(logger.Discard()).NotifyCritical(context.Background(), criticalEvent()); err != nil {
		t.Errorf("NotifyCritical: %v", err)
	}
}
