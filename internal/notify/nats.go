package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
	"github.com/nats-io/nats.go"
)

// DefaultSubject is used when no alert subject is configured.
const DefaultSubject = "glucose.alert.critical"

// CriticalAlert is the payload published for every critical analysis.
type CriticalAlert struct {
	EventID     uint             `json:"event_id"`
	UserID      uint             `json:"user_id"`
	ReadingID   *uint            `json:"reading_id,omitempty"`
	RiskLevel   domain.RiskLevel `json:"risk_level"`
	Conclusion  string           `json:"conclusion"`
	Reasoning   string           `json:"reasoning"`
	Suggestions []string         `json:"suggestions"`
	Timestamp   time.Time        `json:"timestamp"`
}

// NewCriticalAlert flattens an analysis event into the wire payload.
func NewCriticalAlert(event *domain.AnalysisEvent) (CriticalAlert, error) {
	suggestions, err := domain.DecodeList(event.Suggestions)
	if err != nil {
		return CriticalAlert{}, fmt.Errorf("decode suggestions: %w", err)
	}
	return CriticalAlert{
		EventID:     event.ID,
		UserID:      event.UserID,
		ReadingID:   event.GlucoseReadingID,
		RiskLevel:   event.RiskLevel,
		Conclusion:  event.Conclusion,
		Reasoning:   event.Reasoning,
		Suggestions: suggestions,
		Timestamp:   event.Timestamp,
	}, nil
}

// Publisher is the slice of *nats.Conn the notifier needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes critical alerts to a NATS subject.
type NATSNotifier struct {
	pub     Publisher
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// NewNATSNotifier connects to url. The connection retries in the
// background, so a server that is down at startup does not fail boot.
func NewNATSNotifier(url, token, subject string, logger *slog.Logger) (*NATSNotifier, error) {
	opts := []nats.Option{
		nats.Name("digiglucose-insight"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	n := NewNotifier(nc, subject, logger)
	n.conn = nc
	return n, nil
}

// NewNotifier wraps an existing publisher.
func NewNotifier(pub Publisher, subject string, logger *slog.Logger) *NATSNotifier {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSNotifier{pub: pub, subject: subject, logger: logger}
}

func (n *NATSNotifier) NotifyCritical(ctx context.Context, event *domain.AnalysisEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	alert, err := NewCriticalAlert(event)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	if err := n.pub.Publish(n.subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", n.subject, err)
	}

	n.logger.Info("critical alert published",
		"subject", n.subject,
		"user_id", event.UserID,
		"event_id", event.ID)
	return nil
}

// Close drains the connection when the notifier owns one.
func (n *NATSNotifier) Close() {
	if n.conn == nil {
		return
	}
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
	}
}
