package notify

import (
	"context"
	"log/slog"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
)

// LogNotifier only records critical events in the log. It is used when
// no NATS server is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that writes critical events to logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyCritical(_ context.Context, event *domain.AnalysisEvent) error {
	n.logger.Warn("critical glucose event",
		"user_id", event.UserID,
		"event_id", event.ID,
		"conclusion", event.Conclusion)
	return nil
}
