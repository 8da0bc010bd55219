package notifier

import (
	"context"
	"log/slog"
	"strings"

	"github.com/amishk599/upwatch/internal/extractor"
	"github.com/amishk599/upwatch/internal/formatter"
	"github.com/amishk599/upwatch/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes rendered alerts to the given logger instead of a chat.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each alert via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the message with its recipient.
// Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(_ context.Context, chatID int64, text string) error {
	n.logger.Info("new job", "chat_id", chatID, "message", strings.TrimSpace(text))
	return nil
}

// SendTestMessage sends a sample job alert to chatID to verify the integration works.
func SendTestMessage(ctx context.Context, n model.Notifier, chatID int64) error {
	job := model.Job{
		Link:        extractor.DefaultBaseURL + "/nx/search/jobs/",
		Title:       "Test Notification: Integration Verified",
		Description: "If you can read this, upwatch can reach you.",
		Features: model.JobFeatures{
			HourlyRate:      "$20.00-$35.00",
			ExperienceLevel: "Expert",
		},
	}
	return n.Notify(ctx, chatID, formatter.FormatNotification(job, "upwatch test"))
}
