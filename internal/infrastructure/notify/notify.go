// Package notify delivers alert messages to operators.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ketracker/backend/internal/domain"
)

// LogNotifier writes every message to the log. Used when no chat is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, text string) error {
	n.logger.InfoContext(ctx, "notification", "text", text)
	return nil
}

// Multi fans a message out to several notifiers. Every notifier is tried; the
// failures are joined.
type Multi []domain.Notifier

func (m Multi) Notify(ctx context.Context, text string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
