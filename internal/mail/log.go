package mail

import (
	"context"

	"github.com/novostroy/novostroy-api/internal/logger"
)

// LogSender writes messages to the application log instead of delivering them.
type LogSender struct {
	log *logger.Logger
}

func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := validateAddress(msg.To); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "mail message",
		"from", msg.From,
		"to", msg.To,
		"subject", msg.Subject,
		"html", msg.HTML,
	)
	return nil
}
