package mail

import (
	"context"

	"petpal/internal/platform/logger"
	mailport "petpal/internal/ports/mail"
)

// LogSender no envía nada: deja el mensaje en el log (MAIL_TRANSPORT=log).
type LogSender struct {
	log logger.Logger
}

func NewLogSender(log logger.Logger) *LogSender {
	if log == nil {
		log = logger.NewNop()
	}
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, msg mailport.Message) error {
	if err := validate(msg); err != nil {
		return err
	}
	s.log.Info("mail not sent (log transport)", map[string]any{
		"to":      msg.To,
		"subject": msg.Subject,
		"html":    msg.HTML,
	})
	return nil
}
