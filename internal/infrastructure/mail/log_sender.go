package mail

import (
	"context"

	"github.com/jhoicas/access-control-api/internal/application/ports"
	"github.com/jhoicas/access-control-api/pkg/logger"
)

var _ ports.EmailSender = (*LogSender)(nil)

// LogSender no envía nada: registra destinatario y enlace. Para desarrollo (MAIL_DRIVER=log).
type LogSender struct {
	log *logger.Logger
}

// NewLogSender construye el emisor de log.
func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{log: log}
}

// SendInvite registra la invitación.
func (s *LogSender) SendInvite(_ context.Context, to, companyName, inviteURL string) error {
	s.log.Info().Str("to", to).Str("company", companyName).Str("url", inviteURL).Msg("mail: invitación")
	return nil
}

// SendPasswordReset registra el restablecimiento.
func (s *LogSender) SendPasswordReset(_ context.Context, to, resetURL, firstName string) error {
	s.log.Info().Str("to", to).Str("first_name", firstName).Str("url", resetURL).Msg("mail: restablecimiento")
	return nil
}
