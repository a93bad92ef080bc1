// Package mail implementa ports.EmailSender: SMTP con gomail y un emisor que solo
// registra en el log.
package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/jhoicas/access-control-api/internal/application/ports"
	"github.com/jhoicas/access-control-api/pkg/config"
)

var _ ports.EmailSender = (*SMTPSender)(nil)

// Dialer abstrae gomail.Dialer para los tests.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender envía los correos transaccionales por SMTP. Cada envío abre su propia
// conexión; no hay reintentos.
type SMTPSender struct {
	dialer    Dialer
	from      string
	inviteTTL time.Duration
}

// NewSMTPSender construye el emisor con la configuración SMTP.
func NewSMTPSender(cfg config.MailConfig, inviteTTL time.Duration) *SMTPSender {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	return NewSMTPSenderWithDialer(d, cfg.From, inviteTTL)
}

// NewSMTPSenderWithDialer permite inyectar el dialer.
func NewSMTPSenderWithDialer(d Dialer, from string, inviteTTL time.Duration) *SMTPSender {
	return &SMTPSender{dialer: d, from: from, inviteTTL: inviteTTL}
}

// SendInvite envía el enlace de invitación a la empresa.
func (s *SMTPSender) SendInvite(ctx context.Context, to, companyName, inviteURL string) error {
	body, err := render(inviteTmpl, inviteData{Company: companyName, URL: inviteURL, TTL: minutes(s.inviteTTL)})
	if err != nil {
		return fmt.Errorf("render invite: %w", err)
	}
	return s.send(ctx, to, "Invitación a "+companyName, body)
}

// SendPasswordReset envía el enlace de restablecimiento de contraseña.
func (s *SMTPSender) SendPasswordReset(ctx context.Context, to, resetURL, firstName string) error {
	body, err := render(resetTmpl, resetData{Name: firstName, URL: resetURL})
	if err != nil {
		return fmt.Errorf("render reset: %w", err)
	}
	return s.send(ctx, to, "Restablecer contraseña", body)
}

// minutes expresa la vigencia en minutos enteros, como mínimo uno.
func minutes(d time.Duration) string {
	n := int(d / time.Minute)
	if n <= 1 {
		return "1 minuto"
	}
	return fmt.Sprintf("%d minutos", n)
}

func (s *SMTPSender) send(ctx context.Context, to, subject, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", html)
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}
