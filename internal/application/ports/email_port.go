package ports

import "context"

// EmailSender define el puerto de salida para el correo transaccional.
// Cualquier adaptador (SMTP, log, mock) debe implementar esta interfaz. Los errores
// se devuelven tal cual; los casos de uso los clasifican como MailDeliveryFailed.
// No hay reintentos.
type EmailSender interface {
	SendInvite(ctx context.Context, to, companyName, inviteURL string) error
	SendPasswordReset(ctx context.Context, to, resetURL, firstName string) error
}
