package services

import (
	"context"
	"fmt"
	"log"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/hembi12/whatbot/internal/config"
	"github.com/hembi12/whatbot/internal/models"
)

// sendMailFunc matches smtp.SendMail
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailService sends quotation emails over SMTP
type EmailService struct {
	cfg     config.EmailConfig
	company config.CompanyConfig
	send    sendMailFunc
	now     func() time.Time
}

// NewEmailService creates an email service
func NewEmailService(cfg config.EmailConfig, company config.CompanyConfig) *EmailService {
	return &EmailService{
		cfg:     cfg,
		company: company,
		send:    smtp.SendMail,
		now:     time.Now,
	}
}

// Configured reports whether an SMTP server and sender are set
func (e *EmailService) Configured() bool {
	return e.cfg.SMTPHost != "" && e.cfg.From != ""
}

// Notify sends the client confirmation and, when a team address is set, the team alert.
// Each failure is recorded in the result; nothing is returned as an error.
func (e *EmailService) Notify(ctx context.Context, q *models.Quotation) NotificationResult {
	result := NotificationResult{QuotationID: q.ID}

	if err := ctx.Err(); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("client: %v", err))
		return result
	}

	clientSubject := fmt.Sprintf("✅ Cotización Recibida #%d - %s", q.ID, e.company.Name)
	if err := e.sendEmail(q.Email, clientSubject, e.clientBody(q)); err != nil {
		log.Printf("❌ Failed to send confirmation for quotation #%d: %v", q.ID, err)
		result.Errors = append(result.Errors, fmt.Sprintf("client: %v", err))
	} else {
		result.ClientSent = true
	}

	if e.cfg.TeamTo == "" {
		log.Printf("⚠️ EMAIL_TO_TEAM not set, skipping team notification for quotation #%d", q.ID)
		return result
	}

	if err := ctx.Err(); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("team: %v", err))
		return result
	}

	teamSubject := fmt.Sprintf("🚨 Nueva Cotización #%d - %s", q.ID, q.ServiceName)
	if err := e.sendEmail(e.cfg.TeamTo, teamSubject, e.teamBody(q)); err != nil {
		log.Printf("❌ Failed to send team notification for quotation #%d: %v", q.ID, err)
		result.Errors = append(result.Errors, fmt.Sprintf("team: %v", err))
	} else {
		result.TeamSent = true
	}

	return result
}

// SendTestEmail sends a short message to check SMTP settings
func (e *EmailService) SendTestEmail(to string) error {
	if strings.TrimSpace(to) == "" {
		to = e.cfg.TeamTo
	}
	if to == "" {
		return fmt.Errorf("no recipient for test email")
	}

	body := fmt.Sprintf("Este es un email de prueba enviado por el bot de cotizaciones de %s.\n\nFecha: %s\n",
		e.company.Name, e.now().Format("02/01/2006 15:04"))
	return e.sendEmail(to, "🧪 Email de prueba - "+e.company.Name, body)
}

func (e *EmailService) sendEmail(to, subject, body string) error {
	if !e.Configured() {
		return fmt.Errorf("email not configured")
	}
	if !IsValidEmail(to) {
		return fmt.Errorf("invalid recipient %q", to)
	}

	addr := net.JoinHostPort(e.cfg.SMTPHost, strconv.Itoa(e.cfg.SMTPPort))

	var auth smtp.Auth
	if e.cfg.Password != "" {
		auth = smtp.PlainAuth("", e.cfg.From, e.cfg.Password, e.cfg.SMTPHost)
	}

	msg := e.buildMessage(to, subject, body)
	if err := e.send(addr, auth, e.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("send to %s: %w", to, err)
	}

	log.Printf("📧 Email sent to %s: %s", to, subject)
	return nil
}

func (e *EmailService) buildMessage(to, subject, body string) []byte {
	from := e.cfg.From
	if e.company.Name != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", e.company.Name), e.cfg.From)
	}

	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("Date: " + e.now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

func orNotSpecified(v string) string {
	if strings.TrimSpace(v) == "" {
		return notSpecified
	}
	return v
}

func (e *EmailService) clientBody(q *models.Quotation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hola %s,\n\n", orNotSpecified(q.ClientName))
	b.WriteString("¡Gracias por contactarnos! Hemos recibido tu solicitud de cotización y nuestro equipo la está revisando. ")
	b.WriteString("Te contactaremos en menos de 24 horas para darte todos los detalles.\n\n")

	fmt.Fprintf(&b, "📋 Detalles de tu cotización #%d:\n", q.ID)
	fmt.Fprintf(&b, "🛍️ Servicio: %s\n", orNotSpecified(q.ServiceName))
	fmt.Fprintf(&b, "🏢 Empresa: %s\n", orNotSpecified(q.CompanyName))
	fmt.Fprintf(&b, "💰 Precio: %s / %s\n", orNotSpecified(q.PriceUSD), orNotSpecified(q.PriceMXN))
	fmt.Fprintf(&b, "⏱️ Tiempo estimado: %s\n", orNotSpecified(q.EstimatedTime))
	fmt.Fprintf(&b, "📅 Fecha: %s\n\n", e.now().Format("02/01/2006"))

	if q.Description != "" {
		fmt.Fprintf(&b, "📝 Tu proyecto:\n\"%s\"\n\n", q.Description)
	}

	b.WriteString("🚀 Próximos pasos:\n")
	b.WriteString("1. Nuestro equipo revisará tu solicitud\n")
	b.WriteString("2. Te contactaremos en menos de 24 horas\n")
	b.WriteString("3. Coordinaremos una llamada si es necesario\n")
	b.WriteString("4. Te enviaremos la propuesta final\n\n")

	b.WriteString("¿Tienes preguntas?\n")
	fmt.Fprintf(&b, "📧 Email: %s\n", e.company.ContactEmail)
	b.WriteString("📱 WhatsApp: Responde a nuestro chat\n")
	fmt.Fprintf(&b, "🌐 Web: %s\n\n", e.company.Website)

	fmt.Fprintf(&b, "Gracias por confiar en %s para tu proyecto web\n", e.company.Name)
	return b.String()
}

func (e *EmailService) teamBody(q *models.Quotation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚨 Nueva cotización #%d - %s\n\n", q.ID, e.now().Format("02/01/2006"))
	b.WriteString("⏰ Acción requerida: Contactar al cliente en menos de 24 horas\n\n")

	b.WriteString("👤 Información del cliente:\n")
	fmt.Fprintf(&b, "Nombre: %s\n", orNotSpecified(q.ClientName))
	fmt.Fprintf(&b, "Empresa: %s\n", orNotSpecified(q.CompanyName))
	fmt.Fprintf(&b, "Email: %s\n", orNotSpecified(q.Email))
	fmt.Fprintf(&b, "Teléfono: %s\n", orNotSpecified(q.Phone))
	fmt.Fprintf(&b, "WhatsApp: %s\n\n", orNotSpecified(strings.TrimPrefix(q.PhoneNumber, whatsAppPrefix)))

	b.WriteString("🛍️ Servicio solicitado:\n")
	fmt.Fprintf(&b, "Servicio: %s\n", orNotSpecified(q.ServiceName))
	fmt.Fprintf(&b, "Precio: %s / %s\n", orNotSpecified(q.PriceUSD), orNotSpecified(q.PriceMXN))
	fmt.Fprintf(&b, "Tiempo: %s\n\n", orNotSpecified(q.EstimatedTime))

	if q.Description != "" {
		fmt.Fprintf(&b, "📝 Descripción del proyecto:\n\"%s\"\n", q.Description)
	}
	return b.String()
}
