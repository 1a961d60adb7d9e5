package services

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hembi12/whatbot/internal/config"
	"github.com/hembi12/whatbot/internal/models"
)

type sentMail struct {
	addr string
	from string
	to   []string
	msg  string
}

type fakeMailer struct {
	sent    []sentMail
	failFor map[string]error
}

func (m *fakeMailer) send(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	if err := m.failFor[to[0]]; err != nil {
		return err
	}
	m.sent = append(m.sent, sentMail{addr: addr, from: from, to: to, msg: string(msg)})
	return nil
}

func newTestEmailService(teamTo string) (*EmailService, *fakeMailer) {
	mailer := &fakeMailer{failFor: map[string]error{}}
	svc := NewEmailService(config.EmailConfig{
		SMTPHost: "smtp.example.com",
		SMTPPort: 587,
		From:     "bot@martil.dev",
		Password: "secret",
		TeamTo:   teamTo,
	}, testCompany)
	svc.send = mailer.send
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }
	return svc, mailer
}

func testQuotation() *models.Quotation {
	return &models.Quotation{
		ID:            12,
		PhoneNumber:   "whatsapp:+5215512345678",
		ServiceID:     3,
		ServiceName:   "Tiendas en línea",
		ClientName:    "Ana",
		CompanyName:   "Acme",
		Email:         "ana@acme.com",
		Phone:         "5551234567",
		Description:   "Necesito una tienda en linea",
		PriceUSD:      "$99",
		PriceMXN:      "$1,980 MXN",
		EstimatedTime: "7-30 días",
	}
}

func TestNotifySendsClientAndTeam(t *testing.T) {
	svc, mailer := newTestEmailService("equipo@martil.dev")

	result := svc.Notify(context.Background(), testQuotation())
	assert.True(t, result.ClientSent)
	assert.True(t, result.TeamSent)
	assert.Empty(t, result.Errors)
	require.Len(t, mailer.sent, 2)

	client := mailer.sent[0]
	assert.Equal(t, "smtp.example.com:587", client.addr)
	assert.Equal(t, "bot@martil.dev", client.from)
	assert.Equal(t, []string{"ana@acme.com"}, client.to)
	assert.Contains(t, client.msg, "Content-Type: text/plain; charset=UTF-8")
	assert.Contains(t, client.msg, "Hola Ana,")
	assert.Contains(t, client.msg, "$99 / $1,980 MXN")

	team := mailer.sent[1]
	assert.Equal(t, []string{"equipo@martil.dev"}, team.to)
	assert.Contains(t, team.msg, "WhatsApp: +5215512345678")
	assert.Contains(t, team.msg, "Acción requerida")
}

func TestNotifySkipsTeamWithoutAddress(t *testing.T) {
	svc, mailer := newTestEmailService("")

	result := svc.Notify(context.Background(), testQuotation())
	assert.True(t, result.ClientSent)
	assert.False(t, result.TeamSent)
	assert.Empty(t, result.Errors)
	assert.Len(t, mailer.sent, 1)
}

func TestNotifyCollectsFailures(t *testing.T) {
	svc, mailer := newTestEmailService("equipo@martil.dev")
	mailer.failFor["ana@acme.com"] = errors.New("mailbox unavailable")

	result := svc.Notify(context.Background(), testQuotation())
	assert.False(t, result.ClientSent)
	assert.True(t, result.TeamSent, "team alert still goes out")
	require.Len(t, result.Errors, 1)
	assert.True(t, strings.HasPrefix(result.Errors[0], "client:"))
	assert.Error(t, result.Err())
}

func TestNotifyWithoutSMTP(t *testing.T) {
	svc := NewEmailService(config.EmailConfig{TeamTo: "equipo@martil.dev"}, testCompany)
	assert.False(t, svc.Configured())

	result := svc.Notify(context.Background(), testQuotation())
	assert.False(t, result.ClientSent)
	assert.False(t, result.TeamSent)
	assert.Len(t, result.Errors, 2)
}

func TestNotifyCancelledContext(t *testing.T) {
	svc, mailer := newTestEmailService("equipo@martil.dev")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := svc.Notify(ctx, testQuotation())
	assert.False(t, result.ClientSent)
	assert.Empty(t, mailer.sent)
	assert.NotEmpty(t, result.Errors)
}

func TestSendTestEmail(t *testing.T) {
	svc, mailer := newTestEmailService("equipo@martil.dev")

	require.NoError(t, svc.SendTestEmail(""))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, []string{"equipo@martil.dev"}, mailer.sent[0].to)

	require.NoError(t, svc.SendTestEmail("otra@acme.com"))
	assert.Equal(t, []string{"otra@acme.com"}, mailer.sent[1].to)

	assert.Error(t, svc.SendTestEmail("no-es-email"))

	bare, _ := newTestEmailService("")
	assert.Error(t, bare.SendTestEmail(""))
}
