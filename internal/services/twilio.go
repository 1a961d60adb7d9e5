package services

import (
	"fmt"
	"log"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/hembi12/whatbot/internal/config"
	"github.com/hembi12/whatbot/internal/metrics"
)

const whatsAppPrefix = "whatsapp:"

// MessageSender delivers outbound WhatsApp text
type MessageSender interface {
	SendWhatsAppMessage(to string, message string) error
}

type TwilioService struct {
	client  *twilio.RestClient
	from    string // Your Twilio WhatsApp number
	metrics *metrics.Recorder
}

// NewTwilioService creates a new Twilio service instance
func NewTwilioService(cfg config.TwilioConfig, recorder *metrics.Recorder) (*TwilioService, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.WhatsAppFrom == "" {
		return nil, fmt.Errorf("missing Twilio credentials")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &TwilioService{
		client:  client,
		from:    WhatsAppAddress(cfg.WhatsAppFrom),
		metrics: recorder,
	}, nil
}

// SendWhatsAppMessage sends a WhatsApp message via Twilio
func (t *TwilioService) SendWhatsAppMessage(to string, message string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(WhatsAppAddress(to))
	params.SetBody(message)

	resp, err := t.client.Api.CreateMessage(params)
	if err == nil && resp.ErrorCode != nil && *resp.ErrorCode != 0 {
		msg := ""
		if resp.ErrorMessage != nil {
			msg = *resp.ErrorMessage
		}
		err = fmt.Errorf("twilio error %d: %s", *resp.ErrorCode, msg)
	}
	t.metrics.ObserveOutbound(err)
	if err != nil {
		log.Printf("❌ Failed to send WhatsApp message to %s: %v", to, err)
		return err
	}

	if resp.Sid != nil {
		log.Printf("✅ WhatsApp message sent! SID: %s", *resp.Sid)
	}
	return nil
}

// WhatsAppAddress adds the whatsapp: channel prefix when it is missing
func WhatsAppAddress(number string) string {
	number = strings.TrimSpace(number)
	if strings.HasPrefix(number, whatsAppPrefix) {
		return number
	}
	return whatsAppPrefix + number
}

// LogSender stands in for Twilio when credentials are absent and only logs replies
type LogSender struct{}

func (LogSender) SendWhatsAppMessage(to string, message string) error {
	log.Printf("📝 [twilio disabled] reply to %s:\n%s", to, message)
	return nil
}
