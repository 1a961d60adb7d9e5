package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/hembi12/whatbot/internal/catalog"
	"github.com/hembi12/whatbot/internal/metrics"
)

// ConversationService drives the quotation questionnaire, one reply per inbound message
type ConversationService struct {
	sessions   *SessionManager
	catalog    *catalog.Catalog
	replies    *ReplyBuilder
	quotations *QuotationService
	metrics    *metrics.Recorder
}

// NewConversationService creates the conversation state machine
func NewConversationService(
	sessions *SessionManager,
	cat *catalog.Catalog,
	replies *ReplyBuilder,
	quotations *QuotationService,
	recorder *metrics.Recorder,
) *ConversationService {
	return &ConversationService{
		sessions:   sessions,
		catalog:    cat,
		replies:    replies,
		quotations: quotations,
		metrics:    recorder,
	}
}

// ProcessMessage advances the sender's session and returns the reply text.
// Only an empty sender or text produces an error (ErrInvalidInput); storage
// and validation failures become replies.
func (c *ConversationService) ProcessMessage(ctx context.Context, from, text string) (string, error) {
	if from == "" || text == "" {
		return "", fmt.Errorf("%w: sender and text are required", ErrInvalidInput)
	}

	session := c.sessions.GetOrCreate(from)
	c.sessions.Touch(from)

	log.Printf("📨 Message from %s (step %s): %s", from, session.Step, text)

	message := normalizeCommand(text)

	if reply, ok := c.interceptCommand(from, message); ok {
		return reply, nil
	}

	c.metrics.IncMessage(string(session.Step))
	return c.handleStep(ctx, session, message, text), nil
}

// handleStep dispatches on the current step. Menu steps match the normalized
// message; data steps receive the raw text.
func (c *ConversationService) handleStep(ctx context.Context, session Session, message, raw string) string {
	identity := session.Identity

	switch session.Step {
	case StepInitial:
		return c.handleInitial(identity, message)
	case StepMainMenu:
		return c.handleMainMenu(identity, message)
	case StepServiceDetails:
		return c.handleServiceDetails(session, message)
	case StepQuoteName:
		return c.collectField(identity, raw, FieldName, MinNameLength, StepQuoteCompany, invalidName, promptCompany)
	case StepQuoteCompany:
		return c.collectField(identity, raw, FieldCompany, MinCompanyLength, StepQuoteEmail, invalidCompany, promptEmail)
	case StepQuoteEmail:
		return c.handleQuoteEmail(identity, raw)
	case StepQuotePhone:
		return c.collectField(identity, raw, FieldPhone, MinPhoneLength, StepQuoteDescription, invalidPhone, promptDescription)
	case StepQuoteDescription:
		return c.handleQuoteDescription(identity, raw)
	case StepQuoteSummary:
		return c.handleQuoteSummary(ctx, session, message)
	case StepQuoteSent:
		return c.handleQuoteSent(identity, message)
	default:
		log.Printf("⚠️ %v for %s, resetting to %s", &UnknownStepError{Step: session.Step}, identity, StepInitial)
		c.sessions.Update(identity, StepUpdate(StepInitial))
		return c.replies.Default()
	}
}

func (c *ConversationService) handleInitial(identity, message string) string {
	switch {
	case strings.Contains(message, "hola"):
		return c.replies.Welcome()
	case message == "cotizar":
		c.sessions.Update(identity, StepUpdate(StepMainMenu))
		return c.replies.MainMenu()
	case strings.Contains(message, "ayuda"):
		return c.replies.Help()
	default:
		return c.replies.Default()
	}
}

func (c *ConversationService) handleMainMenu(identity, message string) string {
	id, ok := parseLeadingInt(message)
	if !ok {
		return c.replies.InvalidMenuOption()
	}

	entry, ok := c.catalog.Lookup(id)
	if !ok {
		return c.replies.InvalidMenuOption()
	}

	c.sessions.Update(identity, StepUpdate(StepServiceDetails).WithService(id))
	return c.replies.ServiceDetails(entry)
}

func (c *ConversationService) handleServiceDetails(session Session, message string) string {
	identity := session.Identity

	switch message {
	case "1":
		c.sessions.Update(identity, StepUpdate(StepQuoteName))
		return promptName
	case "2":
		c.sessions.Update(identity, StepUpdate(StepMainMenu))
		return c.replies.MainMenu()
	case "3":
		entry, ok := c.catalog.Lookup(session.SelectedService)
		if !ok {
			log.Printf("⚠️ %s asked for details of unknown service %d", identity, session.SelectedService)
			c.sessions.Update(identity, StepUpdate(StepMainMenu))
			return c.replies.MainMenu()
		}
		return c.replies.ServiceMoreInfo(entry)
	default:
		return c.replies.InvalidOption("1️⃣, 2️⃣ o 3️⃣", serviceDetailsOptions)
	}
}

// collectField stores a trimmed free-text answer once it is long enough
func (c *ConversationService) collectField(identity, raw, field string, minLength int, next Step, invalid, prompt string) string {
	if !hasMinLength(raw, minLength) {
		return invalid
	}
	c.sessions.Update(identity, StepUpdate(next).WithField(field, strings.TrimSpace(raw)))
	return prompt
}

func (c *ConversationService) handleQuoteEmail(identity, raw string) string {
	if !IsValidEmail(raw) {
		return invalidEmail
	}
	c.sessions.Update(identity, StepUpdate(StepQuotePhone).WithField(FieldEmail, NormalizeEmail(raw)))
	return promptPhone
}

func (c *ConversationService) handleQuoteDescription(identity, raw string) string {
	if !hasMinLength(raw, MinDescriptionLength) {
		return invalidDescription
	}

	session := c.sessions.Update(identity, StepUpdate(StepQuoteSummary).WithField(FieldDescription, strings.TrimSpace(raw)))

	entry, ok := c.catalog.Lookup(session.SelectedService)
	if !ok {
		return c.replies.ServiceNotFound()
	}
	return c.replies.QuoteSummary(session, entry)
}

func (c *ConversationService) handleQuoteSummary(ctx context.Context, session Session, message string) string {
	identity := session.Identity

	switch message {
	case "1":
		quotation, err := c.quotations.Finalize(ctx, identity, session)

		var validationErr *ValidationError
		switch {
		case err == nil:
			c.sessions.Update(identity, StepUpdate(StepQuoteSent))
			return c.replies.QuotationSuccess(quotation.ID, quotation.Email)
		case errors.As(err, &validationErr):
			return c.replies.ValidationFailed(validationErr.Problems)
		default:
			log.Printf("❌ Quotation for %s not saved, resetting session: %v", identity, err)
			c.sessions.Reset(identity)
			c.sessions.Update(identity, StepUpdate(StepInitial))
			return c.replies.QuotationError()
		}
	case "2":
		c.sessions.Update(identity, StepUpdate(StepQuoteName))
		return promptNameRetry
	default:
		return c.replies.InvalidOption("1️⃣ o 2️⃣", summaryOptions)
	}
}

func (c *ConversationService) handleQuoteSent(identity, message string) string {
	switch message {
	case "1":
		c.sessions.Reset(identity)
		c.sessions.Update(identity, StepUpdate(StepMainMenu))
		return newQuotationIntro + c.replies.MainMenu()
	case "2":
		c.sessions.Remove(identity)
		return c.replies.Farewell()
	default:
		return c.replies.InvalidOption("1️⃣ o 2️⃣", quoteSentOptions)
	}
}
