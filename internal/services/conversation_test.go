package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hembi12/whatbot/internal/catalog"
	"github.com/hembi12/whatbot/internal/config"
	"github.com/hembi12/whatbot/internal/models"
	"github.com/hembi12/whatbot/internal/storage"
)

const testIdentity = "whatsapp:+5215512345678"

var testCompany = config.CompanyConfig{
	Name:         "Martil.dev",
	Website:      "www.martil.dev",
	Social:       "martildev",
	ContactEmail: "hola@martil.dev",
}

// failingStore rejects every quotation write
type failingStore struct {
	storage.Store
}

func (failingStore) CreateQuotation(ctx context.Context, q *models.Quotation) (*models.Quotation, error) {
	return nil, errors.New("disk full")
}

// recordingDispatcher remembers dispatched quotations and reports success
type recordingDispatcher struct {
	mu         sync.Mutex
	quotations []*models.Quotation
}

func (d *recordingDispatcher) Dispatch(q *models.Quotation) <-chan NotificationResult {
	d.mu.Lock()
	d.quotations = append(d.quotations, q)
	d.mu.Unlock()

	done := make(chan NotificationResult, 1)
	done <- NotificationResult{QuotationID: q.ID, ClientSent: true}
	close(done)
	return done
}

func (d *recordingDispatcher) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.quotations)
}

type conversationFixture struct {
	conversation *ConversationService
	sessions     *SessionManager
	replies      *ReplyBuilder
	dispatcher   *recordingDispatcher
	catalog      *catalog.Catalog
}

func newConversationFixture(t *testing.T, store storage.Store) *conversationFixture {
	t.Helper()

	cat, err := catalog.Default()
	require.NoError(t, err)

	f := &conversationFixture{
		sessions:   NewSessionManager(),
		replies:    NewReplyBuilder(cat, testCompany),
		dispatcher: &recordingDispatcher{},
		catalog:    cat,
	}
	quotations := NewQuotationService(store, cat, f.dispatcher, nil)
	f.conversation = NewConversationService(f.sessions, cat, f.replies, quotations, nil)
	return f
}

func (f *conversationFixture) send(t *testing.T, text string) string {
	t.Helper()
	reply, err := f.conversation.ProcessMessage(context.Background(), testIdentity, text)
	require.NoError(t, err)
	return reply
}

func (f *conversationFixture) step() Step {
	info, ok := f.sessions.Info(testIdentity)
	if !ok {
		return ""
	}
	return info.Step
}

// fillQuestionnaire walks from initial to quote_summary
func (f *conversationFixture) fillQuestionnaire(t *testing.T) {
	t.Helper()
	f.send(t, "cotizar")
	f.send(t, "1")
	f.send(t, "1")
	f.send(t, "Ana")
	f.send(t, "Acme")
	f.send(t, "ana@acme.com")
	f.send(t, "5551234567")
	f.send(t, "Necesito una tienda en linea")
	require.Equal(t, StepQuoteSummary, f.step())
}

func TestProcessMessageRejectsEmptyInput(t *testing.T) {
	f := newConversationFixture(t, storage.NewMemoryStore())

	_, err := f.conversation.ProcessMessage(context.Background(), "", "hola")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.conversation.ProcessMessage(context.Background(), testIdentity, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Equal(t, 0, f.sessions.Count())
}

func TestInitialStep(t *testing.T) {
	f := newConversationFixture(t, storage.NewMemoryStore())

	assert.Equal(t, f.replies.Welcome(), f.send(t, "Hola, buenas tardes"))
	assert.Equal(t, StepInitial, f.step())

	assert.Equal(t, f.replies.Help(), f.send(t, "necesito AYUDA"))
	assert.Equal(t, f.replies.Default(), f.send(t, "quiero cotizar"), "cotizar must match exactly")
	assert.Equal(t, StepInitial, f.step())

	assert.Equal(t, f.replies.MainMenu(), f.send(t, "  Cotizar "))
	assert.Equal(t, StepMainMenu, f.step())
}

func TestMainMenuSelection(t *testing.T) {
	f := newConversationFixture(t, storage.NewMemoryStore())
	f.send(t, "cotizar")

	for _, bad := range []string{"0", "7", "abc", "-1", ".3", "por favor 2"} {
		reply := f.send(t, bad)
		assert.Contains(t, reply, "Por favor, selecciona una opción válida: (1-6)")
		assert.Contains(t, reply, "¿Qué tipo de sitio web necesitas?")
		assert.Equal(t, StepMainMenu, f.step())
	}

	entry, ok := f.catalog.Lookup(3)
	require.True(t, ok)
	assert.Equal(t, f.replies.ServiceDetails(entry), f.send(t, "3"))

	session := f.sessions.GetOrCreate(testIdentity)
	assert.Equal(t, StepServiceDetails, session.Step)
	assert.Equal(t, 3, session.SelectedService)
}

func TestMainMenuReadsLeadingNumber(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"2 por favor", 2},
		{"3.", 3},
		{"4)", 4},
		{"1abc", 1},
		{"+5", 5},
		{"06", 6},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			f := newConversationFixture(t, storage.NewMemoryStore())
			f.send(t, "cotizar")

			entry, ok := f.catalog.Lookup(tt.want)
			require.True(t, ok)
			assert.Equal(t, f.replies.ServiceDetails(entry), f.send(t, tt.input))

			session := f.sessions.GetOrCreate(testIdentity)
			assert.Equal(t, StepServiceDetails, session.Step)
			assert.Equal(t, tt.want, session.SelectedService)
		})
	}
}

func TestServiceDetailsOptions(t *testing.T) {
	f := newConversationFixture(t, storage.NewMemoryStore())
	f.send(t, "cotizar")
	f.send(t, "2")

	entry, _ := f.catalog.Lookup(2)
	assert.Equal(t, f.replies.ServiceMoreInfo(entry), f.send(t, "3"))
	assert.Equal(t, StepServiceDetails, f.step())

	reply := f.send(t, "9")
	assert.Contains(t, reply, "1️⃣, 2️⃣ o 3️⃣")
	assert.Contains(t, reply, "3️⃣ Más información")

	assert.Equal(t, f.replies.MainMenu(), f.send(t, "2"))
	assert.Equal(t, StepMainMenu, f.step())

	f.send(t, "2")
	assert.Contains(t, f.send(t, "1"), "¿Cuál es tu nombre?")
	assert.Equal(t, StepQuoteName, f.step())
}

func TestServiceDetailsMissingServiceFallsBackToMenu(t *testing.T) {
	f := newConversationFixture(t, storage.NewMemoryStore())
	f.sessions.Update(testIdentity, StepUpdate(StepServiceDetails))

	assert.Equal(t, f.replies.MainMenu(), f.send(t, "3"))
	assert.Equal(t, StepMainMenu, f.step())
}

func TestQuestionnaireValidation(t *testing.T) {
	f := newConversationFixture(t, storage.NewMemoryStore())
	f.send(t, "cotizar")
	f.send(t, "1")
	f.send(t, "1")

	assert.Equal(t, invalidName, f.send(t, " A "))
	assert.Equal(t, StepQuoteName, f.step())
	assert.Equal(t, promptCompany, f.send(t, "  Ana  "))

	assert.Equal(t, invalidCompany, f.send(t, "X"))
	assert.Equal(t, promptEmail, f.send(t, "Acme"))

	assert.Equal(t, invalidEmail, f.send(t, "ana@acme"))
	assert.Equal(t, StepQuoteEmail, f.step())
	assert.Equal(t, promptPhone, f.send(t, " Ana@Acme.COM "))

	assert.Equal(t, invalidPhone, f.send(t, "1234567"))
	assert.Equal(t, promptDescription, f.send(t, "55 5123 4567"))

	assert.Equal(t, invalidDescription, f.send(t, "tienda"))
	summary := f.send(t, "Necesito una tienda en linea")
	assert.Contains(t, summary, "📋 RESUMEN DE TU COTIZACIÓN:")

	session := f.sessions.GetOrCreate(testIdentity)
	assert.Equal(t, map[string]string{
		FieldName:        "Ana",
		FieldCompany:     "Acme",
		FieldEmail:       "ana@acme.com",
		FieldPhone:       "55 5123 4567",
		FieldDescription: "Necesito una tienda en linea",
	}, session.Data)
}

func TestFullQuestionnaireStoresQuotation(t *testing.T) {
	store := storage.NewMemoryStore()
	f := newConversationFixture(t, store)
	f.fillQuestionnaire(t)

	reply := f.send(t, "1")
	assert.Contains(t, reply, "✅ ¡Cotización enviada exitosamente!")
	assert.Contains(t, reply, "#1")
	assert.Contains(t, reply, "ana@acme.com")
	assert.Equal(t, StepQuoteSent, f.step())

	all, err := store.GetAllQuotations(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)

	q := all[0]
	assert.Equal(t, testIdentity, q.PhoneNumber)
	assert.Equal(t, 1, q.ServiceID)
	assert.Equal(t, "Negocios pequeños", q.ServiceName)
	assert.Equal(t, "Ana", q.ClientName)
	assert.Equal(t, "Acme", q.CompanyName)
	assert.Equal(t, "ana@acme.com", q.Email)
	assert.Equal(t, "5551234567", q.Phone)
	assert.Equal(t, "Necesito una tienda en linea", q.Description)
	assert.Equal(t, models.QuotationStatusPending, q.Status)

	assert.Equal(t, 1, f.dispatcher.Count())

	saved := store.Metrics()
	require.Len(t, saved, 1)
	assert.Equal(t, models.MetricQuotationCompleted, saved[0].Action)
	assert.JSONEq(t, `{"service_id":1,"service_name":"Negocios pequeños"}`, saved[0].Data)
}

func TestQuoteSummaryInvalidOptionLeavesSessionUnchanged(t *testing.T) {
	f := newConversationFixture(t, storage.NewMemoryStore())
	f.fillQuestionnaire(t)
	before := f.sessions.GetOrCreate(testIdentity)

	reply := f.send(t, "x")
	assert.Contains(t, reply, "Por favor, selecciona una opción válida")
	assert.Contains(t, reply, "1️⃣ Sí, enviar cotización")
	assert.Contains(t, reply, "2️⃣ Modificar datos")

	after := f.sessions.GetOrCreate(testIdentity)
	assert.Equal(t, StepQuoteSummary, after.Step)
	assert.Equal(t, before.Data, after.Data)
}

func TestQuoteSummaryEditKeepsData(t *testing.T) {
	f := newConversationFixture(t, storage.NewMemoryStore())
	f.fillQuestionnaire(t)

	assert.Equal(t, promptNameRetry, f.send(t, "2"))
	assert.Equal(t, StepQuoteName, f.step())

	session := f.sessions.GetOrCreate(testIdentity)
	assert.Equal(t, "Acme", session.Data[FieldCompany])

	f.send(t, "Beatriz")
	session = f.sessions.GetOrCreate(testIdentity)
	assert.Equal(t, "Beatriz", session.Data[FieldName])
	assert.Equal(t, StepQuoteCompany, session.Step)
}

func TestQuoteSummaryValidationFailure(t *testing.T) {
	store := storage.NewMemoryStore()
	f := newConversationFixture(t, store)

	f.sessions.Update(testIdentity, StepUpdate(StepQuoteSummary).
		WithService(1).
		WithField(FieldName, "Ana").
		WithField(FieldEmail, "no-es-email"))

	reply := f.send(t, "1")
	assert.Contains(t, reply, "❌ Error en los datos:")
	assert.Contains(t, reply, "Email inválido")
	assert.Contains(t, reply, "Teléfono debe tener al menos 8 caracteres")
	assert.Contains(t, reply, "Escribe \"menu\" para empezar de nuevo.")
	assert.Equal(t, StepQuoteSummary, f.step())

	all, err := store.GetAllQuotations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Equal(t, 0, f.dispatcher.Count())
}

func TestStorageFailureResetsSession(t *testing.T) {
	f := newConversationFixture(t, failingStore{Store: storage.NewMemoryStore()})
	f.fillQuestionnaire(t)

	reply := f.send(t, "1")
	assert.Equal(t, f.replies.QuotationError(), reply)
	assert.NotContains(t, reply, "#")

	session := f.sessions.GetOrCreate(testIdentity)
	assert.Equal(t, StepInitial, session.Step)
	assert.Empty(t, session.Data)
	assert.Zero(t, session.SelectedService)
	assert.Equal(t, 0, f.dispatcher.Count())
}

func TestQuoteSentOptions(t *testing.T) {
	f := newConversationFixture(t, storage.NewMemoryStore())
	f.fillQuestionnaire(t)
	f.send(t, "1")

	reply := f.send(t, "3")
	assert.Contains(t, reply, "1️⃣ o 2️⃣")
	assert.Contains(t, reply, quoteSentOptions)

	reply = f.send(t, "1")
	assert.Equal(t, newQuotationIntro+f.replies.MainMenu(), reply)
	session := f.sessions.GetOrCreate(testIdentity)
	assert.Equal(t, StepMainMenu, session.Step)
	assert.Empty(t, session.Data)
	assert.Zero(t, session.SelectedService)
}

func TestQuoteSentFarewellRemovesSession(t *testing.T) {
	f := newConversationFixture(t, storage.NewMemoryStore())
	f.fillQuestionnaire(t)
	f.send(t, "1")

	assert.Equal(t, f.replies.Farewell(), f.send(t, "2"))
	assert.False(t, f.sessions.Has(testIdentity))
}

func TestGlobalCommands(t *testing.T) {
	f := newConversationFixture(t, storage.NewMemoryStore())

	f.send(t, "cotizar")
	f.send(t, "1")
	f.send(t, "1")
	require.Equal(t, StepQuoteName, f.step())

	assert.Equal(t, f.replies.PricesTable(), f.send(t, "PRECIOS"))
	assert.Equal(t, f.replies.ContactInfo(), f.send(t, "contacto"))
	assert.Equal(t, f.replies.PortfolioInfo(), f.send(t, "portafolio"))
	assert.Equal(t, StepQuoteName, f.step(), "informational commands keep the step")

	assert.Equal(t, f.replies.MainMenu(), f.send(t, "inicio"))
	assert.Equal(t, StepMainMenu, f.step())

	f.send(t, "1")
	assert.Equal(t, f.replies.MainMenu(), f.send(t, "Menu"))
	assert.Equal(t, StepMainMenu, f.step())
}

func TestExitCommandDestroysSession(t *testing.T) {
	for _, command := range []string{"salir", "cerrar", "bye", "adios"} {
		t.Run(command, func(t *testing.T) {
			f := newConversationFixture(t, storage.NewMemoryStore())
			f.fillQuestionnaire(t)
			f.send(t, "2")
			f.send(t, "Ana")
			f.send(t, "Acme")
			f.send(t, "ana@acme.com")
			f.send(t, "5551234567")
			require.Equal(t, StepQuoteDescription, f.step())

			assert.Equal(t, f.replies.Exit(), f.send(t, command))
			assert.False(t, f.sessions.Has(testIdentity))

			fresh := f.sessions.GetOrCreate(testIdentity)
			assert.Equal(t, StepInitial, fresh.Step)
			assert.Empty(t, fresh.Data)
		})
	}
}

func TestCommandsMatchExactly(t *testing.T) {
	f := newConversationFixture(t, storage.NewMemoryStore())

	// "salir ya" is not a command and falls through to the initial step
	assert.Equal(t, f.replies.Default(), f.send(t, "salir ya"))
	assert.True(t, f.sessions.Has(testIdentity))
}

func TestUnknownStepResetsToInitial(t *testing.T) {
	f := newConversationFixture(t, storage.NewMemoryStore())
	f.sessions.Update(testIdentity, StepUpdate(Step("quote_budget")))

	assert.Equal(t, f.replies.Default(), f.send(t, "hola"))
	assert.Equal(t, StepInitial, f.step())
}

func TestQuoteDescriptionWithMissingService(t *testing.T) {
	f := newConversationFixture(t, storage.NewMemoryStore())
	f.sessions.Update(testIdentity, StepUpdate(StepQuoteDescription).WithService(99))

	assert.Equal(t, f.replies.ServiceNotFound(), f.send(t, "Necesito una tienda en linea"))
	assert.Equal(t, StepQuoteSummary, f.step())
}
