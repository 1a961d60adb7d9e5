package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hembi12/whatbot/internal/catalog"
	"github.com/hembi12/whatbot/internal/config"
	"github.com/hembi12/whatbot/internal/services"
	"github.com/hembi12/whatbot/internal/storage"
)

type sentMessage struct {
	to   string
	body string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (s *fakeSender) SendWhatsAppMessage(to, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMessage{to: to, body: message})
	return s.err
}

func (s *fakeSender) messages() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMessage(nil), s.sent...)
}

type testEnv struct {
	app        *fiber.App
	sessions   *services.SessionManager
	store      *storage.MemoryStore
	sender     *fakeSender
	quotations *services.QuotationService
}

func newTestEnv(t *testing.T, production bool) *testEnv {
	t.Helper()

	cat, err := catalog.Default()
	require.NoError(t, err)

	env := &testEnv{
		sessions: services.NewSessionManager(),
		store:    storage.NewMemoryStore(),
		sender:   &fakeSender{},
	}

	company := config.CompanyConfig{Name: "Martil.dev", Website: "www.martil.dev", Social: "martildev", ContactEmail: "hola@martil.dev"}
	env.quotations = services.NewQuotationService(env.store, cat, nil, nil)
	conversation := services.NewConversationService(env.sessions, cat, services.NewReplyBuilder(cat, company), env.quotations, nil)
	email := services.NewEmailService(config.EmailConfig{}, company)

	whatsapp := NewWhatsAppHandler(conversation, env.sender, production)
	admin := NewAdminHandler(env.sessions, env.quotations, email)
	health := NewHealthHandler("test", env.store, env.sessions, false, false)

	env.app = fiber.New(fiber.Config{UnescapePath: true})
	env.app.Get("/health", health.Check)
	env.app.Get("/webhook", whatsapp.HandleVerify)
	env.app.Post("/webhook", whatsapp.HandleWebhook)
	env.app.Post("/test/whatsapp", whatsapp.HandleTestWebhook)
	env.app.Get("/admin/sessions", admin.ListSessions)
	env.app.Get("/admin/sessions/stats", admin.SessionStats)
	env.app.Get("/admin/sessions/:identity", admin.GetSession)
	env.app.Delete("/admin/sessions/:identity", admin.DeleteSession)
	env.app.Get("/admin/quotations", admin.ListQuotations)
	env.app.Get("/admin/quotations/:id", admin.GetQuotation)
	env.app.Patch("/admin/quotations/:id/status", admin.UpdateQuotationStatus)
	env.app.Get("/admin/stats", admin.Stats)
	env.app.Post("/admin/test-email", admin.TestEmail)

	return env
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := e.app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (e *testEnv) webhook(t *testing.T, from, body string) (*http.Response, string) {
	t.Helper()
	form := url.Values{}
	if from != "" {
		form.Set("From", from)
	}
	if body != "" {
		form.Set("Body", body)
	}
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(t, req)
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode(t *testing.T, body string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	return out
}

func TestWebhookRepliesThroughSender(t *testing.T) {
	env := newTestEnv(t, false)

	resp, body := env.webhook(t, "whatsapp:+5215512345678", "hola")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", body)

	sent := env.sender.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "whatsapp:+5215512345678", sent[0].to)
	assert.Contains(t, sent[0].body, "¡Hola! 👋")

	env.webhook(t, "whatsapp:+5215512345678", "cotizar")
	info, ok := env.sessions.Info("whatsapp:+5215512345678")
	require.True(t, ok)
	assert.Equal(t, services.StepMainMenu, info.Step)
}

func TestWebhookRejectsMissingFields(t *testing.T) {
	env := newTestEnv(t, false)

	resp, body := env.webhook(t, "", "hola")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Datos inválidos", body)

	resp, _ = env.webhook(t, "whatsapp:+1", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Empty(t, env.sender.messages())
	assert.Equal(t, 0, env.sessions.Count())
}

func TestWebhookSendFailure(t *testing.T) {
	t.Run("development", func(t *testing.T) {
		env := newTestEnv(t, false)
		env.sender.err = errors.New("twilio down")

		resp, _ := env.webhook(t, "whatsapp:+1", "hola")
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Len(t, env.sender.messages(), 1)
	})

	t.Run("production apologises", func(t *testing.T) {
		env := newTestEnv(t, true)
		env.sender.err = errors.New("twilio down")

		resp, _ := env.webhook(t, "whatsapp:+1", "hola")
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

		sent := env.sender.messages()
		require.Len(t, sent, 2)
		assert.Equal(t, apologyMessage, sent[1].body)
	})
}

func TestWebhookVerify(t *testing.T) {
	env := newTestEnv(t, false)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/webhook", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "funcionando correctamente")
}

func TestTestWebhook(t *testing.T) {
	env := newTestEnv(t, false)

	resp, body := env.do(t, jsonRequest(http.MethodPost, "/test/whatsapp", `{"from":"tester","message":"precios"}`))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode(t, body)
	assert.Equal(t, true, out["success"])
	assert.Contains(t, out["response"], "💰 LISTA DE PRECIOS:")
	assert.Empty(t, env.sender.messages(), "test webhook never sends")

	resp, _ = env.do(t, jsonRequest(http.MethodPost, "/test/whatsapp", `{"from":"tester"}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, false)
	env.sessions.GetOrCreate("a")

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode(t, body)
	assert.Equal(t, "OK", out["status"])
	assert.Equal(t, "ok", out["storage"])
	assert.Equal(t, float64(1), out["active_sessions"])
	assert.Equal(t, false, out["twilio"])
}
