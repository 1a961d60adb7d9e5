// Package metrics records bot activity as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the bot's Prometheus collectors. A nil *Recorder is valid and records nothing.
type Recorder struct {
	messagesTotal      *prometheus.CounterVec
	commandsTotal      *prometheus.CounterVec
	quotationsTotal    *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
	sessionsSwept      *prometheus.CounterVec
	outboundTotal      *prometheus.CounterVec
}

// NewRecorder registers the collectors on reg
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		messagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "whatbot_messages_total",
				Help: "Inbound messages processed, by the step they were handled in",
			},
			[]string{"step"},
		),
		commandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "whatbot_commands_total",
				Help: "Global commands intercepted before the questionnaire",
			},
			[]string{"command"},
		),
		quotationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "whatbot_quotations_total",
				Help: "Quotation finalization attempts by result",
			},
			[]string{"result"},
		),
		notificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "whatbot_notifications_total",
				Help: "Quotation emails by recipient and result",
			},
			[]string{"recipient", "result"},
		),
		sessionsSwept: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "whatbot_sessions_swept_total",
				Help: "Sessions touched by the cleanup sweep",
			},
			[]string{"action"},
		),
		outboundTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "whatbot_outbound_messages_total",
				Help: "Outbound WhatsApp replies by result",
			},
			[]string{"result"},
		),
	}
}

// RegisterActiveSessions exposes the live session count as a gauge
func RegisterActiveSessions(reg prometheus.Registerer, count func() int) {
	promauto.With(reg).NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "whatbot_active_sessions",
			Help: "Conversation sessions currently held in memory",
		},
		func() float64 { return float64(count()) },
	)
}

// IncMessage counts an inbound message handled in step
func (r *Recorder) IncMessage(step string) {
	if r == nil {
		return
	}
	r.messagesTotal.WithLabelValues(step).Inc()
}

// IncCommand counts an intercepted global command
func (r *Recorder) IncCommand(command string) {
	if r == nil {
		return
	}
	r.commandsTotal.WithLabelValues(command).Inc()
}

// IncQuotation counts a finalization attempt: "created", "invalid" or "storage_error"
func (r *Recorder) IncQuotation(result string) {
	if r == nil {
		return
	}
	r.quotationsTotal.WithLabelValues(result).Inc()
}

// ObserveNotification counts one email delivery attempt
func (r *Recorder) ObserveNotification(recipient string, sent bool) {
	if r == nil {
		return
	}
	result := "sent"
	if !sent {
		result = "failed"
	}
	r.notificationsTotal.WithLabelValues(recipient, result).Inc()
}

// AddSwept counts sessions removed and repaired by one sweep
func (r *Recorder) AddSwept(removed, repaired int) {
	if r == nil {
		return
	}
	r.sessionsSwept.WithLabelValues("removed").Add(float64(removed))
	r.sessionsSwept.WithLabelValues("repaired").Add(float64(repaired))
}

// ObserveOutbound counts one reply sent (or not) to WhatsApp
func (r *Recorder) ObserveOutbound(err error) {
	if r == nil {
		return
	}
	result := "sent"
	if err != nil {
		result = "failed"
	}
	r.outboundTotal.WithLabelValues(result).Inc()
}
