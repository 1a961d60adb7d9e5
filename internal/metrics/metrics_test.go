package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.IncMessage("initial")
	r.IncMessage("initial")
	r.IncCommand("salir")
	r.IncQuotation("created")
	r.ObserveNotification("client", true)
	r.ObserveNotification("team", false)
	r.AddSwept(3, 1)
	r.ObserveOutbound(nil)
	r.ObserveOutbound(errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.messagesTotal.WithLabelValues("initial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.commandsTotal.WithLabelValues("salir")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.quotationsTotal.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.notificationsTotal.WithLabelValues("team", "failed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.sessionsSwept.WithLabelValues("removed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sessionsSwept.WithLabelValues("repaired")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.outboundTotal.WithLabelValues("failed")))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.IncMessage("initial")
		r.IncCommand("menu")
		r.IncQuotation("created")
		r.ObserveNotification("client", true)
		r.AddSwept(1, 1)
		r.ObserveOutbound(nil)
	})
}

func TestActiveSessionsGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	RegisterActiveSessions(reg, func() int { return 4 })

	count, err := testutil.GatherAndCount(reg, "whatbot_active_sessions")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}
