package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tolelom/headstats/events"
)

func TestCollectorCountsNotifications(t *testing.T) {
	c := New()
	emitter := events.NewEmitter(logrus.NewEntry(logrus.New()))
	c.Attach(emitter)

	emitter.Emit(events.Notification{Type: events.EventHeadOpened, Authority: "n1:4001"})
	emitter.Emit(events.Notification{Type: events.EventTxPending, Authority: "n1:4001"})
	emitter.Emit(events.Notification{Type: events.EventTxPending, Authority: "n1:4001"})
	emitter.Emit(events.Notification{Type: events.EventTxConfirmed, Authority: "n1:4001"})
	emitter.Emit(events.Notification{Type: events.EventTxRejected, Data: map[string]any{"reason": "decode"}})
	emitter.Emit(events.Notification{Type: events.EventUnknownNode, Authority: "n9:1"})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.headsOpen))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.txPending.WithLabelValues("n1:4001")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.txConfirmed.WithLabelValues("n1:4001")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.txRejected.WithLabelValues("decode")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.unknownAuthority))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.notifications.WithLabelValues("tx_pending")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := New()
	c.unknownAuthority.Inc()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "headstats_unknown_authority_total 1")
}
