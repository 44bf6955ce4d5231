package webhook

import (
	"context"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/metrics"
)

const testSecret = "notification-secret-0001"

func TestReceiverAcknowledgments(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		body    string
		status  int
		success bool
		data    string
	}{
		{name: "processed", secret: testSecret, body: successPayload, status: http.StatusOK, success: true, data: "Webhook received"},
		{name: "bad secret", secret: "notification-secret-0002", body: successPayload, status: http.StatusUnauthorized, data: "Invalid secret"},
		{name: "missing secret", secret: "", body: successPayload, status: http.StatusUnauthorized, data: "Invalid secret"},
		{name: "invalid payload", secret: testSecret, body: `{"result":"SUCCESS"}`, status: http.StatusBadRequest, data: "Invalid payload"},
		{name: "unknown order", secret: testSecret, body: `{"result":"SUCCESS","order":{"id":999}}`, status: http.StatusNotFound, data: "Order not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := newTestLedger()
			receiver := NewReceiver(testSecret, NewReconciler(ledger, nil, zap.NewNop().Sugar()), nil, zap.NewNop().Sugar())

			resp := receiver.Receive(context.Background(), tt.secret, []byte(tt.body))
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, tt.success, resp.Success)
			assert.Equal(t, tt.data, resp.Data)
		})
	}
}

func TestReceiverBadSecretDoesNotTouchLedger(t *testing.T) {
	ledger := newTestLedger()
	receiver := NewReceiver(testSecret, NewReconciler(ledger, nil, zap.NewNop().Sugar()), nil, zap.NewNop().Sugar())

	resp := receiver.Receive(context.Background(), "notification-secret-000X", []byte(successPayload))
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
	assert.Zero(t, ledger.Mutations())
}

func TestReceiverWithoutConfiguredSecretRejectsEverything(t *testing.T) {
	ledger := newTestLedger()
	receiver := NewReceiver("", NewReconciler(ledger, nil, zap.NewNop().Sugar()), nil, zap.NewNop().Sugar())

	for _, provided := range []string{"", testSecret} {
		resp := receiver.Receive(context.Background(), provided, []byte(successPayload))
		assert.Equal(t, http.StatusUnauthorized, resp.Status)
	}
	assert.Zero(t, ledger.Mutations())
}

func TestReceiverAuthenticate(t *testing.T) {
	m := metrics.New()
	m.Register(prometheus.NewRegistry())
	receiver := NewReceiver(testSecret, NewReconciler(newTestLedger(), nil, zap.NewNop().Sugar()), m, zap.NewNop().Sugar())

	_, ok := receiver.Authenticate(testSecret)
	assert.True(t, ok)

	resp, ok := receiver.Authenticate("notification-secret-0002")
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
	assert.Equal(t, "Invalid secret", resp.Data)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WebhookNotificationsTotal.WithLabelValues("unauthorized")))
}

func TestReceiverMetrics(t *testing.T) {
	m := metrics.New()
	m.Register(prometheus.NewRegistry())
	receiver := NewReceiver(testSecret, NewReconciler(newTestLedger(), nil, zap.NewNop().Sugar()), m, zap.NewNop().Sugar())

	receiver.Receive(context.Background(), testSecret, []byte(successPayload))
	receiver.Receive(context.Background(), testSecret, []byte(successPayload))
	receiver.Receive(context.Background(), "wrong", []byte(successPayload))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.WebhookNotificationsTotal.WithLabelValues("processed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WebhookNotificationsTotal.WithLabelValues("already_processed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WebhookNotificationsTotal.WithLabelValues("unauthorized")))
}
