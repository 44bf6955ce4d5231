package webhook

import (
	"context"

	"go.uber.org/zap"

	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/metrics"
)

// SecretHeader carries the notification secret on every webhook request.
const SecretHeader = "X-Notification-Secret"

// Response is the acknowledgment envelope returned to the processor.
type Response struct {
	Status  int    `json:"-"`
	Success bool   `json:"success"`
	Data    string `json:"data"`
}

// Receiver is the webhook entry point: it checks the shared secret and hands
// authentic notifications to the Reconciler.
type Receiver struct {
	secret     string
	reconciler *Reconciler
	metrics    *metrics.Metrics
	logger     *zap.SugaredLogger
}

// NewReceiver returns a Receiver. m may be nil.
func NewReceiver(secret string, reconciler *Reconciler, m *metrics.Metrics, logger *zap.SugaredLogger) *Receiver {
	if secret == "" {
		logger.Warn("webhook secret is not configured, all notifications will be rejected")
	}
	return &Receiver{
		secret:     secret,
		reconciler: reconciler,
		metrics:    m,
		logger:     logger,
	}
}

// Authenticate checks the provided secret. On failure it returns the
// acknowledgment to send back, and the caller must not look at the body.
func (r *Receiver) Authenticate(providedSecret string) (Response, bool) {
	if VerifySecret(providedSecret, r.secret) {
		return Response{}, true
	}
	r.logger.Warnw("webhook rejected: invalid secret", "secret_provided", providedSecret != "")
	return r.acknowledge(ResultUnauthorized), false
}

func (r *Receiver) Receive(ctx context.Context, providedSecret string, body []byte) Response {
	if resp, ok := r.Authenticate(providedSecret); !ok {
		return resp
	}
	return r.acknowledge(r.reconciler.Reconcile(ctx, body))
}

func (r *Receiver) acknowledge(result Result) Response {
	if r.metrics != nil {
		r.metrics.WebhookNotificationsTotal.WithLabelValues(result.String()).Inc()
	}
	return Response{
		Status:  result.HTTPStatus(),
		Success: result == ResultProcessed || result == ResultAlreadyProcessed,
		Data:    message(result),
	}
}

func message(r Result) string {
	switch r {
	case ResultProcessed, ResultAlreadyProcessed:
		return "Webhook received"
	case ResultUnauthorized:
		return "Invalid secret"
	case ResultInvalidPayload:
		return "Invalid payload"
	case ResultOrderNotFound:
		return "Order not found"
	default:
		return "Internal error"
	}
}
