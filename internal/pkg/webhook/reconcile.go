package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/log"
	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/models"
	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/storage"
)

const (
	missingTransactionID = "N/A"
	defaultFailureReason = "Payment failed or was not completed."
)

type Result int

const (
	ResultProcessed Result = iota + 1
	ResultAlreadyProcessed
	ResultInvalidPayload
	ResultOrderNotFound
	ResultUnauthorized
	// ResultError means the ledger failed; the processor should redeliver.
	ResultError
)

func (r Result) String() string {
	switch r {
	case ResultProcessed:
		return "processed"
	case ResultAlreadyProcessed:
		return "already_processed"
	case ResultInvalidPayload:
		return "invalid_payload"
	case ResultOrderNotFound:
		return "order_not_found"
	case ResultUnauthorized:
		return "unauthorized"
	case ResultError:
		return "error"
	default:
		return "unknown"
	}
}

// HTTPStatus maps a result to the status acknowledged to the processor. Only
// 2xx stops redelivery.
func (r Result) HTTPStatus() int {
	switch r {
	case ResultProcessed, ResultAlreadyProcessed:
		return http.StatusOK
	case ResultInvalidPayload:
		return http.StatusBadRequest
	case ResultUnauthorized:
		return http.StatusUnauthorized
	case ResultOrderNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Notifier is told about applied payment outcomes. Errors are logged and do
// not affect the acknowledgment.
type Notifier interface {
	PaymentSucceeded(ctx context.Context, order models.Order, transactionID string) error
	PaymentFailed(ctx context.Context, order models.Order, reason string) error
}

type Reconciler struct {
	ledger   storage.Ledger
	notifier Notifier
	logger   *zap.SugaredLogger
}

// NewReconciler returns a Reconciler. notifier may be nil.
func NewReconciler(ledger storage.Ledger, notifier Notifier, logger *zap.SugaredLogger) *Reconciler {
	return &Reconciler{
		ledger:   ledger,
		notifier: notifier,
		logger:   logger,
	}
}

// Reconcile applies one webhook body to the ledger. Every transition goes
// through a conditional update, so duplicate or concurrent deliveries of the
// same notification complete payment and reduce stock at most once.
func (r *Reconciler) Reconcile(ctx context.Context, body []byte) Result {
	n, err := ParseNotification(body)
	if err != nil {
		r.logger.Warnf("ParseNotification: %v", err)
		return ResultInvalidPayload
	}
	logger := r.logger.With(log.OrderID(n.OrderID), zap.String("result", string(n.Result)))

	order, err := r.ledger.OrderGetByID(ctx, n.OrderID)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrNotFound):
		logger.Warn("notification for unknown order")
		return ResultOrderNotFound
	default:
		logger.Errorf("ledger.OrderGetByID: %v", err)
		return ResultError
	}

	if n.Result == models.NotificationResultSuccess {
		result, err := r.applySuccess(ctx, *order, n)
		if err != nil {
			logger.Errorf("applySuccess: %v", err)
			return ResultError
		}
		return result
	}
	result, err := r.applyFailure(ctx, *order, n)
	if err != nil {
		logger.Errorf("applyFailure: %v", err)
		return ResultError
	}
	return result
}

func (r *Reconciler) applySuccess(ctx context.Context, order models.Order, n models.Notification) (Result, error) {
	transactionID := n.TransactionID
	if transactionID == "" {
		transactionID = missingTransactionID
	}
	logger := r.logger.With(log.OrderID(order.ID), zap.String("transaction_id", transactionID))

	marked := false
	if !order.IsPaid() {
		var err error
		note := fmt.Sprintf("Payment successful. Transaction ID: %s", transactionID)
		marked, err = r.ledger.OrderMarkPaid(ctx, order.ID, transactionID, note)
		if err != nil {
			return 0, fmt.Errorf("ledger.OrderMarkPaid: %w", err)
		}
	}

	// Runs on replays too: a delivery that died between the paid transition
	// and this call is completed by the next one.
	reduced, err := r.ledger.OrderReduceStockOnce(ctx, order.ID)
	if err != nil {
		return 0, fmt.Errorf("ledger.OrderReduceStockOnce: %w", err)
	}
	if reduced {
		logger.Info("stock reduced")
	}

	if !marked {
		logger.Info("payment already completed, notification ignored")
		return ResultAlreadyProcessed, nil
	}

	logger.Info("payment completed")
	if r.notifier != nil {
		if err := r.notifier.PaymentSucceeded(ctx, order, transactionID); err != nil {
			logger.Errorf("notifier.PaymentSucceeded: %v", err)
		}
	}
	return ResultProcessed, nil
}

func (r *Reconciler) applyFailure(ctx context.Context, order models.Order, n models.Notification) (Result, error) {
	reason := n.ErrorExplanation
	if reason == "" {
		reason = defaultFailureReason
	}
	logger := r.logger.With(log.OrderID(order.ID), zap.String("reason", reason))

	if order.Status != models.PaymentStatusPending {
		logger.Infof("failure notification for %s order ignored", order.Status)
		return ResultAlreadyProcessed, nil
	}

	note := fmt.Sprintf("Payment failed. Reason: %s", reason)
	failed, err := r.ledger.OrderMarkFailed(ctx, order.ID, note)
	if err != nil {
		return 0, fmt.Errorf("ledger.OrderMarkFailed: %w", err)
	}
	if !failed {
		// A concurrent delivery settled the order first.
		logger.Info("failure notification for settled order ignored")
		return ResultAlreadyProcessed, nil
	}

	logger.Info("payment failed")
	if r.notifier != nil {
		if err = r.notifier.PaymentFailed(ctx, order, reason); err != nil {
			logger.Errorf("notifier.PaymentFailed: %v", err)
		}
	}
	return ResultProcessed, nil
}
