package webhook

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/models"
	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/storage"
)

const (
	successPayload = `{"result":"SUCCESS","order":{"id":42},"transaction":{"id":"TX1"}}`
	failurePayload = `{"result":"FAILURE","order":{"id":42},"error":{"explanation":"card declined"}}`
)

type recordingNotifier struct {
	mu        sync.Mutex
	succeeded []string
	failed    []string
}

func (r *recordingNotifier) PaymentSucceeded(_ context.Context, _ models.Order, transactionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.succeeded = append(r.succeeded, transactionID)
	return nil
}

func (r *recordingNotifier) PaymentFailed(_ context.Context, _ models.Order, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, reason)
	return errors.New("chat unavailable")
}

func newTestLedger() *storage.Memory {
	ledger := storage.NewMemory()
	ledger.SetStock(100, 5)
	ledger.OrderCreate(42, decimal.RequireFromString("10.00"), "USD", models.OrderItem{ProductID: 100, Quantity: 2})
	return ledger
}

func noteTexts(notes []models.OrderNote) []string {
	texts := make([]string, 0, len(notes))
	for _, n := range notes {
		texts = append(texts, n.Text)
	}
	return texts
}

func TestReconcileSuccess(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger()
	notifier := &recordingNotifier{}
	reconciler := NewReconciler(ledger, notifier, zap.NewNop().Sugar())

	result := reconciler.Reconcile(ctx, []byte(successPayload))
	assert.Equal(t, ResultProcessed, result)
	assert.Equal(t, http.StatusOK, result.HTTPStatus())

	order, err := ledger.OrderGetByID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, order.Status)
	assert.Equal(t, "TX1", *order.TransactionID)
	assert.True(t, order.StockReduced)
	assert.Equal(t, 1, ledger.StockReductions(42))
	assert.Equal(t, 3, ledger.Stock(100))
	assert.Equal(t, []string{"Payment successful. Transaction ID: TX1"}, noteTexts(ledger.Notes(42)))
	assert.Equal(t, []string{"TX1"}, notifier.succeeded)
}

func TestReconcileSuccessReplay(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger()
	notifier := &recordingNotifier{}
	reconciler := NewReconciler(ledger, notifier, zap.NewNop().Sugar())

	require.Equal(t, ResultProcessed, reconciler.Reconcile(ctx, []byte(successPayload)))
	result := reconciler.Reconcile(ctx, []byte(successPayload))
	assert.Equal(t, ResultAlreadyProcessed, result)
	assert.Equal(t, http.StatusOK, result.HTTPStatus())

	assert.Equal(t, 1, ledger.StockReductions(42))
	assert.Equal(t, 3, ledger.Stock(100))
	assert.Len(t, ledger.Notes(42), 1)
	assert.Len(t, notifier.succeeded, 1)
}

func TestReconcileSuccessConcurrentDeliveries(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger()
	reconciler := NewReconciler(ledger, nil, zap.NewNop().Sugar())

	const deliveries = 50
	results := make([]Result, deliveries)
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = reconciler.Reconcile(ctx, []byte(successPayload))
		}(i)
	}
	wg.Wait()

	processed := 0
	for _, r := range results {
		if r == ResultProcessed {
			processed++
		} else {
			assert.Equal(t, ResultAlreadyProcessed, r)
		}
	}
	assert.Equal(t, 1, processed)
	assert.Equal(t, 1, ledger.StockReductions(42))
	assert.Equal(t, 3, ledger.Stock(100))
	assert.Len(t, ledger.Notes(42), 1)
}

func TestReconcileSuccessWithoutTransactionID(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger()
	reconciler := NewReconciler(ledger, nil, zap.NewNop().Sugar())

	result := reconciler.Reconcile(ctx, []byte(`{"result":"SUCCESS","order":{"id":42}}`))
	assert.Equal(t, ResultProcessed, result)

	order, err := ledger.OrderGetByID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "N/A", *order.TransactionID)
	assert.Equal(t, []string{"Payment successful. Transaction ID: N/A"}, noteTexts(ledger.Notes(42)))
}

func TestReconcileFailure(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger()
	notifier := &recordingNotifier{}
	reconciler := NewReconciler(ledger, notifier, zap.NewNop().Sugar())

	result := reconciler.Reconcile(ctx, []byte(failurePayload))
	assert.Equal(t, ResultProcessed, result)

	order, err := ledger.OrderGetByID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, order.Status)
	assert.False(t, order.StockReduced)
	notes := noteTexts(ledger.Notes(42))
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0], "card declined")
	// Notifier errors do not change the acknowledgment.
	assert.Equal(t, []string{"card declined"}, notifier.failed)
}

func TestReconcileFailureReplay(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger()
	notifier := &recordingNotifier{}
	reconciler := NewReconciler(ledger, notifier, zap.NewNop().Sugar())

	require.Equal(t, ResultProcessed, reconciler.Reconcile(ctx, []byte(failurePayload)))
	mutations := ledger.Mutations()

	for i := 0; i < 2; i++ {
		result := reconciler.Reconcile(ctx, []byte(failurePayload))
		assert.Equal(t, ResultAlreadyProcessed, result)
		assert.Equal(t, http.StatusOK, result.HTTPStatus())
	}

	assert.Equal(t, mutations, ledger.Mutations())
	assert.Equal(t, []string{"Payment failed. Reason: card declined"}, noteTexts(ledger.Notes(42)))
	assert.Len(t, notifier.failed, 1)
}

func TestReconcileFailureFallbackReason(t *testing.T) {
	ctx := context.Background()
	bodies := []string{
		`{"result":"FAILURE","order":{"id":42}}`,
		`{"result":"PENDING","order":{"id":42}}`,
		`{"order":{"id":42}}`,
	}
	for _, body := range bodies {
		ledger := newTestLedger()
		reconciler := NewReconciler(ledger, nil, zap.NewNop().Sugar())

		assert.Equal(t, ResultProcessed, reconciler.Reconcile(ctx, []byte(body)))
		order, err := ledger.OrderGetByID(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusFailed, order.Status)
		assert.Equal(t, []string{"Payment failed. Reason: Payment failed or was not completed."}, noteTexts(ledger.Notes(42)))
	}
}

func TestReconcileFailureAfterPaidIsIgnored(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger()
	reconciler := NewReconciler(ledger, nil, zap.NewNop().Sugar())

	require.Equal(t, ResultProcessed, reconciler.Reconcile(ctx, []byte(successPayload)))
	mutations := ledger.Mutations()

	result := reconciler.Reconcile(ctx, []byte(failurePayload))
	assert.Equal(t, ResultAlreadyProcessed, result)

	order, err := ledger.OrderGetByID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, order.Status)
	assert.Equal(t, mutations, ledger.Mutations())
}

func TestReconcileSuccessAfterFailure(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger()
	reconciler := NewReconciler(ledger, nil, zap.NewNop().Sugar())

	require.Equal(t, ResultProcessed, reconciler.Reconcile(ctx, []byte(failurePayload)))
	assert.Equal(t, ResultProcessed, reconciler.Reconcile(ctx, []byte(successPayload)))

	order, err := ledger.OrderGetByID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, order.Status)
	assert.Equal(t, 1, ledger.StockReductions(42))
}

func TestReconcileInvalidPayload(t *testing.T) {
	ledger := newTestLedger()
	reconciler := NewReconciler(ledger, nil, zap.NewNop().Sugar())

	for _, body := range []string{`{"result":"SUCCESS"}`, `{not json`, `{"result":"SUCCESS","order":{"id":""}}`} {
		result := reconciler.Reconcile(context.Background(), []byte(body))
		assert.Equal(t, ResultInvalidPayload, result)
		assert.Equal(t, http.StatusBadRequest, result.HTTPStatus())
	}
	assert.Zero(t, ledger.Mutations())
}

func TestReconcileUnknownOrder(t *testing.T) {
	ledger := newTestLedger()
	reconciler := NewReconciler(ledger, nil, zap.NewNop().Sugar())

	result := reconciler.Reconcile(context.Background(), []byte(`{"result":"SUCCESS","order":{"id":999},"transaction":{"id":"TX1"}}`))
	assert.Equal(t, ResultOrderNotFound, result)
	assert.Equal(t, http.StatusNotFound, result.HTTPStatus())
	assert.Zero(t, ledger.Mutations())
}

type failingLedger struct {
	*storage.Memory
	err error
}

func (f failingLedger) OrderMarkPaid(context.Context, int64, string, string) (bool, error) {
	return false, f.err
}

func TestReconcileLedgerError(t *testing.T) {
	ledger := failingLedger{Memory: newTestLedger(), err: errors.New("connection reset")}
	reconciler := NewReconciler(ledger, nil, zap.NewNop().Sugar())

	result := reconciler.Reconcile(context.Background(), []byte(successPayload))
	assert.Equal(t, ResultError, result)
	assert.Equal(t, http.StatusInternalServerError, result.HTTPStatus())
	assert.Equal(t, 0, ledger.StockReductions(42))
}

// flakyLedger rejects the first paid transition as a rolled-back transaction
// would, leaving neither the status nor the note behind.
type flakyLedger struct {
	*storage.Memory
	failures int
}

func (f *flakyLedger) OrderMarkPaid(ctx context.Context, orderID int64, transactionID, note string) (bool, error) {
	if f.failures > 0 {
		f.failures--
		return false, errors.New("insert order note: connection reset")
	}
	return f.Memory.OrderMarkPaid(ctx, orderID, transactionID, note)
}

func TestReconcileSuccessRedeliveredAfterLedgerError(t *testing.T) {
	ctx := context.Background()
	ledger := &flakyLedger{Memory: newTestLedger(), failures: 1}
	notifier := &recordingNotifier{}
	reconciler := NewReconciler(ledger, notifier, zap.NewNop().Sugar())

	assert.Equal(t, ResultError, reconciler.Reconcile(ctx, []byte(successPayload)))
	order, err := ledger.OrderGetByID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, order.Status)

	assert.Equal(t, ResultProcessed, reconciler.Reconcile(ctx, []byte(successPayload)))
	assert.Equal(t, []string{"Payment successful. Transaction ID: TX1"}, noteTexts(ledger.Notes(42)))
	assert.Equal(t, []string{"TX1"}, notifier.succeeded)
	assert.Equal(t, 1, ledger.StockReductions(42))
}
