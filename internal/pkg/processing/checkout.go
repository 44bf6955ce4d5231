package processing

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/log"
	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/models"
	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/storage"
)

var (
	// ErrPaymentInitiation is the only error a shopper sees when a session
	// cannot be created; the cause is logged, not returned.
	ErrPaymentInitiation = errors.New("could not initiate checkout session")
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderAlreadyPaid  = errors.New("order already paid")
	ErrSessionMissing    = errors.New("session not found")
)

// RedirectQueryParam carries the order id on the redirect target.
const RedirectQueryParam = "order_id"

type Pages struct {
	RedirectURL       string
	CheckoutScriptURL string
	ThankYouURL       func(orderID int64) string
}

type Orchestrator struct {
	client SessionClient
	ledger storage.Ledger
	pages  Pages
	logger *zap.SugaredLogger
}

func NewOrchestrator(client SessionClient, ledger storage.Ledger, pages Pages, logger *zap.SugaredLogger) *Orchestrator {
	return &Orchestrator{
		client: client,
		ledger: ledger,
		pages:  pages,
		logger: logger,
	}
}

// StartCheckout creates a processor session for the order, stores its id on
// the order and returns the URL the shopper's browser goes to next.
func (o *Orchestrator) StartCheckout(ctx context.Context, orderID int64) (string, error) {
	logger := o.logger.With(log.OrderID(orderID))

	order, err := o.ledger.OrderGetByID(ctx, orderID)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrNotFound):
		return "", ErrOrderNotFound
	default:
		logger.Errorf("ledger.OrderGetByID: %v", err)
		return "", ErrPaymentInitiation
	}
	if order.IsPaid() {
		return "", ErrOrderAlreadyPaid
	}

	sessionID, err := o.client.CreateSession(ctx, *order)
	if err != nil {
		logger.Errorf("client.CreateSession: %v", err)
		return "", ErrPaymentInitiation
	}

	if err = o.ledger.OrderSetSession(ctx, orderID, sessionID); err != nil {
		logger.Errorf("ledger.OrderSetSession: %v", err)
		return "", ErrPaymentInitiation
	}

	target, err := o.redirectTarget(orderID)
	if err != nil {
		logger.Errorf("redirectTarget: %v", err)
		return "", ErrPaymentInitiation
	}
	return target, nil
}

func (o *Orchestrator) redirectTarget(orderID int64) (string, error) {
	u, err := url.Parse(o.pages.RedirectURL)
	if err != nil {
		return "", fmt.Errorf("url.Parse(%q): %w", o.pages.RedirectURL, err)
	}
	q := u.Query()
	q.Set(RedirectQueryParam, strconv.FormatInt(orderID, 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ResolveSession returns the session id stored by the last StartCheckout.
func (o *Orchestrator) ResolveSession(ctx context.Context, orderID int64) (string, error) {
	order, err := o.ledger.OrderGetByID(ctx, orderID)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrNotFound):
		return "", ErrOrderNotFound
	default:
		return "", fmt.Errorf("ledger.OrderGetByID: %w", err)
	}
	if order.SessionID == nil || *order.SessionID == "" {
		return "", ErrSessionMissing
	}
	return *order.SessionID, nil
}

func (o *Orchestrator) RedirectPage(ctx context.Context, orderID int64) (models.RedirectPage, error) {
	sessionID, err := o.ResolveSession(ctx, orderID)
	if err != nil {
		return models.RedirectPage{}, err
	}
	page := models.RedirectPage{
		SessionID:         sessionID,
		OrderID:           orderID,
		CheckoutScriptURL: o.pages.CheckoutScriptURL,
	}
	if o.pages.ThankYouURL != nil {
		page.ThankYouURL = o.pages.ThankYouURL(orderID)
	}
	return page, nil
}
