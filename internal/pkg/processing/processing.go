package processing

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/log"
	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/metrics"
	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/models"
)

// ErrSessionCreationFailed wraps every failure of CreateSession.
var ErrSessionCreationFailed = errors.New("session creation failed")

const maxResponseSize = 1 << 20

type SessionClient interface {
	CreateSession(ctx context.Context, order models.Order) (string, error)
}

type Merchant struct {
	ID          string
	APIPassword string
	Name        string
	Address     string
}

type mpgsClient struct {
	httpClient    *http.Client
	authorization string
	sessionURL    string
	merchant      Merchant
	description   string
	limiter       *rate.Limiter
	metrics       *metrics.Metrics
	logger        *zap.SugaredLogger
}

type Option func(*mpgsClient)

func WithRateLimiter(limiter *rate.Limiter) Option {
	return func(c *mpgsClient) {
		c.limiter = limiter
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *mpgsClient) {
		c.metrics = m
	}
}

type Address struct {
	Line1 string `json:"line1"`
}

type InteractionMerchant struct {
	Name    string   `json:"name"`
	Address *Address `json:"address,omitempty"`
}

type Interaction struct {
	Operation string              `json:"operation"`
	Merchant  InteractionMerchant `json:"merchant"`
}

type SessionOrder struct {
	Currency    string `json:"currency"`
	Amount      string `json:"amount"`
	ID          string `json:"id"`
	Description string `json:"description"`
}

type Transaction struct {
	Source string `json:"source"`
}

type CreateSessionRequest struct {
	APIOperation string       `json:"apiOperation"`
	Interaction  Interaction  `json:"interaction"`
	Order        SessionOrder `json:"order"`
	Transaction  Transaction  `json:"transaction"`
}

type Session struct {
	ID           string `json:"id"`
	UpdateStatus string `json:"updateStatus"`
}

type SessionResponse struct {
	Result  string  `json:"result"`
	Session Session `json:"session"`
}

// BasicAuthorization encodes the processor credentials for the Authorization
// header: base64("merchant.<id>:<password>").
func BasicAuthorization(merchantID, apiPassword string) string {
	return base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("merchant.%s:%s", merchantID, apiPassword)))
}

// New returns a SessionClient. The request deadline comes from httpClient's
// Timeout; calls are never retried.
func New(
	httpClient *http.Client,
	sessionURL string,
	merchant Merchant,
	description string,
	logger *zap.SugaredLogger,
	opts ...Option,
) SessionClient {
	c := &mpgsClient{
		httpClient:    httpClient,
		authorization: BasicAuthorization(merchant.ID, merchant.APIPassword),
		sessionURL:    sessionURL,
		merchant:      merchant,
		description:   description,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *mpgsClient) newRequest(order models.Order) CreateSessionRequest {
	r := CreateSessionRequest{
		APIOperation: "INITIATE_CHECKOUT",
		Interaction: Interaction{
			Operation: "PURCHASE",
			Merchant:  InteractionMerchant{Name: c.merchant.Name},
		},
		Order: SessionOrder{
			Currency:    order.Currency,
			Amount:      order.FormattedAmount(),
			ID:          fmt.Sprint(order.ID),
			Description: c.description,
		},
		Transaction: Transaction{Source: "INTERNET"},
	}
	if c.merchant.Address != "" {
		r.Interaction.Merchant.Address = &Address{Line1: c.merchant.Address}
	}
	return r
}

func (c *mpgsClient) CreateSession(ctx context.Context, order models.Order) (string, error) {
	started := time.Now()
	sessionID, err := c.createSession(ctx, order)
	if c.metrics != nil {
		c.metrics.SessionCreationDuration.Observe(time.Since(started).Seconds())
		outcome := "created"
		if err != nil {
			outcome = "failed"
		}
		c.metrics.SessionCreationsTotal.WithLabelValues(outcome).Inc()
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSessionCreationFailed, err)
	}
	return sessionID, nil
}

func (c *mpgsClient) createSession(ctx context.Context, order models.Order) (string, error) {
	if !order.Amount.IsPositive() {
		return "", fmt.Errorf("order amount must be positive, got %s", order.Amount)
	}
	if order.Currency == "" {
		return "", errors.New("order currency is empty")
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("limiter.Wait: %w", err)
		}
	}

	body, err := json.Marshal(c.newRequest(order))
	if err != nil {
		return "", fmt.Errorf("json.Marshal: %w", err)
	}

	httpRequest, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.sessionURL,
		bytes.NewReader(body),
	)
	if err != nil {
		return "", fmt.Errorf("http.NewRequestWithContext: %w", err)
	}
	requestID := uuid.New().String()
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("X-Request-ID", requestID)
	httpRequest.Header.Set("Authorization", fmt.Sprintf("Basic %s", c.authorization))

	logger := c.logger.With(log.OrderID(order.ID), log.RequestID(requestID))

	response, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return "", fmt.Errorf("httpClient.Do: %w", err)
	}

	responseBody, err := io.ReadAll(io.LimitReader(response.Body, maxResponseSize))
	if err != nil {
		_ = response.Body.Close()
		return "", fmt.Errorf("io.ReadAll(response.Body): %w", err)
	}

	if err = response.Body.Close(); err != nil {
		return "", fmt.Errorf("response.Body.Close: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		logger.Warnf("processor returned status %d: %s", response.StatusCode, string(responseBody))
		return "", fmt.Errorf("httpClient.Do: returned status %d", response.StatusCode)
	}

	resp := SessionResponse{}
	if err = json.Unmarshal(responseBody, &resp); err != nil {
		return "", fmt.Errorf("json.Unmarshal(responseBody): %w", err)
	}
	if resp.Session.ID == "" {
		return "", errors.New("response has no session.id")
	}

	logger.With(log.SessionID(resp.Session.ID)).Info("checkout session created")
	return resp.Session.ID, nil
}
