package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/config"
	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/log"
	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/storage"
	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/webhook"
)

// Handler serves payment notifications delivered to a Lambda function URL.
type Handler struct {
	receiver *webhook.Receiver
	logger   *zap.SugaredLogger
}

func (h Handler) Handle(ctx context.Context, request events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	if request.RequestContext.HTTP.Method != "" && request.RequestContext.HTTP.Method != http.MethodPost {
		return jsonResponse(http.StatusMethodNotAllowed, webhook.Response{Data: "Method not allowed"}), nil
	}

	// Function URL header names arrive lowercased.
	headers := http.Header{}
	for k, v := range request.Headers {
		headers.Set(k, v)
	}
	secret := headers.Get(webhook.SecretHeader)
	if resp, ok := h.receiver.Authenticate(secret); !ok {
		return jsonResponse(resp.Status, resp), nil
	}

	body := []byte(request.Body)
	if request.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(request.Body)
		if err != nil {
			h.logger.Warnf("base64.DecodeString: %v", err)
			return jsonResponse(http.StatusBadRequest, webhook.Response{Data: "Invalid payload"}), nil
		}
		body = decoded
	}

	resp := h.receiver.Receive(ctx, secret, body)
	return jsonResponse(resp.Status, resp), nil
}

func jsonResponse(status int, resp webhook.Response) events.LambdaFunctionURLResponse {
	b, _ := json.Marshal(resp)
	return events.LambdaFunctionURLResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(b),
	}
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}
	logger := log.NewLogger(cfg.Log.Path)

	store, err := storage.New(context.Background(), cfg.Database.URL, logger)
	if err != nil {
		logger.Fatalf("storage.New: %v", err)
	}

	h := Handler{
		receiver: webhook.NewReceiver(cfg.Webhook.Secret, webhook.NewReconciler(store, nil, logger), nil, logger),
		logger:   logger,
	}
	lambda.Start(h.Handle)
}
