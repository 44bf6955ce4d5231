package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/log"
	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/processing"
	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/webhook"
)

const paymentInitiationMessage = "Payment error: could not initiate checkout session."

type checkoutResponse struct {
	Result   string `json:"result"`
	Redirect string `json:"redirect,omitempty"`
	Message  string `json:"message,omitempty"`
}

func (s *Server) handleStartCheckout(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil || orderID <= 0 {
		writeJSON(w, http.StatusBadRequest, checkoutResponse{Result: "failure", Message: "Invalid order id"})
		return
	}

	target, err := s.orchestrator.StartCheckout(r.Context(), orderID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, checkoutResponse{Result: "success", Redirect: target})
	case errors.Is(err, processing.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, checkoutResponse{Result: "failure", Message: "Order not found"})
	case errors.Is(err, processing.ErrOrderAlreadyPaid):
		writeJSON(w, http.StatusConflict, checkoutResponse{Result: "failure", Message: "Order is already paid"})
	default:
		writeJSON(w, http.StatusBadGateway, checkoutResponse{Result: "failure", Message: paymentInitiationMessage})
	}
}

func (s *Server) handleRedirectPage(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(r.URL.Query().Get(processing.RedirectQueryParam), 10, 64)
	if err != nil || orderID <= 0 {
		http.Error(w, "Invalid order", http.StatusBadRequest)
		return
	}

	page, err := s.orchestrator.RedirectPage(r.Context(), orderID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, page)
	case errors.Is(err, processing.ErrOrderNotFound):
		http.Error(w, "Invalid order", http.StatusNotFound)
	case errors.Is(err, processing.ErrSessionMissing):
		http.Error(w, "Session not found", http.StatusNotFound)
	default:
		s.logger.With(log.OrderID(orderID)).Errorf("orchestrator.RedirectPage: %v", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	secret := r.Header.Get(webhook.SecretHeader)
	if resp, ok := s.receiver.Authenticate(secret); !ok {
		writeJSON(w, resp.Status, resp)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Warnf("io.ReadAll(webhook body): %v", err)
		writeJSON(w, http.StatusBadRequest, webhook.Response{Success: false, Data: "Invalid payload"})
		return
	}

	resp := s.receiver.Receive(r.Context(), secret, body)
	writeJSON(w, resp.Status, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
