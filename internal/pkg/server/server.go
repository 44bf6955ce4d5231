package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/metrics"
	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/processing"
	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/webhook"
)

const maxWebhookBody = 64 * 1024

type Server struct {
	router       chi.Router
	orchestrator *processing.Orchestrator
	receiver     *webhook.Receiver
	metrics      *metrics.Metrics
	logger       *zap.SugaredLogger
}

func New(
	orchestrator *processing.Orchestrator,
	receiver *webhook.Receiver,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
	logger *zap.SugaredLogger,
) *Server {
	s := &Server{
		router:       chi.NewRouter(),
		orchestrator: orchestrator,
		receiver:     receiver,
		metrics:      m,
		logger:       logger,
	}

	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.instrument)

	s.router.Post("/orders/{orderID}/checkout", s.handleStartCheckout)
	s.router.Get("/checkout/redirect", s.handleRedirectPage)
	s.router.Post("/webhook", s.handleWebhook)
	s.router.Get("/health", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// instrument records request count and latency per route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}
		startTime := time.Now()
		wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(wrapped, r)

		handlerName := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			handlerName = rctx.RoutePattern()
		}
		status := wrapped.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.HTTPRequestDuration.WithLabelValues(handlerName, r.Method).Observe(time.Since(startTime).Seconds())
		s.metrics.HTTPRequestsTotal.WithLabelValues(handlerName, r.Method, strconv.Itoa(status)).Inc()
	})
}
