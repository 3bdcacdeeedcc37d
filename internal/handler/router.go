package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/boddenberg/atendimento-webhook-go/internal/domain"
	"github.com/boddenberg/atendimento-webhook-go/internal/infra/observability"
	"github.com/boddenberg/atendimento-webhook-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Webhook paths. legacyVisitPath is what already-installed site plugins
// post to.
const (
	engagementWebhookPath = "/v1/webhooks/engagements"
	visitWebhookPath      = "/v1/webhooks/visits"
	legacyVisitPath       = "/api/webhook"
)

// NewRouter creates the HTTP router with all routes and middleware.
// dash may be nil, in which case the read API is not mounted.
func NewRouter(ingest *service.Ingestion, dash *service.Dashboard, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.AccessLog(logger))
	r.Use(observability.TraceContext)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(dash))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- Webhooks (public, allow-all CORS) ---
	r.Group(func(r chi.Router) {
		r.Use(WebhookCORS())

		if ingest != nil {
			engagement := engagementWebhookHandler(ingest, logger)
			visit := visitWebhookHandler(ingest, logger)

			r.Post(engagementWebhookPath, engagement)
			r.Get(engagementWebhookPath, describeEngagementWebhook(ingest))

			for _, path := range []string{visitWebhookPath, legacyVisitPath} {
				r.Post(path, visit)
				r.Get(path, describeVisitWebhook(ingest))
			}
		}

		for _, path := range []string{engagementWebhookPath, visitWebhookPath, legacyVisitPath} {
			r.Options(path, preflightHandler)
		}
	})

	// --- Dashboard read API ---
	if dash != nil {
		r.Get("/v1/engagements", listEngagementsHandler(dash, logger))
		r.Get("/v1/engagements/export.csv", exportEngagementsHandler(dash, logger))
		r.Get("/v1/visits", listVisitsHandler(dash, logger))
		r.Get("/v1/visits/export.csv", exportVisitsHandler(dash, logger))
		r.Get("/v1/analytics/summary", summaryHandler(dash, logger))
	}
	r.Get("/v1/metrics/ingestion", ingestionMetricsHandler(metrics))

	return r
}

func healthzHandler(dash *service.Dashboard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "webhook-api", Status: "healthy", LastChecked: now},
		}
		if dash != nil {
			services = append(services, dash.Health(r.Context()))
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// handleServiceError maps domain errors to HTTP responses. body is the raw
// request body, echoed back on validation failures; it may be nil.
func handleServiceError(w http.ResponseWriter, err error, body []byte, logger *zap.Logger) {
	var malformed *domain.ErrMalformedPayload
	var validation *domain.ErrValidation
	var persistence *domain.ErrPersistence
	var notFound *domain.ErrNotFound

	switch {
	case errors.As(err, &malformed):
		logger.Debug("malformed payload", zap.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, domain.WebhookFailed{
			Error:   "invalid JSON payload",
			Details: malformed.Reason,
		})
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, domain.WebhookRejected{
			Error:        validation.Message,
			ReceivedData: receivedData(body),
		})
	case errors.As(err, &persistence):
		logger.Error("persistence error",
			zap.String("backend", persistence.Backend),
			zap.Int("status", persistence.Status),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, domain.WebhookFailed{
			Error:   "failed to store record",
			Details: persistence.Message,
		})
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
