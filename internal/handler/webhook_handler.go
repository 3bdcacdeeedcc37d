package handler

import (
	"context"
	"net/http"

	"github.com/boddenberg/atendimento-webhook-go/internal/domain"
	"github.com/boddenberg/atendimento-webhook-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Webhook ingestion
// POST /v1/webhooks/engagements
// POST /v1/webhooks/visits, /api/webhook
// ============================================================

type ingestFunc func(ctx context.Context, body []byte) (*domain.IngestResult, error)

func engagementWebhookHandler(svc *service.Ingestion, logger *zap.Logger) http.HandlerFunc {
	return webhookHandler(domain.SourceEngagement, svc.IngestEngagement, logger,
		"engagement received and stored", "engagement already stored")
}

func visitWebhookHandler(svc *service.Ingestion, logger *zap.Logger) http.HandlerFunc {
	return webhookHandler(domain.SourceVisit, svc.IngestVisit, logger,
		"visit received and stored", "visit already stored")
}

func webhookHandler(source string, ingest ingestFunc, logger *zap.Logger, createdMsg, duplicateMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "handler.Webhook")
		defer span.End()
		span.SetAttributes(attribute.String("webhook.source", source))

		body, status, err := readWebhookBody(w, r)
		if err != nil {
			logger.Warn("failed to read webhook body",
				zap.String("source", source),
				zap.Error(err),
			)
			writeJSON(w, status, domain.WebhookFailed{
				Error:   "could not read request body",
				Details: err.Error(),
			})
			return
		}

		result, err := ingest(ctx, body)
		if err != nil {
			handleServiceError(w, err, body, logger)
			return
		}

		span.SetAttributes(attribute.Bool("webhook.duplicate", result.Duplicate))
		if result.Duplicate {
			writeJSON(w, http.StatusOK, domain.WebhookAccepted{
				Success:   true,
				Message:   duplicateMsg,
				Duplicate: true,
				Data:      result.Record,
			})
			return
		}
		writeJSON(w, http.StatusCreated, domain.WebhookAccepted{
			Success: true,
			Message: createdMsg,
			Data:    result.Record,
		})
	}
}

// ============================================================
// Documentation-as-response
// GET on each webhook path
// ============================================================

func describeEngagementWebhook(svc *service.Ingestion) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		desc := domain.WebhookDescription{
			Status:         "ok",
			Source:         domain.SourceEngagement,
			Method:         http.MethodPost,
			ContentType:    "application/json",
			ExpectedFields: svc.EngagementPaths().Describe(),
		}
		if svc.StrictEngagements() {
			desc.RequiredAnyOf = []string{"name", "phone"}
		}
		writeJSON(w, http.StatusOK, desc)
	}
}

func describeVisitWebhook(svc *service.Ingestion) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, domain.WebhookDescription{
			Status:         "ok",
			Source:         domain.SourceVisit,
			Method:         http.MethodPost,
			ContentType:    "application/json",
			ExpectedFields: svc.VisitPaths().Describe(),
		})
	}
}
