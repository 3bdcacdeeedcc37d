package handler

import (
	"net/http"

	"github.com/boddenberg/atendimento-webhook-go/internal/infra/observability"
	"github.com/boddenberg/atendimento-webhook-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Dashboard read API
// GET /v1/engagements, /v1/visits
// GET /v1/engagements/export.csv, /v1/visits/export.csv
// GET /v1/analytics/summary
// GET /v1/metrics/ingestion
// ============================================================

func listEngagementsHandler(dash *service.Dashboard, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "handler.ListEngagements")
		defer span.End()

		page, pageSize := parsePagination(r)
		resp, err := dash.ListEngagements(ctx, page, pageSize, parseOrder(r))
		if err != nil {
			handleServiceError(w, err, nil, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listVisitsHandler(dash *service.Dashboard, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "handler.ListVisits")
		defer span.End()

		page, pageSize := parsePagination(r)
		resp, err := dash.ListVisits(ctx, page, pageSize, parseOrder(r))
		if err != nil {
			handleServiceError(w, err, nil, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func exportEngagementsHandler(dash *service.Dashboard, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "handler.ExportEngagements")
		defer span.End()

		rows, err := dash.AllEngagements(ctx)
		if err != nil {
			handleServiceError(w, err, nil, logger)
			return
		}

		startCSV(w, "atendimentos.csv")
		if err := service.WriteEngagementsCSV(w, rows); err != nil {
			logger.Warn("csv export interrupted", zap.Error(err))
		}
	}
}

func exportVisitsHandler(dash *service.Dashboard, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "handler.ExportVisits")
		defer span.End()

		rows, err := dash.AllVisits(ctx)
		if err != nil {
			handleServiceError(w, err, nil, logger)
			return
		}

		startCSV(w, "visitantes_site.csv")
		if err := service.WriteVisitsCSV(w, rows); err != nil {
			logger.Warn("csv export interrupted", zap.Error(err))
		}
	}
}

func summaryHandler(dash *service.Dashboard, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "handler.Summary")
		defer span.End()

		summary, err := dash.Summary(ctx)
		if err != nil {
			handleServiceError(w, err, nil, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func ingestionMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.IngestionSnapshot())
	}
}

func startCSV(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
}
