package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/atendimento-webhook-go/internal/domain"
	"github.com/boddenberg/atendimento-webhook-go/internal/handler"
	"github.com/boddenberg/atendimento-webhook-go/internal/infra/memstore"
	"github.com/boddenberg/atendimento-webhook-go/internal/infra/observability"
	"github.com/boddenberg/atendimento-webhook-go/internal/normalize"
	"github.com/boddenberg/atendimento-webhook-go/internal/port"
	"github.com/boddenberg/atendimento-webhook-go/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)

type failingStore struct {
	err error
}

func (f failingStore) Insert(context.Context, string, any) (bool, error) { return false, f.err }

func (f failingStore) Select(context.Context, string, port.Query) ([]byte, error) {
	return nil, f.err
}

func (f failingStore) Ping(context.Context) error { return f.err }

func (f failingStore) Backend() string { return "failing" }

func newTestRouter(store port.RowStore) http.Handler {
	opts := normalize.DefaultOptions()
	opts.Now = func() time.Time { return fixedNow }

	metrics := observability.NewMetrics()
	ingest := service.NewIngestion(
		store,
		nil,
		normalize.NewAssembler(opts),
		normalize.NewVisitAssembler(normalize.VisitOptions{Now: func() time.Time { return fixedNow }}),
		metrics,
		zap.NewNop(),
	)
	dash := service.NewDashboard(store, nil, zap.NewNop())
	return handler.NewRouter(ingest, dash, metrics, zap.NewNop())
}

func post(t *testing.T, router http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func assertCORS(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestEngagementWebhook_Created(t *testing.T) {
	store := memstore.New()
	router := newTestRouter(store)

	rec := post(t, router, "/v1/webhooks/engagements",
		`{"name":"Carlos","phone":"+551199999999","message":"<p>Oi!</p>","status":"open"}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assertCORS(t, rec)

	var resp struct {
		Success bool              `json:"success"`
		Message string            `json:"message"`
		Data    domain.Engagement `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Message)
	assert.Equal(t, domain.StatusInProgress, resp.Data.Status)
	assert.Equal(t, "Oi!", resp.Data.CleanMessage)
	require.Len(t, resp.Data.Messages, 1)
	assert.Equal(t, "Oi!", resp.Data.Messages[0].Content)
	assert.Equal(t, 1, store.Len(domain.EngagementsTable))
}

func TestEngagementWebhook_Duplicate(t *testing.T) {
	router := newTestRouter(memstore.New())
	body := `{"id":"chat-42","name":"Ana"}`

	first := post(t, router, "/v1/webhooks/engagements", body)
	require.Equal(t, http.StatusCreated, first.Code)

	second := post(t, router, "/v1/webhooks/engagements", body)
	require.Equal(t, http.StatusOK, second.Code)

	var resp domain.WebhookAccepted
	require.NoError(t, json.NewDecoder(second.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.True(t, resp.Duplicate)
}

func TestEngagementWebhook_ValidationEchoesPayload(t *testing.T) {
	router := newTestRouter(memstore.New())

	rec := post(t, router, "/v1/webhooks/engagements", `{"foo":"bar"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assertCORS(t, rec)

	var resp map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Contains(t, resp, "error")
	assert.JSONEq(t, `{"foo":"bar"}`, string(resp["received_data"]))
}

func TestEngagementWebhook_Malformed(t *testing.T) {
	router := newTestRouter(memstore.New())

	rec := post(t, router, "/v1/webhooks/engagements", `{"name":`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp domain.WebhookFailed
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Error)
	assert.NotEmpty(t, resp.Details)
}

func TestEngagementWebhook_PersistenceError(t *testing.T) {
	store := failingStore{err: &domain.ErrPersistence{
		Backend: "failing",
		Status:  409,
		Message: `duplicate key value violates unique constraint "atendimentos_pkey"`,
	}}
	router := newTestRouter(store)

	rec := post(t, router, "/v1/webhooks/engagements", `{"name":"Ana"}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assertCORS(t, rec)
	var resp domain.WebhookFailed
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, `duplicate key value violates unique constraint "atendimentos_pkey"`, resp.Details)
}

func TestEngagementWebhook_BodyTooLarge(t *testing.T) {
	router := newTestRouter(memstore.New())

	big := `{"name":"` + strings.Repeat("a", 2<<20) + `"}`
	rec := post(t, router, "/v1/webhooks/engagements", big)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestVisitWebhook_BothPaths(t *testing.T) {
	store := memstore.New()
	router := newTestRouter(store)

	for _, path := range []string{"/v1/webhooks/visits", "/api/webhook"} {
		rec := post(t, router, path, `{"page":"Contato","source":"google"}`)
		require.Equal(t, http.StatusCreated, rec.Code, path)
		assertCORS(t, rec)
	}
	assert.Equal(t, 2, store.Len(domain.VisitsTable))
}

func TestWebhook_Preflight(t *testing.T) {
	router := newTestRouter(memstore.New())

	for _, path := range []string{"/v1/webhooks/engagements", "/v1/webhooks/visits", "/api/webhook"} {
		t.Run("bare "+path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, path, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assertCORS(t, rec)
		})
		t.Run("browser "+path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, path, nil)
			req.Header.Set("Origin", "https://blog.example.com")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			req.Header.Set("Access-Control-Request-Headers", "Content-Type")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
			assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
			assert.Equal(t, "300", rec.Header().Get("Access-Control-Max-Age"))
			assert.Contains(t, rec.Header().Values("Vary"), "Origin")
		})
	}
}

func TestWebhook_Describe(t *testing.T) {
	router := newTestRouter(memstore.New())

	req := httptest.NewRequest(http.MethodGet, "/v1/webhooks/engagements", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var desc domain.WebhookDescription
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&desc))
	assert.Equal(t, domain.SourceEngagement, desc.Source)
	assert.Equal(t, http.MethodPost, desc.Method)
	assert.Equal(t, []string{"name", "phone"}, desc.RequiredAnyOf)
	assert.Contains(t, desc.ExpectedFields["phone"], "phone")

	req = httptest.NewRequest(http.MethodGet, "/api/webhook", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&desc))
	assert.Equal(t, domain.SourceVisit, desc.Source)
	assert.Equal(t, []string{"page", "page_title", "title"}, desc.ExpectedFields["page_visited"])
}
