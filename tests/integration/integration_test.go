package integration_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/atendimento-webhook-go/internal/domain"
	"github.com/boddenberg/atendimento-webhook-go/internal/handler"
	"github.com/boddenberg/atendimento-webhook-go/internal/infra/cache"
	"github.com/boddenberg/atendimento-webhook-go/internal/infra/dedupe"
	"github.com/boddenberg/atendimento-webhook-go/internal/infra/observability"
	"github.com/boddenberg/atendimento-webhook-go/internal/infra/resilience"
	"github.com/boddenberg/atendimento-webhook-go/internal/infra/supabase"
	"github.com/boddenberg/atendimento-webhook-go/internal/normalize"
	"github.com/boddenberg/atendimento-webhook-go/internal/service"

	"go.uber.org/zap"
)

// fakePostgREST keeps rows per table and honours ignore-duplicates on id.
type fakePostgREST struct {
	mu      sync.Mutex
	rows    map[string][]json.RawMessage
	ids     map[string]bool
	inserts int
	fail    bool
}

func newFakePostgREST() *fakePostgREST {
	return &fakePostgREST{rows: map[string][]json.RawMessage{}, ids: map[string]bool{}}
}

func (f *fakePostgREST) insertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inserts
}

func (f *fakePostgREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
	w.Header().Set("Content-Type", "application/json")

	if f.fail {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"code":"22007","message":"invalid input syntax for type timestamp with time zone: \"N/A\""}`)
		return
	}

	switch r.Method {
	case http.MethodPost:
		f.inserts++
		var batch []json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"message":"bad json"}`)
			return
		}
		var created []json.RawMessage
		for _, row := range batch {
			var key struct {
				ID string `json:"id"`
			}
			json.Unmarshal(row, &key)
			if f.ids[table+"/"+key.ID] {
				continue
			}
			f.ids[table+"/"+key.ID] = true
			f.rows[table] = append(f.rows[table], row)
			created = append(created, row)
		}
		w.WriteHeader(http.StatusCreated)
		if created == nil {
			created = []json.RawMessage{}
		}
		json.NewEncoder(w).Encode(created)
	case http.MethodGet:
		rows := f.rows[table]
		if rows == nil {
			rows = []json.RawMessage{}
		}
		json.NewEncoder(w).Encode(rows)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newService(t *testing.T, upstream string) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	store := supabase.NewClient(
		&http.Client{Timeout: 5 * time.Second},
		upstream,
		"anon-key",
		"service-key",
		resilience.NewCircuitBreaker("integration"),
		resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond},
		metrics,
		logger,
	)
	guard := dedupe.NewMemory(time.Minute)
	t.Cleanup(func() { guard.Close() })
	summaries := cache.New[*domain.DashboardSummary](time.Second)
	t.Cleanup(summaries.Close)

	engagements := normalize.NewAssembler(normalize.DefaultOptions())
	visits := normalize.NewVisitAssembler(normalize.VisitOptions{})

	ingest := service.NewIngestion(store, guard, engagements, visits, metrics, logger)
	dash := service.NewDashboard(store, summaries, logger)
	return handler.NewRouter(ingest, dash, metrics, logger)
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// TestIntegration_FullFlow posts deliveries through the real router and
// Supabase client against a fake PostgREST, then reads them back through
// the dashboard API.
func TestIntegration_FullFlow(t *testing.T) {
	upstream := newFakePostgREST()
	supabaseServer := httptest.NewServer(upstream)
	defer supabaseServer.Close()

	server := httptest.NewServer(newService(t, supabaseServer.URL))
	defer server.Close()

	// --- Engagement via conversation envelope ---
	resp := postJSON(t, server.URL+"/v1/webhooks/engagements", `{
		"conversation": {
			"id": "conv-1",
			"status": "resolved",
			"contact": {"name": "Marta", "phone": "+5548999990000"},
			"messages": [
				{"created_at": "2025-03-10T14:30:00Z", "text": "Olá"},
				{"created_at": "2025-03-10T14:31:00Z", "text": "<p>Quero um orçamento</p>"}
			],
			"tags": ["orcamento"]
		}
	}`)
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected CORS header on webhook response")
	}

	// --- Same delivery again: short-circuited by the guard ---
	resp = postJSON(t, server.URL+"/v1/webhooks/engagements", `{"conversation":{"id":"conv-1","contact":{"name":"Marta"}}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for duplicate, got %d", resp.StatusCode)
	}
	var dup domain.WebhookAccepted
	json.NewDecoder(resp.Body).Decode(&dup)
	if !dup.Duplicate {
		t.Error("expected duplicate flag")
	}
	if n := upstream.insertCount(); n != 1 {
		t.Errorf("expected 1 upstream insert, got %d", n)
	}

	// --- Visit through the legacy path ---
	resp = postJSON(t, server.URL+"/api/webhook", `{"id":"visit-1","page":"Financiamento","utm_source":"google","converted":true}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 for visit, got %d", resp.StatusCode)
	}

	// --- Read back ---
	listResp, err := http.Get(server.URL + "/v1/engagements")
	if err != nil {
		t.Fatalf("GET engagements: %v", err)
	}
	defer listResp.Body.Close()
	var list domain.ListResponse[domain.Engagement]
	if err := json.NewDecoder(listResp.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Data) != 1 {
		t.Fatalf("expected 1 engagement, got %d", len(list.Data))
	}
	e := list.Data[0]
	if e.ID != "conv-1" || e.Status != domain.StatusFinished || len(e.Messages) != 2 {
		t.Errorf("unexpected engagement %+v", e)
	}
	if e.Messages[0].Time != "14:30:00" || e.Messages[1].Content != "<p>Quero um orçamento</p>" {
		t.Errorf("unexpected history %+v", e.Messages)
	}

	summaryResp, err := http.Get(server.URL + "/v1/analytics/summary")
	if err != nil {
		t.Fatalf("GET summary: %v", err)
	}
	defer summaryResp.Body.Close()
	var summary domain.DashboardSummary
	json.NewDecoder(summaryResp.Body).Decode(&summary)
	if summary.Engagements.Total != 1 || summary.Visits.Conversions != 1 {
		t.Errorf("unexpected summary %+v", summary)
	}
}

// TestIntegration_ProviderErrorSurfaces checks the provider's message is
// returned verbatim and nothing is retried on the write path.
func TestIntegration_ProviderErrorSurfaces(t *testing.T) {
	upstream := newFakePostgREST()
	upstream.fail = true
	supabaseServer := httptest.NewServer(upstream)
	defer supabaseServer.Close()

	server := httptest.NewServer(newService(t, supabaseServer.URL))
	defer server.Close()

	resp := postJSON(t, server.URL+"/v1/webhooks/engagements", `{"name":"Ana"}`)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	var failed domain.WebhookFailed
	json.NewDecoder(resp.Body).Decode(&failed)
	if !strings.Contains(failed.Details, "invalid input syntax") {
		t.Errorf("expected provider message, got %q", failed.Details)
	}
}
