package supabase_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/atendimento-webhook-go/internal/domain"
	"github.com/boddenberg/atendimento-webhook-go/internal/infra/observability"
	"github.com/boddenberg/atendimento-webhook-go/internal/infra/resilience"
	"github.com/boddenberg/atendimento-webhook-go/internal/infra/supabase"
	"github.com/boddenberg/atendimento-webhook-go/internal/port"

	"go.uber.org/zap"
)

func newTestClient(t *testing.T, anonKey string, h http.HandlerFunc) *supabase.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return supabase.NewClient(
		srv.Client(),
		srv.URL,
		anonKey,
		"service-key",
		resilience.NewCircuitBreaker("supabase-test"),
		resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond},
		observability.NewMetrics(),
		zap.NewNop(),
	)
}

func TestInsert_SendsIdempotentPost(t *testing.T) {
	var got *http.Request
	var body []byte
	c := newTestClient(t, "anon-key", func(w http.ResponseWriter, r *http.Request) {
		got = r
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`[{"id":"abc"}]`))
	})

	inserted, err := c.Insert(context.Background(), "atendimentos", map[string]any{"id": "abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !inserted {
		t.Fatal("expected inserted=true")
	}

	if got.Method != http.MethodPost {
		t.Errorf("expected POST, got %s", got.Method)
	}
	if got.URL.Path != "/rest/v1/atendimentos" || got.URL.Query().Get("on_conflict") != "id" {
		t.Errorf("unexpected url %s", got.URL.String())
	}
	if h := got.Header.Get("Prefer"); h != "resolution=ignore-duplicates,return=representation" {
		t.Errorf("unexpected Prefer header %q", h)
	}
	if h := got.Header.Get("Authorization"); h != "Bearer service-key" {
		t.Errorf("writes must use the service key, got %q", h)
	}

	var rows []map[string]any
	if err := json.Unmarshal(body, &rows); err != nil || len(rows) != 1 || rows[0]["id"] != "abc" {
		t.Errorf("unexpected request body %s", body)
	}
}

func TestInsert_EmptyRepresentationIsDuplicate(t *testing.T) {
	c := newTestClient(t, "anon-key", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`[]`))
	})

	inserted, err := c.Insert(context.Background(), "atendimentos", map[string]any{"id": "abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inserted {
		t.Fatal("expected duplicate to report inserted=false")
	}
}

func TestInsert_ProviderMessageVerbatimAndNoRetry(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, "anon-key", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"code":"PGRST000","message":"Could not connect to the database","details":null,"hint":null}`))
	})

	_, err := c.Insert(context.Background(), "atendimentos", map[string]any{"id": "abc"})

	var persistence *domain.ErrPersistence
	if !errors.As(err, &persistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if persistence.Message != "Could not connect to the database" {
		t.Errorf("expected provider message verbatim, got %q", persistence.Message)
	}
	if persistence.Status != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", persistence.Status)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("writes must not be retried, got %d calls", n)
	}
}

func TestSelect_UsesAnonKeyAndQuery(t *testing.T) {
	var got *http.Request
	c := newTestClient(t, "anon-key", func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Write([]byte(`[{"id":"1"},{"id":"2"}]`))
	})

	body, err := c.Select(context.Background(), "atendimentos", port.Query{OrderBy: "criado_em", Limit: 20, Offset: 40})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != `[{"id":"1"},{"id":"2"}]` {
		t.Errorf("unexpected body %s", body)
	}

	q := got.URL.Query()
	if q.Get("order") != "criado_em.desc" || q.Get("limit") != "20" || q.Get("offset") != "40" || q.Get("select") != "*" {
		t.Errorf("unexpected query %s", got.URL.RawQuery)
	}
	if h := got.Header.Get("apikey"); h != "anon-key" {
		t.Errorf("reads must use the anon key, got %q", h)
	}
}

func TestSelect_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, "anon-key", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[]`))
	})

	if _, err := c.Select(context.Background(), "visitantes_site", port.Query{}); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("expected 3 calls, got %d", n)
	}
}

func TestSelect_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, "anon-key", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"column atendimentos.nope does not exist"}`))
	})

	_, err := c.Select(context.Background(), "atendimentos", port.Query{OrderBy: "nope"})
	if err == nil {
		t.Fatal("expected error")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("expected 1 call, got %d", n)
	}
}

func TestSelect_WithoutAnonKeyReturnsNoRows(t *testing.T) {
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected without anon key")
	})

	body, err := c.Select(context.Background(), "atendimentos", port.Query{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != "[]" {
		t.Errorf("expected empty array, got %s", body)
	}
}

func TestPing(t *testing.T) {
	c := newTestClient(t, "anon-key", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("expected reachable, got %v", err)
	}

	down := newTestClient(t, "anon-key", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	if err := down.Ping(context.Background()); err == nil {
		t.Fatal("expected error on 500")
	}
}
