// Package supabase provides a client for the Supabase PostgREST API.
// It is the production row store for engagements and visits.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/boddenberg/atendimento-webhook-go/internal/domain"
	"github.com/boddenberg/atendimento-webhook-go/internal/infra/observability"
	"github.com/boddenberg/atendimento-webhook-go/internal/infra/resilience"
	"github.com/boddenberg/atendimento-webhook-go/internal/port"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Backend is the name reported by the Supabase store.
const Backend = "supabase"

var tracer = otel.Tracer("supabase")

// Client wraps HTTP calls to Supabase PostgREST API.
//
// Writes authenticate with the service role key. Reads for the dashboard
// use the anon key, so row level security applies to them; without an anon
// key reads return no rows.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	anonKey        string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	cfg            resilience.Config
	metrics        *observability.Metrics
	logger         *zap.Logger
}

var _ port.RowStore = (*Client)(nil)

// NewClient creates a Supabase client. metrics may be nil.
func NewClient(httpClient *http.Client, baseURL, anonKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, metrics *observability.Metrics, logger *zap.Logger) *Client {
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		anonKey:        anonKey,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		cfg:            cfg,
		metrics:        metrics,
		logger:         logger,
	}
}

// Backend implements port.RowStore.
func (c *Client) Backend() string { return Backend }

// Insert implements port.RowStore. The row is posted with
// resolution=ignore-duplicates on the id column, so PostgREST answers an
// empty representation when the id already exists. Writes are never
// retried.
func (c *Client) Insert(ctx context.Context, table string, row any) (bool, error) {
	ctx, span := tracer.Start(ctx, "Supabase.Insert")
	defer span.End()
	span.SetAttributes(attribute.String("db.table", table))

	start := time.Now()
	result, err := c.cb.Execute(func() (any, error) {
		body, err := c.doPost(ctx, table+"?on_conflict=id", []any{row})
		if err != nil {
			return false, err
		}
		return !isEmptyArray(body), nil
	})
	c.record("insert", start, err)

	if err != nil {
		return false, c.wrap(err)
	}
	inserted := result.(bool)
	span.SetAttributes(attribute.Bool("db.duplicate", !inserted))
	return inserted, nil
}

// Select implements port.RowStore.
func (c *Client) Select(ctx context.Context, table string, q port.Query) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "Supabase.Select")
	defer span.End()
	span.SetAttributes(attribute.String("db.table", table))

	if c.anonKey == "" {
		c.logger.Warn("supabase: anon key not configured, dashboard reads return no rows",
			zap.String("table", table),
		)
		return []byte("[]"), nil
	}

	path := table + "?" + selectQuery(q)
	var body []byte

	start := time.Now()
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			b, err := c.doRequest(ctx, http.MethodGet, path, c.anonKey, nil)
			if err != nil {
				return err
			}
			body = b
			return nil
		})
	})
	c.record("select", start, err)

	if err != nil {
		return nil, c.wrap(err)
	}
	if len(body) == 0 {
		return []byte("[]"), nil
	}
	return body, nil
}

// Ping implements port.RowStore. Any answer below 500 from the PostgREST
// root counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Supabase.Ping")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/rest/v1/", nil)
	if err != nil {
		return err
	}
	c.authorize(req, c.serviceRoleKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.ErrPersistence{Backend: Backend, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return &domain.ErrPersistence{Backend: Backend, Status: resp.StatusCode, Message: resp.Status}
	}
	return nil
}

func (c *Client) record(operation string, start time.Time, err error) {
	if c.metrics != nil {
		c.metrics.RecordStoreCall(Backend, operation, time.Since(start), err)
	}
}

// wrap turns transport and breaker failures into *domain.ErrPersistence;
// provider rejections already are one.
func (c *Client) wrap(err error) error {
	var persistence *domain.ErrPersistence
	if errors.As(err, &persistence) {
		return err
	}
	return &domain.ErrPersistence{Backend: Backend, Message: err.Error(), Err: err}
}

func selectQuery(q port.Query) string {
	v := "select=*"
	if q.OrderBy != "" {
		dir := "desc"
		if q.Ascending {
			dir = "asc"
		}
		v += "&order=" + q.OrderBy + "." + dir
	}
	if q.Limit > 0 {
		v += "&limit=" + strconv.Itoa(q.Limit)
	}
	if q.Offset > 0 {
		v += "&offset=" + strconv.Itoa(q.Offset)
	}
	return v
}

func (c *Client) authorize(req *http.Request, key string) {
	req.Header.Set("apikey", key)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", key))
}
