package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/boddenberg/atendimento-webhook-go/internal/domain"
	"github.com/boddenberg/atendimento-webhook-go/internal/infra/observability"
	"github.com/boddenberg/atendimento-webhook-go/internal/port"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Backend is the name reported by the pgx store.
const Backend = "postgres"

var tracer = otel.Tracer("postgres")

// Store implements port.RowStore with plain SQL. Rows travel as JSON and
// are mapped onto columns with jsonb_populate_record, so the table
// definition decides the column types.
type Store struct {
	db      *DB
	cb      *gobreaker.CircuitBreaker
	metrics *observability.Metrics
	logger  *zap.Logger
}

var _ port.RowStore = (*Store)(nil)

// NewStore creates a Store. metrics may be nil.
func NewStore(db *DB, cb *gobreaker.CircuitBreaker, metrics *observability.Metrics, logger *zap.Logger) *Store {
	return &Store{db: db, cb: cb, metrics: metrics, logger: logger}
}

// Backend implements port.RowStore.
func (s *Store) Backend() string { return Backend }

// Insert implements port.RowStore with ON CONFLICT (id) DO NOTHING.
func (s *Store) Insert(ctx context.Context, table string, row any) (bool, error) {
	ctx, span := tracer.Start(ctx, "Postgres.Insert")
	defer span.End()
	span.SetAttributes(attribute.String("db.table", table))

	doc, err := json.Marshal(row)
	if err != nil {
		return false, &domain.ErrPersistence{Backend: Backend, Message: err.Error(), Err: err}
	}

	start := time.Now()
	result, err := s.cb.Execute(func() (any, error) {
		tag, err := s.db.Pool.Exec(ctx, insertSQL(table), doc)
		if err != nil {
			return false, translate(err)
		}
		return tag.RowsAffected() == 1, nil
	})
	s.record("insert", start, err)

	if err != nil {
		s.logger.Warn("postgres: insert failed",
			zap.String("table", table),
			zap.String("sqlstate", sqlstate(err)),
			zap.Error(err),
		)
		return false, wrap(err)
	}
	inserted := result.(bool)
	span.SetAttributes(attribute.Bool("db.duplicate", !inserted))
	return inserted, nil
}

// Select implements port.RowStore, aggregating the page into one JSON array.
func (s *Store) Select(ctx context.Context, table string, q port.Query) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "Postgres.Select")
	defer span.End()
	span.SetAttributes(attribute.String("db.table", table))

	var limit any
	if q.Limit > 0 {
		limit = q.Limit
	}

	start := time.Now()
	result, err := s.cb.Execute(func() (any, error) {
		var body []byte
		if err := s.db.Pool.QueryRow(ctx, selectSQL(table, q), limit, q.Offset).Scan(&body); err != nil {
			return nil, translate(err)
		}
		return body, nil
	})
	s.record("select", start, err)

	if err != nil {
		return nil, wrap(err)
	}
	return result.([]byte), nil
}

// Ping implements port.RowStore.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Pool.Ping(ctx); err != nil {
		return wrap(translate(err))
	}
	return nil
}

func (s *Store) record(operation string, start time.Time, err error) {
	if s.metrics != nil {
		s.metrics.RecordStoreCall(Backend, operation, time.Since(start), err)
	}
}

func insertSQL(table string) string {
	ident := pgx.Identifier{table}.Sanitize()
	return "INSERT INTO " + ident +
		" SELECT * FROM jsonb_populate_record(NULL::" + ident + ", $1::jsonb)" +
		" ON CONFLICT (id) DO NOTHING"
}

func selectSQL(table string, q port.Query) string {
	ident := pgx.Identifier{table}.Sanitize()
	order := ""
	agg := "to_jsonb(t)"
	if q.OrderBy != "" {
		col := pgx.Identifier{q.OrderBy}.Sanitize()
		dir := " DESC"
		if q.Ascending {
			dir = " ASC"
		}
		order = " ORDER BY " + col + dir
		agg += " ORDER BY t." + col + dir
	}
	return "SELECT coalesce(jsonb_agg(" + agg + "), '[]'::jsonb) FROM (SELECT * FROM " + ident +
		order + " LIMIT $1 OFFSET $2) t"
}

// translate maps server-side rejections to a 4xx-like status so they do
// not count as backend failures.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		status := 500
		// Classes 22 (data exception), 23 (integrity constraint) and 42
		// (undefined column, bad syntax) are caused by the request.
		if len(pgErr.Code) == 5 && (pgErr.Code[:2] == "22" || pgErr.Code[:2] == "23" || pgErr.Code[:2] == "42") {
			status = 400
		}
		return &domain.ErrPersistence{
			Backend: Backend,
			Status:  status,
			Message: pgErr.Message,
			Err:     err,
		}
	}
	return err
}

func wrap(err error) error {
	var persistence *domain.ErrPersistence
	if errors.As(err, &persistence) {
		return err
	}
	return &domain.ErrPersistence{Backend: Backend, Message: err.Error(), Err: err}
}

func sqlstate(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
