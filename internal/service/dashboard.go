package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/boddenberg/atendimento-webhook-go/internal/domain"
	"github.com/boddenberg/atendimento-webhook-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var dashboardTracer = otel.Tracer("service/dashboard")

const (
	orderColumn   = "criado_em"
	scanPageSize  = 1000
	maxScanRows   = 50000
	topBuckets    = 10
	summaryCached = "summary"
)

// Dashboard serves the read-only analytics API over the stored rows.
type Dashboard struct {
	store  port.RowStore
	cache  port.Cache[*domain.DashboardSummary]
	now    func() time.Time
	logger *zap.Logger
}

// NewDashboard creates the dashboard service. cache may be nil.
func NewDashboard(store port.RowStore, cache port.Cache[*domain.DashboardSummary], logger *zap.Logger) *Dashboard {
	return &Dashboard{store: store, cache: cache, now: time.Now, logger: logger}
}

// ListEngagements returns one page of engagements, newest first unless
// ascending is set.
func (d *Dashboard) ListEngagements(ctx context.Context, page, pageSize int, ascending bool) (*domain.ListResponse[domain.Engagement], error) {
	ctx, span := dashboardTracer.Start(ctx, "Dashboard.ListEngagements")
	defer span.End()

	return listPage[domain.Engagement](ctx, d.store, domain.EngagementsTable, page, pageSize, ascending)
}

// ListVisits returns one page of visits.
func (d *Dashboard) ListVisits(ctx context.Context, page, pageSize int, ascending bool) (*domain.ListResponse[domain.Visit], error) {
	ctx, span := dashboardTracer.Start(ctx, "Dashboard.ListVisits")
	defer span.End()

	return listPage[domain.Visit](ctx, d.store, domain.VisitsTable, page, pageSize, ascending)
}

// AllEngagements scans the engagements table for export.
func (d *Dashboard) AllEngagements(ctx context.Context) ([]domain.Engagement, error) {
	ctx, span := dashboardTracer.Start(ctx, "Dashboard.AllEngagements")
	defer span.End()

	return scanAll[domain.Engagement](ctx, d.store, domain.EngagementsTable)
}

// AllVisits scans the visits table for export.
func (d *Dashboard) AllVisits(ctx context.Context) ([]domain.Visit, error) {
	ctx, span := dashboardTracer.Start(ctx, "Dashboard.AllVisits")
	defer span.End()

	return scanAll[domain.Visit](ctx, d.store, domain.VisitsTable)
}

// Summary aggregates both tables. The two scans run concurrently and the
// result is cached for a short while.
func (d *Dashboard) Summary(ctx context.Context) (*domain.DashboardSummary, error) {
	ctx, span := dashboardTracer.Start(ctx, "Dashboard.Summary")
	defer span.End()

	if d.cache != nil {
		if cached, ok := d.cache.Get(summaryCached); ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return cached, nil
		}
	}

	var (
		engagements []domain.Engagement
		visits      []domain.Visit
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := scanAll[domain.Engagement](gCtx, d.store, domain.EngagementsTable)
		if err != nil {
			d.logger.Error("failed to scan engagements", zap.Error(err))
			return fmt.Errorf("engagements scan: %w", err)
		}
		engagements = rows
		return nil
	})
	g.Go(func() error {
		rows, err := scanAll[domain.Visit](gCtx, d.store, domain.VisitsTable)
		if err != nil {
			d.logger.Error("failed to scan visits", zap.Error(err))
			return fmt.Errorf("visits scan: %w", err)
		}
		visits = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &domain.DashboardSummary{
		Engagements: EngagementSummary(engagements),
		Visits:      VisitSummary(visits),
		GeneratedAt: d.now().UTC().Format(time.RFC3339),
	}
	if d.cache != nil {
		d.cache.Set(summaryCached, summary)
	}
	return summary, nil
}

// Health pings the store.
func (d *Dashboard) Health(ctx context.Context) domain.ServiceHealth {
	start := time.Now()
	err := d.store.Ping(ctx)
	h := domain.ServiceHealth{
		Name:        d.store.Backend(),
		Status:      "healthy",
		LatencyMs:   time.Since(start).Milliseconds(),
		LastChecked: d.now().UTC().Format(time.RFC3339),
	}
	if err != nil {
		h.Status = "unhealthy"
		h.Detail = err.Error()
	}
	return h
}

// EngagementSummary computes engagement statistics. Customers are unique
// by phone; the phone sentinel is not a customer.
func EngagementSummary(rows []domain.Engagement) domain.EngagementStats {
	stats := domain.EngagementStats{
		Total:    len(rows),
		ByStatus: map[string]int{},
		TopTags:  []domain.CountBy{},
	}
	phones := map[string]struct{}{}
	tags := map[string]int{}

	for _, r := range rows {
		stats.ByStatus[r.Status]++
		if r.Answered {
			stats.Answered++
		}
		if r.CustomerPhone != "" && r.CustomerPhone != domain.PhoneNotProvided {
			phones[r.CustomerPhone] = struct{}{}
		}
		for _, tag := range r.Tags {
			tags[tag]++
		}
	}

	stats.UniqueCustomers = len(phones)
	stats.AnsweredRate = ratio(stats.Answered, stats.Total)
	stats.TopTags = topCounts(tags, topBuckets)
	return stats
}

// VisitSummary computes visit statistics.
func VisitSummary(rows []domain.Visit) domain.VisitStats {
	stats := domain.VisitStats{Total: len(rows)}
	sources := map[string]int{}
	devices := map[string]int{}
	pages := map[string]int{}
	var dwell int64

	for _, v := range rows {
		if v.Converted {
			stats.Conversions++
		}
		dwell += v.DwellTimeSeconds
		sources[v.TrafficSource]++
		devices[v.DeviceType]++
		pages[v.PageVisited]++
	}

	stats.ConversionRate = ratio(stats.Conversions, stats.Total)
	if stats.Total > 0 {
		stats.AvgDwellSeconds = float64(dwell) / float64(stats.Total)
	}
	stats.BySource = topCounts(sources, 0)
	stats.ByDevice = topCounts(devices, 0)
	stats.TopPages = topCounts(pages, topBuckets)
	return stats
}

func listPage[T any](ctx context.Context, store port.RowStore, table string, page, pageSize int, ascending bool) (*domain.ListResponse[T], error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	body, err := store.Select(ctx, table, port.Query{
		OrderBy:   orderColumn,
		Ascending: ascending,
		Limit:     pageSize + 1,
		Offset:    (page - 1) * pageSize,
	})
	if err != nil {
		return nil, err
	}

	rows, err := decodeRows[T](store.Backend(), body)
	if err != nil {
		return nil, err
	}

	hasMore := len(rows) > pageSize
	if hasMore {
		rows = rows[:pageSize]
	}
	return &domain.ListResponse[T]{Data: rows, Page: page, PageSize: pageSize, HasMore: hasMore}, nil
}

func scanAll[T any](ctx context.Context, store port.RowStore, table string) ([]T, error) {
	all := make([]T, 0)
	for offset := 0; offset < maxScanRows; offset += scanPageSize {
		body, err := store.Select(ctx, table, port.Query{
			OrderBy: orderColumn,
			Limit:   scanPageSize,
			Offset:  offset,
		})
		if err != nil {
			return nil, err
		}
		rows, err := decodeRows[T](store.Backend(), body)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
		if len(rows) < scanPageSize {
			break
		}
	}
	return all, nil
}

func decodeRows[T any](backend string, body []byte) ([]T, error) {
	rows := make([]T, 0)
	if len(body) == 0 {
		return rows, nil
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, &domain.ErrPersistence{Backend: backend, Message: "decode rows: " + err.Error(), Err: err}
	}
	return rows, nil
}

func topCounts(counts map[string]int, limit int) []domain.CountBy {
	out := make([]domain.CountBy, 0, len(counts))
	for k, n := range counts {
		out = append(out, domain.CountBy{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func ratio(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}
