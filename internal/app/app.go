// Package app wires configuration into the concrete store, delivery guard
// and assemblers shared by the server and the operator CLI.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/boddenberg/atendimento-webhook-go/internal/config"
	"github.com/boddenberg/atendimento-webhook-go/internal/infra/dedupe"
	"github.com/boddenberg/atendimento-webhook-go/internal/infra/memstore"
	"github.com/boddenberg/atendimento-webhook-go/internal/infra/observability"
	"github.com/boddenberg/atendimento-webhook-go/internal/infra/postgres"
	"github.com/boddenberg/atendimento-webhook-go/internal/infra/resilience"
	"github.com/boddenberg/atendimento-webhook-go/internal/infra/supabase"
	"github.com/boddenberg/atendimento-webhook-go/internal/normalize"
	"github.com/boddenberg/atendimento-webhook-go/internal/port"

	"go.uber.org/zap"
)

// Store is an opened row store plus whatever must be released with it.
type Store struct {
	port.RowStore
	db *postgres.DB
}

// Close releases the store's connections.
func (s *Store) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// DB returns the pgx pool behind a postgres store, nil otherwise.
func (s *Store) DB() *postgres.DB {
	return s.db
}

// OpenStore builds the row store selected by STORE_BACKEND. It is created
// once per process and shared by every request.
func OpenStore(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *zap.Logger) (*Store, error) {
	cb := resilience.NewCircuitBreaker("row-store")

	switch cfg.StoreBackend {
	case config.BackendSupabase:
		logger.Info("using Supabase as row store",
			zap.String("supabase_url", cfg.SupabaseURL),
			zap.Bool("reads_enabled", cfg.SupabaseAnonKey != ""),
		)
		client := supabase.NewClient(
			&http.Client{Timeout: cfg.HTTPTimeout},
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			cb,
			resilience.Config{MaxRetries: cfg.MaxRetries, InitialBackoff: cfg.InitialBackoff},
			metrics,
			logger,
		)
		return &Store{RowStore: client}, nil

	case config.BackendPostgres:
		db, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.AutoMigrate {
			if err := db.Migrate(ctx); err != nil {
				db.Close()
				return nil, fmt.Errorf("migrate postgres: %w", err)
			}
			logger.Info("postgres schema migrated")
		}
		logger.Info("using PostgreSQL as row store")
		return &Store{RowStore: postgres.NewStore(db, cb, metrics, logger), db: db}, nil

	case config.BackendMemory:
		logger.Warn("using in-memory row store, records are lost on restart")
		return &Store{RowStore: memstore.New()}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// Guard is the delivery de-duplication window and its cleanup.
type Guard struct {
	port.DeliveryGuard
	close func() error
}

// Close stops the guard.
func (g *Guard) Close() error {
	if g.close == nil {
		return nil
	}
	return g.close()
}

// OpenGuard returns a Redis-backed window when REDIS_URL is set and an
// in-process one otherwise. A DEDUPE_TTL of zero disables the window and
// returns a nil DeliveryGuard.
func OpenGuard(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Guard, error) {
	if cfg.DedupeTTL == 0 {
		logger.Info("delivery de-duplication window disabled")
		return &Guard{}, nil
	}
	if cfg.RedisURL != "" {
		r, err := dedupe.NewRedis(cfg.RedisURL, cfg.DedupeTTL, logger)
		if err != nil {
			return nil, err
		}
		if err := r.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, claims will write through until it recovers", zap.Error(err))
		}
		logger.Info("delivery de-duplication window on redis", zap.Duration("ttl", cfg.DedupeTTL))
		return &Guard{DeliveryGuard: r, close: r.Close}, nil
	}
	m := dedupe.NewMemory(cfg.DedupeTTL)
	logger.Info("delivery de-duplication window in memory", zap.Duration("ttl", cfg.DedupeTTL))
	return &Guard{DeliveryGuard: m, close: m.Close}, nil
}

// Assemblers builds the engagement and visit assemblers from the
// normalization settings and the optional provider path file.
func Assemblers(cfg *config.Config) (*normalize.Assembler, *normalize.VisitAssembler, error) {
	engagementPaths, visitPaths, err := config.LoadProviderPaths(cfg.ProviderPathsFile)
	if err != nil {
		return nil, nil, err
	}
	policy, ok := normalize.ParseEndTimePolicy(cfg.EndTimePolicy)
	if !ok {
		policy = normalize.EndTimeNull
	}

	opts := normalize.DefaultOptions()
	opts.Paths = engagementPaths
	opts.Strict = cfg.StrictValidation
	opts.AnsweredDefault = cfg.AnsweredDefault
	opts.EndTimePolicy = policy
	opts.Location = cfg.Location()

	visits := normalize.NewVisitAssembler(normalize.VisitOptions{
		Paths:            visitPaths,
		DefaultOriginURL: cfg.DefaultOriginURL,
	})
	return normalize.NewAssembler(opts), visits, nil
}
