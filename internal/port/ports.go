// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
)

// Query selects a page of rows from a table.
type Query struct {
	OrderBy   string
	Ascending bool
	Limit     int
	Offset    int
}

// RowStore persists canonical records as JSON rows keyed by their "id"
// column. Implemented by the Supabase adapter, the pgx adapter and the
// in-memory store.
type RowStore interface {
	// Insert writes row to table. A row whose id already exists is left
	// untouched and reported with inserted=false.
	Insert(ctx context.Context, table string, row any) (inserted bool, err error)

	// Select returns the matching rows as a JSON array.
	Select(ctx context.Context, table string, q Query) ([]byte, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Backend names the implementation for logs, metrics and health.
	Backend() string
}

// DeliveryGuard short-circuits a sender's fast retries of one delivery.
// It is an optimization only: the store's idempotent insert stays the
// source of truth.
type DeliveryGuard interface {
	// Claim records key and reports whether this call was the first to do
	// so inside the window.
	Claim(ctx context.Context, key string) (bool, error)

	// Release drops a claim so a later retry is processed again.
	Release(ctx context.Context, key string)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
