// Package dedupe implements port.DeliveryGuard: a short TTL claim on a
// delivery key so a sender's fast retries skip the store round trip.
package dedupe

import (
	"context"
	"time"

	"github.com/boddenberg/atendimento-webhook-go/internal/infra/cache"
)

// Memory is a process-local guard. Each replica keeps its own window.
type Memory struct {
	claims *cache.InMemory[struct{}]
}

// NewMemory creates a guard whose claims live for ttl.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{claims: cache.New[struct{}](ttl)}
}

// NewMemoryWithClaims wraps an existing cache, mainly for tests.
func NewMemoryWithClaims(claims *cache.InMemory[struct{}]) *Memory {
	return &Memory{claims: claims}
}

// Claim implements port.DeliveryGuard.
func (m *Memory) Claim(_ context.Context, key string) (bool, error) {
	return m.claims.SetIfAbsent(key, struct{}{}), nil
}

// Release implements port.DeliveryGuard.
func (m *Memory) Release(_ context.Context, key string) {
	m.claims.Delete(key)
}

// Close stops the janitor.
func (m *Memory) Close() error {
	m.claims.Close()
	return nil
}
