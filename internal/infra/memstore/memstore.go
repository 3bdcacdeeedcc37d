// Package memstore is an in-process port.RowStore for local development,
// the CLI and tests. Rows are kept as JSON, exactly as the other backends
// receive them.
package memstore

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/boddenberg/atendimento-webhook-go/internal/domain"
	"github.com/boddenberg/atendimento-webhook-go/internal/port"

	"github.com/tidwall/gjson"
)

// Backend is the name reported by the in-memory store.
const Backend = "memory"

type row struct {
	seq int
	doc json.RawMessage
}

// Store keeps rows per table, unique by id.
type Store struct {
	mu     sync.RWMutex
	tables map[string]map[string]row
	seq    int
}

var _ port.RowStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{tables: make(map[string]map[string]row)}
}

// Backend implements port.RowStore.
func (s *Store) Backend() string { return Backend }

// Ping implements port.RowStore.
func (s *Store) Ping(context.Context) error { return nil }

// Insert implements port.RowStore.
func (s *Store) Insert(_ context.Context, table string, r any) (bool, error) {
	doc, err := json.Marshal(r)
	if err != nil {
		return false, &domain.ErrPersistence{Backend: Backend, Message: err.Error(), Err: err}
	}
	id := gjson.GetBytes(doc, "id")
	if !id.Exists() || id.String() == "" {
		return false, &domain.ErrPersistence{
			Backend: Backend,
			Status:  400,
			Message: `null value in column "id" violates not-null constraint`,
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.tables[table]
	if !ok {
		rows = make(map[string]row)
		s.tables[table] = rows
	}
	if _, exists := rows[id.String()]; exists {
		return false, nil
	}
	s.seq++
	rows[id.String()] = row{seq: s.seq, doc: doc}
	return true, nil
}

// Select implements port.RowStore. Ordering compares the column's values
// as JSON numbers when both are numeric and as strings otherwise; ties
// keep insertion order.
func (s *Store) Select(_ context.Context, table string, q port.Query) ([]byte, error) {
	s.mu.RLock()
	rows := make([]row, 0, len(s.tables[table]))
	for _, r := range s.tables[table] {
		rows = append(rows, r)
	}
	s.mu.RUnlock()

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	if q.OrderBy != "" {
		sort.SliceStable(rows, func(i, j int) bool {
			a := gjson.GetBytes(rows[i].doc, q.OrderBy)
			b := gjson.GetBytes(rows[j].doc, q.OrderBy)
			if q.Ascending {
				return less(a, b)
			}
			return less(b, a)
		})
	}

	if q.Offset > 0 {
		if q.Offset >= len(rows) {
			rows = nil
		} else {
			rows = rows[q.Offset:]
		}
	}
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, r := range rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(r.doc)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// Len counts the rows of table.
func (s *Store) Len(table string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables[table])
}

func less(a, b gjson.Result) bool {
	if a.Type == gjson.Number && b.Type == gjson.Number {
		return a.Num < b.Num
	}
	return a.String() < b.String()
}
