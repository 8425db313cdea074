package integrations

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/beam-cloud/onleads/pkg/filter"
	"github.com/beam-cloud/onleads/pkg/types"
)

// SortDirection orders query results
type SortDirection string

const (
	Ascending  SortDirection = "ascending"
	Descending SortDirection = "descending"
)

// SortSpec orders by a property, or by a backend timestamp when Timestamp is set
// (e.g. "created_time", "last_edited_time")
type SortSpec struct {
	Property  string        `json:"property,omitempty"`
	Timestamp string        `json:"timestamp,omitempty"`
	Direction SortDirection `json:"direction"`
}

// Integration is the record store contract every backend implements. An
// Integration is bound to one RecordKind and owns that kind's schema.
//
// Every operation connects lazily if Connect has not succeeded yet. Implementations
// hold no locks across calls: each call is atomic only as far as the backend's own
// request is.
type Integration interface {
	// Kind returns the record kind this integration reads and writes
	Kind() types.RecordKind

	// Connect establishes a session. It is idempotent.
	Connect(ctx context.Context) error

	// Insert persists a new record and returns the backend assigned identifier.
	// Fields the backend has no mapping for are dropped.
	Insert(ctx context.Context, record types.Record) (types.RecordID, error)

	// Update merges the given fields into an existing record
	Update(ctx context.Context, id types.RecordID, patch types.Record) error

	// Archive marks a record inactive. It is not a hard delete.
	Archive(ctx context.Context, id types.RecordID) error

	// Query returns every matching record, across all backend pages, each carrying
	// its identifier under types.RecordIDKey. A nil filter matches all records.
	Query(ctx context.Context, expr filter.Expression, sorts ...SortSpec) ([]types.Record, error)
}

// Registry holds the integration bound to each record kind
type Registry struct {
	mu           sync.RWMutex
	integrations map[types.RecordKind]Integration
}

// NewRegistry creates a new integration registry
func NewRegistry() *Registry {
	return &Registry{
		integrations: make(map[types.RecordKind]Integration),
	}
}

// Register adds an integration, replacing any previous one for the same kind
func (r *Registry) Register(i Integration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.integrations[i.Kind()] = i
}

// Get returns the integration for a kind
func (r *Registry) Get(kind types.RecordKind) (Integration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.integrations[kind]
	if !ok {
		return nil, fmt.Errorf("no integration registered for %s", kind)
	}
	return i, nil
}

// Kinds returns all registered kinds in sorted order
func (r *Registry) Kinds() []types.RecordKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]types.RecordKind, 0, len(r.integrations))
	for kind := range r.integrations {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
