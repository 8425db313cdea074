// Package memory is an in-process record store used in local mode and in tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/beam-cloud/onleads/pkg/filter"
	"github.com/beam-cloud/onleads/pkg/integrations"
	"github.com/beam-cloud/onleads/pkg/schema"
	"github.com/beam-cloud/onleads/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type entry struct {
	record   types.Record
	archived bool
	created  int64
	edited   int64
}

// Integration implements integrations.Integration using in-memory storage
type Integration struct {
	kind    types.RecordKind
	mapping schema.BackendFieldMapping

	mu      sync.RWMutex
	entries map[types.RecordID]*entry
	order   []types.RecordID
	number  int64
	clock   int64

	writes    atomic.Int64
	connected atomic.Bool
}

// New creates an empty in-memory integration for kind
func New(kind types.RecordKind) *Integration {
	return &Integration{
		kind:    kind,
		mapping: schema.Mapping(kind, schema.BackendMemory),
		entries: make(map[types.RecordID]*entry),
	}
}

var _ integrations.Integration = (*Integration)(nil)

func (m *Integration) Kind() types.RecordKind {
	return m.kind
}

func (m *Integration) Connect(ctx context.Context) error {
	if m.connected.CompareAndSwap(false, true) {
		log.Debug().Str("kind", m.kind.String()).Msg("memory integration ready")
	}
	return nil
}

// Writes returns the number of successful inserts, updates and archives
func (m *Integration) Writes() int64 {
	return m.writes.Load()
}

func (m *Integration) Insert(ctx context.Context, record types.Record) (types.RecordID, error) {
	if err := m.Connect(ctx); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := types.RecordID(uuid.NewString())
	m.number++
	m.clock++

	stored := m.normalize(record)
	for field, native := range m.mapping {
		if native == schema.NativeUniqueID {
			stored[field] = m.number
		}
	}

	m.entries[id] = &entry{record: stored, created: m.clock, edited: m.clock}
	m.order = append(m.order, id)
	m.writes.Add(1)

	log.Debug().Str("kind", m.kind.String()).Str("id", id.String()).Msg("inserted record")
	return id, nil
}

func (m *Integration) Update(ctx context.Context, id types.RecordID, patch types.Record) error {
	if err := m.Connect(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return &types.NotFoundError{Kind: m.kind, ID: id.String()}
	}

	for key, value := range m.normalize(patch) {
		e.record[key] = value
	}
	m.clock++
	e.edited = m.clock
	m.writes.Add(1)
	return nil
}

func (m *Integration) Archive(ctx context.Context, id types.RecordID) error {
	if err := m.Connect(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return &types.NotFoundError{Kind: m.kind, ID: id.String()}
	}
	e.archived = true
	m.clock++
	e.edited = m.clock
	m.writes.Add(1)
	return nil
}

func (m *Integration) Query(ctx context.Context, expr filter.Expression, sorts ...integrations.SortSpec) ([]types.Record, error) {
	if err := m.Connect(ctx); err != nil {
		return nil, err
	}

	err := filter.Walk(expr, func(f *filter.FieldFilter) error {
		_, err := schema.NativeKindOf(m.kind, f.Field, schema.BackendMemory)
		return err
	})
	if err != nil {
		return nil, err
	}
	for _, s := range sorts {
		if s.Property == "" {
			continue
		}
		if _, err := schema.NativeKindOf(m.kind, s.Property, schema.BackendMemory); err != nil {
			return nil, err
		}
	}

	m.mu.RLock()
	matched := make([]*entry, 0, len(m.order))
	ids := make(map[*entry]types.RecordID, len(m.order))
	for _, id := range m.order {
		e := m.entries[id]
		if e.archived {
			continue
		}
		ok, err := matches(e.record, expr)
		if err != nil {
			m.mu.RUnlock()
			return nil, err
		}
		if ok {
			matched = append(matched, e)
			ids[e] = id
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		for _, s := range sorts {
			c := compareBy(matched[i], matched[j], s)
			if c == 0 {
				continue
			}
			if s.Direction == integrations.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})

	records := make([]types.Record, 0, len(matched))
	for _, e := range matched {
		record := e.record.Clone()
		record[types.RecordIDKey] = ids[e]
		records = append(records, record)
	}
	m.mu.RUnlock()

	return records, nil
}

// normalize keeps mapped fields only, stores relations as []types.Reference and
// never accepts a caller supplied identifier
func (m *Integration) normalize(record types.Record) types.Record {
	out := make(types.Record, len(record))
	for key, value := range record {
		native, ok := m.mapping[key]
		if !ok {
			if key != types.RecordIDKey {
				log.Warn().Str("kind", m.kind.String()).Str("field", key).Msg("dropping unmapped field")
			}
			continue
		}
		switch native {
		case schema.NativeUniqueID:
			continue
		case schema.NativeRelation:
			out[key] = types.ToReferences(value)
		case schema.NativeMultiSelect:
			if names, ok := value.([]string); ok {
				out[key] = append([]string(nil), names...)
				continue
			}
			out[key] = value
		default:
			out[key] = value
		}
	}
	return out
}

func matches(record types.Record, expr filter.Expression) (bool, error) {
	switch e := expr.(type) {
	case nil:
		return true, nil
	case *filter.FieldFilter:
		return compare(record[e.Field], e.Operator, e.Value)
	case *filter.CompositeFilter:
		if len(e.Filters) == 0 {
			return false, &types.InvalidFilterError{Reason: fmt.Sprintf("%s requires at least one filter", e.Operator)}
		}
		for _, child := range e.Filters {
			ok, err := matches(record, child)
			if err != nil {
				return false, err
			}
			if e.Operator == filter.Or && ok {
				return true, nil
			}
			if e.Operator == filter.And && !ok {
				return false, nil
			}
		}
		return e.Operator == filter.And, nil
	}
	return false, &types.InvalidFilterError{Reason: fmt.Sprintf("unsupported filter type %T", expr)}
}

func compare(actual any, op filter.Operator, expected any) (bool, error) {
	switch op {
	case filter.IsEmpty:
		return isEmpty(actual), nil
	case filter.IsNotEmpty:
		return !isEmpty(actual), nil
	case filter.Equals:
		return equals(actual, expected), nil
	case filter.DoesNotEqual:
		return !equals(actual, expected), nil
	case filter.Contains:
		return contains(actual, expected), nil
	case filter.DoesNotContain:
		return !contains(actual, expected), nil
	}
	return false, &types.InvalidFilterError{Reason: fmt.Sprintf("unknown operator %q", op)}
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case *string:
		return x == nil || *x == ""
	case []types.Reference:
		return len(x) == 0
	case []string:
		return len(x) == 0
	}
	return false
}

func equals(actual, expected any) bool {
	if refs, ok := actual.([]types.Reference); ok {
		return types.ContainsReference(refs, text(expected))
	}
	if a, ok := types.ToInt64(actual); ok {
		if _, isString := actual.(string); !isString {
			if b, ok := types.ToInt64(expected); ok {
				return a == b
			}
		}
	}
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}
	return text(actual) == text(expected)
}

func contains(actual, expected any) bool {
	switch x := actual.(type) {
	case []types.Reference:
		return types.ContainsReference(x, text(expected))
	case []string:
		needle := text(expected)
		for _, s := range x {
			if s == needle {
				return true
			}
		}
		return false
	case nil:
		return false
	}
	return strings.Contains(text(actual), text(expected))
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case *string:
		if x == nil {
			return ""
		}
		return *x
	case types.Reference:
		return x.ID
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

func compareBy(a, b *entry, s integrations.SortSpec) int {
	switch s.Timestamp {
	case "created_time":
		return compareInts(a.created, b.created)
	case "last_edited_time":
		return compareInts(a.edited, b.edited)
	}
	if s.Property == "" {
		return 0
	}

	av, bv := a.record[s.Property], b.record[s.Property]
	if x, ok := types.ToInt64(av); ok {
		if y, ok := types.ToInt64(bv); ok {
			return compareInts(x, y)
		}
	}
	return strings.Compare(text(av), text(bv))
}

func compareInts(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
