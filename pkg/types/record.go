package types

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// RecordKind identifies which schema and which backend collection a record belongs to.
// The value doubles as the collection name used when resolving credentials.
type RecordKind string

const (
	RecordKindLead  RecordKind = "leads"
	RecordKindEmail RecordKind = "emails"
)

func (k RecordKind) String() string {
	return string(k)
}

// RecordKinds lists every kind known to the schema, in a stable order
func RecordKinds() []RecordKind {
	return []RecordKind{RecordKindLead, RecordKindEmail}
}

// ParseRecordKind maps a user supplied name ("lead", "leads", "email", ...) to a kind
func ParseRecordKind(s string) (RecordKind, error) {
	switch s {
	case "lead", "leads", "LEAD", "LEADS":
		return RecordKindLead, nil
	case "email", "emails", "EMAIL", "EMAILS":
		return RecordKindEmail, nil
	}
	return "", fmt.Errorf("unknown record kind: %s", s)
}

// FieldType is the abstract, backend independent type of a schema field
type FieldType string

const (
	FieldTypeText        FieldType = "text"
	FieldTypeNumber      FieldType = "number"
	FieldTypeBoolean     FieldType = "boolean"
	FieldTypeDate        FieldType = "date"
	FieldTypeEmail       FieldType = "email"
	FieldTypeURL         FieldType = "url"
	FieldTypeMultiSelect FieldType = "multi_select"
	FieldTypeTitle       FieldType = "title"
	FieldTypeRelation    FieldType = "relation"
)

// RecordID is the opaque identifier assigned by a backend on insert
type RecordID string

func (id RecordID) String() string {
	return string(id)
}

// RecordIDKey is the reserved key under which backends expose a record's identifier.
// Only backends write it.
const RecordIDKey = "id"

// Reference is one element of a relation field
type Reference struct {
	ID string `json:"id"`
}

// Record is an untyped key/value view of one logical entity
type Record map[string]any

// ID returns the backend assigned identifier, empty before persistence
func (r Record) ID() RecordID {
	switch v := r[RecordIDKey].(type) {
	case RecordID:
		return v
	case string:
		return RecordID(v)
	}
	return ""
}

// String returns a text field, or "" when absent or nil
func (r Record) String(field string) string {
	switch v := r[field].(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Int64 returns a numeric field, ok is false when the field is absent or not numeric
func (r Record) Int64(field string) (int64, bool) {
	return ToInt64(r[field])
}

// References returns a relation field as a fresh slice
func (r Record) References(field string) []Reference {
	return ToReferences(r[field])
}

// Clone returns a shallow copy with relation slices duplicated
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		switch refs := v.(type) {
		case []Reference:
			out[k] = append([]Reference(nil), refs...)
		case []string:
			out[k] = append([]string(nil), refs...)
		default:
			out[k] = v
		}
	}
	return out
}

// ToInt64 converts the numeric shapes produced by JSON decoding and by callers
func ToInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float32:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return int64(f), true
		}
	case string:
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return int64(f), true
		}
	}
	return 0, false
}

// ToReferences normalises the relation shapes accepted by the backends
func ToReferences(v any) []Reference {
	switch refs := v.(type) {
	case nil:
		return []Reference{}
	case []Reference:
		return append([]Reference(nil), refs...)
	case Reference:
		return []Reference{refs}
	case []map[string]any:
		out := make([]Reference, 0, len(refs))
		for _, m := range refs {
			if id, ok := m["id"].(string); ok {
				out = append(out, Reference{ID: id})
			}
		}
		return out
	case []map[string]string:
		out := make([]Reference, 0, len(refs))
		for _, m := range refs {
			if id, ok := m["id"]; ok {
				out = append(out, Reference{ID: id})
			}
		}
		return out
	case []RecordID:
		out := make([]Reference, 0, len(refs))
		for _, id := range refs {
			out = append(out, Reference{ID: string(id)})
		}
		return out
	case []any:
		out := make([]Reference, 0, len(refs))
		for _, item := range refs {
			switch ref := item.(type) {
			case Reference:
				out = append(out, ref)
			case map[string]any:
				if id, ok := ref["id"].(string); ok {
					out = append(out, Reference{ID: id})
				}
			case map[string]string:
				if id, ok := ref["id"]; ok {
					out = append(out, Reference{ID: id})
				}
			case RecordID:
				out = append(out, Reference{ID: string(ref)})
			case string:
				out = append(out, Reference{ID: ref})
			}
		}
		return out
	case []string:
		out := make([]Reference, 0, len(refs))
		for _, id := range refs {
			out = append(out, Reference{ID: id})
		}
		return out
	case RecordID:
		return []Reference{{ID: string(refs)}}
	case string:
		if refs == "" {
			return []Reference{}
		}
		return []Reference{{ID: refs}}
	}
	return []Reference{}
}

// ContainsReference reports whether refs links to id
func ContainsReference(refs []Reference, id string) bool {
	for _, ref := range refs {
		if ref.ID == id {
			return true
		}
	}
	return false
}
