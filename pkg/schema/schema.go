// Package schema declares the fields of every record kind and how each field is
// represented natively by each backend. Adapters look types up here instead of
// hard-coding per-field logic.
package schema

import (
	"sort"

	"github.com/beam-cloud/onleads/pkg/types"
)

// BackendType identifies a concrete Integration implementation
type BackendType string

const (
	BackendNotion BackendType = "notion"
	BackendMemory BackendType = "memory"
)

func (b BackendType) String() string {
	return string(b)
}

// NativeKind is a backend specific property type token
type NativeKind string

// Notion property kinds
const (
	NativeTitle       NativeKind = "title"
	NativeRichText    NativeKind = "rich_text"
	NativeSelect      NativeKind = "select"
	NativeMultiSelect NativeKind = "multi_select"
	NativeRelation    NativeKind = "relation"
	NativeNumber      NativeKind = "number"
	NativeEmail       NativeKind = "email"
	NativeURL         NativeKind = "url"
	NativeCheckbox    NativeKind = "checkbox"
	NativeDate        NativeKind = "date"
	NativeUniqueID    NativeKind = "unique_id"
)

func (k NativeKind) String() string {
	return string(k)
}

// FieldSchema maps a field name to its abstract type
type FieldSchema map[string]types.FieldType

// BackendFieldMapping maps a field name to a backend native kind
type BackendFieldMapping map[string]NativeKind

// FieldSchemas holds one schema per record kind
var FieldSchemas = map[types.RecordKind]FieldSchema{
	types.RecordKindLead: {
		types.LeadID:            types.FieldTypeNumber,
		types.LeadName:          types.FieldTypeTitle,
		types.LeadEmailAddress:  types.FieldTypeEmail,
		types.LeadProfile:       types.FieldTypeText,
		types.LeadContactStatus: types.FieldTypeText,
		types.LeadLinkedin:      types.FieldTypeURL,
		types.LeadCompany:       types.FieldTypeRelation,
		types.LeadEmails:        types.FieldTypeRelation,
		types.LeadScore:         types.FieldTypeNumber,
		types.LeadTags:          types.FieldTypeMultiSelect,
		types.LeadLastContacted: types.FieldTypeDate,
		types.LeadUnsubscribed:  types.FieldTypeBoolean,
	},
	types.RecordKindEmail: {
		types.EmailObject:    types.FieldTypeTitle,
		types.EmailText:      types.FieldTypeText,
		types.EmailType:      types.FieldTypeText,
		types.EmailRecipient: types.FieldTypeRelation,
		types.EmailStatus:    types.FieldTypeText,
	},
}

// BackendMappings holds the native representation of every field per backend.
// Enumerated text fields (statuses, email type) are Notion selects.
var BackendMappings = map[types.RecordKind]map[BackendType]BackendFieldMapping{
	types.RecordKindLead: {
		BackendNotion: {
			types.LeadID:            NativeUniqueID,
			types.LeadName:          NativeTitle,
			types.LeadEmailAddress:  NativeEmail,
			types.LeadProfile:       NativeRichText,
			types.LeadContactStatus: NativeSelect,
			types.LeadLinkedin:      NativeURL,
			types.LeadCompany:       NativeRelation,
			types.LeadEmails:        NativeRelation,
			types.LeadScore:         NativeNumber,
			types.LeadTags:          NativeMultiSelect,
			types.LeadLastContacted: NativeDate,
			types.LeadUnsubscribed:  NativeCheckbox,
		},
		BackendMemory: {
			types.LeadID:            NativeUniqueID,
			types.LeadName:          NativeTitle,
			types.LeadEmailAddress:  NativeEmail,
			types.LeadProfile:       NativeRichText,
			types.LeadContactStatus: NativeSelect,
			types.LeadLinkedin:      NativeURL,
			types.LeadCompany:       NativeRelation,
			types.LeadEmails:        NativeRelation,
			types.LeadScore:         NativeNumber,
			types.LeadTags:          NativeMultiSelect,
			types.LeadLastContacted: NativeDate,
			types.LeadUnsubscribed:  NativeCheckbox,
		},
	},
	types.RecordKindEmail: {
		BackendNotion: {
			types.EmailObject:    NativeTitle,
			types.EmailText:      NativeRichText,
			types.EmailType:      NativeSelect,
			types.EmailRecipient: NativeRelation,
			types.EmailStatus:    NativeSelect,
		},
		BackendMemory: {
			types.EmailObject:    NativeTitle,
			types.EmailText:      NativeRichText,
			types.EmailType:      NativeSelect,
			types.EmailRecipient: NativeRelation,
			types.EmailStatus:    NativeSelect,
		},
	},
}

// Schema returns the field schema of a kind, nil when the kind is unknown
func Schema(kind types.RecordKind) FieldSchema {
	return FieldSchemas[kind]
}

// Mapping returns the native field mapping of a kind for a backend, nil when undefined
func Mapping(kind types.RecordKind, backend BackendType) BackendFieldMapping {
	byBackend, ok := BackendMappings[kind]
	if !ok {
		return nil
	}
	return byBackend[backend]
}

// AbstractTypeOf returns the abstract type declared for a field
func AbstractTypeOf(kind types.RecordKind, field string) (types.FieldType, error) {
	fieldType, ok := FieldSchemas[kind][field]
	if !ok {
		return "", &types.UnknownFieldError{Kind: kind, Field: field}
	}
	return fieldType, nil
}

// NativeKindOf returns the native kind a backend uses for a field
func NativeKindOf(kind types.RecordKind, field string, backend BackendType) (NativeKind, error) {
	if _, err := AbstractTypeOf(kind, field); err != nil {
		return "", err
	}
	native, ok := Mapping(kind, backend)[field]
	if !ok {
		return "", &types.UnknownFieldError{Kind: kind, Field: field, Backend: backend.String()}
	}
	return native, nil
}

// Fields returns the field names of a kind in sorted order
func Fields(kind types.RecordKind) []string {
	s := FieldSchemas[kind]
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that every key of a record is declared for its kind.
// The reserved identifier key is always allowed.
func Validate(kind types.RecordKind, record types.Record) error {
	s, ok := FieldSchemas[kind]
	if !ok {
		return &types.UnknownFieldError{Kind: kind, Field: types.RecordIDKey}
	}

	keys := make([]string, 0, len(record))
	for key := range record {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if key == types.RecordIDKey {
			continue
		}
		if _, ok := s[key]; !ok {
			return &types.UnknownFieldError{Kind: kind, Field: key}
		}
	}
	return nil
}
