package notion

import (
	"fmt"

	"github.com/beam-cloud/onleads/pkg/filter"
	"github.com/beam-cloud/onleads/pkg/schema"
	"github.com/beam-cloud/onleads/pkg/types"
)

// TranslateFilter converts a filter expression to the Notion query filter shape:
//
//	{"property": "Type", "select": {"equals": "first_contact"}}
//	{"and": [ ... ]}
//
// Composite children keep their order. A field with no Notion mapping fails with
// *types.UnknownFieldError.
func TranslateFilter(kind types.RecordKind, expr filter.Expression) (map[string]any, error) {
	switch e := expr.(type) {
	case *filter.FieldFilter:
		if e == nil {
			return nil, &types.InvalidFilterError{Reason: "nil field filter"}
		}
		native, err := schema.NativeKindOf(kind, e.Field, schema.BackendNotion)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"property": e.Field,
			native.String(): map[string]any{
				e.Operator.String(): conditionValue(e),
			},
		}, nil

	case *filter.CompositeFilter:
		if e == nil {
			return nil, &types.InvalidFilterError{Reason: "nil composite filter"}
		}
		if len(e.Filters) == 0 {
			return nil, &types.InvalidFilterError{Reason: fmt.Sprintf("%s requires at least one filter", e.Operator)}
		}
		children := make([]any, 0, len(e.Filters))
		for _, child := range e.Filters {
			translated, err := TranslateFilter(kind, child)
			if err != nil {
				return nil, err
			}
			children = append(children, translated)
		}
		return map[string]any{e.Operator.String(): children}, nil
	}
	return nil, &types.InvalidFilterError{Reason: fmt.Sprintf("unsupported filter type %T", expr)}
}

// Notion requires `true` as the operand of emptiness checks
func conditionValue(f *filter.FieldFilter) any {
	switch f.Operator {
	case filter.IsEmpty, filter.IsNotEmpty:
		return true
	}
	switch v := f.Value.(type) {
	case types.RecordID:
		return string(v)
	case types.Reference:
		return v.ID
	}
	return f.Value
}
