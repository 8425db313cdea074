package notion

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/beam-cloud/onleads/pkg/schema"
	"github.com/beam-cloud/onleads/pkg/types"
	"github.com/rs/zerolog/log"
)

// FormatField converts one logical value to a Notion property value. A nil result
// means "no value" and the field is left out of the write payload.
//
// Numbers are cast to integers and a falsy number is omitted, so zero cannot be
// written. Callers that need to store 0 must not rely on this adapter.
func FormatField(kind types.RecordKind, field string, value any) map[string]any {
	if _, err := schema.AbstractTypeOf(kind, field); err != nil {
		log.Warn().Str("kind", kind.String()).Str("field", field).Msg("dropping field not in schema")
		return nil
	}

	native := schema.Mapping(kind, schema.BackendNotion)[field]
	if value == nil || value == "" {
		if native == schema.NativeURL {
			return map[string]any{"url": nil}
		}
		return nil
	}

	formatted, ok := formatNative(native, value)
	if !ok {
		log.Warn().
			Str("kind", kind.String()).
			Str("field", field).
			Str("native_kind", native.String()).
			Msg("dropping field with unsupported native kind")
		return nil
	}
	if native == schema.NativeRelation && !isFalsy(value) && len(formatted["relation"].([]types.Reference)) == 0 {
		log.Warn().Str("kind", kind.String()).Str("field", field).Str("value_type", fmt.Sprintf("%T", value)).Msg("dropping unrecognised relation value")
		return nil
	}
	if formatted == nil && native == schema.NativeNumber {
		if _, numeric := types.ToInt64(value); !numeric && !isFalsy(value) {
			log.Warn().Str("kind", kind.String()).Str("field", field).Interface("value", value).Msg("dropping non-numeric value")
		}
	}
	return formatted
}

// formatNative renders value as the given native kind. ok is false when the kind
// cannot be written.
func formatNative(native schema.NativeKind, value any) (formatted map[string]any, ok bool) {
	switch native {
	case schema.NativeTitle:
		if isFalsy(value) {
			return nil, true
		}
		return map[string]any{"title": textSpans(value)}, true

	case schema.NativeEmail:
		if isFalsy(value) {
			return map[string]any{"email": nil}, true
		}
		return map[string]any{"email": value}, true

	case schema.NativeRichText:
		if isFalsy(value) {
			return nil, true
		}
		return map[string]any{"rich_text": textSpans(value)}, true

	case schema.NativeSelect:
		if isFalsy(value) {
			return nil, true
		}
		return map[string]any{"select": map[string]any{"name": stringify(value)}}, true

	case schema.NativeURL:
		if isFalsy(value) {
			return map[string]any{"url": nil}, true
		}
		return map[string]any{"url": stringify(value)}, true

	case schema.NativeRelation:
		if isFalsy(value) {
			return map[string]any{"relation": []types.Reference{}}, true
		}
		if _, single := value.(types.Reference); single || isList(value) {
			return map[string]any{"relation": types.ToReferences(value)}, true
		}
		return map[string]any{"relation": []types.Reference{{ID: stringify(value)}}}, true

	case schema.NativeNumber:
		if isFalsy(value) {
			return nil, true
		}
		n, ok := types.ToInt64(value)
		if !ok {
			return nil, true
		}
		return map[string]any{"number": n}, true

	case schema.NativeCheckbox:
		b, ok := value.(bool)
		if !ok {
			b = !isFalsy(value)
		}
		return map[string]any{"checkbox": b}, true

	case schema.NativeDate:
		if isFalsy(value) {
			return nil, true
		}
		return map[string]any{"date": map[string]any{"start": formatDate(value)}}, true

	case schema.NativeMultiSelect:
		names := toStrings(value)
		options := make([]map[string]any, 0, len(names))
		for _, name := range names {
			options = append(options, map[string]any{"name": name})
		}
		return map[string]any{"multi_select": options}, true
	}
	return nil, false
}

// FormatProperties converts a record to the Notion write payload, leaving out the
// reserved identifier and every field that formatted to no value
func FormatProperties(kind types.RecordKind, record types.Record) map[string]any {
	properties := make(map[string]any, len(record))
	for key, value := range record {
		if key == types.RecordIDKey {
			continue
		}
		if formatted := FormatField(kind, key, value); formatted != nil {
			properties[key] = formatted
		}
	}
	return properties
}

func textSpans(value any) []map[string]any {
	return []map[string]any{
		{"text": map[string]any{"content": stringify(value)}},
	}
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case *string:
		return *v
	case types.RecordID:
		return string(v)
	case fmt.Stringer:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func formatDate(value any) string {
	switch v := value.(type) {
	case time.Time:
		return v.Format(time.RFC3339)
	case *time.Time:
		return v.Format(time.RFC3339)
	default:
		return stringify(v)
	}
}

func toStrings(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, stringify(item))
		}
		return out
	case string:
		return []string{v}
	}
	return []string{}
}

func isList(value any) bool {
	kind := reflect.ValueOf(value).Kind()
	return kind == reflect.Slice || kind == reflect.Array
}

// isFalsy treats nil, zero numbers, false, empty strings and empty collections as
// absent
func isFalsy(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Bool:
		return !rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
