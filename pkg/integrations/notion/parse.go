package notion

import (
	"encoding/json"
	"math"

	"github.com/beam-cloud/onleads/pkg/types"
)

// Property precedence when a Notion property object carries several kind keys
var parseOrder = []string{
	"title",
	"rich_text",
	"select",
	"email",
	"url",
	"relation",
	"unique_id",
	"number",
	"checkbox",
	"date",
	"multi_select",
}

// ParseProperty converts a Notion property object to a logical value. An empty
// title reads as nil while an empty rich_text reads as "". Unknown kinds read as nil.
func ParseProperty(prop map[string]any) any {
	for _, key := range parseOrder {
		raw, ok := prop[key]
		if !ok {
			continue
		}

		switch key {
		case "title":
			if content, ok := firstSpan(raw); ok {
				return content
			}
			return nil
		case "rich_text":
			content, _ := firstSpan(raw)
			return content
		case "select":
			if option, ok := raw.(map[string]any); ok {
				if name, ok := option["name"].(string); ok {
					return name
				}
			}
			return nil
		case "email", "url":
			return raw
		case "relation":
			return types.ToReferences(raw)
		case "unique_id":
			if id, ok := raw.(map[string]any); ok {
				if n, ok := types.ToInt64(id["number"]); ok {
					return n
				}
			}
			return nil
		case "number":
			return parseNumber(raw)
		case "checkbox":
			b, _ := raw.(bool)
			return b
		case "date":
			if date, ok := raw.(map[string]any); ok {
				if start, ok := date["start"].(string); ok {
					return start
				}
			}
			return nil
		case "multi_select":
			options, _ := raw.([]any)
			names := make([]string, 0, len(options))
			for _, option := range options {
				if m, ok := option.(map[string]any); ok {
					if name, ok := m["name"].(string); ok {
						names = append(names, name)
					}
				}
			}
			return names
		}
	}
	return nil
}

// ParsePage converts a Notion page object to a Record carrying the page id
func ParsePage(page map[string]any) types.Record {
	properties, _ := page["properties"].(map[string]any)
	record := make(types.Record, len(properties)+1)
	for name, raw := range properties {
		prop, ok := raw.(map[string]any)
		if !ok {
			record[name] = nil
			continue
		}
		record[name] = ParseProperty(prop)
	}
	if id, ok := page["id"].(string); ok {
		record[types.RecordIDKey] = types.RecordID(id)
	}
	return record
}

func firstSpan(raw any) (string, bool) {
	spans, ok := raw.([]any)
	if !ok || len(spans) == 0 {
		return "", false
	}
	span, ok := spans[0].(map[string]any)
	if !ok {
		return "", false
	}
	if text, ok := span["text"].(map[string]any); ok {
		if content, ok := text["content"].(string); ok {
			return content, true
		}
	}
	if plain, ok := span["plain_text"].(string); ok {
		return plain, true
	}
	return "", false
}

func parseNumber(raw any) any {
	switch n := raw.(type) {
	case nil:
		return nil
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
			return int64(n)
		}
		return n
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
		return nil
	}
	if i, ok := types.ToInt64(raw); ok {
		return i
	}
	return nil
}
