package timeline

import (
	"encoding/json"
	"fmt"
	"sort"
)

const (
	maxDetailRows  = 10
	maxDetailChars = 120
)

// diffFields maps entity types to the fields worth surfacing when an audit
// payload carries whole before/after snapshots (typically trigger-generated).
var diffFields = map[string][]string{
	"dog":            {"name", "breed", "sex", "stage", "microchip", "notes"},
	"transport":      {"from_location", "to_location", "depart_at", "arrive_at", "status", "notes"},
	"contact":        {"name", "email", "phone", "kind", "notes"},
	"medical_record": {"kind", "title", "due_at", "administered_at", "notes"},
	"attachment":     {"file_name", "kind", "caption"},
}

// DetailRows flattens a heterogeneous audit payload into display rows.
// Payloads come from two very different writers (application code and
// database triggers), so extraction walks an ordered fallback chain and
// stops at the first rule that yields anything.
func DetailRows(entityType string, payload map[string]any) []Detail {
	if len(payload) == 0 {
		return nil
	}

	// Rule 1: an explicit changes map, one row per changed field.
	if changes, ok := payload["changes"].(map[string]any); ok && len(changes) > 0 {
		rows := make([]Detail, 0, len(changes))
		for _, key := range sortedKeys(changes) {
			if len(rows) >= maxDetailRows {
				break
			}
			rows = append(rows, Detail{Label: key, Value: changeValue(changes[key])})
		}
		if len(rows) > 0 {
			return rows
		}
	}

	// Rule 2: the payload itself is a single from/to pair.
	from, hasFrom := payload["from"]
	to, hasTo := payload["to"]
	if hasFrom && hasTo {
		return []Detail{{Label: "change", Value: stringify(from) + " → " + stringify(to)}}
	}

	// Rule 3: whole-row snapshots, diffed over the fields we care about.
	if rows := snapshotDiff(entityType, payload); len(rows) > 0 {
		return rows
	}

	// Rule 4: dump scalar payload keys as-is.
	rows := make([]Detail, 0, maxDetailRows)
	for _, key := range sortedKeys(payload) {
		if len(rows) >= maxDetailRows {
			break
		}
		switch payload[key].(type) {
		case map[string]any, []any:
			continue
		}
		rows = append(rows, Detail{Label: key, Value: stringify(payload[key])})
	}
	return rows
}

func snapshotDiff(entityType string, payload map[string]any) []Detail {
	fields, known := diffFields[entityType]
	if !known {
		return nil
	}

	before := objectField(payload, "before", "old")
	after := objectField(payload, "after", "new")
	if before == nil || after == nil {
		return nil
	}

	rows := make([]Detail, 0, maxDetailRows)
	for _, field := range fields {
		if len(rows) >= maxDetailRows {
			break
		}
		oldVal := stringify(before[field])
		newVal := stringify(after[field])
		if oldVal == newVal {
			continue
		}
		rows = append(rows, Detail{Label: field, Value: oldVal + " → " + newVal})
	}
	return rows
}

func objectField(payload map[string]any, names ...string) map[string]any {
	for _, name := range names {
		if obj, ok := payload[name].(map[string]any); ok {
			return obj
		}
	}
	return nil
}

func changeValue(v any) string {
	if change, ok := v.(map[string]any); ok {
		_, hasFrom := change["from"]
		_, hasTo := change["to"]
		if hasFrom || hasTo {
			return stringify(change["from"]) + " → " + stringify(change["to"])
		}
	}
	return stringify(v)
}

// stringify renders any JSON value as a bounded display string. Nils render
// empty, objects render as truncated JSON.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return truncate(val)
	case bool:
		return fmt.Sprintf("%t", val)
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return truncate(fmt.Sprintf("%v", val))
		}
		return truncate(string(b))
	}
}

func truncate(s string) string {
	if len(s) <= maxDetailChars {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxDetailChars {
		return s
	}
	return string(runes[:maxDetailChars-1]) + "…"
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
