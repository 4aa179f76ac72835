package timeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetailRowsChangesMap(t *testing.T) {
	payload := map[string]any{
		"changes": map[string]any{
			"stage": map[string]any{"from": "Intake", "to": "In Foster"},
		},
	}

	rows := DetailRows("dog", payload)

	require.Len(t, rows, 1)
	assert.Equal(t, Detail{Label: "stage", Value: "Intake → In Foster"}, rows[0])
}

func TestDetailRowsChangesScalarValue(t *testing.T) {
	payload := map[string]any{
		"changes": map[string]any{
			"name": "Biscuit",
		},
	}

	rows := DetailRows("dog", payload)

	require.Len(t, rows, 1)
	assert.Equal(t, Detail{Label: "name", Value: "Biscuit"}, rows[0])
}

func TestDetailRowsChangesCappedAtTen(t *testing.T) {
	changes := map[string]any{}
	for _, k := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
		changes[k] = map[string]any{"from": "x", "to": "y"}
	}

	rows := DetailRows("dog", map[string]any{"changes": changes})

	assert.Len(t, rows, 10)
}

func TestDetailRowsTopLevelFromTo(t *testing.T) {
	payload := map[string]any{"from": "quarantine", "to": "in_foster"}

	rows := DetailRows("dog", payload)

	require.Len(t, rows, 1)
	assert.Equal(t, Detail{Label: "change", Value: "quarantine → in_foster"}, rows[0])
}

func TestDetailRowsSnapshotDiff(t *testing.T) {
	payload := map[string]any{
		"old": map[string]any{"name": "Biscuit", "stage": "intake", "notes": "same"},
		"new": map[string]any{"name": "Biscuit", "stage": "in_foster", "notes": "same"},
	}

	rows := DetailRows("dog", payload)

	require.Len(t, rows, 1)
	assert.Equal(t, Detail{Label: "stage", Value: "intake → in_foster"}, rows[0])
}

func TestDetailRowsSnapshotDiffBeforeAfterAliases(t *testing.T) {
	payload := map[string]any{
		"before": map[string]any{"status": "planned"},
		"after":  map[string]any{"status": "in_transit"},
	}

	rows := DetailRows("transport", payload)

	require.Len(t, rows, 1)
	assert.Equal(t, "status", rows[0].Label)
}

func TestDetailRowsSnapshotUnknownEntityFallsThrough(t *testing.T) {
	payload := map[string]any{
		"old":  map[string]any{"x": "1"},
		"new":  map[string]any{"x": "2"},
		"note": "hello",
	}

	rows := DetailRows("mystery", payload)

	// Rule 3 does not apply to unknown entity types; rule 4 dumps scalars.
	require.Len(t, rows, 1)
	assert.Equal(t, Detail{Label: "note", Value: "hello"}, rows[0])
}

func TestDetailRowsSnapshotNoDifferenceFallsThrough(t *testing.T) {
	payload := map[string]any{
		"old":    map[string]any{"stage": "intake"},
		"new":    map[string]any{"stage": "intake"},
		"reason": "routine",
	}

	rows := DetailRows("dog", payload)

	require.Len(t, rows, 1)
	assert.Equal(t, "reason", rows[0].Label)
}

func TestDetailRowsScalarFallback(t *testing.T) {
	payload := map[string]any{
		"count":  float64(3),
		"name":   "Biscuit",
		"nested": map[string]any{"skip": "me"},
		"list":   []any{"skip"},
	}

	rows := DetailRows("dog", payload)

	require.Len(t, rows, 2)
	assert.Equal(t, Detail{Label: "count", Value: "3"}, rows[0])
	assert.Equal(t, Detail{Label: "name", Value: "Biscuit"}, rows[1])
}

func TestDetailRowsEmptyPayload(t *testing.T) {
	assert.Nil(t, DetailRows("dog", nil))
	assert.Nil(t, DetailRows("dog", map[string]any{}))
}

func TestDetailRowsNullsRenderEmpty(t *testing.T) {
	payload := map[string]any{
		"changes": map[string]any{
			"notes": map[string]any{"from": nil, "to": "now set"},
		},
	}

	rows := DetailRows("dog", payload)

	require.Len(t, rows, 1)
	assert.Equal(t, " → now set", rows[0].Value)
}

func TestDetailRowsLongValuesTruncated(t *testing.T) {
	long := strings.Repeat("x", 500)
	payload := map[string]any{
		"changes": map[string]any{
			"notes": map[string]any{"from": "", "to": long},
		},
	}

	rows := DetailRows("dog", payload)

	require.Len(t, rows, 1)
	// " → " plus a value bounded at 120 display characters.
	assert.LessOrEqual(t, len([]rune(rows[0].Value)), 120+4)
	assert.True(t, strings.HasSuffix(rows[0].Value, "…"))
}
