package merging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

func TestFieldMerger_MergeField(t *testing.T) {
	values := []FieldValue{
		{Value: "Ana", SeenAt: t0, DealID: "a"},
		{Value: "", SeenAt: t0.Add(48 * time.Hour), DealID: "c"},
		{Value: "Ana María Gómez", SeenAt: t0.Add(-24 * time.Hour), DealID: "b"},
		{Value: "Ana Gomez", SeenAt: t0.Add(24 * time.Hour), DealID: "d"},
	}

	tests := []struct {
		strategy Strategy
		expected string
	}{
		{strategy: StrategyMostRecent, expected: ""},
		{strategy: StrategyFirstNonEmpty, expected: "Ana Gomez"},
		{strategy: StrategyLongest, expected: "Ana María Gómez"},
		{strategy: StrategyOldest, expected: "Ana María Gómez"},
	}

	m := NewFieldMerger()
	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			got, conflict := m.MergeField("name", values, tt.strategy)
			assert.Equal(t, tt.expected, got)
			require.NotNil(t, conflict)
			assert.Equal(t, []string{"Ana Gomez", "Ana", "Ana María Gómez"}, conflict.Values)
			assert.Equal(t, tt.expected, conflict.Resolved)
		})
	}

	assert.Equal(t, "a", values[0].DealID, "input order must be preserved")
}

func TestFieldMerger_LongestCountsRunes(t *testing.T) {
	m := NewFieldMerger()
	// "Óscar" and "Oscar" have the same rune count; the more recent wins the tie
	got, _ := m.MergeField("name", []FieldValue{
		{Value: "Oscar", SeenAt: t0},
		{Value: "Óscar", SeenAt: t0.Add(time.Hour)},
	}, StrategyLongest)
	assert.Equal(t, "Óscar", got)
}

func TestFieldMerger_NoConflictWhenValuesAgree(t *testing.T) {
	m := NewFieldMerger()

	got, conflict := m.MergeField("email", []FieldValue{
		{Value: "ana@example.com", SeenAt: t0},
		{Value: "", SeenAt: t0.Add(time.Hour)},
		{Value: "ana@example.com", SeenAt: t0.Add(2 * time.Hour)},
	}, StrategyFirstNonEmpty)

	assert.Equal(t, "ana@example.com", got)
	assert.Nil(t, conflict)

	got, conflict = m.MergeField("email", nil, StrategyFirstNonEmpty)
	assert.Empty(t, got)
	assert.Nil(t, conflict)
}

func TestCollectDistinct(t *testing.T) {
	type addr struct{ line, city string }
	items := []addr{
		{"cl 10", "Bogota"},
		{"", ""},
		{"cra 7", "Cali"},
		{"cl 10", "Bogota"},
		{"cl 10", "Medellin"},
	}
	key := func(a addr) string { return a.line + "|" + a.city }
	skip := func(a addr) bool { return a.line == "" && a.city == "" }

	assert.Equal(t, []addr{{"cl 10", "Bogota"}, {"cra 7", "Cali"}, {"cl 10", "Medellin"}}, CollectDistinct(items, key, skip, 0))
	assert.Equal(t, []addr{{"cl 10", "Bogota"}, {"cra 7", "Cali"}}, CollectDistinct(items, key, skip, 2))
	assert.Len(t, CollectDistinct(items, key, nil, 0), 4)
}
