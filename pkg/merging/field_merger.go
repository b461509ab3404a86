// Package merging picks the canonical value of a field from several deals
package merging

import (
	"sort"
	"time"
	"unicode/utf8"
)

// Strategy selects how a field value is chosen among candidates
type Strategy string

const (
	// StrategyMostRecent takes the value of the most recent candidate, even when it is empty
	StrategyMostRecent Strategy = "most_recent"
	// StrategyFirstNonEmpty takes the first non-empty value in recency order
	StrategyFirstNonEmpty Strategy = "first_non_empty"
	// StrategyLongest takes the longest non-empty value; ties go to the more recent one
	StrategyLongest Strategy = "longest"
	// StrategyOldest takes the first non-empty value in creation order
	StrategyOldest Strategy = "oldest"
)

// FieldValue is one candidate value with the time of the deal it came from
type FieldValue struct {
	Value  string
	SeenAt time.Time
	DealID string
}

// FieldConflict records a field whose candidates disagreed
type FieldConflict struct {
	Field    string
	Values   []string
	Resolved string
	Strategy Strategy
}

// FieldMerger handles field-level merge logic
type FieldMerger struct{}

// NewFieldMerger creates a new FieldMerger
func NewFieldMerger() *FieldMerger {
	return &FieldMerger{}
}

// MergeField chooses one value for a field.
// The input slice is not reordered.
func (m *FieldMerger) MergeField(field string, values []FieldValue, strategy Strategy) (string, *FieldConflict) {
	if len(values) == 0 {
		return "", nil
	}

	ordered := byRecency(values)

	var result string
	switch strategy {
	case StrategyMostRecent:
		result = ordered[0].Value
	case StrategyLongest:
		result = m.longest(ordered)
	case StrategyOldest:
		result = m.firstNonEmpty(reverse(ordered))
	default:
		result = m.firstNonEmpty(ordered)
	}

	return result, m.detectConflict(field, ordered, result, strategy)
}

// detectConflict reports distinct non-empty candidates, or nil when they all agree
func (m *FieldMerger) detectConflict(field string, values []FieldValue, resolved string, strategy Strategy) *FieldConflict {
	distinct := CollectDistinct(values, func(v FieldValue) string { return v.Value }, func(v FieldValue) bool { return v.Value == "" }, 0)
	if len(distinct) < 2 {
		return nil
	}

	conflict := &FieldConflict{Field: field, Resolved: resolved, Strategy: strategy}
	for _, v := range distinct {
		conflict.Values = append(conflict.Values, v.Value)
	}
	return conflict
}

// longest returns the longest value by rune count, keeping the first on ties
func (m *FieldMerger) longest(values []FieldValue) string {
	var longest string
	maxLen := 0
	for _, v := range values {
		if n := utf8.RuneCountInString(v.Value); n > maxLen {
			maxLen = n
			longest = v.Value
		}
	}
	return longest
}

// firstNonEmpty returns the first non-empty value
func (m *FieldMerger) firstNonEmpty(values []FieldValue) string {
	for _, v := range values {
		if v.Value != "" {
			return v.Value
		}
	}
	return ""
}

// CollectDistinct keeps the first occurrence of every key in input order.
// Items for which skip returns true are dropped; maxItems <= 0 means no limit.
func CollectDistinct[T any](items []T, key func(T) string, skip func(T) bool, maxItems int) []T {
	result := make([]T, 0, len(items))
	seen := make(map[string]bool, len(items))

	for _, item := range items {
		if skip != nil && skip(item) {
			continue
		}
		k := key(item)
		if seen[k] {
			continue
		}
		seen[k] = true
		result = append(result, item)
		if maxItems > 0 && len(result) >= maxItems {
			break
		}
	}

	return result
}

// byRecency returns a copy sorted newest first; equal times keep input order
func byRecency(values []FieldValue) []FieldValue {
	sorted := make([]FieldValue, len(values))
	copy(sorted, values)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SeenAt.After(sorted[j].SeenAt)
	})
	return sorted
}

func reverse(values []FieldValue) []FieldValue {
	out := make([]FieldValue, len(values))
	for i, v := range values {
		out[len(values)-1-i] = v
	}
	return out
}
