package extractor

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord(t *testing.T) map[string]any {
	t.Helper()
	data, err := FromJSON(json.RawMessage(`{
		"id": 1042,
		"title": "  Juan Perez ",
		"contact": {"phone": "300 123 4567", "emails": ["juan@example.com", "jp@example.com"]},
		"custom_fields": [
			{"code": "address", "value": "Calle 10 # 5-20"},
			{"code": "chat_link", "value": "https://app.example.com/chats/77"}
		],
		"price": "89900.50",
		"total": 120,
		"created_at": "2025-03-01T09:00:00-05:00",
		"updated_ms": 1740837600000,
		"blank": ""
	}`))
	require.NoError(t, err)
	return data
}

func TestExtractor_Extract(t *testing.T) {
	e := New()
	data := sampleRecord(t)

	tests := []struct {
		path     string
		expected any
	}{
		{path: "contact.phone", expected: "300 123 4567"},
		{path: "contact.emails[1]", expected: "jp@example.com"},
		{path: "contact.emails[5]", expected: nil},
		{path: "contact.emails[*]", expected: "juan@example.com"},
		{path: "custom_fields[code=chat_link].value", expected: "https://app.example.com/chats/77"},
		{path: "custom_fields[code=missing].value", expected: nil},
		{path: "custom_fields[*].value", expected: "Calle 10 # 5-20"},
		{path: "missing.key", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := e.Extract(data, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	whole, err := e.Extract(data, "")
	require.NoError(t, err)
	assert.Equal(t, data, whole)

	_, err = e.Extract(data, "title.first")
	assert.Error(t, err)
}

func TestExtractor_ExtractString(t *testing.T) {
	e := New()
	data := sampleRecord(t)

	s, err := e.ExtractString(data, "title")
	require.NoError(t, err)
	assert.Equal(t, "Juan Perez", s)

	s, err = e.ExtractString(data, "id")
	require.NoError(t, err)
	assert.Equal(t, "1042", s)

	s, err = e.ExtractString(data, "nope")
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestExtractor_ExtractFloat(t *testing.T) {
	e := New()
	data := sampleRecord(t)

	f, err := e.ExtractFloat(data, "price")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, 89900.50, *f)

	f, err = e.ExtractFloat(data, "total")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, 120.0, *f)

	f, err = e.ExtractFloat(data, "blank")
	require.NoError(t, err)
	assert.Nil(t, f)

	_, err = e.ExtractFloat(data, "title")
	assert.Error(t, err)

	_, err = e.ExtractFloat(data, "contact")
	assert.Error(t, err)
}

func TestExtractor_ExtractTime(t *testing.T) {
	e := New()
	data := sampleRecord(t)

	ts, err := e.ExtractTime(data, "created_at")
	require.NoError(t, err)
	assert.True(t, time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC).Equal(ts), ts.String())

	ts, err = e.ExtractTime(data, "updated_ms")
	require.NoError(t, err)
	assert.Equal(t, int64(1740837600000), ts.UnixMilli())

	ts, err = e.ExtractTime(data, "blank")
	require.NoError(t, err)
	assert.True(t, ts.IsZero())

	_, err = e.ExtractTime(data, "title")
	assert.Error(t, err)

	custom := New("02/01/2006")
	ts, err = custom.ExtractTime(map[string]any{"d": "15/03/2025"}, "d")
	require.NoError(t, err)
	assert.True(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC).Equal(ts), ts.String())
}

func TestParsePath(t *testing.T) {
	parts := parsePath("a.b[2].c[*].d[k=v.w]")
	require.Len(t, parts, 4)

	assert.Equal(t, pathPart{key: "a"}, parts[0])
	assert.Equal(t, pathPart{key: "b", kind: partIndex, index: 2}, parts[1])
	assert.Equal(t, pathPart{key: "c", kind: partWildcard}, parts[2])
	assert.Equal(t, pathPart{key: "d", kind: partFilter, filterKey: "k", filterValue: "v.w"}, parts[3])
}
