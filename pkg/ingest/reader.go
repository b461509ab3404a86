package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// RecordFormat is the encoding of a raw record file
type RecordFormat string

const (
	RecordFormatJSON RecordFormat = "json"
	RecordFormatYAML RecordFormat = "yaml"
)

// FormatFromPath guesses the record format from a file extension, defaulting to JSON
func FormatFromPath(path string) RecordFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return RecordFormatYAML
	default:
		return RecordFormatJSON
	}
}

// ReadRecords reads a list of raw records. The document is either a list of objects
// or an object holding that list under "records".
func ReadRecords(r io.Reader, format RecordFormat) ([]map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	var doc any
	switch format {
	case RecordFormatJSON:
		err = json.Unmarshal(data, &doc)
	case RecordFormatYAML:
		err = yaml.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("unsupported record format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s records: %w", format, err)
	}

	if wrapper, ok := doc.(map[string]any); ok {
		doc = wrapper["records"]
	}
	list, ok := doc.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list of records, got %T", doc)
	}

	records := make([]map[string]any, 0, len(list))
	for i, item := range list {
		record, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("record %d is %T, not an object", i, item)
		}
		records = append(records, record)
	}
	return records, nil
}
