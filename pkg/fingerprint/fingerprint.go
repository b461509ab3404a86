// Package fingerprint hashes input snapshots and derives stable ids from them
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/Ramsey-B/clover/pkg/models"
)

// Generate creates a deterministic fingerprint for record data.
// The fingerprint is a SHA256 hash of the canonicalized JSON.
func Generate(data map[string]any) string {
	return GenerateWithExclusions(data, nil)
}

// GenerateWithExclusions creates a fingerprint excluding the given dot-notation paths
// (e.g. "last_synced_at", "metadata.version"). Excluding a path excludes everything below it.
func GenerateWithExclusions(data map[string]any, excludeFields map[string]bool) string {
	var b strings.Builder
	writeCanonical(&b, data, excludeFields, "")
	return hashString(b.String())
}

// ForDeal fingerprints a single deal by its JSON form
func ForDeal(d *models.Deal) string {
	raw, err := json.Marshal(d)
	if err != nil {
		return hashString(d.ID)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return hashString(string(raw))
	}
	return Generate(m)
}

// ForBatch fingerprints a deal snapshot.
// The result does not depend on the order of the deals, only on their content.
func ForBatch(deals []models.Deal) string {
	hashes := make([]string, len(deals))
	for i := range deals {
		hashes[i] = ForDeal(&deals[i])
	}
	sort.Strings(hashes)
	return hashString(strings.Join(hashes, "\n"))
}

// ForRecords fingerprints a raw record snapshot, ignoring excluded paths
func ForRecords(records []map[string]any, excludeFields map[string]bool) string {
	hashes := make([]string, len(records))
	for i, r := range records {
		hashes[i] = GenerateWithExclusions(r, excludeFields)
	}
	sort.Strings(hashes)
	return hashString(strings.Join(hashes, "\n"))
}

// HasChanged compares two fingerprints to detect changes
func HasChanged(oldFingerprint, newFingerprint string) bool {
	return oldFingerprint != newFingerprint
}

func hashString(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}

// writeCanonical writes sorted-key JSON. currentPath tracks the dot path for exclusions.
func writeCanonical(b *strings.Builder, data any, excludeFields map[string]bool, currentPath string) {
	switch v := data.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteByte('{')
		first := true
		for _, k := range keys {
			fieldPath := k
			if currentPath != "" {
				fieldPath = currentPath + "." + k
			}
			if isExcluded(fieldPath, excludeFields) {
				continue
			}
			if !first {
				b.WriteByte(',')
			}
			first = false
			keyJSON, _ := json.Marshal(k)
			b.Write(keyJSON)
			b.WriteByte(':')
			writeCanonical(b, v[k], excludeFields, fieldPath)
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, elem := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			// Array elements share the parent path
			writeCanonical(b, elem, excludeFields, currentPath)
		}
		b.WriteByte(']')
	default:
		raw, _ := json.Marshal(v)
		b.Write(raw)
	}
}

func isExcluded(fieldPath string, excludeFields map[string]bool) bool {
	if len(excludeFields) == 0 {
		return false
	}
	if excludeFields[fieldPath] {
		return true
	}
	for excluded := range excludeFields {
		if strings.HasPrefix(fieldPath, excluded+".") {
			return true
		}
	}
	return false
}
