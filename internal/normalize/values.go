package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Documents arrive as decoded JSON trees: numbers are float64 from sonic/encoding/json,
// but the document store and tests may hand over int, int64 or numeric strings.

func asMap(raw any) map[string]any {
	switch typed := raw.(type) {
	case map[string]any:
		return typed
	default:
		return nil
	}
}

// relationDataMap unwraps {"data": {...}} envelopes some providers add around relations.
func relationDataMap(raw any) map[string]any {
	obj := asMap(raw)
	if obj == nil {
		return nil
	}
	if data, ok := obj["data"].(map[string]any); ok {
		return data
	}
	return obj
}

func path(src map[string]any, keys ...string) any {
	var current any = src
	for _, key := range keys {
		obj := asMap(current)
		if obj == nil {
			return nil
		}
		current = obj[key]
	}
	return current
}

func getString(src map[string]any, key string) string {
	if src == nil {
		return ""
	}
	switch typed := src[key].(type) {
	case string:
		return strings.TrimSpace(typed)
	default:
		return ""
	}
}

func firstString(src map[string]any, keys ...string) string {
	for _, key := range keys {
		if value := getString(src, key); value != "" {
			return value
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, item := range values {
		if strings.TrimSpace(item) != "" {
			return strings.TrimSpace(item)
		}
	}
	return ""
}

// intValue reports whether raw holds an integer-like value. Objects are read
// through their "total" field, matching the {"total": n} shape of grouped counters.
func intValue(raw any) (int64, bool) {
	switch typed := raw.(type) {
	case nil:
		return 0, false
	case float64:
		if math.IsNaN(typed) || math.IsInf(typed, 0) {
			return 0, false
		}
		return int64(typed), true
	case float32:
		return int64(typed), true
	case int:
		return int64(typed), true
	case int32:
		return int64(typed), true
	case int64:
		return typed, true
	case string:
		value := strings.TrimSpace(typed)
		if value == "" {
			return 0, false
		}
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(value, 64)
			if ferr != nil {
				return 0, false
			}
			return int64(f), true
		}
		return parsed, true
	case map[string]any:
		return intValue(typed["total"])
	default:
		return 0, false
	}
}

func lookupInt(src map[string]any, key string) (int, bool) {
	if src == nil {
		return 0, false
	}
	value, ok := intValue(src[key])
	return int(value), ok
}

// firstInt returns the value under the first key that holds an integer.
func firstInt(src map[string]any, keys ...string) (int, bool) {
	for _, key := range keys {
		if value, ok := lookupInt(src, key); ok {
			return value, true
		}
	}
	return 0, false
}

func getInt(src map[string]any, key string) int {
	value, _ := lookupInt(src, key)
	return value
}

func getInt64(src map[string]any, key string) int64 {
	if src == nil {
		return 0
	}
	value, _ := intValue(src[key])
	return value
}

func getBool(src map[string]any, key string) bool {
	if src == nil {
		return false
	}
	switch typed := src[key].(type) {
	case bool:
		return typed
	case string:
		parsed, _ := strconv.ParseBool(strings.TrimSpace(typed))
		return parsed
	default:
		return false
	}
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func ptrInt(value int) *int {
	v := value
	return &v
}

// millisThreshold separates unix seconds from unix milliseconds (year 33658 in seconds).
const millisThreshold = 1_000_000_000_000

func parseTime(raw any) (time.Time, bool) {
	switch typed := raw.(type) {
	case nil:
		return time.Time{}, false
	case string:
		value := strings.TrimSpace(typed)
		if value == "" {
			return time.Time{}, false
		}
		layouts := []string{
			time.RFC3339Nano,
			time.RFC3339,
			"2006-01-02T15:04:05",
			"2006-01-02 15:04:05",
			"2006-01-02",
		}
		for _, layout := range layouts {
			if parsed, err := time.Parse(layout, value); err == nil {
				return parsed.UTC(), true
			}
		}
		if unix, ok := intValue(value); ok {
			return unixTime(unix), true
		}
		return time.Time{}, false
	case map[string]any:
		// Document-store timestamps encoded as {"seconds": .., "nanoseconds": ..}.
		seconds, ok := firstInt(typed, "seconds", "_seconds")
		if !ok {
			return time.Time{}, false
		}
		nanos, _ := firstInt(typed, "nanoseconds", "_nanoseconds")
		return time.Unix(int64(seconds), int64(nanos)).UTC(), true
	default:
		unix, ok := intValue(typed)
		if !ok || unix <= 0 {
			return time.Time{}, false
		}
		return unixTime(unix), true
	}
}

func unixTime(value int64) time.Time {
	if value >= millisThreshold {
		return time.UnixMilli(value).UTC()
	}
	return time.Unix(value, 0).UTC()
}

func toMapSlice(raw any) []map[string]any {
	switch typed := raw.(type) {
	case []map[string]any:
		return typed
	case []any:
		out := make([]map[string]any, 0, len(typed))
		for _, item := range typed {
			if row, ok := item.(map[string]any); ok {
				out = append(out, row)
			}
		}
		return out
	case map[string]any:
		if nested, ok := typed["data"]; ok {
			return toMapSlice(nested)
		}
		return nil
	default:
		return nil
	}
}
