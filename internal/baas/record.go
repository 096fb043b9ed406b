package baas

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// Record is one raw item of a collection, exactly as the backend returned it.
// Every accessor reports whether the field was present and well-typed so callers
// apply their own defaults explicitly.
type Record map[string]any

// Backend timestamps look like "2024-05-01 18:30:00.123Z".
const recordTimeLayout = "2006-01-02 15:04:05.999Z07:00"

// ID returns the record identifier, or "" when absent.
func (r Record) ID() string {
	id, _ := r.String("id")
	return id
}

// CollectionID returns the collection id the record belongs to, or "".
func (r Record) CollectionID() string {
	v, _ := r.String("collectionId")
	return v
}

// CollectionName returns the collection name the record belongs to, or "".
func (r Record) CollectionName() string {
	v, _ := r.String("collectionName")
	return v
}

// String returns a string field.
func (r Record) String(key string) (string, bool) {
	v, ok := r[key].(string)
	return v, ok
}

// Strings returns a list-of-strings field. A single string value (backends
// collapse single-file fields) is returned as a one-element slice.
func (r Record) Strings(key string) ([]string, bool) {
	switch v := r[key].(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	case string:
		if v == "" {
			return []string{}, true
		}
		return []string{v}, true
	default:
		return nil, false
	}
}

// Int returns a numeric field truncated to int. JSON numbers decode as float64.
func (r Record) Int(key string) (int, bool) {
	switch v := r[key].(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

// Time returns a timestamp field. Empty strings count as absent.
func (r Record) Time(key string) (time.Time, bool) {
	switch v := r[key].(type) {
	case time.Time:
		return v, !v.IsZero()
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return time.Time{}, false
		}
		for _, layout := range []string{recordTimeLayout, time.RFC3339Nano, "2006-01-02 15:04:05Z07:00", "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// Expand returns the related record inlined under expand.<key>, if the query
// requested that expansion and the backend found the relation.
func (r Record) Expand(key string) (Record, bool) {
	var expand map[string]any
	switch v := r["expand"].(type) {
	case map[string]any:
		expand = v
	case Record:
		expand = v
	default:
		return nil, false
	}
	switch v := expand[key].(type) {
	case map[string]any:
		return Record(v), true
	case Record:
		return v, true
	default:
		return nil, false
	}
}
