package sync

import (
	"strings"
	"time"
)

// Record is the untyped field bag shared by both sides of the
// synchronization. Canonical (Connec) entities and external (Shopify)
// entities are both Records; only the field layout differs. Nested
// fields are addressed with slash-delimited paths, e.g.
// "sale_price/net_amount".
type Record map[string]any

// NewRecord returns an empty Record.
func NewRecord() Record {
	return Record{}
}

// AsRecord coerces a value into a Record. Values decoded from JSON
// arrive as map[string]any rather than Record, so both shapes are
// accepted.
func AsRecord(v any) (Record, bool) {
	switch m := v.(type) {
	case Record:
		return m, true
	case map[string]any:
		return Record(m), true
	default:
		return nil, false
	}
}

// AsRecordList coerces a value into an ordered list of Records,
// preserving element order. Non-record elements are skipped.
func AsRecordList(v any) ([]Record, bool) {
	switch list := v.(type) {
	case []Record:
		return list, true
	case []map[string]any:
		out := make([]Record, 0, len(list))
		for _, m := range list {
			out = append(out, Record(m))
		}
		return out, true
	case []any:
		out := make([]Record, 0, len(list))
		for _, e := range list {
			if r, ok := AsRecord(e); ok {
				out = append(out, r)
			}
		}
		return out, true
	default:
		return nil, false
	}
}

// Lookup resolves a slash-delimited path. The second return value is
// false when any path segment is missing or not a nested record.
func (r Record) Lookup(path string) (any, bool) {
	if r == nil {
		return nil, false
	}
	segments := splitPath(path)
	if len(segments) == 0 {
		return nil, false
	}

	current := r
	for i, seg := range segments {
		v, ok := current[seg]
		if !ok {
			return nil, false
		}
		if i == len(segments)-1 {
			return v, true
		}
		next, ok := AsRecord(v)
		if !ok {
			return nil, false
		}
		current = next
	}
	return nil, false
}

// Get resolves a slash-delimited path, returning nil when absent.
func (r Record) Get(path string) any {
	v, _ := r.Lookup(path)
	return v
}

// GetString resolves a path and returns its value as a string, or ""
// when absent or not a string.
func (r Record) GetString(path string) string {
	if s, ok := r.Get(path).(string); ok {
		return s
	}
	return ""
}

// GetRecords resolves a path to an ordered list of Records. An absent
// field yields an empty list.
func (r Record) GetRecords(path string) []Record {
	v, ok := r.Lookup(path)
	if !ok {
		return nil
	}
	list, _ := AsRecordList(v)
	return list
}

// Set writes a value at a slash-delimited path, creating intermediate
// records as needed.
func (r Record) Set(path string, v any) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return
	}

	current := r
	for _, seg := range segments[:len(segments)-1] {
		next, ok := AsRecord(current[seg])
		if !ok {
			next = NewRecord()
			current[seg] = next
		}
		current = next
	}
	current[segments[len(segments)-1]] = v
}

// Delete removes the field at a slash-delimited path and returns the
// removed value, or nil when absent.
func (r Record) Delete(path string) any {
	segments := splitPath(path)
	if len(segments) == 0 {
		return nil
	}

	current := r
	for _, seg := range segments[:len(segments)-1] {
		next, ok := AsRecord(current[seg])
		if !ok {
			return nil
		}
		current = next
	}
	leaf := segments[len(segments)-1]
	v, ok := current[leaf]
	if !ok {
		return nil
	}
	delete(current, leaf)
	return v
}

// Clone returns a deep copy of the record. Nested records and record
// lists are copied; scalar values are shared. Flattening and grouping
// always operate on clones so that a parent referenced by several
// children is never mutated in place.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	if rec, ok := AsRecord(v); ok {
		return rec.Clone()
	}
	switch list := v.(type) {
	case []Record:
		out := make([]Record, len(list))
		for i, e := range list {
			out[i] = e.Clone()
		}
		return out
	case []any:
		out := make([]any, len(list))
		for i, e := range list {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// timeLayouts are the timestamp formats the external platform is known
// to emit.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp interprets a field value as a timestamp. Returns false
// for absent or unparsable values.
func ParseTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}
