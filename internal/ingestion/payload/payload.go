package payload

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Record is one submission (or one repeat-group entry) after normalization.
// Nested objects and lists of objects are always held as []Record, so parsers
// never branch on the shape the survey service happened to emit.
type Record struct {
	raw    map[string]any
	fields map[string]any
	keys   []string
	leaf   map[string]string
	parent *Record
}

// Normalize converts a decoded JSON object into a Record. Values that are an
// object or a list of objects become groups; empty lists become empty groups.
func Normalize(raw map[string]any) Record {
	r := Record{
		raw:    raw,
		fields: make(map[string]any, len(raw)),
		leaf:   make(map[string]string, len(raw)),
	}
	for k, v := range raw {
		r.fields[k] = normalizeValue(v)
		r.keys = append(r.keys, k)
	}
	sort.Strings(r.keys)
	for _, k := range r.keys {
		name := leafName(k)
		if _, seen := r.leaf[name]; !seen {
			r.leaf[name] = k
		}
	}
	return r
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return []Record{Normalize(t)}
	case []any:
		if len(t) == 0 {
			return []Record{}
		}
		groups := make([]Record, 0, len(t))
		for _, item := range t {
			m, ok := item.(map[string]any)
			if !ok {
				return t
			}
			groups = append(groups, Normalize(m))
		}
		return groups
	default:
		return v
	}
}

func leafName(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[i+1:]
	}
	return key
}

// Inherit returns r with parent as fallback for keys r does not carry.
func (r Record) Inherit(parent Record) Record {
	p := parent
	r.parent = &p
	return r
}

// Get looks name up by exact key, then by the last path segment of
// group-prefixed keys ("Grp4/region" answers "region"), then in the parent.
func (r Record) Get(name string) (any, bool) {
	if v, ok := r.fields[name]; ok {
		return v, true
	}
	if !strings.Contains(name, "/") {
		if k, ok := r.leaf[name]; ok {
			return r.fields[k], true
		}
	} else {
		suffix := "/" + name
		for _, k := range r.keys {
			if strings.HasSuffix(k, suffix) {
				return r.fields[k], true
			}
		}
	}
	if r.parent != nil {
		return r.parent.Get(name)
	}
	return nil, false
}

// First returns the first present, non-blank value among names.
func (r Record) First(names ...string) (any, bool) {
	for _, n := range names {
		v, ok := r.Get(n)
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

// String returns the first non-blank value among names, trimmed.
func (r Record) String(names ...string) string {
	v, ok := r.First(names...)
	if !ok {
		return ""
	}
	return strings.TrimSpace(scalarString(v))
}

// Int parses the first present value among names; anything unparsable is 0.
func (r Record) Int(names ...string) int {
	f, ok := r.number(names...)
	if !ok {
		return 0
	}
	return int(math.Trunc(f))
}

func (r Record) Float(names ...string) float64 {
	f, _ := r.number(names...)
	return f
}

// Has reports whether any of names carries a non-blank value.
func (r Record) Has(names ...string) bool {
	_, ok := r.First(names...)
	return ok
}

func (r Record) number(names ...string) (float64, bool) {
	v, ok := r.First(names...)
	if !ok {
		return 0, false
	}
	return ParseNumber(v)
}

// Bool accepts yes/no style answers in French and English.
func (r Record) Bool(names ...string) bool {
	switch strings.ToLower(r.String(names...)) {
	case "1", "true", "yes", "oui", "o", "y":
		return true
	default:
		return false
	}
}

// Time parses the first present value among names with the date layouts the
// survey service emits. Unparsable values yield nil.
func (r Record) Time(names ...string) *time.Time {
	for _, n := range names {
		s := r.String(n)
		if s == "" {
			continue
		}
		if t, ok := ParseTime(s); ok {
			return &t
		}
	}
	return nil
}

// Groups returns the entries of the first named group present. With no names,
// or none present, it falls back to every group in key order, skipping
// service metadata keys that start with "_".
func (r Record) Groups(names ...string) []Record {
	for _, n := range names {
		if v, ok := r.Get(n); ok {
			if g, isGroup := v.([]Record); isGroup {
				return g
			}
		}
	}
	var out []Record
	for _, k := range r.keys {
		if strings.HasPrefix(leafName(k), "_") {
			continue
		}
		if g, ok := r.fields[k].([]Record); ok {
			out = append(out, g...)
		}
	}
	return out
}

// Geolocation reads "lat lon [alt acc]" strings or [lat, lon] arrays. ok is
// false when nothing usable is present.
func (r Record) Geolocation(names ...string) (lat, lon float64, ok bool) {
	for _, n := range names {
		v, present := r.Get(n)
		if !present || v == nil {
			continue
		}
		if lat, lon, ok = parseGeo(v); ok {
			return lat, lon, true
		}
	}
	return 0, 0, false
}

func parseGeo(v any) (float64, float64, bool) {
	var parts []any
	switch t := v.(type) {
	case string:
		for _, f := range geoTokens(t) {
			parts = append(parts, f)
		}
	case []any:
		parts = t
	default:
		return 0, 0, false
	}
	if len(parts) < 2 {
		return 0, 0, false
	}
	lat, ok1 := ParseNumber(parts[0])
	lon, ok2 := ParseNumber(parts[1])
	if !ok1 || !ok2 || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, false
	}
	return lat, lon, true
}

// geoTokens splits a geopoint string. Whitespace separates tokens, and each
// token may use a decimal comma. Without whitespace a single comma separates
// "lat,lon", unless neither side has a decimal point ("14,68" is one number).
func geoTokens(s string) []string {
	fields := strings.Fields(s)
	if len(fields) != 1 {
		return fields
	}
	parts := strings.Split(fields[0], ",")
	if len(parts) != 2 || !strings.ContainsAny(fields[0], ".") {
		return fields
	}
	return parts
}

// ID is the submission's external id anchor.
func (r Record) ID() string {
	return r.String("_id")
}

// SubmittedAt is the service-side submission timestamp, when present.
func (r Record) SubmittedAt() *time.Time {
	return r.Time("_submission_time")
}

// JSON re-encodes the original payload for quarantine storage.
func (r Record) JSON() []byte {
	if r.raw == nil {
		return []byte("{}")
	}
	b, err := json.Marshal(r.raw)
	if err != nil {
		return []byte("{}")
	}
	return b
}

// ParseNumber accepts JSON numbers, numeric Go types and strings, including a
// comma as decimal separator.
func ParseNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		s = strings.ReplaceAll(s, " ", "")
		if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
			s = strings.Replace(s, ",", ".", 1)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
}

// ParseTime parses a date or timestamp; values without a zone are UTC.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []Record:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
