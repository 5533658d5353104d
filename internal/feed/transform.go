package feed

import (
	"fmt"
	"strconv"
	"strings"
)

// Transformer processes a single record and reports whether to keep it.
type Transformer interface {
	Transform(Record) (Record, bool)
}

// TransformerFunc adapts a plain function to the Transformer interface.
type TransformerFunc func(Record) (Record, bool)

func (f TransformerFunc) Transform(r Record) (Record, bool) { return f(r) }

// TransformConfig is a declarative transform from the config file.
type TransformConfig struct {
	Type   string         `json:"type" mapstructure:"type"` // filter | rename | dedupe | limit
	Config map[string]any `json:"config" mapstructure:"config"`
}

// FilterTransform drops records whose field does not match the value.
type FilterTransform struct {
	Field string
	Op    string // eq | neq | gt | lt | contains
	Value any
}

func (t *FilterTransform) Transform(r Record) (Record, bool) {
	v, ok := r.Data[t.Field]
	if !ok {
		return r, false
	}
	switch t.Op {
	case "eq":
		return r, fmt.Sprint(v) == fmt.Sprint(t.Value)
	case "neq":
		return r, fmt.Sprint(v) != fmt.Sprint(t.Value)
	case "contains":
		return r, strings.Contains(fmt.Sprint(v), fmt.Sprint(t.Value))
	case "gt":
		return r, toFloat(v) > toFloat(t.Value)
	case "lt":
		return r, toFloat(v) < toFloat(t.Value)
	default:
		return r, true
	}
}

// RenameTransform renames fields.
type RenameTransform struct {
	Mapping map[string]string // old name → new name
}

func (t *RenameTransform) Transform(r Record) (Record, bool) {
	for from, to := range t.Mapping {
		if v, ok := r.Data[from]; ok {
			r.Data[to] = v
			delete(r.Data, from)
		}
	}
	return r, true
}

// DedupeTransform drops records repeating an earlier value of Key.
type DedupeTransform struct {
	Key  string
	seen map[string]bool
}

func NewDedupeTransform(key string) *DedupeTransform {
	return &DedupeTransform{Key: key, seen: make(map[string]bool)}
}

func (t *DedupeTransform) Transform(r Record) (Record, bool) {
	v := fmt.Sprint(r.Data[t.Key])
	if t.seen[v] {
		return r, false
	}
	t.seen[v] = true
	return r, true
}

// LimitTransform keeps the first Count records.
type LimitTransform struct {
	Count int
	seen  int
}

func (t *LimitTransform) Transform(r Record) (Record, bool) {
	t.seen++
	return r, t.seen <= t.Count
}

// ApplyTransformers runs the chain, stopping at the first drop.
func ApplyTransformers(r Record, ts []Transformer) (Record, bool) {
	for _, t := range ts {
		var keep bool
		r, keep = t.Transform(r)
		if !keep {
			return r, false
		}
	}
	return r, true
}

// buildTransformers turns config entries into a fresh chain. Unknown or
// incomplete entries are an error so a typo does not import everything.
func buildTransformers(configs []TransformConfig, dedupeKey string) ([]Transformer, error) {
	var ts []Transformer
	for i, tc := range configs {
		switch tc.Type {
		case "filter":
			field, _ := tc.Config["field"].(string)
			op, _ := tc.Config["op"].(string)
			if field == "" || op == "" {
				return nil, fmt.Errorf("transform %d: filter needs field and op", i)
			}
			ts = append(ts, &FilterTransform{Field: field, Op: op, Value: tc.Config["value"]})
		case "rename":
			mapping, ok := tc.Config["mapping"].(map[string]any)
			if !ok {
				return nil, fmt.Errorf("transform %d: rename needs a mapping", i)
			}
			m := make(map[string]string, len(mapping))
			for k, v := range mapping {
				m[k] = fmt.Sprint(v)
			}
			ts = append(ts, &RenameTransform{Mapping: m})
		case "dedupe":
			key, _ := tc.Config["key"].(string)
			if key == "" {
				return nil, fmt.Errorf("transform %d: dedupe needs a key", i)
			}
			ts = append(ts, NewDedupeTransform(key))
		case "limit":
			n := int(toFloat(tc.Config["count"]))
			if n <= 0 {
				return nil, fmt.Errorf("transform %d: limit needs a positive count", i)
			}
			ts = append(ts, &LimitTransform{Count: n})
		default:
			return nil, fmt.Errorf("transform %d: unknown type %q", i, tc.Type)
		}
	}
	if dedupeKey != "" {
		ts = append(ts, NewDedupeTransform(dedupeKey))
	}
	return ts, nil
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f
	default:
		return 0
	}
}
