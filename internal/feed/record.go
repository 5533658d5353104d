// Package feed imports affiliate product feeds. A Source reads rows from
// a CSV file, a JSON file or an HTTP endpoint, transformers filter and
// reshape them, and a Mapping turns each row into an Item for the catalog.
package feed

// Record is one row of a feed, keyed by column or JSON field name.
type Record struct {
	Data map[string]any `json:"data"`
}

// String returns the trimmed text of a field, or "" when it is missing.
func (r Record) String(field string) string {
	if field == "" {
		return ""
	}
	v, ok := r.Data[field]
	if !ok || v == nil {
		return ""
	}
	return trimSpace(v)
}
