package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// jsonSource reads a local JSON file. Options: path, data_path (dotted path
// to the array of items; empty when the document is the array).
type jsonSource struct{}

func init() { RegisterSource(jsonSource{}) }

func (jsonSource) Type() string { return "json" }

func (jsonSource) Read(ctx context.Context, cfg SourceConfig) (<-chan Record, <-chan error) {
	return readAll(ctx, func() ([]Record, error) {
		path := cfg.string("path")
		if path == "" {
			return nil, fmt.Errorf("json feed: path is required")
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read feed: %w", err)
		}
		return parseJSON(data, cfg.string("data_path"))
	})
}

func parseJSON(data []byte, dataPath string) ([]Record, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if dataPath != "" {
		for _, part := range strings.Split(dataPath, ".") {
			m, ok := raw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("invalid data path: %q not found", part)
			}
			raw = m[part]
		}
	}
	return toRecords(raw), nil
}

// toRecords turns an array of objects, or a single object, into records.
func toRecords(raw any) []Record {
	switch v := raw.(type) {
	case []any:
		records := make([]Record, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				records = append(records, Record{Data: flattenMap(m)})
			}
		}
		return records
	case map[string]any:
		return []Record{{Data: flattenMap(v)}}
	default:
		return nil
	}
}

// flattenMap keeps scalar values and serializes nested ones as JSON.
func flattenMap(m map[string]any) map[string]any {
	flat := make(map[string]any, len(m))
	for k, v := range m {
		switch v.(type) {
		case string, float64, bool, nil:
			flat[k] = v
		default:
			b, _ := json.Marshal(v)
			flat[k] = string(b)
		}
	}
	return flat
}
