package mcpserver

import (
	"encoding/json"
	"fmt"
)

// objectArg decodes an argument that may arrive as a JSON object or as a
// JSON-encoded string into target. A missing argument leaves target alone
// and reports false.
func objectArg(args map[string]any, key string, target any) (bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return false, nil
	}
	var data []byte
	if s, isString := raw.(string); isString {
		if s == "" {
			return false, nil
		}
		data = []byte(s)
	} else {
		var err error
		if data, err = json.Marshal(raw); err != nil {
			return false, fmt.Errorf("%s: %w", key, err)
		}
	}
	if err := json.Unmarshal(data, target); err != nil {
		return false, fmt.Errorf("%s must be valid JSON: %w", key, err)
	}
	return true, nil
}

func boolPtr(v bool) *bool { return &v }
