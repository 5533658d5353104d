package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// csvSource reads a local CSV file. Options: path, delimiter, has_header.
type csvSource struct{}

func init() { RegisterSource(csvSource{}) }

func (csvSource) Type() string { return "csv" }

func (csvSource) Read(ctx context.Context, cfg SourceConfig) (<-chan Record, <-chan error) {
	return readAll(ctx, func() ([]Record, error) {
		path := cfg.string("path")
		if path == "" {
			return nil, fmt.Errorf("csv feed: path is required")
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open feed: %w", err)
		}
		defer f.Close()
		return parseCSV(f, cfg)
	})
}

func parseCSV(r io.Reader, cfg SourceConfig) ([]Record, error) {
	reader := csv.NewReader(r)
	if delim := cfg.string("delimiter"); delim != "" {
		reader.Comma = []rune(delim)[0]
	}
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	hasHeader := true
	switch v := cfg["has_header"].(type) {
	case bool:
		hasHeader = v
	case string:
		hasHeader = strings.ToLower(v) != "false"
	}

	var headers []string
	if hasHeader {
		headers, rows = rows[0], rows[1:]
		for i, h := range headers {
			headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		}
	} else {
		headers = make([]string, len(rows[0]))
		for i := range headers {
			headers[i] = fmt.Sprintf("col_%d", i+1)
		}
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		data := make(map[string]any, len(headers))
		for j, h := range headers {
			if j < len(row) {
				data[h] = strings.TrimSpace(row[j])
			}
		}
		records = append(records, Record{Data: data})
	}
	return records, nil
}
