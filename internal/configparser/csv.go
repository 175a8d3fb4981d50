package configparser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

// parseCSV shapes a CSV file into a render context: the first row names the
// columns and every following row becomes a map under the configured key.
// Empty cells are replaced by the configured fill so templates can tell a
// deliberately blank field from a missing column.
func parseCSV(data []byte, config Config) (map[string]any, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("configparser: %w", err)
	}
	if len(records) == 0 {
		return map[string]any{config.csvKey: []map[string]any{}}, nil
	}

	headers := records[0]
	rows := make([]map[string]any, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]any, len(headers))
		for i, header := range headers {
			name := strings.TrimSpace(header)
			if name == "" {
				name = fmt.Sprintf("column_%d", i+1)
			}
			if i >= len(record) {
				row[name] = config.csvFill
				continue
			}
			row[name] = inferCell(record[i], config.csvFill)
		}
		rows = append(rows, row)
	}
	return map[string]any{config.csvKey: rows}, nil
}

// inferCell types a raw cell: integers and floats become numbers, empty
// cells become the fill, everything else stays a string.
func inferCell(cell, fill string) any {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return fill
	}
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	return cell
}
