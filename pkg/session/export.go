package session

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// ExportJSON writes all records of a run as a pretty-printed JSON array.
func (m *Manager) ExportJSON(ctx context.Context, w io.Writer, runID string) error {
	records, err := m.List(ctx, runID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// ExportCSV writes all records of a run as CSV. The header is the union of
// all record keys in sorted order; missing values are empty cells, non-scalar
// values are JSON-encoded.
func (m *Manager) ExportCSV(ctx context.Context, w io.Writer, runID string) error {
	records, err := m.List(ctx, runID)
	if err != nil {
		return err
	}

	keySet := make(map[string]struct{})
	for _, rec := range records {
		for k := range rec {
			keySet[k] = struct{}{}
		}
	}
	header := make([]string, 0, len(keySet))
	for k := range keySet {
		header = append(header, k)
	}
	sort.Strings(header)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	row := make([]string, len(header))
	for _, rec := range records {
		for i, k := range header {
			v, ok := rec[k]
			if !ok || v == nil {
				row[i] = ""
				continue
			}
			row[i] = formatCell(v)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool, int, int64, float64:
		return fmt.Sprintf("%v", val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	}
}
