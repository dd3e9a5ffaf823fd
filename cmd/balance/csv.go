package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// loadLabelCSV reads an integer label matrix from a CSV file: one row per
// example, one column per source. A header row is tolerated when its first
// cell is non-numeric.
func loadLabelCSV(path string) ([][]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // raggedness is reported with row context below
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s holds no rows", path)
	}

	start := 0
	if _, err := strconv.Atoi(strings.TrimSpace(records[0][0])); err != nil {
		start = 1 // header row
	}
	if start >= len(records) {
		return nil, fmt.Errorf("%s holds only a header row", path)
	}

	width := len(records[start])
	L := make([][]int, 0, len(records)-start)
	for rowIdx, record := range records[start:] {
		if len(record) != width {
			return nil, fmt.Errorf("row %d has %d columns, want %d", rowIdx+start+1, len(record), width)
		}
		row := make([]int, width)
		for colIdx, cell := range record {
			v, err := strconv.Atoi(strings.TrimSpace(cell))
			if err != nil {
				return nil, fmt.Errorf("row %d col %d: %q is not an integer label", rowIdx+start+1, colIdx+1, cell)
			}
			row[colIdx] = v
		}
		L = append(L, row)
	}
	return L, nil
}
