package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/ezoic/sciforest/fields"
)

// readCSV reads the rows of a CSV document whose first record is a header.
// Header columns are matched to fields by id or by name and empty cells are
// left missing. The header columns that match no field are returned sorted.
func readCSV(r io.Reader, t fields.Table) ([]fields.Input, []string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading csv: %v", err)
	}
	if len(records) == 0 {
		return nil, nil, nil
	}
	header := records[0]
	var unused []string
	for _, column := range header {
		if _, ok := t[column]; ok {
			continue
		}
		if _, ok := t.IDByName(column); !ok {
			unused = append(unused, column)
		}
	}
	sort.Strings(unused)

	rows := make([]fields.Input, 0, len(records)-1)
	for _, record := range records[1:] {
		raw := make(map[string]interface{}, len(header))
		for i, cell := range record {
			if i >= len(header) || cell == "" {
				continue
			}
			raw[header[i]] = cell
		}
		in, _ := fields.InputFromMap(t, raw)
		rows = append(rows, in)
	}
	return rows, unused, nil
}
