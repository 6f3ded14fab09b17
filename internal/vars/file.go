package vars

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LoadFile loads a CSV or JSON data file and registers one variable per
// column, all bound to a combination group named groupName so rows stay
// aligned across columns. CSV files need a header row; JSON files must hold
// an array of flat objects.
func (s *Store) LoadFile(groupName, path string, kind Kind, recycle bool, baseDir string) error {
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}

	var columns []string
	var rows []map[string]string
	var err error

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		columns, rows, err = loadCSV(path)
	case ".json":
		columns, rows, err = loadJSON(path)
	default:
		return fmt.Errorf("unsupported data file format %q (use .csv or .json)", ext)
	}
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("data file %s is empty", path)
	}

	for _, col := range columns {
		values := make([]string, len(rows))
		for i, row := range rows {
			values[i] = row[col]
		}
		s.Register(Variable{
			Name:    col,
			Kind:    kind,
			Values:  values,
			Recycle: recycle,
			Group:   groupName,
		})
	}
	s.RegisterGroup(groupName, columns)
	return nil
}

// loadCSV loads a CSV file. First row is headers, subsequent rows are data.
func loadCSV(path string) ([]string, []map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 {
		return nil, nil, fmt.Errorf("CSV must have a header row and at least one data row")
	}

	headers := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(headers))
		for i, header := range headers {
			if i < len(record) {
				row[header] = record[i]
			} else {
				row[header] = ""
			}
		}
		rows = append(rows, row)
	}
	return headers, rows, nil
}

// loadJSON loads a JSON file holding an array of objects. Column order
// follows the first object's keys, sorted for determinism.
func loadJSON(path string) ([]string, []map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("JSON must be an array of objects: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil, nil
	}

	columns := make([]string, 0, len(raw[0]))
	for key := range raw[0] {
		columns = append(columns, key)
	}
	sort.Strings(columns)

	rows := make([]map[string]string, 0, len(raw))
	for _, obj := range raw {
		row := make(map[string]string, len(obj))
		for key, value := range obj {
			row[key] = fmt.Sprintf("%v", value)
		}
		rows = append(rows, row)
	}
	return columns, rows, nil
}
