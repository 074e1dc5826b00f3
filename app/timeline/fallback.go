package timeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/milestone-timeline/app/sheet"
)

const defaultFallbackLastUpdated = "2026-01-21"

// defaultFallbackRows mirrors the sheet layout so the fallback goes through
// the same normalizer as live data.
var defaultFallbackRows = struct {
	columns []string
	rows    [][]any
}{
	columns: []string{"id", "type", "date", "title", "subtitle", "description", "status", "details_summary"},
	rows: [][]any{
		{"start", "start", "", "START", "", "", "completed", ""},
		{"final-rule", "procedural", "2026-01-21", "FINAL RULE EFFECTIVE", "Consolidated License Procedure",
			"Effective Date: Immediate", "current", "Loading data from Google Sheets..."},
	},
}

// DefaultFallback builds the minimal dataset shown when live data is unavailable.
func DefaultFallback() *Dataset {
	table := &sheet.RawTable{Columns: defaultFallbackRows.columns, Rows: defaultFallbackRows.rows}
	milestones, err := NewNormalizer().Run(table)
	if err != nil {
		panic(fmt.Sprintf("built-in fallback timeline is invalid: %v", err))
	}
	return &Dataset{LastUpdated: defaultFallbackLastUpdated, Milestones: milestones}
}

// FallbackPolicy substitutes a fixed dataset for a failed load.
type FallbackPolicy struct {
	dataset *Dataset
}

func NewFallbackPolicy(dataset *Dataset) *FallbackPolicy {
	if dataset == nil {
		dataset = DefaultFallback()
	}
	return &FallbackPolicy{dataset: dataset}
}

// Apply returns a private copy of the fallback dataset and the message to
// show alongside it.
func (p *FallbackPolicy) Apply(err error) (*Dataset, string) {
	message := "unknown error"
	if err != nil {
		message = err.Error()
	}
	return p.dataset.Clone(), message
}

// LoadFallbackFile reads a fallback dataset from YAML. Milestones use the
// same flat keys as the sheet columns, details_* included:
//
//	lastUpdated: "2026-01-21"
//	milestones:
//	  - id: start
//	    type: start
//	    title: START
//	    status: completed
//	  - id: final-rule
//	    details_summary: Effective now
func LoadFallbackFile(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var doc struct {
		LastUpdated string      `yaml:"lastUpdated"`
		Milestones  []yaml.Node `yaml:"milestones"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	table := &sheet.RawTable{}
	columnIndex := make(map[string]int)
	for i := range doc.Milestones {
		row, err := fallbackRow(&doc.Milestones[i], table, columnIndex)
		if err != nil {
			return nil, fmt.Errorf("milestone %d: %w", i, err)
		}
		table.Rows = append(table.Rows, row)
	}

	milestones, err := NewNormalizer().Run(table)
	if err != nil {
		return nil, err
	}
	if len(milestones) == 0 {
		return nil, fmt.Errorf("fallback file %s has no milestones with an id", path)
	}

	lastUpdated := defaultFallbackLastUpdated
	if date := normalizeDate(doc.LastUpdated); date != nil {
		lastUpdated = *date
	}

	return &Dataset{LastUpdated: lastUpdated, Milestones: milestones}, nil
}

// fallbackRow flattens one YAML mapping into a table row, growing the shared
// column list as new keys appear so key order is kept.
func fallbackRow(node *yaml.Node, table *sheet.RawTable, columnIndex map[string]int) ([]any, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a mapping, got YAML kind %d", node.Kind)
	}

	values := make(map[int]any, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		idx, ok := columnIndex[key]
		if !ok {
			idx = len(table.Columns)
			columnIndex[key] = idx
			table.Columns = append(table.Columns, key)
		}

		value, err := fallbackCell(node.Content[i+1])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		values[idx] = value
	}

	row := make([]any, len(table.Columns))
	for i := range row {
		row[i] = ""
		if v, ok := values[i]; ok {
			row[i] = v
		}
	}
	return row, nil
}

// fallbackCell decodes a scalar into the same types the sheet decoder yields.
func fallbackCell(node *yaml.Node) (any, error) {
	if node.Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("expected a scalar value")
	}

	var v any
	if err := node.Decode(&v); err != nil {
		return nil, err
	}

	switch value := v.(type) {
	case nil:
		return "", nil
	case int:
		return float64(value), nil
	case int64:
		return float64(value), nil
	case uint64:
		return float64(value), nil
	case float64, bool, string:
		return value, nil
	default:
		// Timestamps and other tagged scalars keep their literal text.
		return node.Value, nil
	}
}
