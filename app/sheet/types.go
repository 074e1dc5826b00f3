package sheet

import (
	"errors"
	"strconv"
)

var (
	// ErrFetch marks a transport failure on either feed.
	ErrFetch = errors.New("fetch failure")
	// ErrDecode marks a missing wrapper or a malformed embedded document.
	ErrDecode = errors.New("decode failure")
)

// RawTable is one decoded feed: column labels plus positional cell values.
// Cell values are string, float64, bool or nil.
type RawTable struct {
	Columns []string
	Rows    [][]any
}

// Record is one table row exposed as label -> value lookup.
type Record struct {
	columns []string
	values  map[string]any
}

// Payloads holds the raw bodies of both feeds, milestones first.
type Payloads struct {
	Milestones []byte
	Config     []byte
}

// Records zips every row against the column labels. Missing cells read as
// empty string; cells past the last column are ignored.
func (t *RawTable) Records() []Record {
	records := make([]Record, 0, len(t.Rows))
	for _, row := range t.Rows {
		records = append(records, NewRecord(t.Columns, row))
	}
	return records
}

func NewRecord(columns []string, cells []any) Record {
	values := make(map[string]any, len(columns))
	for i, label := range columns {
		var value any = ""
		if i < len(cells) && cells[i] != nil {
			value = cells[i]
		}
		values[label] = value
	}
	return Record{columns: columns, values: values}
}

// Columns returns the labels in table order.
func (r Record) Columns() []string {
	return r.columns
}

func (r Record) Len() int {
	return len(r.values)
}

func (r Record) Value(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// String renders the cell under key as text. Absent keys read as "".
func (r Record) String(key string) string {
	return CellString(r.values[key])
}

// CellString renders a raw cell value as text. Numbers use their shortest
// decimal form so that 3 prints as "3".
func CellString(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	default:
		return ""
	}
}
