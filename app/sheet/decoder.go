package sheet

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// responsePattern captures the document passed to the gviz JSONP callback.
// Greedy on purpose: the document itself contains parentheses.
var responsePattern = regexp.MustCompile(`(?s)google\.visualization\.Query\.setResponse\((.*)\);?`)

type gvizResponse struct {
	Status string      `json:"status"`
	Errors []gvizError `json:"errors"`
	Table  *gvizTable  `json:"table"`
}

type gvizError struct {
	Reason          string `json:"reason"`
	Message         string `json:"message"`
	DetailedMessage string `json:"detailed_message"`
}

type gvizTable struct {
	Cols []gvizColumn `json:"cols"`
	Rows []gvizRow    `json:"rows"`
}

type gvizColumn struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

type gvizRow struct {
	C []*gvizCell `json:"c"`
}

type gvizCell struct {
	V any    `json:"v"`
	F string `json:"f"`
}

type Decoder struct{}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// Run unwraps a gviz response and returns its table.
func (d *Decoder) Run(data []byte) (*RawTable, error) {
	match := responsePattern.FindSubmatch(data)
	if match == nil {
		return nil, fmt.Errorf("%w: response wrapper not found", ErrDecode)
	}

	var response gvizResponse
	if err := json.Unmarshal(match[1], &response); err != nil {
		return nil, fmt.Errorf("%w: failed to parse table document: %v", ErrDecode, err)
	}

	if response.Status == "error" {
		return nil, fmt.Errorf("%w: data source error: %s", ErrDecode, d.errorMessage(response.Errors))
	}

	if response.Table == nil {
		return nil, fmt.Errorf("%w: response has no table", ErrDecode)
	}

	table := &RawTable{
		Columns: make([]string, 0, len(response.Table.Cols)),
		Rows:    make([][]any, 0, len(response.Table.Rows)),
	}

	for _, col := range response.Table.Cols {
		table.Columns = append(table.Columns, col.Label)
	}

	for _, row := range response.Table.Rows {
		cells := make([]any, len(table.Columns))
		for i := range cells {
			cells[i] = ""
			if i < len(row.C) && row.C[i] != nil && row.C[i].V != nil {
				cells[i] = row.C[i].V
			}
		}
		table.Rows = append(table.Rows, cells)
	}

	return table, nil
}

func (d *Decoder) errorMessage(errs []gvizError) string {
	if len(errs) == 0 {
		return "unknown error"
	}
	first := errs[0]
	switch {
	case first.DetailedMessage != "":
		return first.DetailedMessage
	case first.Message != "":
		return first.Message
	case first.Reason != "":
		return first.Reason
	default:
		return "unknown error"
	}
}
