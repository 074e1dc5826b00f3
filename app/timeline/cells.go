package timeline

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/lysyi3m/milestone-timeline/app/sheet"
)

const dateLayout = "2006-01-02"

var (
	// Date(2026,0,21). Datetime literals with time components do not match.
	dateLiteralPattern = regexp.MustCompile(`^Date\((\d+),(\d+),(\d+)\)$`)
	leadingIntPattern  = regexp.MustCompile(`^\s*[+-]?\d+`)
)

// isBlank reports whether a raw cell counts as "no value": nil, empty
// string, false and numeric zero.
func isBlank(v any) bool {
	switch value := v.(type) {
	case nil:
		return true
	case string:
		return value == ""
	case bool:
		return !value
	case float64:
		return value == 0
	default:
		return false
	}
}

// decodeFlag is the single truthiness rule for flag columns: the literal
// string "TRUE" or a boolean true.
func decodeFlag(v any) bool {
	switch value := v.(type) {
	case string:
		return value == "TRUE"
	case bool:
		return value
	default:
		return false
	}
}

// normalizeDate converts serialized Date(y,m,d) literals (zero-based month)
// to YYYY-MM-DD. Any other non-blank value is returned as text unchanged.
func normalizeDate(v any) *string {
	if isBlank(v) {
		return nil
	}

	s := sheet.CellString(v)
	if !strings.HasPrefix(s, "Date(") {
		return &s
	}

	m := dateLiteralPattern.FindStringSubmatch(s)
	if m == nil {
		return &s
	}

	month, err := strconv.Atoi(m[2])
	if err != nil {
		return &s
	}

	formatted := fmt.Sprintf("%s-%02d-%s", m[1], month+1, padTwo(m[3]))
	return &formatted
}

func padTwo(s string) string {
	if len(s) >= 2 {
		return s
	}
	return strings.Repeat("0", 2-len(s)) + s
}

// parseOrder reads an optional integer. Numbers are truncated toward zero,
// strings are read up to their first non-digit.
func parseOrder(v any) *int {
	if isBlank(v) {
		return nil
	}

	switch value := v.(type) {
	case float64:
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return nil
		}
		n := int(math.Trunc(value))
		return &n
	case string:
		digits := strings.TrimSpace(leadingIntPattern.FindString(value))
		if digits == "" {
			return nil
		}
		n, err := strconv.Atoi(digits)
		if err != nil {
			return nil
		}
		return &n
	default:
		return nil
	}
}

// optionalString returns nil for blank cells.
func optionalString(v any) *string {
	if isBlank(v) {
		return nil
	}
	s := sheet.CellString(v)
	return &s
}
