package sheet

import (
	"slices"
	"strings"
	"time"
)

// dateKeywords mark a header as the date column. Matched as substrings of the
// normalized header.
var dateKeywords = []string{"date", "timestamp", "horodat", "created", "updated", "start", "debut"}

// dateLayouts are tried in order; the first that parses wins.
// Day-first layouts follow the sheet's French locale.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02/01/2006",
	"2/1/2006",
	"02/01/2006 15:04:05",
	"2/1/2006 15:04:05",
	"02-01-2006",
	"2-1-2006",
	"2006/01/02",
}

// DetectDateColumn returns the position of the first header containing a
// date keyword.
func DetectDateColumn(headers Header) (int, bool) {
	for i, h := range headers {
		n := Normalize(h)
		for _, kw := range dateKeywords {
			if strings.Contains(n, kw) {
				return i, true
			}
		}
	}
	return -1, false
}

// ParseDate parses cell with the first matching layout. Unparseable input
// returns the zero time and false.
func ParseDate(cell string) (time.Time, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cell); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SortByRecency returns rows ordered newest first.
//
// With a detected date column the sort is stable and rows whose date cell is
// missing or unparseable sort last in their input order. Without a date
// column the input order is reversed. The input slice is not modified.
func SortByRecency(headers Header, rows []Row) []Row {
	order := RecencyOrder(headers, rows)
	out := make([]Row, len(order))
	for i, pos := range order {
		out[i] = rows[pos]
	}
	return out
}

// RecencyOrder is SortByRecency expressed as input positions, for callers
// that need to keep track of where each row came from.
func RecencyOrder(headers Header, rows []Row) []int {
	order := make([]int, len(rows))
	for i := range order {
		order[i] = i
	}

	col, ok := DetectDateColumn(headers)
	if !ok {
		slices.Reverse(order)
		return order
	}

	keys := make([]time.Time, len(rows))
	for i, r := range rows {
		if col < len(r) {
			keys[i], _ = ParseDate(r[col])
		}
	}

	slices.SortStableFunc(order, func(a, b int) int {
		return keys[b].Compare(keys[a])
	})
	return order
}
