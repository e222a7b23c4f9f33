package sheet

import "strings"

// Requisition is one data row resolved to canonical fields.
type Requisition struct {
	// Line is the 1-based line in the sheet; the header is line 1.
	Line   int
	Fields map[Field]string
	Raw    Row
}

// Get returns the value of f, or def when it is empty.
func (r Requisition) Get(f Field, def string) string {
	if v := r.Fields[f]; v != "" {
		return v
	}
	return def
}

// Requisitions turns a raw grid (header first) into requisitions ordered
// newest first. Fully blank rows are dropped.
func Requisitions(grid [][]string, table AliasTable) []Requisition {
	if len(grid) == 0 {
		return nil
	}

	headers := Header(grid[0])
	rows := make([]Row, len(grid)-1)
	for i, r := range grid[1:] {
		rows[i] = Row(r)
	}

	idx := ResolveColumns(headers, table)
	order := RecencyOrder(headers, rows)

	out := make([]Requisition, 0, len(rows))
	for _, pos := range order {
		row := rows[pos]
		if isBlank(row) {
			continue
		}
		fields := make(map[Field]string, len(table))
		for _, entry := range table {
			fields[entry.Field] = GetField(row, idx, entry.Field, "")
		}
		out = append(out, Requisition{Line: pos + 2, Fields: fields, Raw: row})
	}
	return out
}

func isBlank(row Row) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
