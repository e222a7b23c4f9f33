package source

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSV reads the grid from a CSV export of the sheet.
type CSV struct {
	path string
}

// NewCSV returns a CSV source for path.
func NewCSV(path string) *CSV {
	return &CSV{path: path}
}

// Name implements Source.
func (c *CSV) Name() string {
	return "csv:" + c.path
}

// Fetch implements Source.
func (c *CSV) Fetch(ctx context.Context) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	return ReadCSV(f)
}

// ReadCSV parses a CSV stream, skipping a UTF-8 BOM and accepting rows of
// varying width.
func ReadCSV(r io.Reader) ([][]string, error) {
	br := bufio.NewReader(r)
	if peeked, err := br.Peek(len(utf8BOM)); err == nil && string(peeked) == string(utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return nil, fmt.Errorf("skip bom: %w", err)
		}
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var grid [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		grid = append(grid, rec)
	}
	return grid, nil
}
