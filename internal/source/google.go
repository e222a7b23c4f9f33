package source

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// GoogleSheets reads a range of a Google spreadsheet with a service account.
type GoogleSheets struct {
	svc           *sheets.Service
	spreadsheetID string
	readRange     string
}

// NewGoogleSheets creates a read-only Sheets client from service account
// credentials JSON.
func NewGoogleSheets(ctx context.Context, credentialsJSON []byte, spreadsheetID, readRange string) (*GoogleSheets, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("google sheets: spreadsheet ID is required")
	}

	svc, err := sheets.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(sheets.SpreadsheetsReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("google sheets client: %w", err)
	}

	return &GoogleSheets{svc: svc, spreadsheetID: spreadsheetID, readRange: readRange}, nil
}

// Name implements Source.
func (g *GoogleSheets) Name() string {
	return "google:" + g.readRange
}

// Fetch implements Source.
func (g *GoogleSheets) Fetch(ctx context.Context) ([][]string, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, g.readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read range %q: %w", g.readRange, err)
	}
	return stringifyGrid(resp.Values), nil
}

// stringifyGrid converts the API's loosely typed cells to strings.
// The API trims trailing empty cells, so rows come back ragged.
func stringifyGrid(values [][]interface{}) [][]string {
	grid := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, v := range row {
			if v == nil {
				continue
			}
			if s, ok := v.(string); ok {
				cells[j] = s
			} else {
				cells[j] = fmt.Sprint(v)
			}
		}
		grid[i] = cells
	}
	return grid
}
