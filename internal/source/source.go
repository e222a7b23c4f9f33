// Package source reads the requisition grid from a spreadsheet.
//
// Every implementation returns the raw grid with the header as row 0.
// Ordering, header mapping and blank-row handling are left to the sheet
// package.
package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/jobdesk/internal/config"
)

// Source fetches the current contents of a requisition sheet.
type Source interface {
	Fetch(ctx context.Context) ([][]string, error)
	// Name identifies the source in logs.
	Name() string
}

// New returns the Source selected by cfg.Kind.
func New(ctx context.Context, cfg config.SheetConfig) (Source, error) {
	switch strings.ToLower(cfg.Kind) {
	case "google", "":
		creds, err := cfg.Credentials()
		if err != nil {
			return nil, err
		}
		return NewGoogleSheets(ctx, creds, cfg.SpreadsheetID, cfg.Range)
	case "csv":
		return NewCSV(cfg.Path), nil
	case "xlsx":
		return NewXLSX(cfg.Path, cfg.SheetName), nil
	default:
		return nil, fmt.Errorf("unknown sheet source %q", cfg.Kind)
	}
}
