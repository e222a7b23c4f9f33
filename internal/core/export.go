package core

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/JonMunkholm/jobdesk/internal/sheet"
)

// exportHeader is the column order of ExportCSV.
var exportHeader = []string{"id", "title", "location", "salary", "line", "created_at", "content"}

// ExportCSV writes every stored fiche as CSV, newest first.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	fiches, err := s.store.ListFiches(ctx)
	if err != nil {
		return fmt.Errorf("list fiches: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, f := range fiches {
		rec := []string{
			f.ID.String(),
			f.Title,
			f.Fields[string(sheet.FieldLocation)],
			f.Fields[string(sheet.FieldSalary)],
			strconv.Itoa(f.Line),
			f.CreatedAt.UTC().Format(time.RFC3339),
			f.Content,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
