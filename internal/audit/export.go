package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"
)

// MaxExportRows membatasi jumlah baris dalam satu ekspor.
const MaxExportRows = 5000

// Export mengambil seluruh activity dalam rentang filter, tanpa paging.
func (s *Service) Export(ctx context.Context, filters TimelineFilters) ([]ActivityEntry, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	rows, err := s.repo.ActivityWindow(ctx, TimelineQuery{
		From:       filters.From,
		To:         filters.To,
		EntityType: filters.EntityType,
		Action:     filters.Action,
		Limit:      MaxExportRows,
	})
	if err != nil {
		return nil, fmt.Errorf("audit: export: %w", err)
	}
	if rows == nil {
		rows = []ActivityEntry{}
	}
	return rows, nil
}

// Exporter menulis activity log ke CSV.
type Exporter struct{}

// NewExporter membuat exporter baru.
func NewExporter() *Exporter {
	return &Exporter{}
}

// WriteCSV encodes rows with a header line. Details are empty when absent.
func (e *Exporter) WriteCSV(rows []ActivityEntry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"timestamp", "action", "entity_type", "entity_id", "details"}); err != nil {
		return nil, err
	}
	for _, row := range rows {
		details := ""
		if row.Details != nil {
			details = *row.Details
		}
		record := []string{
			row.At.UTC().Format(time.RFC3339),
			string(row.Action),
			string(row.EntityType),
			strconv.FormatInt(row.EntityID, 10),
			details,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
