package catalog

import "context"

// ImportRow reports the outcome of one imported record.
type ImportRow struct {
	Index   int      `json:"index"`
	SKU     string   `json:"sku"`
	Product *Product `json:"product,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// ImportReport summarises an import run.
type ImportReport struct {
	Imported int         `json:"imported"`
	Failed   int         `json:"failed"`
	Rows     []ImportRow `json:"rows"`
}

// ImportProducts adds each record on its own. A duplicate sku or invalid row
// is reported and the remaining rows are still imported.
func (s *Service) ImportProducts(ctx context.Context, rows []ProductInput) ImportReport {
	report := ImportReport{Rows: make([]ImportRow, 0, len(rows))}
	for i, in := range rows {
		row := ImportRow{Index: i, SKU: in.SKU}
		if err := ctx.Err(); err != nil {
			row.Error = err.Error()
			report.Failed++
			report.Rows = append(report.Rows, row)
			continue
		}
		p, err := s.AddProduct(ctx, in)
		if err != nil {
			row.Error = err.Error()
			report.Failed++
		} else {
			row.Product = &p
			report.Imported++
		}
		report.Rows = append(report.Rows, row)
	}
	return report
}
