// Package productview derives filtered, searched and sorted projections of a
// materialized product list and tracks the selection/edit state around it.
package productview

import (
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/stockdesk/internal/catalog"
)

// Column identifies a product field in the table projection.
type Column string

const (
	ColumnID          Column = "id"
	ColumnName        Column = "name"
	ColumnSKU         Column = "sku"
	ColumnBrand       Column = "brand"
	ColumnCategory    Column = "category"
	ColumnSupplier    Column = "supplier"
	ColumnStock       Column = "stock"
	ColumnPrice       Column = "price"
	ColumnDescription Column = "description"
	ColumnLastUpdated Column = "lastUpdated"
)

// AllColumns lists every column in display order.
var AllColumns = []Column{
	ColumnID, ColumnName, ColumnSKU, ColumnBrand, ColumnCategory, ColumnSupplier,
	ColumnStock, ColumnPrice, ColumnDescription, ColumnLastUpdated,
}

// ParseColumn resolves a column name case-insensitively.
func ParseColumn(raw string) (Column, bool) {
	raw = strings.TrimSpace(raw)
	for _, c := range AllColumns {
		if strings.EqualFold(string(c), raw) {
			return c, true
		}
	}
	return "", false
}

type kind int

const (
	kindText kind = iota
	kindNumber
	kindTime
)

func (c Column) kind() kind {
	switch c {
	case ColumnID, ColumnStock, ColumnPrice:
		return kindNumber
	case ColumnLastUpdated:
		return kindTime
	}
	return kindText
}

// text renders the field for substring matching. ok is false for null fields.
func (c Column) text(p catalog.Product) (string, bool) {
	switch c {
	case ColumnID:
		return strconv.FormatInt(p.ID, 10), true
	case ColumnName:
		return p.Name, true
	case ColumnSKU:
		return p.SKU, true
	case ColumnBrand:
		return deref(p.BrandName)
	case ColumnCategory:
		return deref(p.CategoryName)
	case ColumnSupplier:
		return deref(p.SupplierName)
	case ColumnStock:
		return strconv.Itoa(p.Stock), true
	case ColumnPrice:
		return strconv.FormatFloat(p.Price, 'f', 2, 64), true
	case ColumnDescription:
		return deref(p.Description)
	case ColumnLastUpdated:
		return p.LastUpdated.UTC().Format(time.RFC3339), true
	}
	return "", false
}

func (c Column) number(p catalog.Product) float64 {
	switch c {
	case ColumnID:
		return float64(p.ID)
	case ColumnStock:
		return float64(p.Stock)
	case ColumnPrice:
		return p.Price
	}
	return 0
}

// value returns the typed field for export; nil for null fields.
func (c Column) value(p catalog.Product) any {
	switch c.kind() {
	case kindNumber:
		if c == ColumnPrice {
			return p.Price
		}
		return int64(c.number(p))
	case kindTime:
		return p.LastUpdated.UTC()
	}
	s, ok := c.text(p)
	if !ok {
		return nil
	}
	return s
}

func deref(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	return *s, true
}
