package catalog

import (
	"math"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Product is the denormalized product record: lookup ids are resolved into
// names at read time and never stored on the row.
type Product struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	SKU          string    `json:"sku"`
	Stock        int       `json:"stock"`
	Price        float64   `json:"price"`
	Description  *string   `json:"description,omitempty"`
	BrandID      *int64    `json:"brandId"`
	CategoryID   *int64    `json:"categoryId"`
	SupplierID   *int64    `json:"supplierId"`
	BrandName    *string   `json:"brandName"`
	CategoryName *string   `json:"categoryName"`
	SupplierName *string   `json:"supplierName"`
	LastUpdated  time.Time `json:"lastUpdated"`
}

// roundPrice rounds to cents so every store holds the same value.
func roundPrice(f float64) float64 {
	return math.Round(f*100) / 100
}

// DisplayPrice renders the price with two decimals and grouped thousands.
// It is for presentation only.
func (p Product) DisplayPrice() string {
	return message.NewPrinter(language.English).Sprintf("%.2f", p.Price)
}

// ProductInput carries the fields of a new product.
type ProductInput struct {
	Name        string  `json:"name" validate:"required"`
	SKU         string  `json:"sku" validate:"required"`
	Stock       int     `json:"stock" validate:"gte=0"`
	Price       float64 `json:"price" validate:"gte=0"`
	Description *string `json:"description,omitempty"`
	BrandID     *int64  `json:"brandId,omitempty" validate:"omitempty,gt=0"`
	CategoryID  *int64  `json:"categoryId,omitempty" validate:"omitempty,gt=0"`
	SupplierID  *int64  `json:"supplierId,omitempty" validate:"omitempty,gt=0"`
}

func (in ProductInput) normalized() ProductInput {
	in.Name = strings.TrimSpace(in.Name)
	in.SKU = strings.TrimSpace(in.SKU)
	in.Price = roundPrice(in.Price)
	return in
}

// ProductPatch is a partial update. Nil fields keep their stored value, so a
// patch can never clear a lookup reference or the description.
type ProductPatch struct {
	Name        *string  `json:"name,omitempty"`
	SKU         *string  `json:"sku,omitempty"`
	BrandID     *int64   `json:"brandId,omitempty" validate:"omitempty,gt=0"`
	CategoryID  *int64   `json:"categoryId,omitempty" validate:"omitempty,gt=0"`
	Stock       *int     `json:"stock,omitempty" validate:"omitempty,gte=0"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	SupplierID  *int64   `json:"supplierId,omitempty" validate:"omitempty,gt=0"`
	Description *string  `json:"description,omitempty"`
}

func (p ProductPatch) normalized() ProductPatch {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		p.Name = &name
	}
	if p.SKU != nil {
		sku := strings.TrimSpace(*p.SKU)
		p.SKU = &sku
	}
	if p.Price != nil {
		price := roundPrice(*p.Price)
		p.Price = &price
	}
	return p
}

// Category is a lookup entity.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Brand is a lookup entity.
type Brand struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Supplier is a lookup entity with optional contact fields.
type Supplier struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	ContactName *string `json:"contactName,omitempty"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
}

// SupplierInput carries the fields of a new supplier.
type SupplierInput struct {
	Name        string  `json:"name" validate:"required"`
	ContactName *string `json:"contactName,omitempty"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone       *string `json:"phone,omitempty"`
}

// Stats aggregates dashboard counters. TotalStock is zero when there are no products.
type Stats struct {
	TotalProducts   int64 `json:"totalProducts"`
	TotalStock      int64 `json:"totalStock"`
	TotalCategories int64 `json:"totalCategories"`
	TotalSuppliers  int64 `json:"totalSuppliers"`
}
