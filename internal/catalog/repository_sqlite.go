package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/odyssey-erp/stockdesk/internal/audit"
	"github.com/odyssey-erp/stockdesk/internal/shared"
)

type productRow struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	Name        string    `gorm:"not null;index"`
	SKU         string    `gorm:"column:sku;not null;uniqueIndex"`
	BrandID     *int64    `gorm:"column:brand_id"`
	CategoryID  *int64    `gorm:"column:category_id"`
	SupplierID  *int64    `gorm:"column:supplier_id"`
	Stock       int       `gorm:"not null;default:0;check:stock >= 0"`
	Price       float64   `gorm:"not null;default:0;check:price >= 0"`
	Description *string
	LastUpdated time.Time `gorm:"column:last_updated;not null"`
}

func (productRow) TableName() string { return "products" }

type categoryRow struct {
	ID   int64  `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"not null;uniqueIndex"`
}

func (categoryRow) TableName() string { return "categories" }

type brandRow struct {
	ID   int64  `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"not null;uniqueIndex"`
}

func (brandRow) TableName() string { return "brands" }

type supplierRow struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"not null;uniqueIndex"`
	ContactName *string
	Email       *string
	Phone       *string
}

func (supplierRow) TableName() string { return "suppliers" }

type labelTemplateRow struct {
	ID     int64        `gorm:"primaryKey;autoIncrement"`
	Name   string       `gorm:"not null;uniqueIndex"`
	Fields []LabelField `gorm:"serializer:json;not null"`
}

func (labelTemplateRow) TableName() string { return "label_templates" }

func (row labelTemplateRow) template() LabelTemplate {
	return LabelTemplate{ID: row.ID, Name: row.Name, Fields: row.Fields}
}

// SQLiteModels returns the gorm models backing the catalog tables.
func SQLiteModels() []any {
	return []any{&categoryRow{}, &brandRow{}, &supplierRow{}, &productRow{}, &labelTemplateRow{}}
}

// SQLiteRepository persists catalog data in the embedded store.
type SQLiteRepository struct {
	db *gorm.DB
}

// NewSQLiteRepository constructs SQLiteRepository.
func NewSQLiteRepository(db *gorm.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type gormTx struct {
	audit.GormWriter
	db *gorm.DB
}

// WithTx executes the callback inside a gorm transaction.
func (r *SQLiteRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &gormTx{GormWriter: audit.GormWriter{DB: tx}, db: tx})
	})
}

const sqliteProductSelect = `SELECT p.id, p.name, p.sku, p.stock, p.price, p.description,
	p.brand_id, p.category_id, p.supplier_id,
	b.name AS brand_name, c.name AS category_name, s.name AS supplier_name, p.last_updated
FROM products p
LEFT JOIN brands b ON b.id = p.brand_id
LEFT JOIN categories c ON c.id = p.category_id
LEFT JOIN suppliers s ON s.id = p.supplier_id`

func (r *SQLiteRepository) GetProduct(ctx context.Context, id int64) (Product, error) {
	return gormGetProduct(r.db.WithContext(ctx), id)
}

func (r *SQLiteRepository) ListProducts(ctx context.Context) ([]Product, error) {
	return gormProducts(r.db.WithContext(ctx).Raw(sqliteProductSelect + ` ORDER BY p.id`))
}

// SearchProducts filters in Go because SQLite LOWER only folds ASCII.
func (r *SQLiteRepository) SearchProducts(ctx context.Context, query string) ([]Product, error) {
	products, err := r.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	m := newFoldMatcher(query)
	out := products[:0]
	for _, p := range products {
		if m.any(&p.Name, &p.SKU, p.BrandName, p.CategoryName, p.SupplierName) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *SQLiteRepository) ProductsAtOrBelow(ctx context.Context, stock int) ([]Product, error) {
	return gormProducts(r.db.WithContext(ctx).Raw(sqliteProductSelect+` WHERE p.stock <= ? ORDER BY p.stock, p.id`, stock))
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]Category, error) {
	var rows []categoryRow
	if err := r.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, Category{ID: row.ID, Name: row.Name})
	}
	return out, nil
}

func (r *SQLiteRepository) ListBrands(ctx context.Context) ([]Brand, error) {
	var rows []brandRow
	if err := r.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Brand, 0, len(rows))
	for _, row := range rows {
		out = append(out, Brand{ID: row.ID, Name: row.Name})
	}
	return out, nil
}

func (r *SQLiteRepository) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	var rows []supplierRow
	if err := r.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Supplier, 0, len(rows))
	for _, row := range rows {
		out = append(out, Supplier{ID: row.ID, Name: row.Name, ContactName: row.ContactName, Email: row.Email, Phone: row.Phone})
	}
	return out, nil
}

func (r *SQLiteRepository) ListLabelTemplates(ctx context.Context) ([]LabelTemplate, error) {
	var rows []labelTemplateRow
	if err := r.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]LabelTemplate, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.template())
	}
	return out, nil
}

func (r *SQLiteRepository) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := r.db.WithContext(ctx).Raw(`SELECT
	(SELECT COUNT(*) FROM products),
	(SELECT COALESCE(SUM(stock), 0) FROM products),
	(SELECT COUNT(*) FROM categories),
	(SELECT COUNT(*) FROM suppliers)`).Row().Scan(&s.TotalProducts, &s.TotalStock, &s.TotalCategories, &s.TotalSuppliers)
	return s, err
}

func (t *gormTx) GetProduct(ctx context.Context, id int64) (Product, error) {
	return gormGetProduct(t.db.WithContext(ctx), id)
}

// LockProduct reads inside the write transaction; SQLite serializes writers
// so no row lock is needed.
func (t *gormTx) LockProduct(ctx context.Context, id int64) (Product, error) {
	return gormGetProduct(t.db.WithContext(ctx), id)
}

func (t *gormTx) InsertProduct(ctx context.Context, in ProductInput, at time.Time) (int64, error) {
	row := productRow{
		Name:        in.Name,
		SKU:         in.SKU,
		BrandID:     in.BrandID,
		CategoryID:  in.CategoryID,
		SupplierID:  in.SupplierID,
		Stock:       in.Stock,
		Price:       in.Price,
		Description: in.Description,
		LastUpdated: at,
	}
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, mapGormError(err)
	}
	return row.ID, nil
}

func (t *gormTx) UpdateProduct(ctx context.Context, id int64, patch ProductPatch, at time.Time) (int64, error) {
	fields := map[string]any{"last_updated": at}
	if patch.Name != nil {
		fields["name"] = *patch.Name
	}
	if patch.SKU != nil {
		fields["sku"] = *patch.SKU
	}
	if patch.BrandID != nil {
		fields["brand_id"] = *patch.BrandID
	}
	if patch.CategoryID != nil {
		fields["category_id"] = *patch.CategoryID
	}
	if patch.SupplierID != nil {
		fields["supplier_id"] = *patch.SupplierID
	}
	if patch.Stock != nil {
		fields["stock"] = *patch.Stock
	}
	if patch.Price != nil {
		fields["price"] = *patch.Price
	}
	if patch.Description != nil {
		fields["description"] = *patch.Description
	}
	res := t.db.WithContext(ctx).Model(&productRow{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return 0, mapGormError(res.Error)
	}
	return res.RowsAffected, nil
}

func (t *gormTx) DeleteProduct(ctx context.Context, id int64) (int64, error) {
	res := t.db.WithContext(ctx).Delete(&productRow{}, id)
	return res.RowsAffected, res.Error
}

func (t *gormTx) InsertCategory(ctx context.Context, name string) (int64, error) {
	row := categoryRow{Name: name}
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, mapGormError(err)
	}
	return row.ID, nil
}

func (t *gormTx) InsertBrand(ctx context.Context, name string) (int64, error) {
	row := brandRow{Name: name}
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, mapGormError(err)
	}
	return row.ID, nil
}

func (t *gormTx) InsertSupplier(ctx context.Context, in SupplierInput) (int64, error) {
	row := supplierRow{Name: in.Name, ContactName: in.ContactName, Email: in.Email, Phone: in.Phone}
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, mapGormError(err)
	}
	return row.ID, nil
}

func (t *gormTx) InsertLabelTemplate(ctx context.Context, in LabelTemplateInput) (int64, error) {
	row := labelTemplateRow{Name: in.Name, Fields: in.Fields}
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, mapGormError(err)
	}
	return row.ID, nil
}

func (t *gormTx) UpdateLabelTemplate(ctx context.Context, id int64, patch LabelTemplatePatch) (int64, error) {
	var row labelTemplateRow
	err := t.db.WithContext(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if patch.Name != nil {
		row.Name = *patch.Name
	}
	if patch.Fields != nil {
		row.Fields = patch.Fields
	}
	res := t.db.WithContext(ctx).Save(&row)
	if res.Error != nil {
		return 0, mapGormError(res.Error)
	}
	return res.RowsAffected, nil
}

func (t *gormTx) GetLabelTemplate(ctx context.Context, id int64) (LabelTemplate, error) {
	var row labelTemplateRow
	err := t.db.WithContext(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return LabelTemplate{}, shared.ErrNotFound
	}
	if err != nil {
		return LabelTemplate{}, err
	}
	return row.template(), nil
}

func (t *gormTx) DeleteLookup(ctx context.Context, entity audit.EntityType, id int64) (int64, error) {
	var model any
	switch entity {
	case audit.EntityCategory:
		model = &categoryRow{}
	case audit.EntityBrand:
		model = &brandRow{}
	case audit.EntitySupplier:
		model = &supplierRow{}
	case audit.EntityLabelTemplate:
		model = &labelTemplateRow{}
	default:
		_, err := lookupTable(entity)
		return 0, err
	}
	res := t.db.WithContext(ctx).Delete(model, id)
	return res.RowsAffected, res.Error
}

func gormGetProduct(db *gorm.DB, id int64) (Product, error) {
	products, err := gormProducts(db.Raw(sqliteProductSelect+` WHERE p.id = ?`, id))
	if err != nil {
		return Product{}, err
	}
	if len(products) == 0 {
		return Product{}, shared.ErrNotFound
	}
	return products[0], nil
}

func gormProducts(query *gorm.DB) ([]Product, error) {
	var products []Product
	if err := query.Scan(&products).Error; err != nil {
		return nil, err
	}
	for i := range products {
		products[i].LastUpdated = products[i].LastUpdated.UTC()
	}
	return products, nil
}

// mapGormError translates integrity violations into catalog error kinds.
func mapGormError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey), strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return shared.Constraintf("duplicate value: %v", err)
	case strings.Contains(err.Error(), "NOT NULL constraint failed"):
		return shared.Constraintf("%v", err)
	case strings.Contains(err.Error(), "CHECK constraint failed"):
		return shared.Validationf("%v", err)
	}
	return err
}
