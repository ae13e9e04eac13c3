package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/stockdesk/internal/audit"
	"github.com/odyssey-erp/stockdesk/internal/platform/db"
	"github.com/odyssey-erp/stockdesk/internal/shared"
)

// querier is satisfied by both pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists catalog data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	audit.PGWriter
	q querier
}

// WithTx executes the callback inside a read-committed transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{PGWriter: audit.PGWriter{DB: tx}, q: tx})
	})
}

const productSelect = `SELECT p.id, p.name, p.sku, p.stock, p.price, p.description,
	p.brand_id, p.category_id, p.supplier_id,
	b.name, c.name, s.name, p.last_updated
FROM products p
LEFT JOIN brands b ON b.id = p.brand_id
LEFT JOIN categories c ON c.id = p.category_id
LEFT JOIN suppliers s ON s.id = p.supplier_id`

func (r *Repository) GetProduct(ctx context.Context, id int64) (Product, error) {
	return getProduct(ctx, r.pool, id)
}

func (r *Repository) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, productSelect+` ORDER BY p.id`)
	if err != nil {
		return nil, err
	}
	return scanProducts(rows)
}

func (r *Repository) SearchProducts(ctx context.Context, query string) ([]Product, error) {
	rows, err := r.pool.Query(ctx, productSelect+`
WHERE LOWER(p.name) LIKE $1 ESCAPE '\'
   OR LOWER(p.sku) LIKE $1 ESCAPE '\'
   OR LOWER(b.name) LIKE $1 ESCAPE '\'
   OR LOWER(c.name) LIKE $1 ESCAPE '\'
   OR LOWER(s.name) LIKE $1 ESCAPE '\'
ORDER BY p.id`, likePattern(query))
	if err != nil {
		return nil, err
	}
	return scanProducts(rows)
}

func (r *Repository) ProductsAtOrBelow(ctx context.Context, stock int) ([]Product, error) {
	rows, err := r.pool.Query(ctx, productSelect+` WHERE p.stock <= $1 ORDER BY p.stock, p.id`, stock)
	if err != nil {
		return nil, err
	}
	return scanProducts(rows)
}

func (r *Repository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) ListBrands(ctx context.Context) ([]Brand, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM brands ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Brand
	for rows.Next() {
		var b Brand
		if err := rows.Scan(&b.ID, &b.Name); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repository) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, contact_name, email, phone FROM suppliers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Supplier
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.ContactName, &s.Email, &s.Phone); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) ListLabelTemplates(ctx context.Context) ([]LabelTemplate, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, fields FROM label_templates ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LabelTemplate
	for rows.Next() {
		var t LabelTemplate
		if err := rows.Scan(&t.ID, &t.Name, &t.Fields); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := r.pool.QueryRow(ctx, `SELECT
	(SELECT COUNT(*) FROM products),
	(SELECT COALESCE(SUM(stock), 0) FROM products),
	(SELECT COUNT(*) FROM categories),
	(SELECT COUNT(*) FROM suppliers)`).Scan(&s.TotalProducts, &s.TotalStock, &s.TotalCategories, &s.TotalSuppliers)
	return s, err
}

func (r *txRepo) GetProduct(ctx context.Context, id int64) (Product, error) {
	return getProduct(ctx, r.q, id)
}

func (r *txRepo) LockProduct(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx, productSelect+` WHERE p.id = $1 FOR UPDATE OF p`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.ErrNotFound
	}
	return p, err
}

func (r *txRepo) InsertProduct(ctx context.Context, in ProductInput, at time.Time) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx, `INSERT INTO products (name, sku, brand_id, category_id, supplier_id, stock, price, description, last_updated)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		in.Name, in.SKU, in.BrandID, in.CategoryID, in.SupplierID, in.Stock, floatToNumeric(in.Price), in.Description, at,
	).Scan(&id)
	if err != nil {
		return 0, mapPGError(err)
	}
	return id, nil
}

func (r *txRepo) UpdateProduct(ctx context.Context, id int64, patch ProductPatch, at time.Time) (int64, error) {
	price := pgtype.Numeric{}
	if patch.Price != nil {
		price = floatToNumeric(*patch.Price)
	}
	tag, err := r.q.Exec(ctx, `UPDATE products SET
	name = COALESCE($2, name),
	sku = COALESCE($3, sku),
	brand_id = COALESCE($4, brand_id),
	category_id = COALESCE($5, category_id),
	stock = COALESCE($6, stock),
	price = COALESCE($7, price),
	supplier_id = COALESCE($8, supplier_id),
	description = COALESCE($9, description),
	last_updated = $10
WHERE id = $1`,
		id, patch.Name, patch.SKU, patch.BrandID, patch.CategoryID, patch.Stock, price, patch.SupplierID, patch.Description, at)
	if err != nil {
		return 0, mapPGError(err)
	}
	return tag.RowsAffected(), nil
}

func (r *txRepo) DeleteProduct(ctx context.Context, id int64) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *txRepo) InsertCategory(ctx context.Context, name string) (int64, error) {
	return r.insertNamed(ctx, `INSERT INTO categories (name) VALUES ($1) RETURNING id`, name)
}

func (r *txRepo) InsertBrand(ctx context.Context, name string) (int64, error) {
	return r.insertNamed(ctx, `INSERT INTO brands (name) VALUES ($1) RETURNING id`, name)
}

func (r *txRepo) InsertSupplier(ctx context.Context, in SupplierInput) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx, `INSERT INTO suppliers (name, contact_name, email, phone) VALUES ($1, $2, $3, $4) RETURNING id`,
		in.Name, in.ContactName, in.Email, in.Phone).Scan(&id)
	if err != nil {
		return 0, mapPGError(err)
	}
	return id, nil
}

func (r *txRepo) InsertLabelTemplate(ctx context.Context, in LabelTemplateInput) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx, `INSERT INTO label_templates (name, fields) VALUES ($1, $2) RETURNING id`,
		in.Name, in.Fields).Scan(&id)
	if err != nil {
		return 0, mapPGError(err)
	}
	return id, nil
}

func (r *txRepo) UpdateLabelTemplate(ctx context.Context, id int64, patch LabelTemplatePatch) (int64, error) {
	var fields any
	if patch.Fields != nil {
		fields = patch.Fields
	}
	tag, err := r.q.Exec(ctx, `UPDATE label_templates SET
	name = COALESCE($2, name),
	fields = COALESCE($3::jsonb, fields)
WHERE id = $1`, id, patch.Name, fields)
	if err != nil {
		return 0, mapPGError(err)
	}
	return tag.RowsAffected(), nil
}

func (r *txRepo) GetLabelTemplate(ctx context.Context, id int64) (LabelTemplate, error) {
	var t LabelTemplate
	err := r.q.QueryRow(ctx, `SELECT id, name, fields FROM label_templates WHERE id = $1`, id).Scan(&t.ID, &t.Name, &t.Fields)
	if errors.Is(err, pgx.ErrNoRows) {
		return LabelTemplate{}, shared.ErrNotFound
	}
	return t, err
}

func (r *txRepo) insertNamed(ctx context.Context, sql, name string) (int64, error) {
	var id int64
	if err := r.q.QueryRow(ctx, sql, name).Scan(&id); err != nil {
		return 0, mapPGError(err)
	}
	return id, nil
}

func (r *txRepo) DeleteLookup(ctx context.Context, entity audit.EntityType, id int64) (int64, error) {
	table, err := lookupTable(entity)
	if err != nil {
		return 0, err
	}
	tag, err := r.q.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func lookupTable(entity audit.EntityType) (string, error) {
	switch entity {
	case audit.EntityCategory:
		return "categories", nil
	case audit.EntityBrand:
		return "brands", nil
	case audit.EntitySupplier:
		return "suppliers", nil
	case audit.EntityLabelTemplate:
		return "label_templates", nil
	default:
		return "", fmt.Errorf("catalog: %s is not a lookup entity", entity)
	}
}

func getProduct(ctx context.Context, q querier, id int64) (Product, error) {
	p, err := scanProduct(q.QueryRow(ctx, productSelect+` WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.ErrNotFound
	}
	return p, err
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var price pgtype.Numeric
	err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.Stock, &price, &p.Description,
		&p.BrandID, &p.CategoryID, &p.SupplierID,
		&p.BrandName, &p.CategoryName, &p.SupplierName, &p.LastUpdated)
	if err != nil {
		return Product{}, err
	}
	p.Price = numericToFloat(price)
	p.LastUpdated = p.LastUpdated.UTC()
	return p, nil
}

func scanProducts(rows pgx.Rows) ([]Product, error) {
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// mapPGError translates integrity violations into catalog error kinds.
func mapPGError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505":
		return shared.Constraintf("duplicate value violates %s", pgErr.ConstraintName)
	case "23502":
		return shared.Constraintf("%s is required", pgErr.ColumnName)
	case "23514":
		return shared.Validationf("value violates %s", pgErr.ConstraintName)
	}
	return err
}

func numericToFloat(n pgtype.Numeric) float64 {
	f, _ := n.Float64Value()
	return f.Float64
}

func floatToNumeric(f float64) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(fmt.Sprintf("%.2f", f))
	return n
}
