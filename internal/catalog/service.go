package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/stockdesk/internal/audit"
	"github.com/odyssey-erp/stockdesk/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetProduct(ctx context.Context, id int64) (Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
	SearchProducts(ctx context.Context, query string) ([]Product, error)
	ProductsAtOrBelow(ctx context.Context, stock int) ([]Product, error)
	ListCategories(ctx context.Context) ([]Category, error)
	ListSuppliers(ctx context.Context) ([]Supplier, error)
	ListBrands(ctx context.Context) ([]Brand, error)
	ListLabelTemplates(ctx context.Context) ([]LabelTemplate, error)
	Stats(ctx context.Context) (Stats, error)
}

// TxRepository exposes the writes that commit together with their audit entries.
// Insert/update/delete report affected rows; zero means the target was absent.
// LockProduct reads a product and holds it until the transaction ends.
type TxRepository interface {
	InsertProduct(ctx context.Context, in ProductInput, at time.Time) (int64, error)
	UpdateProduct(ctx context.Context, id int64, patch ProductPatch, at time.Time) (int64, error)
	DeleteProduct(ctx context.Context, id int64) (int64, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	LockProduct(ctx context.Context, id int64) (Product, error)
	InsertCategory(ctx context.Context, name string) (int64, error)
	InsertBrand(ctx context.Context, name string) (int64, error)
	InsertSupplier(ctx context.Context, in SupplierInput) (int64, error)
	InsertLabelTemplate(ctx context.Context, in LabelTemplateInput) (int64, error)
	UpdateLabelTemplate(ctx context.Context, id int64, patch LabelTemplatePatch) (int64, error)
	GetLabelTemplate(ctx context.Context, id int64) (LabelTemplate, error)
	DeleteLookup(ctx context.Context, entity audit.EntityType, id int64) (int64, error)
	AppendActivity(ctx context.Context, entry audit.ActivityEntry) error
	AppendHistory(ctx context.Context, entry audit.HistoryEntry) error
}

// Notifier receives signals after a product mutation has committed.
type Notifier interface {
	LowStock(ctx context.Context, p Product) error
	PriceChanged(ctx context.Context, p Product, oldPrice float64) error
}

// MutationObserver counts committed mutations.
type MutationObserver interface {
	ObserveMutation(entity, action string)
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	LowStockThreshold int
	Notifier          Notifier
	Observer          MutationObserver
	Logger            *slog.Logger
	Clock             func() time.Time
}

// Service coordinates catalog reads, mutations and their audit trail.
type Service struct {
	repo       RepositoryPort
	notifier   Notifier
	observer   MutationObserver
	logger     *slog.Logger
	now        func() time.Time
	lowStockAt int
}

// NewService builds Service.
func NewService(repo RepositoryPort, cfg ServiceConfig) *Service {
	s := &Service{
		repo:       repo,
		notifier:   cfg.Notifier,
		observer:   cfg.Observer,
		logger:     cfg.Logger,
		now:        cfg.Clock,
		lowStockAt: cfg.LowStockThreshold,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// LowStockThreshold returns the stock level at or below which a product is low.
func (s *Service) LowStockThreshold() int {
	return s.lowStockAt
}

// GetProduct returns the denormalized product or shared.ErrNotFound.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return Product{}, fmt.Errorf("catalog: get product %d: %w", id, err)
	}
	return p, nil
}

// ListProducts returns every product with lookup names resolved.
func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: list products: %w", err)
	}
	return nonNil(products), nil
}

// SearchProducts matches query case-insensitively against name, sku and the
// brand, category and supplier names. An empty query matches everything.
func (s *Service) SearchProducts(ctx context.Context, query string) ([]Product, error) {
	products, err := s.repo.SearchProducts(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("catalog: search products: %w", err)
	}
	return nonNil(products), nil
}

// LowStockProducts lists products whose stock is at or below the configured threshold.
func (s *Service) LowStockProducts(ctx context.Context) ([]Product, error) {
	return s.ProductsAtOrBelow(ctx, s.lowStockAt)
}

// ProductsAtOrBelow lists products with stock <= level, lowest stock first.
func (s *Service) ProductsAtOrBelow(ctx context.Context, level int) ([]Product, error) {
	if level < 0 {
		return nil, shared.Validationf("stock level must not be negative")
	}
	products, err := s.repo.ProductsAtOrBelow(ctx, level)
	if err != nil {
		return nil, fmt.Errorf("catalog: low stock products: %w", err)
	}
	return nonNil(products), nil
}

// AddProduct stores a new product and records its create activity.
func (s *Service) AddProduct(ctx context.Context, in ProductInput) (Product, error) {
	in = in.normalized()
	if err := s.validateInput(in); err != nil {
		return Product{}, err
	}
	now := s.now()
	var created Product
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertProduct(ctx, in, now)
		if err != nil {
			return err
		}
		if err := recordActivity(ctx, tx, audit.ActionCreate, audit.EntityProduct, id, nil, now); err != nil {
			return err
		}
		created, err = tx.GetProduct(ctx, id)
		return err
	})
	if err != nil {
		return Product{}, fmt.Errorf("catalog: add product: %w", err)
	}
	s.observe(audit.EntityProduct, audit.ActionCreate)
	s.signalStock(ctx, created)
	return created, nil
}

// UpdateProduct merges patch into the stored product. It returns
// shared.ErrNotFound when id does not exist; nothing is audited then.
func (s *Service) UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (Product, error) {
	return s.updateProduct(ctx, id, patch, nil)
}

func (s *Service) updateProduct(ctx context.Context, id int64, patch ProductPatch, activityDetails *string) (Product, error) {
	if err := s.validatePatch(patch.normalized()); err != nil {
		return Product{}, err
	}
	return s.mutateProduct(ctx, id, func(Product) (ProductPatch, error) {
		return patch, nil
	}, activityDetails)
}

// mutateProduct locks the row, builds the patch from its current state and
// applies it with the audit entries in one transaction.
func (s *Service) mutateProduct(ctx context.Context, id int64, build func(Product) (ProductPatch, error), activityDetails *string) (Product, error) {
	now := s.now()
	var before, after Product
	var patch ProductPatch
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		prev, err := tx.LockProduct(ctx, id)
		if err != nil {
			return err
		}
		before = prev
		if patch, err = build(prev); err != nil {
			return err
		}
		patch = patch.normalized()
		if err := s.validatePatch(patch); err != nil {
			return err
		}
		details, err := json.Marshal(patch)
		if err != nil {
			return fmt.Errorf("encode patch: %w", err)
		}
		affected, err := tx.UpdateProduct(ctx, id, patch, now)
		if err != nil {
			return err
		}
		if affected == 0 {
			return shared.ErrNotFound
		}
		if err := recordActivity(ctx, tx, audit.ActionUpdate, audit.EntityProduct, id, activityDetails, now); err != nil {
			return err
		}
		if err := recordHistory(ctx, tx, id, audit.ActionUpdate, string(details), now); err != nil {
			return err
		}
		after, err = tx.GetProduct(ctx, id)
		return err
	})
	if err != nil {
		return Product{}, fmt.Errorf("catalog: update product %d: %w", id, err)
	}
	s.observe(audit.EntityProduct, audit.ActionUpdate)
	if patch.Stock != nil {
		s.signalStock(ctx, after)
	}
	if after.Price != before.Price && s.notifier != nil {
		if err := s.notifier.PriceChanged(ctx, after, before.Price); err != nil {
			s.logger.Warn("price change notification", slog.Int64("product_id", id), slog.Any("error", err))
		}
	}
	return after, nil
}

// DeleteProduct hard-deletes a product. It reports false without error when
// the id was absent.
func (s *Service) DeleteProduct(ctx context.Context, id int64) (bool, error) {
	now := s.now()
	deleted := false
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		affected, err := tx.DeleteProduct(ctx, id)
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}
		deleted = true
		if err := recordActivity(ctx, tx, audit.ActionDelete, audit.EntityProduct, id, nil, now); err != nil {
			return err
		}
		return recordHistory(ctx, tx, id, audit.ActionDelete, "", now)
	})
	if err != nil {
		return false, fmt.Errorf("catalog: delete product %d: %w", id, err)
	}
	if deleted {
		s.observe(audit.EntityProduct, audit.ActionDelete)
	}
	return deleted, nil
}

// ListCategories returns all categories.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: list categories: %w", err)
	}
	return nonNil(rows), nil
}

// ListSuppliers returns all suppliers.
func (s *Service) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := s.repo.ListSuppliers(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: list suppliers: %w", err)
	}
	return nonNil(rows), nil
}

// ListBrands returns all brands.
func (s *Service) ListBrands(ctx context.Context) ([]Brand, error) {
	rows, err := s.repo.ListBrands(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: list brands: %w", err)
	}
	return nonNil(rows), nil
}

// AddCategory creates a category with a unique name.
func (s *Service) AddCategory(ctx context.Context, name string) (Category, error) {
	name, err := validateName("category", name)
	if err != nil {
		return Category{}, err
	}
	id, err := s.createLookup(ctx, audit.EntityCategory, func(ctx context.Context, tx TxRepository) (int64, error) {
		return tx.InsertCategory(ctx, name)
	})
	if err != nil {
		return Category{}, fmt.Errorf("catalog: add category: %w", err)
	}
	return Category{ID: id, Name: name}, nil
}

// AddBrand creates a brand with a unique name.
func (s *Service) AddBrand(ctx context.Context, name string) (Brand, error) {
	name, err := validateName("brand", name)
	if err != nil {
		return Brand{}, err
	}
	id, err := s.createLookup(ctx, audit.EntityBrand, func(ctx context.Context, tx TxRepository) (int64, error) {
		return tx.InsertBrand(ctx, name)
	})
	if err != nil {
		return Brand{}, fmt.Errorf("catalog: add brand: %w", err)
	}
	return Brand{ID: id, Name: name}, nil
}

// AddSupplier creates a supplier with a unique name.
func (s *Service) AddSupplier(ctx context.Context, in SupplierInput) (Supplier, error) {
	name, err := validateName("supplier", in.Name)
	if err != nil {
		return Supplier{}, err
	}
	in.Name = name
	if err := check(in); err != nil {
		return Supplier{}, err
	}
	id, err := s.createLookup(ctx, audit.EntitySupplier, func(ctx context.Context, tx TxRepository) (int64, error) {
		return tx.InsertSupplier(ctx, in)
	})
	if err != nil {
		return Supplier{}, fmt.Errorf("catalog: add supplier: %w", err)
	}
	return Supplier{ID: id, Name: in.Name, ContactName: in.ContactName, Email: in.Email, Phone: in.Phone}, nil
}

// DeleteCategory removes a category. Products referencing it keep the dangling id.
func (s *Service) DeleteCategory(ctx context.Context, id int64) (bool, error) {
	return s.deleteLookup(ctx, audit.EntityCategory, id)
}

// DeleteBrand removes a brand. Products referencing it keep the dangling id.
func (s *Service) DeleteBrand(ctx context.Context, id int64) (bool, error) {
	return s.deleteLookup(ctx, audit.EntityBrand, id)
}

// DeleteSupplier removes a supplier. Products referencing it keep the dangling id.
func (s *Service) DeleteSupplier(ctx context.Context, id int64) (bool, error) {
	return s.deleteLookup(ctx, audit.EntitySupplier, id)
}

// Stats returns aggregate counters; an empty store yields zeros.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("catalog: stats: %w", err)
	}
	return stats, nil
}

func (s *Service) createLookup(ctx context.Context, entity audit.EntityType, insert func(context.Context, TxRepository) (int64, error)) (int64, error) {
	now := s.now()
	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		id, err = insert(ctx, tx)
		if err != nil {
			return err
		}
		return recordActivity(ctx, tx, audit.ActionCreate, entity, id, nil, now)
	})
	if err != nil {
		return 0, err
	}
	s.observe(entity, audit.ActionCreate)
	return id, nil
}

func (s *Service) deleteLookup(ctx context.Context, entity audit.EntityType, id int64) (bool, error) {
	now := s.now()
	deleted := false
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		affected, err := tx.DeleteLookup(ctx, entity, id)
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}
		deleted = true
		return recordActivity(ctx, tx, audit.ActionDelete, entity, id, nil, now)
	})
	if err != nil {
		return false, fmt.Errorf("catalog: delete %s %d: %w", entity, id, err)
	}
	if deleted {
		s.observe(entity, audit.ActionDelete)
	}
	return deleted, nil
}

func (s *Service) observe(entity audit.EntityType, action audit.Action) {
	if s.observer != nil {
		s.observer.ObserveMutation(string(entity), string(action))
	}
}

func (s *Service) signalStock(ctx context.Context, p Product) {
	if s.notifier == nil || p.Stock > s.lowStockAt {
		return
	}
	if err := s.notifier.LowStock(ctx, p); err != nil {
		s.logger.Warn("low stock notification", slog.Int64("product_id", p.ID), slog.Any("error", err))
	}
}

func recordActivity(ctx context.Context, tx TxRepository, action audit.Action, entity audit.EntityType, id int64, details *string, at time.Time) error {
	err := tx.AppendActivity(ctx, audit.ActivityEntry{
		Action:     action,
		EntityType: entity,
		EntityID:   id,
		Details:    details,
		At:         at,
	})
	return shared.Consistency(err)
}

func recordHistory(ctx context.Context, tx TxRepository, productID int64, action audit.Action, details string, at time.Time) error {
	err := tx.AppendHistory(ctx, audit.HistoryEntry{
		ProductID: productID,
		Action:    action,
		Details:   details,
		At:        at,
	})
	return shared.Consistency(err)
}

// IsNotFound reports whether err carries shared.ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}

func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
