package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tani/internal/errx"
	"tani/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

var _ ProductRepository = (*GORMProductRepository)(nil)

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// GetAll retrieves live products matching filter, oldest first.
func (r *GORMProductRepository) GetAll(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	q := r.db.WithContext(ctx).Model(&models.Product{})
	if filter.Query != "" {
		like := "%" + strings.ToLower(filter.Query) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.FarmingMethod != "" {
		q = q.Where("farming_method = ?", filter.FarmingMethod)
	}
	if filter.MinPrice != nil {
		q = q.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		q = q.Where("price <= ?", *filter.MaxPrice)
	}

	var products []models.Product
	if err := q.Order("created_at ASC").Order("id ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}
	return products, nil
}

// GetByID retrieves a single live product by its ID.
func (r *GORMProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errx.NotFound("product with ID %s not found", id)
		}
		return nil, fmt.Errorf("failed to get product by ID %s: %w", id, err)
	}
	return &product, nil
}

// Create creates a new product in the database.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// CreateMany inserts products in one statement.
func (r *GORMProductRepository) CreateMany(ctx context.Context, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}
	for i := range products {
		if products[i].ID == "" {
			products[i].ID = uuid.New().String()
		}
	}
	if err := r.db.WithContext(ctx).Create(&products).Error; err != nil {
		return fmt.Errorf("failed to create products: %w", err)
	}
	return nil
}

// Update saves every column of an existing live product.
func (r *GORMProductRepository) Update(ctx context.Context, product *models.Product) error {
	res := r.db.WithContext(ctx).Model(product).Select("*").Omit("id", "created_at", "deleted_at").Updates(product)
	if res.Error != nil {
		return fmt.Errorf("failed to update product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errx.NotFound("product with ID %s not found for update", product.ID)
	}
	return nil
}

// SoftDelete marks a live product deleted. Already deleted products are not affected.
func (r *GORMProductRepository) SoftDelete(ctx context.Context, id string) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete product: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Restore clears the deletion marker of a soft-deleted product.
func (r *GORMProductRepository) Restore(ctx context.Context, id string) (int64, error) {
	res := r.db.WithContext(ctx).Unscoped().Model(&models.Product{}).
		Where("id = ? AND deleted_at IS NOT NULL", id).
		Updates(map[string]any{"deleted_at": nil, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to restore product: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// RunInTransaction runs fn in one transaction; any error from fn rolls everything back.
func (r *GORMProductRepository) RunInTransaction(ctx context.Context, fn func(tx BulkWriter) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormBulkWriter{tx: tx})
	})
}

type gormBulkWriter struct {
	tx *gorm.DB
}

func (w *gormBulkWriter) Dialect() string {
	return w.tx.Dialector.Name()
}

func (w *gormBulkWriter) UpdateField(ctx context.Context, u FieldUpdate, at time.Time) (int64, error) {
	if u.Column == "" || len(u.IDs) == 0 {
		return 0, fmt.Errorf("field update needs a column and at least one id")
	}
	res := w.tx.WithContext(ctx).Model(&models.Product{}).
		Where("id IN ?", u.IDs).
		UpdateColumns(map[string]any{u.Column: u.Value, "updated_at": at})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to update column %s: %w", u.Column, res.Error)
	}
	return res.RowsAffected, nil
}
