package repositories

import (
	"context"
	"time"

	"tani/internal/models"

	"gorm.io/gorm/clause"
)

// FieldUpdate sets one column on a set of rows through a per-id conditional expression.
type FieldUpdate struct {
	Column string
	Value  clause.Expr
	IDs    []string
}

// BulkWriter applies field updates inside a transaction.
type BulkWriter interface {
	// Dialect names the SQL dialect so callers can pick value casts.
	Dialect() string
	// UpdateField runs the update on live rows, stamping updated_at with at, and returns the
	// number of rows it changed.
	UpdateField(ctx context.Context, u FieldUpdate, at time.Time) (int64, error)
}

// ProductRepository defines the interface for product data access. Lookups never return
// soft-deleted products.
type ProductRepository interface {
	GetAll(ctx context.Context, filter models.ProductFilter) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	CreateMany(ctx context.Context, products []models.Product) error
	Update(ctx context.Context, product *models.Product) error
	SoftDelete(ctx context.Context, id string) (int64, error)
	Restore(ctx context.Context, id string) (int64, error)
	RunInTransaction(ctx context.Context, fn func(tx BulkWriter) error) error
}
