package services

import (
	"context"
	"errors"
	"time"

	"tani/internal/bulk"
	"tani/internal/cache"
	"tani/internal/errx"
	"tani/internal/models"
	"tani/internal/repositories"

	"github.com/rs/zerolog"
)

// TTLs groups the lifetimes of the cached views.
type TTLs struct {
	// Snapshot is the lifetime of the full collection entry.
	Snapshot time.Duration
	// Single is the lifetime of a product loaded from the repository.
	Single time.Duration
	// SnapshotPromote is the lifetime of a product copied out of the snapshot.
	SnapshotPromote time.Duration
	// Search is the lifetime of a filtered result.
	Search time.Duration
}

// ProductService handles catalog reads through the cache and mutations through the
// invalidation gate.
type ProductService struct {
	repo     repositories.ProductRepository
	cache    *cache.ProductCache
	gate     *cache.Gate
	executor *bulk.Executor
	ttl      TTLs
	log      zerolog.Logger
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository, pc *cache.ProductCache, gate *cache.Gate, ttl TTLs, log zerolog.Logger) *ProductService {
	return &ProductService{
		repo:     repo,
		cache:    pc,
		gate:     gate,
		executor: bulk.NewExecutor(repo, log),
		ttl:      ttl,
		log:      log,
	}
}

// FindOne looks a product up in the single-product cache, then in the snapshot, then in the
// repository. Hits below the first tier are written back to the single-product cache.
func (s *ProductService) FindOne(ctx context.Context, id string) (*models.Product, error) {
	p, ok, err := s.cache.GetSingle(ctx, id)
	if err != nil {
		s.cacheFailure(err, "single product lookup")
	} else if ok {
		return p, nil
	}

	snapshot, ok, err := s.cache.GetSnapshot(ctx)
	if err != nil {
		s.cacheFailure(err, "snapshot lookup")
	} else if ok {
		for i := range snapshot {
			if snapshot[i].ID == id {
				found := snapshot[i]
				s.remember(ctx, &found, s.ttl.SnapshotPromote)
				return &found, nil
			}
		}
	}

	p, err = s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "failed to get product")
	}
	s.remember(ctx, p, s.ttl.Single)
	return p, nil
}

// FindAll returns every live product. Empty results are never cached.
func (s *ProductService) FindAll(ctx context.Context) ([]models.Product, error) {
	snapshot, ok, err := s.cache.GetSnapshot(ctx)
	if err != nil {
		s.cacheFailure(err, "snapshot lookup")
	} else if ok {
		return snapshot, nil
	}

	products, err := s.repo.GetAll(ctx, models.ProductFilter{})
	if err != nil {
		return nil, errx.Persistence(err, "failed to get products")
	}
	if len(products) == 0 {
		return []models.Product{}, nil
	}
	if err := s.cache.SetSnapshot(ctx, products, s.ttl.Snapshot); err != nil {
		s.cacheFailure(err, "snapshot write")
	}
	return products, nil
}

// Search returns live products matching filter. Results are cached under a key derived from
// the filter and expire by TTL only.
func (s *ProductService) Search(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	if filter.IsEmpty() {
		return nil, errx.Invalid("at least one search criterion is required")
	}

	products, ok, err := s.cache.GetSearch(ctx, filter)
	if err != nil {
		s.cacheFailure(err, "search lookup")
	} else if ok {
		return products, nil
	}

	products, err = s.repo.GetAll(ctx, filter)
	if err != nil {
		return nil, errx.Persistence(err, "failed to search products")
	}
	if len(products) == 0 {
		return []models.Product{}, nil
	}
	if err := s.cache.SetSearch(ctx, filter, products, s.ttl.Search); err != nil {
		s.cacheFailure(err, "search write")
	}
	return products, nil
}

// Create persists product and drops the snapshot.
func (s *ProductService) Create(ctx context.Context, product *models.Product) error {
	return s.gate.Run(ctx, nil, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, product); err != nil {
			return errx.Persistence(err, "failed to create product")
		}
		return nil
	})
}

// CreateMany persists products in one batch insert.
func (s *ProductService) CreateMany(ctx context.Context, products []models.Product) error {
	if len(products) == 0 {
		return errx.Invalid("at least one product is required")
	}
	return s.gate.Run(ctx, nil, func(ctx context.Context) error {
		if err := s.repo.CreateMany(ctx, products); err != nil {
			return errx.Persistence(err, "failed to create products")
		}
		return nil
	})
}

// Update applies patch to a live product and returns the saved product.
func (s *ProductService) Update(ctx context.Context, id string, patch models.ProductPatch) (*models.Product, error) {
	if patch.IsEmpty() {
		return nil, errx.Invalid("at least one field must be set")
	}

	var updated *models.Product
	err := s.gate.Run(ctx, []string{id}, func(ctx context.Context) error {
		p, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return storeError(err, "failed to update product")
		}
		patch.Apply(p)
		if err := s.repo.Update(ctx, p); err != nil {
			return storeError(err, "failed to update product")
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Remove soft-deletes a product. Removing an already removed product is ErrNotFound.
func (s *ProductService) Remove(ctx context.Context, id string) error {
	return s.gate.Run(ctx, []string{id}, func(ctx context.Context) error {
		n, err := s.repo.SoftDelete(ctx, id)
		if err != nil {
			return errx.Persistence(err, "failed to delete product")
		}
		if n == 0 {
			return errx.NotFound("product with ID %s not found", id)
		}
		return nil
	})
}

// Restore brings back a soft-deleted product.
func (s *ProductService) Restore(ctx context.Context, id string) error {
	return s.gate.Run(ctx, []string{id}, func(ctx context.Context) error {
		n, err := s.repo.Restore(ctx, id)
		if err != nil {
			return errx.Persistence(err, "failed to restore product")
		}
		if n == 0 {
			return errx.NotFound("deleted product with ID %s not found", id)
		}
		return nil
	})
}

// BulkUpdate applies rows atomically, one statement per field.
func (s *ProductService) BulkUpdate(ctx context.Context, rows []models.BulkUpdateRow) error {
	if len(rows) == 0 {
		return errx.Invalid("at least one row is required")
	}
	plan, err := bulk.NewPlan(rows)
	if err != nil {
		return err
	}
	return s.gate.Run(ctx, plan.IDs(), func(ctx context.Context) error {
		return s.executor.Execute(ctx, plan)
	})
}

func (s *ProductService) remember(ctx context.Context, p *models.Product, ttl time.Duration) {
	if err := s.cache.SetSingle(ctx, p.ID, p, ttl); err != nil {
		s.cacheFailure(err, "single product write")
	}
}

func (s *ProductService) cacheFailure(err error, op string) {
	s.log.Warn().Err(err).Str("op", op).Msg("cache unavailable, falling back to store")
}

// storeError keeps ErrNotFound as is and hides everything else behind message.
func storeError(err error, message string) error {
	if errors.Is(err, errx.ErrNotFound) {
		return err
	}
	return errx.Persistence(err, message)
}
