package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tani/internal/errx"
	"tani/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductService is the catalog API the handler drives.
type ProductService interface {
	FindOne(ctx context.Context, id string) (*models.Product, error)
	FindAll(ctx context.Context) ([]models.Product, error)
	Search(ctx context.Context, filter models.ProductFilter) ([]models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	CreateMany(ctx context.Context, products []models.Product) error
	Update(ctx context.Context, id string, patch models.ProductPatch) (*models.Product, error)
	Remove(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) error
	BulkUpdate(ctx context.Context, rows []models.BulkUpdateRow) error
}

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	service  ProductService
	validate *validator.Validate
	log      zerolog.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service ProductService, log zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: validator.New(),
		log:      log,
	}
}

// RegisterRoutes registers the product routes with the Fiber app.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	// Static segments must be registered before /:id.
	productRoutes.Get("/search", h.HandleSearchProducts)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Post("/", h.HandleCreateProduct)
	productRoutes.Post("/batch", h.HandleCreateProducts)
	productRoutes.Put("/bulk/update", h.HandleBulkUpdate)
	productRoutes.Put("/:id", h.HandleUpdateProduct)
	productRoutes.Delete("/:id", h.HandleDeleteProduct)
	productRoutes.Post("/:id/restore", h.HandleRestoreProduct)
}

// HandleGetProducts retrieves all products.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.FindAll(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(products)
}

// HandleSearchProducts filters products by query string parameters.
func (h *ProductHandler) HandleSearchProducts(c *fiber.Ctx) error {
	filter := models.ProductFilter{
		Query:         c.Query("query"),
		Category:      c.Query("category"),
		FarmingMethod: c.Query("farmingMethod"),
	}
	var err error
	if filter.MinPrice, err = queryDecimal(c, "minPrice"); err != nil {
		return h.fail(c, err)
	}
	if filter.MaxPrice, err = queryDecimal(c, "maxPrice"); err != nil {
		return h.fail(c, err)
	}

	products, err := h.service.Search(c.UserContext(), filter)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(products)
}

// HandleGetProductByID retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	product, err := h.service.FindOne(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(product)
}

// HandleCreateProduct creates a new product.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return badRequest(c, err)
	}
	if err := h.checkProduct(&product); err != nil {
		return h.rejected(c, err)
	}

	if err := h.service.Create(c.UserContext(), &product); err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleCreateProducts inserts a batch of products.
func (h *ProductHandler) HandleCreateProducts(c *fiber.Ctx) error {
	var products []models.Product
	if err := c.BodyParser(&products); err != nil {
		return badRequest(c, err)
	}
	for i := range products {
		if err := h.checkProduct(&products[i]); err != nil {
			return h.rejected(c, err)
		}
	}

	if err := h.service.CreateMany(c.UserContext(), products); err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(products)
}

// HandleUpdateProduct applies a partial update to one product.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	var patch models.ProductPatch
	if err := c.BodyParser(&patch); err != nil {
		return badRequest(c, err)
	}
	if err := h.checkPatch(patch); err != nil {
		return h.rejected(c, err)
	}

	product, err := h.service.Update(c.UserContext(), c.Params("id"), patch)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(product)
}

// HandleBulkUpdate applies a batch of partial updates atomically.
func (h *ProductHandler) HandleBulkUpdate(c *fiber.Ctx) error {
	var rows []models.BulkUpdateRow
	if err := c.BodyParser(&rows); err != nil {
		return badRequest(c, err)
	}
	for _, row := range rows {
		if err := h.validate.Struct(row); err != nil {
			return h.rejected(c, err)
		}
		if err := h.checkPatch(row.ProductPatch); err != nil {
			return h.rejected(c, err)
		}
	}

	if err := h.service.BulkUpdate(c.UserContext(), rows); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Products updated successfully", "updated": len(rows)})
}

// HandleDeleteProduct soft-deletes a product.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.Remove(c.UserContext(), id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product deleted successfully", "id": id})
}

// HandleRestoreProduct restores a soft-deleted product.
func (h *ProductHandler) HandleRestoreProduct(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.Restore(c.UserContext(), id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product restored successfully", "id": id})
}

// checkProduct validates a product about to be created. The id, the timestamps and the
// deletion marker are owned by the store and never taken from the request.
func (h *ProductHandler) checkProduct(product *models.Product) error {
	product.ID = ""
	product.CreatedAt = time.Time{}
	product.UpdatedAt = time.Time{}
	product.DeletedAt = gorm.DeletedAt{}
	if err := h.validate.Struct(product); err != nil {
		return err
	}
	return models.CheckPrice(product.Price)
}

func (h *ProductHandler) checkPatch(patch models.ProductPatch) error {
	if err := h.validate.Struct(patch); err != nil {
		return err
	}
	if patch.Price != nil {
		return models.CheckPrice(*patch.Price)
	}
	return nil
}

// rejected answers a failed input check.
func (h *ProductHandler) rejected(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return validationFailed(c, validationErrors)
	}
	return h.fail(c, err)
}

// fail answers with the status of err's kind. Internal causes are logged, never returned.
func (h *ProductHandler) fail(c *fiber.Ctx, err error) error {
	status := errx.Status(err)
	if status >= fiber.StatusInternalServerError {
		h.log.Error().Err(unwrapAll(err)).Str("path", c.Path()).Msg(err.Error())
	}
	return c.Status(status).JSON(fiber.Map{
		"message": err.Error(),
	})
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}

func validationFailed(c *fiber.Ctx, validationErrors validator.ValidationErrors) error {
	errorMessages := make(map[string]string)
	for _, e := range validationErrors {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}

func queryDecimal(c *fiber.Ctx, key string) (*decimal.Decimal, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, errx.Invalid("%s must be a number", key)
	}
	return &d, nil
}

// unwrapAll returns the innermost cause of err.
func unwrapAll(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
