package models

import (
	"time"

	"tani/internal/errx"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Product represents a product in the catalog.
type Product struct {
	ID                   string                      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name                 string                      `json:"name" gorm:"size:255;not null" validate:"required,max=255"`
	Description          string                      `json:"description" gorm:"type:text"`
	Price                decimal.Decimal             `json:"price" gorm:"type:decimal(10,2);not null"`
	PriceUnit            string                      `json:"priceUnit" gorm:"size:50;not null" validate:"required,max=50"`
	Category             string                      `json:"category" gorm:"size:100;index" validate:"required,max=100"`
	SubCategory          *string                     `json:"subCategory,omitempty" gorm:"size:100" validate:"omitempty,max=100"`
	Images               datatypes.JSONSlice[string] `json:"images"`
	StockQuantity        int64                       `json:"stockQuantity" gorm:"default:0;check:stock_quantity >= 0" validate:"gte=0"`
	HarvestDate          *time.Time                  `json:"harvestDate,omitempty"`
	Certifications       datatypes.JSONSlice[string] `json:"certifications,omitempty"`
	Seasonality          datatypes.JSONSlice[string] `json:"seasonality,omitempty"`
	FarmingMethod        *string                     `json:"farmingMethod,omitempty" gorm:"size:50" validate:"omitempty,max=50"`
	AvailableForDelivery bool                        `json:"availableForDelivery"`
	PickupAvailable      bool                        `json:"pickupAvailable"`
	CreatedAt            time.Time                   `json:"createdAt"`
	UpdatedAt            time.Time                   `json:"updatedAt"`
	DeletedAt            gorm.DeletedAt              `json:"deletedAt,omitempty" gorm:"index"`
}

// ProductFilter narrows a product scan. Zero values are ignored.
type ProductFilter struct {
	Query         string           `json:"query,omitempty"`
	Category      string           `json:"category,omitempty"`
	FarmingMethod string           `json:"farmingMethod,omitempty"`
	MinPrice      *decimal.Decimal `json:"minPrice,omitempty"`
	MaxPrice      *decimal.Decimal `json:"maxPrice,omitempty"`
}

// IsEmpty reports whether no criterion is set.
func (f ProductFilter) IsEmpty() bool {
	return f.Query == "" && f.Category == "" && f.FarmingMethod == "" && f.MinPrice == nil && f.MaxPrice == nil
}

// PriceScale is the number of fractional digits a price keeps, matching the decimal(10,2) column.
const PriceScale = 2

// CheckPrice rejects negative prices and prices with more than PriceScale fractional digits.
// Trailing zeros do not count, so 1.230 is accepted.
func CheckPrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return errx.Invalid("price must not be negative")
	}
	if !price.Equal(price.Round(PriceScale)) {
		return errx.Invalid("price %s has more than %d fractional digits", price, PriceScale)
	}
	return nil
}
