package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ProductPatch is a partial update. Nil fields are left untouched.
type ProductPatch struct {
	Name                 *string          `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description          *string          `json:"description,omitempty"`
	Price                *decimal.Decimal `json:"price,omitempty"`
	PriceUnit            *string          `json:"priceUnit,omitempty" validate:"omitempty,min=1,max=50"`
	Category             *string          `json:"category,omitempty" validate:"omitempty,min=1,max=100"`
	SubCategory          *string          `json:"subCategory,omitempty" validate:"omitempty,max=100"`
	Images               *[]string        `json:"images,omitempty"`
	StockQuantity        *int64           `json:"stockQuantity,omitempty" validate:"omitempty,gte=0"`
	HarvestDate          *time.Time       `json:"harvestDate,omitempty"`
	Certifications       *[]string        `json:"certifications,omitempty"`
	Seasonality          *[]string        `json:"seasonality,omitempty"`
	FarmingMethod        *string          `json:"farmingMethod,omitempty" validate:"omitempty,max=50"`
	AvailableForDelivery *bool            `json:"availableForDelivery,omitempty"`
	PickupAvailable      *bool            `json:"pickupAvailable,omitempty"`
}

// BulkUpdateRow targets one product in a bulk update.
type BulkUpdateRow struct {
	ID string `json:"id" validate:"required"`
	ProductPatch
}

// FieldValue is one field set on a patch.
type FieldValue struct {
	Field Field
	Value any
}

// Values lists the fields set on the patch in declaration order. Collection values are
// copied so that callers never share the patch's backing arrays.
func (p ProductPatch) Values() []FieldValue {
	var out []FieldValue
	add := func(f Field, v any) { out = append(out, FieldValue{Field: f, Value: v}) }

	if p.Name != nil {
		add(FieldName, *p.Name)
	}
	if p.Description != nil {
		add(FieldDescription, *p.Description)
	}
	if p.Price != nil {
		add(FieldPrice, *p.Price)
	}
	if p.PriceUnit != nil {
		add(FieldPriceUnit, *p.PriceUnit)
	}
	if p.Category != nil {
		add(FieldCategory, *p.Category)
	}
	if p.SubCategory != nil {
		add(FieldSubCategory, *p.SubCategory)
	}
	if p.Images != nil {
		add(FieldImages, copyStrings(*p.Images))
	}
	if p.StockQuantity != nil {
		add(FieldStockQuantity, *p.StockQuantity)
	}
	if p.HarvestDate != nil {
		add(FieldHarvestDate, *p.HarvestDate)
	}
	if p.Certifications != nil {
		add(FieldCertifications, copyStrings(*p.Certifications))
	}
	if p.Seasonality != nil {
		add(FieldSeasonality, copyStrings(*p.Seasonality))
	}
	if p.FarmingMethod != nil {
		add(FieldFarmingMethod, *p.FarmingMethod)
	}
	if p.AvailableForDelivery != nil {
		add(FieldAvailableForDelivery, *p.AvailableForDelivery)
	}
	if p.PickupAvailable != nil {
		add(FieldPickupAvailable, *p.PickupAvailable)
	}
	return out
}

// IsEmpty reports whether the patch sets no field.
func (p ProductPatch) IsEmpty() bool {
	return len(p.Values()) == 0
}

// Apply copies every set field onto product.
func (p ProductPatch) Apply(product *Product) {
	for _, fv := range p.Values() {
		switch fv.Field {
		case FieldName:
			product.Name = fv.Value.(string)
		case FieldDescription:
			product.Description = fv.Value.(string)
		case FieldPrice:
			product.Price = fv.Value.(decimal.Decimal)
		case FieldPriceUnit:
			product.PriceUnit = fv.Value.(string)
		case FieldCategory:
			product.Category = fv.Value.(string)
		case FieldSubCategory:
			v := fv.Value.(string)
			product.SubCategory = &v
		case FieldImages:
			product.Images = datatypes.JSONSlice[string](fv.Value.([]string))
		case FieldStockQuantity:
			product.StockQuantity = fv.Value.(int64)
		case FieldHarvestDate:
			v := fv.Value.(time.Time)
			product.HarvestDate = &v
		case FieldCertifications:
			product.Certifications = datatypes.JSONSlice[string](fv.Value.([]string))
		case FieldSeasonality:
			product.Seasonality = datatypes.JSONSlice[string](fv.Value.([]string))
		case FieldFarmingMethod:
			v := fv.Value.(string)
			product.FarmingMethod = &v
		case FieldAvailableForDelivery:
			product.AvailableForDelivery = fv.Value.(bool)
		case FieldPickupAvailable:
			product.PickupAvailable = fv.Value.(bool)
		}
	}
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
