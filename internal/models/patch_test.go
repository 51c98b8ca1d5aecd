package models_test

import (
	"testing"
	"time"

	"tani/internal/errx"
	"tani/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductPatch_ValuesInDeclarationOrder(t *testing.T) {
	name := "Kale"
	stock := int64(4)
	pickup := false
	patch := models.ProductPatch{PickupAvailable: &pickup, StockQuantity: &stock, Name: &name}

	values := patch.Values()
	require.Len(t, values, 3)
	assert.Equal(t, models.FieldName, values[0].Field)
	assert.Equal(t, models.FieldStockQuantity, values[1].Field)
	assert.Equal(t, models.FieldPickupAvailable, values[2].Field)
	assert.False(t, patch.IsEmpty())
	assert.True(t, models.ProductPatch{}.IsEmpty())
}

func TestProductPatch_CollectionsAreCopied(t *testing.T) {
	images := []string{"a.png"}
	patch := models.ProductPatch{Images: &images}

	values := patch.Values()
	images[0] = "changed.png"

	assert.Equal(t, []string{"a.png"}, values[0].Value)
}

func TestProductPatch_Apply(t *testing.T) {
	product := models.Product{ID: "p-1", Name: "Old", PriceUnit: "kg", PickupAvailable: true}

	price := decimal.RequireFromString("3.20")
	sub := "leafy"
	harvest := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	seasons := []string{"spring", "autumn"}
	pickup := false
	models.ProductPatch{
		Price:           &price,
		SubCategory:     &sub,
		HarvestDate:     &harvest,
		Seasonality:     &seasons,
		PickupAvailable: &pickup,
	}.Apply(&product)

	assert.Equal(t, "p-1", product.ID)
	assert.Equal(t, "Old", product.Name)
	assert.True(t, price.Equal(product.Price))
	require.NotNil(t, product.SubCategory)
	assert.Equal(t, "leafy", *product.SubCategory)
	require.NotNil(t, product.HarvestDate)
	assert.True(t, harvest.Equal(*product.HarvestDate))
	assert.Equal(t, []string{"spring", "autumn"}, []string(product.Seasonality))
	assert.False(t, product.PickupAvailable)
}

func TestField(t *testing.T) {
	assert.True(t, models.FieldPriceUnit.Valid())
	assert.False(t, models.Field("id").Valid())
	assert.Equal(t, "price_unit", models.FieldPriceUnit.Column())
	assert.Equal(t, models.KindCollection, models.FieldCertifications.Kind())
	assert.Equal(t, "timestamptz", models.FieldHarvestDate.PostgresType())
}

func TestProductFilter_IsEmpty(t *testing.T) {
	assert.True(t, models.ProductFilter{}.IsEmpty())
	minPrice := decimal.NewFromInt(1)
	assert.False(t, models.ProductFilter{MinPrice: &minPrice}.IsEmpty())
	assert.False(t, models.ProductFilter{Query: "tom"}.IsEmpty())
}

func TestCheckPrice(t *testing.T) {
	for _, ok := range []string{"0", "1.2", "1.23", "1.230", "99999999.99"} {
		assert.NoError(t, models.CheckPrice(decimal.RequireFromString(ok)), ok)
	}
	for _, bad := range []string{"1.239", "0.001", "-0.01"} {
		assert.ErrorIs(t, models.CheckPrice(decimal.RequireFromString(bad)), errx.ErrInvalidInput, bad)
	}
}
