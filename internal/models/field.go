package models

// Kind classifies how a field value is bound inside a bulk statement.
type Kind int

const (
	KindText Kind = iota
	KindNumeric
	KindInteger
	KindTimestamp
	KindBoolean
	KindCollection
)

// Field is an updatable product attribute. The id is deliberately absent.
type Field string

const (
	FieldName                 Field = "name"
	FieldDescription          Field = "description"
	FieldPrice                Field = "price"
	FieldPriceUnit            Field = "priceUnit"
	FieldCategory             Field = "category"
	FieldSubCategory          Field = "subCategory"
	FieldImages               Field = "images"
	FieldStockQuantity        Field = "stockQuantity"
	FieldHarvestDate          Field = "harvestDate"
	FieldCertifications       Field = "certifications"
	FieldSeasonality          Field = "seasonality"
	FieldFarmingMethod        Field = "farmingMethod"
	FieldAvailableForDelivery Field = "availableForDelivery"
	FieldPickupAvailable      Field = "pickupAvailable"
)

type fieldSpec struct {
	column string
	kind   Kind
	pgType string
}

var fieldSpecs = map[Field]fieldSpec{
	FieldName:                 {"name", KindText, "text"},
	FieldDescription:          {"description", KindText, "text"},
	FieldPrice:                {"price", KindNumeric, "numeric"},
	FieldPriceUnit:            {"price_unit", KindText, "text"},
	FieldCategory:             {"category", KindText, "text"},
	FieldSubCategory:          {"sub_category", KindText, "text"},
	FieldImages:               {"images", KindCollection, "jsonb"},
	FieldStockQuantity:        {"stock_quantity", KindInteger, "bigint"},
	FieldHarvestDate:          {"harvest_date", KindTimestamp, "timestamptz"},
	FieldCertifications:       {"certifications", KindCollection, "jsonb"},
	FieldSeasonality:          {"seasonality", KindCollection, "jsonb"},
	FieldFarmingMethod:        {"farming_method", KindText, "text"},
	FieldAvailableForDelivery: {"available_for_delivery", KindBoolean, "boolean"},
	FieldPickupAvailable:      {"pickup_available", KindBoolean, "boolean"},
}

// Valid reports whether f names an updatable field.
func (f Field) Valid() bool {
	_, ok := fieldSpecs[f]
	return ok
}

// Column returns the database column backing the field.
func (f Field) Column() string { return fieldSpecs[f].column }

// Kind returns the value kind of the field.
func (f Field) Kind() Kind { return fieldSpecs[f].kind }

// PostgresType is the type a bound value is cast to on postgres.
func (f Field) PostgresType() string { return fieldSpecs[f].pgType }
