package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Product represents a product document in the inventory collection.
type Product struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty" validate:"-"`
	Name        string             `json:"name" bson:"name" validate:"required"`
	Price       float64            `json:"price" bson:"price" validate:"required,gt=0"`
	Description string             `json:"description" bson:"description" validate:"required"`
	Quantity    int                `json:"quantity" bson:"quantity" validate:"gte=0"`
	Unit        string             `json:"unit" bson:"unit" validate:"required"`
}

// ListQuery carries the raw query parameters of a list request before
// they are normalized into a ProductFilter and SortSpec.
type ListQuery struct {
	ID          string
	Name        string
	Price       string
	Description string
	Quantity    string
	Unit        string
	Sort        string
}

// ProductFilter holds exact-match constraints for selecting products.
// Nil fields are absent from the filter. Numeric fields are carried as
// floats so an unparseable query value can be represented as NaN, which
// matches no stored document.
type ProductFilter struct {
	ID          *primitive.ObjectID
	Name        *string
	Price       *float64
	Description *string
	Quantity    *float64
	Unit        *string
}

// SortSpec describes a single-field sort order. An empty Field means
// the natural store order.
type SortSpec struct {
	Field      string
	Descending bool
}

// ReportLine is one product's row in the inventory valuation report.
type ReportLine struct {
	Name       string  `json:"name" bson:"name"`
	Quantity   int     `json:"quantity" bson:"quantity"`
	TotalValue float64 `json:"total_value" bson:"total_value"`
}

// InventoryReport is the response of the inventory report endpoint.
type InventoryReport struct {
	Products      []ReportLine `json:"products"`
	TotalProducts int          `json:"totalProducts"`
	TotalValue    float64      `json:"totalValue"`
}
