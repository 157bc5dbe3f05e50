package repositories

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"magazyn/internal/models"
)

// ErrDuplicateName is returned by Insert and UpdateFields when a write
// would violate the unique index on the product name.
var ErrDuplicateName = errors.New("product name already exists")

// ProductRepository defines the interface for product data access.
// Lookup methods return (nil, nil) when no document matches.
type ProductRepository interface {
	// Find returns all products matching the filter, ordered per sort.
	Find(ctx context.Context, filter models.ProductFilter, sort models.SortSpec) ([]models.Product, error)
	// FindByID returns the product with the given id.
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	// FindByName returns the product with the given name.
	FindByName(ctx context.Context, name string) (*models.Product, error)
	// Insert stores a new product and returns its generated id.
	Insert(ctx context.Context, product *models.Product) (primitive.ObjectID, error)
	// UpdateFields applies a partial update, setting only the named fields.
	UpdateFields(ctx context.Context, id primitive.ObjectID, fields map[string]interface{}) error
	// DeleteIfOutOfStock deletes the product only while its quantity is
	// still zero, returning the number of documents removed. The quantity
	// predicate closes the race between the stock check and the delete.
	DeleteIfOutOfStock(ctx context.Context, id primitive.ObjectID) (int64, error)
	// InventoryReport projects every product down to name, quantity and
	// price*quantity.
	InventoryReport(ctx context.Context) ([]models.ReportLine, error)
}
