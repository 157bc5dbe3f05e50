package repositories

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"magazyn/internal/models"
)

// MockProductRepository is an in-memory implementation of ProductRepository.
type MockProductRepository struct {
	products map[primitive.ObjectID]models.Product
	mu       sync.RWMutex
}

// NewMockProductRepository creates a new instance of MockProductRepository.
func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{
		products: make(map[primitive.ObjectID]models.Product),
	}
}

// Find returns all products matching the filter, ordered per sort.
func (r *MockProductRepository) Find(ctx context.Context, filter models.ProductFilter, sortSpec models.SortSpec) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		if matchesFilter(p, filter) {
			matched = append(matched, p)
		}
	}

	sortProducts(matched, sortSpec)
	return matched, nil
}

// FindByID returns the product with the given id, or nil when absent.
func (r *MockProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, nil
	}
	return &product, nil
}

// FindByName returns the product with the given name, or nil when absent.
func (r *MockProductRepository) FindByName(ctx context.Context, name string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.products {
		if p.Name == name {
			product := p
			return &product, nil
		}
	}
	return nil, nil
}

// Insert adds a new product, assigning an id when none is set.
func (r *MockProductRepository) Insert(ctx context.Context, product *models.Product) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.products {
		if p.Name == product.Name {
			return primitive.NilObjectID, ErrDuplicateName
		}
	}

	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	r.products[product.ID] = *product
	return product.ID, nil
}

// UpdateFields merges the named fields into an existing product.
func (r *MockProductRepository) UpdateFields(ctx context.Context, id primitive.ObjectID, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok {
		// Mirrors the document store: updating a missing document
		// matches nothing and is not an error.
		return nil
	}

	if v, ok := fields["name"]; ok {
		name := v.(string)
		for otherID, p := range r.products {
			if otherID != id && p.Name == name {
				return ErrDuplicateName
			}
		}
		product.Name = name
	}
	if v, ok := fields["price"]; ok {
		product.Price = v.(float64)
	}
	if v, ok := fields["description"]; ok {
		product.Description = v.(string)
	}
	if v, ok := fields["quantity"]; ok {
		product.Quantity = v.(int)
	}
	if v, ok := fields["unit"]; ok {
		product.Unit = v.(string)
	}

	r.products[id] = product
	return nil
}

// DeleteIfOutOfStock removes the product only while its quantity is zero.
func (r *MockProductRepository) DeleteIfOutOfStock(ctx context.Context, id primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok || product.Quantity != 0 {
		return 0, nil
	}
	delete(r.products, id)
	return 1, nil
}

// InventoryReport projects every product to name, quantity and price*quantity.
func (r *MockProductRepository) InventoryReport(ctx context.Context) ([]models.ReportLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lines := make([]models.ReportLine, 0, len(r.products))
	for _, p := range r.products {
		lines = append(lines, models.ReportLine{
			Name:       p.Name,
			Quantity:   p.Quantity,
			TotalValue: p.Price * float64(p.Quantity),
		})
	}
	return lines, nil
}

// matchesFilter reports whether a product satisfies every constraint in
// the filter. NaN constraints never match, like in the document store.
func matchesFilter(p models.Product, f models.ProductFilter) bool {
	if f.ID != nil && p.ID != *f.ID {
		return false
	}
	if f.Name != nil && p.Name != *f.Name {
		return false
	}
	if f.Price != nil && p.Price != *f.Price {
		return false
	}
	if f.Description != nil && p.Description != *f.Description {
		return false
	}
	if f.Quantity != nil && float64(p.Quantity) != *f.Quantity {
		return false
	}
	if f.Unit != nil && p.Unit != *f.Unit {
		return false
	}
	return true
}

// sortProducts orders products by the named field. Unknown fields leave
// the slice untouched, matching a sort on a field no document carries.
func sortProducts(products []models.Product, spec models.SortSpec) {
	if spec.Field == "" {
		return
	}

	less := func(a, b models.Product) bool {
		switch spec.Field {
		case "id", "_id":
			return a.ID.Hex() < b.ID.Hex()
		case "name":
			return a.Name < b.Name
		case "price":
			return a.Price < b.Price
		case "description":
			return a.Description < b.Description
		case "quantity":
			return a.Quantity < b.Quantity
		case "unit":
			return a.Unit < b.Unit
		default:
			return false
		}
	}

	sort.SliceStable(products, func(i, j int) bool {
		if spec.Descending {
			return less(products[j], products[i])
		}
		return less(products[i], products[j])
	})
}
