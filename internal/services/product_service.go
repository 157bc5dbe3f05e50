package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"magazyn/internal/models"
	"magazyn/internal/repositories"
)

// allowedFields are the only product attributes a caller may supply in
// a create or update body.
var allowedFields = []string{"name", "price", "description", "quantity", "unit"}

// EventPublisher publishes inventory change events after successful writes.
type EventPublisher interface {
	PublishProductEvent(event string, payload map[string]interface{}) error
}

// ProductService handles query translation, validation and guard checks
// for the product collection.
type ProductService struct {
	repo     repositories.ProductRepository
	events   EventPublisher // may be nil, events are best effort
	validate *validator.Validate
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository, events EventPublisher) *ProductService {
	return &ProductService{
		repo:     repo,
		events:   events,
		validate: validator.New(),
	}
}

// ListProducts returns every product matching the query parameters,
// ordered per the sort spec. Returns ErrNotFound when nothing matches.
func (s *ProductService) ListProducts(ctx context.Context, query models.ListQuery) ([]models.Product, error) {
	var filter models.ProductFilter

	if query.ID != "" {
		id, err := primitive.ObjectIDFromHex(query.ID)
		if err != nil {
			// A malformed id cannot match any document.
			return nil, ErrNotFound
		}
		filter.ID = &id
	}
	if query.Name != "" {
		filter.Name = &query.Name
	}
	if query.Price != "" {
		price := coerceFloat(query.Price)
		filter.Price = &price
	}
	if query.Description != "" {
		filter.Description = &query.Description
	}
	if query.Quantity != "" {
		quantity := coerceQuantity(query.Quantity)
		filter.Quantity = &quantity
	}
	if query.Unit != "" {
		filter.Unit = &query.Unit
	}

	var sortSpec models.SortSpec
	if query.Sort != "" {
		parts := strings.SplitN(query.Sort, ":", 2)
		sortSpec.Field = parts[0]
		sortSpec.Descending = len(parts) == 2 && parts[1] == "desc"
	}

	products, err := s.repo.Find(ctx, filter, sortSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	if len(products) == 0 {
		return nil, ErrNotFound
	}
	return products, nil
}

// InventoryReport computes the valuation report over all products.
// Returns ErrNotFound when the collection is empty.
func (s *ProductService) InventoryReport(ctx context.Context) (*models.InventoryReport, error) {
	lines, err := s.repo.InventoryReport(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build inventory report: %w", err)
	}
	if len(lines) == 0 {
		return nil, ErrNotFound
	}

	var totalValue float64
	for _, line := range lines {
		totalValue += line.TotalValue
	}

	return &models.InventoryReport{
		Products:      lines,
		TotalProducts: len(lines),
		TotalValue:    totalValue,
	}, nil
}

// CreateProduct validates the request body and stores a new product,
// returning the id assigned by the store.
func (s *ProductService) CreateProduct(ctx context.Context, body map[string]interface{}) (primitive.ObjectID, error) {
	for _, field := range allowedFields {
		if v, ok := body[field]; !ok || v == nil {
			return primitive.NilObjectID, &ValidationError{Message: "Missing required fields"}
		}
	}

	for field := range body {
		if !isAllowedField(field) {
			return primitive.NilObjectID, &ValidationError{Message: "Request body contains fields that are not allowed"}
		}
	}

	name, nameOK := body["name"].(string)
	description, descOK := body["description"].(string)
	unit, unitOK := body["unit"].(string)
	if !nameOK || !descOK || !unitOK {
		return primitive.NilObjectID, &ValidationError{Message: "Invalid field values"}
	}

	price, priceOK := toFloat(body["price"])
	quantity, quantityOK := toInt(body["quantity"])
	if !priceOK || !quantityOK {
		return primitive.NilObjectID, &ValidationError{Message: "Invalid numeric values"}
	}

	product := models.Product{
		Name:        name,
		Price:       price,
		Description: description,
		Quantity:    quantity,
		Unit:        unit,
	}
	if err := s.validate.Struct(product); err != nil {
		return primitive.NilObjectID, validationErrorFor(err)
	}

	existing, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("failed to check name uniqueness: %w", err)
	}
	if existing != nil {
		return primitive.NilObjectID, ErrNameTaken
	}

	id, err := s.repo.Insert(ctx, &product)
	if err != nil {
		// The unique index catches creates that raced past the pre-check.
		if errors.Is(err, repositories.ErrDuplicateName) {
			return primitive.NilObjectID, ErrNameTaken
		}
		return primitive.NilObjectID, fmt.Errorf("failed to create product: %w", err)
	}

	s.publishEvent("product.created", map[string]interface{}{
		"productId": id.Hex(),
		"name":      product.Name,
		"quantity":  product.Quantity,
	})
	return id, nil
}

// UpdateProduct applies a partial update to the named product. Only the
// fields present in the body are changed; a key that was supplied counts
// as present even when its value is zero or empty.
func (s *ProductService) UpdateProduct(ctx context.Context, idHex string, body map[string]interface{}) error {
	fields := make(map[string]interface{})
	for _, field := range allowedFields {
		v, ok := body[field]
		if !ok || v == nil {
			continue
		}
		switch field {
		case "name", "description", "unit":
			str, ok := v.(string)
			if !ok {
				return &ValidationError{Message: "Invalid field values"}
			}
			fields[field] = str
		case "price":
			price, ok := toFloat(v)
			if !ok {
				return &ValidationError{Message: "Invalid numeric values"}
			}
			fields[field] = price
		case "quantity":
			quantity, ok := toInt(v)
			if !ok {
				return &ValidationError{Message: "Invalid numeric values"}
			}
			fields[field] = quantity
		}
	}
	if len(fields) == 0 {
		return &ValidationError{Message: "No editable fields provided - choose among the current product parameters"}
	}

	id, err := primitive.ObjectIDFromHex(idHex)
	if err != nil {
		return ErrNotFound
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to look up product for update: %w", err)
	}
	if existing == nil {
		return ErrNotFound
	}

	if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
		if errors.Is(err, repositories.ErrDuplicateName) {
			return ErrNameTaken
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	s.publishEvent("product.updated", map[string]interface{}{
		"productId": idHex,
		"fields":    fieldNames(fields),
	})
	return nil
}

// DeleteProduct removes the named product. Deletion is refused while
// stock remains; the delete itself re-checks the quantity in the store
// so a concurrent restock cannot slip past the guard.
func (s *ProductService) DeleteProduct(ctx context.Context, idHex string) error {
	id, err := primitive.ObjectIDFromHex(idHex)
	if err != nil {
		return ErrNotFound
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to look up product for deletion: %w", err)
	}
	if existing == nil {
		return ErrNotFound
	}
	if existing.Quantity > 0 {
		return ErrStillStocked
	}

	deleted, err := s.repo.DeleteIfOutOfStock(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if deleted == 0 {
		return fmt.Errorf("delete of product %s affected no records", idHex)
	}

	s.publishEvent("product.deleted", map[string]interface{}{
		"productId": idHex,
		"name":      existing.Name,
	})
	return nil
}

// publishEvent sends an inventory event, logging instead of failing the
// request when the broker is unavailable.
func (s *ProductService) publishEvent(event string, payload map[string]interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishProductEvent(event, payload); err != nil {
		log.Printf("Warning: failed to publish %s event: %v", event, err)
	}
}

// validationErrorFor maps validator failures onto the response message
// categories: empty required strings count as missing fields, numeric
// range failures as invalid numeric values.
func validationErrorFor(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Tag() == "required" && fe.Field() != "Price" && fe.Field() != "Quantity" {
				return &ValidationError{Message: "Missing required fields"}
			}
		}
		return &ValidationError{Message: "Invalid numeric values"}
	}
	return &ValidationError{Message: "Invalid field values"}
}

func isAllowedField(field string) bool {
	for _, allowed := range allowedFields {
		if field == allowed {
			return true
		}
	}
	return false
}

func fieldNames(fields map[string]interface{}) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	return names
}

// toFloat coerces a decoded JSON value to a float. Numeric strings are
// accepted, as form-encoded clients send numbers as text.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// toInt coerces a decoded JSON value to an integer. Fractional numbers
// are rejected rather than truncated.
func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	default:
		return 0, false
	}
}

// coerceFloat parses a query parameter as a float. An unparseable value
// becomes NaN, a filter no document can match.
func coerceFloat(raw string) float64 {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// coerceQuantity parses a quantity query parameter as an integer carried
// in a float, so an unparseable value can also become NaN.
func coerceQuantity(raw string) float64 {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return math.NaN()
	}
	return float64(n)
}
