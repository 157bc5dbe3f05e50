package repositories

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"magazyn/internal/models"
)

// MongoProductRepository is a MongoDB implementation of ProductRepository.
type MongoProductRepository struct {
	col *mongo.Collection
}

// NewMongoProductRepository creates a new instance of MongoProductRepository.
func NewMongoProductRepository(col *mongo.Collection) *MongoProductRepository {
	return &MongoProductRepository{
		col: col,
	}
}

// EnsureIndexes creates the unique index on the product name. The index
// backs the uniqueness invariant at the store level, so concurrent
// creates cannot race past the handler's pre-check.
func (r *MongoProductRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create unique name index: %w", err)
	}
	return nil
}

// Find retrieves all products matching the filter in the requested order.
func (r *MongoProductRepository) Find(ctx context.Context, filter models.ProductFilter, sort models.SortSpec) ([]models.Product, error) {
	query := bson.M{}
	if filter.ID != nil {
		query["_id"] = *filter.ID
	}
	if filter.Name != nil {
		query["name"] = *filter.Name
	}
	if filter.Price != nil {
		query["price"] = *filter.Price
	}
	if filter.Description != nil {
		query["description"] = *filter.Description
	}
	if filter.Quantity != nil {
		query["quantity"] = *filter.Quantity
	}
	if filter.Unit != nil {
		query["unit"] = *filter.Unit
	}

	opts := options.Find()
	if sort.Field != "" {
		order := 1
		if sort.Descending {
			order = -1
		}
		opts.SetSort(bson.D{{Key: sort.Field, Value: order}})
	}

	cursor, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	defer cursor.Close(ctx)

	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, nil
}

// FindByID retrieves a single product by its id.
func (r *MongoProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var product models.Product
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find product by id %s: %w", id.Hex(), err)
	}
	return &product, nil
}

// FindByName retrieves a single product by its name.
func (r *MongoProductRepository) FindByName(ctx context.Context, name string) (*models.Product, error) {
	var product models.Product
	err := r.col.FindOne(ctx, bson.M{"name": name}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find product by name %q: %w", name, err)
	}
	return &product, nil
}

// Insert stores a new product and returns the id assigned by the store.
func (r *MongoProductRepository) Insert(ctx context.Context, product *models.Product) (primitive.ObjectID, error) {
	result, err := r.col.InsertOne(ctx, product)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, ErrDuplicateName
		}
		return primitive.NilObjectID, fmt.Errorf("failed to insert product: %w", err)
	}
	id, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("unexpected inserted id type %T", result.InsertedID)
	}
	return id, nil
}

// UpdateFields sets only the named fields on the product document.
func (r *MongoProductRepository) UpdateFields(ctx context.Context, id primitive.ObjectID, fields map[string]interface{}) error {
	set := bson.M{}
	for k, v := range fields {
		set[k] = v
	}
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("failed to update product %s: %w", id.Hex(), err)
	}
	return nil
}

// DeleteIfOutOfStock issues a conditional delete on id and quantity == 0.
func (r *MongoProductRepository) DeleteIfOutOfStock(ctx context.Context, id primitive.ObjectID) (int64, error) {
	result, err := r.col.DeleteOne(ctx, bson.M{"_id": id, "quantity": 0})
	if err != nil {
		return 0, fmt.Errorf("failed to delete product %s: %w", id.Hex(), err)
	}
	return result.DeletedCount, nil
}

// InventoryReport runs the valuation projection over the whole collection.
func (r *MongoProductRepository) InventoryReport(ctx context.Context) ([]models.ReportLine, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "name", Value: 1},
			{Key: "quantity", Value: 1},
			{Key: "total_value", Value: bson.D{
				{Key: "$multiply", Value: bson.A{"$price", "$quantity"}},
			}},
		}}},
	}

	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate inventory report: %w", err)
	}
	defer cursor.Close(ctx)

	var lines []models.ReportLine
	if err := cursor.All(ctx, &lines); err != nil {
		return nil, fmt.Errorf("failed to decode inventory report: %w", err)
	}
	return lines, nil
}
