package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cartshare/internal/domain"
)

const defaultCatalogPageSize = 25

type productDoc struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Description string    `bson:"description"`
	Price       string    `bson:"price"`
	ImageURL    string    `bson:"image_url"`
	CreatedAt   time.Time `bson:"created_at"`
}

type mongoProductRepository struct {
	collection *mongo.Collection
}

func NewMongoProductRepository(db *mongo.Database) ProductRepository {
	return &mongoProductRepository{
		collection: db.Collection("products"),
	}
}

// ListPage pages through the catalog ordered by name, resuming after the
// given name cursor. Name collisions are tolerated: the page simply resumes
// strictly after the cursor value.
func (m *mongoProductRepository) ListPage(ctx context.Context, afterName string, limit int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = defaultCatalogPageSize
	}

	filter := bson.M{}
	if afterName != "" {
		filter["name"] = bson.M{"$gt": afterName}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer cursor.Close(ctx)

	var products []domain.Product
	for cursor.Next(ctx) {
		var doc productDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode product: %w", err)
		}
		price, err := decimal.NewFromString(doc.Price)
		if err != nil {
			return nil, fmt.Errorf("product %s: bad price %q: %w", doc.ID, doc.Price, err)
		}
		products = append(products, domain.Product{
			ID:          doc.ID,
			Name:        doc.Name,
			Description: doc.Description,
			Price:       price,
			ImageURL:    doc.ImageURL,
			CreatedAt:   doc.CreatedAt,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}
	return products, nil
}
