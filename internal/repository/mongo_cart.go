package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cartshare/internal/domain"
)

type cartDoc struct {
	ID        string    `bson:"_id"`
	Items     []itemDoc `bson:"items"`
	MemberIDs []string  `bson:"member_user_ids"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// itemDoc stores the unit price as a canonical decimal string so money
// never round-trips through binary floating point.
type itemDoc struct {
	ID        string    `bson:"item_id"`
	Name      string    `bson:"name"`
	UnitPrice string    `bson:"unit_price"`
	Quantity  int       `bson:"quantity"`
	AddedAt   time.Time `bson:"added_at"`
}

func toItemDocs(items []domain.CartItem) []itemDoc {
	docs := make([]itemDoc, len(items))
	for i, item := range items {
		docs[i] = itemDoc{
			ID:        item.ID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice.String(),
			Quantity:  item.Quantity,
			AddedAt:   item.AddedAt,
		}
	}
	return docs
}

func (d cartDoc) toDomain() (*domain.Cart, error) {
	cart := &domain.Cart{
		ID:        d.ID,
		Items:     make([]domain.CartItem, len(d.Items)),
		MemberIDs: d.MemberIDs,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	for i, item := range d.Items {
		price, err := decimal.NewFromString(item.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("cart %s item %s: bad unit price %q: %w", d.ID, item.ID, item.UnitPrice, err)
		}
		cart.Items[i] = domain.CartItem{
			ID:        item.ID,
			Name:      item.Name,
			UnitPrice: price,
			Quantity:  item.Quantity,
			AddedAt:   item.AddedAt,
		}
	}
	return cart, nil
}

type mongoCartRepository struct {
	collection *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) CartRepository {
	return &mongoCartRepository{
		collection: db.Collection("carts"),
	}
}

func (m *mongoCartRepository) GetCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	var doc cartDoc
	err := m.collection.FindOne(ctx, bson.M{"_id": cartID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return doc.toDomain()
}

func (m *mongoCartRepository) CreateCart(ctx context.Context, userID string) (*domain.Cart, error) {
	now := time.Now().UTC()
	doc := cartDoc{
		ID:        userID,
		Items:     []itemDoc{},
		MemberIDs: []string{userID},
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := m.collection.InsertOne(ctx, doc)
	if err != nil {
		// Lost a race against another session creating the same cart;
		// the existing document wins.
		if mongo.IsDuplicateKeyError(err) {
			return m.GetCart(ctx, userID)
		}
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	return doc.toDomain()
}

func (m *mongoCartRepository) ListMemberCarts(ctx context.Context, userID string) ([]*domain.Cart, error) {
	// Matching a scalar against an array field is Mongo's array-contains.
	cursor, err := m.collection.Find(ctx, bson.M{"member_user_ids": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list member carts: %w", err)
	}
	defer cursor.Close(ctx)

	var carts []*domain.Cart
	for cursor.Next(ctx) {
		var doc cartDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode cart: %w", err)
		}
		cart, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		carts = append(carts, cart)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate member carts: %w", err)
	}
	return carts, nil
}

func (m *mongoCartRepository) SaveItems(ctx context.Context, cartID string, items []domain.CartItem) error {
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"items":      toItemDocs(items),
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"member_user_ids": []string{cartID},
			"created_at":      now,
		},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, bson.M{"_id": cartID}, update, opts); err != nil {
		return fmt.Errorf("failed to save cart items: %w", err)
	}
	return nil
}

func (m *mongoCartRepository) AddMembers(ctx context.Context, cartID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	update := bson.M{
		"$addToSet": bson.M{
			"member_user_ids": bson.M{"$each": userIDs},
		},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}

	result, err := m.collection.UpdateOne(ctx, bson.M{"_id": cartID}, update)
	if err != nil {
		return fmt.Errorf("failed to add cart members: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (m *mongoCartRepository) ClearItems(ctx context.Context, cartID string) error {
	update := bson.M{
		"$set": bson.M{
			"items":      []itemDoc{},
			"updated_at": time.Now().UTC(),
		},
	}

	result, err := m.collection.UpdateOne(ctx, bson.M{"_id": cartID}, update)
	if err != nil {
		return fmt.Errorf("failed to clear cart items: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (m *mongoCartRepository) RemoveExpiredItems(ctx context.Context, cutoff time.Time) (int64, error) {
	filter := bson.M{"items.added_at": bson.M{"$lt": cutoff}}
	update := bson.M{
		"$pull": bson.M{
			"items": bson.M{"added_at": bson.M{"$lt": cutoff}},
		},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}

	result, err := m.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to remove expired items: %w", err)
	}
	return result.ModifiedCount, nil
}

// EnsureCartIndexes creates the query indexes the cart repository relies on.
func EnsureCartIndexes(ctx context.Context, db *mongo.Database) error {
	repo := &mongoCartRepository{collection: db.Collection("carts")}
	return repo.CreateIndexes(ctx)
}

func (m *mongoCartRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "member_user_ids", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "updated_at", Value: 1}},
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
