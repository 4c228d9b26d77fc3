package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cartshare/internal/domain"
)

type userDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Email     string    `bson:"email"`
	CreatedAt time.Time `bson:"created_at"`
}

type userRoleDoc struct {
	ID   string `bson:"_id"`
	Name string `bson:"name"`
	Role string `bson:"role"`
}

type mongoRoleRepository struct {
	users     *mongo.Collection
	userRoles *mongo.Collection
}

func NewMongoRoleRepository(db *mongo.Database) RoleRepository {
	return &mongoRoleRepository{
		users:     db.Collection("users"),
		userRoles: db.Collection("userRoles"),
	}
}

func (m *mongoRoleRepository) EnsureUser(ctx context.Context, user domain.User) (bool, error) {
	name := user.Name
	if name == "" {
		name = user.ID
	}

	filter := bson.M{"_id": user.ID}
	update := bson.M{
		"$setOnInsert": userDoc{
			ID:        user.ID,
			Name:      name,
			Email:     user.Email,
			CreatedAt: time.Now().UTC(),
		},
	}
	opts := options.Update().SetUpsert(true)

	result, err := m.users.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return false, fmt.Errorf("failed to ensure user: %w", err)
	}
	created := result.UpsertedCount > 0
	if !created {
		return false, nil
	}

	roleUpdate := bson.M{
		"$setOnInsert": userRoleDoc{
			ID:   user.ID,
			Name: name,
			Role: domain.RolePending,
		},
	}
	if _, err := m.userRoles.UpdateOne(ctx, filter, roleUpdate, opts); err != nil {
		return true, fmt.Errorf("failed to ensure user role: %w", err)
	}
	return true, nil
}

func (m *mongoRoleRepository) GetRole(ctx context.Context, userID string) (*domain.UserRole, error) {
	var doc userRoleDoc
	err := m.userRoles.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user role: %w", err)
	}
	return &domain.UserRole{UserID: doc.ID, Name: doc.Name, Role: doc.Role}, nil
}

func (m *mongoRoleRepository) SetRole(ctx context.Context, userID, role string) error {
	update := bson.M{"$set": bson.M{"role": role}}

	result, err := m.userRoles.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return fmt.Errorf("failed to set user role: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (m *mongoRoleRepository) ListMembers(ctx context.Context) ([]domain.UserRole, error) {
	// Only records carrying a display name are offered as share candidates.
	filter := bson.M{"name": bson.M{"$exists": true, "$ne": ""}}

	cursor, err := m.userRoles.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer cursor.Close(ctx)

	var members []domain.UserRole
	for cursor.Next(ctx) {
		var doc userRoleDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode user role: %w", err)
		}
		members = append(members, domain.UserRole{UserID: doc.ID, Name: doc.Name, Role: doc.Role})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}
