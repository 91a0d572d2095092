// Package repository holds the MongoDB-backed stores for users, cars, posts and comments.
package repository

import (
	"context"
	"errors"
	"fmt"

	"carmarket/models"
	"carmarket/search"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserRepository defines persistence for user identities and their token/like sets.
type UserRepository interface {
	// Create inserts a user, assigning an id when none is set.
	// Returns a Conflict error when the email is already registered.
	Create(ctx context.Context, user *models.User) error

	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)

	// GetByEmail returns a NotFound error when no user has the email.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// UpdateProfile replaces the profile fields and returns the updated user.
	UpdateProfile(ctx context.Context, id primitive.ObjectID, update models.ProfileUpdate) (*models.User, error)

	// AddRefreshToken appends a token to the user's valid set.
	AddRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error

	// ReplaceRefreshToken swaps oldToken for newToken in one conditional update.
	// Returns false when oldToken is not in the set.
	ReplaceRefreshToken(ctx context.Context, id primitive.ObjectID, oldToken, newToken string) (bool, error)

	// RemoveRefreshToken drops a token. Returns false when it was not in the set.
	RemoveRefreshToken(ctx context.Context, id primitive.ObjectID, token string) (bool, error)

	// ClearRefreshTokens revokes every session of the user.
	ClearRefreshTokens(ctx context.Context, id primitive.ObjectID) error

	AddLikedPost(ctx context.Context, id primitive.ObjectID, postID string) error
	RemoveLikedPost(ctx context.Context, id primitive.ObjectID, postID string) error
}

// CarRepository defines persistence for car listings.
type CarRepository interface {
	Create(ctx context.Context, car *models.Car) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Car, error)

	// Find returns the cars matching filter; an empty filter matches all cars.
	Find(ctx context.Context, filter search.Filter) ([]models.Car, error)

	// FindIDs returns only the ids of the cars matching filter.
	FindIDs(ctx context.Context, filter search.Filter) ([]primitive.ObjectID, error)

	// Update replaces the listing fields of car.ID and returns the stored result.
	Update(ctx context.Context, car *models.Car) (*models.Car, error)

	Delete(ctx context.Context, id primitive.ObjectID) error

	// Distinct returns the distinct values of a string field, e.g. "color".
	Distinct(ctx context.Context, field string) ([]string, error)
}

// PostRepository defines persistence for posts and their comment-id lists.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	FindAll(ctx context.Context) ([]models.Post, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Post, error)

	// FindByCars returns the posts whose car is one of carIDs.
	FindByCars(ctx context.Context, carIDs []primitive.ObjectID) ([]models.Post, error)

	SetCar(ctx context.Context, id, carID primitive.ObjectID) (*models.Post, error)

	// PushComment appends commentID to the post's list server-side and returns the updated post.
	PushComment(ctx context.Context, id, commentID primitive.ObjectID) (*models.Post, error)

	// PullComment removes commentID from the post's list and returns the updated post.
	PullComment(ctx context.Context, id, commentID primitive.ObjectID) (*models.Post, error)

	Delete(ctx context.Context, id primitive.ObjectID) error
}

// CommentRepository defines persistence for comments and replies.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error)

	// GetMany returns the comments that exist among ids, in no particular order.
	GetMany(ctx context.Context, ids []primitive.ObjectID) ([]models.Comment, error)

	UpdateText(ctx context.Context, id primitive.ObjectID, text string) (*models.Comment, error)
	PushReply(ctx context.Context, id, replyID primitive.ObjectID) (*models.Comment, error)
	PullReply(ctx context.Context, id, replyID primitive.ObjectID) (*models.Comment, error)
	Delete(ctx context.Context, id primitive.ObjectID) error

	// DeleteMany removes every comment in ids and reports how many existed.
	DeleteMany(ctx context.Context, ids []primitive.ObjectID) (int64, error)
}

// translateError maps driver errors onto the application error taxonomy.
func translateError(err error, resource string, id interface{}) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.NewNotFoundError(resource, id)
	}
	if mongo.IsDuplicateKeyError(err) {
		return models.NewConflictError(fmt.Sprintf("%s already exists", resource))
	}
	return fmt.Errorf("%s store: %w", resource, err)
}

var (
	_ UserRepository    = (*MongoUserRepository)(nil)
	_ CarRepository     = (*MongoCarRepository)(nil)
	_ PostRepository    = (*MongoPostRepository)(nil)
	_ CommentRepository = (*MongoCommentRepository)(nil)
)
