package repository

import (
	"context"
	"fmt"

	"carmarket/database"
	"carmarket/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoPostRepository struct {
	coll *mongo.Collection
}

func NewPostRepository(db *mongo.Database) *MongoPostRepository {
	return &MongoPostRepository{coll: db.Collection(database.PostsCollection)}
}

func (r *MongoPostRepository) Create(ctx context.Context, post *models.Post) error {
	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	if post.Comments == nil {
		post.Comments = []primitive.ObjectID{}
	}
	_, err := r.coll.InsertOne(ctx, post)
	return translateError(err, "Post", post.ID.Hex())
}

func (r *MongoPostRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var post models.Post
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		return nil, translateError(err, "Post", id.Hex())
	}
	return &post, nil
}

func (r *MongoPostRepository) FindAll(ctx context.Context) ([]models.Post, error) {
	return r.find(ctx, bson.M{})
}

func (r *MongoPostRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Post, error) {
	if len(ids) == 0 {
		return []models.Post{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *MongoPostRepository) FindByCars(ctx context.Context, carIDs []primitive.ObjectID) ([]models.Post, error) {
	if len(carIDs) == 0 {
		return []models.Post{}, nil
	}
	return r.find(ctx, bson.M{"car": bson.M{"$in": carIDs}})
}

func (r *MongoPostRepository) find(ctx context.Context, filter bson.M) ([]models.Post, error) {
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, translateError(err, "Post", "")
	}
	defer cursor.Close(ctx)

	posts := make([]models.Post, 0)
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}
	return posts, nil
}

func (r *MongoPostRepository) SetCar(ctx context.Context, id, carID primitive.ObjectID) (*models.Post, error) {
	return r.update(ctx, id, bson.M{"$set": bson.M{"car": carID}})
}

func (r *MongoPostRepository) PushComment(ctx context.Context, id, commentID primitive.ObjectID) (*models.Post, error) {
	return r.update(ctx, id, bson.M{"$push": bson.M{"comments": commentID}})
}

func (r *MongoPostRepository) PullComment(ctx context.Context, id, commentID primitive.ObjectID) (*models.Post, error) {
	return r.update(ctx, id, bson.M{"$pull": bson.M{"comments": commentID}})
}

func (r *MongoPostRepository) update(ctx context.Context, id primitive.ObjectID, update bson.M) (*models.Post, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var post models.Post
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&post); err != nil {
		return nil, translateError(err, "Post", id.Hex())
	}
	return &post, nil
}

func (r *MongoPostRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translateError(err, "Post", id.Hex())
	}
	if res.DeletedCount == 0 {
		return models.NewNotFoundError("Post", id.Hex())
	}
	return nil
}
