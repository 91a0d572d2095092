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

type MongoCommentRepository struct {
	coll *mongo.Collection
}

func NewCommentRepository(db *mongo.Database) *MongoCommentRepository {
	return &MongoCommentRepository{coll: db.Collection(database.CommentsCollection)}
}

func (r *MongoCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if comment.ID.IsZero() {
		comment.ID = primitive.NewObjectID()
	}
	if comment.Replies == nil {
		comment.Replies = []primitive.ObjectID{}
	}
	_, err := r.coll.InsertOne(ctx, comment)
	return translateError(err, "Comment", comment.ID.Hex())
}

func (r *MongoCommentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	var comment models.Comment
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&comment); err != nil {
		return nil, translateError(err, "Comment", id.Hex())
	}
	return &comment, nil
}

func (r *MongoCommentRepository) GetMany(ctx context.Context, ids []primitive.ObjectID) ([]models.Comment, error) {
	comments := make([]models.Comment, 0, len(ids))
	if len(ids) == 0 {
		return comments, nil
	}

	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, translateError(err, "Comment", "")
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, &comments); err != nil {
		return nil, fmt.Errorf("decode comments: %w", err)
	}
	return comments, nil
}

func (r *MongoCommentRepository) UpdateText(ctx context.Context, id primitive.ObjectID, text string) (*models.Comment, error) {
	return r.update(ctx, id, bson.M{"$set": bson.M{"text": text}})
}

func (r *MongoCommentRepository) PushReply(ctx context.Context, id, replyID primitive.ObjectID) (*models.Comment, error) {
	return r.update(ctx, id, bson.M{"$push": bson.M{"replies": replyID}})
}

func (r *MongoCommentRepository) PullReply(ctx context.Context, id, replyID primitive.ObjectID) (*models.Comment, error) {
	return r.update(ctx, id, bson.M{"$pull": bson.M{"replies": replyID}})
}

func (r *MongoCommentRepository) update(ctx context.Context, id primitive.ObjectID, update bson.M) (*models.Comment, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var comment models.Comment
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&comment); err != nil {
		return nil, translateError(err, "Comment", id.Hex())
	}
	return &comment, nil
}

func (r *MongoCommentRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translateError(err, "Comment", id.Hex())
	}
	if res.DeletedCount == 0 {
		return models.NewNotFoundError("Comment", id.Hex())
	}
	return nil
}

func (r *MongoCommentRepository) DeleteMany(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, translateError(err, "Comment", "")
	}
	return res.DeletedCount, nil
}
