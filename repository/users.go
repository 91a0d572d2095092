package repository

import (
	"context"

	"carmarket/database"
	"carmarket/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoUserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{coll: db.Collection(database.UsersCollection)}
}

func (r *MongoUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	// $push and $addToSet fail on null fields
	if user.RefreshTokens == nil {
		user.RefreshTokens = []string{}
	}
	if user.LikedPosts == nil {
		user.LikedPosts = []string{}
	}

	_, err := r.coll.InsertOne(ctx, user)
	return translateError(err, "User", user.ID.Hex())
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, translateError(err, "User", id.Hex())
	}
	return &user, nil
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return nil, translateError(err, "User", email)
	}
	return &user, nil
}

func (r *MongoUserRepository) UpdateProfile(ctx context.Context, id primitive.ObjectID, update models.ProfileUpdate) (*models.User, error) {
	set := bson.M{
		"name":        update.Name,
		"email":       update.Email,
		"password":    update.PasswordHash,
		"phoneNumber": update.PhoneNumber,
		"imgUrl":      update.ImgURL,
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user models.User
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&user)
	if err != nil {
		return nil, translateError(err, "User", id.Hex())
	}
	return &user, nil
}

func (r *MongoUserRepository) AddRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$push": bson.M{"refreshTokens": token}})
	if err != nil {
		return translateError(err, "User", id.Hex())
	}
	if res.MatchedCount == 0 {
		return models.NewNotFoundError("User", id.Hex())
	}
	return nil
}

func (r *MongoUserRepository) ReplaceRefreshToken(ctx context.Context, id primitive.ObjectID, oldToken, newToken string) (bool, error) {
	// The positional operator rewrites exactly the matched element, so the
	// membership check and the swap happen in one document update.
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "refreshTokens": oldToken},
		bson.M{"$set": bson.M{"refreshTokens.$": newToken}},
	)
	if err != nil {
		return false, translateError(err, "User", id.Hex())
	}
	return res.MatchedCount > 0, nil
}

func (r *MongoUserRepository) RemoveRefreshToken(ctx context.Context, id primitive.ObjectID, token string) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "refreshTokens": token},
		bson.M{"$pull": bson.M{"refreshTokens": token}},
	)
	if err != nil {
		return false, translateError(err, "User", id.Hex())
	}
	return res.MatchedCount > 0, nil
}

func (r *MongoUserRepository) ClearRefreshTokens(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"refreshTokens": []string{}}})
	return translateError(err, "User", id.Hex())
}

func (r *MongoUserRepository) AddLikedPost(ctx context.Context, id primitive.ObjectID, postID string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$addToSet": bson.M{"likedPosts": postID}})
	if err != nil {
		return translateError(err, "User", id.Hex())
	}
	if res.MatchedCount == 0 {
		return models.NewNotFoundError("User", id.Hex())
	}
	return nil
}

func (r *MongoUserRepository) RemoveLikedPost(ctx context.Context, id primitive.ObjectID, postID string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$pull": bson.M{"likedPosts": postID}})
	if err != nil {
		return translateError(err, "User", id.Hex())
	}
	if res.MatchedCount == 0 {
		return models.NewNotFoundError("User", id.Hex())
	}
	return nil
}
